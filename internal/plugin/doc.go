// Package plugin implements the calendar plugin registry.
//
// A plugin is any value implementing Plugin. Extra behavior is discovered by
// type assertion against the capability interfaces:
//
//   - Activator / Deactivator: lifecycle hooks run by Registry.Activate and
//     Registry.Deactivate.
//   - Exporter: turns events into a downloadable document (Registry.InvokeExport).
//   - DataSource: fetches events for a time range.
//   - View: renders a slot grid and its events.
//
// Plugins are registered either eagerly (Registry.Register) or lazily through
// a Loader (Registry.RegisterLoader). Lazy plugins are realized on the first
// Load or Activate; concurrent first loads share one loader call.
package plugin
