package plugin

import "errors"

// Registry errors. They are returned wrapped with the plugin key, test with
// errors.Is.
var (
	// ErrInvalidPlugin is returned when a plugin lacks a key or a loader
	// resolves to something that is not a plugin.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrUnknownPlugin is returned for keys that were never registered.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrMissingLoader is returned when an unloaded record has no loader.
	ErrMissingLoader = errors.New("plugin has no loader")

	// ErrNotExportPlugin is returned by InvokeExport for plugins that do not
	// implement Exporter.
	ErrNotExportPlugin = errors.New("plugin is not an export plugin")
)
