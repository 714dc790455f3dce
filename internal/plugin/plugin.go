package plugin

import (
	"context"
	"io"
	"time"

	"calkit/internal/model"
	"calkit/internal/slots"
)

// Type classifies a plugin. The set is open; these are the kinds shipped here.
type Type string

const (
	TypeTheme      Type = "theme"
	TypeView       Type = "view"
	TypeExport     Type = "export"
	TypeDataSource Type = "data-source"
	TypeFilter     Type = "filter"
	TypeUI         Type = "ui"
)

// Plugin is the identity every plugin carries.
type Plugin interface {
	Key() string
	Type() Type
}

// Toggler lets a plugin declare whether it starts enabled.
type Toggler interface {
	DefaultEnabled() bool
}

// Describer exposes a human-readable description.
type Describer interface {
	Description() string
}

// KeySetter receives the registry-generated key when a lazily loaded plugin
// has none of its own.
type KeySetter interface {
	SetKey(key string)
}

// Activator is implemented by plugins with an activation hook.
// Implementations must tolerate being activated twice.
type Activator interface {
	Activate(ctx context.Context) error
}

// Deactivator is implemented by plugins with a deactivation hook.
// Implementations must tolerate being deactivated twice.
type Deactivator interface {
	Deactivate(ctx context.Context) error
}

// Exporter renders events into a file format.
type Exporter interface {
	Export(ctx context.Context, events []model.Event, cfg ExportConfig) ([]byte, error)
	FormatName() string
	MIMEType() string
	FileExtension() string
}

// DataSource fetches events overlapping [start, end). Sources fail when the
// credentials they need are absent from cfg.
type DataSource interface {
	FetchEvents(ctx context.Context, start, end time.Time, cfg map[string]any) ([]model.Event, error)
}

// View renders a scheduling grid with its events.
type View interface {
	ViewName() string
	Render(ctx context.Context, w io.Writer, data ViewData) error
}

// ViewData is what a View renders.
type ViewData struct {
	Title  string
	Grid   slots.Grid
	Events []model.Event
}

// ExportConfig parameterizes an export.
type ExportConfig struct {
	// Title is used as calendar/document title.
	Title string
	// Filename is the download name without extension. Defaults to the plugin key.
	Filename string
	// Location is the display timezone. Nil means UTC.
	Location *time.Location
	// RangeStart / RangeEnd describe the exported window, informational only.
	RangeStart time.Time
	RangeEnd   time.Time
	// Options holds format-specific settings.
	Options map[string]any
}

// Loc returns the configured location or UTC.
func (c ExportConfig) Loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// ExportResult is a finished export ready for download.
type ExportResult struct {
	Format      string
	Data        []byte
	Filename    string
	ContentType string
}

// Loader produces a plugin on demand. The result may be a Plugin, a Provider
// or a Module wrapping one.
type Loader func(ctx context.Context) (any, error)

// Provider is a container that hands out a plugin.
type Provider interface {
	Plugin() Plugin
}

// Module mirrors a dynamically imported module with a default export.
type Module struct {
	Default Plugin
}

// Info is an embeddable identity that implements Plugin, Toggler, Describer
// and KeySetter.
type Info struct {
	ID       string
	Kind     Type
	Disabled bool
	Summary  string
}

func (i *Info) Key() string          { return i.ID }
func (i *Info) Type() Type           { return i.Kind }
func (i *Info) DefaultEnabled() bool { return !i.Disabled }
func (i *Info) Description() string  { return i.Summary }
func (i *Info) SetKey(key string)    { i.ID = key }

// unwrap resolves whatever a Loader returned into a Plugin.
func unwrap(v any) (Plugin, bool) {
	switch m := v.(type) {
	case Plugin:
		return m, m != nil
	case Provider:
		p := m.Plugin()
		return p, p != nil
	case Module:
		return m.Default, m.Default != nil
	case *Module:
		if m == nil || m.Default == nil {
			return nil, false
		}
		return m.Default, true
	default:
		return nil, false
	}
}

func enabledByDefault(p Plugin) bool {
	if t, ok := p.(Toggler); ok {
		return t.DefaultEnabled()
	}
	return true
}

// keyOf reports p's key, or false when p is nil or a nil pointer whose
// Key method cannot run.
func keyOf(p Plugin) (key string, ok bool) {
	if p == nil {
		return "", false
	}
	defer func() {
		if recover() != nil {
			key, ok = "", false
		}
	}()
	return p.Key(), true
}
