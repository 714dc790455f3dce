// Package darktheme switches a style sheet to a dark palette by setting CSS
// custom properties.
package darktheme

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	appLog "calkit/internal/log"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "theme-dark"

// StyleSheet is a set of CSS custom properties.
type StyleSheet interface {
	SetProperty(name, value string)
	RemoveProperty(name string)
}

var palette = map[string]string{
	"--calkit-bg":           "#121212",
	"--calkit-surface":      "#1e1e1e",
	"--calkit-text":         "#e0e0e0",
	"--calkit-muted":        "#9e9e9e",
	"--calkit-border":       "#333333",
	"--calkit-accent":       "#90caf9",
	"--calkit-event-bg":     "#263238",
	"--calkit-event-border": "#4fc3f7",
}

// Palette returns a copy of the custom properties applied on activation.
func Palette() map[string]string { return maps.Clone(palette) }

// Plugin applies Palette to its StyleSheet. It is disabled by default.
type Plugin struct {
	plugin.Info

	sheet   StyleSheet
	palette map[string]string
}

// New creates the theme. A nil sheet gets a fresh Properties.
func New(sheet StyleSheet) *Plugin {
	if sheet == nil {
		sheet = NewProperties()
	}
	return &Plugin{
		Info:    plugin.Info{ID: Key, Kind: plugin.TypeTheme, Disabled: true, Summary: "Dark color palette"},
		sheet:   sheet,
		palette: Palette(),
	}
}

// Sheet returns the style sheet the theme writes to.
func (p *Plugin) Sheet() StyleSheet { return p.sheet }

func (p *Plugin) Activate(context.Context) error {
	for name, value := range p.palette {
		p.sheet.SetProperty(name, value)
	}
	appLog.Debug("dark theme applied", "properties", len(p.palette))
	return nil
}

// Deactivate removes exactly the keys Activate sets.
func (p *Plugin) Deactivate(context.Context) error {
	for name := range p.palette {
		p.sheet.RemoveProperty(name)
	}
	appLog.Debug("dark theme removed", "properties", len(p.palette))
	return nil
}

// Properties is an in-memory StyleSheet, safe for concurrent use.
type Properties struct {
	mu    sync.RWMutex
	props map[string]string
}

func NewProperties() *Properties {
	return &Properties{props: make(map[string]string)}
}

func (s *Properties) SetProperty(name, value string) {
	s.mu.Lock()
	s.props[name] = value
	s.mu.Unlock()
}

func (s *Properties) RemoveProperty(name string) {
	s.mu.Lock()
	delete(s.props, name)
	s.mu.Unlock()
}

// Get returns a property value.
func (s *Properties) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[name]
	return v, ok
}

// Len returns the number of properties set.
func (s *Properties) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props)
}

// CSS renders the properties as a :root rule, sorted by name.
func (s *Properties) CSS() string {
	s.mu.RLock()
	names := make([]string, 0, len(s.props))
	for name := range s.props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		b.WriteString("  " + name + ": " + s.props[name] + ";\n")
	}
	b.WriteString("}\n")
	s.mu.RUnlock()
	return b.String()
}
