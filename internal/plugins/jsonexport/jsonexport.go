// Package jsonexport exports events as a JSON document.
package jsonexport

import (
	"context"
	"encoding/json"
	"time"

	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "export-json"

type document struct {
	Title       string     `json:"title,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
	Timezone    string     `json:"timezone"`
	RangeStart  *time.Time `json:"range_start,omitempty"`
	RangeEnd    *time.Time `json:"range_end,omitempty"`
	Events      []eventDTO `json:"events"`
}

type eventDTO struct {
	UID         string    `json:"uid"`
	SourceID    string    `json:"source_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	URL         string    `json:"url,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	RRule       string    `json:"rrule,omitempty"`
}

type Plugin struct {
	plugin.Info

	now func() time.Time
}

func New() *Plugin {
	return &Plugin{
		Info: plugin.Info{ID: Key, Kind: plugin.TypeExport, Summary: "Export events as JSON"},
		now:  time.Now,
	}
}

func (p *Plugin) FormatName() string    { return "JSON" }
func (p *Plugin) MIMEType() string      { return "application/json" }
func (p *Plugin) FileExtension() string { return ".json" }

func (p *Plugin) Export(ctx context.Context, events []model.Event, cfg plugin.ExportConfig) ([]byte, error) {
	loc := cfg.Loc()
	doc := document{
		Title:       cfg.Title,
		GeneratedAt: p.now().In(loc),
		Timezone:    loc.String(),
		Events:      make([]eventDTO, 0, len(events)),
	}
	if !cfg.RangeStart.IsZero() {
		rs := cfg.RangeStart.In(loc)
		doc.RangeStart = &rs
	}
	if !cfg.RangeEnd.IsZero() {
		re := cfg.RangeEnd.In(loc)
		doc.RangeEnd = &re
	}

	for _, e := range events {
		doc.Events = append(doc.Events, eventDTO{
			UID:         e.UID,
			SourceID:    e.SourceID,
			Title:       e.Title,
			Description: e.Description,
			Location:    e.Location,
			URL:         e.URL,
			Categories:  e.Categories,
			AllDay:      e.AllDay,
			Start:       e.Start.In(loc),
			End:         e.End.In(loc),
			RRule:       e.RRule,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}
