// Package icsexport exports events as an iCalendar file.
package icsexport

import (
	"context"

	"calkit/internal/ics"
	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "export-ics"

type Plugin struct {
	plugin.Info
}

func New() *Plugin {
	return &Plugin{Info: plugin.Info{ID: Key, Kind: plugin.TypeExport, Summary: "Export events as iCalendar"}}
}

func (p *Plugin) FormatName() string    { return "ICS" }
func (p *Plugin) MIMEType() string      { return "text/calendar; charset=utf-8" }
func (p *Plugin) FileExtension() string { return ".ics" }

// Export writes a VCALENDAR. Option "product_id" overrides PRODID.
func (p *Plugin) Export(ctx context.Context, events []model.Event, cfg plugin.ExportConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := ics.EncodeOptions{Name: cfg.Title}
	if pid, ok := cfg.Options["product_id"].(string); ok {
		opts.ProductID = pid
	}
	return []byte(ics.Encode(events, opts)), nil
}
