// Package pdfexport exports events as a printable PDF agenda.
package pdfexport

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"sort"

	"calkit/internal/capture"
	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "export-pdf"

// Printer turns an HTML document into PDF bytes.
type Printer interface {
	PrintHTML(ctx context.Context, html []byte) ([]byte, error)
}

type Plugin struct {
	plugin.Info

	printer Printer
}

// New creates the plugin. A nil printer uses headless Chromium.
func New(printer Printer) *Plugin {
	if printer == nil {
		printer = capture.NewPDFPrinter(capture.PDFOptions{})
	}
	return &Plugin{
		Info:    plugin.Info{ID: Key, Kind: plugin.TypeExport, Summary: "Export an agenda as PDF"},
		printer: printer,
	}
}

func (p *Plugin) FormatName() string    { return "PDF" }
func (p *Plugin) MIMEType() string      { return "application/pdf" }
func (p *Plugin) FileExtension() string { return ".pdf" }

func (p *Plugin) Export(ctx context.Context, events []model.Event, cfg plugin.ExportConfig) ([]byte, error) {
	html, err := RenderHTML(events, cfg)
	if err != nil {
		return nil, err
	}
	pdf, err := p.printer.PrintHTML(ctx, html)
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, errors.New("pdfexport: printer returned no data")
	}
	return pdf, nil
}

type agendaDay struct {
	Date   string
	Events []agendaRow
}

type agendaRow struct {
	Time     string
	Title    string
	Location string
}

type agendaPage struct {
	Title    string
	Timezone string
	Days     []agendaDay
}

var agendaTmpl = template.Must(template.New("agenda").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:sans-serif;font-size:11pt;margin:1.5cm}
h1{font-size:16pt;margin:0 0 .2cm}
.tz{color:#666;margin-bottom:.6cm}
h2{font-size:12pt;border-bottom:1px solid #999;margin:.5cm 0 .2cm}
table{width:100%;border-collapse:collapse}
td{padding:2px 4px;vertical-align:top}
td.time{width:3.2cm;white-space:nowrap}
td.loc{color:#555}
</style></head><body>
<h1>{{.Title}}</h1>
<div class="tz">{{.Timezone}}</div>
{{range .Days}}<h2>{{.Date}}</h2>
<table>{{range .Events}}<tr><td class="time">{{.Time}}</td><td>{{.Title}}</td><td class="loc">{{.Location}}</td></tr>
{{end}}</table>
{{else}}<p>No events.</p>
{{end}}</body></html>
`))

// RenderHTML builds the agenda document: events grouped by local day in
// chronological order.
func RenderHTML(events []model.Event, cfg plugin.ExportConfig) ([]byte, error) {
	loc := cfg.Loc()
	title := cfg.Title
	if title == "" {
		title = "Agenda"
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	page := agendaPage{Title: title, Timezone: loc.String()}
	for _, e := range sorted {
		start := e.Start
		if !e.AllDay {
			start = start.In(loc)
		}
		day := start.Format("Monday, 2 January 2006")
		if n := len(page.Days); n == 0 || page.Days[n-1].Date != day {
			page.Days = append(page.Days, agendaDay{Date: day})
		}
		row := agendaRow{Time: "all day", Title: e.Title, Location: e.Location}
		if !e.AllDay {
			row.Time = start.Format("15:04")
			if !e.End.IsZero() {
				row.Time += " – " + e.End.In(loc).Format("15:04")
			}
		}
		d := &page.Days[len(page.Days)-1]
		d.Events = append(d.Events, row)
	}

	var buf bytes.Buffer
	if err := agendaTmpl.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ Printer = (*capture.PDFPrinter)(nil)
