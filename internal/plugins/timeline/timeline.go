// Package timeline renders a slot grid as an HTML timeline.
package timeline

import (
	"context"
	"errors"
	"html/template"
	"io"

	"calkit/internal/model"
	"calkit/internal/plugin"
	"calkit/internal/slots"
)

// Key is the default registry key.
const Key = "view-timeline"

// Name is the view name.
const Name = "timeline"

type row struct {
	Label  string
	Start  string
	Events []item
}

type item struct {
	Title    string
	Location string
	Span     int
	Range    string
}

type page struct {
	Title   string
	Date    string
	AllDay  []item
	Rows    []row
	Outside int
}

var pageTmpl = template.Must(template.New("timeline").Parse(`<div class="calkit-timeline">
<h2>{{.Title}} {{.Date}}</h2>
{{- if .AllDay}}
<ul class="all-day">
{{- range .AllDay}}
<li>{{.Title}}</li>
{{- end}}
</ul>
{{- end}}
<ol class="slots">
{{- range .Rows}}
<li data-start="{{.Start}}"><span class="label">{{.Label}}</span>
{{- range .Events}}
<div class="event" style="--span: {{.Span}}"><strong>{{.Title}}</strong> {{.Range}}{{if .Location}} <em>{{.Location}}</em>{{end}}</div>
{{- end}}
</li>
{{- end}}
</ol>
{{- if .Outside}}
<p class="outside">{{.Outside}} more outside the visible hours</p>
{{- end}}
</div>
`))

var errEmptyGrid = errors.New("timeline: empty grid")

// Plugin is the timeline view.
type Plugin struct {
	plugin.Info
}

func New() *Plugin {
	return &Plugin{Info: plugin.Info{ID: Key, Kind: plugin.TypeView, Summary: "Slot timeline view"}}
}

func (p *Plugin) ViewName() string { return Name }

// Render places each timed event in the slot containing its start. All-day
// events are listed above the grid; events starting outside the grid are
// only counted.
func (p *Plugin) Render(ctx context.Context, w io.Writer, data plugin.ViewData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g := data.Grid
	if g.Len() == 0 {
		return errEmptyGrid
	}

	pg := page{Title: data.Title, Rows: make([]row, g.Len())}
	if pg.Title == "" {
		pg.Title = "Schedule"
	}
	pg.Date = g.Starts[0].Format("Mon 2006-01-02")
	for i := range pg.Rows {
		pg.Rows[i] = row{Label: g.Labels[i], Start: g.Starts[i].Format("2006-01-02T15:04:05Z07:00")}
	}

	for _, ev := range data.Events {
		if ev.AllDay {
			pg.AllDay = append(pg.AllDay, item{Title: ev.Title})
			continue
		}
		start := ev.Start.In(g.Location)
		idx, ok := g.IndexOf(start)
		if !ok {
			pg.Outside++
			continue
		}
		pg.Rows[idx].Events = append(pg.Rows[idx].Events, item{
			Title:    ev.Title,
			Location: ev.Location,
			Span:     span(g, ev),
			Range:    start.Format(slots.LabelLayout) + "-" + ev.End.In(g.Location).Format(slots.LabelLayout),
		})
	}

	return pageTmpl.Execute(w, pg)
}

// span is the number of slots an event covers, at least one.
func span(g slots.Grid, ev model.Event) int {
	d := ev.Duration()
	slot := g.SlotDuration()
	n := int((d + slot - 1) / slot)
	if n < 1 {
		return 1
	}
	return n
}
