// Package csvexport exports events as comma-separated values.
package csvexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"unicode/utf8"

	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "export-csv"

var header = []string{"uid", "title", "start", "end", "all_day", "location", "description", "source"}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05Z07:00"
)

// Plugin writes one row per event. Timed events are formatted in the export
// location, all-day events as plain dates.
//
// Options:
//   - "delimiter": single-character field separator (default ",").
type Plugin struct {
	plugin.Info
}

func New() *Plugin {
	return &Plugin{Info: plugin.Info{ID: Key, Kind: plugin.TypeExport, Summary: "Export events as CSV"}}
}

func (p *Plugin) FormatName() string    { return "CSV" }
func (p *Plugin) MIMEType() string      { return "text/csv" }
func (p *Plugin) FileExtension() string { return ".csv" }

func (p *Plugin) Export(ctx context.Context, events []model.Event, cfg plugin.ExportConfig) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if d, ok := cfg.Options["delimiter"].(string); ok && utf8.RuneCountInString(d) == 1 {
		w.Comma, _ = utf8.DecodeRuneInString(d)
	}

	if err := w.Write(header); err != nil {
		return nil, err
	}

	loc := cfg.Loc()
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start, end := formatSpan(e, loc)
		row := []string{
			e.UID,
			e.Title,
			start,
			end,
			strconv.FormatBool(e.AllDay),
			e.Location,
			strings.ReplaceAll(e.Description, "\r\n", "\n"),
			e.SourceID,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
