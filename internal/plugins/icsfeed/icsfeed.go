// Package icsfeed is a data source that reads ICS subscriptions and expands
// their recurrences into single events.
package icsfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calkit/internal/ics"
	appLog "calkit/internal/log"
	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "ics-feed"

// ErrNoSources is returned when neither the plugin nor the call config names
// a feed URL.
var ErrNoSources = errors.New("icsfeed: no feed URL configured")

// Plugin fetches configured feeds through an ics.Fetcher.
//
// Per call, cfg["url"] adds one more feed and cfg["timezone"] sets the
// display zone of the returned events.
type Plugin struct {
	plugin.Info

	fetcher *ics.Fetcher
	sources []ics.Source
}

// New creates the data source. A nil fetcher uses a default one.
func New(fetcher *ics.Fetcher, sources []ics.Source) *Plugin {
	if fetcher == nil {
		fetcher = ics.NewFetcher("", nil)
	}
	return &Plugin{
		Info:    plugin.Info{ID: Key, Kind: plugin.TypeDataSource, Summary: "ICS subscriptions"},
		fetcher: fetcher,
		sources: sources,
	}
}

func (p *Plugin) FetchEvents(ctx context.Context, start, end time.Time, cfg map[string]any) ([]model.Event, error) {
	sources := append([]ics.Source(nil), p.sources...)
	if u, ok := cfg["url"].(string); ok && u != "" {
		sources = append(sources, ics.Source{ID: p.Key(), URL: u})
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	loc := time.UTC
	if tz, ok := cfg["timezone"].(string); ok && tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("icsfeed: timezone %q: %w", tz, err)
		}
		loc = l
	}

	results, errs := p.fetcher.FetchAll(ctx, sources)
	if len(results) == 0 {
		return nil, errors.Join(errs...)
	}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics source %s: %w", res.Source.ID, err))
			continue
		}
		parsed = append(parsed, evs...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(expanded.Occurrences))
	for _, occ := range expanded.Occurrences {
		out = append(out, occ.Event())
	}

	if len(errs) > 0 {
		appLog.Error("icsfeed: partial fetch", errors.Join(errs...), "failed", len(errs), "ok", len(results))
	}
	return out, nil
}
