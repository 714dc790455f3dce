// Package refresh periodically pulls events from every enabled data-source
// plugin and keeps the merged result in memory.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calkit/internal/log"
	"calkit/internal/metrics"
	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Options configures a Refresher.
type Options struct {
	// HorizonDays is the number of days fetched from the start of today.
	HorizonDays int
	// Location defines "today". Nil means UTC.
	Location *time.Location
	// PluginOptions is passed to FetchEvents, keyed by plugin key.
	PluginOptions map[string]map[string]any
}

// Refresher fetches events from the registry's data sources.
type Refresher struct {
	reg  *plugin.Registry
	opts Options
	now  func() time.Time

	mu      sync.RWMutex
	events  []model.Event
	start   time.Time
	end     time.Time
	lastRun time.Time
	lastErr error
}

// New creates a Refresher over reg.
func New(reg *plugin.Registry, opts Options) *Refresher {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Refresher{reg: reg, opts: opts, now: time.Now}
}

// Window returns the [start, end) range the next refresh will fetch.
func (r *Refresher) Window() (time.Time, time.Time) {
	now := r.now().In(r.opts.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.opts.Location)
	return start, start.AddDate(0, 0, r.opts.HorizonDays)
}

// Refresh fetches from all enabled data sources and replaces the cache.
// Sources that fail are reported in the returned error; the cache then holds
// the events of the sources that succeeded. If every source fails the
// previous cache is kept.
func (r *Refresher) Refresh(ctx context.Context) error {
	start, end := r.Window()
	sources := r.reg.DataSources()

	var (
		all  []model.Event
		errs []error
		ok   int
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		evs, err := src.Plugin.FetchEvents(ctx, start, end, r.opts.PluginOptions[src.Key])
		metrics.RefreshRuns.WithLabelValues(src.Key, metrics.Result(err)).Inc()
		if err != nil {
			appLog.Error("data source fetch failed", err, "key", src.Key)
			errs = append(errs, fmt.Errorf("%s: %w", src.Key, err))
			continue
		}
		ok++
		metrics.CachedEvents.WithLabelValues(src.Key).Set(float64(len(evs)))
		for _, ev := range evs {
			if ev.SourceID == "" {
				ev.SourceID = src.Key
			}
			all = append(all, ev)
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	err := errors.Join(errs...)

	r.mu.Lock()
	r.lastRun = r.now()
	r.lastErr = err
	if ok > 0 || len(sources) == 0 {
		r.events, r.start, r.end = all, start, end
	}
	r.mu.Unlock()

	appLog.Info("refresh completed", "sources", len(sources), "failed", len(errs), "events", len(all))
	return err
}

// Start refreshes once, then on every tick of the cron schedule until ctx is
// done. The schedule uses the standard five-field syntax.
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLocation(r.opts.Location))
	if _, err := c.AddFunc(schedule, func() {
		_ = r.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", schedule, err)
	}

	_ = r.Refresh(ctx)
	c.Start()
	appLog.Info("refresh scheduler started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// Events returns a copy of the cached events.
func (r *Refresher) Events() []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Event(nil), r.events...)
}

// EventsBetween returns cached events overlapping [start, end).
func (r *Refresher) EventsBetween(start, end time.Time) []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Event
	for _, ev := range r.events {
		evEnd := ev.End
		if !evEnd.After(ev.Start) {
			evEnd = ev.Start.Add(time.Nanosecond)
		}
		if ev.Start.Before(end) && evEnd.After(start) {
			out = append(out, ev)
		}
	}
	return out
}

// Status describes the last refresh.
type Status struct {
	LastRun time.Time
	Err     error
	Start   time.Time
	End     time.Time
	Events  int
}

func (r *Refresher) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{LastRun: r.lastRun, Err: r.lastErr, Start: r.start, End: r.end, Events: len(r.events)}
}
