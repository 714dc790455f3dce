package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"calkit/internal/model"
	"calkit/internal/plugin"
)

type fakeSource struct {
	plugin.Info
	fetch func(start, end time.Time, cfg map[string]any) ([]model.Event, error)
}

func (f *fakeSource) FetchEvents(_ context.Context, start, end time.Time, cfg map[string]any) ([]model.Event, error) {
	return f.fetch(start, end, cfg)
}

func newSource(key string, fetch func(start, end time.Time, cfg map[string]any) ([]model.Event, error)) *fakeSource {
	return &fakeSource{Info: plugin.Info{ID: key, Kind: plugin.TypeDataSource}, fetch: fetch}
}

var fixedNow = time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)

func TestRefreshMergesSources(t *testing.T) {
	reg := plugin.NewRegistry()
	var gotStart, gotEnd time.Time
	var gotCfg map[string]any
	_, _ = reg.Register(newSource("a", func(start, end time.Time, cfg map[string]any) ([]model.Event, error) {
		gotStart, gotEnd, gotCfg = start, end, cfg
		return []model.Event{{UID: "a1", Start: fixedNow.Add(2 * time.Hour)}}, nil
	}))
	_, _ = reg.Register(newSource("b", func(time.Time, time.Time, map[string]any) ([]model.Event, error) {
		return []model.Event{{UID: "b1", SourceID: "feed", Start: fixedNow.Add(time.Hour)}}, nil
	}))

	r := New(reg, Options{HorizonDays: 3, PluginOptions: map[string]map[string]any{"a": {"token": "x"}}})
	r.now = func() time.Time { return fixedNow }

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if !gotStart.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) || !gotEnd.Equal(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = %v..%v", gotStart, gotEnd)
	}
	if gotCfg["token"] != "x" {
		t.Errorf("cfg = %v", gotCfg)
	}

	events := r.Events()
	if len(events) != 2 || events[0].UID != "b1" || events[1].UID != "a1" {
		t.Fatalf("events = %+v, want b1 then a1", events)
	}
	if events[0].SourceID != "feed" || events[1].SourceID != "a" {
		t.Errorf("source ids = %q, %q", events[0].SourceID, events[1].SourceID)
	}
	if st := r.Status(); st.Events != 2 || st.Err != nil || !st.LastRun.Equal(fixedNow) {
		t.Errorf("Status() = %+v", st)
	}
}

func TestRefreshSkipsDisabledSources(t *testing.T) {
	reg := plugin.NewRegistry()
	called := false
	key, _ := reg.Register(newSource("off", func(time.Time, time.Time, map[string]any) ([]model.Event, error) {
		called = true
		return nil, nil
	}))
	if err := reg.Deactivate(context.Background(), key); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	r := New(reg, Options{})
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if called {
		t.Error("disabled data source was fetched")
	}
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	reg := plugin.NewRegistry()
	fail := false
	errDown := errors.New("down")
	_, _ = reg.Register(newSource("a", func(time.Time, time.Time, map[string]any) ([]model.Event, error) {
		if fail {
			return nil, errDown
		}
		return []model.Event{{UID: "a1", Start: fixedNow}}, nil
	}))

	r := New(reg, Options{})
	r.now = func() time.Time { return fixedNow }
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	fail = true
	err := r.Refresh(context.Background())
	if !errors.Is(err, errDown) {
		t.Fatalf("Refresh() error = %v, want %v", err, errDown)
	}
	if got := r.Events(); len(got) != 1 {
		t.Fatalf("cache dropped after failed refresh: %+v", got)
	}
	if r.Status().Err == nil {
		t.Error("Status().Err = nil after failure")
	}
}

func TestEventsBetween(t *testing.T) {
	r := New(plugin.NewRegistry(), Options{})
	r.events = []model.Event{
		{UID: "early", Start: fixedNow.Add(-2 * time.Hour), End: fixedNow.Add(-time.Hour)},
		{UID: "spanning", Start: fixedNow.Add(-time.Hour), End: fixedNow.Add(time.Hour)},
		{UID: "instant", Start: fixedNow.Add(30 * time.Minute)},
		{UID: "late", Start: fixedNow.Add(3 * time.Hour), End: fixedNow.Add(4 * time.Hour)},
	}

	got := r.EventsBetween(fixedNow, fixedNow.Add(2*time.Hour))
	if len(got) != 2 || got[0].UID != "spanning" || got[1].UID != "instant" {
		t.Fatalf("EventsBetween() = %+v", got)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := New(plugin.NewRegistry(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx, "not a schedule"); err == nil {
		t.Fatal("Start() error = nil, want parse error")
	}
	if err := r.Start(ctx, "*/15 * * * *"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if r.Status().LastRun.IsZero() {
		t.Error("Start() did not run an initial refresh")
	}
}
