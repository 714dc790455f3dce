package ics

import (
	"testing"
	"time"
)

func TestExpandOccurrences(t *testing.T) {
	events, err := ParseICS(Source{ID: "team"}, []byte(weeklyStandupICS))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}

	seoul := time.FixedZone("KST", 9*3600)
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: seoul,
		RangeStart:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}

	var titles []string
	var starts []time.Time
	for _, occ := range res.Occurrences {
		titles = append(titles, occ.Title)
		starts = append(starts, occ.Start)
		if occ.Start.Location() != seoul {
			t.Errorf("occurrence %q not in display zone", occ.Title)
		}
	}

	want := []struct {
		title string
		start time.Time
	}{
		{"Standup", time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)},
		{"Holiday", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"Standup (moved)", time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC)},
		{"Standup", time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC)},
	}
	if len(res.Occurrences) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d", len(res.Occurrences), titles, len(want))
	}
	for i, w := range want {
		if titles[i] != w.title {
			t.Errorf("occurrence %d title = %q, want %q", i, titles[i], w.title)
		}
		if !res.Occurrences[i].AllDay && !starts[i].Equal(w.start) {
			t.Errorf("occurrence %d start = %v, want %v", i, starts[i], w.start)
		}
	}
}

func TestExpandWindowAndCap(t *testing.T) {
	daily := ParsedEvent{
		Source:   Source{ID: "s"},
		UID:      "daily",
		Title:    "Daily",
		Start:    time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}

	res, err := ExpandOccurrences([]ParsedEvent{daily}, ExpandConfig{
		RangeStart:             time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC),
		RangeEnd:               time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 3,
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}
	if len(res.Occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3 (capped)", len(res.Occurrences))
	}
	// The 08:00 instance on the 10th overlaps a window opening at 08:30.
	if first := res.Occurrences[0].Start; !first.Equal(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("first start = %v", first)
	}
	if len(res.TruncatedEvents) != 1 || res.TruncatedEvents[0] != "daily" {
		t.Errorf("TruncatedEvents = %v", res.TruncatedEvents)
	}

	if _, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}); err == nil {
		t.Error("inverted range accepted")
	}
}
