package ics

import (
	"strings"
	"testing"
	"time"

	"calkit/internal/model"
)

func TestEncodeParsesBack(t *testing.T) {
	events := []model.Event{
		{
			UID:      "review@calkit",
			Title:    "Design review",
			Location: "Room 2",
			Start:    time.Date(2024, 4, 2, 13, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 4, 2, 14, 0, 0, 0, time.UTC),
			RRule:    "FREQ=WEEKLY;COUNT=2",
		},
		{
			UID:    "offsite@calkit",
			Title:  "Offsite",
			AllDay: true,
			Start:  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	out := Encode(events, EncodeOptions{Name: "Team", Stamp: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)})
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "X-WR-CALNAME:Team") {
		t.Fatalf("Encode() missing calendar header:\n%s", out)
	}

	parsed, err := ParseICS(Source{ID: "roundtrip"}, []byte(out))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("parsed %d events, want 2", len(parsed))
	}
	if parsed[0].Title != "Design review" || parsed[0].RawRRule != "FREQ=WEEKLY;COUNT=2" {
		t.Errorf("parsed[0] = %+v", parsed[0])
	}
	if !parsed[0].Start.Equal(events[0].Start) || !parsed[0].End.Equal(events[0].End) {
		t.Errorf("parsed[0] times = %v..%v", parsed[0].Start, parsed[0].End)
	}
	if !parsed[1].AllDay {
		t.Error("parsed[1].AllDay = false")
	}
}

func TestEncodeSyntheticUID(t *testing.T) {
	out := Encode([]model.Event{{Title: "Lunch Break", Start: time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)}}, EncodeOptions{})
	if !strings.Contains(out, "UID:20240402T120000Z-lunch-break@calkit") {
		t.Errorf("synthetic UID missing:\n%s", out)
	}
}
