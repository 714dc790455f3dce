package gcal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"calkit/internal/plugin"
)

const eventsJSON = `{
  "kind": "calendar#events",
  "items": [
    {
      "id": "evt1",
      "iCalUID": "evt1@google.com",
      "status": "confirmed",
      "summary": "Planning",
      "location": "Room 1",
      "start": {"dateTime": "2024-03-04T10:00:00+01:00", "timeZone": "Europe/Berlin"},
      "end": {"dateTime": "2024-03-04T11:00:00+01:00", "timeZone": "Europe/Berlin"}
    },
    {
      "id": "evt2",
      "status": "confirmed",
      "summary": "Offsite",
      "start": {"date": "2024-03-05"},
      "end": {"date": "2024-03-06"}
    },
    {
      "id": "evt3",
      "status": "cancelled",
      "summary": "Dropped",
      "start": {"dateTime": "2024-03-06T10:00:00Z"}
    }
  ]
}`

func TestFetchEvents(t *testing.T) {
	var gotAuth, gotPath, gotSingle, gotTimeMin string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotSingle = r.URL.Query().Get("singleEvents")
		gotTimeMin = r.URL.Query().Get("timeMin")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(eventsJSON))
	}))
	defer srv.Close()

	p := New(map[string]any{"endpoint": srv.URL + "/"})
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	events, err := p.FetchEvents(context.Background(), start, end, map[string]any{"access_token": "tok-123"})
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/calendars/primary/events" {
		t.Errorf("path = %q", gotPath)
	}
	if gotSingle != "true" || gotTimeMin != "2024-03-04T00:00:00Z" {
		t.Errorf("query singleEvents=%q timeMin=%q", gotSingle, gotTimeMin)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (cancelled skipped)", len(events))
	}
	planning := events[0]
	if planning.UID != "evt1@google.com" || planning.Title != "Planning" || planning.SourceID != Key {
		t.Errorf("planning = %+v", planning)
	}
	if !planning.Start.Equal(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("planning.Start = %v", planning.Start)
	}
	offsite := events[1]
	if !offsite.AllDay || offsite.UID != "evt2" {
		t.Errorf("offsite = %+v", offsite)
	}
}

func TestFetchEventsRequiresToken(t *testing.T) {
	p := New(nil)
	_, err := p.FetchEvents(context.Background(), time.Now(), time.Now().Add(time.Hour), map[string]any{})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("FetchEvents() error = %v, want ErrMissingCredentials", err)
	}
}

func TestCapabilities(t *testing.T) {
	var _ plugin.DataSource = New(nil)
	if New(nil).Type() != plugin.TypeDataSource {
		t.Error("Type() != data-source")
	}
}
