package model

import "time"

// Event is the calendar event shape shared by data sources, exporters and
// views. Recurring events carry their RRULE; data sources that expand
// recurrences emit one Event per occurrence with RRule left empty.
type Event struct {
	SourceID string // plugin key or feed ID that produced the event
	UID      string // iCalendar UID or provider event ID

	Title       string
	Description string
	Location    string
	URL         string
	Categories  []string

	AllDay bool

	// Start / End in the event's own timezone.
	Start time.Time
	End   time.Time

	RRule string
}

// Duration returns End-Start, or zero for events without an end.
func (e Event) Duration() time.Duration {
	if e.End.IsZero() || e.End.Before(e.Start) {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string
	UID      string

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Title       string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the display timezone.
	Start time.Time
	End   time.Time
}

// Event converts the occurrence back to a non-recurring Event.
func (o Occurrence) Event() Event {
	return Event{
		SourceID:    o.SourceID,
		UID:         o.UID,
		Title:       o.Title,
		Description: o.Description,
		Location:    o.Location,
		AllDay:      o.AllDay,
		Start:       o.Start,
		End:         o.End,
	}
}
