// Package slots computes the time-slot grid behind day and week scheduling
// views, and rounds arbitrary instants onto slot boundaries.
package slots

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// LabelLayout is the 24-hour, zero-padded label format of a slot.
const LabelLayout = "15:04"

var (
	ErrInvalidWindow   = errors.New("slots: invalid hour window")
	ErrInvalidDuration = errors.New("slots: slot duration must be positive")
	ErrUnevenSlots     = errors.New("slots: slot duration does not evenly divide the window")
)

// Spec describes the visible window of one scheduling day.
type Spec struct {
	StartHour   int
	EndHour     int
	SlotMinutes int

	// Date anchors the grid; only its calendar day (in its own location) is used.
	Date time.Time

	// Timezone is an IANA identifier ("Europe/Berlin"). Empty means UTC.
	Timezone string
}

// Grid is the computed slot layout for a Spec. Indices, Starts and Labels
// are parallel and in chronological order.
type Grid struct {
	Spec     Spec
	Location *time.Location

	Indices []int
	Starts  []time.Time
	Labels  []string
}

// Count returns the number of slots in [startHour, endHour) for the given
// slot duration.
func Count(startHour, endHour, slotMinutes int) (int, error) {
	if slotMinutes <= 0 {
		return 0, ErrInvalidDuration
	}
	if startHour < 0 || endHour > 24 || endHour <= startHour {
		return 0, fmt.Errorf("%w: %d..%d", ErrInvalidWindow, startHour, endHour)
	}
	window := (endHour - startHour) * 60
	if window%slotMinutes != 0 {
		return 0, fmt.Errorf("%w: %d minutes / %d", ErrUnevenSlots, window, slotMinutes)
	}
	return window / slotMinutes, nil
}

// Compute builds the grid for spec. It has no hidden state, so callers may
// call it on every render.
func Compute(spec Spec) (Grid, error) {
	n, err := Count(spec.StartHour, spec.EndHour, spec.SlotMinutes)
	if err != nil {
		return Grid{}, err
	}

	loc := time.UTC
	if spec.Timezone != "" {
		loc, err = time.LoadLocation(spec.Timezone)
		if err != nil {
			return Grid{}, fmt.Errorf("slots: timezone %q: %w", spec.Timezone, err)
		}
	}

	y, m, d := spec.Date.Date()

	g := Grid{
		Spec:     spec,
		Location: loc,
		Indices:  make([]int, n),
		Starts:   make([]time.Time, n),
		Labels:   make([]string, n),
	}
	// Slots advance by elapsed time from the window start, so Starts stay
	// strictly increasing across DST transitions. On a spring-forward day the
	// skipped hour has no label; on a fall-back day a label may repeat.
	first := time.Date(y, m, d, spec.StartHour, 0, 0, 0, loc)
	slot := time.Duration(spec.SlotMinutes) * time.Minute
	for i := 0; i < n; i++ {
		start := first.Add(time.Duration(i) * slot)
		g.Indices[i] = i
		g.Starts[i] = start
		g.Labels[i] = start.Format(LabelLayout)
	}
	return g, nil
}

// Len returns the number of slots.
func (g Grid) Len() int { return len(g.Indices) }

// SlotDuration returns the length of one slot.
func (g Grid) SlotDuration() time.Duration {
	return time.Duration(g.Spec.SlotMinutes) * time.Minute
}

// Span returns the [start, end) interval of slot i.
func (g Grid) Span(i int) (start, end time.Time, ok bool) {
	if i < 0 || i >= len(g.Starts) {
		return time.Time{}, time.Time{}, false
	}
	start = g.Starts[i]
	return start, start.Add(g.SlotDuration()), true
}

// Round moves t to the nearest slot boundary of the grid, counting boundaries
// from the first slot start. Ties round up, seconds are dropped. The result
// may lie outside the visible window.
func (g Grid) Round(t time.Time) time.Time {
	if len(g.Starts) == 0 || g.Spec.SlotMinutes <= 0 {
		return t.Truncate(time.Minute)
	}
	slot := g.Spec.SlotMinutes
	d := t.Sub(g.Starts[0])
	elapsed := int(d / time.Minute)
	if d < 0 && d%time.Minute != 0 {
		elapsed--
	}
	m := ((elapsed % slot) + slot) % slot
	base := g.Starts[0].Add(time.Duration(elapsed) * time.Minute)
	if 2*m < slot {
		return base.Add(-time.Duration(m) * time.Minute)
	}
	return base.Add(time.Duration(slot-m) * time.Minute)
}

// IndexOf reports the slot that contains t.
func (g Grid) IndexOf(t time.Time) (int, bool) {
	i := sort.Search(len(g.Starts), func(i int) bool {
		return g.Starts[i].After(t)
	}) - 1
	if i < 0 {
		return 0, false
	}
	if _, end, _ := g.Span(i); !t.Before(end) {
		return 0, false
	}
	return i, true
}
