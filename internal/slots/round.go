package slots

import "time"

// Round moves t to the nearest slot boundary within its hour. The remainder
// is the minute of the hour modulo slotMinutes; a remainder of exactly half a
// slot rounds up. Seconds and sub-second precision are dropped.
//
// Boundaries are counted from the top of the hour, which matches a grid only
// when slotMinutes divides 60. Use Grid.Round for grid-anchored rounding.
func Round(t time.Time, slotMinutes int) time.Time {
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	if slotMinutes <= 0 {
		return base
	}

	m := t.Minute() % slotMinutes
	if 2*m < slotMinutes {
		return base.Add(-time.Duration(m) * time.Minute)
	}
	return base.Add(time.Duration(slotMinutes-m) * time.Minute)
}
