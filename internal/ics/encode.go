package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calkit/internal/model"
)

// EncodeOptions controls calendar-level properties of Encode.
type EncodeOptions struct {
	Name      string
	ProductID string
	// Stamp is written as DTSTAMP. Zero means time.Now.
	Stamp time.Time
}

const defaultProductID = "-//calkit//calkit//EN"

// Encode serializes events as a VCALENDAR. Timed events are written in UTC,
// all-day events as DATE values. RRULE is carried over unchanged.
func Encode(events []model.Event, opts EncodeOptions) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	if opts.ProductID == "" {
		opts.ProductID = defaultProductID
	}
	cal.SetProductId(opts.ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, e := range events {
		uid := e.UID
		if uid == "" {
			uid = syntheticUID(e)
		}
		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(stamp)

		if e.AllDay {
			ve.SetAllDayStartAt(e.Start)
			end := e.End
			if !end.After(e.Start) {
				end = e.Start.AddDate(0, 0, 1)
			}
			ve.SetAllDayEndAt(end)
		} else {
			ve.SetStartAt(e.Start)
			if !e.End.IsZero() {
				ve.SetEndAt(e.End)
			}
		}

		if e.Title != "" {
			ve.SetSummary(e.Title)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.URL != "" {
			ve.SetURL(e.URL)
		}
		if len(e.Categories) > 0 {
			ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(e.Categories, ","))
		}
		if e.RRule != "" {
			ve.AddRrule(strings.TrimPrefix(e.RRule, "RRULE:"))
		}
	}

	return cal.Serialize()
}

func syntheticUID(e model.Event) string {
	return e.Start.UTC().Format("20060102T150405Z") + "-" + strings.ReplaceAll(strings.ToLower(e.Title), " ", "-") + "@calkit"
}
