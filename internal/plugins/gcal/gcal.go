// Package gcal is a data source backed by the Google Calendar API.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	appLog "calkit/internal/log"
	"calkit/internal/model"
	"calkit/internal/plugin"
)

// Key is the default registry key.
const Key = "google-calendar"

const (
	defaultCalendarID = "primary"
	pageSize          = 250
)

// ErrMissingCredentials is returned when no access token is configured.
var ErrMissingCredentials = errors.New("gcal: access token is required")

// Plugin fetches single (already expanded) events from one calendar.
//
// Recognized config keys, per call or as defaults:
//   - "access_token" (required): OAuth2 bearer token.
//   - "calendar_id": calendar to read, default "primary".
//   - "endpoint": API base URL override.
type Plugin struct {
	plugin.Info

	defaults map[string]any
}

// New creates the data source. defaults are used for keys missing from the
// per-call config.
func New(defaults map[string]any) *Plugin {
	return &Plugin{
		Info:     plugin.Info{ID: Key, Kind: plugin.TypeDataSource, Summary: "Google Calendar events"},
		defaults: defaults,
	}
}

func (p *Plugin) FetchEvents(ctx context.Context, start, end time.Time, cfg map[string]any) ([]model.Event, error) {
	token := p.option(cfg, "access_token")
	if token == "" {
		return nil, ErrMissingCredentials
	}
	calID := p.option(cfg, "calendar_id")
	if calID == "" {
		calID = defaultCalendarID
	}

	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})),
	}
	if ep := p.option(cfg, "endpoint"); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: create service: %w", err)
	}

	call := svc.Events.List(calID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize)

	var out []model.Event
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			ev, err := convertEvent(item)
			if err != nil {
				appLog.Error("gcal: skipping event", err, "calendar", calID, "id", item.Id)
				continue
			}
			ev.SourceID = p.Key()
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}

	appLog.Debug("gcal fetch completed", "calendar", calID, "event_count", len(out))
	return out, nil
}

func (p *Plugin) option(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	if v, ok := p.defaults[key].(string); ok {
		return v
	}
	return ""
}

func convertEvent(item *calendar.Event) (model.Event, error) {
	if item == nil || item.Start == nil {
		return model.Event{}, errors.New("event without start")
	}
	if item.Status == "cancelled" {
		return model.Event{}, errors.New("event cancelled")
	}

	start, allDay, err := parseEventTime(item.Start)
	if err != nil {
		return model.Event{}, err
	}
	end := start
	if item.End != nil {
		if end, _, err = parseEventTime(item.End); err != nil {
			return model.Event{}, err
		}
	}

	uid := item.ICalUID
	if uid == "" {
		uid = item.Id
	}
	return model.Event{
		UID:         uid,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		URL:         item.HtmlLink,
		AllDay:      allDay,
		Start:       start,
		End:         end,
	}, nil
}

// parseEventTime handles both timed (dateTime) and all-day (date) values.
func parseEventTime(dt *calendar.EventDateTime) (time.Time, bool, error) {
	loc := time.UTC
	if dt.TimeZone != "" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(loc), false, nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, loc)
		return t, true, err
	}
	return time.Time{}, false, errors.New("empty event time")
}
