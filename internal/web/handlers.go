package web

import (
	"bytes"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appLog "calkit/internal/log"
	"calkit/internal/model"
	"calkit/internal/plugin"
	"calkit/internal/slots"
)

const dateLayout = "2006-01-02"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type slotDTO struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	Label string    `json:"label"`
}

type slotsResponse struct {
	Date        string    `json:"date"`
	Timezone    string    `json:"timezone"`
	StartHour   int       `json:"start_hour"`
	EndHour     int       `json:"end_hour"`
	SlotMinutes int       `json:"slot_minutes"`
	Slots       []slotDTO `json:"slots"`
}

// gridFromQuery builds a slot grid from date/tz/start/end/slot parameters,
// defaulting to the configured grid on today's date.
func (s *Server) gridFromQuery(r *http.Request) (slots.Grid, error) {
	q := r.URL.Query()

	spec := slots.Spec{Timezone: q.Get("tz")}
	if spec.Timezone == "" {
		spec.Timezone = s.loc.String()
	}
	var err error
	if spec.StartHour, err = parseIntDefault(q.Get("start"), s.cfg.Grid.StartHour); err != nil {
		return slots.Grid{}, err
	}
	if spec.EndHour, err = parseIntDefault(q.Get("end"), s.cfg.Grid.EndHour); err != nil {
		return slots.Grid{}, err
	}
	if spec.SlotMinutes, err = parseIntDefault(q.Get("slot"), s.cfg.Grid.SlotMinutes); err != nil {
		return slots.Grid{}, err
	}

	spec.Date = s.now().In(s.loc)
	if d := q.Get("date"); d != "" {
		if spec.Date, err = time.Parse(dateLayout, d); err != nil {
			return slots.Grid{}, err
		}
	}
	return slots.Compute(spec)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	g, err := s.gridFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := slotsResponse{
		Date:        g.Starts[0].Format(dateLayout),
		Timezone:    g.Location.String(),
		StartHour:   g.Spec.StartHour,
		EndHour:     g.Spec.EndHour,
		SlotMinutes: g.Spec.SlotMinutes,
		Slots:       make([]slotDTO, 0, g.Len()),
	}
	for i := range g.Indices {
		resp.Slots = append(resp.Slots, slotDTO{Index: g.Indices[i], Start: g.Starts[i], Label: g.Labels[i]})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := time.Parse(time.RFC3339, q.Get("t"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "t must be an RFC3339 timestamp")
		return
	}
	slot, err := parseIntDefault(q.Get("slot"), s.cfg.Grid.SlotMinutes)
	if err != nil || slot <= 0 {
		writeError(w, http.StatusBadRequest, "slot must be a positive integer")
		return
	}

	rounded := slots.Round(t, slot)
	// anchor=grid counts boundaries from the grid's start hour instead of
	// the top of the hour; date/tz/start/end are read as for /api/slots.
	if q.Get("anchor") == "grid" {
		g, err := s.gridFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rounded = g.Round(t)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"input":        t,
		"slot_minutes": slot,
		"rounded":      rounded,
	})
}

type pluginDTO struct {
	Key         string `json:"key"`
	Type        string `json:"type,omitempty"`
	State       string `json:"state"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

func toPluginDTO(rec plugin.Record, state plugin.State) pluginDTO {
	dto := pluginDTO{Key: rec.Key, State: state.String(), Enabled: rec.Enabled}
	if rec.Instance != nil {
		dto.Type = string(rec.Instance.Type())
		if d, ok := rec.Instance.(plugin.Describer); ok {
			dto.Description = d.Description()
		}
	}
	return dto
}

func (s *Server) pluginDTO(key string) (pluginDTO, bool) {
	rec, ok := s.deps.Registry.Record(key)
	if !ok {
		return pluginDTO{}, false
	}
	state, _ := s.deps.Registry.State(key)
	return toPluginDTO(rec, state), true
}

func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	out := make([]pluginDTO, 0)
	for _, key := range s.deps.Registry.ListKeys() {
		if dto, ok := s.pluginDTO(key); ok {
			out = append(out, dto)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, err := s.deps.Registry.Activate(r.Context(), key); err != nil {
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}
	dto, _ := s.pluginDTO(key)
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.deps.Registry.Deactivate(r.Context(), key); err != nil {
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}
	dto, _ := s.pluginDTO(key)
	writeJSON(w, http.StatusOK, dto)
}

// rangeFromQuery reads from/to dates; missing values default to the
// refresher window.
func (s *Server) rangeFromQuery(r *http.Request) (time.Time, time.Time, error) {
	var start, end time.Time
	if s.deps.Refresher != nil {
		start, end = s.deps.Refresher.Window()
	} else {
		now := s.now().In(s.loc)
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		end = start.AddDate(0, 0, s.cfg.HorizonDays)
	}

	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if start, err = time.ParseInLocation(dateLayout, v, s.loc); err != nil {
			return start, end, err
		}
	}
	if v := q.Get("to"); v != "" {
		if end, err = time.ParseInLocation(dateLayout, v, s.loc); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}

func (s *Server) eventsBetween(start, end time.Time) []model.Event {
	if s.deps.Refresher == nil {
		return nil
	}
	return s.deps.Refresher.EventsBetween(start, end)
}

type eventDTO struct {
	Source      string    `json:"source"`
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type eventsResponse struct {
	RangeStart time.Time  `json:"range_start"`
	RangeEnd   time.Time  `json:"range_end"`
	Timezone   string     `json:"timezone"`
	LastRun    *time.Time `json:"last_refresh,omitempty"`
	Error      string     `json:"refresh_error,omitempty"`
	Events     []eventDTO `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.rangeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
		return
	}

	resp := eventsResponse{
		RangeStart: start,
		RangeEnd:   end,
		Timezone:   s.loc.String(),
		Events:     make([]eventDTO, 0),
	}
	if s.deps.Refresher != nil {
		st := s.deps.Refresher.Status()
		if !st.LastRun.IsZero() {
			resp.LastRun = &st.LastRun
		}
		if st.Err != nil {
			resp.Error = st.Err.Error()
		}
	}
	for _, ev := range s.eventsBetween(start, end) {
		resp.Events = append(resp.Events, eventDTO{
			Source:      ev.SourceID,
			UID:         ev.UID,
			Title:       ev.Title,
			Description: ev.Description,
			Location:    ev.Location,
			AllDay:      ev.AllDay,
			Start:       ev.Start.In(s.loc),
			End:         ev.End.In(s.loc),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	start, end, err := s.rangeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
		return
	}

	cfg := plugin.ExportConfig{
		Title:      r.URL.Query().Get("title"),
		Filename:   r.URL.Query().Get("filename"),
		Location:   s.loc,
		RangeStart: start,
		RangeEnd:   end,
		Options:    s.cfg.PluginOptions()[key],
	}
	if cfg.Title == "" {
		cfg.Title = "calkit"
	}

	res, err := s.deps.Registry.InvokeExport(r.Context(), key, s.eventsBetween(start, end), cfg)
	if err != nil {
		appLog.Error("export failed", err, "key", key)
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *Server) handleTheme(w http.ResponseWriter, _ *http.Request) {
	css := ":root {\n}\n"
	if s.deps.Theme != nil {
		css = s.deps.Theme.CSS()
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(css))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	p, err := s.deps.Registry.Load(r.Context(), key)
	if err != nil {
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}
	view, ok := p.(plugin.View)
	if !ok {
		writeError(w, http.StatusBadRequest, "plugin "+key+" is not a view")
		return
	}
	if !s.deps.Registry.Enabled(key) {
		writeError(w, http.StatusConflict, "plugin "+key+" is disabled")
		return
	}

	g, err := s.gridFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dayStart := g.Starts[0]
	dayStart = time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), 0, 0, 0, 0, g.Location)

	var buf bytes.Buffer
	data := plugin.ViewData{
		Title:  r.URL.Query().Get("title"),
		Grid:   g,
		Events: s.eventsBetween(dayStart, dayStart.AddDate(0, 0, 1)),
	}
	if err := view.Render(r.Context(), &buf, data); err != nil {
		appLog.Error("view render failed", err, "key", key)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
