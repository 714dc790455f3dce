package web

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"calkit/internal/config"
	"calkit/internal/model"
	"calkit/internal/plugin"
	"calkit/internal/plugins/csvexport"
	"calkit/internal/plugins/darktheme"
	"calkit/internal/plugins/timeline"
	"calkit/internal/refresh"
)

type fakeSource struct {
	plugin.Info
	events []model.Event
}

func (f *fakeSource) FetchEvents(context.Context, time.Time, time.Time, map[string]any) ([]model.Event, error) {
	return f.events, nil
}

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

type fixture struct {
	srv   *Server
	reg   *plugin.Registry
	theme *darktheme.Plugin
}

func newFixture(t *testing.T, auth *config.BasicAuthConfig) fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BasicAuth = auth

	reg := plugin.NewRegistry()
	theme := darktheme.New(nil)
	for _, p := range []plugin.Plugin{
		csvexport.New(),
		timeline.New(),
		theme,
		&fakeSource{
			Info: plugin.Info{ID: "fake", Kind: plugin.TypeDataSource},
			events: []model.Event{
				{UID: "e1", Title: "Standup", Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 15*time.Minute)},
				{UID: "e2", Title: "Retro", Start: day.AddDate(0, 0, 2).Add(14 * time.Hour), End: day.AddDate(0, 0, 2).Add(15 * time.Hour)},
			},
		},
	} {
		if _, err := reg.Register(p); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	ref := refresh.New(reg, refresh.Options{})
	if err := ref.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	sheet := theme.Sheet().(*darktheme.Properties)
	return fixture{
		srv:   NewServer(cfg, Deps{Registry: reg, Refresher: ref, Theme: sheet}),
		reg:   reg,
		theme: theme,
	}
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, &config.BasicAuthConfig{Username: "admin", Password: "pw"})
	h := f.srv.Handler()

	if rec := do(t, h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 without auth", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/plugins"); rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/plugins status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/plugins", nil)
	req.SetBasicAuth("admin", "pw")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/api/plugins with auth status = %d", rec.Code)
	}
}

func TestSlots(t *testing.T) {
	h := newFixture(t, nil).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/slots?date=2024-03-04&tz=UTC&start=9&end=17&slot=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp slotsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 16 || resp.Slots[0].Label != "09:00" || resp.Slots[15].Label != "16:30" {
		t.Errorf("slots = %+v", resp.Slots)
	}
	if resp.Date != "2024-03-04" || resp.Timezone != "UTC" {
		t.Errorf("date = %q tz = %q", resp.Date, resp.Timezone)
	}

	for _, target := range []string{
		"/api/slots?date=2024-03-04&start=9&end=17&slot=7",
		"/api/slots?start=17&end=9",
		"/api/slots?slot=abc",
		"/api/slots?date=yesterday",
	} {
		if rec := do(t, h, http.MethodGet, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestRound(t *testing.T) {
	h := newFixture(t, nil).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/round?t=2024-03-04T10:37:00Z&slot=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Rounded time.Time `json:"rounded"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := day.Add(10*time.Hour + 30*time.Minute); !resp.Rounded.Equal(want) {
		t.Errorf("rounded = %v, want %v", resp.Rounded, want)
	}

	rec = do(t, h, http.MethodGet, "/api/round?t=2024-03-04T09:20:00Z&slot=90&anchor=grid&date=2024-03-04&tz=UTC&start=8&end=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("grid anchor status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := day.Add(9*time.Hour + 30*time.Minute); !resp.Rounded.Equal(want) {
		t.Errorf("grid rounded = %v, want %v", resp.Rounded, want)
	}

	if rec := do(t, h, http.MethodGet, "/api/round?t=soon"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad t status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/round?t=2024-03-04T10:37:00Z&slot=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad slot status = %d", rec.Code)
	}
}

func TestPluginLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	h := f.srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/plugins")
	var list []pluginDTO
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 4 || list[0].Key != csvexport.Key || list[0].Type != "export" || list[0].State != "enabled" {
		t.Fatalf("plugins = %+v", list)
	}
	if list[2].Key != darktheme.Key || list[2].Enabled {
		t.Errorf("dark theme = %+v, want disabled", list[2])
	}

	rec = do(t, h, http.MethodPost, "/api/plugins/"+darktheme.Key+"/activate")
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d: %s", rec.Code, rec.Body)
	}
	if css := do(t, h, http.MethodGet, "/theme.css").Body.String(); !strings.Contains(css, "--calkit-bg: #121212;") {
		t.Errorf("theme.css after activate = %q", css)
	}

	rec = do(t, h, http.MethodPost, "/api/plugins/"+darktheme.Key+"/deactivate")
	var dto pluginDTO
	if err := json.NewDecoder(rec.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.State != "disabled" {
		t.Errorf("state after deactivate = %q", dto.State)
	}
	if css := do(t, h, http.MethodGet, "/theme.css").Body.String(); css != ":root {\n}\n" {
		t.Errorf("theme.css after deactivate = %q", css)
	}

	if rec := do(t, h, http.MethodPost, "/api/plugins/nope/activate"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown activate status = %d", rec.Code)
	}
}

func TestEvents(t *testing.T) {
	h := newFixture(t, nil).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/events?from=2024-03-04&to=2024-03-05")
	var resp eventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].UID != "e1" || resp.Events[0].Source != "fake" {
		t.Errorf("events = %+v", resp.Events)
	}
	if resp.LastRun == nil {
		t.Error("last_refresh missing")
	}

	if rec := do(t, h, http.MethodGet, "/api/events?from=March"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	h := newFixture(t, nil).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/export/"+csvexport.Key+"?from=2024-03-01&to=2024-03-08&filename=week")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=week.csv` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("Content-Type = %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Standup") || !strings.Contains(body, "Retro") {
		t.Errorf("body = %q", body)
	}

	rec = do(t, h, http.MethodGet, "/api/export/"+csvexport.Key+"?filename="+url.QueryEscape(`a"b; x=y`))
	if rec.Code != http.StatusOK {
		t.Fatalf("quoted filename status = %d", rec.Code)
	}
	disp, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("ParseMediaType(%q) error = %v", rec.Header().Get("Content-Disposition"), err)
	}
	if disp != "attachment" || params["filename"] != `a"b; x=y.csv` || len(params) != 1 {
		t.Errorf("Content-Disposition = %s %v", disp, params)
	}

	if rec := do(t, h, http.MethodGet, "/api/export/fake"); rec.Code != http.StatusBadRequest {
		t.Errorf("non-export status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/export/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown export status = %d, want 404", rec.Code)
	}
}

func TestView(t *testing.T) {
	f := newFixture(t, nil)
	h := f.srv.Handler()

	rec := do(t, h, http.MethodGet, "/views/"+timeline.Key+"?date=2024-03-04&tz=UTC&start=8&end=12&slot=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "<strong>Standup</strong> 09:00-09:15") {
		t.Errorf("body = %s", rec.Body)
	}

	if rec := do(t, h, http.MethodGet, "/views/"+csvexport.Key); rec.Code != http.StatusBadRequest {
		t.Errorf("non-view status = %d, want 400", rec.Code)
	}

	if err := f.reg.Deactivate(context.Background(), timeline.Key); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, h, http.MethodGet, "/views/"+timeline.Key); rec.Code != http.StatusConflict {
		t.Errorf("disabled view status = %d, want 409", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	h := newFixture(t, nil).srv.Handler()
	rec := do(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "calkit_refresh_runs_total") {
		t.Errorf("metrics status = %d", rec.Code)
	}
}
