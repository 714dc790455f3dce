package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"calkit/internal/config"
	appLog "calkit/internal/log"
	"calkit/internal/metrics"
	"calkit/internal/plugin"
	"calkit/internal/refresh"
)

// StyleSheet renders the currently applied CSS custom properties.
type StyleSheet interface {
	CSS() string
}

// Deps are the collaborators behind the API.
type Deps struct {
	Registry  *plugin.Registry
	Refresher *refresh.Refresher
	// Theme may be nil; /theme.css then serves an empty rule.
	Theme StyleSheet
}

// Server provides the HTTP API over the slot calculator and plugin registry.
type Server struct {
	cfg    *config.Config
	deps   Deps
	loc    *time.Location
	router chi.Router
	now    func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", cfg.Timezone)
		loc = time.UTC
	}
	if deps.Registry == nil {
		deps.Registry = plugin.NewRegistry()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		loc:    loc,
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
			r.Use(s.basicAuthMiddleware)
		}

		r.Get("/api/slots", s.handleSlots)
		r.Get("/api/round", s.handleRound)
		r.Get("/api/plugins", s.handlePlugins)
		r.Post("/api/plugins/{key}/activate", s.handleActivate)
		r.Post("/api/plugins/{key}/deactivate", s.handleDeactivate)
		r.Get("/api/events", s.handleEvents)
		r.Get("/api/export/{key}", s.handleExport)
		r.Get("/theme.css", s.handleTheme)
		r.Get("/views/{key}", s.handleView)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calkit", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves s on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// pluginErrorStatus maps registry errors to HTTP status codes.
func pluginErrorStatus(err error) int {
	switch {
	case errors.Is(err, plugin.ErrUnknownPlugin):
		return http.StatusNotFound
	case errors.Is(err, plugin.ErrNotExportPlugin):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
