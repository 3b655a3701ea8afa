package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"schoolplanner/internal/config"
	"schoolplanner/internal/log"
	"schoolplanner/internal/metrics"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/service"
	"schoolplanner/internal/transfer"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Server serves the planner UI, its JSON API, the iCalendar feed and
// Prometheus metrics.
type Server struct {
	cfg     *config.Config
	planner *service.Planner
	metrics *metrics.Metrics
	mux     *http.ServeMux
	tmpl    *template.Template

	// Location places timed activities in the iCalendar feed.
	Location *time.Location
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func NewServer(cfg *config.Config, p *service.Planner, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		planner:  p,
		metrics:  m,
		mux:      http.NewServeMux(),
		tmpl:     template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")),
		Location: time.Local,
		Now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, with Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		log.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="SchoolPlanner", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /print", s.handlePrint)
	s.mux.Handle("GET /static/", s.staticFileServer())

	s.mux.HandleFunc("GET /api/days", s.handleListDays)
	s.mux.HandleFunc("GET /api/days/{date}", s.handleGetDay)
	s.mux.HandleFunc("POST /api/days/{date}/activities", s.handleAdd)
	s.mux.HandleFunc("POST /api/days/{date}/activities/{id}/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /api/days/{date}/activities/{id}/clone", s.handleClone)
	s.mux.HandleFunc("DELETE /api/days/{date}/activities/{id}", s.handleRemove)
	s.mux.HandleFunc("PUT /api/days/{date}/mood", s.handleMood)
	s.mux.HandleFunc("POST /api/relocate", s.handleRelocate)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
	s.mux.HandleFunc("GET /api/print-pages", s.handlePrintPages)
	s.mux.HandleFunc("GET /api/palette", s.handlePalette)

	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static files not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (s *Server) pageSize() int {
	if s.cfg != nil && s.cfg.Print.PageSize > 0 {
		return s.cfg.Print.PageSize
	}
	return planner.DefaultPageSize
}

func (s *Server) today() time.Time {
	return planner.DateOf(s.Now())
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, planner.ErrInvalidDateKey),
		errors.Is(err, planner.ErrEmptyTitle),
		errors.Is(err, planner.ErrInvalidTime),
		errors.Is(err, planner.ErrInvalidMood),
		errors.Is(err, planner.ErrInvalidRepeat),
		errors.Is(err, transfer.ErrMalformed),
		errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
