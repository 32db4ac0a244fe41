// Package api exposes the progress ledger over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/studyhall/progress-ledger/internal/ledger"
	"github.com/studyhall/progress-ledger/internal/roster"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server holds the HTTP handler dependencies.
type Server struct {
	ledger    *ledger.Ledger
	directory roster.Directory
	feed      ledger.FeedSource
	checks    map[string]HealthChecker
	validate  *validator.Validate
}

// Config holds dependencies for the HTTP server.
type Config struct {
	Ledger    *ledger.Ledger
	Directory roster.Directory
	Feed      ledger.FeedSource // nil disables the live feed endpoint
	Checks    map[string]HealthChecker
}

// New creates the HTTP server surface.
func New(cfg Config) *Server {
	return &Server{
		ledger:    cfg.Ledger,
		directory: cfg.Directory,
		feed:      cfg.Feed,
		checks:    cfg.Checks,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Mux creates the HTTP router.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("POST /v1/quiz-results", s.handleSubmitQuizResult)
	mux.HandleFunc("GET /v1/students/{id}/progress", s.handleListProgress)
	mux.HandleFunc("GET /v1/students/{id}/progress/{subject}", s.handleGetProgress)
	mux.HandleFunc("GET /v1/students/{id}/achievements", s.handleListAchievements)
	mux.HandleFunc("GET /v1/teachers/{id}/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /v1/teachers/{id}/analytics/export", s.handleAnalyticsExport)
	mux.HandleFunc("GET /v1/teachers/{id}/feed", s.handleAchievementFeed)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for name, check := range s.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_ready", name+" unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
