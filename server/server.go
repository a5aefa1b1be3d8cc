// Package server exposes the radar over HTTP: the cron trigger, stored
// listings, run history, health and Prometheus metrics.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"boat_radar/config"
	"boat_radar/metrics"
	"boat_radar/models"
	"boat_radar/scheduler"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// Runner triggers a pipeline pass, refusing with scheduler.ErrRunInProgress
// while one is in flight.
type Runner interface {
	RunNow(ctx context.Context) (*models.RunSummary, error)
}

type ListingReader interface {
	Ping(ctx context.Context) error
	ListListings(ctx context.Context) ([]models.StoredListing, error)
	ListingsByPriceRange(ctx context.Context, min, max int) ([]models.StoredListing, error)
}

type RunHistory interface {
	RecentRuns(limit int) ([]models.ScrapeRun, error)
	LogsForRun(runID int64) ([]models.ScrapeLog, error)
}

type Server struct {
	cfg      config.ServerConfig
	runner   Runner
	listings ListingReader
	runs     RunHistory
	metrics  *metrics.Metrics
	http     *http.Server
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the server. runs and m may be nil.
func New(cfg config.ServerConfig, runner Runner, listings ListingReader, runs RunHistory, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		listings: listings,
		runs:     runs,
		metrics:  m,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A triggered run can take minutes.
		WriteTimeout: 15 * time.Minute,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.requireCronSecret).Get("/cron/search-boats", s.handleSearchBoats)
		r.With(s.requireCronSecret).Post("/cron/search-boats", s.handleSearchBoats)
		r.Get("/listings", s.handleListings)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}/logs", s.handleRunLogs)
	})
	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r.Header.Get("Authorization")) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized never accepts requests when no secret is configured.
func (s *Server) authorized(header string) bool {
	if s.cfg.CronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.CronSecret)) == 1
}

func (s *Server) handleSearchBoats(w http.ResponseWriter, r *http.Request) {
	// The run finishes and notifies even if the caller hangs up.
	summary, err := s.runner.RunNow(context.WithoutCancel(r.Context()))
	if errors.Is(err, scheduler.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		log.Printf("[error] Triggered run failed: %v", err)
		if summary != nil {
			writeJSON(w, http.StatusInternalServerError, summary)
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	minRaw := strings.TrimSpace(r.URL.Query().Get("min"))
	maxRaw := strings.TrimSpace(r.URL.Query().Get("max"))

	var (
		listings []models.StoredListing
		err      error
	)
	if minRaw != "" && maxRaw != "" {
		lo, errMin := strconv.Atoi(minRaw)
		hi, errMax := strconv.Atoi(maxRaw)
		if errMin != nil || errMax != nil || lo > hi {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "min and max must be integers with min <= max"})
			return
		}
		listings, err = s.listings.ListingsByPriceRange(ctx, lo, hi)
	} else {
		listings, err = s.listings.ListListings(ctx)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if listings == nil {
		listings = []models.StoredListing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history not available"})
		return
	}
	limit := clampInt(r.URL.Query().Get("limit"), defaultRunsLimit, maxRunsLimit)
	runs, err := s.runs.RecentRuns(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if runs == nil {
		runs = []models.ScrapeRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history not available"})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "run id must be a positive integer"})
		return
	}
	logs, err := s.runs.LogsForRun(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if logs == nil {
		logs = []models.ScrapeLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.listings.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func clampInt(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[warn] encode response: %v", err)
	}
}
