// Package target serves a simulated safety-management API for local runs.
// Each endpoint sleeps for a jittered latency drawn from its own band, and a
// configurable share of requests fail with 500.
package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/okian/safeload/pkg/logger"
)

// latencyBand is the [Min, Max) response delay of an endpoint.
type latencyBand struct {
	Min time.Duration
	Max time.Duration
}

// Latency bands per endpoint family.
var (
	fastBand   = latencyBand{Min: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	mediumBand = latencyBand{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond}
	slowBand   = latencyBand{Min: 150 * time.Millisecond, Max: 400 * time.Millisecond}
)

const shutdownTimeout = 5 * time.Second

// Incident is the record type the incidents endpoints serve.
type Incident struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Severity    string    `json:"severity"`
	Location    string    `json:"location,omitempty"`
	ReportedAt  time.Time `json:"reportedAt"`
}

// Server is the simulated target.
type Server struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	incidents []Incident
	nextID    int

	latencyScale float64
	errorRate    float64
	maxIncidents int
	logger       logger.Logger
}

// New creates a target seeded with a few incidents.
func New(opts ...Option) *Server {
	s := &Server{
		latencyScale: 1,
		maxIncidents: defaultMaxIncidents,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // latency jitter
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("target")
	}
	now := time.Now()
	for _, inc := range []Incident{
		{Title: "Spill near loading dock", Severity: "medium", Location: "Dock 3"},
		{Title: "Blocked fire exit", Severity: "high", Location: "Warehouse B"},
		{Title: "Missing guard rail", Severity: "low", Location: "Mezzanine"},
	} {
		s.nextID++
		inc.ID = s.nextID
		inc.ReportedAt = now
		s.incidents = append(s.incidents, inc)
	}
	return s
}

// Handler returns the routes of the simulated API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/dashboard/stats", s.simulate(mediumBand, s.dashboardStats))
	mux.HandleFunc("GET /api/notifications", s.simulate(fastBand, s.notifications))
	mux.HandleFunc("GET /api/incidents", s.simulate(mediumBand, s.listIncidents))
	mux.HandleFunc("POST /api/incidents", s.simulate(slowBand, s.createIncident))
	mux.HandleFunc("GET /api/incidents/{id}", s.simulate(fastBand, s.getIncident))
	mux.HandleFunc("GET /api/inspections", s.simulate(mediumBand, s.inspections))
	mux.HandleFunc("GET /api/inspections/templates", s.simulate(fastBand, s.inspectionTemplates))
	mux.HandleFunc("GET /api/reports/summary", s.simulate(slowBand, s.reportsSummary))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "simulated target listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("target listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("target shutdown: %w", err)
	}
	return nil
}

// simulate delays the handler by a jittered latency from band and injects
// failures at the configured error rate.
func (s *Server) simulate(band latencyBand, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delay, fail := s.draw(band)
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-r.Context().Done():
				t.Stop()
				return
			}
		}
		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "simulated failure"})
			return
		}
		next(w, r)
	}
}

func (s *Server) draw(band latencyBand) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spread := band.Max - band.Min
	delay := band.Min
	if spread > 0 {
		delay += time.Duration(s.rnd.Int63n(int64(spread)))
	}
	delay = time.Duration(float64(delay) * s.latencyScale)
	fail := s.errorRate > 0 && s.rnd.Float64() < s.errorRate
	return delay, fail
}

func (s *Server) dashboardStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	open := len(s.incidents)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"openIncidents":       open,
		"inspectionsDue":      4,
		"daysWithoutIncident": 12,
		"complianceScore":     92.5,
		"overdueActions":      1,
	})
}

func (s *Server) notifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "message": "Inspection due tomorrow", "read": false},
		{"id": 2, "message": "Incident #2 escalated", "read": true},
	})
}

func (s *Server) listIncidents(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]Incident, len(s.incidents))
	copy(out, s.incidents)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getIncident(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid incident id"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inc := range s.incidents {
		if inc.ID == id {
			writeJSON(w, http.StatusOK, inc)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "incident not found"})
}

func (s *Server) createIncident(w http.ResponseWriter, r *http.Request) {
	var in Incident
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if in.Severity == "" {
		in.Severity = "low"
	}
	s.mu.Lock()
	s.nextID++
	in.ID = s.nextID
	in.ReportedAt = time.Now()
	s.incidents = append(s.incidents, in)
	// keep the seeded incidents, drop the oldest synthetic ones
	if over := len(s.incidents) - s.maxIncidents; over > 0 && len(s.incidents) > seededIncidents {
		s.incidents = append(s.incidents[:seededIncidents], s.incidents[seededIncidents+over:]...)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) inspections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "area": "Warehouse B", "status": "scheduled"},
		{"id": 2, "area": "Dock 3", "status": "completed", "score": 88},
	})
}

func (s *Server) inspectionTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": "fire-safety", "items": 14},
		{"id": "forklift-daily", "items": 9},
	})
}

func (s *Server) reportsSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	bySeverity := map[string]int{}
	for _, inc := range s.incidents {
		bySeverity[inc.Severity]++
	}
	total := len(s.incidents)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"period":              "last_30_days",
		"incidents":           total,
		"incidentsBySeverity": bySeverity,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
