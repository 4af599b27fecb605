// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RunSync executes a run and blocks until its report is ready.
	RunSync(ctx context.Context, req model.RunRequest) (model.RunRecord, error)

	// Submit queues a run. created is false when idempotencyKey was seen before.
	Submit(ctx context.Context, req model.RunRequest, idempotencyKey string) (rec model.RunRecord, created bool, err error)

	// Read operations expose run history.
	Get(ctx context.Context, id string) (model.RunRecord, error)
	List(ctx context.Context, limit int) ([]model.RunRecord, error)

	Scenarios() []model.Scenario

	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	loadTestsHandler *LoadTestsHandler
	scenariosHandler *ScenariosHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := &options{
		defaultListLimit: defaultListLimit,
		maxListLimit:     defaultMaxListLimit,
		maxBodyBytes:     defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		loadTestsHandler: NewLoadTestsHandler(deps, o),
		scenariosHandler: NewScenariosHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scenarios", MetricsMiddleware(s.scenariosHandler.HandleList, "scenarios"))
	mux.HandleFunc("/loadtests", MetricsMiddleware(s.loadTestsHandler.HandleCollection, "loadtests"))
	mux.HandleFunc("/loadtests/async", MetricsMiddleware(s.loadTestsHandler.HandleSubmit, "loadtests_async"))
	mux.HandleFunc("/loadtests/", MetricsMiddleware(s.loadTestsHandler.HandleGet, "loadtest"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	noteErrorCode(w, code)
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeKindError picks the status from err's kind.
func writeKindError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}
