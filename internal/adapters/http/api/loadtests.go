package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/pkg/logger"
)

// IdempotencyKeyHeader dedupes asynchronous submissions.
const IdempotencyKeyHeader = "Idempotency-Key"

const loadTestsPrefix = "/loadtests/"

// LoadTestsHandler serves run submission and history.
type LoadTestsHandler struct {
	deps   Dependencies
	opts   *options
	logger logger.Logger
}

// NewLoadTestsHandler creates a new load tests handler.
func NewLoadTestsHandler(deps Dependencies, opts *options) *LoadTestsHandler {
	return &LoadTestsHandler{deps: deps, opts: opts, logger: opts.logger}
}

// HandleCollection dispatches POST /loadtests (synchronous run) and
// GET /loadtests?limit=N.
func (h *LoadTestsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleRunSync(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		allowMethods(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *LoadTestsHandler) handleRunSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.run_sync"
	req, err := h.decode(w, r)
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.RunSync(r.Context(), req)
	if err != nil {
		h.logger.Warn(r.Context(), "load test rejected", logger.Error(err))
		writeKindError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleSubmit handles POST /loadtests/async.
func (h *LoadTestsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	rec, created, err := h.deps.Submit(r.Context(), req, key)
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", loadTestsPrefix+rec.ID)
	if !created {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// HandleGet handles GET /loadtests/{id}.
func (h *LoadTestsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, loadTestsPrefix)
	if id == "" || strings.Contains(id, "/") {
		writeKindError(w, NewKind(op, ErrNotFound))
		return
	}
	rec, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *LoadTestsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"
	n := h.opts.defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeKindError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", raw)))
			return
		}
		if v > h.opts.maxListLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded",
				WrapKind(op, ErrBadRequest, fmt.Errorf("limit must not exceed %d", h.opts.maxListLimit)))
			return
		}
		n = v
	}
	recs, err := h.deps.List(r.Context(), n)
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *LoadTestsHandler) decode(w http.ResponseWriter, r *http.Request) (model.RunRequest, error) {
	var req model.RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request body is empty")
		}
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// ScenariosHandler exposes the active catalog.
type ScenariosHandler struct {
	deps Dependencies
}

// NewScenariosHandler creates a new scenarios handler.
func NewScenariosHandler(deps Dependencies) *ScenariosHandler {
	return &ScenariosHandler{deps: deps}
}

// HandleList handles GET /scenarios.
func (h *ScenariosHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Scenarios())
}
