// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	runqueue "github.com/okian/safeload/internal/adapters/mq/queue"
	workerpool "github.com/okian/safeload/internal/adapters/mq/worker"
	"github.com/okian/safeload/internal/adapters/repository"
	"github.com/okian/safeload/internal/domain/dedupe"
	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/domain/report"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/internal/loadtest"
	"github.com/okian/safeload/pkg/logger"
	"github.com/okian/safeload/pkg/metrics"
)

// Default service configuration.
const (
	defaultWorkerCount   = 2
	defaultQueueSize     = 16
	defaultDedupeSize    = 1024
	defaultTargetURL     = "http://localhost:8080"
	stoppedRunMessage    = "service stopped before the run could execute"
	cancelledRunMessage  = "run cancelled before reaching its end time"
	poolShutdownDeadline = 30 * time.Second
)

// liveRun is a run that has not reached a terminal state yet.
type liveRun struct {
	record model.RunRecord
	run    *loadtest.Run
}

// Service runs load tests synchronously or through the worker pool and keeps
// their history.
type Service struct {
	mu sync.RWMutex

	engine  *loadtest.Engine
	catalog *scenario.Catalog
	store   repository.Store
	deduper dedupe.Deduper
	queue   runqueue.Queue
	pool    *workerpool.Pool

	defaultTarget string
	workerCount   int
	queueSize     int
	dedupeSize    int

	live map[string]*liveRun

	// syncRuns counts RunSync calls in flight; Stop waits for them
	// before closing the store.
	syncRuns sync.WaitGroup

	started   bool
	runCtx    context.Context
	runCancel context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Unset dependencies get defaults: the built-in
// catalog, an in-memory store and an engine with default limits.
func New(opts ...Option) *Service {
	s := &Service{
		defaultTarget: defaultTargetURL,
		workerCount:   defaultWorkerCount,
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		live:          make(map[string]*liveRun),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.engine == nil {
		s.engine = loadtest.New()
	}
	if s.catalog == nil {
		s.catalog = scenario.Default()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start launches the worker pool. Queued runs outlive ctx; they and any
// synchronous runs in flight are cancelled by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.runCtx, s.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = runqueue.NewInMemoryQueue(runqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.ExecutorFunc(s.execute))
	s.pool.Start(s.runCtx)

	s.started = true
	s.logger.Info(ctx, "load test service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("scenarios", s.catalog.Len()),
	)
	return nil
}

// Stop cancels in-flight runs, waits for the workers and for synchronous
// runs to record their results, then closes the store. Runs still waiting in
// the queue are recorded as failed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, cancel := s.pool, s.runCancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping load test service...")

	cancel()
	shutdownCtx, done := context.WithTimeout(ctx, poolShutdownDeadline)
	defer done()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if !waitGroup(shutdownCtx, &s.syncRuns) {
		s.logger.Warn(ctx, "synchronous runs still in flight at shutdown")
	}

	s.mu.Lock()
	var orphaned []model.RunRecord
	for id, lr := range s.live {
		if lr.record.Status == model.RunStatusQueued {
			orphaned = append(orphaned, lr.record)
			delete(s.live, id)
		}
	}
	s.mu.Unlock()

	for _, rec := range orphaned {
		now := time.Now()
		rec.Status = model.RunStatusFailed
		rec.Error = stoppedRunMessage
		rec.CompletedAt = &now
		s.persist(ctx, rec)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing history store failed", logger.Error(err))
	}
	s.logger.Info(ctx, "load test service stopped")
}

// Validate checks a request against the engine limits and the catalog.
func (s *Service) Validate(req model.RunRequest) error {
	return s.engine.Validate(req.RunConfig(s.defaultTarget), s.catalog)
}

// RunSync executes a run in the caller's goroutine and returns the finished
// record. Besides ErrNotStarted only configuration errors are returned;
// cancelling ctx or stopping the service ends the run early and the partial
// report is still recorded and returned.
func (s *Service) RunSync(ctx context.Context, req model.RunRequest) (model.RunRecord, error) {
	runCtx, release, err := s.trackSync(ctx)
	if err != nil {
		return model.RunRecord{}, err
	}
	defer release()

	if err := s.Validate(req); err != nil {
		metrics.RecordRunRejected()
		return model.RunRecord{}, err
	}
	rec := s.newRecord(req, model.RunStatusRunning)
	return s.runRecord(runCtx, rec)
}

// trackSync registers a synchronous run with Stop. The returned context ends
// with ctx or when the service stops; release must be called once the run
// has been persisted.
func (s *Service) trackSync(ctx context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	s.syncRuns.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.runCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
		s.syncRuns.Done()
	}, nil
}

// waitGroup waits for wg until ctx ends. It reports whether wg finished.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Submit validates req and queues it for a worker. When idempotencyKey was
// already used, the run created by the first submission is returned with
// created=false.
func (s *Service) Submit(ctx context.Context, req model.RunRequest, idempotencyKey string) (rec model.RunRecord, created bool, err error) {
	s.mu.RLock()
	started, q, d := s.started, s.queue, s.deduper
	s.mu.RUnlock()
	if !started {
		return model.RunRecord{}, false, ErrNotStarted
	}
	if err := s.Validate(req); err != nil {
		metrics.RecordRunRejected()
		return model.RunRecord{}, false, err
	}

	rec = s.newRecord(req, model.RunStatusQueued)
	s.mu.Lock()
	s.live[rec.ID] = &liveRun{record: rec}
	s.mu.Unlock()

	if idempotencyKey != "" {
		if existing, seen := d.Claim(ctx, idempotencyKey, rec.ID); seen {
			s.mu.Lock()
			delete(s.live, rec.ID)
			s.mu.Unlock()
			s.logger.Debug(ctx, "duplicate submission", logger.String("runID", existing))
			prev, err := s.Get(ctx, existing)
			return prev, false, err
		}
	}

	job := model.RunJob{RunID: rec.ID, Request: req, EnqueuedAt: rec.CreatedAt}
	if err := q.Enqueue(ctx, job); err != nil {
		s.mu.Lock()
		delete(s.live, rec.ID)
		s.mu.Unlock()
		if idempotencyKey != "" {
			d.Release(ctx, idempotencyKey)
		}
		metrics.RecordRunRejected()
		if errors.Is(err, runqueue.ErrFull) {
			return model.RunRecord{}, false, fmt.Errorf("%w: %d runs waiting", ErrBackpressure, q.Cap())
		}
		return model.RunRecord{}, false, fmt.Errorf("enqueue run: %w", err)
	}

	s.logger.Info(ctx, "run queued", logger.String("runID", rec.ID))
	return rec, true, nil
}

// execute is the worker pool entry point for a queued run.
func (s *Service) execute(ctx context.Context, job model.RunJob) error {
	s.mu.RLock()
	lr, ok := s.live[job.RunID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, job.RunID)
	}
	rec := lr.record
	rec.Status = model.RunStatusRunning
	_, err := s.runRecord(ctx, rec)
	return err
}

// runRecord drives rec from running to a terminal state.
func (s *Service) runRecord(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	started := time.Now()
	rec.Status = model.RunStatusRunning
	rec.StartedAt = &started

	run, err := s.engine.Start(ctx, rec.Request.RunConfig(s.defaultTarget), s.catalog)
	if err != nil {
		s.mu.Lock()
		delete(s.live, rec.ID)
		s.mu.Unlock()
		rec.Status = model.RunStatusFailed
		rec.Error = err.Error()
		rec.CompletedAt = &started
		s.persist(ctx, rec)
		return rec, err
	}

	s.mu.Lock()
	s.live[rec.ID] = &liveRun{record: rec, run: run}
	s.mu.Unlock()
	metrics.RecordRunStarted()
	s.logger.Info(ctx, "run started",
		logger.String("runID", rec.ID),
		logger.Int("users", rec.Request.ConcurrentUsers),
		logger.Int("durationSec", rec.Request.TestDuration),
	)

	res := run.Wait()
	rep := report.Aggregate(res.Outcomes, res.StartedAt, res.FinishedAt)
	finished := time.Now()
	rec.Report = &rep
	rec.CompletedAt = &finished
	rec.Status = model.RunStatusCompleted
	if ctx.Err() != nil {
		rec.Status = model.RunStatusFailed
		rec.Error = cancelledRunMessage
	}

	s.persist(context.WithoutCancel(ctx), rec)
	s.mu.Lock()
	delete(s.live, rec.ID)
	s.mu.Unlock()

	metrics.RecordRunFinished(string(rec.Status), res.Elapsed())
	s.logger.Info(ctx, "run completed",
		logger.String("runID", rec.ID),
		logger.String("status", string(rec.Status)),
		logger.Int("requests", rep.TotalRequests),
		logger.Int("failed", rep.FailedRequests),
		logger.Float64("rps", rep.RequestsPerSecond),
	)
	return rec, nil
}

func (s *Service) newRecord(req model.RunRequest, status model.RunStatus) model.RunRecord {
	if req.TargetURL == "" {
		req.TargetURL = s.defaultTarget
	}
	return model.RunRecord{
		ID:        uuid.NewString(),
		Status:    status,
		Request:   req,
		CreatedAt: time.Now(),
	}
}

func (s *Service) persist(ctx context.Context, rec model.RunRecord) {
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error(ctx, "saving run failed", logger.String("runID", rec.ID), logger.Error(err))
	}
}

// Get returns a run by ID. Running runs carry a live progress snapshot.
func (s *Service) Get(ctx context.Context, id string) (model.RunRecord, error) {
	s.mu.RLock()
	lr, ok := s.live[id]
	var rec model.RunRecord
	if ok {
		rec = snapshotOf(lr)
	}
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns up to limit runs, newest first, including unfinished ones.
func (s *Service) List(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	s.mu.RLock()
	recs := make([]model.RunRecord, 0, len(s.live)+limit)
	seen := make(map[string]struct{}, len(s.live))
	for id, lr := range s.live {
		recs = append(recs, snapshotOf(lr))
		seen[id] = struct{}{}
	}
	s.mu.RUnlock()

	history, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	// a run is briefly both live and stored while it is being persisted
	for _, rec := range history {
		if _, dup := seen[rec.ID]; !dup {
			recs = append(recs, rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func snapshotOf(lr *liveRun) model.RunRecord {
	rec := lr.record
	if lr.run != nil {
		p := lr.run.Progress().Snapshot()
		rec.Progress = &p
	}
	return rec
}

// Scenarios returns the active catalog.
func (s *Service) Scenarios() []model.Scenario {
	return s.catalog.Scenarios()
}

// Limits returns the bounds runs are validated against.
func (s *Service) Limits() loadtest.Limits {
	return s.engine.Limits()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	running, queued := 0, 0
	for _, lr := range s.live {
		if lr.record.Status == model.RunStatusQueued {
			queued++
		} else {
			running++
		}
	}
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"scenarios":    s.catalog.Len(),
		"runsRunning":  running,
		"runsQueued":   queued,
		"historyCount": s.store.Count(ctx),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["runsProcessed"] = s.pool.Processed()
		stats["idempotencyKeys"] = s.deduper.Size()
	}
	return stats
}
