// Package loadtest runs weighted synthetic traffic from concurrent virtual
// users against a target and collects one outcome per request.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/pkg/logger"
)

// Engine coordinates runs. One Engine may execute several runs concurrently;
// each run owns its own sink and progress tracker.
type Engine struct {
	client         Doer
	limits         Limits
	requestTimeout time.Duration
	thinkMin       time.Duration
	thinkMax       time.Duration
	seed           int64
	logger         logger.Logger
}

// New creates an Engine with default limits, timeouts and think-time.
func New(opts ...Option) *Engine {
	e := &Engine{
		client:         NewHTTPClient(),
		limits:         DefaultLimits(),
		requestTimeout: DefaultRequestTimeout,
		thinkMin:       DefaultThinkTimeMin,
		thinkMax:       DefaultThinkTimeMax,
		logger:         logger.Get().Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the bounds the engine validates against.
func (e *Engine) Limits() Limits { return e.limits }

// Validate checks cfg and catalog without starting anything.
func (e *Engine) Validate(cfg model.RunConfig, catalog *scenario.Catalog) error {
	if catalog == nil || catalog.Len() == 0 {
		return fmt.Errorf("%w: catalog is empty", scenario.ErrInvalidCatalog)
	}
	return e.limits.Validate(cfg)
}

// Result is the raw output of a run.
type Result struct {
	Outcomes   []model.RequestOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the measured wall-clock span of the run.
func (r Result) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run is a run in flight.
type Run struct {
	cfg      model.RunConfig
	progress *Progress
	sink     *MemorySink
	started  time.Time
	done     chan struct{}
	result   Result
}

// Config returns the configuration the run was started with.
func (r *Run) Config() model.RunConfig { return r.cfg }

// StartedAt returns the run start time.
func (r *Run) StartedAt() time.Time { return r.started }

// Progress returns the live tracker of the run.
func (r *Run) Progress() *Progress { return r.progress }

// Done is closed once every virtual user has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run has finished and returns its outcomes.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Run validates cfg and catalog, executes the run and blocks until all
// virtual users have finished. Configuration errors are the only errors
// returned; request failures are part of the outcomes.
func (e *Engine) Run(ctx context.Context, cfg model.RunConfig, catalog *scenario.Catalog) (Result, error) {
	run, err := e.Start(ctx, cfg, catalog)
	if err != nil {
		return Result{}, err
	}
	return run.Wait(), nil
}

// Start validates cfg and catalog and launches the virtual users in the
// background. Cancelling ctx ends the run early.
func (e *Engine) Start(ctx context.Context, cfg model.RunConfig, catalog *scenario.Catalog) (*Run, error) {
	if err := e.Validate(cfg, catalog); err != nil {
		e.logger.Warn(ctx, "run rejected", logger.Error(err))
		return nil, err
	}

	selector := scenario.NewSelector(catalog)
	offsets := StartOffsets(cfg.ConcurrentUsers, cfg.RampUp)
	baseURL := strings.TrimRight(cfg.TargetBaseURL, "/")
	seed := e.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	run := &Run{
		cfg:      cfg,
		progress: NewProgress(),
		sink:     NewMemorySink(),
		started:  time.Now(),
		done:     make(chan struct{}),
	}
	run.progress.start(run.started)
	endAt := run.started.Add(cfg.TestDuration)
	sink := multiSink{run.sink, run.progress}

	e.logger.Info(ctx, "run started",
		logger.Int("users", cfg.ConcurrentUsers),
		logger.Duration("duration", cfg.TestDuration),
		logger.Duration("rampUp", cfg.RampUp),
		logger.String("target", baseURL),
	)

	var wg sync.WaitGroup
	for i, offset := range offsets {
		vu := &virtualUser{
			id:             i,
			startAt:        run.started.Add(offset),
			endAt:          endAt,
			baseURL:        baseURL,
			selector:       selector,
			rng:            rand.New(rand.NewSource(seed + int64(i))), //nolint:gosec // load shaping, not security
			sink:           sink,
			progress:       run.progress,
			client:         e.client,
			requestTimeout: e.requestTimeout,
			thinkMin:       e.thinkMin,
			thinkMax:       e.thinkMax,
			logger:         e.logger,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			vu.run(ctx)
		}()
	}

	go func() {
		wg.Wait()
		run.result = Result{
			Outcomes:   run.sink.Outcomes(),
			StartedAt:  run.started,
			FinishedAt: time.Now(),
		}
		e.logger.Info(context.Background(), "run finished",
			logger.Int("requests", len(run.result.Outcomes)),
			logger.Duration("elapsed", run.result.Elapsed()),
			logger.Bool("cancelled", ctx.Err() != nil),
		)
		close(run.done)
	}()

	return run, nil
}
