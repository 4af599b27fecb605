// Command server exposes the load test engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/safeload/internal/adapters/http/api"
	"github.com/okian/safeload/internal/adapters/http/swagger"
	service "github.com/okian/safeload/internal/app"
	"github.com/okian/safeload/internal/config"
	"github.com/okian/safeload/internal/loadtest"
	"github.com/okian/safeload/pkg/logger"
	"github.com/okian/safeload/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeoutMargin        = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Error(ctx, "failed to listen", logger.String("addr", cfg.Addr), logger.Error(err))
		os.Exit(1)
	}
	if err := serve(ctx, cfg, ln); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// newService wires the engine, catalog and history store described by cfg.
func newService(cfg *config.Config) (*service.Service, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("scenario catalog: %w", err)
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return nil, err
	}
	return service.New(
		service.WithEngine(loadtest.New(cfg.EngineOptions()...)),
		service.WithCatalog(catalog),
		service.WithStore(store),
		service.WithDefaultTarget(cfg.TargetURL),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	), nil
}

// newHandler registers the docs and business routes.
func newHandler(svc *service.Service, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, api.WithListLimits(0, cfg.HistoryLimit)).Register(mux)
	return mux
}

// serve runs the HTTP server on ln with the background metric updaters until
// ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	log := logger.Get().Named("server")

	svc, err := newService(cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	if err := svc.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	// Synchronous runs hold the response open for the whole test.
	srv := &http.Server{
		Handler:           newHandler(svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      time.Duration(cfg.MaxDurationSec)*time.Second + writeTimeoutMargin,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		every(gctx, systemMetricsInterval, updateSystemMetrics)
		return nil
	})
	g.Go(func() error {
		every(gctx, serviceMetricsInterval, func() { updateServiceMetrics(svc) })
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
