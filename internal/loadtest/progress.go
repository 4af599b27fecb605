package loadtest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/okian/safeload/internal/domain/model"
)

// Histogram range in microseconds: 1us to 10min, 3 significant figures.
const (
	histMinUs   = 1
	histMaxUs   = int64(10 * time.Minute / time.Microsecond)
	histSigFigs = 3
)

// Progress tracks a run while it executes. All methods are safe for
// concurrent use. It also acts as a Sink.
type Progress struct {
	requests  atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
	active    atomic.Int64
	startedAt atomic.Int64 // unix nanos, 0 until the run starts

	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewProgress creates an empty tracker.
func NewProgress() *Progress {
	return &Progress{hist: hdrhistogram.New(histMinUs, histMaxUs, histSigFigs)}
}

func (p *Progress) start(t time.Time) {
	p.startedAt.Store(t.UnixNano())
}

func (p *Progress) userStarted()  { p.active.Add(1) }
func (p *Progress) userFinished() { p.active.Add(-1) }

// Record counts an outcome and, when successful, its latency.
func (p *Progress) Record(o model.RequestOutcome) {
	p.requests.Add(1)
	if !o.Success {
		p.failures.Add(1)
		return
	}
	p.successes.Add(1)

	us := o.ResponseTime.Microseconds()
	if us < histMinUs {
		us = histMinUs
	}
	p.mu.Lock()
	// values above the range are dropped by the histogram
	_ = p.hist.RecordValue(us)
	p.mu.Unlock()
}

// Snapshot returns the current counters and latency percentiles.
func (p *Progress) Snapshot() model.ProgressSnapshot {
	s := model.ProgressSnapshot{
		Requests:    p.requests.Load(),
		Successes:   p.successes.Load(),
		Failures:    p.failures.Load(),
		ActiveUsers: p.active.Load(),
	}
	if started := p.startedAt.Load(); started != 0 {
		s.ElapsedSec = time.Since(time.Unix(0, started)).Seconds()
	}

	p.mu.Lock()
	if p.hist.TotalCount() > 0 {
		s.P50Ms = float64(p.hist.ValueAtQuantile(50)) / 1000.0
		s.P99Ms = float64(p.hist.ValueAtQuantile(99)) / 1000.0
		s.MaxMs = float64(p.hist.Max()) / 1000.0
	}
	p.mu.Unlock()
	return s
}
