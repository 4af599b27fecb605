package loadtest

import (
	"sync"

	"github.com/okian/safeload/internal/domain/model"
)

// Sink receives outcomes from concurrently running virtual users.
type Sink interface {
	Record(o model.RequestOutcome)
}

// MemorySink is a mutex-guarded append-only list owned by a single run.
type MemorySink struct {
	mu       sync.Mutex
	outcomes []model.RequestOutcome
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends an outcome.
func (s *MemorySink) Record(o model.RequestOutcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

// Len returns the number of recorded outcomes.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

// Outcomes returns a copy of everything recorded so far.
func (s *MemorySink) Outcomes() []model.RequestOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RequestOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// multiSink fans an outcome out to several sinks.
type multiSink []Sink

func (m multiSink) Record(o model.RequestOutcome) {
	for _, s := range m {
		s.Record(o)
	}
}
