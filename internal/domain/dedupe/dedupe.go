// Package dedupe tracks idempotency keys of asynchronous run submissions so a
// retried request maps to the run it already created.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 1024

// Deduper maps idempotency keys to run IDs.
type Deduper interface {
	// Claim records key -> runID unless key is already known. It returns the
	// run ID stored for key and whether key had been claimed before.
	Claim(ctx context.Context, key, runID string) (string, bool)

	// Release forgets key so it can be claimed again. Used when the
	// submission that claimed it was rejected (e.g. queue backpressure).
	Release(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key   string
	runID string
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is the most recently claimed key
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, runID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*entry).runID, true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(&entry{key: key, runID: runID})
	d.size.Add(1)
	return runID, false
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	back := d.order.Back()
	if back == nil {
		return
	}
	d.order.Remove(back)
	delete(d.seen, back.Value.(*entry).key)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
