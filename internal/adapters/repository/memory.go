package repository

import (
	"context"
	"sync"

	"github.com/okian/safeload/internal/domain/model"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.RunRecord
	opts    storeOptions
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.RunRecord),
		opts:    applyOptions(opts),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec model.RunRecord) error {
	if rec.ID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	s.evictLocked()
	return nil
}

func (s *MemoryStore) evictLocked() {
	excess := len(s.records) - s.opts.maxRecords
	if excess <= 0 {
		return
	}
	all := s.snapshotLocked()
	for _, rec := range all[len(all)-excess:] {
		delete(s.records, rec.ID)
	}
}

func (s *MemoryStore) snapshotLocked() []model.RunRecord {
	all := make([]model.RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec)
	}
	sortNewestFirst(all)
	return all
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return model.RunRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := s.snapshotLocked()
	s.mu.RUnlock()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
