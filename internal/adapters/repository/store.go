// Package repository persists run records so finished runs can be listed and
// fetched after the fact.
package repository

import (
	"context"
	"sort"

	"github.com/okian/safeload/internal/domain/model"
)

// Store keeps run records keyed by run ID.
type Store interface {
	// Save inserts or replaces the record with the same ID.
	Save(ctx context.Context, rec model.RunRecord) error

	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (model.RunRecord, error)

	// List returns up to limit records, most recently created first.
	List(ctx context.Context, limit int) ([]model.RunRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	Close() error
}

// sortNewestFirst orders by CreatedAt desc, then ID asc for determinism.
func sortNewestFirst(recs []model.RunRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

func validateLimit(limit int) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
