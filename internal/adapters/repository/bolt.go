package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/okian/safeload/internal/domain/model"
)

const (
	bucketRuns      = "runs"
	boltOpenTimeout = time.Second
	boltFileMode    = 0o600
	boltDirMode     = 0o755
)

// BoltStore persists records as JSON in a bbolt file, one key per run ID.
type BoltStore struct {
	db   *bbolt.DB
	opts storeOptions
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, opts ...Option) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, boltDirMode); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, boltFileMode, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history bucket: %w", err)
	}

	return &BoltStore{db: db, opts: applyOptions(opts)}, nil
}

func (s *BoltStore) Save(_ context.Context, rec model.RunRecord) error {
	if rec.ID == "" {
		return ErrInvalidID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", rec.ID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if err := b.Put([]byte(rec.ID), data); err != nil {
			return err
		}
		return s.evict(b)
	})
}

func (s *BoltStore) evict(b *bbolt.Bucket) error {
	excess := countKeys(b) - s.opts.maxRecords
	if excess <= 0 {
		return nil
	}
	all, err := decodeAll(b)
	if err != nil {
		return err
	}
	for _, rec := range all[len(all)-excess:] {
		if err := b.Delete([]byte(rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) Get(_ context.Context, id string) (model.RunRecord, error) {
	var rec model.RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketRuns)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return model.RunRecord{}, err
	}
	return rec, nil
}

func (s *BoltStore) List(_ context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	var all []model.RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		all, err = decodeAll(tx.Bucket([]byte(bucketRuns)))
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *BoltStore) Count(_ context.Context) int {
	n := 0
	_ = s.db.View(func(tx *bbolt.Tx) error {
		n = countKeys(tx.Bucket([]byte(bucketRuns)))
		return nil
	})
	return n
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// countKeys walks the cursor so uncommitted writes in the same tx are seen.
func countKeys(b *bbolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

// decodeAll reads every record in b, newest first.
func decodeAll(b *bbolt.Bucket) ([]model.RunRecord, error) {
	var all []model.RunRecord
	err := b.ForEach(func(k, v []byte) error {
		var rec model.RunRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode run %s: %w", k, err)
		}
		all = append(all, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(all)
	return all, nil
}
