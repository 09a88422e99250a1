// Package memory keeps history in per-kind rings. Contents are lost on exit.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

// Store is a capped, in-process history.Store.
type Store struct {
	mu       sync.RWMutex
	capacity int
	records  map[history.Kind][]history.Record
}

// New returns a store keeping at most capacity records per kind.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = consts.DefaultMemoryCapacity
	}
	return &Store{
		capacity: capacity,
		records:  make(map[history.Kind][]history.Record),
	}
}

// Append stores rec, evicting the earliest appended record of its kind when full.
func (s *Store) Append(ctx context.Context, rec history.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := append(s.records[rec.Kind], rec)
	if len(recs) > s.capacity {
		recs = append([]history.Record(nil), recs[len(recs)-s.capacity:]...)
	}
	s.records[rec.Kind] = recs
	return nil
}

// Recent returns up to limit records of kind, newest first.
func (s *Store) Recent(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = history.NormalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := history.NewestFirst(slices.Clone(s.records[kind]))
	if out == nil {
		return []history.Record{}, nil
	}
	return out[:min(limit, len(out))], nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
