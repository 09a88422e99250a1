// Package postgres stores history in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// Store implements history.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing pool. Call EnsureSchema before using it.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool), nil
}

// EnsureSchema creates the history table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
CREATE TABLE IF NOT EXISTS history (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL,
  kind TEXT NOT NULL,
  ts TIMESTAMPTZ NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_kind_ts ON history (kind, ts DESC);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

// Append inserts rec.
func (s *Store) Append(ctx context.Context, rec history.Record) error {
	const query = `INSERT INTO history (id, kind, ts, payload) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, rec.ID, string(rec.Kind), rec.Timestamp.UTC(), string(rec.Payload)); err != nil {
		return fmt.Errorf("%w: insert history: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return nil
}

// Recent returns up to limit records of kind, newest first.
func (s *Store) Recent(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	const query = `
SELECT id, kind, ts, payload::text FROM history
WHERE kind = $1
ORDER BY ts DESC, seq DESC
LIMIT $2`
	rows, err := s.pool.Query(ctx, query, string(kind), history.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	defer rows.Close()

	out := []history.Record{}
	for rows.Next() {
		var (
			rec     history.Record
			k       string
			payload string
		)
		if err := rows.Scan(&rec.ID, &k, &rec.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan history: %v", sharedErrors.ErrRepositoryOperation, err)
		}
		rec.Kind = history.Kind(k)
		rec.Timestamp = rec.Timestamp.UTC()
		rec.Payload = []byte(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return out, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// NewDB opens a pgx pool with tuned defaults.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}
