// Package sqlite stores history in a single SQLite database file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khanhnv2901/secakit/internal/domain/history"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
	"github.com/khanhnv2901/secakit/internal/shared/security"
)

// FileName is the database file created under the data directory.
const FileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	kind TEXT NOT NULL,
	ts INTEGER NOT NULL,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_kind_ts ON history(kind, ts);`

// Store implements history.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database in dir with WAL journaling.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	path, err := security.ResolveWithin(dir, FileName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts rec.
func (s *Store) Append(ctx context.Context, rec history.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, kind, ts, payload) VALUES (?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.Timestamp.UTC().UnixNano(), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("%w: insert history: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return nil
}

// Recent returns up to limit records of kind, newest first.
func (s *Store) Recent(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, ts, payload FROM history WHERE kind = ? ORDER BY ts DESC, seq DESC LIMIT ?`,
		string(kind), history.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	defer rows.Close()

	out := []history.Record{}
	for rows.Next() {
		var (
			rec     history.Record
			k       string
			ts      int64
			payload string
		)
		if err := rows.Scan(&rec.ID, &k, &ts, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan history: %v", sharedErrors.ErrRepositoryOperation, err)
		}
		rec.Kind = history.Kind(k)
		rec.Timestamp = time.Unix(0, ts).UTC()
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
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
