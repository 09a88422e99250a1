// Package jsonl stores history as one JSON-lines file per kind. Appends are
// serialized in-process by a mutex and across processes by a lock file.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
	"github.com/khanhnv2901/secakit/internal/shared/security"
)

const maxLineBytes = 16 << 20

// Store implements history.Store on the local filesystem.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates dir if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory cannot be empty")
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(kind history.Kind) (string, error) {
	return security.ResolveWithin(s.dir, string(kind)+".jsonl")
}

// Append writes rec as a single line. A line is written with one write call
// while holding both locks, so readers never observe a partial record.
func (s *Store) Append(ctx context.Context, rec history.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(rec.Kind)
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: lock %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, consts.DefaultFilePerm) // #nosec G304 -- path resolved within the data dir
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}
	return nil
}

// Recent returns up to limit records of kind, newest first. Lines that fail
// to decode are skipped.
func (s *Store) Recent(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = history.NormalizeLimit(limit)
	path, err := s.path(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Open(path) // #nosec G304 -- path resolved within the data dir
	if errors.Is(err, os.ErrNotExist) {
		return []history.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}
	defer f.Close()

	// appends can land out of timestamp order, so every line is considered
	var recs []history.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		var rec history.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", sharedErrors.ErrRepositoryOperation, path, err)
	}

	recs = history.NewestFirst(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	if recs == nil {
		recs = []history.Record{}
	}
	return recs, nil
}

// Ping checks that the history directory is still writable.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", sharedErrors.ErrRepositoryOperation, s.dir)
	}
	return nil
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error { return nil }
