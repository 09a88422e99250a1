package history

import (
	"context"
	"slices"

	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

// Store is the append-only history of assessment results.
type Store interface {
	// Append persists a record. Records are never updated or deleted.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to limit records of kind, newest first.
	Recent(ctx context.Context, kind Kind, limit int) ([]Record, error)

	// Close releases underlying resources.
	Close() error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NormalizeLimit maps a non-positive limit to the default page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return consts.DefaultHistoryPageSize
	}
	return limit
}

// NewestFirst orders records appended in ascending insertion order by
// timestamp, newest first. Records with equal timestamps keep the later
// append first. recs is sorted in place and returned.
func NewestFirst(recs []Record) []Record {
	slices.Reverse(recs)
	slices.SortStableFunc(recs, func(a, b Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return recs
}
