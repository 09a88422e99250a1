// Package historytest holds the behaviour every history.Store backend must share.
package historytest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/secakit/internal/domain/history"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) history.Store

// Record builds a record of kind with a deterministic id and timestamp.
func Record(kind history.Kind, n int) history.Record {
	payload, _ := json.Marshal(map[string]any{"id": fmt.Sprintf("%s-%d", kind, n), "n": n})
	return history.Record{
		ID:        fmt.Sprintf("%s-%d", kind, n),
		Kind:      kind,
		Timestamp: time.Unix(1_700_000_000+int64(n), 0).UTC(),
		Payload:   payload,
	}
}

// Run exercises append-only semantics, newest-first reads, timestamp
// ordering, per-kind isolation and concurrent appends.
func Run(t *testing.T, newStore Factory) {
	t.Run("NewestFirst", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			require.NoError(t, store.Append(ctx, Record(history.KindPortScan, i)))
		}
		require.NoError(t, store.Append(ctx, Record(history.KindPing, 1)))

		recs, err := store.Recent(ctx, history.KindPortScan, 10)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "port_scan-3", recs[0].ID)
		assert.Equal(t, "port_scan-1", recs[2].ID)
		assert.True(t, recs[0].Timestamp.Equal(Record(history.KindPortScan, 3).Timestamp))
		assert.Equal(t, history.KindPortScan, recs[0].Kind)

		var payload map[string]any
		require.NoError(t, recs[1].Decode(&payload))
		assert.Equal(t, "port_scan-2", payload["id"])
	})

	t.Run("OrderedByTimestamp", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		// results finish in a different order than they were stamped
		for _, n := range []int{5, 2, 9, 7} {
			require.NoError(t, store.Append(ctx, Record(history.KindPing, n)))
		}

		recs, err := store.Recent(ctx, history.KindPing, 10)
		require.NoError(t, err)
		require.Len(t, recs, 4)
		assert.Equal(t, []string{"ping-9", "ping-7", "ping-5", "ping-2"}, ids(recs))

		recs, err = store.Recent(ctx, history.KindPing, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"ping-9", "ping-7"}, ids(recs))
	})

	t.Run("EqualTimestampsLaterAppendFirst", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		first := Record(history.KindFileScan, 1)
		second := Record(history.KindFileScan, 1)
		second.ID = "file_scan-1b"
		require.NoError(t, store.Append(ctx, first))
		require.NoError(t, store.Append(ctx, second))

		recs, err := store.Recent(ctx, history.KindFileScan, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"file_scan-1b", "file_scan-1"}, ids(recs))
	})

	t.Run("LimitAndIsolation", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			require.NoError(t, store.Append(ctx, Record(history.KindWebsite, i)))
		}
		require.NoError(t, store.Append(ctx, Record(history.KindFileScan, 1)))

		recs, err := store.Recent(ctx, history.KindWebsite, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "website_check-5", recs[0].ID)
		assert.Equal(t, "website_check-4", recs[1].ID)

		recs, err = store.Recent(ctx, history.KindFileScan, 10)
		require.NoError(t, err)
		assert.Len(t, recs, 1)

		recs, err = store.Recent(ctx, history.KindTraceroute, 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		const writers = 20
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 1; i <= writers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				errs <- store.Append(ctx, Record(history.KindTraceroute, n))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		recs, err := store.Recent(ctx, history.KindTraceroute, 50)
		require.NoError(t, err)
		assert.Len(t, recs, writers)
	})
}

func ids(recs []history.Record) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.ID)
	}
	return out
}
