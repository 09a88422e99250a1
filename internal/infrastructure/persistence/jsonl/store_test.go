package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/history/historytest"
)

func TestStore(t *testing.T) {
	historytest.Run(t, func(t *testing.T) history.Store {
		store, err := New(t.TempDir())
		require.NoError(t, err)
		return store
	})
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, historytest.Record(history.KindFileScan, 1)))

	second, err := New(dir)
	require.NoError(t, err)
	recs, err := second.Recent(ctx, history.KindFileScan, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "file_scan-1", recs[0].ID)

	_, err = os.Stat(filepath.Join(dir, "file_scan.jsonl"))
	assert.NoError(t, err)
}

func TestStoreSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, historytest.Record(history.KindPing, 1)))
	f, err := os.OpenFile(filepath.Join(dir, "ping.jsonl"), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("{truncated\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, store.Append(ctx, historytest.Record(history.KindPing, 2)))

	recs, err := store.Recent(ctx, history.KindPing, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ping-2", recs[0].ID)
}

func TestStoreRejectsEscapingKind(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	err = store.Append(context.Background(), history.Record{ID: "x", Kind: history.Kind("../../escape")})
	assert.Error(t, err)
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
