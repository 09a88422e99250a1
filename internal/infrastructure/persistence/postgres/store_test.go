package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/history/historytest"
)

// Integration test; set TEST_DATABASE_URL to a disposable database.
func TestStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	historytest.Run(t, func(t *testing.T) history.Store {
		ctx := context.Background()
		store, err := Open(ctx, dsn)
		require.NoError(t, err)
		_, err = store.pool.Exec(ctx, "TRUNCATE history")
		require.NoError(t, err)
		return store
	})
}
