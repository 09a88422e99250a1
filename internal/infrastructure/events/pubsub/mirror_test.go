package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/history/historytest"
	"github.com/khanhnv2901/secakit/internal/infrastructure/persistence/memory"
)

func newTestClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "secakit-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestMirrorPublishesAppendedRecords(t *testing.T) {
	srv, client := newTestClient(t)
	ctx := context.Background()
	topic, err := client.CreateTopic(ctx, "history")
	require.NoError(t, err)

	mirror := NewMirror(memory.New(10), topic, zaptest.NewLogger(t))
	defer mirror.Close()

	rec := historytest.Record(history.KindPortScan, 1)
	require.NoError(t, mirror.Append(ctx, rec))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "port_scan", msgs[0].Attributes["kind"])
	assert.Equal(t, rec.ID, msgs[0].Attributes["id"])

	var published history.Record
	require.NoError(t, json.Unmarshal(msgs[0].Data, &published))
	assert.Equal(t, rec.ID, published.ID)

	recs, err := mirror.Recent(ctx, history.KindPortScan, 5)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMirrorPublishFailureIsNotFatal(t *testing.T) {
	srv, client := newTestClient(t)
	ctx := context.Background()

	mirror := NewMirror(memory.New(10), client.Topic("missing"), zaptest.NewLogger(t))
	defer mirror.Close()

	require.NoError(t, mirror.Append(ctx, historytest.Record(history.KindPing, 1)))
	assert.Empty(t, srv.Messages())

	recs, err := mirror.Recent(ctx, history.KindPing, 5)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "record must be stored even when publishing fails")
}

func TestMirrorSatisfiesStoreContract(t *testing.T) {
	historytest.Run(t, func(t *testing.T) history.Store {
		return NewMirror(memory.New(0), nil, zaptest.NewLogger(t))
	})
}
