// Package pubsub mirrors appended history records to a Google Cloud Pub/Sub
// topic so other systems can consume assessment results.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/domain/history"
)

const publishTimeout = 5 * time.Second

// Mirror decorates a history.Store. Every successfully stored record is
// also published; publish failures are logged and never returned.
type Mirror struct {
	store  history.Store
	topic  *pubsub.Topic
	client *pubsub.Client
	logger *zap.Logger
}

// NewMirror publishes to topic. The caller keeps ownership of the topic's client.
func NewMirror(store history.Store, topic *pubsub.Topic, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{store: store, topic: topic, logger: logger}
}

// Open connects to project and mirrors into topicID. Close releases the client.
func Open(ctx context.Context, project, topicID string, store history.Store, logger *zap.Logger) (*Mirror, error) {
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	m := NewMirror(store, client.Topic(topicID), logger)
	m.client = client
	return m, nil
}

// Append stores rec, then publishes it.
func (m *Mirror) Append(ctx context.Context, rec history.Record) error {
	if err := m.store.Append(ctx, rec); err != nil {
		return err
	}
	if err := m.publish(ctx, rec); err != nil {
		m.logger.Warn("history mirror publish failed",
			zap.String("kind", string(rec.Kind)),
			zap.String("id", rec.ID),
			zap.Error(err))
	}
	return nil
}

func (m *Mirror) publish(ctx context.Context, rec history.Record) error {
	if m.topic == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = m.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind": string(rec.Kind),
			"id":   rec.ID,
		},
	}).Get(ctx)
	return err
}

// Recent reads from the wrapped store.
func (m *Mirror) Recent(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	return m.store.Recent(ctx, kind, limit)
}

// Ping delegates to the wrapped store when it supports health checks.
func (m *Mirror) Ping(ctx context.Context) error {
	if p, ok := m.store.(history.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close flushes pending publishes and closes the wrapped store.
func (m *Mirror) Close() error {
	if m.topic != nil {
		m.topic.Stop()
	}
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	return m.store.Close()
}
