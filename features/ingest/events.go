package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"vectorize/apps/worker/internal/config"
	"vectorize/apps/worker/internal/middleware"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Event struct {
	Type          string    `json:"type"`
	Count         int       `json:"count"`
	Error         string    `json:"error,omitempty"`
	ChunkID       string    `json:"chunk_id,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notifier publishes ingest outcomes. A nil Notifier is a no-op.
type Notifier struct {
	pub EventPublisher
}

func NewNotifier(pub EventPublisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) Completed(ctx context.Context, count int) {
	n.publish(ctx, config.TopicIngestCompleted, Event{
		Type:  "ingest.completed",
		Count: count,
	})
}

func (n *Notifier) Failed(ctx context.Context, chunkID string, count int, cause error) {
	n.publish(ctx, config.TopicIngestFailed, Event{
		Type:    "ingest.failed",
		Count:   count,
		Error:   Message(cause),
		ChunkID: chunkID,
	})
}

func (n *Notifier) publish(ctx context.Context, topic string, ev Event) {
	if n == nil || n.pub == nil {
		return
	}
	ev.CorrelationID = middleware.GetCorrelationID(ctx)
	ev.Timestamp = time.Now().UTC()

	body, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal ingest event", "error", err, "topic", topic)
		return
	}
	if err := n.pub.Publish(topic, body); err != nil {
		slog.WarnContext(ctx, "failed to publish ingest event", "error", err, "topic", topic)
	}
}
