package worker

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/middleware"
)

type BatchProcessor interface {
	Process(ctx context.Context, chunks []ingest.ChunkPayload) (int, error)
}

// BatchConsumer ingests chunk arrays published on the batch topic. Every
// message is acknowledged: malformed bodies are dropped and failed batches are
// left to the journal, so nsqd never redelivers.
type BatchConsumer struct {
	processor BatchProcessor
}

func NewBatchConsumer(p BatchProcessor) *BatchConsumer {
	return &BatchConsumer{processor: p}
}

func (c *BatchConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	ctx := middleware.WithCorrelationID(context.Background(), middleware.NewCorrelationID())

	chunks, err := ingest.DecodeChunks(bytes.NewReader(m.Body))
	if err != nil {
		// Poison pill: don't retry
		slog.ErrorContext(ctx, "poison pill: invalid batch", "error", err, "message_id", string(m.ID[:]))
		return nil
	}

	count, err := c.processor.Process(ctx, chunks)
	if err != nil {
		slog.WarnContext(ctx, "batch dropped after failure", "error", err, "count", count, "attempts", m.Attempts)
		return nil
	}

	slog.InfoContext(ctx, "batch ingested", "count", count, "received", len(chunks))
	return nil
}
