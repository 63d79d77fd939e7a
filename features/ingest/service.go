package ingest

import (
	"context"
	"errors"
	"log/slog"
)

// FailureJournal keeps the unprocessed tail of a failed batch.
type FailureJournal interface {
	Record(ctx context.Context, remaining []ChunkPayload, chunkID string, cause error) error
}

type Service struct {
	embedder Embedder
	store    VectorStore
	model    string
	journal  FailureJournal
	notifier *Notifier
}

type Option func(*Service)

func WithJournal(j FailureJournal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

func WithNotifier(n *Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func NewService(e Embedder, store VectorStore, model string, opts ...Option) *Service {
	s := &Service{
		embedder: e,
		store:    store,
		model:    model,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Model() string {
	return s.model
}

// Ingest embeds and upserts chunks one at a time, in order. The first upstream
// failure stops the batch; records written before it are kept.
func (s *Service) Ingest(ctx context.Context, chunks []ChunkPayload) (int, error) {
	processed := 0
	for i, chunk := range chunks {
		if !chunk.Valid() {
			continue
		}

		res, err := s.embedder.Embed(ctx, s.model, chunk.Text)
		if err != nil {
			return processed, &ChunkError{Index: i, ChunkID: chunk.ID, Kind: KindEmbed, Err: err}
		}

		values := res.FirstVector()
		if len(values) == 0 {
			return processed, &ChunkError{Index: i, ChunkID: chunk.ID, Kind: KindMissingVector, Err: ErrMissingEmbedding}
		}

		metadata := chunk.Metadata
		if metadata == nil {
			metadata = map[string]interface{}{}
		}

		record := VectorRecord{ID: chunk.ID, Values: values, Metadata: metadata}
		if err := s.store.Upsert(ctx, []VectorRecord{record}); err != nil {
			return processed, &ChunkError{Index: i, ChunkID: chunk.ID, Kind: KindUpsert, Err: err}
		}

		processed++
		slog.DebugContext(ctx, "chunk upserted", "id", chunk.ID, "dimensions", len(values))
	}
	return processed, nil
}

// Process runs Ingest and reports the outcome to the log, the journal and the notifier.
func (s *Service) Process(ctx context.Context, chunks []ChunkPayload) (int, error) {
	processed, err := s.Ingest(ctx, chunks)
	if err == nil {
		slog.InfoContext(ctx, "vectorize ingest completed", "received", len(chunks), "count", processed)
		s.notifier.Completed(ctx, processed)
		return processed, nil
	}

	var chunkErr *ChunkError
	if errors.As(err, &chunkErr) {
		slog.ErrorContext(ctx, "vectorize ingest failed",
			"error", err,
			"kind", chunkErr.Kind,
			"chunk_id", chunkErr.ChunkID,
			"index", chunkErr.Index,
			"processed", processed,
		)
		if s.journal != nil {
			// The request context may already be cancelled by a disconnect or shutdown.
			if jerr := s.journal.Record(context.WithoutCancel(ctx), chunks[chunkErr.Index:], chunkErr.ChunkID, err); jerr != nil {
				slog.WarnContext(ctx, "failed to journal ingest failure", "error", jerr, "chunk_id", chunkErr.ChunkID)
			}
		}
		s.notifier.Failed(ctx, chunkErr.ChunkID, processed, err)
	} else {
		slog.ErrorContext(ctx, "vectorize ingest failed", "error", err, "processed", processed)
		s.notifier.Failed(ctx, "", processed, err)
	}
	return processed, err
}
