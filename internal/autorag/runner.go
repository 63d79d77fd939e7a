package autorag

import (
	"context"
	"crypto/sha1" // #nosec G505 -- id shortening, not security
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/text"
)

const (
	DefaultBatchSize = 32
	DefaultPause     = 200 * time.Millisecond
)

// Sink receives full batches of chunks.
type Sink interface {
	Send(ctx context.Context, batch []ingest.ChunkPayload) error
}

type Runner struct {
	sink      Sink
	batchSize int
	chunkSize int
	overlap   int
	pause     time.Duration
	shortIDs  bool
	dryRun    bool
}

type Option func(*Runner)

func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithChunking(size, overlap int) Option {
	return func(r *Runner) {
		r.chunkSize = size
		r.overlap = overlap
	}
}

func WithPause(d time.Duration) Option {
	return func(r *Runner) { r.pause = d }
}

// WithShortIDs replaces chunk ids with the first 32 hex characters of their SHA-1.
func WithShortIDs() Option {
	return func(r *Runner) { r.shortIDs = true }
}

func WithDryRun() Option {
	return func(r *Runner) { r.dryRun = true }
}

func NewRunner(sink Sink, opts ...Option) *Runner {
	r := &Runner{
		sink:      sink,
		batchSize: DefaultBatchSize,
		chunkSize: text.DefaultChunkSize,
		overlap:   text.DefaultChunkOverlap,
		pause:     DefaultPause,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Stats struct {
	Documents int
	Chunks    int
	Batches   int
}

// ChunkID names chunk i of a manifest document.
func ChunkID(manifestPath string, i int) string {
	return fmt.Sprintf("%s#chunk-%d", manifestPath, i)
}

func ShortID(id string) string {
	sum := sha1.Sum([]byte(id)) // #nosec G401
	return hex.EncodeToString(sum[:])[:32]
}

// Run chunks every entry and sends the chunks in batches. A dry run counts
// chunks without calling the sink.
func (r *Runner) Run(ctx context.Context, entries []Entry) (Stats, error) {
	var stats Stats
	var pending []ingest.ChunkPayload

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if !r.dryRun {
			if err := r.sink.Send(ctx, pending); err != nil {
				return fmt.Errorf("batch %d: %w", stats.Batches+1, err)
			}
		}
		stats.Batches++
		slog.InfoContext(ctx, "batch sent", "batch", stats.Batches, "size", len(pending), "dry_run", r.dryRun)
		pending = nil
		return nil
	}

	for _, entry := range entries {
		content, err := ReadText(entry.SourcePath)
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", entry.SourcePath, err)
		}
		chunks := text.Chunk(content, r.chunkSize, r.overlap)
		if len(chunks) == 0 {
			continue
		}
		stats.Documents++

		for i, chunk := range chunks {
			id := ChunkID(entry.ManifestPath, i)
			if r.shortIDs {
				id = ShortID(id)
			}
			pending = append(pending, ingest.ChunkPayload{
				ID:   id,
				Text: chunk,
				Metadata: map[string]interface{}{
					"path":        entry.ManifestPath,
					"release":     entry.Release,
					"title":       entry.Title,
					"chunk_index": i,
					"chunk_count": len(chunks),
				},
			})
			stats.Chunks++

			if len(pending) >= r.batchSize {
				if err := flush(); err != nil {
					return stats, err
				}
				if !r.dryRun && r.pause > 0 {
					select {
					case <-ctx.Done():
						return stats, ctx.Err()
					case <-time.After(r.pause):
					}
				}
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
