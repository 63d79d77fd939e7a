package job

import (
	"context"
	"encoding/json"
	"fmt"

	"vectorize/apps/worker/features/ingest"
)

// Journal stores the unprocessed tail of a failed ingest batch so it can be
// replayed later with Service.Retry.
type Journal struct {
	repo Repository
}

func NewJournal(repo Repository) *Journal {
	return &Journal{repo: repo}
}

func (j *Journal) Record(ctx context.Context, remaining []ingest.ChunkPayload, chunkID string, cause error) error {
	payload, err := json.Marshal(remaining)
	if err != nil {
		return fmt.Errorf("encode remaining chunks: %w", err)
	}
	return j.repo.Save(ctx, &Job{
		Handler: HandlerIngest,
		Payload: payload,
		Error:   ingest.Message(cause),
		ChunkID: chunkID,
	})
}
