package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate/entities/models"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/vector"
)

// BatchWriter is the slice of the Weaviate client the store needs.
type BatchWriter interface {
	BatchObjects(ctx context.Context, objects []*models.Object) ([]models.ObjectsGetResponse, error)
}

type Store struct {
	client    BatchWriter
	className string
}

func NewStore(client BatchWriter, className string) *Store {
	return &Store{client: client, className: className}
}

// ObjectID derives a stable Weaviate UUID from a chunk id so that upserting
// the same id twice replaces the earlier object.
func ObjectID(chunkID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String())
}

func (s *Store) Upsert(ctx context.Context, records []ingest.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		encoded, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode metadata for %q: %w", r.ID, err)
		}
		objects = append(objects, &models.Object{
			Class: s.className,
			ID:    ObjectID(r.ID),
			Properties: map[string]interface{}{
				vector.PropChunkID:  r.ID,
				vector.PropMetadata: string(encoded),
			},
			Vector: models.C11yVector(r.Values),
		})
	}

	res, err := s.client.BatchObjects(ctx, objects)
	if err != nil {
		return fmt.Errorf("weaviate batch: %w", err)
	}

	var msgs []string
	for _, item := range res {
		if item.Result == nil || item.Result.Errors == nil {
			continue
		}
		for _, e := range item.Result.Errors.Error {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("weaviate batch: %s", strings.Join(msgs, "; "))
	}

	slog.DebugContext(ctx, "vectors upserted", "class", s.className, "count", len(objects))
	return nil
}
