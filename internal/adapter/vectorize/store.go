package vectorize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloudflare/cloudflare-go/v4"
	"github.com/cloudflare/cloudflare-go/v4/option"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/adapter/cfapi"
)

// Store upserts vectors into a Cloudflare Vectorize v2 index with NDJSON bodies.
type Store struct {
	accountID string
	index     string
	settings  cfapi.Settings
	client    *cloudflare.Client
}

type Option func(*Store)

func WithBaseURL(u string) Option {
	return func(s *Store) { s.settings.BaseURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.settings.HTTPClient = c }
}

func NewStore(accountID, token, index string, opts ...Option) *Store {
	s := &Store{
		accountID: accountID,
		index:     index,
		settings:  cfapi.Settings{Token: token},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = cfapi.NewClient("vectorize", s.settings)
	return s
}

type upsertResponse struct {
	Success *bool `json:"success"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// EncodeNDJSON writes one JSON document per record, each terminated by a newline.
func EncodeNDJSON(records []ingest.VectorRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if r.Metadata == nil {
			r.Metadata = map[string]interface{}{}
		}
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("encode record %q: %w", r.ID, err)
		}
	}
	return buf.Bytes(), nil
}

func (s *Store) Upsert(ctx context.Context, records []ingest.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	body, err := EncodeNDJSON(records)
	if err != nil {
		return err
	}

	var raw []byte
	path := fmt.Sprintf("accounts/%s/vectorize/indexes/%s/upsert", s.accountID, s.index)
	err = s.client.Post(ctx, path, bytes.NewReader(body), &raw,
		option.WithHeader("Content-Type", "application/x-ndjson"),
		option.WithHeader("CF-Vectorize-Version", "2"))
	if err != nil {
		var statusErr *cfapi.StatusError
		if errors.As(err, &statusErr) {
			return statusErr
		}
		return fmt.Errorf("vectorize request: %w", err)
	}

	var out upsertResponse
	if err := json.Unmarshal(raw, &out); err == nil && out.Success != nil && !*out.Success {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("vectorize error: %s", strings.Join(msgs, "; "))
	}

	slog.DebugContext(ctx, "vectors upserted", "index", s.index, "count", len(records))
	return nil
}
