package workersai

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

// Embedder runs Workers AI text embedding models through the Cloudflare API client.
type Embedder struct {
	accountID string
	settings  cfapi.Settings
	client    *cloudflare.Client
}

type Option func(*Embedder)

func WithBaseURL(u string) Option {
	return func(e *Embedder) { e.settings.BaseURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedder) { e.settings.HTTPClient = c }
}

func NewEmbedder(accountID, token string, opts ...Option) *Embedder {
	e := &Embedder{
		accountID: accountID,
		settings:  cfapi.Settings{Token: token},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = cfapi.NewClient("workers ai", e.settings)
	return e
}

type runRequest struct {
	Text string `json:"text"`
}

type apiMessage struct {
	Message string `json:"message"`
}

type runResponse struct {
	Success *bool        `json:"success"`
	Errors  []apiMessage `json:"errors"`
	Result  struct {
		Data []json.RawMessage `json:"data"`
	} `json:"result"`
}

func (e *Embedder) Embed(ctx context.Context, model, text string) (*ingest.EmbeddingResponse, error) {
	body, err := json.Marshal(runRequest{Text: text})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "embedding content", "model", model, "length", len(text))
	var raw []byte
	path := fmt.Sprintf("accounts/%s/ai/run/%s", e.accountID, model)
	err = e.client.Post(ctx, path, bytes.NewReader(body), &raw,
		option.WithHeader("Content-Type", "application/json"))
	if err != nil {
		var statusErr *cfapi.StatusError
		if errors.As(err, &statusErr) {
			return nil, statusErr
		}
		return nil, fmt.Errorf("workers ai request: %w", err)
	}

	var out runResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.WarnContext(ctx, "unexpected workers ai response shape", "error", err)
		return &ingest.EmbeddingResponse{}, nil
	}

	if out.Success != nil && !*out.Success {
		msgs := make([]string, 0, len(out.Errors))
		for _, m := range out.Errors {
			msgs = append(msgs, m.Message)
		}
		return nil, fmt.Errorf("workers ai error: %s", strings.Join(msgs, "; "))
	}

	res := &ingest.EmbeddingResponse{}
	for _, item := range out.Result.Data {
		res.Data = append(res.Data, decodeVector(item))
	}
	return res, nil
}

// decodeVector accepts either a bare number array or an object carrying an
// "embedding" array. Anything else yields an empty vector.
func decodeVector(item json.RawMessage) []float32 {
	var values []float32
	if err := json.Unmarshal(item, &values); err == nil {
		return values
	}
	var wrapped struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(item, &wrapped); err == nil {
		return wrapped.Embedding
	}
	return nil
}
