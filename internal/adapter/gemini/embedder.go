package gemini

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"vectorize/apps/worker/features/ingest"
)

// Embedder serves embedding calls through the Gemini API. The model id is
// chosen per call; embedding model handles are cached per id.
type Embedder struct {
	client *genai.Client
	mu     sync.RWMutex
	models map[string]*genai.EmbeddingModel
}

func NewEmbedder(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Embedder, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, models: make(map[string]*genai.EmbeddingModel)}, nil
}

func (e *Embedder) Embed(ctx context.Context, model, text string) (*ingest.EmbeddingResponse, error) {
	slog.DebugContext(ctx, "embedding content", "model", model, "length", len(text))
	res, err := e.model(model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res == nil || res.Embedding == nil {
		return &ingest.EmbeddingResponse{}, nil
	}
	return &ingest.EmbeddingResponse{Data: [][]float32{res.Embedding.Values}}, nil
}

func (e *Embedder) model(name string) *genai.EmbeddingModel {
	e.mu.RLock()
	m, ok := e.models[name]
	e.mu.RUnlock()
	if ok {
		return m
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.models[name]; ok {
		return m
	}
	m = e.client.EmbeddingModel(name)
	e.models[name] = m
	return m
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
