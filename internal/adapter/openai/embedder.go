package openai

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"vectorize/apps/worker/features/ingest"
)

// Embedder targets any OpenAI-compatible embeddings endpoint (OpenAI, Ollama,
// vLLM). One langchaingo embedder is built lazily per model id.
type Embedder struct {
	host   string
	token  string
	mu     sync.RWMutex
	cache  map[string]embeddings.Embedder
	logger *slog.Logger
}

func NewEmbedder(host, token string) *Embedder {
	if token == "" {
		token = "none"
	}
	return &Embedder{
		host:   host,
		token:  token,
		cache:  make(map[string]embeddings.Embedder),
		logger: slog.Default().With("component", "openai-embedder"),
	}
}

func (e *Embedder) Embed(ctx context.Context, model, text string) (*ingest.EmbeddingResponse, error) {
	emb, err := e.embedderFor(model)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "generating embedding for single text", "model", model, "length", len(text))
	vectors, err := emb.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to generate embedding", "err", err)
		return nil, err
	}

	if len(vectors) == 0 {
		e.logger.WarnContext(ctx, "embedder returned empty result")
		return &ingest.EmbeddingResponse{}, nil
	}
	return &ingest.EmbeddingResponse{Data: vectors}, nil
}

func (e *Embedder) embedderFor(model string) (embeddings.Embedder, error) {
	e.mu.RLock()
	emb, ok := e.cache[model]
	e.mu.RUnlock()
	if ok {
		return emb, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if emb, ok := e.cache[model]; ok {
		return emb, nil
	}

	client, err := openai.New(
		openai.WithBaseURL(e.host),
		openai.WithToken(e.token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	emb, err = embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, err
	}
	e.cache[model] = emb
	return emb, nil
}
