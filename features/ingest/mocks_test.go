package ingest_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"vectorize/apps/worker/features/ingest"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, model, text string) (*ingest.EmbeddingResponse, error) {
	args := m.Called(ctx, model, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.EmbeddingResponse), args.Error(1)
}

type MockVectorStore struct{ mock.Mock }

func (m *MockVectorStore) Upsert(ctx context.Context, records []ingest.VectorRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

type FakeJournal struct {
	CtxErr    error
	Remaining []ingest.ChunkPayload
	ChunkID   string
	Cause     error
	Err       error
}

func (f *FakeJournal) Record(ctx context.Context, remaining []ingest.ChunkPayload, chunkID string, cause error) error {
	f.CtxErr = ctx.Err()
	f.Remaining = remaining
	f.ChunkID = chunkID
	f.Cause = cause
	return f.Err
}

type FakePublisher struct {
	mu     sync.Mutex
	Topics []string
	Bodies [][]byte
	Err    error
}

func (p *FakePublisher) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Topics = append(p.Topics, topic)
	p.Bodies = append(p.Bodies, body)
	return p.Err
}

func vec(values ...float32) *ingest.EmbeddingResponse {
	return &ingest.EmbeddingResponse{Data: [][]float32{values}}
}
