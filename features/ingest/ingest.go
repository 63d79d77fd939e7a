package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var (
	ErrInvalidJSON      = errors.New("Invalid JSON payload")
	ErrEmptyPayload     = errors.New("Payload must be a non-empty array")
	ErrMissingEmbedding = errors.New("Missing embedding values in AI response")
)

type ChunkPayload struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Valid reports whether the chunk survives the per-chunk filter.
func (c ChunkPayload) Valid() bool {
	return c.ID != "" && strings.TrimSpace(c.Text) != ""
}

type EmbeddingResponse struct {
	Data [][]float32 `json:"data"`
}

// FirstVector returns the first embedding in the response, or nil when there is none.
func (r *EmbeddingResponse) FirstVector() []float32 {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	return r.Data[0]
}

type VectorRecord struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata"`
}

type Embedder interface {
	Embed(ctx context.Context, model, text string) (*EmbeddingResponse, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, records []VectorRecord) error
}

type Result struct {
	OK    bool   `json:"ok"`
	Count *int   `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

// DecodeChunks parses a request body into chunk payloads.
// Elements that are not objects, or whose text is not a string, are kept as
// zero-value payloads so they are skipped by the filter without shifting indexes.
func DecodeChunks(r io.Reader) ([]ChunkPayload, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrInvalidJSON
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrInvalidJSON
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrEmptyPayload
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, ErrInvalidJSON
	}
	if len(elems) == 0 {
		return nil, ErrEmptyPayload
	}

	chunks := make([]ChunkPayload, len(elems))
	for i, e := range elems {
		chunks[i] = decodeChunk(e)
	}
	return chunks, nil
}

type rawChunk struct {
	ID       json.RawMessage `json:"id"`
	Text     json.RawMessage `json:"text"`
	Metadata json.RawMessage `json:"metadata"`
}

// decodeChunk reads each field on its own so a bad metadata value cannot
// drop an otherwise usable chunk. Metadata that is not an object is left nil
// and upserted as {}.
func decodeChunk(e json.RawMessage) ChunkPayload {
	var rc rawChunk
	if err := json.Unmarshal(e, &rc); err != nil {
		return ChunkPayload{}
	}

	var c ChunkPayload
	if err := json.Unmarshal(rc.Text, &c.Text); err != nil {
		return ChunkPayload{}
	}
	c.ID = decodeID(rc.ID)

	var metadata map[string]interface{}
	if err := json.Unmarshal(rc.Metadata, &metadata); err == nil {
		c.Metadata = metadata
	}
	return c
}

// decodeID accepts string ids and non-zero numeric ids, which keep their
// JSON spelling. Anything else yields "".
func decodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	if f, err := n.Float64(); err != nil || f == 0 {
		return ""
	}
	return n.String()
}
