package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorize/apps/worker/internal/adapter/openai"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func fakeHost(t *testing.T, status int, seen *[]embeddingRequest) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		*seen = append(*seen, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  req.Model,
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.25, 0.5}},
			},
			"usage": map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestEmbedder_Embed(t *testing.T) {
	var seen []embeddingRequest
	ts := fakeHost(t, http.StatusOK, &seen)
	defer ts.Close()

	e := openai.NewEmbedder(ts.URL, "")
	res, err := e.Embed(context.Background(), "nomic-embed-text", "verse")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5}, res.FirstVector())
	require.Len(t, seen, 1)
	assert.Equal(t, "nomic-embed-text", seen[0].Model)
	assert.Equal(t, []string{"verse"}, seen[0].Input)
}

func TestEmbedder_Embed_KeepsNewlines(t *testing.T) {
	var seen []embeddingRequest
	ts := fakeHost(t, http.StatusOK, &seen)
	defer ts.Close()

	e := openai.NewEmbedder(ts.URL, "")
	_, err := e.Embed(context.Background(), "nomic-embed-text", "a\nb")

	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"a\nb"}, seen[0].Input)
}

func TestEmbedder_Embed_ModelPerCall(t *testing.T) {
	var seen []embeddingRequest
	ts := fakeHost(t, http.StatusOK, &seen)
	defer ts.Close()

	e := openai.NewEmbedder(ts.URL, "token")
	ctx := context.Background()
	_, err := e.Embed(ctx, "model-a", "x")
	require.NoError(t, err)
	_, err = e.Embed(ctx, "model-b", "y")
	require.NoError(t, err)
	_, err = e.Embed(ctx, "model-a", "z")
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, []string{"model-a", "model-b", "model-a"}, []string{seen[0].Model, seen[1].Model, seen[2].Model})
}

func TestEmbedder_Embed_UpstreamError(t *testing.T) {
	var seen []embeddingRequest
	ts := fakeHost(t, http.StatusInternalServerError, &seen)
	defer ts.Close()

	e := openai.NewEmbedder(ts.URL, "token")
	res, err := e.Embed(context.Background(), "model-a", "x")

	assert.Error(t, err)
	assert.Nil(t, res)
}
