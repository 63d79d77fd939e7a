package vector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"vectorize/apps/worker/internal/vector"
)

// fakeWeaviate answers /v1/meta itself and hands every other request to next.
func fakeWeaviate(t *testing.T, next http.HandlerFunc) (*vector.Client, func()) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		next(w, r)
	}))
	client, err := vector.NewClient(ts.Listener.Addr().String(), "http")
	require.NoError(t, err)
	return client, ts.Close
}

func TestClient_ClassExists(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"Exists", http.StatusOK, true},
		{"NotFound", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, done := fakeWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/schema/VectorizeLyrics", r.URL.Path)
				w.WriteHeader(tt.status)
				if tt.status == http.StatusOK {
					json.NewEncoder(w).Encode(&models.Class{Class: "VectorizeLyrics"})
				}
			})
			defer done()

			exists, err := client.ClassExists(context.Background(), "VectorizeLyrics")
			assert.NoError(t, err)
			assert.Equal(t, tt.want, exists)
		})
	}
}

func TestClient_EnsureSchema_CreatesOverHTTP(t *testing.T) {
	var created models.Class
	client, done := fakeWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/schema/VectorizeLyrics":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/schema":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(&created)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	defer done()

	require.NoError(t, vector.EnsureSchema(context.Background(), client, "VectorizeLyrics"))
	assert.Equal(t, "VectorizeLyrics", created.Class)
	assert.Len(t, created.Properties, 2)
}

func TestClient_AddProperty(t *testing.T) {
	client, done := fakeWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/schema/VectorizeLyrics/properties", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	defer done()

	err := client.AddProperty(context.Background(), "VectorizeLyrics", &models.Property{
		Name:     vector.PropMetadata,
		DataType: []string{"text"},
	})
	assert.NoError(t, err)
}
