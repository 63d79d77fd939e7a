package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/app"
	"vectorize/apps/worker/internal/config"
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
	return m.Called(ctx, records).Error(0)
}

const model = "@cf/baai/bge-base-en-v1.5"

func testConfig() *config.Config {
	return &config.Config{EmbeddingModel: model, MaxBodyBytes: 1 << 20, ServerPort: 8787}
}

func newApp(t *testing.T, e *MockEmbedder, s *MockVectorStore) *app.App {
	t.Helper()
	a, err := app.New(testConfig(), &app.Dependencies{Embedder: e, VectorStore: s})
	require.NoError(t, err)
	return a
}

func TestNew_RequiresBackends(t *testing.T) {
	_, err := app.New(testConfig(), &app.Dependencies{})
	assert.Error(t, err)
	_, err = app.New(testConfig(), nil)
	assert.Error(t, err)
}

func TestRouting_NotFound(t *testing.T) {
	a := newApp(t, new(MockEmbedder), new(MockVectorStore))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/ingest"},
		{http.MethodOptions, "/ingest"},
		{http.MethodPut, "/ingest"},
		{http.MethodPost, "/other"},
		{http.MethodGet, "/"},
		{http.MethodGet, "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`[{"id":"a","text":"x"}]`))
			w := httptest.NewRecorder()
			a.Handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "Not Found", w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
		})
	}
}

func TestRouting_IngestSkipsInvalidChunks(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockVectorStore)
	e.On("Embed", mock.Anything, model, "hello").Return(&ingest.EmbeddingResponse{Data: [][]float32{{0.1}}}, nil)
	e.On("Embed", mock.Anything, model, "world").Return(&ingest.EmbeddingResponse{Data: [][]float32{{0.2}}}, nil)
	s.On("Upsert", mock.Anything, mock.Anything).Return(nil).Twice()

	a := newApp(t, e, s)
	req := httptest.NewRequest(http.MethodPost, "/ingest",
		strings.NewReader(`[{"id":"a","text":"hello"},{"id":"","text":"skip"},{"id":"b","text":"world"}]`))
	req.Header.Set("X-Correlation-ID", "cid-1")
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cid-1", w.Header().Get("X-Correlation-ID"))
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{"ok": true, "count": float64(2)}, resp)
	e.AssertExpectations(t)
	s.AssertExpectations(t)
}

func TestRouting_FailureIsJournaled(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m.ExpectQuery(regexp.QuoteMeta(`INSERT INTO failed_jobs`)).
		WithArgs("ingest", sqlmock.AnyArg(), "vectorize returned 503: busy", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "retries"}).AddRow("job-1", time.Now(), 0))

	e := new(MockEmbedder)
	s := new(MockVectorStore)
	e.On("Embed", mock.Anything, model, mock.Anything).Return(&ingest.EmbeddingResponse{Data: [][]float32{{1}}}, nil)
	s.On("Upsert", mock.Anything, mock.MatchedBy(func(r []ingest.VectorRecord) bool { return r[0].ID == "a" })).Return(nil)
	s.On("Upsert", mock.Anything, mock.MatchedBy(func(r []ingest.VectorRecord) bool { return r[0].ID == "b" })).Return(errors.New("vectorize returned 503: busy"))

	a, err := app.New(testConfig(), &app.Dependencies{Embedder: e, VectorStore: s, DB: db})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ingest",
		strings.NewReader(`[{"id":"a","text":"one"},{"id":"b","text":"two"},{"id":"c","text":"three"}]`))
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"vectorize returned 503: busy"}`, w.Body.String())
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestNew_BatchConsumerToggle(t *testing.T) {
	cfg := testConfig()
	cfg.EnableBatchConsumer = true

	a, err := app.New(cfg, &app.Dependencies{Embedder: new(MockEmbedder), VectorStore: new(MockVectorStore)})
	require.NoError(t, err)
	assert.NotNil(t, a.BatchConsumer)
	assert.Equal(t, model, a.IngestService.Model())
}
