package autorag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/middleware"
)

// WorkerSink posts batches to a running worker's /ingest endpoint.
type WorkerSink struct {
	url    string
	client *http.Client
}

func NewWorkerSink(url string, client *http.Client) *WorkerSink {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &WorkerSink{url: url, client: client}
}

func (s *WorkerSink) Send(ctx context.Context, batch []ingest.ChunkPayload) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderCorrelationID, middleware.NewCorrelationID())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("worker request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("worker ingest failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// ServiceSink embeds and upserts in-process through the ingest service.
type ServiceSink struct {
	service *ingest.Service
}

func NewServiceSink(s *ingest.Service) *ServiceSink {
	return &ServiceSink{service: s}
}

func (s *ServiceSink) Send(ctx context.Context, batch []ingest.ChunkPayload) error {
	_, err := s.service.Process(ctx, batch)
	return err
}
