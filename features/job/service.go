package job

import (
	"context"
	"fmt"
	"log/slog"

	"vectorize/apps/worker/internal/config"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

func (s *Service) Save(ctx context.Context, j *Job) error {
	return s.repo.Save(ctx, j)
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Retry republishes a journaled batch on the ingest topic and removes it from
// the journal. The job is kept when publishing fails.
func (s *Service) Retry(ctx context.Context, id string) error {
	if s.pub == nil {
		return fmt.Errorf("retry job %s: no publisher configured", id)
	}

	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.pub.Publish(config.TopicIngestBatch, j.Payload); err != nil {
		return fmt.Errorf("publish job %s: %w", id, err)
	}

	slog.InfoContext(ctx, "failed job requeued", "id", id, "topic", config.TopicIngestBatch)
	return s.repo.Delete(ctx, id)
}
