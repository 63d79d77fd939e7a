package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nsqio/go-nsq"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/features/job"
	"vectorize/apps/worker/internal/config"
	"vectorize/apps/worker/internal/middleware"
	"vectorize/apps/worker/internal/worker"
)

type App struct {
	Handler       http.Handler
	IngestService *ingest.Service
	BatchConsumer *worker.BatchConsumer

	cfg *config.Config
}

func New(cfg *config.Config, deps *Dependencies) (*App, error) {
	if deps == nil || deps.Embedder == nil || deps.VectorStore == nil {
		return nil, errors.New("embedder and vector store are required")
	}

	var opts []ingest.Option

	// Feature: Job
	if deps.DB != nil {
		opts = append(opts, ingest.WithJournal(job.NewJournal(job.NewPostgresRepo(deps.DB))))
	}

	// Feature: Events
	if cfg.EnableEvents && deps.NSQProducer != nil {
		opts = append(opts, ingest.WithNotifier(ingest.NewNotifier(deps.NSQProducer)))
	}

	// Feature: Ingest
	ingestService := ingest.NewService(deps.Embedder, deps.VectorStore, cfg.EmbeddingModel, opts...)
	ingestHandler := ingest.NewHandler(ingestService, cfg.MaxBodyBytes)

	// Routes
	mux := http.NewServeMux()
	mux.Handle("POST /ingest", middleware.CorrelationID(http.HandlerFunc(ingestHandler.Ingest)))
	mux.Handle("/", middleware.CorrelationID(http.HandlerFunc(ingest.NotFound)))

	a := &App{
		Handler:       mux,
		IngestService: ingestService,
		cfg:           cfg,
	}
	if cfg.EnableBatchConsumer {
		a.BatchConsumer = worker.NewBatchConsumer(ingestService)
	}
	return a, nil
}

func (a *App) startConsumer() (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(config.TopicIngestBatch, config.ChannelWorker, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}
	consumer.AddHandler(a.BatchConsumer)
	if err := consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd); err != nil {
		consumer.Stop()
		return nil, fmt.Errorf("nsq lookupd error: %w", err)
	}
	slog.Info("NSQ batch consumer connected", "topic", config.TopicIngestBatch, "channel", config.ChannelWorker)
	return consumer, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.BatchConsumer != nil {
		consumer, err := a.startConsumer()
		if err != nil {
			return err
		}
		defer func() {
			consumer.Stop()
			<-consumer.StopChan
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
