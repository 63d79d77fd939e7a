package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vectorize/apps/worker/internal/app"
	"vectorize/apps/worker/internal/config"
	"vectorize/apps/worker/internal/logger"
)

func main() {
	// Initialize structured logger
	slog.SetDefault(logger.New(os.Stdout, slog.LevelInfo, "vectorize-worker"))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.SlogLevel(), "vectorize-worker"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Backends
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	slog.Info("backends ready",
		"embedding_backend", cfg.EmbeddingBackend,
		"model", cfg.EmbeddingModel,
		"vector_backend", cfg.VectorBackend,
		"index", cfg.VectorIndex,
		"journal", deps.DB != nil,
		"events", cfg.EnableEvents,
	)

	// 3. Serve
	a, err := app.New(cfg, deps)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
