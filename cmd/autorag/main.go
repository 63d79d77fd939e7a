package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/urfave/cli/v2"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/features/job"
	"vectorize/apps/worker/internal/app"
	"vectorize/apps/worker/internal/autorag"
	"vectorize/apps/worker/internal/config"
	"vectorize/apps/worker/internal/logger"
	"vectorize/apps/worker/internal/text"
)

func main() {
	cliApp := &cli.App{
		Name:  "autorag",
		Usage: "Chunk site content and load it into the vector index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Chunk manifest documents and send them to the worker or the backends directly",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "manifest",
						Usage: "Path to the site manifest",
						Value: "dist/manifest.json",
					},
					&cli.StringFlag{
						Name:  "content-root",
						Usage: "Directory the manifest paths are relative to",
						Value: "content",
					},
					&cli.StringFlag{
						Name:    "worker-url",
						Usage:   "Worker /ingest URL; when empty, chunks are embedded and upserted in-process",
						EnvVars: []string{"CF_VECTORIZE_WORKER_URL"},
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Count chunks and batches without sending anything",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Chunks per request",
						Value: autorag.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per chunk",
						Value: text.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by consecutive chunks",
						Value: text.DefaultChunkOverlap,
					},
					&cli.DurationFlag{
						Name:  "pause",
						Usage: "Delay between batches",
						Value: autorag.DefaultPause,
					},
				},
			},
			{
				Name:  "jobs",
				Usage: "Inspect and retry journaled ingest failures",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List failed batches",
						Action: jobsListCommand,
					},
					{
						Name:   "count",
						Usage:  "Print the number of failed batches",
						Action: jobsCountCommand,
					},
					{
						Name:      "retry",
						Usage:     "Republish a failed batch on the ingest topic",
						ArgsUsage: "<job-id>",
						Action:    jobsRetryCommand,
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", c.String("log-level"))
	}
	slog.SetDefault(logger.New(os.Stderr, level, "autorag"))
	return nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	entries, err := autorag.LoadManifest(c.String("manifest"), c.String("content-root"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no ingestible documents found in %s", c.String("manifest"))
	}

	opts := []autorag.Option{
		autorag.WithBatchSize(c.Int("batch-size")),
		autorag.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
		autorag.WithPause(c.Duration("pause")),
	}
	if c.Bool("dry-run") {
		opts = append(opts, autorag.WithDryRun())
	}

	var sink autorag.Sink
	workerURL := c.String("worker-url")
	switch {
	case c.Bool("dry-run"):
	case workerURL != "":
		sink = autorag.NewWorkerSink(workerURL, nil)
		opts = append(opts, autorag.WithShortIDs())
		slog.Info("sending chunks to worker", "url", workerURL)
	default:
		s, closeFn, err := directSink(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		sink = s
	}

	start := time.Now()
	stats, err := autorag.NewRunner(sink, opts...).Run(ctx, entries)
	slog.Info("ingest finished",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"batches", stats.Batches,
		"dry_run", c.Bool("dry-run"),
		"duration", time.Since(start),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "documents=%d chunks=%d batches=%d\n", stats.Documents, stats.Chunks, stats.Batches)
	return nil
}

// directSink builds the embedder and vector store from the worker's
// environment and runs chunks through the ingest service in-process.
func directSink(ctx context.Context) (autorag.Sink, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	deps := &app.Dependencies{}
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	embedder, err := app.NewEmbedder(ctx, cfg, deps)
	if err != nil {
		deps.Close()
		return nil, nil, err
	}
	store, err := app.NewVectorStore(ctx, cfg, deps, retryDelay)
	if err != nil {
		deps.Close()
		return nil, nil, err
	}

	slog.Info("ingesting in-process",
		"embedding_backend", cfg.EmbeddingBackend,
		"vector_backend", cfg.VectorBackend,
		"index", cfg.VectorIndex,
	)
	return autorag.NewServiceSink(ingest.NewService(embedder, store, cfg.EmbeddingModel)), deps.Close, nil
}

func jobService(withPublisher bool) (*job.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := app.OpenJournalDB(cfg, time.Duration(cfg.BootstrapRetryDelaySeconds)*time.Second)
	if err != nil {
		return nil, nil, err
	}

	if !withPublisher {
		return job.NewService(job.NewPostgresRepo(db), nil), func() { db.Close() }, nil
	}

	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("nsq producer error: %w", err)
	}
	closeFn := func() {
		producer.Stop()
		db.Close()
	}
	return job.NewService(job.NewPostgresRepo(db), producer), closeFn, nil
}

func jobsListCommand(c *cli.Context) error {
	svc, closeFn, err := jobService(false)
	if err != nil {
		return err
	}
	defer closeFn()

	jobs, err := svc.List(c.Context)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

func jobsCountCommand(c *cli.Context) error {
	svc, closeFn, err := jobService(false)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := svc.Count(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

func jobsRetryCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("job id is required")
	}

	svc, closeFn, err := jobService(true)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.Retry(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "requeued %s on %s\n", id, config.TopicIngestBatch)
	return nil
}
