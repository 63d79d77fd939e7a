package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"

	"vectorize/apps/worker/features/ingest"
	"vectorize/apps/worker/internal/adapter/gemini"
	"vectorize/apps/worker/internal/adapter/openai"
	"vectorize/apps/worker/internal/adapter/pgvector"
	wstore "vectorize/apps/worker/internal/adapter/weaviate"
	"vectorize/apps/worker/internal/adapter/vectorize"
	"vectorize/apps/worker/internal/adapter/workersai"
	"vectorize/apps/worker/internal/config"
	"vectorize/apps/worker/internal/vector"
)

type Dependencies struct {
	Embedder    ingest.Embedder
	VectorStore ingest.VectorStore
	DB          *sql.DB
	NSQProducer *nsq.Producer

	closers []io.Closer
}

// Close releases pools and clients opened by Bootstrap.
func (d *Dependencies) Close() {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			slog.Warn("failed to close dependency", "error", err)
		}
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// Bootstrap wires the configured embedding and vector backends plus the
// optional journal database and NSQ producer.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	embedder, err := NewEmbedder(ctx, cfg, deps)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Embedder = embedder

	store, err := NewVectorStore(ctx, cfg, deps, retryDelay)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.VectorStore = store

	if cfg.EnableFailedJobs {
		db, err := OpenJournalDB(cfg, retryDelay)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.DB = db
		deps.closers = append(deps.closers, db)
	}

	if cfg.EnableEvents || cfg.EnableBatchConsumer {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.NSQProducer = producer
		createTopics(cfg.NSQDHTTP)
	}

	return deps, nil
}

func NewEmbedder(ctx context.Context, cfg *config.Config, deps *Dependencies) (ingest.Embedder, error) {
	switch cfg.EmbeddingBackend {
	case config.EmbeddingWorkersAI:
		return workersai.NewEmbedder(cfg.CFAccountID, cfg.CFAPIToken, workersai.WithBaseURL(cfg.CFAPIBaseURL)), nil
	case config.EmbeddingGemini:
		e, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client error: %w", err)
		}
		deps.closers = append(deps.closers, e)
		return e, nil
	case config.EmbeddingOpenAI:
		return openai.NewEmbedder(cfg.EmbeddingHost, cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("%w: EMBEDDING_BACKEND=%q", config.ErrUnsupportedBackend, cfg.EmbeddingBackend)
	}
}

func NewVectorStore(ctx context.Context, cfg *config.Config, deps *Dependencies, retryDelay time.Duration) (ingest.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.VectorVectorize:
		return vectorize.NewStore(cfg.CFAccountID, cfg.CFAPIToken, cfg.VectorIndex, vectorize.WithBaseURL(cfg.CFAPIBaseURL)), nil

	case config.VectorWeaviate:
		client, err := vector.NewClient(cfg.WeaviateHost, cfg.WeaviateScheme)
		if err != nil {
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}
		className := vector.ClassName(cfg.VectorIndex)
		ensure := func(ctx context.Context) error { return vector.EnsureSchema(ctx, client, className) }
		if err := EnsureSchemaWithRetry(ctx, ensure, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			return nil, fmt.Errorf("weaviate schema error: %w", err)
		}
		return wstore.NewStore(client, className), nil

	case config.VectorPGVector:
		var pool interface {
			pgvector.DBTX
			Close()
		}
		connect := func(ctx context.Context) error {
			p, err := pgvector.Connect(ctx, cfg.PGVectorURL)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}
		if err := EnsureSchemaWithRetry(ctx, connect, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			return nil, fmt.Errorf("pgvector connect error: %w", err)
		}
		deps.closers = append(deps.closers, closerFunc(pool.Close))

		store := pgvector.NewStore(pool, cfg.VectorIndex, cfg.VectorDimensions)
		if err := store.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("pgvector schema error: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: VECTOR_BACKEND=%q", config.ErrUnsupportedBackend, cfg.VectorBackend)
	}
}

// OpenJournalDB connects to the failed batch journal and applies migrations.
func OpenJournalDB(cfg *config.Config, retryDelay time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		db.Close()
		return nil, fmt.Errorf("migration up error: %w", err)
	}
	slog.Info("migrations applied successfully")
	return db, nil
}

func createTopics(nsqdHTTP string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(config.TopicIngestBatch)
		create(config.TopicIngestCompleted)
		create(config.TopicIngestFailed)
	}()
}

// EnsureSchemaWithRetry runs fn until it succeeds or attempts run out.
func EnsureSchemaWithRetry(ctx context.Context, fn func(ctx context.Context) error, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "backend not ready, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
