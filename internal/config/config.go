package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired    = errors.New("missing required configuration")
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

const (
	EmbeddingWorkersAI = "workersai"
	EmbeddingGemini    = "gemini"
	EmbeddingOpenAI    = "openai"

	VectorVectorize = "vectorize"
	VectorWeaviate  = "weaviate"
	VectorPGVector  = "pgvector"
)

type Config struct {
	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8787"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"10485760"` // 10MB

	// Embeddings
	EmbeddingBackend string `envconfig:"EMBEDDING_BACKEND" default:"workersai"`
	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" default:"@cf/baai/bge-base-en-v1.5"`
	EmbeddingHost    string `envconfig:"EMBEDDING_HOST" default:"http://localhost:11434/v1"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY" default:"none"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`

	// Cloudflare
	CFAccountID  string `envconfig:"CF_ACCOUNT_ID"`
	CFAPIToken   string `envconfig:"CLOUDFLARE_API_TOKEN"`
	CFAPIBaseURL string `envconfig:"CF_API_BASE_URL" default:"https://api.cloudflare.com/client/v4"`

	// Vector store
	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"vectorize"`
	VectorIndex      string `envconfig:"VECTOR_INDEX" default:"lyrics"`
	VectorDimensions int    `envconfig:"VECTOR_DIMENSIONS" default:"768"`
	WeaviateHost     string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme   string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	PGVectorURL      string `envconfig:"PGVECTOR_URL"`

	// Failed batch journal
	EnableFailedJobs bool   `envconfig:"ENABLE_FAILED_JOBS" default:"false"`
	DBHost           string `envconfig:"DB_HOST" default:"postgres"`
	DBPort           int    `envconfig:"DB_PORT" default:"5432"`
	DBUser           string `envconfig:"DB_USER" default:"vectorize"`
	DBPass           string `envconfig:"DB_PASS" default:"password"`
	DBName           string `envconfig:"DB_NAME" default:"vectorize"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// NSQ
	EnableEvents        bool   `envconfig:"ENABLE_EVENTS" default:"false"`
	EnableBatchConsumer bool   `envconfig:"ENABLE_BATCH_CONSUMER" default:"false"`
	NSQDHost            string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQLookupd          string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHTTP            string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars set in the shell win; .env files only fill gaps.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.EmbeddingBackend {
	case EmbeddingWorkersAI:
		if c.CFAccountID == "" {
			return fmt.Errorf("%w: CF_ACCOUNT_ID", ErrMissingRequired)
		}
		if c.CFAPIToken == "" {
			return fmt.Errorf("%w: CLOUDFLARE_API_TOKEN", ErrMissingRequired)
		}
	case EmbeddingGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
		}
	case EmbeddingOpenAI:
		if c.EmbeddingHost == "" {
			return fmt.Errorf("%w: EMBEDDING_HOST", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: EMBEDDING_BACKEND=%q", ErrUnsupportedBackend, c.EmbeddingBackend)
	}

	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EMBEDDING_MODEL", ErrMissingRequired)
	}

	switch c.VectorBackend {
	case VectorVectorize:
		if c.CFAccountID == "" {
			return fmt.Errorf("%w: CF_ACCOUNT_ID", ErrMissingRequired)
		}
		if c.CFAPIToken == "" {
			return fmt.Errorf("%w: CLOUDFLARE_API_TOKEN", ErrMissingRequired)
		}
	case VectorWeaviate:
		if c.WeaviateHost == "" {
			return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
		}
	case VectorPGVector:
		if c.PGVectorURL == "" {
			return fmt.Errorf("%w: PGVECTOR_URL", ErrMissingRequired)
		}
		if c.VectorDimensions <= 0 {
			return fmt.Errorf("%w: VECTOR_DIMENSIONS", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND=%q", ErrUnsupportedBackend, c.VectorBackend)
	}

	if c.VectorIndex == "" {
		return fmt.Errorf("%w: VECTOR_INDEX", ErrMissingRequired)
	}

	if c.EnableFailedJobs {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	return nil
}

// DSN is the lib/pq connection string for the failed batch journal.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
