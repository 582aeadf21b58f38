package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
	EmbeddingModel   string
}

type StorageConfig struct {
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

// RetrievalConfig holds the query-time knobs: the similarity floor, the
// result cap, the assembled-context character budget, and the context cache.
type RetrievalConfig struct {
	Threshold       float64
	MaxResults      int
	MaxContextChars int
	CacheTTL        time.Duration
}

type IngestConfig struct {
	ChunkMaxTokens int
	SweepAfter     time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	threshold, err := getEnvFloat("RETRIEVAL_THRESHOLD", 0.78)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_THRESHOLD: %w", err)
	}

	maxResults, err := getEnvInt("RETRIEVAL_MAX_RESULTS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_MAX_RESULTS: %w", err)
	}

	maxContextChars, err := getEnvInt("RETRIEVAL_MAX_CONTEXT_CHARS", 12000)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_MAX_CONTEXT_CHARS: %w", err)
	}

	cacheTTL, err := getEnvDuration("RETRIEVAL_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_CACHE_TTL: %w", err)
	}

	chunkMaxTokens, err := getEnvInt("INGEST_CHUNK_MAX_TOKENS", 512)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_CHUNK_MAX_TOKENS: %w", err)
	}

	sweepAfter, err := getEnvDuration("INGEST_SWEEP_AFTER", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_SWEEP_AFTER: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Storage: StorageConfig{
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:      getEnv("STORAGE_BUCKET", "documents"),
		},
		Retrieval: RetrievalConfig{
			Threshold:       threshold,
			MaxResults:      maxResults,
			MaxContextChars: maxContextChars,
			CacheTTL:        cacheTTL,
		},
		Ingest: IngestConfig{
			ChunkMaxTokens: chunkMaxTokens,
			SweepAfter:     sweepAfter,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.LLM.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		return fmt.Errorf("RETRIEVAL_THRESHOLD must be in [0,1], got %v", c.Retrieval.Threshold)
	}
	if c.Retrieval.MaxResults < 1 {
		return fmt.Errorf("RETRIEVAL_MAX_RESULTS must be >= 1, got %d", c.Retrieval.MaxResults)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
