// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the matching engine, recommendation engine, scraper, LLM providers, and
// snapshot storage.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	Environment     string // "production", "staging", "development"
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir string // Directory for the SQLite knowledge base

	// Matching Configuration (embedded)
	Matching MatchingConfig

	// Recommendation Configuration (embedded)
	Recommend RecommendConfig

	// LLM Configuration
	OpenAIAPIKey  string // API key for the OpenAI-compatible provider
	OpenAIBaseURL string // Override for OpenAI-compatible endpoints (Groq, Together, proxies)
	OpenAIModel   string // Chat model name for the OpenAI-compatible provider
	GeminiAPIKey  string // Gemini API key
	GeminiModel   string // Gemini chat model name

	// LLM Provider Configuration
	LLMPrimaryProvider  string // "openai" or "gemini" (default: "openai")
	LLMFallbackProvider string // "openai" or "gemini" (default: "gemini")
	LLMTimeout          time.Duration

	// Scraper Configuration
	ScraperTimeout    time.Duration
	ScraperMaxRetries int
	ProgramPageURLs   map[string]string // program code -> admission page URL

	// Snapshot Storage (S3-compatible; disabled when unset)
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3Prefix          string
	SnapshotInterval  time.Duration

	// Observability
	SentryDSN           string
	SentrySampleRate    float64
	BetterstackToken    string
	BetterstackEndpoint string
	MetricsUsername     string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword     string // Password for /metrics Basic Auth (empty = no auth)
}

// MatchingConfig holds the QA matching thresholds and index settings.
type MatchingConfig struct {
	// SimilarityThreshold is the confident-match boundary: best similarity
	// at or above it answers directly.
	SimilarityThreshold float64
	// MinRelevance is the weak-match boundary: best similarity below it
	// yields the no-match response.
	MinRelevance float64
	// ExactMatchThreshold flags near-verbatim questions; informational only.
	ExactMatchThreshold float64
	// LLMModeThreshold gates the LLM provider: consulted only when the base
	// confidence falls below it.
	LLMModeThreshold float64
	// MaxFeatures caps the TF-IDF vocabulary size.
	MaxFeatures int
	// RelatedTopK is the default number of related questions returned.
	RelatedTopK int
}

// RecommendConfig holds the course recommendation defaults.
type RecommendConfig struct {
	TopK     int     // Default number of recommended courses
	MinScore float64 // Courses scoring below this are dropped
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// Server Configuration
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("ENVIRONMENT", "production"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", GracefulShutdown),

		// Data Configuration
		DataDir: getEnv("DATA_DIR", "data"),

		// Matching Configuration
		Matching: MatchingConfig{
			SimilarityThreshold: getFloatEnv("SIMILARITY_THRESHOLD", 0.7),
			MinRelevance:        getFloatEnv("MIN_RELEVANCE_SCORE", 0.5),
			ExactMatchThreshold: getFloatEnv("EXACT_MATCH_THRESHOLD", 0.9),
			LLMModeThreshold:    getFloatEnv("LLM_MODE_THRESHOLD", 0.5),
			MaxFeatures:         getIntEnv("MAX_FEATURES", 1000),
			RelatedTopK:         getIntEnv("RELATED_TOP_K", 3),
		},

		// Recommendation Configuration
		Recommend: RecommendConfig{
			TopK:     getIntEnv("RECOMMEND_TOP_K", 5),
			MinScore: getFloatEnv("RECOMMEND_MIN_SCORE", 0.1),
		},

		// LLM Configuration
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		LLMPrimaryProvider:  getEnv("LLM_PRIMARY_PROVIDER", "openai"),
		LLMFallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", "gemini"),
		LLMTimeout:          getDurationEnv("LLM_TIMEOUT", LLMRequest),

		// Scraper Configuration
		ScraperTimeout:    getDurationEnv("SCRAPER_TIMEOUT", ScraperRequest),
		ScraperMaxRetries: getIntEnv("SCRAPER_MAX_RETRIES", 3),
		ProgramPageURLs: map[string]string{
			"AI":         getEnv("ITMO_AI_URL", "https://abit.itmo.ru/program/master/ai"),
			"AI_Product": getEnv("ITMO_AI_PRODUCT_URL", "https://abit.itmo.ru/program/master/ai_product"),
		},

		// Snapshot Storage
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", "snapshots"),
		SnapshotInterval:  getDurationEnv("SNAPSHOT_INTERVAL", SnapshotUpload),

		// Observability
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		SentrySampleRate:    getFloatEnv("SENTRY_SAMPLE_RATE", 1.0),
		BetterstackToken:    getEnv("BETTERSTACK_TOKEN", ""),
		BetterstackEndpoint: getEnv("BETTERSTACK_ENDPOINT", ""),
		MetricsUsername:     getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword:     getEnv("METRICS_PASSWORD", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if err := c.Matching.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("matching config: %w", err))
	}
	if c.Recommend.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RECOMMEND_TOP_K must be positive, got %d", c.Recommend.TopK))
	}
	if c.Recommend.MinScore < 0 || c.Recommend.MinScore >= 1 {
		errs = append(errs, fmt.Errorf("RECOMMEND_MIN_SCORE must be in [0,1), got %v", c.Recommend.MinScore))
	}
	if c.ScraperTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_TIMEOUT must be positive, got %v", c.ScraperTimeout))
	}
	if c.ScraperMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_MAX_RETRIES cannot be negative, got %d", c.ScraperMaxRetries))
	}
	if !validProvider(c.LLMPrimaryProvider) {
		errs = append(errs, fmt.Errorf("LLM_PRIMARY_PROVIDER must be \"openai\" or \"gemini\", got %q", c.LLMPrimaryProvider))
	}
	if !validProvider(c.LLMFallbackProvider) {
		errs = append(errs, fmt.Errorf("LLM_FALLBACK_PROVIDER must be \"openai\" or \"gemini\", got %q", c.LLMFallbackProvider))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the matching thresholds for internal consistency.
func (m *MatchingConfig) Validate() error {
	var errs []error

	if m.MinRelevance <= 0 || m.MinRelevance > 1 {
		errs = append(errs, fmt.Errorf("MIN_RELEVANCE_SCORE must be in (0,1], got %v", m.MinRelevance))
	}
	if m.SimilarityThreshold <= 0 || m.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,1], got %v", m.SimilarityThreshold))
	}
	if m.MinRelevance > m.SimilarityThreshold {
		errs = append(errs, fmt.Errorf("MIN_RELEVANCE_SCORE (%v) cannot exceed SIMILARITY_THRESHOLD (%v)", m.MinRelevance, m.SimilarityThreshold))
	}
	if m.ExactMatchThreshold < m.SimilarityThreshold || m.ExactMatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("EXACT_MATCH_THRESHOLD must be in [SIMILARITY_THRESHOLD,1], got %v", m.ExactMatchThreshold))
	}
	if m.MaxFeatures <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FEATURES must be positive, got %d", m.MaxFeatures))
	}
	if m.RelatedTopK <= 0 {
		errs = append(errs, fmt.Errorf("RELATED_TOP_K must be positive, got %d", m.RelatedTopK))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validProvider(name string) bool {
	return name == "openai" || name == "gemini"
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// SQLitePath returns the full path to the SQLite knowledge base file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "advisor.db")
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.OpenAIAPIKey != "" || c.GeminiAPIKey != ""
}

// HasSnapshotStore returns true if S3-compatible snapshot storage is configured.
func (c *Config) HasSnapshotStore() bool {
	return c.S3Endpoint != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3Bucket != ""
}
