// Package config provides environment-driven configuration for the harmonizer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL   Secret
	Port          string
	ListenHost    string
	LogLevel      string
	APIAuthToken  Secret
	CORSOrigins   []string
	RunMigrations bool

	// Requests per second per client; bursts allow twice the rate.
	RateLimit        float64
	SuggestRateLimit float64

	SimilarityMetric  string
	SuggestMinScore   float64
	RerankContextSize int

	RerankProvider string
	RerankBaseURL  string
	RerankModel    string
	RerankAPIKey   Secret
	RerankTimeout  time.Duration

	OntologySchemaPath string

	NATSURL        string
	ReloadOnNotify bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        Secret(envOrDefault("DATABASE_URL", "")),
		Port:               envOrDefault("PORT", "8000"),
		ListenHost:         envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		APIAuthToken:       Secret(envOrDefault("API_AUTH_TOKEN", "")),
		SimilarityMetric:   envOrDefault("SIMILARITY_METRIC", "ratcliff"),
		RerankProvider:     envOrDefault("RERANK_PROVIDER", ""),
		RerankBaseURL:      envOrDefault("RERANK_BASE_URL", ""),
		RerankModel:        envOrDefault("RERANK_MODEL", ""),
		RerankAPIKey:       Secret(envOrDefault("RERANK_API_KEY", "")),
		OntologySchemaPath: envOrDefault("ONTOLOGY_SCHEMA_PATH", ""),
		NATSURL:            envOrDefault("NATS_URL", ""),
	}

	var err error

	if cfg.RunMigrations, err = strconv.ParseBool(envOrDefault("RUN_MIGRATIONS", "true")); err != nil {
		return nil, fmt.Errorf("RUN_MIGRATIONS must be a boolean")
	}

	if cfg.ReloadOnNotify, err = strconv.ParseBool(envOrDefault("RELOAD_ON_NOTIFY", "true")); err != nil {
		return nil, fmt.Errorf("RELOAD_ON_NOTIFY must be a boolean")
	}

	cfg.SuggestMinScore, err = strconv.ParseFloat(envOrDefault("SUGGEST_MIN_SCORE", "0.3"), 64)
	if err != nil || cfg.SuggestMinScore < 0 || cfg.SuggestMinScore >= 1 {
		return nil, fmt.Errorf("SUGGEST_MIN_SCORE must be a number in [0, 1)")
	}

	if cfg.RateLimit, err = positiveFloat("RATE_LIMIT", "100"); err != nil {
		return nil, err
	}

	if cfg.SuggestRateLimit, err = positiveFloat("RATE_LIMIT_SUGGEST", "10"); err != nil {
		return nil, err
	}

	cfg.RerankContextSize, err = strconv.Atoi(envOrDefault("RERANK_CONTEXT_SIZE", "50"))
	if err != nil || cfg.RerankContextSize < 1 || cfg.RerankContextSize > 1000 {
		return nil, fmt.Errorf("RERANK_CONTEXT_SIZE must be an integer between 1 and 1000")
	}

	cfg.RerankTimeout, err = time.ParseDuration(envOrDefault("RERANK_TIMEOUT", "10s"))
	if err != nil || cfg.RerankTimeout <= 0 {
		return nil, fmt.Errorf("RERANK_TIMEOUT must be a positive duration")
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func positiveFloat(key, fallback string) (float64, error) {
	v, err := strconv.ParseFloat(envOrDefault(key, fallback), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", key)
	}

	return v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
