package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateMatching(); err != nil {
		return err
	}

	return c.validateMessaging()
}

func (c *Config) validateDatabase() error {
	raw := c.DatabaseURL.Value()
	if raw == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if strings.HasPrefix(raw, "file:") {
		return nil
	}

	dbURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	switch dbURL.Scheme {
	case "sqlite":
		if dbURL.Host == "" && dbURL.Path == "" && dbURL.Opaque == "" {
			return fmt.Errorf("DATABASE_URL sqlite:// must name a file")
		}
		return nil
	case "postgres", "postgresql":
	default:
		return fmt.Errorf("DATABASE_URL scheme must be postgres://, postgresql://, sqlite:// or file:")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if !isLoopback(dbHost) && dbURL.Query().Get("sslmode") == "disable" {
		return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local runs; 0.0.0.0/:: for containers where the network
	// boundary is enforced externally.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	if !isLoopback(c.ListenHost) && c.APIAuthToken.Value() == "" {
		return fmt.Errorf("API_AUTH_TOKEN is required when LISTEN_HOST is not a loopback address")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateMatching() error {
	switch c.SimilarityMetric {
	case "ratcliff", "levenshtein":
	default:
		return fmt.Errorf("SIMILARITY_METRIC must be 'ratcliff' or 'levenshtein', got %q", c.SimilarityMetric)
	}

	switch c.RerankProvider {
	case "":
	case "openai":
		if c.RerankAPIKey.Value() == "" {
			return fmt.Errorf("RERANK_API_KEY is required when RERANK_PROVIDER is openai")
		}
	case "ollama":
	default:
		return fmt.Errorf("RERANK_PROVIDER must be empty, 'openai' or 'ollama', got %q", c.RerankProvider)
	}

	if c.RerankBaseURL != "" {
		u, err := url.ParseRequestURI(c.RerankBaseURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("RERANK_BASE_URL is not a valid URL")
		}
		if !isLoopback(u.Hostname()) && u.Scheme != "https" {
			return fmt.Errorf("RERANK_BASE_URL must use HTTPS for non-localhost endpoints")
		}
	}

	return nil
}

func (c *Config) validateMessaging() error {
	if c.NATSURL == "" {
		return nil
	}

	u, err := url.Parse(c.NATSURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("NATS_URL is not a valid URL")
	}

	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("NATS_URL scheme must be nats://, tls://, ws:// or wss://")
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
