// Package store reads the skill taxonomy from its backing database.
//
// Two backends exist: PostgreSQL through the shared pgx pool and SQLite
// through database/sql with go-sqlite3. Both run the same queries and wrap
// every failure with taxonomy.ErrBackingStore.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

const defaultQueryTimeout = 30 * time.Second

// Dialects returned by ParseURL.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ErrUnsupportedURL is returned by ParseURL for unknown schemes.
var ErrUnsupportedURL = errors.New("unsupported database URL")

// Counts are live row counts of the taxonomy tables.
type Counts struct {
	Skills    int64 `json:"total_skills"`
	Aliases   int64 `json:"total_aliases"`
	Relations int64 `json:"total_relations"`
}

// Backend is a taxonomy source that also reports counts and health.
type Backend interface {
	taxonomy.Source
	Counts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
	Dialect() string
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// backingErr wraps err so that callers can match taxonomy.ErrBackingStore.
func backingErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", taxonomy.ErrBackingStore, op, err)
}

// ParseURL maps DATABASE_URL to a dialect and a driver DSN.
// postgres:// and postgresql:// go to pgx unchanged; sqlite://path and
// file:path go to go-sqlite3 as a file path.
func ParseURL(raw string) (dialect, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DialectPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		dsn = strings.TrimPrefix(raw, "sqlite://")
	case strings.HasPrefix(raw, "file:"):
		dsn = strings.TrimPrefix(raw, "file:")
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedURL, redactURL(raw))
	}

	if dsn == "" {
		return "", "", fmt.Errorf("%w: empty sqlite path", ErrUnsupportedURL)
	}

	return DialectSQLite, dsn, nil
}

// redactURL keeps only the scheme of raw for error messages.
func redactURL(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[:i+3] + "…"
	}
	if len(raw) > 8 {
		return raw[:8] + "…"
	}

	return raw
}
