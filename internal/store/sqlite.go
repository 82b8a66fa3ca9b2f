package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 database/sql driver
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

var _ Backend = (*SQLite)(nil)

// SQLite reads the taxonomy from a local database file.
type SQLite struct {
	db  *sql.DB
	log *logrus.Logger
}

// OpenSQLite opens (or creates) the database at path. The schema is applied
// separately by the migration runner.
func OpenSQLite(path string, log *logrus.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &SQLite{db: db, log: log}, nil
}

// DB returns the underlying handle for migrations and seeding.
func (s *SQLite) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Dialect returns DialectSQLite.
func (s *SQLite) Dialect() string { return DialectSQLite }

// Ping verifies the database file is readable.
func (s *SQLite) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return s.db.PingContext(ctx)
}

// Aliases returns every (alias, canonical) pair in load order.
func (s *SQLite) Aliases(ctx context.Context) ([]taxonomy.Alias, error) {
	return collect(ctx, s.db, aliasesQuery, "aliases", func(rows *sql.Rows) (taxonomy.Alias, error) {
		var a taxonomy.Alias
		err := rows.Scan(&a.Alias, &a.Canonical)
		return a, err
	})
}

// Canonicals returns every canonical term with its surrogate id.
func (s *SQLite) Canonicals(ctx context.Context) ([]taxonomy.CanonicalTerm, error) {
	return collect(ctx, s.db, canonicalsQuery, "skills", func(rows *sql.Rows) (taxonomy.CanonicalTerm, error) {
		var t taxonomy.CanonicalTerm
		err := rows.Scan(&t.SurrogateID, &t.Name)
		return t, err
	})
}

// Hierarchy returns every child -> parent edge in load order.
func (s *SQLite) Hierarchy(ctx context.Context) ([]taxonomy.HierarchyEdge, error) {
	return collect(ctx, s.db, hierarchyQuery, "hierarchy", func(rows *sql.Rows) (taxonomy.HierarchyEdge, error) {
		var e taxonomy.HierarchyEdge
		err := rows.Scan(&e.Child, &e.Parent)
		return e, err
	})
}

// Counts returns live table counts.
func (s *SQLite) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c Counts
	if err := s.db.QueryRowContext(ctx, countsQuery).Scan(&c.Skills, &c.Aliases, &c.Relations); err != nil {
		return Counts{}, backingErr("counting taxonomy rows", err)
	}

	return c, nil
}

func collect[T any](ctx context.Context, db *sql.DB, query, table string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, backingErr("querying "+table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, backingErr("scanning "+table, err)
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, backingErr("iterating "+table, err)
	}

	return out, nil
}
