package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/dbpool"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

var (
	_ Backend                 = (*Postgres)(nil)
	_ taxonomy.SnapshotSource = (*Postgres)(nil)
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads the taxonomy through the shared pgx pool.
type Postgres struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

// NewPostgres creates a Postgres backend over pool.
func NewPostgres(pool *dbpool.Pool, log *logrus.Logger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

// Dialect returns DialectPostgres.
func (p *Postgres) Dialect() string { return DialectPostgres }

// Ping verifies the database answers.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := p.pool.Ping(ctx); err != nil {
		return backingErr("ping", err)
	}
	return nil
}

// ReadAll loads aliases, canonicals and hierarchy from one read-only
// snapshot.
func (p *Postgres) ReadAll(ctx context.Context) (taxonomy.Tables, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var t taxonomy.Tables
	err := p.pool.Snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		if t.Aliases, err = readAliases(ctx, tx); err != nil {
			return err
		}
		if t.Canonicals, err = readCanonicals(ctx, tx); err != nil {
			return err
		}
		t.Edges, err = readHierarchy(ctx, tx)
		return err
	})
	if err != nil {
		return taxonomy.Tables{}, backingErr("reading taxonomy snapshot", err)
	}

	p.log.WithFields(logrus.Fields{
		"aliases":    len(t.Aliases),
		"canonicals": len(t.Canonicals),
		"edges":      len(t.Edges),
	}).Debug("taxonomy tables read")

	return t, nil
}

// Aliases returns every (alias, canonical) pair in load order.
func (p *Postgres) Aliases(ctx context.Context) ([]taxonomy.Alias, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	aliases, err := readAliases(ctx, p.pool)
	if err != nil {
		return nil, backingErr("reading aliases", err)
	}
	return aliases, nil
}

// Canonicals returns every canonical term with its surrogate id.
func (p *Postgres) Canonicals(ctx context.Context) ([]taxonomy.CanonicalTerm, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	terms, err := readCanonicals(ctx, p.pool)
	if err != nil {
		return nil, backingErr("reading skills", err)
	}
	return terms, nil
}

// Hierarchy returns every child -> parent edge in load order.
func (p *Postgres) Hierarchy(ctx context.Context) ([]taxonomy.HierarchyEdge, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	edges, err := readHierarchy(ctx, p.pool)
	if err != nil {
		return nil, backingErr("reading hierarchy", err)
	}
	return edges, nil
}

// Counts returns live table counts.
func (p *Postgres) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c Counts
	if err := p.pool.QueryRow(ctx, countsQuery).Scan(&c.Skills, &c.Aliases, &c.Relations); err != nil {
		return Counts{}, backingErr("counting taxonomy rows", err)
	}

	return c, nil
}

func readAliases(ctx context.Context, q querier) ([]taxonomy.Alias, error) {
	rows, err := q.Query(ctx, aliasesQuery)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (taxonomy.Alias, error) {
		var a taxonomy.Alias
		err := row.Scan(&a.Alias, &a.Canonical)
		return a, err
	})
}

func readCanonicals(ctx context.Context, q querier) ([]taxonomy.CanonicalTerm, error) {
	rows, err := q.Query(ctx, canonicalsQuery)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (taxonomy.CanonicalTerm, error) {
		var t taxonomy.CanonicalTerm
		err := row.Scan(&t.SurrogateID, &t.Name)
		return t, err
	})
}

func readHierarchy(ctx context.Context, q querier) ([]taxonomy.HierarchyEdge, error) {
	rows, err := q.Query(ctx, hierarchyQuery)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (taxonomy.HierarchyEdge, error) {
		var e taxonomy.HierarchyEdge
		err := row.Scan(&e.Child, &e.Parent)
		return e, err
	})
}
