// Package dbpool owns the PostgreSQL connection pool behind the taxonomy
// store and the reload listener.
package dbpool

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Options size the pool. Zero fields take the defaults from DefaultOptions.
type Options struct {
	// MaxConns includes the connection held by the LISTEN bridge.
	MaxConns         int32
	StatementTimeout time.Duration
	ApplicationName  string
}

// DefaultOptions suit a read-mostly service: loads are three sequential
// queries, so a handful of connections is plenty.
func DefaultOptions() Options {
	return Options{
		MaxConns:         9,
		StatementTimeout: 30 * time.Second,
		ApplicationName:  "harmonizer",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxConns <= 0 {
		o.MaxConns = d.MaxConns
	}
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = d.StatementTimeout
	}
	if o.ApplicationName == "" {
		o.ApplicationName = d.ApplicationName
	}
	return o
}

// Pool is the shared pgx pool. Callers reach the database only through its
// methods so that reads can be grouped into snapshots.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string, opts Options) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	opts = opts.withDefaults()
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Snapshot runs fn inside a read-only REPEATABLE READ transaction, so every
// query fn issues sees the same committed state of the taxonomy tables.
func (p *Pool) Snapshot(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, fn)
}

// Acquire returns a dedicated connection, used by the LISTEN bridge.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return p.pool.Acquire(ctx)
}

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

// Query runs a query that returns rows.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// QueryRow runs a query that returns at most one row.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Ping checks that a connection can be acquired and answers.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// ConnString returns the URL the pool was created from, for goose.
func (p *Pool) ConnString() string {
	return p.pool.Config().ConnString()
}

// Collector exposes pool occupancy as harmonizer_db_pool_* gauges.
func (p *Pool) Collector() prometheus.Collector {
	return poolCollector{p: p.pool}
}

// Close closes every connection.
func (p *Pool) Close() {
	p.pool.Close()
}

var (
	poolTotalDesc    = prometheus.NewDesc("harmonizer_db_pool_connections", "Open connections in the pool.", nil, nil)
	poolAcquiredDesc = prometheus.NewDesc("harmonizer_db_pool_acquired_connections", "Connections currently checked out.", nil, nil)
	poolIdleDesc     = prometheus.NewDesc("harmonizer_db_pool_idle_connections", "Idle connections.", nil, nil)
	poolWaitDesc     = prometheus.NewDesc("harmonizer_db_pool_wait_seconds_total", "Time spent waiting for a connection.", nil, nil)
)

type poolCollector struct {
	p *pgxpool.Pool
}

func (c poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolTotalDesc
	ch <- poolAcquiredDesc
	ch <- poolIdleDesc
	ch <- poolWaitDesc
}

func (c poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.p.Stat()
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(poolAcquiredDesc, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(poolWaitDesc, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
