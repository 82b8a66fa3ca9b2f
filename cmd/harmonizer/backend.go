package main

import (
	"context"
	"io/fs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/config"
	"github.com/jenezis/harmonizer/internal/db"
	"github.com/jenezis/harmonizer/internal/db/migrations"
	"github.com/jenezis/harmonizer/internal/dbpool"
	"github.com/jenezis/harmonizer/internal/store"
)

// backend is the opened taxonomy store plus what main needs to manage it.
// pool is nil for SQLite.
type backend struct {
	store      store.Backend
	pool       *dbpool.Pool
	migrations fs.FS
	close      func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*backend, error) {
	dialect, dsn, err := store.ParseURL(cfg.DatabaseURL.Value())
	if err != nil {
		return nil, err
	}

	if dialect == store.DialectSQLite {
		lite, err := store.OpenSQLite(dsn, log)
		if err != nil {
			return nil, err
		}

		if cfg.RunMigrations {
			if err := db.MigrateSQLite(ctx, lite.DB(), log); err != nil {
				lite.Close() //nolint:errcheck // already failing
				return nil, err
			}
		}

		return &backend{
			store:      lite,
			migrations: migrations.SQLite(),
			close:      func() { lite.Close() }, //nolint:errcheck // shutdown
		}, nil
	}

	pool, err := dbpool.NewPool(ctx, dsn, dbpool.DefaultOptions())
	if err != nil {
		return nil, err
	}

	if err := prometheus.Register(pool.Collector()); err != nil {
		log.WithError(err).Warn("registering pool metrics")
	}

	if cfg.RunMigrations {
		if err := db.MigratePostgres(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &backend{
		store:      store.NewPostgres(pool, log),
		pool:       pool,
		migrations: migrations.Postgres(),
		close:      pool.Close,
	}, nil
}
