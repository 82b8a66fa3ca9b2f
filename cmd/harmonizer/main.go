// Command harmonizer serves skill harmonization, suggestion, and ontology
// conformance over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/api"
	"github.com/jenezis/harmonizer/internal/config"
	"github.com/jenezis/harmonizer/internal/db"
	"github.com/jenezis/harmonizer/internal/events"
	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/llm"
	"github.com/jenezis/harmonizer/internal/metrics"
	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/ontology"
	"github.com/jenezis/harmonizer/internal/service"
	"github.com/jenezis/harmonizer/internal/taxonomy"
	"github.com/jenezis/harmonizer/internal/ws"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("reading .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel) // validated by config.Load
	log.SetLevel(level)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("harmonizer exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	backend, err := openBackend(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	sink := metrics.Sink{}
	cache := taxonomy.NewCache(backend.store, log, sink)

	harm, err := newHarmonizer(cfg, cache, log, sink)
	if err != nil {
		return err
	}

	schema, err := ontology.LoadSchema(cfg.OntologySchemaPath)
	if err != nil {
		return err
	}
	if schema.IsEmpty() {
		log.Info("no ontology schema configured, validation passes batches through")
	}
	validator := ontology.NewValidator(schema, log, sink)

	hub := ws.NewHub(log, cache.Status)
	go hub.Run(ctx)

	reloads := service.NewReloadService(cache, log, hub)
	worker := service.NewReloadWorker(reloads, log, 0)
	go worker.Run(ctx)

	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer nc.Drain() //nolint:errcheck // best-effort on shutdown

		bridge := events.NewBridge(nc, reloads, worker, log)
		if _, err := bridge.Subscribe(nc); err != nil {
			return err
		}
		reloads.AddNotifier(bridge)
		log.WithField("url", nc.ConnectedUrlRedacted()).Info("nats reload bridge enabled")
	}

	if backend.pool != nil && cfg.ReloadOnNotify {
		if err := db.NewNotifyBridge(log, backend.pool, worker).Start(ctx); err != nil {
			return err
		}
	}

	if _, err := reloads.Reload(startCtx, service.TriggerStartup); err != nil {
		// The cache serves an empty taxonomy until the next successful reload.
		log.WithError(err).Error("initial taxonomy load failed")
	}

	if cfg.APIAuthToken.Value() == "" {
		log.Warn("API_AUTH_TOKEN not set, admin routes are unauthenticated")
	}

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:           log,
		Harmonizer:    harm,
		Reloader:      reloads,
		Cache:         cache,
		Store:         backend.store,
		Validator:     validator,
		Hub:           hub,
		AuthToken:     cfg.APIAuthToken.Value(),
		CORSOrigins:   cfg.CORSOrigins,
		RateLimits:    rateLimits(cfg),
		Version:       config.Version,
		SchemaVersion: db.SchemaVersion(backend.migrations),
	})

	return serve(ctx, cfg.Addr(), router, hub, log)
}

// rateLimits derives per-class budgets from the configured rates. Admin
// reloads keep their fixed budget.
func rateLimits(cfg *config.Config) map[string]middleware.Limit {
	return map[string]middleware.Limit{
		middleware.ClassDefault: {Rate: cfg.RateLimit, Burst: 2 * cfg.RateLimit},
		middleware.ClassSuggest: {Rate: cfg.SuggestRateLimit, Burst: 2 * cfg.SuggestRateLimit},
		middleware.ClassAdmin:   middleware.DefaultLimits[middleware.ClassAdmin],
	}
}

func newHarmonizer(cfg *config.Config, cache *taxonomy.Cache, log *logrus.Logger, sink metrics.Sink) (*harmonizer.Service, error) {
	sim, err := harmonizer.MetricByName(cfg.SimilarityMetric)
	if err != nil {
		return nil, err
	}

	reranker, err := llm.New(llm.Config{
		Provider: cfg.RerankProvider,
		BaseURL:  cfg.RerankBaseURL,
		Model:    cfg.RerankModel,
		APIKey:   cfg.RerankAPIKey.Value(),
	}, log)
	if err != nil {
		return nil, err
	}

	return harmonizer.New(cache, log, harmonizer.Options{
		Similarity:        sim,
		MinScore:          cfg.SuggestMinScore,
		RerankContextSize: cfg.RerankContextSize,
		RerankTimeout:     cfg.RerankTimeout,
		Reranker:          reranker,
		Recorder:          sink,
	}), nil
}

func serve(ctx context.Context, addr string, handler http.Handler, hub *ws.Hub, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "version": config.Version}).Info("harmonizer listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
