package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/ontology"
	"github.com/jenezis/harmonizer/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log           *logrus.Logger
	Harmonizer    HarmonizerService
	Reloader      Reloader
	Cache         CacheStatus
	Store         TaxonomyStore
	Validator     *ontology.Validator
	Hub           *ws.Hub
	AuthToken     string
	CORSOrigins   []string
	RateLimits    map[string]middleware.Limit
	Version       string
	SchemaVersion int
}

// maxBodySize caps request bodies. Validation batches are the largest.
const maxBodySize = 10 << 20

const metricsPath = "/metrics"

// setupMiddleware installs the global middleware chain and returns the rate
// limiter so routes can charge their own class.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) *middleware.RateLimiter {
	limits := deps.RateLimits
	if limits == nil {
		limits = middleware.DefaultLimits
	}
	limiter := middleware.NewRateLimiter(ctx, limits)

	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.AccessLog(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics(metricsPath))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(limiter.Handler(middleware.ClassDefault))
	r.Use(middleware.JSONBody(maxBodySize))

	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	return limiter
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps, limiter *middleware.RateLimiter) {
	log := deps.Log

	health := NewHealthHandler(deps.Store, deps.Cache, log, deps.Version, deps.SchemaVersion)
	harmonize := NewHarmonizeHandler(deps.Harmonizer, log)
	stats := NewStatsHandler(deps.Store, deps.Cache, log)
	onto := NewOntologyHandler(deps.Validator, log)
	admin := NewAdminHandler(deps.Reloader, log)
	events := NewEventsHandler(ctx, deps.Hub, deps.CORSOrigins, log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)
	api.GET("/stats", stats.GetStats)

	api.POST("/harmonize", harmonize.Harmonize)
	api.POST("/suggest", limiter.Handler(middleware.ClassSuggest), harmonize.Suggest)
	api.POST("/ontology/validate", onto.Validate)

	// Admin routes and the event stream require the API token.
	guard := middleware.NewBruteForceGuard(ctx, log)
	authed := api.Group("", middleware.TokenAuth(deps.AuthToken, log, guard))

	authed.POST("/admin/reload", limiter.Handler(middleware.ClassAdmin), admin.Reload)
	authed.GET("/events", events.Subscribe)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	limiter := setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps, limiter)

	return r
}
