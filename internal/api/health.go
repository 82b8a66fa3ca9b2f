// Package api provides HTTP handlers for the harmonizer.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/models"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	store         TaxonomyStore
	cache         CacheStatus
	log           *logrus.Logger
	version       string
	schemaVersion int
	startTime     time.Time
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(store TaxonomyStore, cache CacheStatus, log *logrus.Logger, version string, schemaVersion int) *HealthHandler {
	return &HealthHandler{
		store:         store,
		cache:         cache,
		log:           log,
		version:       version,
		schemaVersion: schemaVersion,
		startTime:     time.Now(),
	}
}

// pingStore reports "connected", "disconnected" or "not_configured".
func (h *HealthHandler) pingStore(ctx context.Context) string {
	if h.store == nil {
		return "not_configured"
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("health: database ping failed")

		return "disconnected"
	}

	return "connected"
}

// Liveness handles GET /api/v1/health. It always answers 200; a cache that is
// not loaded or an unreachable database is reported as degraded.
func (h *HealthHandler) Liveness(c *gin.Context) {
	st := h.cache.Status()

	resp := models.HealthResponse{
		Status:        models.StatusHealthy,
		Version:       h.version,
		CacheLoaded:   st.State == taxonomy.StateLoaded,
		Database:      h.pingStore(c.Request.Context()),
		AliasesCount:  st.Aliases,
		SkillsCount:   st.Canonicals,
		Cache:         st,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if !resp.CacheLoaded || resp.Database != "connected" {
		resp.Status = models.StatusDegraded
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. The service is ready once the database
// answers and at least one load has been attempted.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "ok",
		"cache":    string(h.cache.Status().State),
	}
	status := "ready"
	statusCode := http.StatusOK

	if h.pingStore(c.Request.Context()) != "connected" {
		checks["database"] = "error"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	if checks["cache"] == string(taxonomy.StateEmpty) {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.ReadinessResponse{
		Status:        status,
		Checks:        checks,
		SchemaVersion: h.schemaVersion,
	})
}
