package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/models"
	"github.com/jenezis/harmonizer/internal/service"
)

// AdminHandler serves administrative endpoints.
type AdminHandler struct {
	reloader Reloader
	log      *logrus.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(reloader Reloader, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{reloader: reloader, log: log}
}

// Reload handles POST /api/v1/admin/reload. A failed load leaves the cache
// empty and degraded and is reported as 503.
func (h *AdminHandler) Reload(c *gin.Context) {
	stats, err := h.reloader.Reload(c.Request.Context(), service.TriggerAdmin)

	log := middleware.Entry(c, h.log)
	log.WithFields(logrus.Fields{
		"action":     "admin.reload",
		"client_ip":  c.ClientIP(),
		"ok":         err == nil,
		"aliases":    stats.Aliases,
		"canonicals": stats.Canonicals,
	}).Info("audit")

	if err != nil {
		log.WithError(err).Error("reloading taxonomy")
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "taxonomy reload failed; serving an empty taxonomy")

		return
	}

	c.JSON(http.StatusOK, models.ReloadResponse{
		Status:       "success",
		Message:      "taxonomy reloaded",
		AliasesCount: stats.Aliases,
		SkillsCount:  stats.Canonicals,
		Cache:        stats,
	})
}
