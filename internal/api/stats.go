package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/models"
)

// StatsHandler serves the taxonomy statistics endpoint.
type StatsHandler struct {
	store TaxonomyStore
	cache CacheStatus
	log   *logrus.Logger
}

// NewStatsHandler creates a StatsHandler with the given dependencies.
func NewStatsHandler(store TaxonomyStore, cache CacheStatus, log *logrus.Logger) *StatsHandler {
	return &StatsHandler{store: store, cache: cache, log: log}
}

// GetStats handles GET /api/v1/stats. When the store cannot be queried the
// counts of the installed snapshot are returned instead.
func (h *StatsHandler) GetStats(c *gin.Context) {
	resp := models.StatsResponse{
		Database: h.store.Dialect(),
		Source:   models.StatsFromStore,
	}

	counts, err := h.store.Counts(c.Request.Context())
	if err == nil {
		resp.TotalSkills = int(counts.Skills)
		resp.TotalAliases = int(counts.Aliases)
		resp.TotalRelations = int(counts.Relations)

		c.JSON(http.StatusOK, resp)

		return
	}

	middleware.Entry(c, h.log).WithError(err).Warn("stats: store query failed, using cached counts")

	st := h.cache.Status()
	resp.TotalSkills = st.Canonicals
	resp.TotalAliases = st.Aliases
	resp.TotalRelations = st.Edges
	resp.Source = models.StatsFromCache

	c.JSON(http.StatusOK, resp)
}
