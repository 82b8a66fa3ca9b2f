package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/models"
)

// HarmonizeHandler serves the harmonize and suggest endpoints.
type HarmonizeHandler struct {
	svc HarmonizerService
	log *logrus.Logger
}

// NewHarmonizeHandler creates a HarmonizeHandler.
func NewHarmonizeHandler(svc HarmonizerService, log *logrus.Logger) *HarmonizeHandler {
	return &HarmonizeHandler{svc: svc, log: log}
}

// Harmonize handles POST /api/v1/harmonize.
func (h *HarmonizeHandler) Harmonize(c *gin.Context) {
	var req models.HarmonizeRequest
	if !bindRequest(c, &req) {
		return
	}

	results := h.svc.HarmonizeBatch(req.Skills)

	middleware.Entry(c, h.log).WithFields(logrus.Fields{"action": "harmonize", "count": len(results)}).Debug("request handled")

	c.JSON(http.StatusOK, models.HarmonizeResponse{Results: results})
}

// Suggest handles POST /api/v1/suggest.
func (h *HarmonizeHandler) Suggest(c *gin.Context) {
	var req models.SuggestRequest
	if !bindRequest(c, &req) {
		return
	}

	res, err := h.svc.Suggest(c.Request.Context(), req.Skill, req.TopK, req.UseLLM)
	if err != nil {
		if errors.Is(err, harmonizer.ErrInvalidArgument) {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

			return
		}

		middleware.Entry(c, h.log).WithError(err).Error("suggesting")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	middleware.Entry(c, h.log).WithFields(logrus.Fields{
		"action": "suggest",
		"method": res.Method,
		"count":  len(res.Suggestions),
	}).Debug("request handled")

	c.JSON(http.StatusOK, res)
}
