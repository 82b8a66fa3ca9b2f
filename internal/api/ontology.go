package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/models"
	"github.com/jenezis/harmonizer/internal/ontology"
)

// OntologyHandler serves the ontology conformance endpoint.
type OntologyHandler struct {
	validator *ontology.Validator
	log       *logrus.Logger
}

// NewOntologyHandler creates an OntologyHandler around the configured validator.
func NewOntologyHandler(validator *ontology.Validator, log *logrus.Logger) *OntologyHandler {
	return &OntologyHandler{validator: validator, log: log}
}

// Validate handles POST /api/v1/ontology/validate. A schema in the request
// body replaces the configured one for that call only.
func (h *OntologyHandler) Validate(c *gin.Context) {
	var req models.ValidateRequest
	if !bindRequest(c, &req) {
		return
	}

	v := h.validator
	if req.Schema != nil {
		v = v.WithSchema(*req.Schema)
	}

	res := v.ValidateAndFilter(req.Entities, req.Relations)

	if res.Entities == nil {
		res.Entities = []ontology.Entity{}
	}
	if res.Relations == nil {
		res.Relations = []ontology.Relation{}
	}

	c.JSON(http.StatusOK, res)
}
