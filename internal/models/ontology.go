package models

import "github.com/jenezis/harmonizer/internal/ontology"

// Ontology batch limits.
const (
	MaxBatchEntities  = 10000
	MaxBatchRelations = 50000
)

// ValidateRequest is the payload of POST /api/v1/ontology/validate. A nil
// Schema selects the server's configured schema.
type ValidateRequest struct {
	Entities  []ontology.Entity   `json:"entities"`
	Relations []ontology.Relation `json:"relations"`
	Schema    *ontology.Schema    `json:"schema,omitempty"`
}

// Validate checks batch sizes.
func (r *ValidateRequest) Validate() error {
	if len(r.Entities) > MaxBatchEntities {
		return ErrTooManyRecords("entities", MaxBatchEntities)
	}

	if len(r.Relations) > MaxBatchRelations {
		return ErrTooManyRecords("relations", MaxBatchRelations)
	}

	return nil
}

// ValidateResponse is the filtered batch.
type ValidateResponse = ontology.Result
