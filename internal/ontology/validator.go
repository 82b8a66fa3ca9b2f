package ontology

import (
	"github.com/sirupsen/logrus"
)

// Recorder receives filter counts. Fire-and-forget.
type Recorder interface {
	OntologyFiltered(droppedEntities, droppedRelations int)
}

// Result is one filtered extraction batch.
type Result struct {
	Entities         []Entity   `json:"valid_entities"`
	Relations        []Relation `json:"valid_relations"`
	DroppedEntities  int        `json:"dropped_entities"`
	DroppedRelations int        `json:"dropped_relations"`
	Bypassed         bool       `json:"bypassed"`
}

// Validator filters batches against a fixed schema. It is safe for
// concurrent use.
type Validator struct {
	schema        Schema
	entityTypes   map[string]struct{}
	relationTypes map[string]struct{}
	log           *logrus.Logger
	rec           Recorder
}

// NewValidator builds a validator for schema. rec may be nil.
func NewValidator(schema Schema, log *logrus.Logger, rec Recorder) *Validator {
	return &Validator{
		schema:        schema,
		entityTypes:   typeSet(schema.EntityTypes),
		relationTypes: typeSet(schema.RelationTypes),
		log:           log,
		rec:           rec,
	}
}

// Schema returns the schema the validator enforces.
func (v *Validator) Schema() Schema {
	return v.schema
}

// WithSchema returns a validator sharing v's logger and recorder.
func (v *Validator) WithSchema(schema Schema) *Validator {
	return NewValidator(schema, v.log, v.rec)
}

// ValidateAndFilter keeps entities with an id and an allowed type, then
// relations with an allowed type whose endpoints both survived. Input order
// is preserved. With an empty schema the inputs are returned as-is.
func (v *Validator) ValidateAndFilter(entities []Entity, relations []Relation) Result {
	if v.schema.IsEmpty() {
		v.log.Debug("no ontology schema configured, passing extraction through")
		return Result{Entities: entities, Relations: relations, Bypassed: true}
	}

	res := Result{
		Entities:  make([]Entity, 0, len(entities)),
		Relations: make([]Relation, 0, len(relations)),
	}

	ids := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		key := e.idKey()
		if _, ok := v.entityTypes[e.Type]; !ok || key == "" {
			res.DroppedEntities++
			continue
		}
		ids[key] = struct{}{}
		res.Entities = append(res.Entities, e)
	}

	for _, r := range relations {
		if _, ok := v.relationTypes[r.Type]; !ok {
			res.DroppedRelations++
			continue
		}
		_, srcOK := ids[r.sourceIDKey()]
		_, dstOK := ids[r.targetIDKey()]
		if !srcOK || !dstOK {
			res.DroppedRelations++
			continue
		}
		res.Relations = append(res.Relations, r)
	}

	if res.DroppedEntities > 0 || res.DroppedRelations > 0 {
		v.log.WithFields(logrus.Fields{
			"dropped_entities":  res.DroppedEntities,
			"dropped_relations": res.DroppedRelations,
			"kept_entities":     len(res.Entities),
			"kept_relations":    len(res.Relations),
		}).Warn("filtered extraction records not conforming to ontology")
	}

	if v.rec != nil {
		v.rec.OntologyFiltered(res.DroppedEntities, res.DroppedRelations)
	}

	return res
}
