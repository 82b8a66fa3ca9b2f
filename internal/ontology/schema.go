// Package ontology filters extracted entities and relations down to the
// types an ontology schema allows, keeping relations referentially intact.
package ontology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema lists the allowed entity and relation types. Type names are
// compared case-sensitively.
type Schema struct {
	EntityTypes   []string `json:"entity_types" yaml:"entity_types"`
	RelationTypes []string `json:"relation_types" yaml:"relation_types"`
}

// IsEmpty reports whether the schema is unconfigured.
func (s Schema) IsEmpty() bool {
	return len(s.EntityTypes) == 0 && len(s.RelationTypes) == 0
}

// ParseSchema decodes a YAML (or JSON) schema document.
func ParseSchema(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("parsing ontology schema: %w", err)
	}

	return s, nil
}

// LoadSchema reads a schema file. An empty path yields the empty schema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return Schema{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("reading ontology schema: %w", err)
	}

	return ParseSchema(data)
}

func typeSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}

	return set
}
