package client

import (
	"encoding/json"
	"time"
)

// HarmonizeResult maps one input skill onto its canonical name.
type HarmonizeResult struct {
	Original  string `json:"original_skill"`
	Canonical string `json:"canonical_skill"`
	IsKnown   bool   `json:"is_known"`
}

// Suggestion is one ranked canonical candidate.
type Suggestion struct {
	CanonicalName string   `json:"canonical_name"`
	Score         float64  `json:"similarity_score"`
	Parents       []string `json:"parents"`
}

// SuggestRequest is the payload of Skills.Suggest. A zero TopK lets the
// server pick its default.
type SuggestRequest struct {
	Skill  string `json:"skill"`
	TopK   int    `json:"top_k,omitempty"`
	UseLLM bool   `json:"use_llm,omitempty"`
}

// SuggestResponse is the ranked answer for one skill. Method is
// "similarity" or "llm".
type SuggestResponse struct {
	Original    string       `json:"original_skill"`
	Suggestions []Suggestion `json:"suggestions"`
	Method      string       `json:"method"`
}

// CacheStats describes the installed taxonomy snapshot.
type CacheStats struct {
	Aliases    int       `json:"alias_count"`
	Canonicals int       `json:"canonical_count"`
	Edges      int       `json:"edge_count"`
	Generation uint64    `json:"generation"`
	State      string    `json:"state"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
}

// ReloadResponse is returned by Admin.Reload.
type ReloadResponse struct {
	Status       string     `json:"status"`
	Message      string     `json:"message"`
	AliasesCount int        `json:"aliases_count"`
	SkillsCount  int        `json:"skills_count"`
	Cache        CacheStats `json:"cache"`
}

// StatsResponse holds taxonomy counts. Source is "store" or "cache".
type StatsResponse struct {
	TotalSkills    int    `json:"total_skills"`
	TotalAliases   int    `json:"total_aliases"`
	TotalRelations int    `json:"total_relations"`
	Database       string `json:"database"`
	Source         string `json:"source"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	CacheLoaded   bool       `json:"cache_loaded"`
	Database      string     `json:"database"`
	AliasesCount  int        `json:"aliases_count"`
	SkillsCount   int        `json:"skills_count"`
	Cache         CacheStats `json:"cache"`
	UptimeSeconds float64    `json:"uptime_seconds"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int               `json:"schema_version"`
}

// Schema is the set of admissible entity and relation types.
type Schema struct {
	EntityTypes   []string `json:"entity_types" yaml:"entity_types"`
	RelationTypes []string `json:"relation_types" yaml:"relation_types"`
}

// ValidateRequest carries an extracted batch. Records are passed through
// verbatim so that fields beyond id/type/source_id/target_id survive. A nil
// Schema validates against the server's configured schema.
type ValidateRequest struct {
	Entities  []json.RawMessage `json:"entities"`
	Relations []json.RawMessage `json:"relations"`
	Schema    *Schema           `json:"schema,omitempty"`
}

// ValidateResponse is the filtered batch.
type ValidateResponse struct {
	Entities         []json.RawMessage `json:"valid_entities"`
	Relations        []json.RawMessage `json:"valid_relations"`
	DroppedEntities  int               `json:"dropped_entities"`
	DroppedRelations int               `json:"dropped_relations"`
	Bypassed         bool              `json:"bypassed"`
}

// Event is a server push received from Admin.Subscribe.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
	Time time.Time       `json:"time"`
	// Reason is set on "reset" messages.
	Reason string `json:"reason,omitempty"`
	// LastEventID and Cache are set on the "welcome" message that opens
	// every stream.
	LastEventID uint64      `json:"last_event_id,omitempty"`
	Cache       *CacheStats `json:"cache,omitempty"`
}

// Event types.
const (
	EventWelcome              = "welcome"
	EventReset                = "reset"
	EventShutdown             = "shutdown"
	EventTaxonomyReloaded     = "taxonomy.reloaded"
	EventTaxonomyReloadFailed = "taxonomy.reload_failed"
)

// SubscribeOptions select what the event stream delivers.
type SubscribeOptions struct {
	// LastEventID asks the server to replay events after this ID.
	LastEventID uint64
	// Events restricts delivery to these taxonomy event types. Control
	// messages (welcome, reset, shutdown) are always delivered.
	Events []string
}
