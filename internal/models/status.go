package models

import "github.com/jenezis/harmonizer/internal/taxonomy"

// Stats sources.
const (
	StatsFromStore = "store"
	StatsFromCache = "cache"
)

// StatsResponse is returned by GET /api/v1/stats. Counts come from the
// backing store, or from the installed snapshot when the store is unreachable.
type StatsResponse struct {
	TotalSkills    int    `json:"total_skills"`
	TotalAliases   int    `json:"total_aliases"`
	TotalRelations int    `json:"total_relations"`
	Database       string `json:"database"`
	Source         string `json:"source"`
}

// Health states.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	CacheLoaded   bool           `json:"cache_loaded"`
	Database      string         `json:"database"`
	AliasesCount  int            `json:"aliases_count"`
	SkillsCount   int            `json:"skills_count"`
	Cache         taxonomy.Stats `json:"cache"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

// ReadinessResponse is returned by GET /api/v1/ready.
type ReadinessResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int               `json:"schema_version"`
}
