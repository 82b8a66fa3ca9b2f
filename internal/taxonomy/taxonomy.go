// Package taxonomy holds the in-memory canonical-term index used by the
// harmonizer: alias resolution, canonical membership, and first-level
// hierarchy lookups over an immutable snapshot that is swapped atomically
// on reload.
package taxonomy

import (
	"context"
	"errors"
	"strings"
)

// ErrBackingStore wraps every failure reported by a Source.
var ErrBackingStore = errors.New("taxonomy backing store failure")

// CanonicalTerm is the single authoritative name for a concept.
// SurrogateID is only stable for the lifetime of one snapshot.
type CanonicalTerm struct {
	Name        string
	SurrogateID int64
}

// Alias maps a raw variant string to exactly one canonical term.
type Alias struct {
	Alias     string
	Canonical string
}

// HierarchyEdge is a direct child -> parent relation between canonical terms.
type HierarchyEdge struct {
	Child  string
	Parent string
}

// Source is the read side of the taxonomy backing store.
// Implementations must wrap failures with ErrBackingStore.
type Source interface {
	Aliases(ctx context.Context) ([]Alias, error)
	Canonicals(ctx context.Context) ([]CanonicalTerm, error)
	Hierarchy(ctx context.Context) ([]HierarchyEdge, error)
}

// Tables is one consistent read of every taxonomy table.
type Tables struct {
	Aliases    []Alias
	Canonicals []CanonicalTerm
	Edges      []HierarchyEdge
}

// SnapshotSource is a Source that can read all tables in one transaction.
// The cache prefers it so a reload never mixes rows from two commits.
type SnapshotSource interface {
	Source
	ReadAll(ctx context.Context) (Tables, error)
}

// Recorder receives cache observations. Fire-and-forget.
type Recorder interface {
	TaxonomyLoaded(stats Stats, ok bool)
}

// Normalize trims surrounding whitespace and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
