package taxonomy

import (
	"slices"
	"time"
)

// State describes how the current snapshot came to be.
type State string

// Snapshot states.
const (
	StateEmpty    State = "empty"    // never loaded
	StateLoaded   State = "loaded"   // last load succeeded
	StateDegraded State = "degraded" // last load failed, snapshot reset to empty
)

// Stats summarizes one snapshot for health and reload reporting.
type Stats struct {
	Aliases    int           `json:"alias_count"`
	Canonicals int           `json:"canonical_count"`
	Edges      int           `json:"edge_count"`
	Generation uint64        `json:"generation"`
	State      State         `json:"state"`
	LoadedAt   time.Time     `json:"loaded_at,omitzero"`
	Duration   time.Duration `json:"-"`
	LastError  string        `json:"last_error,omitempty"`
}

// Snapshot is one complete, immutable build of the taxonomy.
// Nothing mutates a Snapshot after newSnapshot returns.
type Snapshot struct {
	aliases    map[string]string
	ids        map[string]int64
	parents    map[string][]string
	names      []string // canonical names, ascending
	aliasNames []string // alias strings, ascending
	edges      int

	generation uint64
	state      State
	loadedAt   time.Time
	lastErr    string
}

// emptySnapshot returns a snapshot with no terms in the given state.
func emptySnapshot(generation uint64, state State, lastErr string) *Snapshot {
	s := &Snapshot{
		aliases:    map[string]string{},
		ids:        map[string]int64{},
		parents:    map[string][]string{},
		generation: generation,
		state:      state,
		lastErr:    lastErr,
	}
	if state != StateEmpty {
		s.loadedAt = time.Now()
	}

	return s
}

// newSnapshot builds the three mappings from raw store rows. Keys are
// normalized; duplicates resolve last-write-wins in load order.
func newSnapshot(generation uint64, aliases []Alias, canonicals []CanonicalTerm, edges []HierarchyEdge) *Snapshot {
	s := emptySnapshot(generation, StateLoaded, "")

	for _, t := range canonicals {
		name := Normalize(t.Name)
		if name == "" {
			continue
		}
		s.ids[name] = t.SurrogateID
	}

	for _, a := range aliases {
		alias, canonical := Normalize(a.Alias), Normalize(a.Canonical)
		if alias == "" || canonical == "" {
			continue
		}
		s.aliases[alias] = canonical
	}

	for _, e := range edges {
		child, parent := Normalize(e.Child), Normalize(e.Parent)
		if child == "" || parent == "" || slices.Contains(s.parents[child], parent) {
			continue
		}
		s.parents[child] = append(s.parents[child], parent)
		s.edges++
	}

	s.names = sortedKeys(s.ids)
	s.aliasNames = sortedKeys(s.aliases)

	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// ResolveAlias returns the canonical term for an already-normalized alias.
func (s *Snapshot) ResolveAlias(alias string) (string, bool) {
	c, ok := s.aliases[alias]
	return c, ok
}

// IsCanonical reports whether name is a canonical term.
func (s *Snapshot) IsCanonical(name string) bool {
	_, ok := s.ids[name]
	return ok
}

// SurrogateID returns the opaque id of a canonical term in this snapshot.
func (s *Snapshot) SurrogateID(name string) (int64, bool) {
	id, ok := s.ids[name]
	return id, ok
}

// ParentsOf returns the direct parents of name in load order.
// The result is never nil and is safe to modify.
func (s *Snapshot) ParentsOf(name string) []string {
	return append([]string{}, s.parents[name]...)
}

// Size returns the alias and canonical counts.
func (s *Snapshot) Size() (aliases, canonicals int) {
	return len(s.aliases), len(s.ids)
}

// Canonicals returns all canonical names in ascending order.
// Callers must not modify the returned slice.
func (s *Snapshot) Canonicals() []string {
	return s.names
}

// EachAlias calls fn for every alias in ascending alias order.
func (s *Snapshot) EachAlias(fn func(alias, canonical string)) {
	for _, a := range s.aliasNames {
		fn(a, s.aliases[a])
	}
}

// State returns how this snapshot was produced.
func (s *Snapshot) State() State {
	return s.state
}

// Stats returns the snapshot summary.
func (s *Snapshot) Stats() Stats {
	return Stats{
		Aliases:    len(s.aliases),
		Canonicals: len(s.ids),
		Edges:      s.edges,
		Generation: s.generation,
		State:      s.state,
		LoadedAt:   s.loadedAt,
		LastError:  s.lastErr,
	}
}
