package store

// Load order is stable (by surrogate key) so that duplicate aliases
// resolve last-write-wins deterministically.
const (
	aliasesQuery = `SELECT a.alias_name, s.canonical_name
		FROM aliases a
		JOIN skills s ON a.skill_id = s.id
		ORDER BY a.id`

	canonicalsQuery = `SELECT id, canonical_name FROM skills ORDER BY id`

	hierarchyQuery = `SELECT c.canonical_name, p.canonical_name
		FROM hierarchy h
		JOIN skills c ON h.child_id = c.id
		JOIN skills p ON h.parent_id = p.id
		ORDER BY h.id`

	countsQuery = `SELECT
		(SELECT COUNT(*) FROM skills),
		(SELECT COUNT(*) FROM aliases),
		(SELECT COUNT(*) FROM hierarchy)`
)
