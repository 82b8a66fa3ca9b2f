package db

import (
	"io/fs"
	"path"
)

// SchemaVersion returns the number of SQL migration files in fsys, which
// equals the schema version once all migrations have been applied.
func SchemaVersion(fsys fs.FS) int {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".sql" {
			count++
		}
	}

	return count
}
