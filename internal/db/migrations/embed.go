// Package migrations embeds the goose SQL migrations, one directory per
// database dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the PostgreSQL migrations.
func Postgres() fs.FS {
	return sub("postgres")
}

// SQLite returns the SQLite migrations.
func SQLite() fs.FS {
	return sub("sqlite")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(files, dir)
	if err != nil {
		panic(err) // dir is a compile-time constant matched by the embed pattern
	}

	return fsys
}
