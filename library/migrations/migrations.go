package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var MigrationFiles embed.FS

func Postgres() fs.FS {
	sub, _ := fs.Sub(MigrationFiles, "postgres") //nolint:errcheck
	return sub
}

func SQLite() fs.FS {
	sub, _ := fs.Sub(MigrationFiles, "sqlite") //nolint:errcheck
	return sub
}
