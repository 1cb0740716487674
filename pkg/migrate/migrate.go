package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// goose keeps its base FS and dialect in package globals.
var mu sync.Mutex

func prepare(dialect string, fsys fs.FS) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect(dialect)
}

func Up(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS) error {
	mu.Lock()
	defer mu.Unlock()
	if err := prepare(dialect, fsys); err != nil {
		return errors.Wrap(err, "goose.SetDialect")
	}
	return errors.Wrap(goose.UpContext(ctx, db, "."), "goose.Up")
}

func Down(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS) error {
	mu.Lock()
	defer mu.Unlock()
	if err := prepare(dialect, fsys); err != nil {
		return errors.Wrap(err, "goose.SetDialect")
	}
	return errors.Wrap(goose.DownContext(ctx, db, "."), "goose.Down")
}

func Status(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS) (int64, error) {
	mu.Lock()
	defer mu.Unlock()
	if err := prepare(dialect, fsys); err != nil {
		return 0, errors.Wrap(err, "goose.SetDialect")
	}
	if err := goose.StatusContext(ctx, db, "."); err != nil {
		return 0, errors.Wrap(err, "goose.Status")
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	return v, errors.Wrap(err, "goose.GetDBVersion")
}
