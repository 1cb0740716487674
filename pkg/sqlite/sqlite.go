package sqlite

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/ibd-library/library-service/pkg/migrate"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const DriverName = "sqlite3"

type Config struct {
	Path string `yaml:"path" envconfig:"SQLITE_PATH" default:"library.db"`
}

// DSN enables foreign keys and WAL, and opens every transaction IMMEDIATE so writers
// take the database lock before their first read.
func (c *Config) DSN() string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL&_txlock=immediate", c.Path)
}

func NewSQLiteDB(ctx context.Context, cfg *Config, migrations fs.FS) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, DriverName, cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "sqlx.Connect")
	}
	if migrations != nil {
		if err := migrate.Up(ctx, db.DB, migrate.DialectSQLite, migrations); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
