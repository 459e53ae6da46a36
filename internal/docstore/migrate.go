package docstore

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/chatter/internal/docstore/migrations"
)

// Schema is the documents schema version after migration.
type Schema struct {
	Version uint
	Applied bool
}

// ErrDirtySchema means a previous migration stopped halfway and the
// database needs manual repair.
var ErrDirtySchema = errors.New("documents schema is dirty")

// Migrate brings the documents table up to the embedded schema.
func (s *SQLiteStorage) Migrate() (Schema, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return Schema{}, &IOError{Op: "migrate", Name: "documents", Err: err}
	}
	drv, err := sqlite3.WithInstance(s.DB, &sqlite3.Config{})
	if err != nil {
		return Schema{}, &IOError{Op: "migrate", Name: "documents", Err: err}
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return Schema{}, &IOError{Op: "migrate", Name: "documents", Err: err}
	}

	applied := true
	if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
		applied = false
	} else if err != nil {
		return Schema{}, &IOError{Op: "migrate", Name: "documents", Err: err}
	}

	version, dirty, err := m.Version()
	if err != nil {
		return Schema{}, &IOError{Op: "migrate", Name: "documents", Err: err}
	}
	if dirty {
		return Schema{}, fmt.Errorf("version %d: %w", version, ErrDirtySchema)
	}
	return Schema{Version: version, Applied: applied}, nil
}
