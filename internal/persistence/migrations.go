package persistence

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"

	"github.com/coreflow/coreflow/internal/coreerr"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrate applies every forward-only migration (schema bootstrap, the
// workflows.schedule column, and the retention_policy table) via goose.
// Goose's SQLite dialect runs each migration in its own transaction and
// tracks applied versions in a goose_db_version table, so this is safe to
// call on every start-up.
func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return coreerr.Persistence(err, "failed to set migration dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return coreerr.Persistence(err, "failed to apply migrations")
	}
	return nil
}
