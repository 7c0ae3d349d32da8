// Package migrations holds one file per schema migration, each idempotent
// via a pragma_table_info or sqlite_master existence check before altering
// the schema, applied in order by Run.
package migrations

import (
	"database/sql"
	"fmt"
)

type migration struct {
	name string
	fn   func(*sql.DB) error
}

// all is the ordered migration list; order matters, append only.
var all = []migration{
	{"001_initial_schema", MigrateInitialSchema},
	{"002_schema_migrations_table", MigrateSchemaMigrationsTable},
	{"003_blob_refs_column", MigrateBlobRefsColumn},
}

// Run applies every migration in order. Each migration function is already
// idempotent against the schema it touches; Run additionally records
// completed migrations in schema_migrations so a future `edda doctor` can
// report exactly which migrations a store has seen.
func Run(db *sql.DB) error {
	for _, m := range all {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if err := recordApplied(db, m.name); err != nil {
			return fmt.Errorf("migration %s: record applied: %w", m.name, err)
		}
	}
	return nil
}

// recordApplied is a no-op until schema_migrations exists (migration 001
// runs before 002 creates that table), so the first call guards on its
// presence directly rather than ordering migrations around it.
func recordApplied(db *sql.DB, name string) error {
	var tableExists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_migrations'
	`).Scan(&tableExists)
	if err != nil || !tableExists {
		return nil
	}
	_, err = db.Exec(`
		INSERT INTO schema_migrations (name) VALUES (?)
		ON CONFLICT (name) DO NOTHING
	`, name)
	return err
}
