package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateSchemaMigrationsTable creates the schema_migrations tracking table
// used by Run to record which named migrations have already applied.
func MigrateSchemaMigrationsTable(db *sql.DB) error {
	var tableExists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_migrations'
	`).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_migrations table: %w", err)
	}
	if tableExists {
		return nil
	}

	_, err = db.Exec(`
		CREATE TABLE schema_migrations (
			name        TEXT PRIMARY KEY,
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}
