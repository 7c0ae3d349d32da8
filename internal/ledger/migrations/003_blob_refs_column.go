package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateBlobRefsColumn adds a referenced_by column to blobs, a
// denormalized count incremented by the ledger's append path. GC treats a
// nonzero count as referenced and does no ancestry walk of its own.
func MigrateBlobRefsColumn(db *sql.DB) error {
	var columnExists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('blobs')
		WHERE name = 'referenced_by'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("check referenced_by column: %w", err)
	}
	if columnExists {
		return nil
	}

	_, err = db.Exec(`ALTER TABLE blobs ADD COLUMN referenced_by INTEGER NOT NULL DEFAULT 0`)
	if err != nil {
		return fmt.Errorf("add referenced_by column: %w", err)
	}
	return nil
}
