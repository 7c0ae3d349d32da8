package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateInitialSchema creates the events, branches, and blobs tables. It is
// idempotent: a fresh store and a store already on a later migration both
// tolerate re-running this function.
func MigrateInitialSchema(db *sql.DB) error {
	var tableExists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type = 'table' AND name = 'events'
	`).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check events table: %w", err)
	}
	if tableExists {
		return nil
	}

	_, err = db.Exec(`
		CREATE TABLE branches (
			name            TEXT PRIMARY KEY,
			head_event_id   TEXT,
			parent_branch   TEXT,
			fork_point      TEXT,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE events (
			event_id        TEXT PRIMARY KEY,
			seq             INTEGER NOT NULL,
			ts              TEXT NOT NULL,
			type            TEXT NOT NULL,
			branch          TEXT NOT NULL REFERENCES branches(name),
			parent_hash     TEXT NOT NULL,
			hash            TEXT NOT NULL,
			payload         TEXT NOT NULL,
			refs            TEXT NOT NULL
		);
		CREATE INDEX idx_events_branch_seq ON events(branch, seq);
		CREATE INDEX idx_events_type ON events(type);

		CREATE TABLE blobs (
			hash            TEXT PRIMARY KEY,
			algo            TEXT NOT NULL,
			byte_length     INTEGER NOT NULL,
			classification  TEXT,
			pinned          INTEGER NOT NULL DEFAULT 0,
			tombstoned      INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create initial schema: %w", err)
	}
	return nil
}
