// Package ledger implements the append-only, hash-chained event store
// (spec.md §4.1): open/append/head/events/verify plus branch and blob
// operations, backed by an embedded SQLite file via
// github.com/ncruces/go-sqlite3.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/fagemx/edda/internal/ledger/migrations"
	"github.com/fagemx/edda/internal/lockfile"
)

// Ledger is a single workspace's event store: one ledger.db file, one blob
// directory tree, guarded by a single-writer process lock.
type Ledger struct {
	db      *sql.DB
	dir     string // <workspace>/.edda
	lock    *lockfile.Lock
	nowFunc func() time.Time
}

// connString builds a SQLite connection string with the pragmas the
// single-writer concurrency model (spec.md §5) assumes: a bounded
// busy_timeout so a blocked writer fails fast rather than wedging a hook,
// foreign_keys enforcement, and SQLite-native time formatting. Mirrors the
// teacher's SQLiteConnString convention; readOnly appends mode=ro.
func connString(path string, readOnly bool, busyTimeoutMS int) string {
	if readOnly {
		return fmt.Sprintf("file:%s?mode=ro&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_time_format=sqlite", path, busyTimeoutMS)
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_time_format=sqlite", path, busyTimeoutMS)
}

// Open opens or creates the ledger at <workspaceEddaDir>/ledger.db, applies
// schema migrations idempotently, and acquires the single-writer lock
// (BRIDGE_LOCK_TIMEOUT_MS, default 2000ms, bounds acquisition). Open is the
// only entry point; callers must Close the returned Ledger.
func Open(workspaceEddaDir string, busyTimeoutMS, lockTimeoutMS int) (*Ledger, error) {
	if err := os.MkdirAll(workspaceEddaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create edda dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(workspaceEddaDir, "ledger", "blobs"), 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(workspaceEddaDir, "branches"), 0o755); err != nil {
		return nil, fmt.Errorf("create branches dir: %w", err)
	}

	lk, err := lockfile.Acquire(filepath.Join(workspaceEddaDir, "ledger.lock"), lockTimeoutMS)
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}

	dbPath := filepath.Join(workspaceEddaDir, "ledger.db")
	db, err := sql.Open("sqlite3", connString(dbPath, false, busyTimeoutMS))
	if err != nil {
		_ = lk.Release()
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer per spec.md §5; this process owns the lock

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		_ = lk.Release()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	if err := seedDefaultBranch(db); err != nil {
		_ = db.Close()
		_ = lk.Release()
		return nil, fmt.Errorf("seed default branch: %w", err)
	}

	return &Ledger{db: db, dir: workspaceEddaDir, lock: lk, nowFunc: time.Now}, nil
}

// OpenReadOnly opens the ledger without the writer lock, for read-only
// consumers that must coexist with a live hook holding the writer lock.
// The edda subcommands do not use it; they open through Open.
func OpenReadOnly(workspaceEddaDir string, busyTimeoutMS int) (*Ledger, error) {
	dbPath := filepath.Join(workspaceEddaDir, "ledger.db")
	db, err := sql.Open("sqlite3", connString(dbPath, true, busyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("open ledger db read-only: %w", err)
	}
	return &Ledger{db: db, dir: workspaceEddaDir, nowFunc: time.Now}, nil
}

func seedDefaultBranch(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT INTO branches (name, head_event_id) VALUES ('main', NULL)
		ON CONFLICT (name) DO NOTHING
	`)
	return err
}

// Close releases the database handle and the writer lock, if held.
func (l *Ledger) Close() error {
	var errs []string
	if err := l.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if l.lock != nil {
		if err := l.lock.Release(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CurrentBranchPath returns the workspace-scoped "current branch" pointer
// file path, the convenience file switch() writes alongside the branches
// table row (spec.md §4.1.b in SPEC_FULL.md).
func (l *Ledger) CurrentBranchPath() string {
	return filepath.Join(l.dir, "branches", "current")
}

// BlobDir returns the root of the content-addressed blob tree.
func (l *Ledger) BlobDir() string {
	return filepath.Join(l.dir, "ledger", "blobs")
}
