package ledger

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for ledger conditions, checked with errors.Is at call
// sites rather than type assertions.
var (
	// ErrNotFound indicates the requested branch or event does not exist.
	ErrNotFound = errors.New("not found")

	// ErrChainConflict indicates HEAD advanced on the target branch between
	// the read and the write of an append; the caller should retry.
	ErrChainConflict = errors.New("chain conflict: head advanced during append")

	// ErrCorruption indicates a hash mismatch was found while verifying a
	// branch. It is fatal for that branch; verify never auto-repairs.
	ErrCorruption = errors.New("corruption: hash chain broken")

	// ErrFastForward indicates a fast_forward merge was requested but dst is
	// not an ancestor of src.
	ErrFastForward = errors.New("fast_forward merge requires dst to be an ancestor of src")

	// ErrBlobNotFound indicates a blob's content is unavailable: its file is
	// missing or the blob has been tombstoned.
	ErrBlobNotFound = errors.New("blob not found")
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to ErrNotFound for consistent error handling across callers.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Retryable reports whether an error represents a condition the caller
// should retry (StorageError{retryable} / ChainConflict from spec §7).
func Retryable(err error) bool {
	return errors.Is(err, ErrChainConflict)
}
