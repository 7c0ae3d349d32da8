package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fagemx/edda/internal/eventmodel"
)

// BranchInfo describes one branch row.
type BranchInfo struct {
	Name         string
	HeadEventID  string
	ParentBranch string
	ForkPoint    string
}

// CreateBranch creates a new branch forked from parent's current HEAD. The
// new branch has no events of its own until the next Append; its fork point
// is recorded so ancestry walks (fast_forward checks) can cross into the
// parent branch's history. Verify checks only the branch's own events.
func (l *Ledger) CreateBranch(ctx context.Context, name, parent string) (BranchInfo, error) {
	var parentHead sql.NullString
	err := l.db.QueryRowContext(ctx, `SELECT head_event_id FROM branches WHERE name = ?`, parent).Scan(&parentHead)
	if err != nil {
		return BranchInfo{}, wrapDBError(fmt.Sprintf("read parent branch %s", parent), err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO branches (name, head_event_id, parent_branch, fork_point) VALUES (?, NULL, ?, ?)
	`, name, parent, parentHead)
	if err != nil {
		return BranchInfo{}, wrapDBError(fmt.Sprintf("create branch %s", name), err)
	}

	return BranchInfo{Name: name, ParentBranch: parent, ForkPoint: parentHead.String}, nil
}

// ListBranches returns every branch row, for doctor/verify sweeps that must
// check every branch's chain, not just the current one.
func (l *Ledger) ListBranches(ctx context.Context) ([]BranchInfo, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT name, COALESCE(head_event_id, ''), COALESCE(parent_branch, ''), COALESCE(fork_point, '')
		FROM branches ORDER BY name
	`)
	if err != nil {
		return nil, wrapDBError("list branches", err)
	}
	defer rows.Close()

	var out []BranchInfo
	for rows.Next() {
		var bi BranchInfo
		if err := rows.Scan(&bi.Name, &bi.HeadEventID, &bi.ParentBranch, &bi.ForkPoint); err != nil {
			return nil, fmt.Errorf("scan branch row: %w", err)
		}
		out = append(out, bi)
	}
	return out, wrapDBError("iterate branches", rows.Err())
}

// Switch updates the workspace-scoped current-branch pointer file
// (SPEC_FULL.md §4.1.b); it does not touch the branches table, which has no
// notion of "current" — that is a per-workspace convenience, not ledger
// state.
func (l *Ledger) Switch(name string) error {
	var exists bool
	if err := l.db.QueryRow(`SELECT COUNT(*) > 0 FROM branches WHERE name = ?`, name).Scan(&exists); err != nil {
		return wrapDBError("check branch exists", err)
	}
	if !exists {
		return fmt.Errorf("switch to %s: %w", name, ErrNotFound)
	}

	dir := filepath.Dir(l.CurrentBranchPath())
	tmp, err := os.CreateTemp(dir, "current.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp current-branch file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.WriteString(name); err != nil {
		return fmt.Errorf("write current-branch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close current-branch temp file: %w", err)
	}
	if err := os.Rename(tmpPath, l.CurrentBranchPath()); err != nil {
		return fmt.Errorf("rename current-branch file: %w", err)
	}
	return nil
}

// Current reads the workspace's current-branch pointer, defaulting to
// "main" if none has been written yet.
func (l *Ledger) Current() (string, error) {
	data, err := os.ReadFile(l.CurrentBranchPath()) // #nosec G304 - fixed path under the workspace .edda dir
	if err != nil {
		if os.IsNotExist(err) {
			return "main", nil
		}
		return "", fmt.Errorf("read current-branch file: %w", err)
	}
	return string(data), nil
}

// MergeStrategy selects how Merge appends its merge event.
type MergeStrategy string

const (
	StrategyFastForward MergeStrategy = "fast_forward"
	StrategyThreeWay    MergeStrategy = "three_way"
)

// Merge appends a merge event to dst referencing both branch heads. For
// fast_forward, dst must be an ancestor of src (walked via parent_hash);
// three_way always appends the merge event regardless of ancestry.
func (l *Ledger) Merge(ctx context.Context, src, dst string, strategy MergeStrategy) (eventmodel.Event, error) {
	srcHead, err := l.Head(ctx, src)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("read src head: %w", err)
	}
	dstHead, err := l.Head(ctx, dst)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("read dst head: %w", err)
	}

	if strategy == StrategyFastForward {
		ancestor, err := l.isAncestor(ctx, dstHead, srcHead)
		if err != nil {
			return eventmodel.Event{}, fmt.Errorf("check fast_forward ancestry: %w", err)
		}
		if !ancestor {
			return eventmodel.Event{}, ErrFastForward
		}
	}

	payload := map[string]any{
		"source":      src,
		"destination": dst,
		"strategy":    string(strategy),
	}
	refs := map[string]eventmodel.Ref{
		"source_head": srcHead,
		"dest_head":   dstHead,
	}
	return l.Append(ctx, dst, eventmodel.TypeMerge, payload, refs)
}

// isAncestor walks backward from descendant, first within its own branch's
// hash chain (parent_hash resolved to the preceding event_id), and on
// reaching that branch's first event (parent_hash == ""), crosses into the
// parent branch at its recorded fork_point (§4.1: "branches form a forest").
// Returns true if ancestorCandidate is reached along the way, or trivially
// if ancestorCandidate is empty (an unborn branch is an ancestor of
// anything).
func (l *Ledger) isAncestor(ctx context.Context, ancestorCandidate, descendant string) (bool, error) {
	if ancestorCandidate == "" {
		return true, nil
	}
	if descendant == "" {
		return false, nil
	}
	cur := descendant
	for cur != "" {
		if cur == ancestorCandidate {
			return true, nil
		}
		var branch, parentHash string
		err := l.db.QueryRowContext(ctx, `SELECT branch, parent_hash FROM events WHERE event_id = ?`, cur).Scan(&branch, &parentHash)
		if err != nil {
			if err == sql.ErrNoRows {
				return false, nil
			}
			return false, wrapDBError("walk ancestry", err)
		}

		if parentHash != "" {
			var parentEventID string
			err = l.db.QueryRowContext(ctx, `SELECT event_id FROM events WHERE hash = ? AND branch = ?`, parentHash, branch).Scan(&parentEventID)
			if err != nil {
				if err == sql.ErrNoRows {
					return false, nil
				}
				return false, wrapDBError("resolve parent hash to event", err)
			}
			cur = parentEventID
			continue
		}

		// Reached this branch's first event; cross into its parent branch
		// at the recorded fork point, if any.
		var forkPoint sql.NullString
		err = l.db.QueryRowContext(ctx, `SELECT fork_point FROM branches WHERE name = ?`, branch).Scan(&forkPoint)
		if err != nil {
			return false, wrapDBError("read fork point", err)
		}
		if !forkPoint.Valid || forkPoint.String == "" {
			return false, nil
		}
		cur = forkPoint.String
	}
	return false, nil
}
