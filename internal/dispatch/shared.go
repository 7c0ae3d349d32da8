package dispatch

import (
	"context"
	"fmt"

	"github.com/fagemx/edda/internal/eventmodel"
	"github.com/fagemx/edda/internal/ledger"
	"github.com/fagemx/edda/internal/packer"
)

// maxRecentDecisions bounds how many decision keys recentDecisions returns;
// the packer's own budget math does the real truncation, this just keeps
// the query itself bounded for a branch with a very long history.
const maxRecentDecisions = 50

// recentDecisions returns the most recent decision event per key, newest
// first, with superseded entries (an earlier event for a key that a later
// event also sets) excluded — per spec.md §4.4 "filtered to the most recent
// active (non-superseded) per key, newest first."
func (d *Dispatcher) recentDecisions(ctx context.Context, branch string) ([]packer.Decision, error) {
	events, err := d.Ledger.Events(ctx, ledger.Query{
		Branch: branch,
		Types:  []eventmodel.Type{eventmodel.TypeDecision},
		Reverse: true,
		Limit:  maxRecentDecisions,
	})
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}

	seen := map[string]bool{}
	var out []packer.Decision
	for _, ev := range events {
		key, _ := ev.Payload["key"].(string)
		if key == "" || seen[key] {
			continue
		}
		if supersededBy, _ := ev.Payload["superseded_by"].(string); supersededBy != "" {
			continue
		}
		seen[key] = true
		value, _ := ev.Payload["value"].(string)
		reason, _ := ev.Payload["reason"].(string)
		out = append(out, packer.Decision{Key: key, Value: value, Reason: reason})
	}
	return out, nil
}

// previousSessionDigest returns the summary text of the most recent
// session_digest event from a session other than excludeSessionID, or "" if
// none exists yet.
func (d *Dispatcher) previousSessionDigest(ctx context.Context, branch, excludeSessionID string) (string, error) {
	events, err := d.Ledger.Events(ctx, ledger.Query{
		Branch:  branch,
		Types:   []eventmodel.Type{eventmodel.TypeSessionDigest},
		Reverse: true,
		Limit:   10,
	})
	if err != nil {
		return "", fmt.Errorf("query previous session digest: %w", err)
	}
	for _, ev := range events {
		sid, _ := ev.Payload["session_id"].(string)
		if sid == excludeSessionID {
			continue
		}
		summary, _ := ev.Payload["summary"].(string)
		return summary, nil
	}
	return "", nil
}
