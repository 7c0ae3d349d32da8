package ledger

import (
	"context"
	"fmt"
)

// VerifyReport is the result of walking a branch's hash chain.
type VerifyReport struct {
	Branch       string
	EventsWalked int
	OK           bool
	// DivergentEventID and Detail are populated only when OK is false.
	DivergentEventID string
	Detail           string
}

// Verify walks branch's events forward in event_id order, checking each
// event's parent_hash against the previous event's hash and recomputing
// each event's own hash, reporting the first
// divergence found (spec.md §4.1's verify(branch) → VerifyReport).
func (l *Ledger) Verify(ctx context.Context, branch string) (VerifyReport, error) {
	report := VerifyReport{Branch: branch, OK: true}

	events, err := l.Events(ctx, Query{Branch: branch})
	if err != nil {
		return VerifyReport{}, fmt.Errorf("load branch events: %w", err)
	}

	expectedParentHash := ""
	for _, ev := range events {
		report.EventsWalked++

		if ev.ParentHash != expectedParentHash {
			report.OK = false
			report.DivergentEventID = ev.EventID
			report.Detail = fmt.Sprintf("event %s has parent_hash %q, expected %q", ev.EventID, ev.ParentHash, expectedParentHash)
			return report, nil
		}

		recomputed, err := ev.ComputeHash()
		if err != nil {
			return VerifyReport{}, fmt.Errorf("recompute hash for %s: %w", ev.EventID, err)
		}
		if recomputed != ev.Hash {
			report.OK = false
			report.DivergentEventID = ev.EventID
			report.Detail = fmt.Sprintf("event %s hash %q does not match recomputed %q", ev.EventID, ev.Hash, recomputed)
			return report, nil
		}

		expectedParentHash = ev.Hash
	}

	return report, nil
}
