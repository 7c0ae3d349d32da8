// Package doctor assembles the diagnostic report `edda doctor` prints: a
// ledger-chain verification pass over every branch plus a coordination-log
// fold, rendered as a DoctorCheck list the way the teacher's cmd/bd/doctor
// reports ok/warning/error checks.
package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/fagemx/edda/internal/coordination"
	"github.com/fagemx/edda/internal/ledger"
)

// Status is the closed set of check outcomes.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Check is one diagnostic result.
type Check struct {
	Name    string
	Status  Status
	Message string
	Detail  string
	Fix     string
}

// Report is the full diagnostic run's output.
type Report struct {
	Checks []Check
}

// Run verifies every branch's hash chain and folds the project's
// coordination log, reporting a Check per branch plus one check for
// malformed coordination-log lines (spec.md §7's MalformedCoordRecord).
func Run(ctx context.Context, l *ledger.Ledger, coordDir, projectID string) (Report, error) {
	var report Report

	branches, err := l.ListBranches(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list branches: %w", err)
	}
	if len(branches) == 0 {
		report.Checks = append(report.Checks, Check{
			Name: "ledger.branches", Status: StatusWarning, Message: "no branches recorded",
		})
	}
	for _, b := range branches {
		vr, err := l.Verify(ctx, b.Name)
		if err != nil {
			report.Checks = append(report.Checks, Check{
				Name: "ledger.chain." + b.Name, Status: StatusError,
				Message: fmt.Sprintf("failed to verify branch %s", b.Name), Detail: err.Error(),
			})
			continue
		}
		if vr.OK {
			report.Checks = append(report.Checks, Check{
				Name: "ledger.chain." + b.Name, Status: StatusOK,
				Message: fmt.Sprintf("%d event(s) verified", vr.EventsWalked),
			})
			continue
		}
		report.Checks = append(report.Checks, Check{
			Name: "ledger.chain." + b.Name, Status: StatusError,
			Message: fmt.Sprintf("hash chain diverges at %s", vr.DivergentEventID),
			Detail:  vr.Detail,
			Fix:     "restore the ledger from a backup taken before the divergence; a diverged chain cannot be repaired in place",
		})
	}

	heartbeats, err := coordination.ScanHeartbeats(coordDir, projectID)
	if err != nil {
		return Report{}, fmt.Errorf("scan heartbeats: %w", err)
	}
	coordState, err := coordination.FoldCoord(coordDir, projectID, heartbeats, time.Now())
	if err != nil {
		return Report{}, fmt.Errorf("fold coordination log: %w", err)
	}
	if coordState.Skipped == 0 {
		report.Checks = append(report.Checks, Check{
			Name: "coordination.log", Status: StatusOK,
			Message: fmt.Sprintf("%d active claim(s), %d binding(s)", len(coordState.Claims), len(coordState.Bindings)),
		})
	} else {
		report.Checks = append(report.Checks, Check{
			Name: "coordination.log", Status: StatusWarning,
			Message: fmt.Sprintf("%d malformed coordination record(s) skipped", coordState.Skipped),
			Detail:  joinWarnings(coordState.Warnings),
			Fix:     "inspect coordination.jsonl for the reported line numbers; corrupt lines are skipped, not repaired",
		})
	}

	return report, nil
}

func joinWarnings(warnings []string) string {
	out := ""
	for i, w := range warnings {
		if i > 0 {
			out += "; "
		}
		out += w
	}
	return out
}

// OK reports whether every check in the report is StatusOK.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status != StatusOK {
			return false
		}
	}
	return true
}
