package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fagemx/edda/internal/eventmodel"
	"github.com/fagemx/edda/internal/ledger"
)

// digest is the SessionEnd routine's output before it is appended as a
// session_digest event (spec.md §4.3 "Digest routine (SessionEnd)").
type digest struct {
	DecisionEventIDs []string
	Commits          []string
	FailedCommands   []string
	FilesModified    []string
	Summary          string
}

// buildDigest scans events on branch after startEventID (exclusive cursor),
// filtered to this session, and composes the six-step digest deterministically.
// Two calls over the same event set always produce the same digest (S10):
// every input is drawn from already-ordered ledger query results or is
// sorted explicitly before use, and nothing here reads the wall clock.
func buildDigest(ctx context.Context, l *ledger.Ledger, branch, sessionID, startEventID string) (digest, error) {
	events, err := l.Events(ctx, ledger.Query{Branch: branch, CursorID: startEventID})
	if err != nil {
		return digest{}, fmt.Errorf("query session events: %w", err)
	}

	var d digest
	filesSeen := map[string]bool{}

	for _, ev := range events {
		if sid, _ := ev.Payload["session_id"].(string); sid != sessionID {
			continue
		}
		switch ev.Type {
		case eventmodel.TypeDecision:
			d.DecisionEventIDs = append(d.DecisionEventIDs, ev.EventID)
		case eventmodel.TypeCommit:
			if title, ok := ev.Payload["title"].(string); ok {
				d.Commits = append(d.Commits, title)
			}
		case eventmodel.TypeCmd:
			if ec, ok := asInt(ev.Payload["exit_code"]); ok && ec != 0 {
				d.FailedCommands = append(d.FailedCommands, renderArgv(ev.Payload["argv"]))
			}
		case eventmodel.TypeToolUse:
			tool, _ := ev.Payload["tool_name"].(string)
			if tool != "Edit" && tool != "Write" {
				continue
			}
			if fp, ok := ev.Payload["file_path"].(string); ok && fp != "" && !filesSeen[fp] {
				filesSeen[fp] = true
				d.FilesModified = append(d.FilesModified, fp)
			}
		}
	}

	sort.Strings(d.FilesModified)
	d.Summary = composeSummary(d)
	return d, nil
}

// composeSummary renders the plain-text summary in the stable order the
// routine specifies: decisions chronologically (already ordered, since
// buildDigest walks events in ascending order), then commits, then failures.
func composeSummary(d digest) string {
	var b strings.Builder
	if len(d.DecisionEventIDs) > 0 {
		fmt.Fprintf(&b, "Decisions: %s\n", strings.Join(d.DecisionEventIDs, ", "))
	}
	if len(d.Commits) > 0 {
		fmt.Fprintf(&b, "Commits: %s\n", strings.Join(d.Commits, "; "))
	}
	if len(d.FailedCommands) > 0 {
		fmt.Fprintf(&b, "Failed commands: %s\n", strings.Join(d.FailedCommands, "; "))
	}
	if len(d.FilesModified) > 0 {
		fmt.Fprintf(&b, "Files modified: %s\n", strings.Join(d.FilesModified, ", "))
	}
	if b.Len() == 0 {
		return "No recorded activity this session."
	}
	return strings.TrimRight(b.String(), "\n")
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func renderArgv(v any) string {
	items, ok := v.([]any)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%v", it))
	}
	return strings.Join(parts, " ")
}
