package dispatch

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fagemx/edda/internal/coordination"
	"github.com/fagemx/edda/internal/eventmodel"
	"github.com/fagemx/edda/internal/ledger"
)

func openTestDispatcher(t *testing.T) (*Dispatcher, *ledger.Ledger) {
	t.Helper()
	eddaDir := filepath.Join(t.TempDir(), ".edda")
	l, err := ledger.Open(eddaDir, 5000, 2000)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	coordDir := t.TempDir()
	d := New(l, coordDir, 0)
	return d, l
}

// TestClaimVsToolUseAppendsScopeViolation is S9: session A claims
// src/auth/*; session B's PreToolUse on src/auth/x.rs appends a signal
// event with kind=scope_violation and returns a warning.
func TestClaimVsToolUseAppendsScopeViolation(t *testing.T) {
	d, l := openTestDispatcher(t)
	ctx := context.Background()
	now := time.Now()
	projectID := "proj-s9"

	if err := coordination.TouchHeartbeat(d.CoordDir, coordination.Heartbeat{
		SessionID: "sessionA", ProjectID: projectID, Label: "alpha", LastSeen: now,
	}); err != nil {
		t.Fatalf("touch heartbeat: %v", err)
	}
	if err := coordination.AppendCoord(d.CoordDir, projectID, coordination.Record{
		Kind: coordination.RecordClaim, TS: now, SessionID: "sessionA", Label: "alpha",
		PathGlobs: []string{"src/auth/**"},
	}); err != nil {
		t.Fatalf("append claim: %v", err)
	}

	resp, err := d.Dispatch(ctx, Request{
		HookEventName: string(EventPreToolUse),
		SessionID:     "sessionB",
		ProjectID:     projectID,
		EventData: map[string]any{
			"tool_name":  "Edit",
			"tool_input": map[string]any{"file_path": "src/auth/x.rs"},
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp.Stderr == "" || !strings.Contains(resp.Stderr, "src/auth/x.rs") {
		t.Fatalf("expected warning naming the conflicting target, got %+v", resp)
	}

	signals, err := l.Events(ctx, ledger.Query{Types: []eventmodel.Type{eventmodel.TypeSignal}})
	if err != nil {
		t.Fatalf("query signals: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 scope_violation signal, got %d", len(signals))
	}
	if signals[0].Payload["kind"] != "scope_violation" {
		t.Fatalf("expected kind=scope_violation, got %+v", signals[0].Payload)
	}
}

// TestClaimVsToolUseAllowsOwnSession confirms a session never violates its
// own claim.
func TestClaimVsToolUseAllowsOwnSession(t *testing.T) {
	d, l := openTestDispatcher(t)
	ctx := context.Background()
	now := time.Now()
	projectID := "proj-self"

	if err := coordination.TouchHeartbeat(d.CoordDir, coordination.Heartbeat{
		SessionID: "sessionA", ProjectID: projectID, Label: "alpha", LastSeen: now,
	}); err != nil {
		t.Fatalf("touch heartbeat: %v", err)
	}
	if err := coordination.AppendCoord(d.CoordDir, projectID, coordination.Record{
		Kind: coordination.RecordClaim, TS: now, SessionID: "sessionA", Label: "alpha",
		PathGlobs: []string{"src/auth/**"},
	}); err != nil {
		t.Fatalf("append claim: %v", err)
	}

	resp, err := d.Dispatch(ctx, Request{
		HookEventName: string(EventPreToolUse),
		SessionID:     "sessionA",
		ProjectID:     projectID,
		EventData: map[string]any{
			"tool_name":  "Edit",
			"tool_input": map[string]any{"file_path": "src/auth/x.rs"},
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp.Stderr != "" {
		t.Fatalf("expected no warning for a session editing its own claim, got %+v", resp)
	}

	signals, err := l.Events(ctx, ledger.Query{Types: []eventmodel.Type{eventmodel.TypeSignal}})
	if err != nil {
		t.Fatalf("query signals: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected no scope_violation signal, got %d", len(signals))
	}
}

// TestDigestDeterminism is S10: given a fixed session's event set, two runs
// of the digest routine produce byte-identical session_digest payloads.
func TestDigestDeterminism(t *testing.T) {
	d, l := openTestDispatcher(t)
	ctx := context.Background()
	sessionID := "sess-s10"

	startEv, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{
		"text": "session started", "role": "system", "tags": []any{"session_start"}, "session_id": sessionID,
	}, nil)
	if err != nil {
		t.Fatalf("append session start: %v", err)
	}

	if _, err := l.Append(ctx, "main", eventmodel.TypeDecision, map[string]any{
		"key": "db.engine", "value": "sqlite", "reason": "simplicity", "session_id": sessionID,
	}, nil); err != nil {
		t.Fatalf("append decision: %v", err)
	}
	if _, err := l.Append(ctx, "main", eventmodel.TypeCommit, map[string]any{
		"title": "wire ledger", "purpose": "storage", "contributions": []any{"ledger.go"}, "session_id": sessionID,
	}, nil); err != nil {
		t.Fatalf("append commit: %v", err)
	}
	if _, err := l.Append(ctx, "main", eventmodel.TypeCmd, map[string]any{
		"argv": []any{"go", "test", "./..."}, "exit_code": 1, "duration_ms": 500, "session_id": sessionID,
	}, nil); err != nil {
		t.Fatalf("append failed cmd: %v", err)
	}
	if _, err := l.Append(ctx, "main", eventmodel.TypeToolUse, map[string]any{
		"tool_name": "Edit", "file_path": "internal/dispatch/dispatch.go", "session_id": sessionID,
	}, nil); err != nil {
		t.Fatalf("append tool_use: %v", err)
	}

	first, err := buildDigest(ctx, l, "main", sessionID, startEv.EventID)
	if err != nil {
		t.Fatalf("build digest 1: %v", err)
	}
	second, err := buildDigest(ctx, l, "main", sessionID, startEv.EventID)
	if err != nil {
		t.Fatalf("build digest 2: %v", err)
	}

	if first.Summary != second.Summary {
		t.Fatalf("expected identical summaries, got %q vs %q", first.Summary, second.Summary)
	}
	if len(first.DecisionEventIDs) != 1 || first.DecisionEventIDs[0] != second.DecisionEventIDs[0] {
		t.Fatalf("expected identical decision_event_ids, got %+v vs %+v", first.DecisionEventIDs, second.DecisionEventIDs)
	}
	if !strings.Contains(first.Summary, "wire ledger") || !strings.Contains(first.Summary, "go test ./...") {
		t.Fatalf("expected summary to mention commit and failed command, got %q", first.Summary)
	}
}

// TestSessionEndRunsDigestAndUnclaims exercises the full SessionEnd path:
// digest append, unclaim of the session's own claims, heartbeat removal.
func TestSessionEndRunsDigestAndUnclaims(t *testing.T) {
	d, l := openTestDispatcher(t)
	ctx := context.Background()
	projectID := "proj-end"
	sessionID := "sess-end"
	now := time.Now()

	startResp, err := d.Dispatch(ctx, Request{
		HookEventName: string(EventSessionStart), SessionID: sessionID, ProjectID: projectID,
	})
	if err != nil {
		t.Fatalf("session start: %v", err)
	}
	_ = startResp

	if err := coordination.AppendCoord(d.CoordDir, projectID, coordination.Record{
		Kind: coordination.RecordClaim, TS: now, SessionID: sessionID, Label: "alpha",
		PathGlobs: []string{"src/**"},
	}); err != nil {
		t.Fatalf("append claim: %v", err)
	}

	if _, err := d.Dispatch(ctx, Request{
		HookEventName: string(EventSessionEnd), SessionID: sessionID, ProjectID: projectID,
	}); err != nil {
		t.Fatalf("session end: %v", err)
	}

	digests, err := l.Events(ctx, ledger.Query{Types: []eventmodel.Type{eventmodel.TypeSessionDigest}})
	if err != nil {
		t.Fatalf("query digests: %v", err)
	}
	if len(digests) != 1 {
		t.Fatalf("expected 1 session_digest event, got %d", len(digests))
	}

	heartbeats, err := coordination.ScanHeartbeats(d.CoordDir, projectID)
	if err != nil {
		t.Fatalf("scan heartbeats: %v", err)
	}
	if _, ok := heartbeats[sessionID]; ok {
		t.Fatal("expected heartbeat removed at session end")
	}
}
