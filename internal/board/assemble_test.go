package board

import (
	"testing"
	"time"

	"github.com/fagemx/edda/internal/coordination"
)

func TestAssembleSinglePassBoardState(t *testing.T) {
	dir := t.TempDir()
	projectID := "proj1"
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	self := coordination.Heartbeat{SessionID: "self", ProjectID: projectID, Label: "me", LastSeen: now}
	peer := coordination.Heartbeat{SessionID: "peer", ProjectID: projectID, Label: "auth-owner", LastSeen: now.Add(-5 * time.Second)}
	if err := coordination.TouchHeartbeat(dir, self); err != nil {
		t.Fatalf("touch self: %v", err)
	}
	if err := coordination.TouchHeartbeat(dir, peer); err != nil {
		t.Fatalf("touch peer: %v", err)
	}

	if err := coordination.AppendCoord(dir, projectID, coordination.Record{
		Kind: coordination.RecordClaim, TS: now.Add(-time.Minute),
		SessionID: "peer", Label: "auth-owner", PathGlobs: []string{"src/auth/*"},
	}); err != nil {
		t.Fatalf("append claim: %v", err)
	}
	if err := coordination.AppendCoord(dir, projectID, coordination.Record{
		Kind: coordination.RecordRequest, TS: now,
		FromSession: "peer", FromLabel: "auth-owner", ToLabel: "me", Message: "need review",
	}); err != nil {
		t.Fatalf("append request: %v", err)
	}

	bs, coordState, err := Assemble(dir, projectID, "self", now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(bs.Peers) != 1 || bs.Peers[0].SessionID != "peer" {
		t.Fatalf("expected one peer 'peer', got %+v", bs.Peers)
	}
	if len(bs.Claims) != 1 {
		t.Fatalf("expected one effective claim, got %d", len(bs.Claims))
	}
	if len(bs.RequestsForMe) != 1 {
		t.Fatalf("expected one request addressed to 'me', got %d", len(bs.RequestsForMe))
	}
	if coordState.Skipped != 0 {
		t.Fatalf("expected no skipped lines, got %d", coordState.Skipped)
	}
}
