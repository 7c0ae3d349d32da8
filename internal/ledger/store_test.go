package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fagemx/edda/internal/eventmodel"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".edda")
	l, err := Open(dir, 5000, 2000)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// TestAppendAndVerify covers S1: append N events on a branch, verify reports OK.
func TestAppendAndVerify(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{
			"text": "hello", "role": "user", "tags": []any{"greeting"},
		}, nil)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	report, err := l.Verify(ctx, "main")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.OK {
		t.Fatalf("expected OK verify report, got %+v", report)
	}
	if report.EventsWalked != 5 {
		t.Fatalf("expected 5 events walked, got %d", report.EventsWalked)
	}
}

func TestAppendChainsParentHash(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	first, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{"text": "a", "role": "user", "tags": []any{}}, nil)
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	second, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{"text": "b", "role": "user", "tags": []any{}}, nil)
	if err != nil {
		t.Fatalf("append second: %v", err)
	}

	if first.ParentHash != "" {
		t.Fatalf("expected first event's parent_hash to be empty, got %q", first.ParentHash)
	}
	if second.ParentHash != first.Hash {
		t.Fatalf("expected second event's parent_hash %q to equal first's hash %q", second.ParentHash, first.Hash)
	}

	head, err := l.Head(ctx, "main")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head != second.EventID {
		t.Fatalf("expected head %s, got %s", second.EventID, head)
	}
}

// TestConcurrentAppendsAllSucceed covers S2: concurrent appenders on one
// branch all eventually succeed (via ChainConflict retry) and produce a
// chain that verifies clean, with as many events as appenders.
func TestConcurrentAppendsAllSucceed(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{
				"text": "concurrent", "role": "user", "tags": []any{},
			}, nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append failed: %v", err)
		}
	}

	events, err := l.Events(ctx, Query{Branch: "main"})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != writers {
		t.Fatalf("expected %d events, got %d", writers, len(events))
	}

	report, err := l.Verify(ctx, "main")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.OK {
		t.Fatalf("expected clean verify after concurrent appends, got %+v", report)
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	if _, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{"text": "a", "role": "user", "tags": []any{}}, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	ev2, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{"text": "b", "role": "user", "tags": []any{}}, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := l.db.ExecContext(ctx, `UPDATE events SET hash = 'tampered' WHERE event_id = ?`, ev2.EventID); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	report, err := l.Verify(ctx, "main")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.OK {
		t.Fatal("expected verify to detect corruption")
	}
	if report.DivergentEventID != ev2.EventID {
		t.Fatalf("expected divergence at %s, got %s", ev2.EventID, report.DivergentEventID)
	}
}
