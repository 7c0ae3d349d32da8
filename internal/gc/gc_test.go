package gc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fagemx/edda/internal/eventmodel"
	"github.com/fagemx/edda/internal/gc"
	"github.com/fagemx/edda/internal/ledger"
)

func openTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".edda")
	l, err := ledger.Open(dir, 5000, 2000)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRunRetainsFreshUnreferencedBlob(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	if _, err := l.StoreBlob(ctx, []byte("artifact"), "log"); err != nil {
		t.Fatalf("store blob: %v", err)
	}

	report, err := gc.Run(ctx, l, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("gc run: %v", err)
	}
	if len(report.Tombstoned) != 0 {
		t.Fatalf("expected fresh blob retained, tombstoned: %v", report.Tombstoned)
	}
	if report.Retained != 1 {
		t.Fatalf("expected 1 blob retained under retention window, got %+v", report)
	}
}

func TestRunTombstonesAgedUnreferencedBlob(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	_, err := l.StoreBlob(ctx, []byte("stale artifact"), "log")
	if err != nil {
		t.Fatalf("store blob: %v", err)
	}

	// A negative retention window treats every blob as older than retention,
	// simulating the passage of the default 30-day window without needing
	// to fabricate timestamps.
	report, err := gc.Run(ctx, l, -time.Hour, time.Now())
	if err != nil {
		t.Fatalf("gc run: %v", err)
	}
	if len(report.Tombstoned) != 1 {
		t.Fatalf("expected 1 blob tombstoned, got %+v", report)
	}

	blobs, err := l.ListBlobs(ctx)
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(blobs) != 1 || !blobs[0].Tombstoned {
		t.Fatalf("expected blob row to remain with tombstoned=true, got %+v", blobs)
	}
}

func TestRunRetainsPinnedBlobRegardlessOfAge(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	ref, err := l.StoreBlob(ctx, []byte("pinned artifact"), "")
	if err != nil {
		t.Fatalf("store blob: %v", err)
	}
	_, hexDigest, _ := eventmodel.ParseBlobRef(ref)
	if err := l.PinBlob(ctx, hexDigest, true); err != nil {
		t.Fatalf("pin blob: %v", err)
	}

	report, err := gc.Run(ctx, l, -time.Hour, time.Now())
	if err != nil {
		t.Fatalf("gc run: %v", err)
	}
	if len(report.Tombstoned) != 0 {
		t.Fatalf("expected pinned blob retained, tombstoned: %v", report.Tombstoned)
	}
	if report.RetainedPin != 1 {
		t.Fatalf("expected 1 blob retained for pin, got %+v", report)
	}
}
