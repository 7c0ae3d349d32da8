// Package gc implements the blob garbage-collection pass described in
// spec.md §3.1: a blob is deleted (tombstoned) only when unpinned,
// unreferenced, and older than a retention window.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/fagemx/edda/internal/ledger"
)

// DefaultRetention matches SPEC_FULL.md §6's "default 30 days".
const DefaultRetention = 30 * 24 * time.Hour

// Report summarizes one GC pass.
type Report struct {
	Scanned     int
	Tombstoned  []string // hashes
	Retained    int
	RetainedPin int
	RetainedRef int
}

// Run scans every blob row, tombstoning those that are unpinned,
// unreferenced (ReferencedBy == 0), and older than retention. now is
// injected so callers can test deterministically.
func Run(ctx context.Context, l *ledger.Ledger, retention time.Duration, now time.Time) (Report, error) {
	if retention == 0 {
		retention = DefaultRetention
	}

	blobs, err := l.ListBlobs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list blobs: %w", err)
	}

	var report Report
	report.Scanned = len(blobs)

	for _, b := range blobs {
		if b.Tombstoned {
			continue
		}
		if b.Pinned {
			report.RetainedPin++
			continue
		}
		if b.ReferencedBy > 0 {
			report.RetainedRef++
			continue
		}
		if now.Sub(b.CreatedAt) < retention {
			report.Retained++
			continue
		}
		if err := l.TombstoneBlob(ctx, b.Hash); err != nil {
			return report, fmt.Errorf("tombstone blob %s: %w", b.Hash, err)
		}
		report.Tombstoned = append(report.Tombstoned, b.Hash)
	}
	return report, nil
}
