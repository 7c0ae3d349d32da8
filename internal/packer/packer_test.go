package packer

import (
	"strings"
	"testing"
)

func TestPackTailAlwaysPreserved(t *testing.T) {
	tail := strings.Repeat("TAIL-LINE\n", 400) // ~4000 chars
	in := Input{
		Branch:         "main",
		ProjectSummary: strings.Repeat("body text here\n", 500),
		Tail:           tail,
		Budget:         1000,
	}
	out := Pack(in)
	if !strings.Contains(out, strings.TrimRight(tail, "\n")) {
		t.Fatalf("expected tail preserved verbatim in output")
	}
}

func TestPackBodyBudgetFloor(t *testing.T) {
	// total=1000, tail~4000 => body budget should floor at 2000, not go negative.
	tail := strings.Repeat("T", 4000)
	in := Input{
		Branch:         "main",
		ProjectSummary: strings.Repeat("x\n", 2000),
		Tail:           tail,
		Budget:         1000,
	}
	out := Pack(in)
	if !strings.Contains(out, tail) {
		t.Fatalf("expected tail present even when body budget is at floor")
	}
	if !strings.Contains(out, "truncated") {
		t.Fatalf("expected truncation marker when body exceeds its budget")
	}
}

func TestPackNoTruncationWhenBodyFits(t *testing.T) {
	in := Input{
		Branch:         "main",
		ProjectSummary: "short summary",
		Tail:           "## Peers\nnone\n",
		Budget:         8000,
	}
	out := Pack(in)
	if strings.Contains(out, "truncated") {
		t.Fatalf("did not expect truncation marker for small body")
	}
	if !strings.Contains(out, "short summary") {
		t.Fatalf("expected project summary present")
	}
}

func TestPackDefaultBudgetAppliedWhenUnset(t *testing.T) {
	in := Input{Branch: "main", Tail: "## Peers\nnone\n"}
	out := Pack(in)
	if !strings.Contains(out, "# CONTEXT SNAPSHOT") {
		t.Fatalf("expected stable header")
	}
}

func TestPackDecisionsRenderedOldestToNewest(t *testing.T) {
	// Decisions arrives newest-first (per recentDecisions' query order);
	// spec.md §4.4 requires the rendered body read oldest->newest within
	// the cap, so db.engine (newest, first in the slice) must render after
	// auth.mode (older, second in the slice).
	in := Input{
		Branch: "main",
		Decisions: []Decision{
			{Key: "db.engine", Value: "sqlite", Reason: "embedded, no server"},
			{Key: "auth.mode", Value: "oauth", Reason: "sso requirement"},
		},
		Tail: "## Peers\nnone\n",
	}
	out := Pack(in)
	dbIdx := strings.Index(out, "db.engine")
	authIdx := strings.Index(out, "auth.mode")
	if dbIdx < 0 || authIdx < 0 || authIdx > dbIdx {
		t.Fatalf("expected decisions rendered oldest->newest")
	}
}
