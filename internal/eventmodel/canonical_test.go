package eventmodel

import (
	"testing"
	"time"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	in := map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	}
	got, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"alpha":2,"mid":3,"zeta":1}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeTimestampFormat(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	got, err := Canonicalize(map[string]any{"ts": ts})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"ts":"2026-01-02T03:04:05.006Z"}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeRejectsNaN(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	if _, err := Canonicalize(map[string]any{"x": nan}); err == nil {
		t.Fatalf("expected error for NaN, got nil")
	}
}

func TestCanonicalizeRoundTripIsStable(t *testing.T) {
	in := map[string]any{
		"b": []any{"x", "y"},
		"a": map[string]any{"nested": true},
	}
	first, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	second, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("canonicalize is not stable: %s != %s", first, second)
	}
}

func TestCanonicalizeHandlesStringMap(t *testing.T) {
	// Event.Refs is map[string]Ref, a type alias for map[string]string; this
	// is exactly the shape HashInput feeds in for every event's "refs" field.
	in := map[string]any{"refs": map[string]string{"stderr": "blob:sha256:abc"}}
	got, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"refs":{"stderr":"blob:sha256:abc"}}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeHandlesEmptyStringMap(t *testing.T) {
	// HashInput substitutes map[string]Ref{} when Refs is nil.
	in := map[string]any{"refs": map[string]string{}}
	got, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"refs":{}}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEventComputeHashChains(t *testing.T) {
	id1, _ := NewEventID(time.Now())
	e1 := Event{
		EventID:    id1,
		TS:         time.Now(),
		Type:       TypeNote,
		Branch:     "main",
		ParentHash: "",
		Payload:    map[string]any{"text": "a", "role": string(RoleUser)},
	}
	h1, err := e1.ComputeHash()
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	if h1 == "" {
		t.Fatalf("expected non-empty hash")
	}

	id2, _ := NewEventID(time.Now())
	e2 := Event{
		EventID:    id2,
		TS:         time.Now(),
		Type:       TypeNote,
		Branch:     "main",
		ParentHash: h1,
		Payload:    map[string]any{"text": "b", "role": string(RoleUser)},
	}
	h2, err := e2.ComputeHash()
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	if h2 == h1 {
		t.Fatalf("expected distinct hashes for distinct events")
	}
	if e2.ParentHash != h1 {
		t.Fatalf("parent hash mismatch")
	}
}
