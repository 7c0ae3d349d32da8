package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/fagemx/edda/internal/eventmodel"
)

func TestAppendHoistsOversizedPayloadField(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	big := strings.Repeat("x", InlineThreshold+1)
	ev, err := l.Append(ctx, "main", eventmodel.TypeCmd, map[string]any{
		"argv": []any{"echo", "hi"}, "exit_code": 0, "duration_ms": 5,
		"stdout": big,
	}, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	ref, ok := ev.Payload["stdout_ref"].(string)
	if !ok {
		t.Fatalf("expected stdout_ref to be hoisted, payload: %+v", ev.Payload)
	}
	if _, ok := ev.Payload["stdout"]; ok {
		t.Fatalf("expected stdout field removed after hoisting, payload: %+v", ev.Payload)
	}

	content, err := l.ReadBlob(ctx, ref)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(content) != big {
		t.Fatal("blob content did not round-trip")
	}
}

func TestAppendLeavesSmallPayloadInline(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	ev, err := l.Append(ctx, "main", eventmodel.TypeNote, map[string]any{
		"text": "short", "role": "user", "tags": []any{},
	}, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, ok := ev.Payload["text_ref"]; ok {
		t.Fatal("did not expect hoisting for a small field")
	}
	if ev.Payload["text"] != "short" {
		t.Fatalf("expected inline text preserved, got %+v", ev.Payload["text"])
	}
}

func TestTombstoneBlobMakesItUnreadable(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	big := strings.Repeat("y", InlineThreshold+1)
	ev, err := l.Append(ctx, "main", eventmodel.TypeCmd, map[string]any{
		"argv": []any{"x"}, "exit_code": 0, "duration_ms": 1, "stdout": big,
	}, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	ref := ev.Payload["stdout_ref"].(string)
	_, hexDigest, _ := eventmodel.ParseBlobRef(ref)

	if err := l.TombstoneBlob(ctx, hexDigest); err != nil {
		t.Fatalf("tombstone: %v", err)
	}
	if _, err := l.ReadBlob(ctx, ref); err != ErrBlobNotFound {
		t.Fatalf("expected ErrBlobNotFound after tombstone, got %v", err)
	}
}
