package observability

import (
	"bytes"
	"io"
	"os"
	"testing"
)

func TestSetDebugTogglesEnabled(t *testing.T) {
	prev := Enabled()
	defer SetDebug(prev)

	SetDebug(true)
	if !Enabled() {
		t.Fatalf("expected Enabled() true after SetDebug(true)")
	}
	SetDebug(false)
	if Enabled() {
		t.Fatalf("expected Enabled() false after SetDebug(false)")
	}
}

func TestDebugfWritesOnlyWhenEnabled(t *testing.T) {
	prev := Enabled()
	defer SetDebug(prev)

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w

	SetDebug(false)
	Debugf("should not appear")

	SetDebug(true)
	Debugf("TIMEOUT after %dms", 50)

	w.Close()
	os.Stderr = oldStderr

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	got := string(out)
	if bytes.Contains(out, []byte("should not appear")) {
		t.Fatalf("expected disabled Debugf to produce no output, got %q", got)
	}
	if !bytes.Contains(out, []byte("TIMEOUT after 50ms")) {
		t.Fatalf("expected enabled Debugf to emit message, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	s := "abcdefghij"
	if got := truncate(s, 20); got != s {
		t.Fatalf("short string should be unchanged, got %q", got)
	}
	got := truncate(s, 5)
	if got != "abcde...(truncated)" {
		t.Fatalf("got %q", got)
	}
}
