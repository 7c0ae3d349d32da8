package lockfile

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.lock")

	lk, err := Acquire(path, 1000)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lk.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.lock")

	first, err := Acquire(path, 1000)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()

	_, err = Acquire(path, 100)
	if err == nil {
		t.Fatal("expected second acquire to fail while first holds the lock")
	}
	if !errors.Is(err, ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}
}
