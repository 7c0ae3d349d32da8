package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Lock is a held exclusive advisory lock on a single file. The zero value is
// not usable; obtain one via Acquire.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if absent) path and retries a non-blocking
// exclusive flock with jittered backoff until it succeeds or timeoutMS
// elapses, generalizing the teacher's single-shot FlockExclusiveNonBlock
// into the bounded-wait BRIDGE_LOCK_TIMEOUT_MS contract (spec.md §5).
func Acquire(path string, timeoutMS int) (*Lock, error) {
	if timeoutMS <= 0 {
		timeoutMS = 2000
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = time.Duration(timeoutMS) * time.Millisecond

	op := func() error {
		err := FlockExclusiveNonBlock(f)
		if err != nil && errors.Is(err, ErrLockBusy) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, b); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			return nil, fmt.Errorf("acquire lock %s (held by %s): %w", path, holderDescription(path), ErrLockBusy)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}

	if err := writeHolderPID(f); err != nil {
		_ = FlockUnlock(f)
		_ = f.Close()
		return nil, fmt.Errorf("record lock holder: %w", err)
	}

	return &Lock{f: f}, nil
}

// writeHolderPID truncates the lock file to this process's PID so a later
// contender can report whether the holder is still alive (holderDescription).
func writeHolderPID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}
	return f.Sync()
}

// holderDescription reads the PID recorded by whoever holds path's lock and
// reports whether that process still appears to be running. Best-effort:
// errors reading the file yield "unknown holder" rather than propagating.
func holderDescription(path string) string {
	data, err := os.ReadFile(path) // #nosec G304 - path is the caller-supplied lock file
	if err != nil {
		return "unknown holder"
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return "unknown holder"
	}
	if isProcessRunning(pid) {
		return fmt.Sprintf("pid %d (running)", pid)
	}
	return fmt.Sprintf("pid %d (not running, lock likely stale)", pid)
}

// Release unlocks and closes the underlying file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := FlockUnlock(l.f)
	closeErr := l.f.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock: %w", unlockErr)
	}
	return closeErr
}
