package flock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrTimeout is returned when the lock is still held by another process after
// the timeout elapsed.
var ErrTimeout = errors.New("timed out waiting for file lock")

// retryInterval is the pause between non-blocking lock attempts.
const retryInterval = 50 * time.Millisecond

// Lock is a held exclusive lock.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if needed) the lock file at path and polls for an
// exclusive lock until it succeeds, ctx is done, or timeout elapses.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644) //#nosec G304 -- path is built from configured data dir
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := exclusive(f.Fd()); err == nil {
			return &Lock{file: f}, nil
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("%s: %w", path, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Release unlocks and closes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlock(l.file.Fd())
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
