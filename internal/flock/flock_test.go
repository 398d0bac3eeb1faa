package flock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.json.lock")

	lock, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	// Lock can be taken again once released.
	lock, err = Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	assert.NoError(t, lock.Release())
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.json.lock")

	held, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.Release()

	_, err = Acquire(context.Background(), path, 120*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)
}

func TestAcquireHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.json.lock")

	held, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Acquire(ctx, path, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseNilLock(t *testing.T) {
	var lock *Lock
	assert.NoError(t, lock.Release())
}
