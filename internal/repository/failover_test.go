package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	err   error
	calls int
}

func (s *stubLocker) Acquire(ctx context.Context, resourceID string) (func(), error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return func() {}, nil
}

func TestFailoverPrefersPrimary(t *testing.T) {
	primary := &stubLocker{}
	fallback := &stubLocker{}
	logger := zerolog.Nop()
	locker := NewFailoverResourceLocker(primary, fallback, &logger)

	release, err := locker.Acquire(context.Background(), "dr-adams")
	require.NoError(t, err)
	release()

	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestFailoverDropsToFallback(t *testing.T) {
	primary := &stubLocker{err: errors.New("connection refused")}
	fallback := &stubLocker{}
	logger := zerolog.Nop()
	locker := NewFailoverResourceLocker(primary, fallback, &logger)

	release, err := locker.Acquire(context.Background(), "dr-adams")
	require.NoError(t, err)
	release()
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)

	// While marked down the primary is not re-probed on every call.
	release, err = locker.Acquire(context.Background(), "dr-adams")
	require.NoError(t, err)
	release()
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 2, fallback.calls)
}

func TestFailoverRetriesPrimaryAfterCooldown(t *testing.T) {
	primary := &stubLocker{err: errors.New("connection refused")}
	fallback := &stubLocker{}
	logger := zerolog.Nop()
	locker := NewFailoverResourceLocker(primary, fallback, &logger)

	_, err := locker.Acquire(context.Background(), "dr-adams")
	require.NoError(t, err)
	require.Equal(t, 1, primary.calls)

	// Move the last probe back past the cooldown and heal the primary.
	locker.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
	primary.err = nil

	release, err := locker.Acquire(context.Background(), "dr-adams")
	require.NoError(t, err)
	release()
	assert.Equal(t, 2, primary.calls)
	assert.False(t, locker.isDown.Load())

	// Healed primary serves subsequent acquisitions directly.
	release, err = locker.Acquire(context.Background(), "dr-adams")
	require.NoError(t, err)
	release()
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestFailoverCallerDeadlineIsNotAnOutage(t *testing.T) {
	primary := &stubLocker{err: context.DeadlineExceeded}
	fallback := &stubLocker{}
	logger := zerolog.Nop()
	locker := NewFailoverResourceLocker(primary, fallback, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locker.Acquire(ctx, "dr-adams")
	assert.Error(t, err)
	assert.Equal(t, 0, fallback.calls)
	assert.False(t, locker.isDown.Load(), "an expired caller deadline must not mark the primary down")
}
