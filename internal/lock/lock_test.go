package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := NewRedisClient(RedisConfig{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), srv
}

func TestRedisLocker_Exclusive(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()

	release2, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ExpiredLockIsNotReleasedByOldOwner(t *testing.T) {
	locker, srv := newRedisLocker(t)
	ctx := context.Background()

	releaseOld, err := locker.Acquire(ctx, "sweep", time.Second)
	require.NoError(t, err)

	srv.FastForward(2 * time.Second)

	releaseNew, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	releaseOld()
	assert.True(t, srv.Exists("lock:sweep"))

	releaseNew()
	assert.False(t, srv.Exists("lock:sweep"))
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	now = now.Add(2 * time.Minute)
	releaseLate, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	release()
	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	releaseLate()
	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.NoError(t, err)
}
