package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/pkg/redis"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.Wrap(raw), srv
}

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestRedis(t)

	first, err := NewRedisLock(client, "rollup-lock", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(client, "rollup-lock", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// releasing a lock we never held leaves the owner's key alone
	require.NoError(t, second.Release(ctx))
	assert.True(t, srv.Exists("rollup-lock"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, srv.Exists("rollup-lock"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExpires(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestRedis(t)

	stale, err := NewRedisLock(client, "rollup-lock", time.Minute)
	require.NoError(t, err)
	ok, err := stale.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Minute)

	fresh, err := NewRedisLock(client, "rollup-lock", time.Minute)
	require.NoError(t, err)
	ok, err = fresh.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// the stale holder must not drop the new owner's lock
	require.NoError(t, stale.Release(ctx))
	assert.True(t, srv.Exists("rollup-lock"))
}

func TestNewRedisLockValidates(t *testing.T) {
	client, _ := newTestRedis(t)
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(client, "", 0)
	assert.Error(t, err)

	lock, err := NewRedisLock(client, "k", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}

func TestRedisLockRejectsReentry(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestRedis(t)

	lock, err := NewRedisLock(client, "rollup-lock", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = lock.Acquire(ctx)
	assert.Error(t, err)

	require.NoError(t, lock.Release(ctx))
	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
