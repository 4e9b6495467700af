package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(rc)
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetNXMutualExclusion(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "holder1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "holder2", time.Second)
	require.NoError(t, err)
	require.False(t, ok, "second SetNX on a held key must fail")
}

func TestIncrExpire(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, c.Expire(ctx, "counter", time.Minute))
	ttl, err := c.TTL(ctx, "counter")
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestHashOperations(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "h", "f1", "v1"))
	require.NoError(t, c.HSet(ctx, "h", "f2", "v2"))

	all, err := c.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, all)

	n, err := c.HLen(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, c.HDel(ctx, "h", "f1"))
	_, ok, err := c.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	require.False(t, ok)
}
