package synclock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rediscl "github.com/go-redis/redis/v8"
	"github.com/ironvault/sentryiam/pkg/cache"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	c := cache.NewFromClient(rediscl.NewClient(&rediscl.Options{Addr: mr.Addr()}))
	return New(c).WithBackoff(5 * time.Millisecond).WithAcquireTimeout(200 * time.Millisecond)
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	h, err := l.Acquire(ctx, "set:1")
	require.NoError(t, err)
	require.NoError(t, h.Release(ctx))

	// lock is free again
	h2, err := l.Acquire(ctx, "set:1")
	require.NoError(t, err)
	require.NoError(t, h2.Release(ctx))
}

func TestAcquireBlocksConcurrentHolder(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	h, err := l.Acquire(ctx, "set:1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "set:1")
	require.Error(t, err)
	require.True(t, iamerrors.IsResourceBusy(err))

	require.NoError(t, h.Release(ctx))
}

func TestWithLockSerializesCallers(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	var counter int64

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- l.WithLock(ctx, "set:serial", func(ctx context.Context) error {
				cur := atomic.AddInt64(&counter, 1)
				time.Sleep(2 * time.Millisecond)
				if cur != atomic.LoadInt64(&counter) {
					t.Error("counter mutated concurrently under lock")
				}
				return nil
			})
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}
	require.Equal(t, int64(4), counter)
}
