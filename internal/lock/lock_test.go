package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/lock"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, lock.Locker) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, lock.Locker{Client: client, Retry: 5 * time.Millisecond}
}

func TestTryLockExclusive(t *testing.T) {
	mr, locker := newLocker(t)
	ctx := context.Background()

	lease, err := locker.TryLock(ctx, "catalog:lock", time.Minute)
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "catalog:lock", time.Minute)
	require.ErrorIs(t, err, lock.ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))
	require.False(t, mr.Exists("catalog:lock"))

	_, err = locker.TryLock(ctx, "catalog:lock", time.Minute)
	require.NoError(t, err)
}

func TestReleaseKeepsForeignLease(t *testing.T) {
	mr, locker := newLocker(t)
	ctx := context.Background()

	lease, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	other, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	require.True(t, mr.Exists("k"))
	require.NoError(t, other.Release(ctx))
}

func TestWithLockSerialises(t *testing.T) {
	_, locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstIn := make(chan struct{})
	releaseFirst := make(chan struct{})
	done := make(chan error, 2)

	go func() {
		done <- locker.WithLock(ctx, "demo", time.Minute, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstIn)
			<-releaseFirst
			return nil
		})
	}()
	<-firstIn

	go func() {
		done <- locker.WithLock(ctx, "demo", time.Minute, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	close(releaseFirst)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockHonoursContext(t *testing.T) {
	_, locker := newLocker(t)
	_, err := locker.TryLock(context.Background(), "busy", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = locker.WithLock(ctx, "busy", time.Minute, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
