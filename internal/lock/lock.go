// Package lock provides a Redis-backed mutex shared between replicas.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by TryLock when another holder owns the key.
var ErrNotAcquired = errors.New("lock: not acquired")

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker hands out leases on Redis keys.
type Locker struct {
	Client *redis.Client
	Retry  time.Duration
}

// Lease is a held lock.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// TryLock attempts a single acquisition of key for ttl.
func (l Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l.Client == nil {
		return nil, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lease{client: l.Client, key: key, token: token}, nil
}

// WithLock runs fn while holding key, waiting for the current holder if
// needed. The lease is released when fn returns.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	retry := l.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	for {
		lease, err := l.TryLock(ctx, key, ttl)
		if err == nil {
			defer func() { _ = lease.Release(context.Background()) }()
			return fn(ctx)
		}
		if !errors.Is(err, ErrNotAcquired) {
			return err
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release frees the lease. Releasing an expired or stolen lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
