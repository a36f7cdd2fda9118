package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/convo/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements ports.DistributedLocker using Redis SET NX PX.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithRetryInterval sets how often a contended lock is retried.
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// NewLocker creates a new Redis locker. Keys are prefix + "lock:" + key.
func NewLocker(client *backend.Client, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{
		client: client,
		prefix: prefix,
		retry:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock polls until the lock is acquired or ctx is done. Each holder gets a
// random token so an expired holder cannot release a successor's lock.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
