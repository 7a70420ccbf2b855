package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed instance can hold the batch lock.
// It must comfortably exceed the processor's time budget.
const DefaultLockTTL = 10 * time.Minute

// BatchLock serializes scheduled batches across processor instances. The task
// claim itself is already safe under concurrency; the lock only avoids having
// every instance burn a full batch on the same queue at once.
type BatchLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewBatchLock creates a batch lock scoped to the given key.
func NewBatchLock(client *redis.Client, key string, ttl time.Duration) *BatchLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &BatchLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the lock without blocking.
func (l *BatchLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire batch lock: %w", err)
	}
	return ok, nil
}

// releaseScript deletes the lock only when this instance still holds it, so a
// batch that outlived the TTL cannot release a successor's lock.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release gives the lock back. Releasing a lock taken over by another
// instance is a no-op.
func (l *BatchLock) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int(); err != nil {
		return fmt.Errorf("release batch lock: %w", err)
	}
	return nil
}
