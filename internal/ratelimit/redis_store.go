package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces rate limiter keys in Redis.
	keyPrefix = "outreach:ratelimit:"

	// keyTTL bounds how long idle target timestamps are kept.
	keyTTL = 24 * time.Hour
)

// RedisStore keeps last-action timestamps in Redis so throttling holds across
// concurrently running worker processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed rate limit store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// LastAction returns the recorded last-action time for a key, or the zero
// time if none exists.
func (s *RedisStore) LastAction(ctx context.Context, key string) (time.Time, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last action: %w", err)
	}

	return time.UnixMilli(value), nil
}

// Touch records now as the last-action time for a key.
func (s *RedisStore) Touch(ctx context.Context, key string, now time.Time) error {
	if err := s.client.Set(ctx, keyPrefix+key, now.UnixMilli(), keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to set last action: %w", err)
	}
	return nil
}
