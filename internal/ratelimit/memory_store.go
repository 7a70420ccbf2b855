package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps last-action timestamps in process memory. Throttling only
// holds within a single process; use RedisStore when multiple workers run
// against the same targets.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore creates a new in-memory rate limit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

// LastAction returns the recorded last-action time for a key, or the zero
// time if none exists.
func (s *MemoryStore) LastAction(_ context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[key], nil
}

// Touch records now as the last-action time for a key.
func (s *MemoryStore) Touch(_ context.Context, key string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[key] = now
	return nil
}
