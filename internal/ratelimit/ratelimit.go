// Package ratelimit spaces outbound actions per target with a randomized
// delay. Mechanical, fixed-interval submission is a strong abuse signal;
// randomized spacing approximates human timing without blocking indefinitely.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/formreach/formreach/internal/logger"
)

// Default delay window.
const (
	DefaultMinDelay = 3 * time.Second
	DefaultMaxDelay = 10 * time.Second
)

// Store persists the last-action timestamp per target key. A durable store
// (Redis) makes throttling hold across worker processes; the in-memory store
// is a per-process fallback.
type Store interface {
	// LastAction returns the recorded last-action time for a key, or the zero
	// time if none exists.
	LastAction(ctx context.Context, key string) (time.Time, error)
	// Touch records now as the last-action time for a key.
	Touch(ctx context.Context, key string, now time.Time) error
}

// Config holds rate limiter configuration.
type Config struct {
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.MinDelay <= 0 {
		c.MinDelay = DefaultMinDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
}

// Limiter enforces a randomized minimum interval between consecutive actions
// toward a single target key.
type Limiter struct {
	store Store
	cfg   Config
	log   logger.Logger

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a new rate limiter backed by the given store.
func NewLimiter(store Store, cfg Config, log logger.Logger) *Limiter {
	cfg.SetDefaults()
	return &Limiter{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Wait suspends the caller until a randomized interval, drawn uniformly from
// [MinDelay, MaxDelay], has elapsed since the last action against the target
// key. The last-action timestamp is updated on every call, even if the caller
// ultimately takes no action, so accidental bursts stay spaced. Returns early
// only if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, targetKey string) error {
	last, err := l.store.LastAction(ctx, targetKey)
	if err != nil {
		return fmt.Errorf("rate limit lookup for %s: %w", targetKey, err)
	}

	delay := l.randomDelay()

	if !last.IsZero() {
		elapsed := l.now().Sub(last)
		if remaining := delay - elapsed; remaining > 0 {
			l.log.Debug("rate limiting target",
				logger.String("target", targetKey),
				logger.Duration("wait", remaining),
			)
			if sleepErr := l.sleep(ctx, remaining); sleepErr != nil {
				return sleepErr
			}
		}
	}

	if touchErr := l.store.Touch(ctx, targetKey, l.now()); touchErr != nil {
		return fmt.Errorf("rate limit touch for %s: %w", targetKey, touchErr)
	}

	return nil
}

// randomDelay draws a delay uniformly from the configured window.
func (l *Limiter) randomDelay() time.Duration {
	window := l.cfg.MaxDelay - l.cfg.MinDelay
	if window <= 0 {
		return l.cfg.MinDelay
	}
	return l.cfg.MinDelay + time.Duration(rand.Int63n(int64(window)))
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
