package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

type stubTaskStore struct {
	database.TaskStore

	reclaimed  int
	reclaimErr error
	cutoffs    []time.Time
}

func (s *stubTaskStore) ReclaimStale(_ context.Context, cutoff time.Time) (int, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.reclaimed, s.reclaimErr
}

func (s *stubTaskStore) ClaimNext(context.Context) (*domain.Task, error) {
	return nil, database.ErrNoTaskAvailable
}

func TestConfigSetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultStaleAfter, cfg.StaleAfter)

	cfg = Config{Interval: time.Minute, StaleAfter: time.Hour}
	cfg.SetDefaults()
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, time.Hour, cfg.StaleAfter)
}

func TestStartDisabledIsNoOp(t *testing.T) {
	coord := NewCoordinator(Config{Enabled: false}, nil, &stubTaskStore{}, logger.NewNop())

	require.NoError(t, coord.Start(context.Background()))

	state := coord.State()
	assert.False(t, state.Enabled)
	assert.False(t, state.Running)
	assert.True(t, state.LastRun.IsZero())
}

func TestReclaimStaleUsesConfiguredCutoff(t *testing.T) {
	store := &stubTaskStore{reclaimed: 3}
	coord := NewCoordinator(Config{StaleAfter: 15 * time.Minute}, nil, store, logger.NewNop())

	before := time.Now().Add(-15 * time.Minute)
	coord.reclaimStale(context.Background())
	after := time.Now().Add(-15 * time.Minute)

	require.Len(t, store.cutoffs, 1)
	cutoff := store.cutoffs[0]
	assert.False(t, cutoff.Before(before))
	assert.False(t, cutoff.After(after))
}

func TestReclaimStaleSwallowsStoreErrors(t *testing.T) {
	store := &stubTaskStore{reclaimErr: errors.New("connection reset")}
	coord := NewCoordinator(Config{}, nil, store, logger.NewNop())

	assert.NotPanics(t, func() { coord.reclaimStale(context.Background()) })
}
