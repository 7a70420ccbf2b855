// Package schedule runs the queue processor on a fixed interval and houses
// the janitor that reclaims tasks stranded in processing by crashed workers.
// Scheduling state is explicit and owned here; nothing else in the system
// starts batches on its own.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/processor"
)

// Scheduling defaults.
const (
	DefaultInterval   = 5 * time.Minute
	DefaultStaleAfter = 30 * time.Minute

	// janitorSpec runs the stale-task reclaim sweep.
	janitorSpec = "@every 10m"
)

// Config holds coordinator configuration.
type Config struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
}

// State is the coordinator's externally visible scheduling state.
type State struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	Running  bool          `json:"running"`
	LastRun  time.Time     `json:"last_run,omitempty"`
}

// Coordinator drives periodic processor batches and the stale-task janitor.
type Coordinator struct {
	cfg  Config
	proc *processor.Processor
	tasks database.TaskStore
	log  logger.Logger

	cron *cron.Cron
	lock *BatchLock

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewCoordinator creates a new schedule coordinator.
func NewCoordinator(cfg Config, proc *processor.Processor, tasks database.TaskStore, log logger.Logger) *Coordinator {
	cfg.SetDefaults()
	return &Coordinator{
		cfg:   cfg,
		proc:  proc,
		tasks: tasks,
		log:   log,
		cron:  cron.New(),
	}
}

// UseBatchLock installs a distributed lock so that only one instance runs a
// scheduled batch at a time. Without a lock, batches are only serialized
// within this process.
func (c *Coordinator) UseBatchLock(lock *BatchLock) {
	c.lock = lock
}

// Start registers the cron entries and begins scheduling. It returns
// immediately; batches run on the cron's goroutine. Starting a disabled
// coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("scheduler disabled")
		return nil
	}

	batchSpec := fmt.Sprintf("@every %s", c.cfg.Interval)
	if _, err := c.cron.AddFunc(batchSpec, func() { c.runBatch(ctx) }); err != nil {
		return fmt.Errorf("register batch schedule %q: %w", batchSpec, err)
	}
	if _, err := c.cron.AddFunc(janitorSpec, func() { c.reclaimStale(ctx) }); err != nil {
		return fmt.Errorf("register janitor schedule: %w", err)
	}

	c.cron.Start()
	c.log.Info("scheduler started", logger.Duration("interval", c.cfg.Interval))

	return nil
}

// Stop halts scheduling and waits for any in-flight batch to finish.
func (c *Coordinator) Stop() {
	stopCtx := c.cron.Stop()
	<-stopCtx.Done()
	c.log.Info("scheduler stopped")
}

// State reports current scheduling state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Enabled:  c.cfg.Enabled,
		Interval: c.cfg.Interval,
		Running:  c.running,
		LastRun:  c.lastRun,
	}
}

// runBatch runs one processor invocation. Overlapping fires are skipped: a
// batch that outlives the interval simply absorbs the next tick.
func (c *Coordinator) runBatch(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.log.Debug("batch still running, skipping tick")
		return
	}
	c.running = true
	c.mu.Unlock()

	if c.lock != nil {
		acquired, err := c.lock.TryAcquire(ctx)
		if err != nil {
			c.log.Warn("batch lock unavailable, skipping tick", logger.Error(err))
		} else if !acquired {
			c.log.Debug("another instance holds the batch lock, skipping tick")
		}
		if !acquired {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			return
		}
		defer func() {
			if releaseErr := c.lock.Release(ctx); releaseErr != nil {
				c.log.Warn("batch lock release failed", logger.Error(releaseErr))
			}
		}()
	}

	defer func() {
		c.mu.Lock()
		c.running = false
		c.lastRun = time.Now()
		c.mu.Unlock()
	}()

	report, err := c.proc.Run(ctx, 0, 0)
	if err != nil {
		c.log.Error("scheduled batch failed", logger.Error(err))
		return
	}

	c.log.Info("scheduled batch finished",
		logger.Int("tasks_processed", report.TasksProcessed),
		logger.Int("tasks_failed", report.TasksFailed),
	)
}

// reclaimStale returns tasks stuck in processing past the stale cutoff to the
// pending pool.
func (c *Coordinator) reclaimStale(ctx context.Context) {
	cutoff := time.Now().Add(-c.cfg.StaleAfter)

	reclaimed, err := c.tasks.ReclaimStale(ctx, cutoff)
	if err != nil {
		c.log.Error("stale task reclaim failed", logger.Error(err))
		return
	}

	if reclaimed > 0 {
		c.log.Warn("reclaimed stale tasks", logger.Int("count", reclaimed))
	}
}
