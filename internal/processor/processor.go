// Package processor implements the batch claim loop that drives queued tasks
// through the pipeline. Multiple worker processes run the loop concurrently;
// coordination happens exclusively through the task store's atomic claim, so
// no other mutual-exclusion mechanism exists or is needed.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/formreach/formreach/internal/collab"
	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/dedup"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/message"
	"github.com/formreach/formreach/internal/ratelimit"
	"github.com/formreach/formreach/internal/scoring"
)

// Batch defaults.
const (
	DefaultMaxTasks = 10
	DefaultMaxTime  = 4 * time.Minute

	DefaultMaxPagesPerDomain       = 25
	DefaultMaxSubmissionsPerDomain = 3
	DefaultMinSubmitScore          = 40
)

// Config holds processor configuration.
type Config struct {
	MaxTasks                int           `yaml:"max_tasks"`
	MaxTime                 time.Duration `yaml:"max_time"`
	MaxPagesPerDomain       int           `yaml:"max_pages_per_domain"`
	MaxSubmissionsPerDomain int           `yaml:"max_submissions_per_domain"`
	MinSubmitScore          int           `yaml:"min_submit_score"`
	DedupPolicy             string        `yaml:"dedup_policy"`
	DedupWindowDays         int           `yaml:"dedup_window_days"`

	// Sender identity and the message template rendered per attempt.
	SenderName      string `yaml:"sender_name"`
	SenderEmail     string `yaml:"sender_email"`
	SenderPhone     string `yaml:"sender_phone"`
	SenderCompany   string `yaml:"sender_company"`
	MessageTemplate string `yaml:"message_template"`
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.MaxTasks <= 0 {
		c.MaxTasks = DefaultMaxTasks
	}
	if c.MaxTime <= 0 {
		c.MaxTime = DefaultMaxTime
	}
	if c.MaxPagesPerDomain <= 0 {
		c.MaxPagesPerDomain = DefaultMaxPagesPerDomain
	}
	if c.MaxSubmissionsPerDomain <= 0 {
		c.MaxSubmissionsPerDomain = DefaultMaxSubmissionsPerDomain
	}
	if c.MinSubmitScore <= 0 {
		c.MinSubmitScore = DefaultMinSubmitScore
	}
	if c.DedupPolicy == "" {
		c.DedupPolicy = string(dedup.PolicySkip)
	}
}

// Report summarizes one processor invocation. The processor always returns a
// report, even when individual tasks failed; only an unreachable store aborts
// the invocation with an error.
type Report struct {
	TasksProcessed int           `json:"tasks_processed"`
	TasksFailed    int           `json:"tasks_failed"`
	Elapsed        time.Duration `json:"time_elapsed"`
}

// Processor claims and executes queue tasks within a task-count and
// wall-clock budget.
type Processor struct {
	cfg Config

	tasks       database.TaskStore
	domains     database.DomainStore
	pages       database.PageStore
	submissions database.SubmissionStore

	guard   *dedup.Guard
	limiter *ratelimit.Limiter
	scorer  *scoring.Scorer
	tracker *scoring.Tracker
	engine  *message.Engine

	analyzer collab.Analyzer
	crawler  collab.Crawler
	executor collab.Executor

	log logger.Logger

	// newID and now are swappable for tests.
	newID func() string
	now   func() time.Time
}

// Deps bundles the processor's collaborators and stores.
type Deps struct {
	Tasks       database.TaskStore
	Domains     database.DomainStore
	Pages       database.PageStore
	Submissions database.SubmissionStore
	Guard       *dedup.Guard
	Limiter     *ratelimit.Limiter
	Scorer      *scoring.Scorer
	Tracker     *scoring.Tracker
	Engine      *message.Engine
	Analyzer    collab.Analyzer
	Crawler     collab.Crawler
	Executor    collab.Executor
	Logger      logger.Logger
}

// New creates a new processor.
func New(cfg Config, deps Deps) (*Processor, error) {
	cfg.SetDefaults()

	if _, err := dedup.ParsePolicy(cfg.DedupPolicy); err != nil {
		return nil, fmt.Errorf("invalid processor config: %w", err)
	}
	if deps.Tasks == nil || deps.Domains == nil || deps.Pages == nil || deps.Submissions == nil {
		return nil, errors.New("invalid processor config: all stores are required")
	}
	if deps.Analyzer == nil || deps.Crawler == nil || deps.Executor == nil {
		return nil, errors.New("invalid processor config: all collaborators are required")
	}
	if deps.Guard == nil || deps.Limiter == nil || deps.Scorer == nil || deps.Engine == nil {
		return nil, errors.New("invalid processor config: guard, limiter, scorer, and engine are required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Processor{
		cfg:         cfg,
		tasks:       deps.Tasks,
		domains:     deps.Domains,
		pages:       deps.Pages,
		submissions: deps.Submissions,
		guard:       deps.Guard,
		limiter:     deps.Limiter,
		scorer:      deps.Scorer,
		tracker:     deps.Tracker,
		engine:      deps.Engine,
		analyzer:    deps.Analyzer,
		crawler:     deps.Crawler,
		executor:    deps.Executor,
		log:         log,
		newID:       uuid.NewString,
		now:         time.Now,
	}, nil
}

// Run claims and processes tasks until the task-count or wall-clock budget is
// exhausted, whichever comes first. Both budgets are checked before every
// claim, so the loop never starts a task past deadline. Zero arguments fall
// back to the configured defaults. A partial report is returned alongside any
// persistence error.
func (p *Processor) Run(ctx context.Context, maxTasks int, maxTime time.Duration) (*Report, error) {
	if maxTasks <= 0 {
		maxTasks = p.cfg.MaxTasks
	}
	if maxTime <= 0 {
		maxTime = p.cfg.MaxTime
	}

	start := p.now()
	report := &Report{}

	p.log.Info("processor run started",
		logger.Int("max_tasks", maxTasks),
		logger.Duration("max_time", maxTime),
	)

	for report.TasksProcessed < maxTasks {
		if p.now().Sub(start) >= maxTime {
			p.log.Info("time budget exhausted", logger.Int("processed", report.TasksProcessed))
			break
		}
		if ctx.Err() != nil {
			break
		}

		task, claimErr := p.tasks.ClaimNext(ctx)
		if claimErr != nil {
			if errors.Is(claimErr, database.ErrNoTaskAvailable) {
				break
			}
			// Store unavailable: abort the whole invocation.
			report.Elapsed = p.now().Sub(start)
			return report, fmt.Errorf("claim next task: %w", claimErr)
		}

		report.TasksProcessed++
		if handleErr := p.handle(ctx, task); handleErr != nil {
			report.TasksFailed++
		}
	}

	report.Elapsed = p.now().Sub(start)

	p.log.Info("processor run finished",
		logger.Int("tasks_processed", report.TasksProcessed),
		logger.Int("tasks_failed", report.TasksFailed),
		logger.Duration("elapsed", report.Elapsed),
	)

	return report, nil
}

// handle drives one claimed task to a terminal state, re-enqueues it when a
// retryable failure has attempts remaining, and refreshes the owning domain's
// rollup status. The returned error only signals that the task failed; it is
// never propagated past the batch boundary.
func (p *Processor) handle(ctx context.Context, task *domain.Task) error {
	taskLog := p.log.With(
		logger.String("task_id", task.ID),
		logger.String("task_type", task.TaskType),
		logger.String("domain_id", task.DomainID),
	)

	result, err := p.dispatch(ctx, task)
	if err == nil {
		if markErr := p.tasks.MarkCompleted(ctx, task.ID, result); markErr != nil {
			taskLog.Error("failed to mark task completed", logger.Error(markErr))
			return markErr
		}
		taskLog.Info("task completed")
		p.updateRollup(ctx, task.DomainID)
		return nil
	}

	taskLog.Warn("task failed", logger.Error(err))

	if markErr := p.tasks.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
		taskLog.Error("failed to mark task failed", logger.Error(markErr))
		return markErr
	}

	if p.shouldRetry(task, err) {
		retry, requeueErr := p.tasks.Requeue(ctx, task, p.newID())
		if requeueErr != nil {
			taskLog.Error("failed to requeue task", logger.Error(requeueErr))
		} else {
			taskLog.Info("task requeued",
				logger.String("retry_id", retry.ID),
				logger.Int("attempt", retry.Attempt),
			)
		}
	}

	p.updateRollup(ctx, task.DomainID)
	return err
}

// dispatch routes a claimed task to its stage handler by type.
func (p *Processor) dispatch(ctx context.Context, task *domain.Task) (domain.JSONBMap, error) {
	switch task.TaskType {
	case domain.TaskTypeAnalyzeDomain:
		return p.handleAnalyze(ctx, task)
	case domain.TaskTypeCrawlPages:
		return p.handleCrawl(ctx, task)
	case domain.TaskTypeSubmitForm, domain.TaskTypeSubmitComment:
		return p.handleSubmit(ctx, task)
	default:
		return nil, collab.Invalid(fmt.Errorf("unknown task type %q", task.TaskType))
	}
}

// shouldRetry reports whether a failed task earns a fresh pending row.
// Validation failures are terminal; everything else retries while attempts
// remain below the ceiling.
func (p *Processor) shouldRetry(task *domain.Task, err error) bool {
	if collab.IsValidation(err) {
		return false
	}
	return task.AttemptsRemaining()
}

// updateRollup persists the owning domain's aggregate status. The rollup is
// written here, on every terminal transition, so dashboard reads stay cheap.
func (p *Processor) updateRollup(ctx context.Context, domainID string) {
	active, err := p.tasks.CountActiveByDomain(ctx, domainID)
	if err != nil {
		p.log.Error("failed to count active tasks for rollup", logger.Error(err))
		return
	}

	status := domain.DomainStatusProcessing
	if active == 0 {
		completed, completedErr := p.tasks.CountCompletedByDomain(ctx, domainID)
		if completedErr != nil {
			p.log.Error("failed to count completed tasks for rollup", logger.Error(completedErr))
			return
		}
		failed, failedErr := p.tasks.CountFailedByDomain(ctx, domainID)
		if failedErr != nil {
			p.log.Error("failed to count failed tasks for rollup", logger.Error(failedErr))
			return
		}

		switch {
		case completed > 0:
			status = domain.DomainStatusCompleted
		case failed > 0:
			status = domain.DomainStatusFailed
		default:
			status = domain.DomainStatusCompleted
		}
	}

	if updateErr := p.domains.UpdateStatus(ctx, domainID, status); updateErr != nil {
		p.log.Error("failed to update domain rollup", logger.Error(updateErr))
	}
}

// enqueue creates a follow-on task for the next pipeline stage.
func (p *Processor) enqueue(ctx context.Context, parent *domain.Task, taskType string, priority int, payload domain.JSONBMap) error {
	task := &domain.Task{
		ID:          p.newID(),
		CampaignID:  parent.CampaignID,
		DomainID:    parent.DomainID,
		TaskType:    taskType,
		Status:      domain.TaskStatusPending,
		Priority:    priority,
		MaxAttempts: parent.MaxAttempts,
		Payload:     payload,
	}

	if err := p.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s task: %w", taskType, err)
	}

	p.log.Debug("follow-on task enqueued",
		logger.String("task_id", task.ID),
		logger.String("task_type", taskType),
	)

	return nil
}
