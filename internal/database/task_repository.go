package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formreach/formreach/internal/domain"
)

// ErrNoTaskAvailable is returned when ClaimNext finds no pending tasks.
// Callers should check with errors.Is().
var ErrNoTaskAvailable = errors.New("no task available")

// taskSelectColumns lists columns for SELECT queries on tasks.
const taskSelectColumns = `id, campaign_id, domain_id, task_type, status, priority,
	attempt, max_attempts, error_message, payload, result,
	created_at, updated_at, started_at, completed_at`

// TaskRepository handles database operations for queued tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task into the queue.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, campaign_id, domain_id, task_type, status, priority,
			attempt, max_attempts, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		task.ID,
		task.CampaignID,
		task.DomainID,
		task.TaskType,
		task.Status,
		task.Priority,
		task.Attempt,
		task.MaxAttempts,
		task.Payload,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	query := `SELECT ` + taskSelectColumns + ` FROM tasks WHERE id = $1`

	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// ClaimNext atomically claims the next eligible pending task, transitioning
// it to processing. Eligibility ordering is priority DESC, then creation
// order (oldest first). The select-and-update runs in one transaction with
// FOR UPDATE SKIP LOCKED so concurrent workers never claim the same row.
// Returns ErrNoTaskAvailable when the queue is empty.
func (r *TaskRepository) ClaimNext(ctx context.Context) (*domain.Task, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	task, selectErr := claimSelect(ctx, tx)
	if selectErr != nil {
		return nil, selectErr
	}

	if updateErr := claimUpdateStatus(ctx, tx, task.ID); updateErr != nil {
		return nil, updateErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", commitErr)
	}

	task.Status = domain.TaskStatusProcessing
	return task, nil
}

// claimSelect selects and locks the next claimable task within a transaction.
func claimSelect(ctx context.Context, tx *sqlx.Tx) (*domain.Task, error) {
	query := `
		SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var task domain.Task
	err := tx.GetContext(ctx, &task, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTaskAvailable
		}
		return nil, fmt.Errorf("failed to select claimable task: %w", err)
	}

	return &task, nil
}

// claimUpdateStatus transitions a claimed task to processing within a transaction.
func claimUpdateStatus(ctx context.Context, tx *sqlx.Tx, id string) error {
	query := `
		UPDATE tasks
		SET status = 'processing', started_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update claimed task status: %w", err)
	}

	return nil
}

// Claim attempts to claim one specific task by ID. The update is conditional
// on the row still being pending, so among N racing claimants exactly one
// sees claimed=true and the rest see a no-op.
func (r *TaskRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'processing', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim task: %w", err)
	}

	rowsAffected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", affectedErr)
	}

	return rowsAffected == 1, nil
}

// MarkCompleted transitions a processing task to completed and stores its
// result payload.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id string, result domain.JSONBMap) error {
	query := `
		UPDATE tasks
		SET status = 'completed', result = $1, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = 'processing'
	`

	res, execErr := r.db.ExecContext(ctx, query, result, id)
	return execRequireRows(res, execErr, fmt.Errorf("processing task not found: %s", id))
}

// MarkFailed transitions a processing task to failed with an error message.
// The row stays failed permanently; retries go through Requeue, which creates
// a fresh pending row so the audit trail is preserved.
func (r *TaskRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	query := `
		UPDATE tasks
		SET status = 'failed', error_message = $1, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = 'processing'
	`

	res, execErr := r.db.ExecContext(ctx, query, errorMessage, id)
	return execRequireRows(res, execErr, fmt.Errorf("processing task not found: %s", id))
}

// Requeue creates a new pending task carrying the failed task's payload with
// an incremented attempt count. Returns the new task.
func (r *TaskRepository) Requeue(ctx context.Context, failed *domain.Task, newID string) (*domain.Task, error) {
	retry := &domain.Task{
		ID:          newID,
		CampaignID:  failed.CampaignID,
		DomainID:    failed.DomainID,
		TaskType:    failed.TaskType,
		Status:      domain.TaskStatusPending,
		Priority:    failed.Priority,
		Attempt:     failed.Attempt + 1,
		MaxAttempts: failed.MaxAttempts,
		Payload:     failed.Payload,
	}

	if err := r.Create(ctx, retry); err != nil {
		return nil, fmt.Errorf("failed to requeue task %s: %w", failed.ID, err)
	}

	return retry, nil
}

// ReclaimStale moves tasks stuck in processing since before the cutoff back
// to pending. Covers workers that crashed mid-task. Returns the number of
// reclaimed tasks.
func (r *TaskRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE tasks
		SET status = 'pending', started_at = NULL, updated_at = NOW()
		WHERE status = 'processing' AND started_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale tasks: %w", err)
	}

	rowsAffected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", affectedErr)
	}

	return int(rowsAffected), nil
}

// CountActiveByDomain returns the number of non-terminal tasks for a domain.
// Used by the processor to decide when a domain's rollup status is final.
func (r *TaskRepository) CountActiveByDomain(ctx context.Context, domainID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE domain_id = $1 AND status IN ('pending', 'processing')`

	err := r.db.GetContext(ctx, &count, query, domainID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active tasks: %w", err)
	}

	return count, nil
}

// CountCompletedByDomain returns the number of completed tasks for a domain.
func (r *TaskRepository) CountCompletedByDomain(ctx context.Context, domainID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE domain_id = $1 AND status = 'completed'`

	err := r.db.GetContext(ctx, &count, query, domainID)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	return count, nil
}

// CountFailedByDomain returns the number of terminally failed tasks for a domain.
func (r *TaskRepository) CountFailedByDomain(ctx context.Context, domainID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE domain_id = $1 AND status = 'failed'`

	err := r.db.GetContext(ctx, &count, query, domainID)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed tasks: %w", err)
	}

	return count, nil
}

// List retrieves tasks with optional status filtering, newest first.
func (r *TaskRepository) List(ctx context.Context, status string, limit, offset int) ([]*domain.Task, error) {
	var tasks []*domain.Task
	var query string
	var args []any

	if status != "" {
		query = `SELECT ` + taskSelectColumns + ` FROM tasks
			WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = []any{status, limit, offset}
	} else {
		query = `SELECT ` + taskSelectColumns + ` FROM tasks
			ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	err := r.db.SelectContext(ctx, &tasks, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if tasks == nil {
		tasks = []*domain.Task{}
	}

	return tasks, nil
}

// Stats returns aggregate task counts grouped by status.
func (r *TaskRepository) Stats(ctx context.Context) (*domain.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM tasks GROUP BY status`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query task stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.QueueStats{}
	for rows.Next() {
		var status string
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan task stats row: %w", scanErr)
		}
		assignStatCount(stats, status, count)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate task stats: %w", rowsErr)
	}

	return stats, nil
}

// CountByType returns task counts grouped by task type.
func (r *TaskRepository) CountByType(ctx context.Context) (map[string]int, error) {
	query := `SELECT task_type, COUNT(*) FROM tasks GROUP BY task_type`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var taskType string
		var count int
		if scanErr := rows.Scan(&taskType, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan task type row: %w", scanErr)
		}
		counts[taskType] = count
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate task type counts: %w", rowsErr)
	}

	return counts, nil
}

// assignStatCount assigns a count to the appropriate QueueStats field by status.
func assignStatCount(stats *domain.QueueStats, status string, count int) {
	switch status {
	case domain.TaskStatusPending:
		stats.TotalPending = count
	case domain.TaskStatusProcessing:
		stats.TotalProcessing = count
	case domain.TaskStatusCompleted:
		stats.TotalCompleted = count
	case domain.TaskStatusFailed:
		stats.TotalFailed = count
	}
}
