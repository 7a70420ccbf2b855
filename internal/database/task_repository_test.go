package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formreach/formreach/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func taskRows(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "campaign_id", "domain_id", "task_type", "status", "priority",
		"attempt", "max_attempts", "error_message", "payload", "result",
		"created_at", "updated_at", "started_at", "completed_at",
	}).AddRow(
		id, "camp-1", "dom-1", domain.TaskTypeAnalyzeDomain, domain.TaskStatusPending, 50,
		0, 3, nil, nil, nil,
		now, now, nil, nil,
	)
}

func TestClaimNext(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM tasks\s+WHERE status = 'pending'\s+ORDER BY priority DESC, created_at ASC\s+LIMIT 1\s+FOR UPDATE SKIP LOCKED`).
		WillReturnRows(taskRows("task-1"))
	mock.ExpectExec(`UPDATE tasks\s+SET status = 'processing'`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := repo.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, domain.TaskStatusProcessing, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextEmptyQueue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ClaimNext(context.Background())
	assert.ErrorIs(t, err, ErrNoTaskAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimConditionalOnPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	// First claimant flips the row; the second sees zero rows affected.
	mock.ExpectExec(`UPDATE tasks\s+SET status = 'processing'(.+)WHERE id = \$1 AND status = 'pending'`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tasks\s+SET status = 'processing'(.+)WHERE id = \$1 AND status = 'pending'`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.Claim(context.Background(), "task-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(context.Background(), "task-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedRequiresProcessing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(`UPDATE tasks\s+SET status = 'completed'(.+)WHERE id = \$2 AND status = 'processing'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCompleted(context.Background(), "task-1", nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(`UPDATE tasks\s+SET status = 'failed'(.+)WHERE id = \$2 AND status = 'processing'`).
		WithArgs("connection refused", "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), "task-1", "connection refused")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequeueCreatesFreshRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	failed := &domain.Task{
		ID:          "task-1",
		CampaignID:  "camp-1",
		DomainID:    "dom-1",
		TaskType:    domain.TaskTypeSubmitForm,
		Status:      domain.TaskStatusFailed,
		Priority:    70,
		Attempt:     0,
		MaxAttempts: 3,
	}

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("task-2", "camp-1", "dom-1", domain.TaskTypeSubmitForm,
			domain.TaskStatusPending, 70, 1, 3, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))

	retry, err := repo.Requeue(context.Background(), failed, "task-2")
	require.NoError(t, err)
	assert.Equal(t, "task-2", retry.ID)
	assert.Equal(t, 1, retry.Attempt)
	assert.Equal(t, domain.TaskStatusPending, retry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReclaimStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	cutoff := time.Now().Add(-30 * time.Minute)
	mock.ExpectExec(`UPDATE tasks\s+SET status = 'pending', started_at = NULL(.+)WHERE status = 'processing' AND started_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	reclaimed, err := repo.ReclaimStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, reclaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM tasks GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("processing", 1).
			AddRow("completed", 10).
			AddRow("failed", 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalPending)
	assert.Equal(t, 1, stats.TotalProcessing)
	assert.Equal(t, 10, stats.TotalCompleted)
	assert.Equal(t, 2, stats.TotalFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextPropagatesStoreErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	_, err := repo.ClaimNext(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTaskAvailable)
}
