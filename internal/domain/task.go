// Package domain provides domain models used across the application.
package domain

import "time"

// Task status constants.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task type constants. Types form a pipeline: analyzing a domain enqueues a
// crawl task, and a completed crawl fans out into one submit task per
// selected page.
const (
	TaskTypeAnalyzeDomain = "analyze_domain"
	TaskTypeCrawlPages    = "crawl_pages"
	TaskTypeSubmitForm    = "submit_form"
	TaskTypeSubmitComment = "submit_comment"
)

// Priority bounds and defaults. Higher priority tasks are claimed first;
// ties break on creation order, oldest first.
const (
	TaskMinPriority     = 0
	TaskMaxPriority     = 100
	TaskDefaultPriority = 50
)

// DefaultMaxAttempts is the retry ceiling for failed tasks. A failed task is
// re-enqueued as a new pending row until its attempt count reaches this value.
const DefaultMaxAttempts = 3

// Task represents one unit of queued work in the submission pipeline.
// Terminal rows are never mutated back to pending; retries create a new row
// so the audit trail survives.
type Task struct {
	// Identity
	ID         string `db:"id"          json:"id"`
	CampaignID string `db:"campaign_id" json:"campaign_id"`
	DomainID   string `db:"domain_id"   json:"domain_id"`
	TaskType   string `db:"task_type"   json:"task_type"`

	// Scheduling
	Status   string `db:"status"   json:"status"`
	Priority int    `db:"priority" json:"priority"`

	// Retry tracking
	Attempt     int `db:"attempt"      json:"attempt"` // 0 = first try, 1+ = retry
	MaxAttempts int `db:"max_attempts" json:"max_attempts"`

	// Results
	ErrorMessage *string  `db:"error_message" json:"error_message,omitempty"`
	Payload      JSONBMap `db:"payload"       json:"payload,omitempty"`
	Result       JSONBMap `db:"result"        json:"result,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
	StartedAt   *time.Time `db:"started_at"   json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// IsTerminal returns true if the task has reached a terminal status.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// AttemptsRemaining returns true if a failed task may still be re-enqueued.
func (t *Task) AttemptsRemaining() bool {
	maxAttempts := t.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return t.Attempt+1 < maxAttempts
}

// ValidTaskType reports whether the given string is a known task type.
func ValidTaskType(taskType string) bool {
	switch taskType {
	case TaskTypeAnalyzeDomain, TaskTypeCrawlPages, TaskTypeSubmitForm, TaskTypeSubmitComment:
		return true
	default:
		return false
	}
}

// QueueStats contains aggregate task counts by status.
type QueueStats struct {
	TotalPending    int `json:"total_pending"`
	TotalProcessing int `json:"total_processing"`
	TotalCompleted  int `json:"total_completed"`
	TotalFailed     int `json:"total_failed"`
}
