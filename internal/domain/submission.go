package domain

import "time"

// Submission outcome constants recorded by the duplicate guard.
const (
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusFailed    = "failed"
	SubmissionStatusSkipped   = "skipped"
)

// SubmissionRecord is the duplicate guard's durable record of a prior
// submission, keyed by normalized target identity. The key is either a bare
// domain or domain|formPath|formType, so deduplication granularity is a
// policy decision, not a schema one.
type SubmissionRecord struct {
	Key          string    `db:"key"           json:"key"`
	CampaignID   string    `db:"campaign_id"   json:"campaign_id"`
	AttemptCount int       `db:"attempt_count" json:"attempt_count"`
	LastStatus   string    `db:"last_status"   json:"last_status"`
	FirstSeenAt  time.Time `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt   time.Time `db:"last_seen_at"  json:"last_seen_at"`
}

// SubmissionLog is an append-only record of a single submission attempt,
// surfaced in per-campaign activity views.
type SubmissionLog struct {
	ID         string   `db:"id"          json:"id"`
	CampaignID string   `db:"campaign_id" json:"campaign_id"`
	DomainID   string   `db:"domain_id"   json:"domain_id"`
	TaskID     string   `db:"task_id"     json:"task_id"`
	TargetURL  string   `db:"target_url"  json:"target_url"`
	Status     string   `db:"status"      json:"status"`
	Message    string   `db:"message"     json:"message"`
	Detail     JSONBMap `db:"detail"      json:"detail,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
