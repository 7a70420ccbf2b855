package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formreach/formreach/internal/domain"
)

// ErrRecordNotFound is returned when no submission record exists for a key.
var ErrRecordNotFound = errors.New("submission record not found")

// SubmissionRepository handles the duplicate guard's durable records and the
// append-only submission log.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Get retrieves the submission record for a normalized key.
func (r *SubmissionRepository) Get(ctx context.Context, key string) (*domain.SubmissionRecord, error) {
	var record domain.SubmissionRecord
	query := `
		SELECT key, campaign_id, attempt_count, last_status, first_seen_at, last_seen_at
		FROM submission_records
		WHERE key = $1
	`

	err := r.db.GetContext(ctx, &record, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get submission record: %w", err)
	}

	return &record, nil
}

// Upsert records a submission attempt. On conflict the attempt count is
// incremented in SQL (not read-modify-write, so concurrent upserts never lose
// increments), last_seen_at and last_status are refreshed, and first_seen_at
// keeps its original value.
func (r *SubmissionRepository) Upsert(ctx context.Context, key, campaignID, status string) error {
	query := `
		INSERT INTO submission_records (key, campaign_id, attempt_count, last_status)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (key) DO UPDATE SET
			attempt_count = submission_records.attempt_count + 1,
			last_status = EXCLUDED.last_status,
			last_seen_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, key, campaignID, status)
	if err != nil {
		return fmt.Errorf("failed to upsert submission record: %w", err)
	}

	return nil
}

// GetMany retrieves submission records for a set of normalized keys.
func (r *SubmissionRepository) GetMany(ctx context.Context, keys []string) (map[string]*domain.SubmissionRecord, error) {
	if len(keys) == 0 {
		return map[string]*domain.SubmissionRecord{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT key, campaign_id, attempt_count, last_status, first_seen_at, last_seen_at
		FROM submission_records
		WHERE key IN (?)
	`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build submission record query: %w", err)
	}

	var records []*domain.SubmissionRecord
	selectErr := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...)
	if selectErr != nil {
		return nil, fmt.Errorf("failed to get submission records: %w", selectErr)
	}

	byKey := make(map[string]*domain.SubmissionRecord, len(records))
	for _, record := range records {
		byKey[record.Key] = record
	}

	return byKey, nil
}

// AppendLog writes an append-only submission log row.
func (r *SubmissionRepository) AppendLog(ctx context.Context, entry *domain.SubmissionLog) error {
	query := `
		INSERT INTO submission_logs (id, campaign_id, domain_id, task_id, target_url, status, message, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		entry.ID, entry.CampaignID, entry.DomainID, entry.TaskID,
		entry.TargetURL, entry.Status, entry.Message, entry.Detail,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append submission log: %w", err)
	}

	return nil
}

// ListLogsByCampaign retrieves submission log rows for a campaign, newest first.
func (r *SubmissionRepository) ListLogsByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]*domain.SubmissionLog, error) {
	var logs []*domain.SubmissionLog
	query := `
		SELECT id, campaign_id, domain_id, task_id, target_url, status, message, detail, created_at
		FROM submission_logs
		WHERE campaign_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &logs, query, campaignID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission logs: %w", err)
	}

	if logs == nil {
		logs = []*domain.SubmissionLog{}
	}

	return logs, nil
}
