package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formreach/formreach/internal/domain"
)

// domainSelectColumns lists columns for SELECT queries on domains.
const domainSelectColumns = `id, campaign_id, url, status, pages_found,
	sitemaps_found, forms_found, technology, created_at, updated_at`

// DomainRepository handles database operations for campaign domains.
type DomainRepository struct {
	db *sqlx.DB
}

// NewDomainRepository creates a new domain repository.
func NewDomainRepository(db *sqlx.DB) *DomainRepository {
	return &DomainRepository{db: db}
}

// Create inserts a new domain.
func (r *DomainRepository) Create(ctx context.Context, d *domain.Domain) error {
	query := `
		INSERT INTO domains (id, campaign_id, url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, d.ID, d.CampaignID, d.URL, d.Status).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create domain: %w", err)
	}

	return nil
}

// GetByID retrieves a domain by its ID.
func (r *DomainRepository) GetByID(ctx context.Context, id string) (*domain.Domain, error) {
	var d domain.Domain
	query := `SELECT ` + domainSelectColumns + ` FROM domains WHERE id = $1`

	err := r.db.GetContext(ctx, &d, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("domain not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}

	return &d, nil
}

// UpdateStatus persists a domain's rollup status. The rollup is written by
// the processor on every terminal task transition rather than computed from
// tasks at read time.
func (r *DomainRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE domains SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	return execRequireRows(result, err, fmt.Errorf("domain not found: %s", id))
}

// UpdateDiscovery records analysis and crawl findings for a domain.
func (r *DomainRepository) UpdateDiscovery(
	ctx context.Context,
	id string,
	pagesFound, sitemapsFound, formsFound int,
	technology domain.JSONBMap,
) error {
	query := `
		UPDATE domains
		SET pages_found = $1, sitemaps_found = $2, forms_found = $3,
			technology = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query, pagesFound, sitemapsFound, formsFound, technology, id)
	return execRequireRows(result, err, fmt.Errorf("domain not found: %s", id))
}

// ListByCampaign retrieves domains belonging to a campaign, oldest first.
func (r *DomainRepository) ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]*domain.Domain, error) {
	var domains []*domain.Domain
	query := `
		SELECT ` + domainSelectColumns + `
		FROM domains
		WHERE campaign_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &domains, query, campaignID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	if domains == nil {
		domains = []*domain.Domain{}
	}

	return domains, nil
}

// DeleteByCampaign removes all domains in a campaign. Tasks and pages cascade
// at the schema level, which is the only way queue rows are ever destroyed.
func (r *DomainRepository) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	query := `DELETE FROM domains WHERE campaign_id = $1`

	result, err := r.db.ExecContext(ctx, query, campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete campaign domains: %w", err)
	}

	rowsAffected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", affectedErr)
	}

	return int(rowsAffected), nil
}
