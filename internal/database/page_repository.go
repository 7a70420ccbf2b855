package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formreach/formreach/internal/domain"
)

// PageRepository handles database operations for discovered pages.
// Page rows are append-only: written once per discovered page, never updated.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new page repository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// Create inserts a discovered page.
func (r *PageRepository) Create(ctx context.Context, p *domain.Page) error {
	query := `
		INSERT INTO pages (id, domain_id, url, title, has_form, has_comments, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		p.ID, p.DomainID, p.URL, p.Title, p.HasForm, p.HasComments, p.Metadata,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	return nil
}

// ListByDomain retrieves pages discovered on a domain.
func (r *PageRepository) ListByDomain(ctx context.Context, domainID string) ([]*domain.Page, error) {
	var pages []*domain.Page
	query := `
		SELECT id, domain_id, url, title, has_form, has_comments, metadata, created_at
		FROM pages
		WHERE domain_id = $1
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &pages, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	if pages == nil {
		pages = []*domain.Page{}
	}

	return pages, nil
}

// CountSubmittableByDomain returns how many discovered pages on a domain
// carry a form or comment widget.
func (r *PageRepository) CountSubmittableByDomain(ctx context.Context, domainID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM pages WHERE domain_id = $1 AND (has_form OR has_comments)`

	err := r.db.GetContext(ctx, &count, query, domainID)
	if err != nil {
		return 0, fmt.Errorf("failed to count submittable pages: %w", err)
	}

	return count, nil
}
