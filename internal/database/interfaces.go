package database

import (
	"context"
	"time"

	"github.com/formreach/formreach/internal/domain"
)

// TaskStore defines the contract for task queue data access.
type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ClaimNext(ctx context.Context) (*domain.Task, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string, result domain.JSONBMap) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	Requeue(ctx context.Context, failed *domain.Task, newID string) (*domain.Task, error)
	ReclaimStale(ctx context.Context, cutoff time.Time) (int, error)
	CountActiveByDomain(ctx context.Context, domainID string) (int, error)
	CountCompletedByDomain(ctx context.Context, domainID string) (int, error)
	CountFailedByDomain(ctx context.Context, domainID string) (int, error)
	Stats(ctx context.Context) (*domain.QueueStats, error)
	CountByType(ctx context.Context) (map[string]int, error)
}

// DomainStore defines the contract for domain rollup data access.
type DomainStore interface {
	Create(ctx context.Context, d *domain.Domain) error
	GetByID(ctx context.Context, id string) (*domain.Domain, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateDiscovery(ctx context.Context, id string, pagesFound, sitemapsFound, formsFound int, technology domain.JSONBMap) error
}

// PageStore defines the contract for discovered page data access.
type PageStore interface {
	Create(ctx context.Context, p *domain.Page) error
	ListByDomain(ctx context.Context, domainID string) ([]*domain.Page, error)
	CountSubmittableByDomain(ctx context.Context, domainID string) (int, error)
}

// SubmissionStore defines the contract for the duplicate guard's records and
// the submission log.
type SubmissionStore interface {
	Get(ctx context.Context, key string) (*domain.SubmissionRecord, error)
	GetMany(ctx context.Context, keys []string) (map[string]*domain.SubmissionRecord, error)
	Upsert(ctx context.Context, key, campaignID, status string) error
	AppendLog(ctx context.Context, entry *domain.SubmissionLog) error
}
