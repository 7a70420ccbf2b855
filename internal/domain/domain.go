package domain

import "time"

// Domain status constants. A domain's status is a persisted rollup of its
// tasks' progress, updated by the processor on each terminal transition.
const (
	DomainStatusPending    = "pending"
	DomainStatusProcessing = "processing"
	DomainStatusCompleted  = "completed"
	DomainStatusFailed     = "failed"
)

// Domain represents one target website inside a campaign. It owns the tasks
// created for it across pipeline stages and the pages discovered on it.
type Domain struct {
	// Identity
	ID         string `db:"id"          json:"id"`
	CampaignID string `db:"campaign_id" json:"campaign_id"`
	URL        string `db:"url"         json:"url"`

	// Rollup
	Status string `db:"status" json:"status"`

	// Discovery counters
	PagesFound    int `db:"pages_found"    json:"pages_found"`
	SitemapsFound int `db:"sitemaps_found" json:"sitemaps_found"`
	FormsFound    int `db:"forms_found"    json:"forms_found"`

	// Technology fingerprint from analysis (CMS, form plugin, etc.).
	Technology JSONBMap `db:"technology" json:"technology,omitempty"`

	// Timestamps
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
