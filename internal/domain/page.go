package domain

import "time"

// Page represents a discovered page on a target domain. Pages carrying a form
// or a comment widget are the unit the scorer and executor operate on.
type Page struct {
	ID          string   `db:"id"           json:"id"`
	DomainID    string   `db:"domain_id"    json:"domain_id"`
	URL         string   `db:"url"          json:"url"`
	Title       string   `db:"title"        json:"title"`
	HasForm     bool     `db:"has_form"     json:"has_form"`
	HasComments bool     `db:"has_comments" json:"has_comments"`
	Metadata    JSONBMap `db:"metadata"     json:"metadata,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
