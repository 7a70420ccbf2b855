// Package collab defines the collaborator contracts the queue processor
// drives — domain analysis, page crawling, and submission execution — and
// provides default implementations. Each collaborator is a capability
// interface returning a result or an error; the processor treats them as
// black boxes.
package collab

import (
	"context"

	"github.com/formreach/formreach/internal/domain"
)

// AnalysisResult describes a domain's crawl surface.
type AnalysisResult struct {
	Sitemaps           []string `json:"sitemaps"`
	AllowedURLs        []string `json:"allowed_urls"`
	DisallowedPatterns []string `json:"disallowed_patterns"`
	// Technology holds fingerprint hints gathered during analysis.
	Technology domain.JSONBMap `json:"technology,omitempty"`
}

// CrawlOptions bounds a crawl invocation.
type CrawlOptions struct {
	MaxPages           int
	SeedURLs           []string
	DisallowedPatterns []string
}

// CrawledPage is one page visited during a crawl, annotated with whether it
// carries submittable surfaces and any visible contact data.
type CrawledPage struct {
	URL           string                   `json:"url"`
	Title         string                   `json:"title"`
	HasForm       bool                     `json:"has_form"`
	HasComments   bool                     `json:"has_comments"`
	Forms         []*domain.FormDescriptor `json:"forms,omitempty"`
	ContactEmails []string                 `json:"contact_emails,omitempty"`
}

// SubmissionData carries the rendered sender values for one attempt.
type SubmissionData struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Message string
}

// SubmissionResult reports the outcome of one fill-and-submit.
type SubmissionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Analyzer inspects a root URL and returns the domain's crawl surface.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*AnalysisResult, error)
}

// Crawler visits a bounded set of pages starting from a URL.
type Crawler interface {
	Crawl(ctx context.Context, url string, opts CrawlOptions) ([]*CrawledPage, error)
}

// Executor performs the actual fill-and-submit against one form.
type Executor interface {
	Submit(ctx context.Context, targetURL string, form *domain.FormDescriptor, data SubmissionData) (*SubmissionResult, error)
}
