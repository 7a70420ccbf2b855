package processor

import (
	"context"
	"fmt"

	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

// handleAnalyze inspects the domain's robots.txt and sitemaps and enqueues the
// crawl stage with the discovered seed URLs and disallow patterns.
func (p *Processor) handleAnalyze(ctx context.Context, task *domain.Task) (domain.JSONBMap, error) {
	target, err := p.domains.GetByID(ctx, task.DomainID)
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", task.DomainID, err)
	}

	analysis, analyzeErr := p.analyzer.Analyze(ctx, target.URL)
	if analyzeErr != nil {
		return nil, analyzeErr
	}

	p.log.Info("domain analyzed",
		logger.String("domain_id", target.ID),
		logger.Int("sitemaps", len(analysis.Sitemaps)),
		logger.Int("seed_urls", len(analysis.AllowedURLs)),
	)

	payload := domain.JSONBMap{
		"seed_urls":           analysis.AllowedURLs,
		"disallowed_patterns": analysis.DisallowedPatterns,
		"sitemaps_found":      len(analysis.Sitemaps),
	}
	if len(analysis.Technology) > 0 {
		payload["technology"] = map[string]any(analysis.Technology)
	}

	if enqueueErr := p.enqueue(ctx, task, domain.TaskTypeCrawlPages, task.Priority, payload); enqueueErr != nil {
		return nil, enqueueErr
	}

	return domain.JSONBMap{
		"sitemaps_found": len(analysis.Sitemaps),
		"seed_urls":      len(analysis.AllowedURLs),
	}, nil
}
