package processor

import (
	"context"
	"fmt"

	"github.com/formreach/formreach/internal/collab"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/scoring"
)

// handleCrawl visits the domain's pages, persists what it finds, and fans out
// submission tasks for the best-scoring forms. A domain with no submittable
// surfaces completes here with nothing enqueued.
func (p *Processor) handleCrawl(ctx context.Context, task *domain.Task) (domain.JSONBMap, error) {
	target, err := p.domains.GetByID(ctx, task.DomainID)
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", task.DomainID, err)
	}

	opts := collab.CrawlOptions{
		MaxPages:           p.cfg.MaxPagesPerDomain,
		SeedURLs:           stringSlice(task.Payload, "seed_urls"),
		DisallowedPatterns: stringSlice(task.Payload, "disallowed_patterns"),
	}

	crawled, crawlErr := p.crawler.Crawl(ctx, target.URL, opts)
	if crawlErr != nil {
		return nil, crawlErr
	}

	var forms []*domain.FormDescriptor
	formsByPage := make(map[*domain.FormDescriptor]*collab.CrawledPage)

	for _, page := range crawled {
		record := &domain.Page{
			ID:          p.newID(),
			DomainID:    target.ID,
			URL:         page.URL,
			Title:       page.Title,
			HasForm:     page.HasForm,
			HasComments: page.HasComments,
		}
		if len(page.ContactEmails) > 0 {
			record.Metadata = domain.JSONBMap{"contact_emails": page.ContactEmails}
		}
		if createErr := p.pages.Create(ctx, record); createErr != nil {
			return nil, fmt.Errorf("persist page %s: %w", page.URL, createErr)
		}

		for _, form := range page.Forms {
			forms = append(forms, form)
			formsByPage[form] = page
		}
	}

	sitemapsFound := intValue(task.Payload, "sitemaps_found")
	technology := mapValue(task.Payload, "technology")

	if updateErr := p.domains.UpdateDiscovery(
		ctx, target.ID, len(crawled), sitemapsFound, len(forms), technology,
	); updateErr != nil {
		return nil, fmt.Errorf("update discovery for %s: %w", target.ID, updateErr)
	}

	selected := p.selectForms(forms)

	for _, fs := range selected {
		taskType := domain.TaskTypeSubmitForm
		if fs.Form.Category == domain.FormCategoryComment {
			taskType = domain.TaskTypeSubmitComment
		}

		payload := domain.JSONBMap{
			"target_url": fs.Form.PageURL,
			"form":       fs.Form,
			"score":      fs.Score,
		}
		if enqueueErr := p.enqueue(ctx, task, taskType, fs.Score, payload); enqueueErr != nil {
			return nil, enqueueErr
		}
	}

	p.log.Info("crawl completed",
		logger.String("domain_id", target.ID),
		logger.Int("pages", len(crawled)),
		logger.Int("forms_found", len(forms)),
		logger.Int("submissions_enqueued", len(selected)),
	)

	return domain.JSONBMap{
		"pages_crawled":        len(crawled),
		"forms_found":          len(forms),
		"submissions_enqueued": len(selected),
	}, nil
}

// selectForms ranks the discovered forms and keeps the per-domain submission
// cap's worth of those meeting the score floor.
func (p *Processor) selectForms(forms []*domain.FormDescriptor) []*scoring.FormScore {
	if len(forms) == 0 {
		return nil
	}
	return p.scorer.TopN(forms, p.cfg.MaxSubmissionsPerDomain, p.cfg.MinSubmitScore)
}

// stringSlice reads a []string out of a JSONB payload, tolerating the []any
// shape values take after a database round trip.
func stringSlice(payload domain.JSONBMap, key string) []string {
	raw, ok := payload[key]
	if !ok {
		return nil
	}

	switch typed := raw.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, isString := item.(string); isString {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// intValue reads an int out of a JSONB payload; JSON numbers decode as
// float64.
func intValue(payload domain.JSONBMap, key string) int {
	switch typed := payload[key].(type) {
	case int:
		return typed
	case float64:
		return int(typed)
	default:
		return 0
	}
}

// mapValue reads a nested object out of a JSONB payload.
func mapValue(payload domain.JSONBMap, key string) domain.JSONBMap {
	switch typed := payload[key].(type) {
	case domain.JSONBMap:
		return typed
	case map[string]any:
		return domain.JSONBMap(typed)
	default:
		return nil
	}
}
