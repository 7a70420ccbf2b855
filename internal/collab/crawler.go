package collab

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

// Crawl defaults.
const (
	DefaultMaxPages      = 25
	defaultCrawlTimeout  = 30 * time.Second
	defaultCrawlDepth    = 2
	defaultCrawlParallel = 2
)

// captchaMarkers are substrings whose presence anywhere in a form's
// serialized HTML indicates an anti-bot challenge.
var captchaMarkers = []string{
	"recaptcha", "g-recaptcha", "hcaptcha", "h-captcha",
	"cf-turnstile", "captcha",
}

// emailRe extracts visible contact addresses from page text and mailto links.
var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// commentSelectors identify comment widgets.
var commentSelectors = []string{
	"#respond", "#commentform", ".comment-form", "#disqus_thread",
}

// CollyCrawler is the default Crawler implementation, built on colly with
// goquery-based form extraction.
type CollyCrawler struct {
	userAgent string
	log       logger.Logger
}

// NewCollyCrawler creates the default crawler.
func NewCollyCrawler(userAgent string, log logger.Logger) *CollyCrawler {
	return &CollyCrawler{userAgent: userAgent, log: log}
}

// Crawl visits up to opts.MaxPages pages of the target site, starting from
// the given URL plus any seed URLs, and returns each page annotated with its
// submittable surfaces.
func (c *CollyCrawler) Crawl(ctx context.Context, rawURL string, opts CrawlOptions) ([]*CrawledPage, error) {
	start, err := url.Parse(rawURL)
	if err != nil || start.Host == "" {
		return nil, Invalid(fmt.Errorf("crawl: unparseable url %q", rawURL))
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(start.Hostname(), "www."+start.Hostname()),
		colly.MaxDepth(defaultCrawlDepth),
		colly.UserAgent(c.userAgent),
		colly.Async(true),
	)
	collector.SetRequestTimeout(defaultCrawlTimeout)

	if limitErr := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: defaultCrawlParallel,
		RandomDelay: time.Second,
	}); limitErr != nil {
		return nil, fmt.Errorf("crawl: set limit rule: %w", limitErr)
	}

	var (
		mu      sync.Mutex
		pages   []*CrawledPage
		lastErr error
	)

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()

		if len(pages) >= maxPages {
			return
		}

		pages = append(pages, c.extractPage(e.Request.URL.String(), e.DOM))
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		mu.Lock()
		full := len(pages) >= maxPages
		mu.Unlock()
		if full {
			return
		}

		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || isDisallowed(link, opts.DisallowedPatterns) {
			return
		}
		_ = e.Request.Visit(link)
	})

	collector.OnError(func(r *colly.Response, visitErr error) {
		mu.Lock()
		lastErr = visitErr
		mu.Unlock()
	})

	seeds := append([]string{start.String()}, opts.SeedURLs...)
	for _, seed := range seeds {
		mu.Lock()
		full := len(pages) >= maxPages
		mu.Unlock()
		if full {
			break
		}
		if visitErr := collector.Visit(seed); visitErr != nil {
			c.log.Debug("seed visit rejected",
				logger.String("url", seed),
				logger.Error(visitErr),
			)
		}
	}

	collector.Wait()

	if len(pages) == 0 {
		if lastErr != nil {
			return nil, Transient(fmt.Errorf("crawl %s: %w", rawURL, lastErr))
		}
		return nil, Transient(fmt.Errorf("crawl %s: no pages fetched", rawURL))
	}

	return pages, nil
}

// extractPage builds a CrawledPage from a fetched document.
func (c *CollyCrawler) extractPage(pageURL string, doc *goquery.Selection) *CrawledPage {
	page := &CrawledPage{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		descriptor := extractForm(pageURL, form)
		if descriptor == nil {
			return
		}
		page.Forms = append(page.Forms, descriptor)
	})
	page.HasForm = len(page.Forms) > 0

	for _, selector := range commentSelectors {
		if doc.Find(selector).Length() > 0 {
			page.HasComments = true
			break
		}
	}

	page.ContactEmails = extractEmails(doc)

	return page
}

// extractForm builds a FormDescriptor from one <form> element. Returns nil
// for forms with no named inputs at all, which are not submittable.
func extractForm(pageURL string, form *goquery.Selection) *domain.FormDescriptor {
	descriptor := &domain.FormDescriptor{
		PageURL:     pageURL,
		Action:      form.AttrOr("action", ""),
		Method:      strings.ToUpper(form.AttrOr("method", "GET")),
		Category:    classifyForm(form),
		Integration: detectIntegration(form),
	}

	form.Find("input, textarea, select").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}

		fieldType := input.AttrOr("type", "text")
		if goquery.NodeName(input) == "textarea" {
			fieldType = "textarea"
		}
		if fieldType == "hidden" || fieldType == "submit" {
			return
		}

		_, required := input.Attr("required")
		descriptor.Fields = append(descriptor.Fields, domain.FormField{
			Name:     name,
			Type:     fieldType,
			Required: required,
		})
	})

	if len(descriptor.Fields) == 0 {
		return nil
	}

	serialized, _ := goquery.OuterHtml(form)
	descriptor.HasCaptcha = hasCaptchaMarker(serialized)
	descriptor.IsIframe = form.Find("iframe").Length() > 0 || form.ParentsFiltered("iframe").Length() > 0

	return descriptor
}

// classifyForm infers a form's category from its attributes and field names.
func classifyForm(form *goquery.Selection) string {
	serialized, _ := goquery.OuterHtml(form)
	lowered := strings.ToLower(serialized)

	switch {
	case strings.Contains(lowered, "comment"):
		return domain.FormCategoryComment
	case strings.Contains(lowered, "password") || strings.Contains(lowered, "login"):
		return domain.FormCategoryLogin
	case strings.Contains(lowered, "search") || form.Find("input[type=search]").Length() > 0:
		return domain.FormCategorySearch
	case strings.Contains(lowered, "newsletter") || strings.Contains(lowered, "subscribe"):
		return domain.FormCategoryNewsletter
	case strings.Contains(lowered, "quote") || strings.Contains(lowered, "estimate"):
		return domain.FormCategoryQuote
	case strings.Contains(lowered, "support") || strings.Contains(lowered, "ticket"):
		return domain.FormCategorySupport
	case strings.Contains(lowered, "contact") || strings.Contains(lowered, "message"):
		return domain.FormCategoryContact
	default:
		return domain.FormCategoryUnknown
	}
}

// detectIntegration fingerprints the plugin rendering the form.
func detectIntegration(form *goquery.Selection) string {
	serialized, _ := goquery.OuterHtml(form)
	lowered := strings.ToLower(serialized)

	switch {
	case strings.Contains(lowered, "wpcf7"):
		return domain.IntegrationContactForm7
	case strings.Contains(lowered, "wpforms"):
		return domain.IntegrationWPForms
	case strings.Contains(lowered, "gform"):
		return domain.IntegrationGravityForms
	case strings.Contains(lowered, "nf-form") || strings.Contains(lowered, "ninja-forms"):
		return domain.IntegrationNinjaForms
	case strings.Contains(lowered, "frm-") || strings.Contains(lowered, "formidable"):
		return domain.IntegrationFormidable
	case strings.Contains(lowered, "typeform") || strings.Contains(lowered, "hubspot") ||
		strings.Contains(lowered, "jotform"):
		return domain.IntegrationThirdParty
	default:
		return domain.IntegrationHTMLForm
	}
}

// hasCaptchaMarker reports whether any known anti-bot marker appears in the
// serialized form.
func hasCaptchaMarker(serialized string) bool {
	lowered := strings.ToLower(serialized)
	for _, marker := range captchaMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// extractEmails collects visible contact addresses from the document.
func extractEmails(doc *goquery.Selection) []string {
	seen := make(map[string]struct{})
	var emails []string

	doc.Find("a[href^='mailto:']").Each(func(_ int, link *goquery.Selection) {
		address := strings.TrimPrefix(link.AttrOr("href", ""), "mailto:")
		if address == "" {
			return
		}
		if _, dup := seen[address]; !dup {
			seen[address] = struct{}{}
			emails = append(emails, address)
		}
	})

	for _, match := range emailRe.FindAllString(doc.Text(), 10) {
		if _, dup := seen[match]; !dup {
			seen[match] = struct{}{}
			emails = append(emails, match)
		}
	}

	return emails
}

// isDisallowed reports whether a link matches any robots disallow pattern.
func isDisallowed(link string, patterns []string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return true
	}

	for _, pattern := range patterns {
		if strings.HasPrefix(parsed.Path, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}
