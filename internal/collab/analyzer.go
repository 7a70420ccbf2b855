package collab

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/formreach/formreach/internal/logger"
)

const (
	// robotsTxtPath is the well-known path for robots.txt files.
	robotsTxtPath = "/robots.txt"

	// defaultSitemapPath is tried when robots.txt lists no sitemaps.
	defaultSitemapPath = "/sitemap.xml"

	// maxAnalyzerBodyBytes limits how much of any fetched file is read.
	maxAnalyzerBodyBytes = 2 * 1024 * 1024 // 2 MB

	// maxCandidateURLs bounds the candidate list returned per domain.
	maxCandidateURLs = 200

	defaultAnalyzerTimeout = 30 * time.Second
)

// sitemapURLSet mirrors the <urlset> structure of a sitemap file.
type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapIndex mirrors the <sitemapindex> structure of a sitemap index file.
type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapAnalyzer is the default Analyzer implementation. It reads
// robots.txt for sitemap declarations and disallow patterns, then expands
// sitemaps into a bounded candidate URL list.
type SitemapAnalyzer struct {
	httpClient *http.Client
	userAgent  string
	log        logger.Logger
}

// NewSitemapAnalyzer creates the default analyzer.
func NewSitemapAnalyzer(httpClient *http.Client, userAgent string, log logger.Logger) *SitemapAnalyzer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultAnalyzerTimeout}
	}
	return &SitemapAnalyzer{httpClient: httpClient, userAgent: userAgent, log: log}
}

// Analyze inspects a root URL and returns the domain's crawl surface.
func (a *SitemapAnalyzer) Analyze(ctx context.Context, rawURL string) (*AnalysisResult, error) {
	root, err := url.Parse(rawURL)
	if err != nil || root.Host == "" {
		return nil, Invalid(fmt.Errorf("analyze: unparseable url %q", rawURL))
	}
	if root.Scheme == "" {
		root.Scheme = "https"
	}

	result := &AnalysisResult{Technology: map[string]any{}}

	a.readRobots(ctx, root, result)

	if len(result.Sitemaps) == 0 {
		result.Sitemaps = []string{root.Scheme + "://" + root.Host + defaultSitemapPath}
	}

	for _, sitemap := range result.Sitemaps {
		if len(result.AllowedURLs) >= maxCandidateURLs {
			break
		}
		a.expandSitemap(ctx, sitemap, result)
	}

	// Always include the root page as a candidate.
	result.AllowedURLs = appendUnique(result.AllowedURLs, root.String(), maxCandidateURLs+1)

	return result, nil
}

// readRobots collects sitemap declarations and disallow patterns from
// robots.txt. A missing or errored robots.txt leaves the surface open,
// matching standard crawler practice.
func (a *SitemapAnalyzer) readRobots(ctx context.Context, root *url.URL, result *AnalysisResult) {
	body, err := a.fetch(ctx, root.Scheme+"://"+root.Host+robotsTxtPath)
	if err != nil {
		a.log.Debug("robots.txt unavailable",
			logger.String("host", root.Host),
			logger.Error(err),
		)
		return
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(strings.ToLower(line), "sitemap:"):
			sitemap := strings.TrimSpace(line[len("sitemap:"):])
			if sitemap != "" {
				result.Sitemaps = append(result.Sitemaps, sitemap)
			}
		case strings.HasPrefix(strings.ToLower(line), "disallow:"):
			pattern := strings.TrimSpace(line[len("disallow:"):])
			if pattern != "" && pattern != "/" {
				result.DisallowedPatterns = append(result.DisallowedPatterns, pattern)
			}
		}
	}
}

// expandSitemap adds a sitemap's URLs to the candidate list. Sitemap index
// files recurse one level deep.
func (a *SitemapAnalyzer) expandSitemap(ctx context.Context, sitemapURL string, result *AnalysisResult) {
	body, err := a.fetch(ctx, sitemapURL)
	if err != nil {
		a.log.Debug("sitemap unavailable",
			logger.String("sitemap", sitemapURL),
			logger.Error(err),
		)
		return
	}

	var urlSet sitemapURLSet
	if unmarshalErr := xml.Unmarshal([]byte(body), &urlSet); unmarshalErr == nil && len(urlSet.URLs) > 0 {
		for _, entry := range urlSet.URLs {
			result.AllowedURLs = appendUnique(result.AllowedURLs, strings.TrimSpace(entry.Loc), maxCandidateURLs)
		}
		return
	}

	var index sitemapIndex
	if unmarshalErr := xml.Unmarshal([]byte(body), &index); unmarshalErr != nil {
		return
	}

	for _, child := range index.Sitemaps {
		if len(result.AllowedURLs) >= maxCandidateURLs {
			return
		}

		childBody, childErr := a.fetch(ctx, strings.TrimSpace(child.Loc))
		if childErr != nil {
			continue
		}

		var childSet sitemapURLSet
		if unmarshalErr := xml.Unmarshal([]byte(childBody), &childSet); unmarshalErr != nil {
			continue
		}
		for _, entry := range childSet.URLs {
			result.AllowedURLs = appendUnique(result.AllowedURLs, strings.TrimSpace(entry.Loc), maxCandidateURLs)
		}
	}
}

// fetch GETs a URL and returns its body, size-capped.
func (a *SitemapAnalyzer) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, doErr := a.httpClient.Do(req)
	if doErr != nil {
		return "", Transient(fmt.Errorf("fetch %s: %w", rawURL, doErr))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxAnalyzerBodyBytes))
	if readErr != nil {
		return "", Transient(fmt.Errorf("read %s: %w", rawURL, readErr))
	}

	return string(body), nil
}

// appendUnique appends value to list if absent and under the cap.
func appendUnique(list []string, value string, limit int) []string {
	if value == "" || len(list) >= limit {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
