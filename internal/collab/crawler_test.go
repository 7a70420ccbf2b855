package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

const contactPageHTML = `<!DOCTYPE html>
<html>
<head><title>Contact Us</title></head>
<body>
  <a href="mailto:hello@example.com">Email us</a>
  <form class="wpcf7-form" action="/wp-json/contact-form-7/v1/feedback" method="post">
    <input type="hidden" name="_wpcf7" value="123">
    <input type="text" name="your-name" required>
    <input type="email" name="your-email" required>
    <textarea name="your-message" required></textarea>
    <input type="submit" value="Send">
  </form>
</body>
</html>`

const searchPageHTML = `<!DOCTYPE html>
<html>
<head><title>Blog</title></head>
<body>
  <form action="/search" method="get">
    <input type="search" name="q">
  </form>
  <div id="respond">
    <form id="commentform" action="/wp-comments-post.php" method="post">
      <textarea name="comment" required></textarea>
      <input type="text" name="author" required>
    </form>
  </div>
</body>
</html>`

func TestCrawlExtractsFormsAndEmails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(contactPageHTML))
	}))
	defer server.Close()

	crawler := NewCollyCrawler("test-agent", logger.NewNop())

	pages, err := crawler.Crawl(context.Background(), server.URL, CrawlOptions{MaxPages: 5})
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	page := pages[0]
	assert.Equal(t, "Contact Us", page.Title)
	assert.True(t, page.HasForm)
	assert.Contains(t, page.ContactEmails, "hello@example.com")

	require.Len(t, page.Forms, 1)
	form := page.Forms[0]
	assert.Equal(t, domain.FormCategoryContact, form.Category)
	assert.Equal(t, domain.IntegrationContactForm7, form.Integration)
	assert.False(t, form.HasCaptcha)

	// Hidden and submit inputs are not fillable fields.
	names := make([]string, 0, len(form.Fields))
	for _, field := range form.Fields {
		names = append(names, field.Name)
	}
	assert.ElementsMatch(t, []string{"your-name", "your-email", "your-message"}, names)
}

func TestCrawlDetectsCommentSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(searchPageHTML))
	}))
	defer server.Close()

	crawler := NewCollyCrawler("test-agent", logger.NewNop())

	pages, err := crawler.Crawl(context.Background(), server.URL, CrawlOptions{MaxPages: 5})
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	page := pages[0]
	assert.True(t, page.HasComments)

	categories := make(map[string]bool)
	for _, form := range page.Forms {
		categories[form.Category] = true
	}
	assert.True(t, categories[domain.FormCategoryComment])
}

func TestCrawlInvalidURL(t *testing.T) {
	crawler := NewCollyCrawler("test-agent", logger.NewNop())

	_, err := crawler.Crawl(context.Background(), "://broken", CrawlOptions{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCrawlUnreachableHostIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // nothing listening anymore

	crawler := NewCollyCrawler("test-agent", logger.NewNop())

	_, err := crawler.Crawl(context.Background(), server.URL, CrawlOptions{MaxPages: 2})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestIsDisallowed(t *testing.T) {
	patterns := []string{"/wp-admin/", "/private*"}

	assert.True(t, isDisallowed("https://example.com/wp-admin/options.php", patterns))
	assert.True(t, isDisallowed("https://example.com/private/notes", patterns))
	assert.False(t, isDisallowed("https://example.com/contact", patterns))
}
