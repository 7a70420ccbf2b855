// Package message renders outreach message templates into concrete,
// unique-per-attempt bodies. Rendering applies two transforms in fixed order:
// variable substitution first, then spin-group resolution, so placeholders
// are never mistaken for variation syntax.
package message

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// Rendering bounds.
const (
	// maxSpinPasses bounds innermost-first group resolution so malformed
	// nested input always terminates.
	maxSpinPasses = 25

	// generateAttemptFactor bounds GenerateMessages at factor * count
	// renderings before giving up on producing more distinct texts.
	generateAttemptFactor = 3

	randomNumberDigits = 4
	randomStringLength = 8
)

// Placeholder fallbacks applied when a sender field is absent.
const (
	fallbackName    = "A Visitor"
	fallbackEmail   = "noreply@example.com"
	fallbackCompany = "our team"
)

// spinGroupRe matches an innermost brace group containing at least one pipe.
// Groups without pipes are placeholders, not variation syntax.
var spinGroupRe = regexp.MustCompile(`\{([^{}|]*(?:\|[^{}|]*)+)\}`)

// placeholderRe matches a candidate variable placeholder.
var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// SenderData carries the values substituted into a template.
type SenderData struct {
	Name    string
	Email   string
	Phone   string
	Company string
	// Domain is the target domain the message is addressed to.
	Domain string
}

// Engine renders templates. The rand source is injectable for deterministic
// tests; NewEngine seeds from the clock.
type Engine struct {
	rng *rand.Rand
	now func() time.Time
}

// NewEngine creates a new template engine.
func NewEngine() *Engine {
	return &Engine{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Render expands a template against sender data: placeholders are resolved
// first with documented fallbacks, then spin groups are resolved
// innermost-first, one uniformly random alternative per group per rendering.
func (e *Engine) Render(template string, data SenderData) string {
	rendered := e.substituteVariables(template, data)
	return e.resolveSpinGroups(rendered)
}

// GenerateMessages renders the template repeatedly and deduplicates by exact
// text equality, returning up to count distinct renderings. Low-variation
// templates may legitimately yield fewer than requested; rendering stops
// after generateAttemptFactor * count attempts.
func (e *Engine) GenerateMessages(template string, data SenderData, count int) []string {
	if count <= 0 {
		return nil
	}

	seen := make(map[string]struct{}, count)
	messages := make([]string, 0, count)

	for attempt := 0; attempt < count*generateAttemptFactor && len(messages) < count; attempt++ {
		rendered := e.Render(template, data)
		if _, dup := seen[rendered]; dup {
			continue
		}
		seen[rendered] = struct{}{}
		messages = append(messages, rendered)
	}

	return messages
}

// substituteVariables resolves the registered placeholders against the sender
// data record.
func (e *Engine) substituteVariables(template string, data SenderData) string {
	now := e.now()

	replacements := map[string]string{
		"name":          valueOr(data.Name, fallbackName),
		"email":         valueOr(data.Email, fallbackEmail),
		"phone":         data.Phone,
		"company":       valueOr(data.Company, fallbackCompany),
		"domain":        data.Domain,
		"domain_name":   bareDomainName(data.Domain),
		"date":          now.Format("January 2, 2006"),
		"time":          now.Format("15:04"),
		"random_number": e.randomDigits(randomNumberDigits),
		"random_string": e.randomString(randomStringLength),
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := replacements[name]; ok {
			return value
		}
		return match
	})
}

// resolveSpinGroups repeatedly replaces innermost pipe groups with one
// randomly selected alternative until none remain or the pass bound is hit.
func (e *Engine) resolveSpinGroups(text string) string {
	for pass := 0; pass < maxSpinPasses; pass++ {
		replaced := spinGroupRe.ReplaceAllStringFunc(text, func(match string) string {
			alternatives := strings.Split(match[1:len(match)-1], "|")
			return alternatives[e.rng.Intn(len(alternatives))]
		})
		if replaced == text {
			break
		}
		text = replaced
	}

	return text
}

// randomDigits returns n random decimal digits.
func (e *Engine) randomDigits(n int) string {
	var b strings.Builder
	for range n {
		fmt.Fprintf(&b, "%d", e.rng.Intn(10))
	}
	return b.String()
}

// randomString returns n random lowercase alphanumerics.
func (e *Engine) randomString(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	var b strings.Builder
	for range n {
		b.WriteByte(alphabet[e.rng.Intn(len(alphabet))])
	}
	return b.String()
}

// RegisteredPlaceholders lists the placeholder names the engine resolves.
func RegisteredPlaceholders() []string {
	return []string{
		"name", "email", "phone", "company",
		"domain", "domain_name",
		"date", "time",
		"random_number", "random_string",
	}
}

// valueOr returns value, or fallback when value is empty.
func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// bareDomainName derives a display name from a domain: strip a leading www.
// and everything from the first dot, so "www.acme-corp.co.uk" becomes
// "acme-corp".
func bareDomainName(domain string) string {
	name := strings.TrimPrefix(strings.ToLower(domain), "www.")
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}
