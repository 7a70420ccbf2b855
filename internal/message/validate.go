package message

import (
	"fmt"
	"strings"
)

// minPlausibleLength is the rendered length below which a template is almost
// certainly a fragment rather than a usable message.
const minPlausibleLength = 20

// ValidationResult reports template problems. Errors make the template
// unusable; warnings flag likely mistakes that still render.
type ValidationResult struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid returns true if the template carries no errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks a template for unbalanced braces (error), empty alternative
// groups (warning), unregistered placeholder names (warning), and an
// implausibly short rendering (warning).
func (e *Engine) Validate(template string) *ValidationResult {
	result := &ValidationResult{}

	checkBraces(template, result)
	checkEmptyAlternatives(template, result)
	checkPlaceholders(template, result)

	if result.Valid() {
		rendered := e.Render(template, SenderData{Name: "Sample", Domain: "example.com"})
		if len(rendered) < minPlausibleLength {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("rendered message is only %d characters", len(rendered)))
		}
	}

	return result
}

// checkBraces verifies every opening brace closes and none close early.
func checkBraces(template string, result *ValidationResult) {
	depth := 0
	for _, r := range template {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				result.Errors = append(result.Errors, "unbalanced braces: '}' without matching '{'")
				return
			}
		}
	}

	if depth > 0 {
		result.Errors = append(result.Errors, "unbalanced braces: unclosed '{'")
	}
}

// checkEmptyAlternatives flags spin groups with adjacent separators, which
// silently render as empty text.
func checkEmptyAlternatives(template string, result *ValidationResult) {
	for _, match := range spinGroupRe.FindAllStringSubmatch(template, -1) {
		for _, alternative := range strings.Split(match[1], "|") {
			if strings.TrimSpace(alternative) == "" {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("empty alternative in group %q", match[0]))
				break
			}
		}
	}
}

// checkPlaceholders flags brace names that are neither spin groups nor
// registered placeholders.
func checkPlaceholders(template string, result *ValidationResult) {
	registered := make(map[string]struct{})
	for _, name := range RegisteredPlaceholders() {
		registered[name] = struct{}{}
	}

	for _, match := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if _, ok := registered[match[1]]; !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("unknown placeholder %q", match[0]))
		}
	}
}
