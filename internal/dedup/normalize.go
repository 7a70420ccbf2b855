// Package dedup provides target identity normalization and the duplicate
// guard that prevents re-submitting to targets already contacted.
// Targets are normalized before lookup so the same domain expressed
// differently produces the same key.
package dedup

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errEmptyTarget = errors.New("normalize target: empty input")

// NormalizeTarget reduces a raw URL or hostname to its canonical domain
// identity. Identity is scheme-insensitive, port-insensitive, and ignores a
// leading "www.", any path, and any trailing slash: http://WWW.Example.com:8080/
// and example.com normalize to the same string. Path-level granularity is
// carried by FormContext, not by the domain identity.
func NormalizeTarget(raw string) (string, error) {
	if raw == "" {
		return "", errEmptyTarget
	}

	trimmed := strings.TrimSpace(strings.ToLower(raw))
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimSuffix(trimmed, "/")

	// Parse with a scheme so url.Parse treats the input as a host, not a path.
	parsed, err := url.Parse("https://" + trimmed)
	if err != nil {
		return "", fmt.Errorf("normalize target: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", errEmptyTarget
	}

	return strings.TrimPrefix(host, "www."), nil
}

// FormContext identifies a specific form on a target for form-level
// deduplication granularity.
type FormContext struct {
	FormPath string
	FormType string
}

// TargetKey builds the composable dedup key: the bare normalized domain, or
// domain|formPath|formType when a form context is given.
func TargetKey(target string, formCtx *FormContext) (string, error) {
	normalized, err := NormalizeTarget(target)
	if err != nil {
		return "", err
	}

	if formCtx == nil {
		return normalized, nil
	}

	return normalized + "|" + formCtx.FormPath + "|" + formCtx.FormType, nil
}
