package collab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

const (
	defaultExecutorTimeout = 45 * time.Second

	// maxExecutorBodyBytes caps how much of the response is read when looking
	// for success or failure markers.
	maxExecutorBodyBytes = 256 * 1024
)

// failureMarkers in a 200 response body indicate the form rejected the
// submission despite the successful HTTP exchange.
var failureMarkers = []string{
	"error", "invalid", "required field", "try again", "failed",
}

// HTTPExecutor is the default Executor implementation: it posts rendered
// field values directly to the form's action endpoint. Browser-driven
// execution sits behind the same interface and is out of scope here.
type HTTPExecutor struct {
	httpClient *http.Client
	userAgent  string
	log        logger.Logger
}

// NewHTTPExecutor creates the default executor.
func NewHTTPExecutor(httpClient *http.Client, userAgent string, log logger.Logger) *HTTPExecutor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultExecutorTimeout}
	}
	return &HTTPExecutor{httpClient: httpClient, userAgent: userAgent, log: log}
}

// Submit fills the form's fields from the submission data and posts them to
// the form's action URL.
func (e *HTTPExecutor) Submit(
	ctx context.Context,
	targetURL string,
	form *domain.FormDescriptor,
	data SubmissionData,
) (*SubmissionResult, error) {
	action, err := resolveAction(targetURL, form.Action)
	if err != nil {
		return nil, Invalid(err)
	}

	values := buildFormValues(form, data)

	req, reqErr := http.NewRequestWithContext(
		ctx, http.MethodPost, action, strings.NewReader(values.Encode()),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("build submit request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", targetURL)
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, doErr := e.httpClient.Do(req)
	if doErr != nil {
		return nil, Transient(fmt.Errorf("submit to %s: %w", action, doErr))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxExecutorBodyBytes))

	result := interpretResponse(resp.StatusCode, string(body))

	e.log.Debug("submission attempted",
		logger.String("action", action),
		logger.Int("status_code", resp.StatusCode),
		logger.Bool("success", result.Success),
	)

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, Transient(fmt.Errorf("submit to %s: status %d", action, resp.StatusCode))
	}

	return result, nil
}

// resolveAction resolves a form's action attribute against the page URL.
// An empty action posts back to the page itself.
func resolveAction(pageURL, action string) (string, error) {
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" {
		return "", fmt.Errorf("submit: unparseable page url %q", pageURL)
	}

	if action == "" {
		return page.String(), nil
	}

	ref, refErr := url.Parse(action)
	if refErr != nil {
		return "", fmt.Errorf("submit: unparseable action %q", action)
	}

	return page.ResolveReference(ref).String(), nil
}

// buildFormValues maps submission data onto the form's fields by name and
// type heuristics.
func buildFormValues(form *domain.FormDescriptor, data SubmissionData) url.Values {
	values := url.Values{}

	for _, field := range form.Fields {
		lowered := strings.ToLower(field.Name + " " + field.Label)

		switch {
		case field.Type == "email" || strings.Contains(lowered, "email"):
			values.Set(field.Name, data.Email)
		case field.Type == "textarea" || strings.Contains(lowered, "message") ||
			strings.Contains(lowered, "comment"):
			values.Set(field.Name, data.Message)
		case field.Type == "tel" || strings.Contains(lowered, "phone"):
			values.Set(field.Name, data.Phone)
		case strings.Contains(lowered, "company") || strings.Contains(lowered, "organization"):
			values.Set(field.Name, data.Company)
		case strings.Contains(lowered, "name"):
			values.Set(field.Name, data.Name)
		case field.Required:
			// Unclassified required fields get the sender name so the form
			// does not reject the submission outright.
			values.Set(field.Name, data.Name)
		}
	}

	return values
}

// interpretResponse classifies the submission outcome from the HTTP exchange.
func interpretResponse(statusCode int, body string) *SubmissionResult {
	if statusCode < http.StatusOK || statusCode >= http.StatusBadRequest {
		return &SubmissionResult{
			Success: false,
			Message: fmt.Sprintf("submission rejected with status %d", statusCode),
		}
	}

	lowered := strings.ToLower(body)
	for _, marker := range failureMarkers {
		if strings.Contains(lowered, marker) {
			return &SubmissionResult{
				Success: false,
				Message: fmt.Sprintf("response body contains failure marker %q", marker),
			}
		}
	}

	return &SubmissionResult{Success: true, Message: "submission accepted"}
}
