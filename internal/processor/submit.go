package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/formreach/formreach/internal/collab"
	"github.com/formreach/formreach/internal/dedup"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/message"
)

// handleSubmit performs one fill-and-submit attempt against the form in the
// task payload. The duplicate guard is consulted before the attempt and
// updated after it, and the rate limiter gates the outbound request. A form
// that rejects the submission fails the task terminally; only network-level
// trouble earns a retry.
func (p *Processor) handleSubmit(ctx context.Context, task *domain.Task) (domain.JSONBMap, error) {
	targetURL, _ := task.Payload["target_url"].(string)
	if targetURL == "" {
		return nil, collab.Invalid(errors.New("submit task has no target_url"))
	}

	form, err := decodeForm(task.Payload["form"])
	if err != nil {
		return nil, collab.Invalid(fmt.Errorf("submit task payload: %w", err))
	}

	formCtx := formContext(targetURL, form)

	policy, _ := dedup.ParsePolicy(p.cfg.DedupPolicy)
	if policy != dedup.PolicyAllow {
		check, dupErr := p.guard.IsDuplicate(ctx, targetURL, formCtx, p.cfg.DedupWindowDays)
		if dupErr != nil {
			return nil, fmt.Errorf("duplicate check for %s: %w", targetURL, dupErr)
		}
		if check.Duplicate && !retriableDuplicate(policy, check.Record) {
			p.log.Info("skipping duplicate target",
				logger.String("target_url", targetURL),
				logger.Int("prior_attempts", check.Record.AttemptCount),
			)
			p.appendLog(ctx, task, targetURL, domain.SubmissionStatusSkipped, "duplicate target", nil)
			return domain.JSONBMap{"skipped": true, "reason": "duplicate"}, nil
		}
	}

	key, keyErr := dedup.NormalizeTarget(targetURL)
	if keyErr != nil {
		return nil, collab.Invalid(keyErr)
	}

	if waitErr := p.limiter.Wait(ctx, key); waitErr != nil {
		return nil, collab.Transient(fmt.Errorf("rate limit wait for %s: %w", key, waitErr))
	}

	body := p.engine.Render(p.cfg.MessageTemplate, p.senderData(key))
	data := collab.SubmissionData{
		Name:    p.cfg.SenderName,
		Email:   p.cfg.SenderEmail,
		Phone:   p.cfg.SenderPhone,
		Company: p.cfg.SenderCompany,
		Message: body,
	}

	result, submitErr := p.executor.Submit(ctx, targetURL, form, data)
	if submitErr != nil {
		p.recordAttempt(ctx, task, targetURL, formCtx, form, domain.SubmissionStatusFailed, submitErr.Error(), nil)
		return nil, submitErr
	}

	if !result.Success {
		p.recordAttempt(ctx, task, targetURL, formCtx, form, domain.SubmissionStatusFailed, result.Message, nil)
		return nil, collab.Invalid(fmt.Errorf("submission rejected: %s", result.Message))
	}

	detail := domain.JSONBMap{"message_length": len(body)}
	p.recordAttempt(ctx, task, targetURL, formCtx, form, domain.SubmissionStatusSubmitted, result.Message, detail)

	return domain.JSONBMap{
		"submitted":  true,
		"target_url": targetURL,
		"message":    result.Message,
	}, nil
}

// recordAttempt updates the duplicate guard, the adaptive tracker, and the
// activity log after one attempt. Bookkeeping failures are logged, not
// propagated; the attempt outcome stands.
func (p *Processor) recordAttempt(
	ctx context.Context,
	task *domain.Task,
	targetURL string,
	formCtx *dedup.FormContext,
	form *domain.FormDescriptor,
	status, message string,
	detail domain.JSONBMap,
) {
	if recordErr := p.guard.Record(ctx, targetURL, formCtx, task.CampaignID, status); recordErr != nil {
		p.log.Error("failed to record submission attempt", logger.Error(recordErr))
	}

	if p.tracker != nil {
		p.tracker.RecordOutcome(form.Integration, form.Category, status == domain.SubmissionStatusSubmitted)
	}

	p.appendLog(ctx, task, targetURL, status, message, detail)
}

// appendLog writes one activity log entry.
func (p *Processor) appendLog(ctx context.Context, task *domain.Task, targetURL, status, message string, detail domain.JSONBMap) {
	entry := &domain.SubmissionLog{
		ID:         p.newID(),
		CampaignID: task.CampaignID,
		DomainID:   task.DomainID,
		TaskID:     task.ID,
		TargetURL:  targetURL,
		Status:     status,
		Message:    message,
		Detail:     detail,
	}
	if logErr := p.submissions.AppendLog(ctx, entry); logErr != nil {
		p.log.Error("failed to append submission log", logger.Error(logErr))
	}
}

// senderData assembles the template substitution record for a target domain.
func (p *Processor) senderData(targetDomain string) message.SenderData {
	return message.SenderData{
		Name:    p.cfg.SenderName,
		Email:   p.cfg.SenderEmail,
		Phone:   p.cfg.SenderPhone,
		Company: p.cfg.SenderCompany,
		Domain:  targetDomain,
	}
}

// retriableDuplicate reports whether a known duplicate may still be attempted
// under the policy.
func retriableDuplicate(policy dedup.Policy, record *domain.SubmissionRecord) bool {
	return policy == dedup.PolicyRetryFailed && record.LastStatus != domain.SubmissionStatusSubmitted
}

// formContext derives the dedup form context from the target page and form.
func formContext(targetURL string, form *domain.FormDescriptor) *dedup.FormContext {
	path := ""
	if parsed, err := url.Parse(targetURL); err == nil {
		path = parsed.Path
	}
	return &dedup.FormContext{FormPath: path, FormType: form.Category}
}

// decodeForm rebuilds a FormDescriptor from its payload representation. The
// value is a typed descriptor when the task never left memory and a generic
// map after a database round trip, so decoding goes through JSON either way.
func decodeForm(raw any) (*domain.FormDescriptor, error) {
	if raw == nil {
		return nil, errors.New("missing form descriptor")
	}

	if form, ok := raw.(*domain.FormDescriptor); ok {
		return form, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode form descriptor: %w", err)
	}

	var form domain.FormDescriptor
	if err := json.Unmarshal(encoded, &form); err != nil {
		return nil, fmt.Errorf("decode form descriptor: %w", err)
	}

	return &form, nil
}
