package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
)

// Policy controls how known duplicates are treated during filtering.
type Policy string

const (
	// PolicySkip removes all known duplicates.
	PolicySkip Policy = "skip"

	// PolicyAllow passes everything through; the guard becomes a no-op.
	PolicyAllow Policy = "allow"

	// PolicyRetryFailed passes through duplicates whose last recorded outcome
	// was a failure, so only confirmed successes are suppressed.
	PolicyRetryFailed Policy = "retry-failed"
)

// ErrInvalidPolicy is returned when an unknown policy string is parsed.
var ErrInvalidPolicy = errors.New("invalid dedup policy")

// ParsePolicy converts a string to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case PolicySkip, PolicyAllow, PolicyRetryFailed:
		return Policy(value), nil
	case "":
		return PolicySkip, nil
	default:
		return PolicySkip, fmt.Errorf("%w: %q", ErrInvalidPolicy, value)
	}
}

// Result is the outcome of a duplicate check.
type Result struct {
	Duplicate bool
	Record    *domain.SubmissionRecord
}

// Guard answers whether a target has already been submitted to and records
// every attempt. Its store is durable; the guard must be consulted before any
// outbound submission and updated after every attempt, success or failure.
type Guard struct {
	store database.SubmissionStore
	log   logger.Logger
}

// NewGuard creates a new duplicate guard.
func NewGuard(store database.SubmissionStore, log logger.Logger) *Guard {
	return &Guard{store: store, log: log}
}

// IsDuplicate reports whether a record exists for the target's normalized
// key. When windowDays > 0 the record only counts as a duplicate if its
// last-seen timestamp falls inside the window.
func (g *Guard) IsDuplicate(ctx context.Context, target string, formCtx *FormContext, windowDays int) (*Result, error) {
	key, err := TargetKey(target, formCtx)
	if err != nil {
		return nil, err
	}

	record, getErr := g.store.Get(ctx, key)
	if getErr != nil {
		if errors.Is(getErr, database.ErrRecordNotFound) {
			return &Result{Duplicate: false}, nil
		}
		return nil, fmt.Errorf("dedup lookup for %s: %w", key, getErr)
	}

	if windowDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -windowDays)
		if record.LastSeenAt.Before(cutoff) {
			return &Result{Duplicate: false, Record: record}, nil
		}
	}

	return &Result{Duplicate: true, Record: record}, nil
}

// Record upserts the submission record for a target after an attempt. The
// attempt count increments atomically in the store, last status and last-seen
// refresh, and the original first-seen timestamp is preserved.
func (g *Guard) Record(ctx context.Context, target string, formCtx *FormContext, campaignID, outcome string) error {
	key, err := TargetKey(target, formCtx)
	if err != nil {
		return err
	}

	if upsertErr := g.store.Upsert(ctx, key, campaignID, outcome); upsertErr != nil {
		return fmt.Errorf("dedup record for %s: %w", key, upsertErr)
	}

	g.log.Debug("recorded submission attempt",
		logger.String("key", key),
		logger.String("outcome", outcome),
	)

	return nil
}

// Filter returns the subset of targets eligible for submission under the
// given policy. Targets whose identity cannot be normalized are dropped.
func (g *Guard) Filter(ctx context.Context, targets []string, policy Policy, windowDays int) ([]string, error) {
	if policy == PolicyAllow {
		return targets, nil
	}

	keys := make([]string, 0, len(targets))
	keyByTarget := make(map[string]string, len(targets))
	eligible := make([]string, 0, len(targets))

	for _, target := range targets {
		key, err := TargetKey(target, nil)
		if err != nil {
			g.log.Warn("dropping unnormalizable target", logger.String("target", target))
			continue
		}
		keys = append(keys, key)
		keyByTarget[target] = key
		eligible = append(eligible, target)
	}

	records, err := g.store.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("dedup filter: %w", err)
	}

	cutoff := time.Time{}
	if windowDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -windowDays)
	}

	filtered := make([]string, 0, len(eligible))
	for _, target := range eligible {
		record, known := records[keyByTarget[target]]
		if !known || g.passes(record, policy, cutoff) {
			filtered = append(filtered, target)
		}
	}

	return filtered, nil
}

// passes reports whether a known record is still eligible under the policy.
func (g *Guard) passes(record *domain.SubmissionRecord, policy Policy, cutoff time.Time) bool {
	if !cutoff.IsZero() && record.LastSeenAt.Before(cutoff) {
		return true
	}

	if policy == PolicyRetryFailed {
		return record.LastStatus != domain.SubmissionStatusSubmitted
	}

	return false
}
