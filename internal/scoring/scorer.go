// Package scoring ranks discovered forms by estimated submission-success
// likelihood. The model is a deterministic additive adjustment over a base
// score, optionally blended with observed outcomes once enough samples exist.
package scoring

import (
	"fmt"
	"sort"

	"github.com/formreach/formreach/internal/domain"
)

// Score bounds.
const (
	MinScore  = 0
	MaxScore  = 100
	baseScore = 50
)

// Recommendation buckets.
const (
	RecommendHighPriority = "high_priority" // >= 80: submit first
	RecommendSubmit       = "submit"        // >= 60
	RecommendCaution      = "caution"       // >= 40: attempt with caution
	RecommendSkip         = "skip"          // >= 20
	RecommendAvoid        = "avoid"         // below 20
)

// Recommendation thresholds.
const (
	thresholdHighPriority = 80
	thresholdSubmit       = 60
	thresholdCaution      = 40
	thresholdSkip         = 20
)

// Flat adjustments.
const (
	captchaPenalty      = -40
	iframePenalty       = -30
	messageFieldBonus   = 15
	emailFieldBonus     = 10
	tinyFormPenalty     = -20
	sparseFormPenalty   = -5
	hugeFormPenalty     = -25
	perExtraFieldNeg    = -2
	requiredOver3       = -5
	requiredOver5       = -12
	requiredOver7       = -20
	optimalFieldsMin    = 3
	optimalFieldsMax    = 5
	hugeFieldCount      = 10
	sparseFieldCount    = 2
)

// categoryPoints weighs form categories. Direct-contact forms carry the
// highest submission value; opt-ins and site chrome score negative.
var categoryPoints = map[string]int{
	domain.FormCategoryContact:    15,
	domain.FormCategoryQuote:      12,
	domain.FormCategorySupport:    10,
	domain.FormCategoryComment:    5,
	domain.FormCategoryUnknown:    0,
	domain.FormCategoryNewsletter: -10,
	domain.FormCategorySearch:     -15,
	domain.FormCategoryLogin:      -15,
}

// integrationPoints weighs submission mechanisms. Known, well-behaved
// integrations submit reliably; generic and third-party embeds do not.
var integrationPoints = map[string]int{
	domain.IntegrationContactForm7: 10,
	domain.IntegrationWPForms:      10,
	domain.IntegrationGravityForms: 10,
	domain.IntegrationNinjaForms:   8,
	domain.IntegrationFormidable:   8,
	domain.IntegrationHTMLForm:     3,
	domain.IntegrationUnknown:      0,
	domain.IntegrationThirdParty:   -10,
}

// FormScore is the scoring result for a single form.
type FormScore struct {
	Form           *domain.FormDescriptor `json:"form"`
	Score          int                    `json:"score"`
	Factors        []string               `json:"factors"`
	Recommendation string                 `json:"recommendation"`
}

// Scorer scores and ranks form descriptors. The optional tracker blends
// observed outcomes into future rankings.
type Scorer struct {
	tracker *Tracker
}

// NewScorer creates a scorer. tracker may be nil to disable adaptive
// adjustment.
func NewScorer(tracker *Tracker) *Scorer {
	return &Scorer{tracker: tracker}
}

// Score computes the submission-likelihood score for one form.
func (s *Scorer) Score(form *domain.FormDescriptor) *FormScore {
	score := baseScore
	factors := make([]string, 0, 8)

	apply := func(points int, reason string) {
		if points == 0 {
			return
		}
		score += points
		factors = append(factors, fmt.Sprintf("%s: %+d", reason, points))
	}

	apply(categoryPoints[form.Category], "category "+form.Category)
	apply(integrationPoints[form.Integration], "integration "+form.Integration)
	apply(fieldCountPoints(len(form.Fields)), fmt.Sprintf("%d fields", len(form.Fields)))
	apply(requiredFieldPoints(form.RequiredFieldCount()), fmt.Sprintf("%d required fields", form.RequiredFieldCount()))

	if form.HasCaptcha {
		apply(captchaPenalty, "captcha detected")
	}
	if form.IsIframe {
		apply(iframePenalty, "iframe embed")
	}
	if form.HasFieldType("textarea") {
		apply(messageFieldBonus, "message field present")
	}
	if form.HasFieldType("email") {
		apply(emailFieldBonus, "email field present")
	}

	if s.tracker != nil {
		adjustment := s.tracker.Adjustment(form.Integration, form.Category)
		apply(adjustment, "observed outcomes")
	}

	score = clamp(score)

	return &FormScore{
		Form:           form,
		Score:          score,
		Factors:        factors,
		Recommendation: recommend(score),
	}
}

// RankForms scores all forms and returns them sorted by score, best first.
// Ties keep their original order.
func (s *Scorer) RankForms(forms []*domain.FormDescriptor) []*FormScore {
	scored := make([]*FormScore, len(forms))
	for i, form := range forms {
		scored[i] = s.Score(form)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// TopN selects at most n forms at or above minScore for actual submission
// attempts. Bulk policy caps attempts per domain to control load and risk.
func (s *Scorer) TopN(forms []*domain.FormDescriptor, n, minScore int) []*FormScore {
	ranked := s.RankForms(forms)

	selected := make([]*FormScore, 0, n)
	for _, fs := range ranked {
		if len(selected) >= n {
			break
		}
		if fs.Score >= minScore {
			selected = append(selected, fs)
		}
	}

	return selected
}

// fieldCountPoints shapes the score by visible field count. Three to five
// fields is optimal; very long forms usually fail silently and near-empty
// forms are often false positives.
func fieldCountPoints(count int) int {
	switch {
	case count < sparseFieldCount:
		return tinyFormPenalty
	case count < optimalFieldsMin:
		return sparseFormPenalty
	case count <= optimalFieldsMax:
		return 0
	case count <= hugeFieldCount:
		return perExtraFieldNeg * (count - optimalFieldsMax)
	default:
		return hugeFormPenalty
	}
}

// requiredFieldPoints penalizes forms with escalating required-field counts.
func requiredFieldPoints(count int) int {
	switch {
	case count > 7:
		return requiredOver7
	case count > 5:
		return requiredOver5
	case count > 3:
		return requiredOver3
	default:
		return 0
	}
}

// recommend maps a score to its recommendation bucket.
func recommend(score int) string {
	switch {
	case score >= thresholdHighPriority:
		return RecommendHighPriority
	case score >= thresholdSubmit:
		return RecommendSubmit
	case score >= thresholdCaution:
		return RecommendCaution
	case score >= thresholdSkip:
		return RecommendSkip
	default:
		return RecommendAvoid
	}
}

// clamp bounds a score to [MinScore, MaxScore].
func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
