package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formreach/formreach/internal/domain"
)

// idealContactForm is a form the model should rate near the top: known
// integration, contact category, optimal field shape, message and email
// fields, no blockers.
func idealContactForm() *domain.FormDescriptor {
	return &domain.FormDescriptor{
		PageURL:     "https://example.com/contact",
		Category:    domain.FormCategoryContact,
		Integration: domain.IntegrationContactForm7,
		Fields: []domain.FormField{
			{Name: "your-name", Type: "text", Required: true},
			{Name: "your-email", Type: "email", Required: true},
			{Name: "your-message", Type: "textarea", Required: true},
		},
	}
}

func TestScoreIdealForm(t *testing.T) {
	scorer := NewScorer(nil)
	fs := scorer.Score(idealContactForm())

	assert.Equal(t, MaxScore, fs.Score)
	assert.Equal(t, RecommendHighPriority, fs.Recommendation)
	assert.NotEmpty(t, fs.Factors)
}

func TestScoreCaptchaSeparation(t *testing.T) {
	scorer := NewScorer(nil)

	clean := idealContactForm()
	withCaptcha := idealContactForm()
	withCaptcha.HasCaptcha = true

	cleanScore := scorer.Score(clean).Score
	captchaScore := scorer.Score(withCaptcha).Score

	// A captcha costs two full recommendation tiers on an otherwise ideal form.
	assert.Equal(t, -captchaPenalty, cleanScore-captchaScore)
	assert.Equal(t, RecommendSubmit, scorer.Score(withCaptcha).Recommendation)
}

func TestScoreClampedToBounds(t *testing.T) {
	scorer := NewScorer(nil)

	worst := &domain.FormDescriptor{
		Category:    domain.FormCategoryLogin,
		Integration: domain.IntegrationThirdParty,
		HasCaptcha:  true,
		IsIframe:    true,
		Fields:      []domain.FormField{{Name: "q", Type: "text"}},
	}

	fs := scorer.Score(worst)
	assert.Equal(t, MinScore, fs.Score)
	assert.Equal(t, RecommendAvoid, fs.Recommendation)
}

func TestScoreFieldCountShaping(t *testing.T) {
	scorer := NewScorer(nil)

	makeForm := func(fields int) *domain.FormDescriptor {
		form := &domain.FormDescriptor{
			Category:    domain.FormCategoryContact,
			Integration: domain.IntegrationHTMLForm,
		}
		for i := 0; i < fields; i++ {
			form.Fields = append(form.Fields, domain.FormField{Name: "f", Type: "text"})
		}
		return form
	}

	optimal := scorer.Score(makeForm(4)).Score
	sparse := scorer.Score(makeForm(1)).Score
	huge := scorer.Score(makeForm(14)).Score

	assert.Greater(t, optimal, sparse)
	assert.Greater(t, optimal, huge)
}

func TestRankFormsOrdersByScore(t *testing.T) {
	scorer := NewScorer(nil)

	bad := idealContactForm()
	bad.HasCaptcha = true
	good := idealContactForm()

	ranked := scorer.RankForms([]*domain.FormDescriptor{bad, good})
	require.Len(t, ranked, 2)
	assert.Same(t, good, ranked[0].Form)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
}

func TestTopNRespectsCapAndFloor(t *testing.T) {
	scorer := NewScorer(nil)

	forms := []*domain.FormDescriptor{
		idealContactForm(),
		idealContactForm(),
		idealContactForm(),
	}
	forms[2].HasCaptcha = true
	forms[2].IsIframe = true

	selected := scorer.TopN(forms, 2, 40)
	require.Len(t, selected, 2)
	for _, fs := range selected {
		assert.GreaterOrEqual(t, fs.Score, 40)
	}

	// A higher floor excludes everything.
	selected = scorer.TopN([]*domain.FormDescriptor{forms[2]}, 2, 40)
	assert.Empty(t, selected)
}

func TestTrackerAdjustment(t *testing.T) {
	tracker := NewTracker()

	// Below the sample floor nothing changes.
	for i := 0; i < 9; i++ {
		tracker.RecordOutcome(domain.IntegrationWPForms, domain.FormCategoryContact, true)
	}
	assert.Equal(t, 0, tracker.Adjustment(domain.IntegrationWPForms, domain.FormCategoryContact))

	tracker.RecordOutcome(domain.IntegrationWPForms, domain.FormCategoryContact, true)
	assert.Equal(t, maxAdjustment, tracker.Adjustment(domain.IntegrationWPForms, domain.FormCategoryContact))
	assert.Equal(t, 10, tracker.Samples(domain.IntegrationWPForms, domain.FormCategoryContact))

	// All failures drive the adjustment to the negative bound.
	for i := 0; i < 10; i++ {
		tracker.RecordOutcome(domain.IntegrationHTMLForm, domain.FormCategoryContact, false)
	}
	assert.Equal(t, -maxAdjustment, tracker.Adjustment(domain.IntegrationHTMLForm, domain.FormCategoryContact))
}

func TestScorerBlendsTrackerAdjustment(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 10; i++ {
		tracker.RecordOutcome(domain.IntegrationHTMLForm, domain.FormCategoryContact, false)
	}

	form := idealContactForm()
	form.Integration = domain.IntegrationHTMLForm

	plain := NewScorer(nil).Score(form).Score
	adjusted := NewScorer(tracker).Score(form).Score

	assert.Equal(t, plain-maxAdjustment, adjusted)
}

func TestRecommendationBuckets(t *testing.T) {
	assert.Equal(t, RecommendHighPriority, recommend(80))
	assert.Equal(t, RecommendSubmit, recommend(60))
	assert.Equal(t, RecommendCaution, recommend(40))
	assert.Equal(t, RecommendSkip, recommend(20))
	assert.Equal(t, RecommendAvoid, recommend(19))
}
