package scoring

import "sync"

// Adaptive adjustment parameters. The tracker never adjusts a score before a
// key reaches minSamples outcomes, avoiding noisy early bias. State is
// process-local and cold-starts at zero adjustment after a restart.
const (
	minSamples    = 10
	maxAdjustment = 20
)

// tally counts observed outcomes for one (integration, category) key.
type tally struct {
	successes int
	attempts  int
}

// Tracker maintains an in-memory record of submission outcomes keyed by
// (integration, formCategory) and converts observed success rates into score
// adjustments of up to ±maxAdjustment points.
type Tracker struct {
	mu      sync.Mutex
	tallies map[string]*tally
}

// NewTracker creates a new outcome tracker.
func NewTracker() *Tracker {
	return &Tracker{tallies: make(map[string]*tally)}
}

// RecordOutcome records one submission attempt for a key.
func (t *Tracker) RecordOutcome(integration, category string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := integration + "|" + category
	entry, ok := t.tallies[key]
	if !ok {
		entry = &tally{}
		t.tallies[key] = entry
	}

	entry.attempts++
	if success {
		entry.successes++
	}
}

// Adjustment returns the score adjustment for a key: 0 until minSamples
// outcomes exist, then a linear blend from -maxAdjustment (all failures) to
// +maxAdjustment (all successes).
func (t *Tracker) Adjustment(integration, category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tallies[integration+"|"+category]
	if !ok || entry.attempts < minSamples {
		return 0
	}

	rate := float64(entry.successes) / float64(entry.attempts)
	return int((rate - 0.5) * 2 * maxAdjustment)
}

// Samples returns how many outcomes have been recorded for a key.
func (t *Tracker) Samples(integration, category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tallies[integration+"|"+category]
	if !ok {
		return 0
	}
	return entry.attempts
}
