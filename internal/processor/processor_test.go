package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formreach/formreach/internal/collab"
	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/dedup"
	"github.com/formreach/formreach/internal/domain"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/message"
	"github.com/formreach/formreach/internal/ratelimit"
	"github.com/formreach/formreach/internal/scoring"
)

// --- fakes ---

type fakeTaskStore struct {
	mu       sync.Mutex
	pending  []*domain.Task
	byID     map[string]*domain.Task
	claimErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{byID: make(map[string]*domain.Task)}
}

func (s *fakeTaskStore) add(task *domain.Task) {
	s.pending = append(s.pending, task)
	s.byID[task.ID] = task
}

func (s *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(task)
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return task, nil
}

func (s *fakeTaskStore) ClaimNext(_ context.Context) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	for i, task := range s.pending {
		if task.Status == domain.TaskStatusPending {
			task.Status = domain.TaskStatusProcessing
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return task, nil
		}
	}
	return nil, database.ErrNoTaskAvailable
}

func (s *fakeTaskStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.byID[id]
	if !ok || task.Status != domain.TaskStatusPending {
		return false, nil
	}
	task.Status = domain.TaskStatusProcessing
	return true, nil
}

func (s *fakeTaskStore) MarkCompleted(_ context.Context, id string, result domain.JSONBMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.byID[id]
	if !ok || task.Status != domain.TaskStatusProcessing {
		return fmt.Errorf("processing task not found: %s", id)
	}
	task.Status = domain.TaskStatusCompleted
	task.Result = result
	return nil
}

func (s *fakeTaskStore) MarkFailed(_ context.Context, id, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.byID[id]
	if !ok || task.Status != domain.TaskStatusProcessing {
		return fmt.Errorf("processing task not found: %s", id)
	}
	task.Status = domain.TaskStatusFailed
	task.ErrorMessage = &errorMessage
	return nil
}

func (s *fakeTaskStore) Requeue(_ context.Context, failed *domain.Task, newID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	retry := &domain.Task{
		ID:          newID,
		CampaignID:  failed.CampaignID,
		DomainID:    failed.DomainID,
		TaskType:    failed.TaskType,
		Status:      domain.TaskStatusPending,
		Priority:    failed.Priority,
		Attempt:     failed.Attempt + 1,
		MaxAttempts: failed.MaxAttempts,
		Payload:     failed.Payload,
	}
	s.add(retry)
	return retry, nil
}

func (s *fakeTaskStore) ReclaimStale(_ context.Context, _ time.Time) (int, error) { return 0, nil }

func (s *fakeTaskStore) countByStatus(domainID string, statuses ...string) int {
	count := 0
	for _, task := range s.byID {
		if task.DomainID != domainID {
			continue
		}
		for _, status := range statuses {
			if task.Status == status {
				count++
			}
		}
	}
	return count
}

func (s *fakeTaskStore) CountActiveByDomain(_ context.Context, domainID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countByStatus(domainID, domain.TaskStatusPending, domain.TaskStatusProcessing), nil
}

func (s *fakeTaskStore) CountCompletedByDomain(_ context.Context, domainID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countByStatus(domainID, domain.TaskStatusCompleted), nil
}

func (s *fakeTaskStore) CountFailedByDomain(_ context.Context, domainID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countByStatus(domainID, domain.TaskStatusFailed), nil
}

func (s *fakeTaskStore) Stats(_ context.Context) (*domain.QueueStats, error) {
	return &domain.QueueStats{}, nil
}

func (s *fakeTaskStore) CountByType(_ context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

type fakeDomainStore struct {
	mu      sync.Mutex
	domains map[string]*domain.Domain
}

func newFakeDomainStore() *fakeDomainStore {
	return &fakeDomainStore{domains: make(map[string]*domain.Domain)}
}

func (s *fakeDomainStore) Create(_ context.Context, d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[d.ID] = d
	return nil
}

func (s *fakeDomainStore) GetByID(_ context.Context, id string) (*domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[id]
	if !ok {
		return nil, fmt.Errorf("domain not found: %s", id)
	}
	return d, nil
}

func (s *fakeDomainStore) UpdateStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.domains[id]; ok {
		d.Status = status
	}
	return nil
}

func (s *fakeDomainStore) UpdateDiscovery(_ context.Context, id string, pages, sitemaps, forms int, technology domain.JSONBMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.domains[id]; ok {
		d.PagesFound = pages
		d.SitemapsFound = sitemaps
		d.FormsFound = forms
		d.Technology = technology
	}
	return nil
}

type fakePageStore struct {
	mu    sync.Mutex
	pages []*domain.Page
}

func (s *fakePageStore) Create(_ context.Context, p *domain.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
	return nil
}

func (s *fakePageStore) ListByDomain(_ context.Context, domainID string) ([]*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Page
	for _, p := range s.pages {
		if p.DomainID == domainID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePageStore) CountSubmittableByDomain(_ context.Context, domainID string) (int, error) {
	pages, _ := s.ListByDomain(context.Background(), domainID)
	count := 0
	for _, p := range pages {
		if p.HasForm || p.HasComments {
			count++
		}
	}
	return count, nil
}

type fakeSubmissionStore struct {
	mu      sync.Mutex
	records map[string]*domain.SubmissionRecord
	logs    []*domain.SubmissionLog
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{records: make(map[string]*domain.SubmissionRecord)}
}

func (s *fakeSubmissionStore) Get(_ context.Context, key string) (*domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return nil, database.ErrRecordNotFound
	}
	return record, nil
}

func (s *fakeSubmissionStore) GetMany(_ context.Context, keys []string) (map[string]*domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := make(map[string]*domain.SubmissionRecord)
	for _, key := range keys {
		if record, ok := s.records[key]; ok {
			found[key] = record
		}
	}
	return found, nil
}

func (s *fakeSubmissionStore) Upsert(_ context.Context, key, campaignID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.records[key]; ok {
		existing.AttemptCount++
		existing.LastStatus = status
		existing.LastSeenAt = now
		return nil
	}
	s.records[key] = &domain.SubmissionRecord{
		Key: key, CampaignID: campaignID, AttemptCount: 1,
		LastStatus: status, FirstSeenAt: now, LastSeenAt: now,
	}
	return nil
}

func (s *fakeSubmissionStore) AppendLog(_ context.Context, entry *domain.SubmissionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

type fakeAnalyzer struct {
	result *collab.AnalysisResult
	err    error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ string) (*collab.AnalysisResult, error) {
	return a.result, a.err
}

type fakeCrawler struct {
	pages []*collab.CrawledPage
	err   error
}

func (c *fakeCrawler) Crawl(_ context.Context, _ string, _ collab.CrawlOptions) ([]*collab.CrawledPage, error) {
	return c.pages, c.err
}

type fakeExecutor struct {
	result *collab.SubmissionResult
	err    error
	calls  int
}

func (e *fakeExecutor) Submit(_ context.Context, _ string, _ *domain.FormDescriptor, _ collab.SubmissionData) (*collab.SubmissionResult, error) {
	e.calls++
	return e.result, e.err
}

// --- harness ---

type fixture struct {
	proc        *Processor
	tasks       *fakeTaskStore
	domains     *fakeDomainStore
	pages       *fakePageStore
	submissions *fakeSubmissionStore
	analyzer    *fakeAnalyzer
	crawler     *fakeCrawler
	executor    *fakeExecutor
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	f := &fixture{
		tasks:       newFakeTaskStore(),
		domains:     newFakeDomainStore(),
		pages:       &fakePageStore{},
		submissions: newFakeSubmissionStore(),
		analyzer:    &fakeAnalyzer{result: &collab.AnalysisResult{}},
		crawler:     &fakeCrawler{},
		executor:    &fakeExecutor{result: &collab.SubmissionResult{Success: true, Message: "ok"}},
	}

	log := logger.NewNop()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Config{
		MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond,
	}, log)
	tracker := scoring.NewTracker()

	proc, err := New(cfg, Deps{
		Tasks:       f.tasks,
		Domains:     f.domains,
		Pages:       f.pages,
		Submissions: f.submissions,
		Guard:       dedup.NewGuard(f.submissions, log),
		Limiter:     limiter,
		Scorer:      scoring.NewScorer(tracker),
		Tracker:     tracker,
		Engine:      message.NewEngine(),
		Analyzer:    f.analyzer,
		Crawler:     f.crawler,
		Executor:    f.executor,
		Logger:      log,
	})
	require.NoError(t, err)

	counter := 0
	proc.newID = func() string {
		counter++
		return fmt.Sprintf("gen-%d", counter)
	}

	f.proc = proc
	return f
}

func (f *fixture) seedDomain(id string) {
	f.domains.domains[id] = &domain.Domain{
		ID: id, CampaignID: "camp-1", URL: "https://example.com",
		Status: domain.DomainStatusPending,
	}
}

func (f *fixture) seedTask(id, taskType string, payload domain.JSONBMap) *domain.Task {
	task := &domain.Task{
		ID: id, CampaignID: "camp-1", DomainID: "dom-1",
		TaskType: taskType, Status: domain.TaskStatusPending,
		Priority: 50, MaxAttempts: 3, Payload: payload,
	}
	f.tasks.add(task)
	return task
}

func submitPayload() domain.JSONBMap {
	return domain.JSONBMap{
		"target_url": "https://example.com/contact",
		"form": &domain.FormDescriptor{
			PageURL:     "https://example.com/contact",
			Action:      "/contact",
			Method:      "POST",
			Category:    domain.FormCategoryContact,
			Integration: domain.IntegrationContactForm7,
			Fields: []domain.FormField{
				{Name: "your-name", Type: "text", Required: true},
				{Name: "your-email", Type: "email", Required: true},
				{Name: "your-message", Type: "textarea", Required: true},
			},
		},
	}
}

// --- tests ---

func TestRunTaskBudget(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	for i := 0; i < 3; i++ {
		f.seedTask(fmt.Sprintf("task-%d", i), domain.TaskTypeSubmitForm, submitPayload())
	}

	report, err := f.proc.Run(context.Background(), 2, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TasksProcessed)
	assert.Equal(t, 0, report.TasksFailed)

	// The third task stays untouched for the next invocation.
	remaining, err := f.tasks.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "task-2", remaining.ID)
}

func TestRunStopsOnEmptyQueue(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})

	report, err := f.proc.Run(context.Background(), 10, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, report.TasksProcessed)
}

func TestRunTimeBudgetCheckedBeforeClaim(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())

	// The clock starts past the deadline, so not even one task is claimed.
	base := time.Now()
	calls := 0
	f.proc.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(time.Hour)
	}

	report, err := f.proc.Run(context.Background(), 10, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, report.TasksProcessed)
}

func TestRunAbortsOnStoreError(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.tasks.claimErr = errors.New("connection refused")

	report, err := f.proc.Run(context.Background(), 10, time.Minute)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Zero(t, report.TasksProcessed)
}

func TestAnalyzeEnqueuesCrawl(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeAnalyzeDomain, nil)
	f.analyzer.result = &collab.AnalysisResult{
		Sitemaps:           []string{"https://example.com/sitemap.xml"},
		AllowedURLs:        []string{"https://example.com/contact"},
		DisallowedPatterns: []string{"/wp-admin/"},
	}

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)
	assert.Equal(t, 0, report.TasksFailed)

	next, err := f.tasks.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeCrawlPages, next.TaskType)
	assert.Equal(t, []string{"https://example.com/contact"}, stringSlice(next.Payload, "seed_urls"))
	assert.Equal(t, 1, intValue(next.Payload, "sitemaps_found"))
}

func TestCrawlFansOutSubmissions(t *testing.T) {
	f := newFixture(t, Config{MaxSubmissionsPerDomain: 2, MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeCrawlPages, domain.JSONBMap{"sitemaps_found": 1})

	contactForm := submitPayload()["form"].(*domain.FormDescriptor)
	f.crawler.pages = []*collab.CrawledPage{
		{
			URL: "https://example.com/contact", Title: "Contact", HasForm: true,
			Forms: []*domain.FormDescriptor{contactForm},
		},
		{URL: "https://example.com/about", Title: "About"},
	}

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)

	// Pages persisted and discovery counters rolled up.
	assert.Len(t, f.pages.pages, 2)
	d := f.domains.domains["dom-1"]
	assert.Equal(t, 2, d.PagesFound)
	assert.Equal(t, 1, d.SitemapsFound)
	assert.Equal(t, 1, d.FormsFound)

	next, err := f.tasks.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeSubmitForm, next.TaskType)
	assert.Equal(t, "https://example.com/contact", next.Payload["target_url"])
}

func TestCrawlNoSubmittableSurfaces(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeCrawlPages, nil)
	f.crawler.pages = []*collab.CrawledPage{
		{URL: "https://example.com/", Title: "Home"},
	}

	report, err := f.proc.Run(context.Background(), 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)
	assert.Equal(t, 0, report.TasksFailed)

	// Nothing enqueued; the domain completes with zero submissions.
	_, err = f.tasks.ClaimNext(context.Background())
	assert.ErrorIs(t, err, database.ErrNoTaskAvailable)
	assert.Equal(t, domain.DomainStatusCompleted, f.domains.domains["dom-1"].Status)
}

func TestSubmitSuccess(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	task := f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)
	assert.Equal(t, 0, report.TasksFailed)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	assert.Equal(t, 1, f.executor.calls)

	// Guard record and activity log written.
	record := f.submissions.records["example.com|/contact|contact"]
	require.NotNil(t, record)
	assert.Equal(t, domain.SubmissionStatusSubmitted, record.LastStatus)
	require.Len(t, f.submissions.logs, 1)
	assert.Equal(t, domain.SubmissionStatusSubmitted, f.submissions.logs[0].Status)
}

func TestSubmitSkipsDuplicate(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())

	// Same form already submitted to.
	require.NoError(t, f.submissions.Upsert(context.Background(),
		"example.com|/contact|contact", "camp-1", domain.SubmissionStatusSubmitted))

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)
	assert.Equal(t, 0, report.TasksFailed)

	// The task completes as skipped without touching the target.
	assert.Zero(t, f.executor.calls)
	assert.Equal(t, true, f.tasks.byID["task-0"].Result["skipped"])
}

func TestSubmitRetryFailedPolicyAllowsFailedTarget(t *testing.T) {
	f := newFixture(t, Config{DedupPolicy: "retry-failed", MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())

	require.NoError(t, f.submissions.Upsert(context.Background(),
		"example.com|/contact|contact", "camp-1", domain.SubmissionStatusFailed))

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksFailed)
	assert.Equal(t, 1, f.executor.calls)
}

func TestSubmitTransientErrorRequeues(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	task := f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())
	f.executor.result = nil
	f.executor.err = collab.Transient(errors.New("dial tcp: timeout"))

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksFailed)

	// Original row failed; a fresh pending row carries attempt+1.
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	retry, err := f.tasks.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.TaskType, retry.TaskType)
	assert.Equal(t, 1, retry.Attempt)
}

func TestSubmitRejectionIsTerminal(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	task := f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())
	f.executor.result = &collab.SubmissionResult{Success: false, Message: "validation error"}

	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksFailed)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)

	// A form rejection is not retried.
	_, err = f.tasks.ClaimNext(context.Background())
	assert.ErrorIs(t, err, database.ErrNoTaskAvailable)

	record := f.submissions.records["example.com|/contact|contact"]
	require.NotNil(t, record)
	assert.Equal(t, domain.SubmissionStatusFailed, record.LastStatus)
}

func TestRetryCeilingExhausted(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	task := f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())
	task.Attempt = 2
	f.executor.result = nil
	f.executor.err = collab.Transient(errors.New("dial tcp: timeout"))

	report, err := f.proc.Run(context.Background(), 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)
	assert.Equal(t, 1, report.TasksFailed)

	// Attempt 2 of max 3 was the last; no retry row appears.
	_, err = f.tasks.ClaimNext(context.Background())
	assert.ErrorIs(t, err, database.ErrNoTaskAvailable)
	assert.Equal(t, domain.DomainStatusFailed, f.domains.domains["dom-1"].Status)
}

func TestUnknownTaskTypeFailsTerminally(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", "defragment_disk", nil)

	report, err := f.proc.Run(context.Background(), 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksFailed)

	_, err = f.tasks.ClaimNext(context.Background())
	assert.ErrorIs(t, err, database.ErrNoTaskAvailable)
}

func TestRollupTracksProgress(t *testing.T) {
	f := newFixture(t, Config{MessageTemplate: "hello {name}"})
	f.seedDomain("dom-1")
	f.seedTask("task-0", domain.TaskTypeSubmitForm, submitPayload())
	f.seedTask("task-1", domain.TaskTypeSubmitForm, submitPayload())

	// After the first task the domain still has pending work.
	report, err := f.proc.Run(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksProcessed)
	assert.Equal(t, domain.DomainStatusProcessing, f.domains.domains["dom-1"].Status)

	// Draining the queue finalizes the rollup.
	_, err = f.proc.Run(context.Background(), 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusCompleted, f.domains.domains["dom-1"].Status)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{DedupPolicy: "bogus"}, Deps{})
	assert.Error(t, err)

	_, err = New(Config{}, Deps{})
	assert.Error(t, err)
}
