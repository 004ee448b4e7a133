// internal/processor/processor_test.go
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"product-matcher/internal/common/config"
	apperrors "product-matcher/internal/common/errors"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/costing"
	"product-matcher/internal/matching"
	"product-matcher/internal/models"
	"product-matcher/internal/providers"
	"product-matcher/internal/ranking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.MatcherJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*models.MatcherJob)}
}

func (m *memJobRepo) Create(ctx context.Context, job *models.MatcherJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobRepo) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	for k, v := range patch {
		switch k {
		case "status":
			job.Status = v.(models.JobStatus)
		case "error":
			job.Error = v.(string)
		case "progress_processed":
			job.Progress.Processed = v.(int)
		case "progress_total":
			job.Progress.Total = v.(int)
		default:
			return fmt.Errorf("unknown job field %q", k)
		}
	}
	return nil
}

func (m *memJobRepo) Get(ctx context.Context, id string) (*models.MatcherJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	// A copy, like the SQL repository: the caller must not see later
	// in-memory mutations unless they went through UpdateFields.
	copied := *job
	return &copied, nil
}

type memResultRepo struct {
	mu      sync.Mutex
	results []*models.MatchResult
}

func (m *memResultRepo) Create(ctx context.Context, result *models.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *memResultRepo) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, result := range m.results {
		if result.ID != id {
			continue
		}
		for k, v := range patch {
			switch k {
			case "status":
				result.Status = v.(models.ResultStatus)
			case "error":
				result.Error = v.(string)
			case "matches":
				result.Matches = v.([]models.ProviderResult)
			case "best_match_id":
				result.BestMatchID = v.(string)
			case "sku":
				result.SKU = v.(string)
			case "landed_cost_value":
				result.LandedCostValue, _ = v.(*float64)
			case "landed_cost_currency":
				result.LandedCostCurrency = v.(string)
			case "eta_days":
				result.ETADays, _ = v.(*int)
			case "reliability_score":
				result.ReliabilityScore, _ = v.(*int)
			case "ranking_score":
				result.RankingScore, _ = v.(*int)
			default:
				return fmt.Errorf("unknown result field %q", k)
			}
		}
		return nil
	}
	return fmt.Errorf("result %s not found", id)
}

func (m *memResultRepo) Get(ctx context.Context, id string) (*models.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, result := range m.results {
		if result.ID == id {
			return result, nil
		}
	}
	return nil, fmt.Errorf("result %s not found", id)
}

func (m *memResultRepo) ListByJob(ctx context.Context, jobID string) ([]*models.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MatchResult
	for _, result := range m.results {
		if result.JobID == jobID {
			out = append(out, result)
		}
	}
	return out, nil
}

// scriptedProvider replays a per-call script; call numbers are 1-based.
type scriptedProvider struct {
	id     string
	calls  int
	script func(call int) ([]models.ProviderResult, error)
}

func (s *scriptedProvider) ID() string   { return s.id }
func (s *scriptedProvider) Name() string { return "scripted " + s.id }

func (s *scriptedProvider) Search(ctx context.Context, query models.ProductQuery, criteria models.SearchCriteria) ([]models.ProviderResult, error) {
	s.calls++
	return s.script(s.calls)
}

func alwaysReturning(results ...models.ProviderResult) func(int) ([]models.ProviderResult, error) {
	return func(int) ([]models.ProviderResult, error) {
		return results, nil
	}
}

type capturingProgress struct {
	mu      sync.Mutex
	updates []models.Progress
}

func (c *capturingProgress) PublishProgress(ctx context.Context, jobID string, progress models.Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, progress)
	return nil
}

type capturingNotifier struct {
	mu       sync.Mutex
	finished []models.MatcherJob
}

func (c *capturingNotifier) JobFinished(ctx context.Context, job *models.MatcherJob) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, *job)
	return nil
}

type countingIndexer struct {
	mu      sync.Mutex
	indexed []string
}

func (c *countingIndexer) IndexResult(ctx context.Context, result *models.MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexed = append(c.indexed, result.ID)
	return nil
}

func candidateFixture(productID string, price float64) models.ProviderResult {
	return models.ProviderResult{
		ProviderID:     models.ProviderIDCatalog,
		ProviderName:   "Supplier Catalog",
		ProductID:      productID,
		Title:          "Wireless Earbuds",
		Price:          price,
		Currency:       "USD",
		ShippingOrigin: "CN",
		SKU:            "SKU-" + productID,
		RawData:        map[string]interface{}{"productSku": "SKU-" + productID},
	}
}

func rowFixture(name string) models.RowMap {
	return models.RowMap{"Product Name": name, "Unit Price": 20.0}
}

type processorFixture struct {
	proc     *Processor
	jobs     *memJobRepo
	results  *memResultRepo
	progress *capturingProgress
	notifier *capturingNotifier
	indexer  *countingIndexer
}

func newFixture(t *testing.T, registry *providers.Registry) *processorFixture {
	log := logger.NewTestLogger(t)

	f := &processorFixture{
		jobs:     newMemJobRepo(),
		results:  &memResultRepo{},
		progress: &capturingProgress{},
		notifier: &capturingNotifier{},
		indexer:  &countingIndexer{},
	}

	f.proc = New(
		f.jobs, f.results, registry,
		matching.NewScorer(log),
		costing.NewEstimator(log),
		ranking.NewScorer(log),
		config.ProcessorConfig{},
		Options{Progress: f.progress, Indexer: f.indexer, Notifier: f.notifier},
		log,
	)
	return f
}

func (f *processorFixture) addJob(rows []models.RowMap, providerIDs []string) *models.MatcherJob {
	job := &models.MatcherJob{
		ID:        "job-1",
		SheetData: rows,
		Providers: providerIDs,
		Status:    models.JobStatusPending,
	}
	_ = f.jobs.Create(context.Background(), job)
	return job
}

// ==========================
// Core Functionality Tests
// ==========================

func TestProcess_HappyPath(t *testing.T) {
	catalog := &scriptedProvider{
		id:     models.ProviderIDCatalog,
		script: alwaysReturning(candidateFixture("p-1", 19), candidateFixture("p-2", 120)),
	}
	f := newFixture(t, providers.NewRegistry(catalog))

	rows := []models.RowMap{rowFixture("Wireless Earbuds"), rowFixture("Wireless Earbuds Pro")}
	job := f.addJob(rows, []string{models.ProviderIDCatalog})

	err := f.proc.Process(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Progress.Processed)
	assert.Equal(t, 2, job.Progress.Total)
	assert.Equal(t, 2, catalog.calls)

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, models.ResultStatusFound, result.Status)
		require.Len(t, result.Matches, 2)
		// The close-priced candidate outranks the expensive one.
		assert.Equal(t, "p-1", result.BestMatchID)
		assert.Equal(t, "SKU-p-1", result.SKU)
		require.NotNil(t, result.RankingScore)
		require.NotNil(t, result.LandedCostValue)
		assert.GreaterOrEqual(t, result.Matches[0].RankingScore, result.Matches[1].RankingScore)
	}

	// One progress update per row, monotonically increasing.
	require.Len(t, f.progress.updates, 2)
	assert.Equal(t, models.Progress{Processed: 1, Total: 2}, f.progress.updates[0])
	assert.Equal(t, models.Progress{Processed: 2, Total: 2}, f.progress.updates[1])

	assert.Len(t, f.indexer.indexed, 2)

	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, models.JobStatusCompleted, f.notifier.finished[0].Status)
	assert.Equal(t, models.Progress{Processed: 2, Total: 2}, f.notifier.finished[0].Progress)
}

func TestProcess_NoCandidatesIsNotFound(t *testing.T) {
	catalog := &scriptedProvider{id: models.ProviderIDCatalog, script: alwaysReturning()}
	f := newFixture(t, providers.NewRegistry(catalog))

	job := f.addJob([]models.RowMap{rowFixture("Obscure Thing")}, []string{models.ProviderIDCatalog})

	require.NoError(t, f.proc.Process(context.Background(), job.ID))

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	require.Len(t, results, 1)
	assert.Equal(t, models.ResultStatusNotFound, results[0].Status)
	assert.Empty(t, results[0].BestMatchID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestProcess_RowWithoutNameErrorsButJobCompletes(t *testing.T) {
	catalog := &scriptedProvider{
		id:     models.ProviderIDCatalog,
		script: alwaysReturning(candidateFixture("p-1", 19)),
	}
	f := newFixture(t, providers.NewRegistry(catalog))

	rows := []models.RowMap{
		{"SKU": "SK-1", "Price": 10.0}, // no resolvable name
		rowFixture("Wireless Earbuds"),
	}
	job := f.addJob(rows, []string{models.ProviderIDCatalog})

	require.NoError(t, f.proc.Process(context.Background(), job.ID))

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	require.Len(t, results, 2)
	assert.Equal(t, models.ResultStatusError, results[0].Status)
	assert.Contains(t, results[0].Error, "SKU")
	assert.Equal(t, models.ResultStatusFound, results[1].Status)

	// The errored row still counts toward progress.
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Progress.Processed)

	// Only the named row reached the provider.
	assert.Equal(t, 1, catalog.calls)
}

func TestProcess_RateLimitAbortsJob(t *testing.T) {
	catalog := &scriptedProvider{
		id: models.ProviderIDCatalog,
		script: func(call int) ([]models.ProviderResult, error) {
			if call == 3 {
				return nil, apperrors.NewRateLimitError(models.ProviderIDCatalog, "slow down")
			}
			return []models.ProviderResult{candidateFixture("p-1", 19)}, nil
		},
	}
	f := newFixture(t, providers.NewRegistry(catalog))

	rows := make([]models.RowMap, 5)
	for i := range rows {
		rows[i] = rowFixture(fmt.Sprintf("Product %d", i))
	}
	job := f.addJob(rows, []string{models.ProviderIDCatalog})

	err := f.proc.Process(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err))

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, rateLimitUserMessage, job.Error)

	// The rate-limited row itself counts as processed; rows 4 and 5 were
	// never started.
	assert.Equal(t, 3, job.Progress.Processed)

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	require.Len(t, results, 3)
	assert.Equal(t, models.ResultStatusFound, results[0].Status)
	assert.Equal(t, models.ResultStatusFound, results[1].Status)
	assert.Equal(t, models.ResultStatusError, results[2].Status)
	assert.Equal(t, rateLimitUserMessage, results[2].Error)

	// The notification carries the progress at the moment of failure, not
	// the zero progress the job was loaded with.
	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, models.JobStatusFailed, f.notifier.finished[0].Status)
	assert.Equal(t, rateLimitUserMessage, f.notifier.finished[0].Error)
	assert.Equal(t, models.Progress{Processed: 3, Total: 5}, f.notifier.finished[0].Progress)
}

func TestProcess_TransientProviderErrorSkipsProvider(t *testing.T) {
	flaky := &scriptedProvider{
		id: "flaky",
		script: func(int) ([]models.ProviderResult, error) {
			return nil, errors.New("upstream 502")
		},
	}
	catalog := &scriptedProvider{
		id:     models.ProviderIDCatalog,
		script: alwaysReturning(candidateFixture("p-1", 19)),
	}
	f := newFixture(t, providers.NewRegistry(flaky, catalog))

	job := f.addJob([]models.RowMap{rowFixture("Wireless Earbuds")}, []string{"flaky", models.ProviderIDCatalog})

	require.NoError(t, f.proc.Process(context.Background(), job.ID))

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	require.Len(t, results, 1)
	assert.Equal(t, models.ResultStatusFound, results[0].Status)
	assert.Equal(t, "p-1", results[0].BestMatchID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestProcess_NoResolvableProvidersFailsJob(t *testing.T) {
	catalog := &scriptedProvider{id: models.ProviderIDCatalog, script: alwaysReturning()}
	f := newFixture(t, providers.NewRegistry(catalog))

	job := f.addJob([]models.RowMap{rowFixture("Thing")}, []string{"unknown-provider"})

	err := f.proc.Process(context.Background(), job.ID)
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeNoProviders, stdErr.Code)

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, 0, catalog.calls)

	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, models.Progress{Processed: 0, Total: 1}, f.notifier.finished[0].Progress)

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	assert.Empty(t, results)
}

func TestProcess_NonPendingJobIsSkipped(t *testing.T) {
	catalog := &scriptedProvider{id: models.ProviderIDCatalog, script: alwaysReturning()}
	f := newFixture(t, providers.NewRegistry(catalog))

	job := f.addJob([]models.RowMap{rowFixture("Thing")}, []string{models.ProviderIDCatalog})
	job.Status = models.JobStatusCompleted

	require.NoError(t, f.proc.Process(context.Background(), job.ID))

	assert.Equal(t, 0, catalog.calls)
	results, _ := f.results.ListByJob(context.Background(), job.ID)
	assert.Empty(t, results)
}

func TestProcess_MaxShippingCostFiltersCandidates(t *testing.T) {
	// CN-US default shipping is 12; a 5 USD cap drops the candidate.
	catalog := &scriptedProvider{
		id:     models.ProviderIDCatalog,
		script: alwaysReturning(candidateFixture("p-1", 19)),
	}
	f := newFixture(t, providers.NewRegistry(catalog))

	maxShipping := 5.0
	job := f.addJob([]models.RowMap{rowFixture("Wireless Earbuds")}, []string{models.ProviderIDCatalog})
	job.Criteria = models.SearchCriteria{MaxShippingCost: &maxShipping}

	require.NoError(t, f.proc.Process(context.Background(), job.ID))

	results, _ := f.results.ListByJob(context.Background(), job.ID)
	require.Len(t, results, 1)
	assert.Equal(t, models.ResultStatusNotFound, results[0].Status)
}

func TestProcess_UnknownJob(t *testing.T) {
	catalog := &scriptedProvider{id: models.ProviderIDCatalog, script: alwaysReturning()}
	f := newFixture(t, providers.NewRegistry(catalog))

	err := f.proc.Process(context.Background(), "missing")
	require.Error(t, err)
}
