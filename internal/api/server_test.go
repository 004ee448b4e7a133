// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"product-matcher/internal/common/config"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.MatcherJob
}

func (m *memJobRepo) Create(ctx context.Context, job *models.MatcherJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobRepo) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	return nil
}

func (m *memJobRepo) Get(ctx context.Context, id string) (*models.MatcherJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job, nil
}

type memResultRepo struct {
	results map[string][]*models.MatchResult
}

func (m *memResultRepo) Create(ctx context.Context, result *models.MatchResult) error { return nil }
func (m *memResultRepo) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	return nil
}
func (m *memResultRepo) Get(ctx context.Context, id string) (*models.MatchResult, error) {
	return nil, fmt.Errorf("not found")
}
func (m *memResultRepo) ListByJob(ctx context.Context, jobID string) ([]*models.MatchResult, error) {
	return m.results[jobID], nil
}

type serverFixture struct {
	server     *Server
	jobs       *memJobRepo
	results    *memResultRepo
	dispatched []string
}

func newServerFixture(t *testing.T) *serverFixture {
	f := &serverFixture{
		jobs:    &memJobRepo{jobs: make(map[string]*models.MatcherJob)},
		results: &memResultRepo{results: make(map[string][]*models.MatchResult)},
	}

	cfg := &config.Config{}
	cfg.Server.Port = 8080

	server, err := NewServer(cfg, logger.NewTestLogger(t), f.jobs, f.results, func(jobID string) {
		f.dispatched = append(f.dispatched, jobID)
	})
	require.NoError(t, err)

	f.server = server
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func validSubmission() map[string]interface{} {
	return map[string]interface{}{
		"sheetData": []map[string]interface{}{
			{"Product Name": "Wireless Earbuds", "Unit Price": 20},
			{"Product Name": "Desk Lamp"},
		},
		"providers": []string{"catalog", "web"},
		"criteria":  map[string]interface{}{"shipTo": "US"},
	}
}

func TestSubmitJob(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/match-jobs", validSubmission())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job models.MatcherJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, models.Progress{Processed: 0, Total: 2}, job.Progress)
	assert.Equal(t, []string{"catalog", "web"}, job.Providers)

	// Persisted and handed off to the processor.
	stored, err := f.jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SheetData, 2)
	assert.Equal(t, []string{job.ID}, f.dispatched)
}

func TestSubmitJob_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{
			name: "missing providers",
			body: map[string]interface{}{
				"sheetData": []map[string]interface{}{{"name": "x"}},
			},
		},
		{
			name: "empty sheet data",
			body: map[string]interface{}{
				"sheetData": []map[string]interface{}{},
				"providers": []string{"catalog"},
			},
		},
		{
			name: "row is not an object",
			body: map[string]interface{}{
				"sheetData": []interface{}{"just a string"},
				"providers": []string{"catalog"},
			},
		},
		{
			name: "bad criteria country code",
			body: map[string]interface{}{
				"sheetData": []map[string]interface{}{{"name": "x"}},
				"providers": []string{"catalog"},
				"criteria":  map[string]interface{}{"shipTo": "USA"},
			},
		},
		{
			name: "maxResults out of range",
			body: map[string]interface{}{
				"sheetData": []map[string]interface{}{{"name": "x"}},
				"providers": []string{"catalog"},
				"criteria":  map[string]interface{}{"maxResults": 9999},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture(t)
			rec := f.do(t, http.MethodPost, "/api/v1/match-jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, f.dispatched)
		})
	}
}

func TestSubmitJob_MalformedJSON(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match-jobs", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob(t *testing.T) {
	f := newServerFixture(t)
	_ = f.jobs.Create(context.Background(), &models.MatcherJob{
		ID:     "job-1",
		Status: models.JobStatusProcessing,
	})

	rec := f.do(t, http.MethodGet, "/api/v1/match-jobs/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var job models.MatcherJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusProcessing, job.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/match-jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListResults(t *testing.T) {
	f := newServerFixture(t)
	_ = f.jobs.Create(context.Background(), &models.MatcherJob{ID: "job-1", Status: models.JobStatusCompleted})
	f.results.results["job-1"] = []*models.MatchResult{
		{ID: "res-1", JobID: "job-1", Status: models.ResultStatusFound},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/match-jobs/job-1/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		JobID   string               `json:"jobId"`
		Results []models.MatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "job-1", body.JobID)
	require.Len(t, body.Results, 1)
	assert.Equal(t, models.ResultStatusFound, body.Results[0].Status)
}

func TestListResults_EmptyIsAnArray(t *testing.T) {
	f := newServerFixture(t)
	_ = f.jobs.Create(context.Background(), &models.MatcherJob{ID: "job-1", Status: models.JobStatusPending})

	rec := f.do(t, http.MethodGet, "/api/v1/match-jobs/job-1/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
