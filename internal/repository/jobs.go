// internal/repository/jobs.go

// Package repository implements the processor's persistence ports on
// PostgreSQL. Updates go through whitelisted field patches; the job processor
// is the only caller that writes.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"product-matcher/internal/models"
)

// jobColumns whitelists the patchable fields of a job record.
var jobColumns = map[string]string{
	"status":             "status",
	"error":              "error",
	"progress_processed": "progress_processed",
	"progress_total":     "progress_total",
}

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *models.MatcherJob) error {
	sheetData, err := json.Marshal(job.SheetData)
	if err != nil {
		return fmt.Errorf("marshal sheet data: %w", err)
	}
	providers, err := json.Marshal(job.Providers)
	if err != nil {
		return fmt.Errorf("marshal providers: %w", err)
	}
	criteria, err := json.Marshal(job.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO matcher_jobs
			(id, sheet_data, providers, criteria, status, progress_processed, progress_total, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, sheetData, providers, criteria, job.Status,
		job.Progress.Processed, job.Progress.Total, job.Error,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateFields applies a partial patch. Unknown fields are rejected so a
// typo cannot silently write the wrong column.
func (r *JobRepository) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	if len(patch) == 0 {
		return nil
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		if _, ok := jobColumns[k]; !ok {
			return fmt.Errorf("unknown job field %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := ""
	args := make([]interface{}, 0, len(keys)+1)
	for i, k := range keys {
		if i > 0 {
			setClauses += ", "
		}
		setClauses += fmt.Sprintf("%s = $%d", jobColumns[k], i+1)
		args = append(args, patch[k])
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE matcher_jobs SET %s, updated_at = NOW() WHERE id = $%d",
		setClauses, len(args),
	)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.MatcherJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sheet_data, providers, criteria, status, progress_processed, progress_total, error, created_at, updated_at
		FROM matcher_jobs WHERE id = $1`, id)

	var (
		job       models.MatcherJob
		sheetData []byte
		providers []byte
		criteria  []byte
		jobErr    sql.NullString
	)
	err := row.Scan(
		&job.ID, &sheetData, &providers, &criteria, &job.Status,
		&job.Progress.Processed, &job.Progress.Total, &jobErr,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	if err := json.Unmarshal(sheetData, &job.SheetData); err != nil {
		return nil, fmt.Errorf("unmarshal sheet data: %w", err)
	}
	if err := json.Unmarshal(providers, &job.Providers); err != nil {
		return nil, fmt.Errorf("unmarshal providers: %w", err)
	}
	if err := json.Unmarshal(criteria, &job.Criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	job.Error = jobErr.String

	return &job, nil
}
