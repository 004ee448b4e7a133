// internal/processor/ports.go
package processor

import (
	"context"

	"product-matcher/internal/models"
)

// JobRepository is the persistence port for job records. The processor is the
// only writer once a job starts.
type JobRepository interface {
	Create(ctx context.Context, job *models.MatcherJob) error
	UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error
	Get(ctx context.Context, id string) (*models.MatcherJob, error)
}

// ResultRepository is the persistence port for per-row results. ListByJob
// iterates in creation order.
type ResultRepository interface {
	Create(ctx context.Context, result *models.MatchResult) error
	UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error
	Get(ctx context.Context, id string) (*models.MatchResult, error)
	ListByJob(ctx context.Context, jobID string) ([]*models.MatchResult, error)
}

// ProgressPublisher fans out per-row progress so readers need not poll the
// job record. Best effort; publish errors never fail a row.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, jobID string, progress models.Progress) error
}

// ResultIndexer pushes finalized rows into the results search index.
// Best effort.
type ResultIndexer interface {
	IndexResult(ctx context.Context, result *models.MatchResult) error
}

// Notifier reports a job reaching a terminal state.
type Notifier interface {
	JobFinished(ctx context.Context, job *models.MatcherJob) error
}
