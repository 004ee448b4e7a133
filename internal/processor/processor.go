// internal/processor/processor.go

// Package processor owns the matcher job lifecycle: it walks the row list
// strictly sequentially, consults providers one at a time with deliberate
// delays, feeds candidates through match scoring, landed-cost estimation and
// ranking, and persists a best match plus alternatives per row.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"product-matcher/internal/common/config"
	apperrors "product-matcher/internal/common/errors"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/common/metrics"
	"product-matcher/internal/costing"
	"product-matcher/internal/matching"
	"product-matcher/internal/models"
	"product-matcher/internal/providers"
	"product-matcher/internal/ranking"
)

const rateLimitUserMessage = "Search aborted: a provider rate limit was reached. Please retry the job later."

type Processor struct {
	jobs      JobRepository
	results   ResultRepository
	registry  *providers.Registry
	matcher   *matching.Scorer
	estimator *costing.Estimator
	ranker    *ranking.Scorer
	config    config.ProcessorConfig

	// Optional collaborators; nil disables them.
	progress ProgressPublisher
	indexer  ResultIndexer
	notifier Notifier

	logger logger.Logger
}

type Options struct {
	Progress ProgressPublisher
	Indexer  ResultIndexer
	Notifier Notifier
}

func New(
	jobs JobRepository,
	results ResultRepository,
	registry *providers.Registry,
	matcher *matching.Scorer,
	estimator *costing.Estimator,
	ranker *ranking.Scorer,
	cfg config.ProcessorConfig,
	opts Options,
	log logger.Logger,
) *Processor {
	return &Processor{
		jobs:      jobs,
		results:   results,
		registry:  registry,
		matcher:   matcher,
		estimator: estimator,
		ranker:    ranker,
		config:    cfg,
		progress:  opts.Progress,
		indexer:   opts.Indexer,
		notifier:  opts.Notifier,
		logger:    log.With(map[string]interface{}{"component": "processor"}),
	}
}

// Process runs one job start-to-finish on the calling goroutine. Rows and
// providers are handled strictly sequentially; the only concurrency allowed
// is multiple Process calls for different jobs.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return apperrors.NewRepositoryError("get job", err)
	}

	log := p.logger.With(map[string]interface{}{"jobId": job.ID})

	// Idempotent guard against double-dispatch.
	if job.Status != models.JobStatusPending {
		log.Warn("job is not pending, skipping", map[string]interface{}{"status": job.Status})
		return nil
	}

	provs := p.registry.Resolve(job.Providers)
	if len(provs) == 0 {
		stdErr := apperrors.NewNoProvidersError(job.Providers)
		job.Progress = models.Progress{Processed: 0, Total: len(job.SheetData)}
		p.failJob(ctx, job, stdErr.Message, string(stdErr.Code))
		return stdErr
	}

	total := len(job.SheetData)
	if err := p.jobs.UpdateFields(ctx, job.ID, map[string]interface{}{
		"status":             models.JobStatusProcessing,
		"progress_processed": 0,
		"progress_total":     total,
	}); err != nil {
		return apperrors.NewRepositoryError("start job", err)
	}

	log.Info("job started", map[string]interface{}{
		"rows":      total,
		"providers": job.Providers,
	})

	processed := 0
	for i, row := range job.SheetData {
		rowStart := time.Now()

		result, name := p.openRowResult(ctx, job, i, row)

		if name == "" {
			p.finishRow(ctx, job, result, &processed, total)
			if i < total-1 {
				p.sleep(ctx, p.config.RowDelay())
			}
			continue
		}

		query := BuildProductQuery(row)
		candidates, rlErr := p.searchProviders(ctx, provs, query, job.Criteria, log)

		if rlErr != nil {
			// Rate limit: finalize this row as errored, count it, then
			// abort the whole row loop and fail the job.
			p.updateResult(ctx, result, map[string]interface{}{
				"status": models.ResultStatusError,
				"error":  rateLimitUserMessage,
			})
			result.Status = models.ResultStatusError
			result.Error = rateLimitUserMessage
			p.finishRow(ctx, job, result, &processed, total)

			job.Progress = models.Progress{Processed: processed, Total: total}
			p.failJob(ctx, job, rateLimitUserMessage, string(apperrors.ErrCodeProviderRateLimited))
			return rlErr
		}

		ranked, scoreErr := p.scoreRow(query, candidates, job.Criteria)
		if scoreErr != nil {
			log.Error("row scoring failed", map[string]interface{}{
				"rowIndex": i,
				"error":    scoreErr.Error(),
			})
			p.updateResult(ctx, result, map[string]interface{}{
				"status": models.ResultStatusError,
				"error":  scoreErr.Error(),
			})
			result.Status = models.ResultStatusError
			result.Error = scoreErr.Error()
		} else {
			p.finalizeRow(ctx, result, ranked)
		}

		metrics.RowDuration.Observe(time.Since(rowStart).Seconds())
		p.finishRow(ctx, job, result, &processed, total)

		if i < total-1 {
			p.sleep(ctx, p.config.RowDelay())
		}
	}

	if err := p.jobs.UpdateFields(ctx, job.ID, map[string]interface{}{
		"status": models.JobStatusCompleted,
	}); err != nil {
		return apperrors.NewRepositoryError("complete job", err)
	}
	metrics.JobsCompleted.Inc()

	job.Status = models.JobStatusCompleted
	job.Progress = models.Progress{Processed: processed, Total: total}
	p.notifyFinished(ctx, job)

	log.Info("job completed", map[string]interface{}{"processed": processed})
	return nil
}

// openRowResult persists the row's result record immediately so progress is
// visible while providers are still being consulted. Rows without a usable
// name open directly in Error state.
func (p *Processor) openRowResult(ctx context.Context, job *models.MatcherJob, index int, row models.RowMap) (*models.MatchResult, string) {
	name := ExtractProductName(row)

	result := &models.MatchResult{
		ID:              uuid.NewString(),
		JobID:           job.ID,
		RowIndex:        index,
		OriginalProduct: row,
		Matches:         []models.ProviderResult{},
		Status:          models.ResultStatusSearching,
		CreatedAt:       time.Now().UTC(),
	}

	if name == "" {
		stdErr := apperrors.NewNameResolutionError(AvailableColumns(row))
		result.Status = models.ResultStatusError
		result.Error = fmt.Sprintf("%s (%s)", stdErr.Message, stdErr.Details)
	}

	if err := p.results.Create(ctx, result); err != nil {
		p.logger.Error("failed to persist row result", map[string]interface{}{
			"jobId":    job.ID,
			"rowIndex": index,
			"error":    err.Error(),
		})
	}

	return result, name
}

// searchProviders consults every provider sequentially with an inter-provider
// delay. A rate-limit error aborts immediately; any other provider error is
// logged and that provider's candidates are simply omitted.
func (p *Processor) searchProviders(ctx context.Context, provs []providers.SearchProvider, query models.ProductQuery, criteria models.SearchCriteria, log logger.Logger) ([]models.ProviderResult, error) {
	var candidates []models.ProviderResult

	for i, prov := range provs {
		if i > 0 {
			p.sleep(ctx, p.config.ProviderDelay())
		}

		start := time.Now()
		found, err := prov.Search(ctx, query, criteria)
		metrics.ProviderSearchDuration.WithLabelValues(prov.ID()).Observe(time.Since(start).Seconds())

		if err != nil {
			if apperrors.IsRateLimit(err) {
				metrics.ProviderSearchErrors.WithLabelValues(prov.ID(), "rate_limit").Inc()
				log.Error("provider rate limited, aborting job", map[string]interface{}{
					"provider": prov.ID(),
				})
				return nil, err
			}
			metrics.ProviderSearchErrors.WithLabelValues(prov.ID(), "transient").Inc()
			log.Warn("provider search failed, continuing", map[string]interface{}{
				"provider": prov.ID(),
				"error":    err.Error(),
			})
			continue
		}

		candidates = append(candidates, found...)
	}

	return candidates, nil
}

// scoreRow runs match scoring, landed-cost estimation, the optional shipping
// cost filter, reliability and ranking. A panic anywhere in scoring is
// contained to the row.
func (p *Processor) scoreRow(query models.ProductQuery, candidates []models.ProviderResult, criteria models.SearchCriteria) (ranked []models.ProviderResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewScoringError(fmt.Errorf("%v", r))
		}
	}()

	scored := make([]models.ProviderResult, 0, len(candidates))
	for _, candidate := range candidates {
		candidate.MatchScore = p.matcher.CalculateMatchScore(query, candidate, criteria)
		candidate.LandedCost = p.estimator.CalculateLandedCost(candidate, criteria)

		if criteria.MaxShippingCost != nil && candidate.LandedCost != nil &&
			candidate.LandedCost.ShippingCostUSD > *criteria.MaxShippingCost {
			continue
		}

		candidate.ReliabilityScore = p.ranker.CalculateReliabilityScore(candidate)
		candidate.RankingScore = p.ranker.CalculateRankingScore(candidate, query)
		scored = append(scored, candidate)
	}

	matching.RankMatches(scored)
	return scored, nil
}

// finalizeRow persists the scored outcome: Found with the best candidate's
// summary fields, or NotFound when nothing survived filtering.
func (p *Processor) finalizeRow(ctx context.Context, result *models.MatchResult, ranked []models.ProviderResult) {
	result.Matches = ranked

	if len(ranked) == 0 {
		result.Status = models.ResultStatusNotFound
		p.updateResult(ctx, result, map[string]interface{}{
			"status":  models.ResultStatusNotFound,
			"matches": ranked,
		})
		return
	}

	best := matching.FindBestMatch(ranked)
	result.Status = models.ResultStatusFound
	result.BestMatchID = best.ProductID
	result.SKU = best.SKU
	result.RankingScore = intPtr(best.RankingScore)
	result.ReliabilityScore = intPtr(best.ReliabilityScore)
	if best.LandedCost != nil {
		result.LandedCostValue = &best.LandedCost.TotalLandedCostUSD
		result.LandedCostCurrency = best.LandedCost.Currency
		result.ETADays = best.LandedCost.ETADays
	}

	p.updateResult(ctx, result, map[string]interface{}{
		"status":               models.ResultStatusFound,
		"matches":              ranked,
		"best_match_id":        result.BestMatchID,
		"sku":                  result.SKU,
		"landed_cost_value":    result.LandedCostValue,
		"landed_cost_currency": result.LandedCostCurrency,
		"eta_days":             result.ETADays,
		"reliability_score":    result.ReliabilityScore,
		"ranking_score":        result.RankingScore,
	})
}

// finishRow counts a terminal row, persists and publishes progress, and
// pushes the row into the search index.
func (p *Processor) finishRow(ctx context.Context, job *models.MatcherJob, result *models.MatchResult, processed *int, total int) {
	metrics.RowsProcessed.WithLabelValues(string(result.Status)).Inc()

	if p.indexer != nil {
		if err := p.indexer.IndexResult(ctx, result); err != nil {
			p.logger.Warn("failed to index result", map[string]interface{}{
				"resultId": result.ID,
				"error":    err.Error(),
			})
		}
	}

	*processed++
	if err := p.jobs.UpdateFields(ctx, job.ID, map[string]interface{}{
		"progress_processed": *processed,
	}); err != nil {
		p.logger.Error("failed to update job progress", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}

	if p.progress != nil {
		progress := models.Progress{Processed: *processed, Total: total}
		if err := p.progress.PublishProgress(ctx, job.ID, progress); err != nil {
			p.logger.Debug("failed to publish progress", map[string]interface{}{
				"jobId": job.ID,
				"error": err.Error(),
			})
		}
	}
}

func (p *Processor) updateResult(ctx context.Context, result *models.MatchResult, patch map[string]interface{}) {
	if err := p.results.UpdateFields(ctx, result.ID, patch); err != nil {
		p.logger.Error("failed to update row result", map[string]interface{}{
			"resultId": result.ID,
			"error":    err.Error(),
		})
	}
}

func (p *Processor) failJob(ctx context.Context, job *models.MatcherJob, message, errorCode string) {
	if err := p.jobs.UpdateFields(ctx, job.ID, map[string]interface{}{
		"status": models.JobStatusFailed,
		"error":  message,
	}); err != nil {
		p.logger.Error("failed to mark job failed", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}
	metrics.JobsFailed.WithLabelValues(errorCode).Inc()

	job.Status = models.JobStatusFailed
	job.Error = message
	p.notifyFinished(ctx, job)
}

func (p *Processor) notifyFinished(ctx context.Context, job *models.MatcherJob) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.JobFinished(ctx, job); err != nil {
		p.logger.Warn("failed to send job notification", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}
}

// sleep waits the given duration or until the context is done. The fixed
// delays between rows, providers and pages exist to respect strict upstream
// rate limits; do not parallelize around them.
func (p *Processor) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func intPtr(v int) *int {
	return &v
}
