// internal/repository/results.go
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

// resultColumns whitelists the patchable fields of a row result, and marks
// which ones are persisted as JSON.
var resultColumns = map[string]struct {
	column string
	isJSON bool
}{
	"status":               {"status", false},
	"error":                {"error", false},
	"matches":              {"matches", true},
	"best_match_id":        {"best_match_id", false},
	"sku":                  {"sku", false},
	"landed_cost_value":    {"landed_cost_value", false},
	"landed_cost_currency": {"landed_cost_currency", false},
	"eta_days":             {"eta_days", false},
	"reliability_score":    {"reliability_score", false},
	"ranking_score":        {"ranking_score", false},
}

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Create(ctx context.Context, result *models.MatchResult) error {
	original, err := json.Marshal(result.OriginalProduct)
	if err != nil {
		return fmt.Errorf("marshal original product: %w", err)
	}
	matches, err := json.Marshal(result.Matches)
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}

	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO match_results
			(id, job_id, row_index, original_product, matches, best_match_id, status, error,
			 sku, landed_cost_value, landed_cost_currency, eta_days, reliability_score, ranking_score,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		result.ID, result.JobID, result.RowIndex, original, matches,
		result.BestMatchID, result.Status, result.Error,
		result.SKU, result.LandedCostValue, result.LandedCostCurrency,
		result.ETADays, result.ReliabilityScore, result.RankingScore,
		result.CreatedAt, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	if len(patch) == 0 {
		return nil
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		if _, ok := resultColumns[k]; !ok {
			return fmt.Errorf("unknown result field %q", k)
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
		col := resultColumns[k]
		setClauses += fmt.Sprintf("%s = $%d", col.column, i+1)

		value := patch[k]
		if col.isJSON {
			data, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", k, err)
			}
			value = data
		}
		args = append(args, value)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE match_results SET %s, updated_at = NOW() WHERE id = $%d",
		setClauses, len(args),
	)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("result %s not found", id)
	}
	return nil
}

func (r *ResultRepository) Get(ctx context.Context, id string) (*models.MatchResult, error) {
	row := r.db.QueryRowContext(ctx, selectResults+" WHERE id = $1", id)
	return scanResult(row)
}

// ListByJob returns the job's results in creation order.
func (r *ResultRepository) ListByJob(ctx context.Context, jobID string) ([]*models.MatchResult, error) {
	rows, err := r.db.QueryContext(ctx, selectResults+" WHERE job_id = $1 ORDER BY row_index ASC", jobID)
	if err != nil {
		return nil, fmt.Errorf("list results for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var results []*models.MatchResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

const selectResults = `
	SELECT id, job_id, row_index, original_product, matches, best_match_id, status, error,
	       sku, landed_cost_value, landed_cost_currency, eta_days, reliability_score, ranking_score,
	       created_at, updated_at
	FROM match_results`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*models.MatchResult, error) {
	var (
		result      models.MatchResult
		original    []byte
		matches     []byte
		bestMatchID sql.NullString
		resultErr   sql.NullString
		skuVal      sql.NullString
		costValue   sql.NullFloat64
		costCcy     sql.NullString
		etaDays     sql.NullInt64
		reliability sql.NullInt64
		rankScore   sql.NullInt64
	)

	err := row.Scan(
		&result.ID, &result.JobID, &result.RowIndex, &original, &matches,
		&bestMatchID, &result.Status, &resultErr,
		&skuVal, &costValue, &costCcy, &etaDays, &reliability, &rankScore,
		&result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}

	if err := json.Unmarshal(original, &result.OriginalProduct); err != nil {
		return nil, fmt.Errorf("unmarshal original product: %w", err)
	}
	if err := json.Unmarshal(matches, &result.Matches); err != nil {
		return nil, fmt.Errorf("unmarshal matches: %w", err)
	}

	result.BestMatchID = bestMatchID.String
	result.Error = resultErr.String
	result.SKU = skuVal.String
	if costValue.Valid {
		result.LandedCostValue = &costValue.Float64
	}
	result.LandedCostCurrency = costCcy.String
	if etaDays.Valid {
		v := int(etaDays.Int64)
		result.ETADays = &v
	}
	if reliability.Valid {
		v := int(reliability.Int64)
		result.ReliabilityScore = &v
	}
	if rankScore.Valid {
		v := int(rankScore.Int64)
		result.RankingScore = &v
	}

	return &result, nil
}
