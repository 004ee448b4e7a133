// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"product-matcher/internal/common/database"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Indexer writes finalized row results into the results index so they can be
// queried across jobs. Indexing is best effort; callers log and move on when
// it fails.
type Indexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:     es,
		index:  index,
		logger: log,
	}
}

// indexedResult is the flattened document shape. Raw provider payloads stay in
// PostgreSQL; the index only carries what result searches filter and sort on.
type indexedResult struct {
	ID               string              `json:"id"`
	JobID            string              `json:"jobId"`
	RowIndex         int                 `json:"rowIndex"`
	Status           models.ResultStatus `json:"status"`
	BestMatchID      string              `json:"bestMatchId,omitempty"`
	BestMatchTitle   string              `json:"bestMatchTitle,omitempty"`
	ProviderID       string              `json:"providerId,omitempty"`
	SKU              string              `json:"sku,omitempty"`
	LandedCostValue  *float64            `json:"landedCostValue,omitempty"`
	ETADays          *int                `json:"etaDays,omitempty"`
	ReliabilityScore *int                `json:"reliabilityScore,omitempty"`
	RankingScore     *int                `json:"rankingScore,omitempty"`
	MatchCount       int                 `json:"matchCount"`
}

func (i *Indexer) IndexResult(ctx context.Context, result *models.MatchResult) error {
	doc := indexedResult{
		ID:               result.ID,
		JobID:            result.JobID,
		RowIndex:         result.RowIndex,
		Status:           result.Status,
		BestMatchID:      result.BestMatchID,
		SKU:              result.SKU,
		LandedCostValue:  result.LandedCostValue,
		ETADays:          result.ETADays,
		ReliabilityScore: result.ReliabilityScore,
		RankingScore:     result.RankingScore,
		MatchCount:       len(result.Matches),
	}
	for _, m := range result.Matches {
		if m.ProductID == result.BestMatchID {
			doc.BestMatchTitle = m.Title
			doc.ProviderID = m.ProviderID
			break
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal result document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: result.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.es.GetClient())
	if err != nil {
		return fmt.Errorf("index result %s: %w", result.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index result %s: %s", result.ID, res.Status())
	}

	i.logger.Debug("Indexed match result", map[string]interface{}{
		"resultId": result.ID,
		"jobId":    result.JobID,
		"index":    i.index,
	})
	return nil
}
