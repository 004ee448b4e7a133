// internal/ranking/scorer_test.go
package ranking

import (
	"testing"

	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"

	"github.com/stretchr/testify/assert"
)

func newTestScorer(t *testing.T) *Scorer {
	return NewScorer(logger.NewTestLogger(t))
}

func intPtr(v int) *int { return &v }

func estimateWith(total float64, etaDays int) *models.LandedCostEstimate {
	return &models.LandedCostEstimate{
		TotalLandedCostUSD: total,
		Currency:           "USD",
		Confidence:         models.ConfidenceMedium,
		ETADays:            intPtr(etaDays),
		ETAConfidence:      models.ConfidenceMedium,
	}
}

func TestCalculateRankingScore_Bounds(t *testing.T) {
	scorer := newTestScorer(t)

	candidates := []models.ProviderResult{
		{},
		{MatchScore: 100, ReliabilityScore: 100, LandedCost: estimateWith(1, 3)},
		{MatchScore: 0, ReliabilityScore: 0, LandedCost: estimateWith(900, 90)},
	}

	for _, candidate := range candidates {
		score := scorer.CalculateRankingScore(candidate, models.ProductQuery{Price: 10})
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestCalculateRankingScore_PrefersCheaperAndFaster(t *testing.T) {
	scorer := newTestScorer(t)
	query := models.ProductQuery{Name: "Widget", Price: 20}

	cheapFast := models.ProviderResult{
		MatchScore:       85,
		ReliabilityScore: 80,
		LandedCost:       estimateWith(18, 8),
	}
	expensiveSlow := models.ProviderResult{
		MatchScore:       85,
		ReliabilityScore: 80,
		LandedCost:       estimateWith(45, 35),
	}

	assert.Greater(t,
		scorer.CalculateRankingScore(cheapFast, query),
		scorer.CalculateRankingScore(expensiveSlow, query))
}

func TestCostScore(t *testing.T) {
	scorer := newTestScorer(t)
	query := models.ProductQuery{Price: 10}

	t.Run("missing landed cost is neutral", func(t *testing.T) {
		assert.Equal(t, 0.5, scorer.costScore(models.ProviderResult{}, query))
	})

	t.Run("no original price is neutral", func(t *testing.T) {
		candidate := models.ProviderResult{LandedCost: estimateWith(12, 10)}
		assert.Equal(t, 0.5, scorer.costScore(candidate, models.ProductQuery{}))
	})

	t.Run("cheaper than original is perfect", func(t *testing.T) {
		candidate := models.ProviderResult{LandedCost: estimateWith(8, 10)}
		assert.Equal(t, 1.0, scorer.costScore(candidate, query))
	})

	t.Run("decays linearly above the original", func(t *testing.T) {
		candidate := models.ProviderResult{LandedCost: estimateWith(20, 10)}
		assert.InDelta(t, 0.5, scorer.costScore(candidate, query), 1e-9)

		candidate = models.ProviderResult{LandedCost: estimateWith(30, 10)}
		assert.InDelta(t, 0.0, scorer.costScore(candidate, query), 1e-9)
	})
}

func TestEtaScore(t *testing.T) {
	scorer := newTestScorer(t)

	tests := []struct {
		days     int
		expected float64
	}{
		{5, 1.0},
		{10, 1.0},
		{15, 0.8},
		{25, 0.6},
		{45, 0.4},
	}

	for _, tt := range tests {
		candidate := models.ProviderResult{LandedCost: estimateWith(10, tt.days)}
		assert.Equal(t, tt.expected, scorer.etaScore(candidate), "days=%d", tt.days)
	}

	assert.Equal(t, 0.5, scorer.etaScore(models.ProviderResult{}))
}

func TestStockScore(t *testing.T) {
	scorer := newTestScorer(t)

	tests := []struct {
		name     string
		candidate models.ProviderResult
		expected float64
	}{
		{"no stock signal is neutral", models.ProviderResult{}, 0.5},
		{"deep stock", models.ProviderResult{RawData: map[string]interface{}{"stock": float64(500)}}, 1.0},
		{"healthy stock", models.ProviderResult{RawData: map[string]interface{}{"inventory": 75}}, 0.8},
		{"thin stock", models.ProviderResult{RawData: map[string]interface{}{"stockCount": "25"}}, 0.6},
		{"nearly out", models.ProviderResult{RawData: map[string]interface{}{"stock": 2}}, 0.3},
		{"specs beat raw data", models.ProviderResult{
			Specs:   map[string]string{"stock": "200"},
			RawData: map[string]interface{}{"stock": 1},
		}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.stockScore(tt.candidate))
		})
	}
}

func TestCalculateReliabilityScore(t *testing.T) {
	scorer := newTestScorer(t)

	t.Run("bare candidate keeps the base", func(t *testing.T) {
		assert.Equal(t, 50, scorer.CalculateReliabilityScore(models.ProviderResult{}))
	})

	t.Run("catalog beats web for the same data", func(t *testing.T) {
		catalog := models.ProviderResult{ProviderID: models.ProviderIDCatalog, SKU: "A-1"}
		web := models.ProviderResult{ProviderID: models.ProviderIDWeb, SKU: "A-1"}
		assert.Greater(t,
			scorer.CalculateReliabilityScore(catalog),
			scorer.CalculateReliabilityScore(web))
	})

	t.Run("fully populated catalog candidate", func(t *testing.T) {
		candidate := models.ProviderResult{
			ProviderID:  models.ProviderIDCatalog,
			SKU:         "A-1",
			Specs:       map[string]string{"color": "black"},
			Images:      []string{"https://img.example.com/1.jpg"},
			Description: "A long enough description that clearly exceeds the fifty character bar.",
			LandedCost: &models.LandedCostEstimate{
				Confidence:    models.ConfidenceHigh,
				ETAConfidence: models.ConfidenceHigh,
			},
		}
		// 50 + 20 + 10 + 5 + 5 + 5 + 5 + 5 = 105, capped.
		assert.Equal(t, 100, scorer.CalculateReliabilityScore(candidate))
	})

	t.Run("confidence bonuses applied", func(t *testing.T) {
		candidate := models.ProviderResult{
			LandedCost: &models.LandedCostEstimate{
				Confidence:    models.ConfidenceMedium,
				ETAConfidence: models.ConfidenceLow,
			},
		}
		assert.Equal(t, 54, scorer.CalculateReliabilityScore(candidate))
	})
}
