// internal/ranking/scorer.go

// Package ranking combines match quality, cost, ETA, reliability and stock
// signal into the composite score used to pick the best candidate.
package ranking

import (
	"math"
	"strconv"
	"strings"

	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
)

const (
	weightMatch       = 0.40
	weightCost        = 0.20
	weightETA         = 0.15
	weightReliability = 0.15
	weightStock       = 0.10
)

// stockFields are the raw-payload variants scanned for an inventory count.
var stockFields = []string{
	"stock",
	"inventory",
	"stockCount",
	"availableQuantity",
	"quantityAvailable",
	"variantStock",
}

type Scorer struct {
	logger logger.Logger
}

func NewScorer(log logger.Logger) *Scorer {
	return &Scorer{logger: log.With(map[string]interface{}{"component": "ranking"})}
}

// CalculateRankingScore computes the composite 0..100 ranking score. The
// candidate's MatchScore, LandedCost and ReliabilityScore must already be set.
func (s *Scorer) CalculateRankingScore(candidate models.ProviderResult, query models.ProductQuery) int {
	score := weightMatch*(float64(candidate.MatchScore)/100) +
		weightCost*s.costScore(candidate, query) +
		weightETA*s.etaScore(candidate) +
		weightReliability*(float64(candidate.ReliabilityScore)/100) +
		weightStock*s.stockScore(candidate)

	final := int(math.Round(score * 100))
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}
	return final
}

// costScore compares the landed cost against the original price. Cheaper or
// equal is perfect; above it the score decays linearly, zeroing at 3x.
func (s *Scorer) costScore(candidate models.ProviderResult, query models.ProductQuery) float64 {
	if candidate.LandedCost == nil || query.Price <= 0 {
		return 0.5
	}
	ratio := candidate.LandedCost.TotalLandedCostUSD / query.Price
	if ratio <= 1 {
		return 1.0
	}
	return math.Max(0, 1-0.5*(ratio-1))
}

func (s *Scorer) etaScore(candidate models.ProviderResult) float64 {
	if candidate.LandedCost == nil || candidate.LandedCost.ETADays == nil {
		return 0.5
	}
	days := *candidate.LandedCost.ETADays
	switch {
	case days <= 10:
		return 1.0
	case days <= 20:
		return 0.8
	case days <= 30:
		return 0.6
	default:
		return 0.4
	}
}

// stockScore buckets whatever inventory figure the candidate exposes.
func (s *Scorer) stockScore(candidate models.ProviderResult) float64 {
	stock, ok := discoverStock(candidate)
	if !ok {
		return 0.5
	}
	switch {
	case stock > 100:
		return 1.0
	case stock > 50:
		return 0.8
	case stock > 10:
		return 0.6
	default:
		return 0.3
	}
}

// CalculateReliabilityScore grades a candidate's data quality and provider
// trustworthiness on 0..100.
func (s *Scorer) CalculateReliabilityScore(candidate models.ProviderResult) int {
	score := 50

	switch candidate.ProviderID {
	case models.ProviderIDCatalog:
		score += 20
	case models.ProviderIDWeb:
		score += 10
	}

	if candidate.SKU != "" {
		score += 10
	}
	if len(candidate.Specs) > 0 {
		score += 5
	}
	if len(candidate.Images) > 0 {
		score += 5
	}
	if len(candidate.Description) > 50 {
		score += 5
	}

	if candidate.LandedCost != nil {
		score += confidenceBonus(candidate.LandedCost.Confidence)
		score += confidenceBonus(candidate.LandedCost.ETAConfidence)
	}

	if score > 100 {
		score = 100
	}
	return score
}

func confidenceBonus(level models.ConfidenceLevel) int {
	switch level {
	case models.ConfidenceHigh:
		return 5
	case models.ConfidenceMedium:
		return 3
	case models.ConfidenceLow:
		return 1
	}
	return 0
}

func discoverStock(candidate models.ProviderResult) (int, bool) {
	for _, field := range stockFields {
		if v, ok := candidate.Specs[field]; ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	for _, field := range stockFields {
		raw, ok := candidate.RawData[field]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
