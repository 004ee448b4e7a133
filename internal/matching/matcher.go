// internal/matching/matcher.go

// Package matching scores how well a provider candidate matches the original
// spreadsheet product.
package matching

import (
	"math"
	"sort"
	"strings"

	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
)

// Sub-score weights. Components that cannot be scored for a given pair (no
// original price, no original specs) are excluded and the remaining weights
// renormalized, so missing data stays neutral instead of dragging the score.
const (
	weightTitle    = 0.40
	weightPrice    = 0.20
	weightSpecs    = 0.20
	weightCriteria = 0.20
)

const (
	minKeywordLen    = 2    // keywords must be longer than this
	titleFrontWindow = 0.30 // share of the candidate title counted as "early"
	specSimThreshold = 0.7
)

type Scorer struct {
	logger logger.Logger
}

func NewScorer(log logger.Logger) *Scorer {
	return &Scorer{logger: log.With(map[string]interface{}{"component": "matcher"})}
}

// CalculateMatchScore computes a 0..100 match score between the original row
// and one candidate. Pure: identical inputs always yield identical outputs.
func (s *Scorer) CalculateMatchScore(original models.ProductQuery, candidate models.ProviderResult, criteria models.SearchCriteria) int {
	type component struct {
		weight float64
		score  float64
	}

	components := []component{
		{weightTitle, s.titleScore(original.Name, candidate.Title)},
		{weightCriteria, s.criteriaScore(candidate, criteria)},
	}

	if original.Price > 0 && candidate.Price > 0 {
		components = append(components, component{weightPrice, s.priceScore(original.Price, candidate.Price)})
	}
	if len(original.Specs) > 0 {
		components = append(components, component{weightSpecs, s.specsScore(original.Specs, candidate.Specs)})
	}

	var weighted, totalWeight float64
	for _, c := range components {
		weighted += c.weight * c.score
		totalWeight += c.weight
	}

	score := int(math.Round(weighted / totalWeight * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// titleScore blends keyword coverage with a position bonus for original
// keywords appearing early in the candidate title.
func (s *Scorer) titleScore(original, candidate string) float64 {
	origNorm := normalizeText(original)
	candNorm := normalizeText(candidate)

	if origNorm == "" || candNorm == "" {
		return 0.0
	}
	if origNorm == candNorm {
		return 1.0
	}
	if strings.Contains(origNorm, candNorm) || strings.Contains(candNorm, origNorm) {
		return 0.95
	}

	keywords := extractKeywords(origNorm)
	if len(keywords) == 0 {
		return 0.0
	}

	frontCutoff := int(float64(len(candNorm)) * titleFrontWindow)
	covered, early := 0, 0
	for _, kw := range keywords {
		idx := strings.Index(candNorm, kw)
		if idx < 0 {
			continue
		}
		covered++
		if idx <= frontCutoff {
			early++
		}
	}

	coverage := float64(covered) / float64(len(keywords))
	position := float64(early) / float64(len(keywords))

	score := 0.7*coverage + 0.3*position
	if covered == len(keywords) {
		score *= 1.2
	}
	if coverage < 0.5 {
		score *= 0.5
	}
	return clamp01(score)
}

// priceScore rewards proximity; a 50% gap zeroes the score.
func (s *Scorer) priceScore(original, candidate float64) float64 {
	delta := math.Abs(candidate-original) / original
	return math.Max(0, 1-2*delta)
}

// specsScore averages per-key agreement between the original specs and the
// candidate's, with case/whitespace-insensitive key lookup.
func (s *Scorer) specsScore(original, candidate map[string]string) float64 {
	if len(candidate) == 0 {
		return 0.0
	}

	normalized := make(map[string]string, len(candidate))
	for k, v := range candidate {
		normalized[normalizeText(k)] = v
	}

	var total float64
	for key, origVal := range original {
		candVal, ok := normalized[normalizeText(key)]
		if !ok {
			continue
		}
		if normalizeText(origVal) == normalizeText(candVal) {
			total += 1.0
			continue
		}
		if sim := stringSimilarity(origVal, candVal); sim > specSimThreshold {
			total += sim
		}
	}
	return total / float64(len(original))
}

// criteriaScore averages fit over only the criteria actually supplied and
// defaults to perfect when none are.
func (s *Scorer) criteriaScore(candidate models.ProviderResult, criteria models.SearchCriteria) float64 {
	var scores []float64

	if len(criteria.ShippingOrigin) > 0 {
		score := 0.3
		for _, origin := range criteria.ShippingOrigin {
			if strings.EqualFold(origin, candidate.ShippingOrigin) {
				score = 1.0
				break
			}
		}
		scores = append(scores, score)
	}

	if criteria.MaxDeliveryDays != nil {
		switch {
		case candidate.EstimatedDeliveryDays == nil:
			scores = append(scores, 0.5)
		case *candidate.EstimatedDeliveryDays <= *criteria.MaxDeliveryDays:
			scores = append(scores, 1.0)
		default:
			scores = append(scores, 0.2)
		}
	}

	if criteria.PriceRange != nil {
		inRange := true
		if criteria.PriceRange.Min != nil && candidate.Price < *criteria.PriceRange.Min {
			inRange = false
		}
		if criteria.PriceRange.Max != nil && candidate.Price > *criteria.PriceRange.Max {
			inRange = false
		}
		if inRange {
			scores = append(scores, 1.0)
		} else {
			scores = append(scores, 0.3)
		}
	}

	if len(scores) == 0 {
		return 1.0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

// extractKeywords returns the original title words longer than minKeywordLen.
func extractKeywords(normalized string) []string {
	var keywords []string
	for _, w := range strings.Fields(normalized) {
		if len(w) > minKeywordLen {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// RankMatches sorts candidates descending by ranking score. The sort is
// stable: equal scores keep their original relative order.
func RankMatches(results []models.ProviderResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RankingScore > results[j].RankingScore
	})
}

// FindBestMatch returns a pointer to the highest ranking candidate, or nil
// for an empty slice. Ties resolve to the earliest candidate.
func FindBestMatch(results []models.ProviderResult) *models.ProviderResult {
	if len(results) == 0 {
		return nil
	}
	best := &results[0]
	for i := 1; i < len(results); i++ {
		if results[i].RankingScore > best.RankingScore {
			best = &results[i]
		}
	}
	return best
}
