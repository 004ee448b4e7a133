// internal/costing/estimator.go

// Package costing estimates the fully landed cost (unit price + shipping +
// duties, in USD) and delivery time of a candidate listing.
package costing

import (
	"fmt"
	"strconv"
	"strings"

	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
)

type Estimator struct {
	logger logger.Logger
}

func NewEstimator(log logger.Logger) *Estimator {
	return &Estimator{logger: log.With(map[string]interface{}{"component": "costing"})}
}

// CalculateLandedCost estimates the landed cost for one candidate under the
// job criteria. Returns nil when the converted unit price is not positive.
func (e *Estimator) CalculateLandedCost(candidate models.ProviderResult, criteria models.SearchCriteria) *models.LandedCostEstimate {
	origin := resolveOrigin(candidate, criteria)
	destination := resolveDestination(criteria)
	route := routeKey(origin, destination)

	unitPriceUSD := toUSD(candidate.Price, candidate.Currency)
	if unitPriceUSD <= 0 {
		return nil
	}

	shippingUSD := e.resolveShippingCost(candidate, route)
	dutiesUSD := unitPriceUSD * lookupDutyRate(route) / 100

	etaDays, etaConfidence := e.resolveETA(candidate, route)

	confidence := models.ConfidenceMedium
	if len(candidate.RawData) == 0 || candidate.ShippingOrigin == "" {
		confidence = models.ConfidenceLow
	}

	return &models.LandedCostEstimate{
		UnitPriceUSD:       unitPriceUSD,
		ShippingCostUSD:    shippingUSD,
		DutiesUSD:          dutiesUSD,
		TotalLandedCostUSD: unitPriceUSD + shippingUSD + dutiesUSD,
		Currency:           "USD",
		Confidence:         confidence,
		ETADays:            &etaDays,
		ETAConfidence:      etaConfidence,
	}
}

// resolveShippingCost scans the raw payload for known shipping-cost fields
// before falling back to the route default.
func (e *Estimator) resolveShippingCost(candidate models.ProviderResult, route string) float64 {
	for _, field := range shippingCostFields {
		raw, ok := candidate.RawData[field]
		if !ok {
			continue
		}
		if v, ok := coerceFloat(raw); ok && v >= 0 {
			return v
		}
	}

	if cost, ok := defaultShippingUSD[route]; ok {
		return cost
	}
	return defaultShippingCostUSD
}

// resolveETA prefers the candidate's own delivery estimate; otherwise derives
// the route midpoint with confidence graded by how wide the route range is.
func (e *Estimator) resolveETA(candidate models.ProviderResult, route string) (int, models.ConfidenceLevel) {
	if candidate.EstimatedDeliveryDays != nil {
		return *candidate.EstimatedDeliveryDays, models.ConfidenceMedium
	}

	window, ok := transitDays[route]
	if !ok {
		return defaultTransitDays, models.ConfidenceLow
	}

	eta := (window[0] + window[1]) / 2
	spread := window[1] - window[0]
	switch {
	case spread <= 7:
		return eta, models.ConfidenceHigh
	case spread <= 15:
		return eta, models.ConfidenceMedium
	default:
		return eta, models.ConfidenceLow
	}
}

func resolveOrigin(candidate models.ProviderResult, criteria models.SearchCriteria) string {
	if criteria.ShipFrom != "" {
		return strings.ToUpper(criteria.ShipFrom)
	}
	if candidate.ShippingOrigin != "" {
		return strings.ToUpper(candidate.ShippingOrigin)
	}
	return defaultOrigin
}

func resolveDestination(criteria models.SearchCriteria) string {
	if criteria.ShipTo != "" {
		return strings.ToUpper(criteria.ShipTo)
	}
	return defaultDestination
}

func routeKey(origin, destination string) string {
	return fmt.Sprintf("%s-%s", origin, destination)
}

func toUSD(price float64, currency string) float64 {
	rate, ok := currencyToUSD[strings.ToUpper(currency)]
	if !ok {
		rate = 1.0
	}
	return price * rate
}

func lookupDutyRate(route string) float64 {
	if rate, ok := dutyRatePct[route]; ok {
		return rate
	}
	return defaultDutyRatePct
}

// coerceFloat accepts numeric and numeric-string raw values.
func coerceFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
