// internal/costing/estimator_test.go
package costing

import (
	"testing"

	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(t *testing.T) *Estimator {
	return NewEstimator(logger.NewTestLogger(t))
}

func intPtr(v int) *int { return &v }

func TestCalculateLandedCost_TotalIsAlwaysTheSum(t *testing.T) {
	estimator := newTestEstimator(t)

	candidates := []models.ProviderResult{
		{Price: 19, Currency: "USD", ShippingOrigin: "CN"},
		{Price: 4.2, Currency: "EUR", ShippingOrigin: "VN"},
		{Price: 120, Currency: "CNY", ShippingOrigin: "CN", RawData: map[string]interface{}{"shippingCost": 7.5}},
		{Price: 33, Currency: "XYZ", ShippingOrigin: "US"},
	}

	for _, candidate := range candidates {
		estimate := estimator.CalculateLandedCost(candidate, models.SearchCriteria{})
		require.NotNil(t, estimate)
		assert.InDelta(t,
			estimate.UnitPriceUSD+estimate.ShippingCostUSD+estimate.DutiesUSD,
			estimate.TotalLandedCostUSD, 1e-9)
		assert.Equal(t, "USD", estimate.Currency)
	}
}

func TestCalculateLandedCost_NonPositivePrice(t *testing.T) {
	estimator := newTestEstimator(t)

	assert.Nil(t, estimator.CalculateLandedCost(models.ProviderResult{Price: 0, Currency: "USD"}, models.SearchCriteria{}))
	assert.Nil(t, estimator.CalculateLandedCost(models.ProviderResult{Price: -5, Currency: "USD"}, models.SearchCriteria{}))
}

func TestCalculateLandedCost_KnownRoute(t *testing.T) {
	estimator := newTestEstimator(t)

	candidate := models.ProviderResult{
		Price:          19.00,
		Currency:       "USD",
		ShippingOrigin: "CN",
		RawData:        map[string]interface{}{"supplier": "acme"},
	}

	estimate := estimator.CalculateLandedCost(candidate, models.SearchCriteria{ShipTo: "US"})
	require.NotNil(t, estimate)

	// CN-US: shipping 12.00, duty 7.5% of unit price.
	assert.InDelta(t, 19.00, estimate.UnitPriceUSD, 1e-9)
	assert.InDelta(t, 12.00, estimate.ShippingCostUSD, 1e-9)
	assert.InDelta(t, 19.00*0.075, estimate.DutiesUSD, 1e-9)
	assert.Equal(t, models.ConfidenceMedium, estimate.Confidence)

	// Route midpoint of [12, 20] with an 8-day spread.
	require.NotNil(t, estimate.ETADays)
	assert.Equal(t, 16, *estimate.ETADays)
	assert.Equal(t, models.ConfidenceMedium, estimate.ETAConfidence)
}

func TestCalculateLandedCost_UnknownRouteDefaults(t *testing.T) {
	estimator := newTestEstimator(t)

	candidate := models.ProviderResult{
		Price:          10.00,
		Currency:       "USD",
		ShippingOrigin: "BR",
		RawData:        map[string]interface{}{"supplier": "acme"},
	}

	estimate := estimator.CalculateLandedCost(candidate, models.SearchCriteria{})
	require.NotNil(t, estimate)

	assert.InDelta(t, 10.00, estimate.ShippingCostUSD, 1e-9)
	assert.InDelta(t, 10.00*0.05, estimate.DutiesUSD, 1e-9)
	require.NotNil(t, estimate.ETADays)
	assert.Equal(t, 20, *estimate.ETADays)
	assert.Equal(t, models.ConfidenceLow, estimate.ETAConfidence)
}

func TestCalculateLandedCost_RawShippingCostWins(t *testing.T) {
	estimator := newTestEstimator(t)

	tests := []struct {
		name     string
		rawData  map[string]interface{}
		expected float64
	}{
		{"numeric field", map[string]interface{}{"shippingCost": 3.25}, 3.25},
		{"numeric string", map[string]interface{}{"shipping_fee": "4.10"}, 4.10},
		{"free shipping", map[string]interface{}{"shippingCost": 0}, 0},
		{"unparseable string falls back to route", map[string]interface{}{"shippingCost": "call us"}, 12.0},
		{"negative value falls back to route", map[string]interface{}{"shippingCost": -2.0}, 12.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := models.ProviderResult{
				Price:          10,
				Currency:       "USD",
				ShippingOrigin: "CN",
				RawData:        tt.rawData,
			}
			estimate := estimator.CalculateLandedCost(candidate, models.SearchCriteria{})
			require.NotNil(t, estimate)
			assert.InDelta(t, tt.expected, estimate.ShippingCostUSD, 1e-9)
		})
	}
}

func TestCalculateLandedCost_CurrencyConversion(t *testing.T) {
	estimator := newTestEstimator(t)

	candidate := models.ProviderResult{Price: 100, Currency: "CNY", ShippingOrigin: "CN"}
	estimate := estimator.CalculateLandedCost(candidate, models.SearchCriteria{})
	require.NotNil(t, estimate)
	assert.InDelta(t, 14.0, estimate.UnitPriceUSD, 1e-9)
}

func TestCalculateLandedCost_CandidateETAPreferred(t *testing.T) {
	estimator := newTestEstimator(t)

	candidate := models.ProviderResult{
		Price:                 10,
		Currency:              "USD",
		ShippingOrigin:        "CN",
		EstimatedDeliveryDays: intPtr(9),
	}

	estimate := estimator.CalculateLandedCost(candidate, models.SearchCriteria{})
	require.NotNil(t, estimate)
	require.NotNil(t, estimate.ETADays)
	assert.Equal(t, 9, *estimate.ETADays)
	assert.Equal(t, models.ConfidenceMedium, estimate.ETAConfidence)
}

func TestCalculateLandedCost_LowConfidenceWithoutProvenance(t *testing.T) {
	estimator := newTestEstimator(t)

	// No raw payload at all: the estimate stands but is marked low.
	estimate := estimator.CalculateLandedCost(models.ProviderResult{Price: 10, Currency: "USD", ShippingOrigin: "CN"}, models.SearchCriteria{})
	require.NotNil(t, estimate)
	assert.Equal(t, models.ConfidenceLow, estimate.Confidence)

	// No shipping origin either.
	estimate = estimator.CalculateLandedCost(models.ProviderResult{Price: 10, Currency: "USD", RawData: map[string]interface{}{"x": 1}}, models.SearchCriteria{})
	require.NotNil(t, estimate)
	assert.Equal(t, models.ConfidenceLow, estimate.Confidence)
}

func TestCalculateLandedCost_CriteriaOverrideRoute(t *testing.T) {
	estimator := newTestEstimator(t)

	// ShipFrom/ShipTo override whatever the candidate claims.
	candidate := models.ProviderResult{
		Price:          10,
		Currency:       "USD",
		ShippingOrigin: "CN",
		RawData:        map[string]interface{}{"supplier": "acme"},
	}
	criteria := models.SearchCriteria{ShipFrom: "us", ShipTo: "us"}

	estimate := estimator.CalculateLandedCost(candidate, criteria)
	require.NotNil(t, estimate)
	assert.InDelta(t, 5.0, estimate.ShippingCostUSD, 1e-9)
	assert.InDelta(t, 0.0, estimate.DutiesUSD, 1e-9)
}
