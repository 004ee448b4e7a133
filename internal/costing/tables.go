// internal/costing/tables.go
package costing

// Static lookup tables keyed by "{origin}-{destination}" route. Missing keys
// fall back to explicit defaults, never to an error. Rates are fixed by
// design: live FX lookups are a non-goal.

const (
	defaultOrigin      = "CN"
	defaultDestination = "US"

	defaultShippingCostUSD = 10.0
	defaultDutyRatePct     = 5.0
	defaultTransitDays     = 20
)

// currencyToUSD converts a unit price into USD. Unknown currencies pass
// through at 1.0.
var currencyToUSD = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"GBP": 1.27,
	"CAD": 0.74,
	"AUD": 0.66,
	"CNY": 0.14,
}

// defaultShippingUSD is the per-unit shipping cost when the candidate's raw
// payload carries no usable shipping figure.
var defaultShippingUSD = map[string]float64{
	"CN-US": 12.0,
	"CN-CA": 15.0,
	"CN-GB": 14.0,
	"CN-DE": 13.0,
	"CN-AU": 16.0,
	"VN-US": 14.0,
	"IN-US": 15.0,
	"US-US": 5.0,
	"US-CA": 8.0,
}

// dutyRatePct is the import duty applied to the USD unit price.
var dutyRatePct = map[string]float64{
	"CN-US": 7.5,
	"CN-CA": 6.5,
	"CN-GB": 4.0,
	"CN-DE": 4.2,
	"CN-AU": 5.0,
	"VN-US": 6.0,
	"IN-US": 6.8,
	"US-US": 0.0,
	"US-CA": 3.0,
}

// transitDays holds [min, max] door-to-door days per route.
var transitDays = map[string][2]int{
	"CN-US": {12, 20},
	"CN-CA": {14, 24},
	"CN-GB": {10, 16},
	"CN-DE": {10, 18},
	"CN-AU": {8, 14},
	"VN-US": {14, 22},
	"IN-US": {16, 28},
	"US-US": {3, 7},
	"US-CA": {5, 10},
}

// shippingCostFields are the raw-payload field name variants scanned for an
// explicit shipping cost, in priority order.
var shippingCostFields = []string{
	"shippingCost",
	"shipping_cost",
	"shippingFee",
	"shipping_fee",
	"freightCost",
	"logisticPrice",
	"shipping",
}
