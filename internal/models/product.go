// internal/models/product.go
package models

// ProductQuery is built once per spreadsheet row and never mutated afterwards.
type ProductQuery struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       float64           `json:"price,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
}

// PriceRange bounds candidate unit prices. Either side may be absent.
type PriceRange struct {
	Min *float64 `json:"min,omitempty" validate:"omitempty,gte=0"`
	Max *float64 `json:"max,omitempty" validate:"omitempty,gte=0"`
}

// SearchCriteria is the filter/preference bundle supplied once per job and
// shared read-only across all rows and providers.
type SearchCriteria struct {
	ShippingOrigin  []string    `json:"shippingOrigin,omitempty" validate:"omitempty,dive,len=2"`
	MaxDeliveryDays *int        `json:"maxDeliveryDays,omitempty" validate:"omitempty,gt=0"`
	PriceRange      *PriceRange `json:"priceRange,omitempty"`
	Currency        string      `json:"currency,omitempty" validate:"omitempty,len=3"`
	MaxResults      *int        `json:"maxResults,omitempty" validate:"omitempty,min=1,max=200"`
	MinMoq          *int        `json:"minMoq,omitempty" validate:"omitempty,gte=0"`
	MaxMoq          *int        `json:"maxMoq,omitempty" validate:"omitempty,gte=0"`
	MaxLeadTimeDays *int        `json:"maxLeadTimeDays,omitempty" validate:"omitempty,gt=0"`
	ShipFrom        string      `json:"shipFrom,omitempty" validate:"omitempty,len=2"`
	ShipTo          string      `json:"shipTo,omitempty" validate:"omitempty,len=2"`
	MaxShippingCost *float64    `json:"maxShippingCost,omitempty" validate:"omitempty,gte=0"`
}

// ConfidenceLevel grades how much we trust an estimate.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// LandedCostEstimate is the fully landed cost of one unit at the destination.
// TotalLandedCostUSD is always the sum of the three parts; it is computed at
// construction and never mutated independently.
type LandedCostEstimate struct {
	UnitPriceUSD       float64         `json:"unitPriceUsd"`
	ShippingCostUSD    float64         `json:"shippingCostUsd"`
	DutiesUSD          float64         `json:"dutiesUsd"`
	TotalLandedCostUSD float64         `json:"totalLandedCostUsd"`
	Currency           string          `json:"currency"`
	Confidence         ConfidenceLevel `json:"confidence"`
	ETADays            *int            `json:"etaDays,omitempty"`
	ETAConfidence      ConfidenceLevel `json:"etaConfidence"`
}

// ProviderResult is one normalized candidate listing returned by a provider.
// The scoring stages fill in MatchScore, LandedCost, ReliabilityScore and
// RankingScore downstream.
type ProviderResult struct {
	ProviderID            string                 `json:"providerId"`
	ProviderName          string                 `json:"providerName"`
	ProductID             string                 `json:"productId"`
	Title                 string                 `json:"title"`
	Description           string                 `json:"description,omitempty"`
	Price                 float64                `json:"price"`
	Currency              string                 `json:"currency"`
	Images                []string               `json:"images"`
	ShippingOrigin        string                 `json:"shippingOrigin"`
	EstimatedDeliveryDays *int                   `json:"estimatedDeliveryDays,omitempty"`
	SupplierURL           string                 `json:"supplierUrl"`
	Specs                 map[string]string      `json:"specs,omitempty"`
	SKU                   string                 `json:"sku,omitempty"`
	MOQ                   *int                   `json:"moq,omitempty"`
	LeadTimeDays          *int                   `json:"leadTimeDays,omitempty"`
	RawData               map[string]interface{} `json:"rawData,omitempty"`

	MatchScore       int                 `json:"matchScore"`
	LandedCost       *LandedCostEstimate `json:"landedCost,omitempty"`
	ReliabilityScore int                 `json:"reliabilityScore"`
	RankingScore     int                 `json:"rankingScore"`
}
