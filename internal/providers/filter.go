// internal/providers/filter.go
package providers

import (
	"strings"

	"product-matcher/internal/models"
)

// ApplyCriteriaFilter narrows candidates by the criteria every provider must
// honor: shipping-origin set, max delivery days, and price range. Candidates
// with unknown delivery estimates pass the delivery filter.
func ApplyCriteriaFilter(results []models.ProviderResult, criteria models.SearchCriteria) []models.ProviderResult {
	filtered := make([]models.ProviderResult, 0, len(results))

	for _, r := range results {
		if !originAllowed(r.ShippingOrigin, criteria.ShippingOrigin) {
			continue
		}
		if criteria.MaxDeliveryDays != nil && r.EstimatedDeliveryDays != nil &&
			*r.EstimatedDeliveryDays > *criteria.MaxDeliveryDays {
			continue
		}
		if criteria.PriceRange != nil {
			if criteria.PriceRange.Min != nil && r.Price < *criteria.PriceRange.Min {
				continue
			}
			if criteria.PriceRange.Max != nil && r.Price > *criteria.PriceRange.Max {
				continue
			}
		}
		filtered = append(filtered, r)
	}

	return filtered
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
