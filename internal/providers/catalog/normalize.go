// internal/providers/catalog/normalize.go
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"product-matcher/internal/models"
	"product-matcher/internal/sku"
)

// normalizeItem converts one raw catalog payload into a ProviderResult. The
// upstream schema is inconsistent across product categories, so every field
// goes through a fallback chain instead of a direct lookup.
func (p *Provider) normalizeItem(item map[string]interface{}) models.ProviderResult {
	result := models.ProviderResult{
		ProviderID:   models.ProviderIDCatalog,
		ProviderName: p.Name(),
		ProductID:    firstString(item, "productId", "id", "pid"),
		Title:        firstString(item, "productNameEn", "productName", "title", "name"),
		Description:  firstString(item, "description", "productDescEn"),
		Currency:     strings.ToUpper(firstString(item, "currency", "currencyCode")),
		SupplierURL:  firstString(item, "productUrl", "url", "detailUrl"),
		RawData:      item,
	}

	if result.Currency == "" {
		result.Currency = "USD"
	}

	result.Price = resolvePrice(item)
	result.Images = extractImages(item)

	result.ShippingOrigin = strings.ToUpper(firstString(item, "sourceFrom", "originCountry", "countryCode"))
	if result.ShippingOrigin == "" {
		result.ShippingOrigin = p.config.DefaultOrigin
	}

	if days, ok := firstInt(item, "deliveryTime", "estimatedDeliveryDays", "deliveryDays"); ok {
		result.EstimatedDeliveryDays = &days
	}
	if lead, ok := firstInt(item, "leadTime", "leadTimeDays", "processingDays"); ok {
		result.LeadTimeDays = &lead
	}

	result.MOQ = resolveMOQ(item)
	result.SKU = sku.Extract("", nil, item)
	result.Specs = buildSpecs(item, result)

	return result
}

// resolvePrice walks the price fallback chain:
// sale price, then list price, then first variant price, then 0.
func resolvePrice(item map[string]interface{}) float64 {
	if v, ok := firstFloat(item, "sellPrice", "salePrice"); ok && v > 0 {
		return v
	}
	if v, ok := firstFloat(item, "listedPrice", "listPrice", "price"); ok && v > 0 {
		return v
	}
	for _, variant := range variantsOf(item) {
		if v, ok := firstFloat(variant, "variantSellPrice", "sellPrice", "price"); ok && v > 0 {
			return v
		}
	}
	return 0
}

// resolveMOQ reads the dedicated MOQ field, falling back to assuming a
// single-unit MOQ when any variant reports stock.
func resolveMOQ(item map[string]interface{}) *int {
	if v, ok := firstInt(item, "minOrderQuantity", "moq", "minOrder"); ok && v > 0 {
		return &v
	}
	for _, variant := range variantsOf(item) {
		if stock, ok := firstFloat(variant, "variantStock", "stock"); ok && stock > 0 {
			one := 1
			return &one
		}
	}
	return nil
}

// extractImages joins the primary image with the gallery, de-duplicated and
// in encounter order.
func extractImages(item map[string]interface{}) []string {
	var images []string
	seen := make(map[string]struct{})

	appendImage := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		images = append(images, url)
	}

	appendImage(firstString(item, "productImage", "image", "mainImage"))

	for _, key := range []string{"productImageSet", "images", "imageSet"} {
		rawList, ok := item[key].([]interface{})
		if !ok {
			continue
		}
		for _, raw := range rawList {
			if url, ok := raw.(string); ok {
				appendImage(url)
			}
		}
	}

	return images
}

// buildSpecs assembles the normalized specs map from whatever the payload has.
func buildSpecs(item map[string]interface{}, result models.ProviderResult) map[string]string {
	specs := make(map[string]string)

	if result.SKU != "" {
		specs["sku"] = result.SKU
	}
	if weight, ok := firstFloat(item, "productWeight", "weight"); ok && weight > 0 {
		specs["weight"] = strconv.FormatFloat(weight, 'f', -1, 64)
	}
	if dims := extractDimensions(item); dims != "" {
		specs["dimensions"] = dims
	}
	if category := firstString(item, "categoryName", "category"); category != "" {
		specs["category"] = category
	}
	if supplier := firstString(item, "supplierName", "supplier"); supplier != "" {
		specs["supplier"] = supplier
	}

	if len(specs) == 0 {
		return nil
	}
	return specs
}

func extractDimensions(item map[string]interface{}) string {
	length, lok := firstFloat(item, "packLength", "length")
	width, wok := firstFloat(item, "packWidth", "width")
	height, hok := firstFloat(item, "packHeight", "height")
	if !lok || !wok || !hok {
		return ""
	}
	return fmt.Sprintf("%gx%gx%g", length, width, height)
}

func variantsOf(item map[string]interface{}) []map[string]interface{} {
	rawList, ok := item["variants"].([]interface{})
	if !ok {
		return nil
	}
	var variants []map[string]interface{}
	for _, raw := range rawList {
		if m, ok := raw.(map[string]interface{}); ok {
			variants = append(variants, m)
		}
	}
	return variants
}

// --- defensive field getters ---

func firstString(item map[string]interface{}, fields ...string) string {
	for _, field := range fields {
		if raw, ok := item[field]; ok {
			switch v := raw.(type) {
			case string:
				if trimmed := strings.TrimSpace(v); trimmed != "" {
					return trimmed
				}
			case float64:
				if v == float64(int64(v)) {
					return strconv.FormatInt(int64(v), 10)
				}
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstFloat(item map[string]interface{}, fields ...string) (float64, bool) {
	for _, field := range fields {
		raw, ok := item[field]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func firstInt(item map[string]interface{}, fields ...string) (int, bool) {
	if v, ok := firstFloat(item, fields...); ok {
		return int(v), true
	}
	return 0, false
}
