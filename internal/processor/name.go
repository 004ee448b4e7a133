// internal/processor/name.go
package processor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"product-matcher/internal/models"
)

// NameColumnOrder is the canonical list of name-like column headers, matched
// case-insensitively in order. Behavior depends on this ordering; tests pin it.
var NameColumnOrder = []string{
	"product name",
	"productname",
	"product_name",
	"name",
	"item name",
	"item_name",
	"title",
	"product title",
	"product",
	"item",
}

var descriptionColumns = []string{
	"description",
	"product description",
	"product_description",
	"details",
}

var priceColumns = []string{
	"price",
	"unit price",
	"unit_price",
	"unit cost",
	"unit_cost",
	"cost",
}

// identifierLike matches column headers that name ids/codes rather than
// products: "id", "sku", "item id", "product_code" etc. Word-bounded so
// "width" does not match "id".
var identifierLike = regexp.MustCompile(`(^|[^a-z])(id|sku|code|ean|upc|gtin|barcode)([^a-z]|$)`)

var priceLike = regexp.MustCompile(`price|cost|amount|total|qty|quantity|moq`)

// ExtractProductName resolves the product name from a row: canonical headers
// first, then the first textual column that does not look like an id, SKU or
// price, then "".
func ExtractProductName(row models.RowMap) string {
	lowered := loweredKeys(row)

	for _, column := range NameColumnOrder {
		if key, ok := lowered[column]; ok {
			if v := stringValue(row[key]); v != "" {
				return v
			}
		}
	}

	// Fallback scan in sorted key order; spreadsheet column order is not
	// preserved in the row map.
	keys := sortedKeys(row)
	for _, key := range keys {
		lk := strings.ToLower(strings.TrimSpace(key))
		if identifierLike.MatchString(lk) || priceLike.MatchString(lk) {
			continue
		}
		v := stringValue(row[key])
		if v == "" || isNumeric(v) {
			continue
		}
		return v
	}

	return ""
}

// BuildProductQuery converts one raw row into the immutable per-row query.
func BuildProductQuery(row models.RowMap) models.ProductQuery {
	lowered := loweredKeys(row)
	consumed := make(map[string]struct{})

	query := models.ProductQuery{Name: ExtractProductName(row)}

	for _, column := range NameColumnOrder {
		if key, ok := lowered[column]; ok && stringValue(row[key]) == query.Name {
			consumed[key] = struct{}{}
			break
		}
	}

	for _, column := range descriptionColumns {
		if key, ok := lowered[column]; ok {
			if v := stringValue(row[key]); v != "" {
				query.Description = v
				consumed[key] = struct{}{}
				break
			}
		}
	}

	for _, column := range priceColumns {
		if key, ok := lowered[column]; ok {
			if v, valid := floatValue(row[key]); valid && v > 0 {
				query.Price = v
				consumed[key] = struct{}{}
				break
			}
		}
	}

	specs := make(map[string]string)
	for _, key := range sortedKeys(row) {
		if _, used := consumed[key]; used {
			continue
		}
		lk := strings.ToLower(strings.TrimSpace(key))
		if identifierLike.MatchString(lk) {
			continue
		}
		if v := stringValue(row[key]); v != "" {
			specs[key] = v
		}
	}
	if len(specs) > 0 {
		query.Specs = specs
	}

	return query
}

// AvailableColumns lists the row's headers, sorted, for error messages.
func AvailableColumns(row models.RowMap) []string {
	return sortedKeys(row)
}

func loweredKeys(row models.RowMap) map[string]string {
	out := make(map[string]string, len(row))
	for k := range row {
		out[strings.ToLower(strings.TrimSpace(k))] = k
	}
	return out
}

func sortedKeys(row models.RowMap) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return fmt.Sprintf("%t", v)
	}
	return ""
}

func floatValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
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

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
