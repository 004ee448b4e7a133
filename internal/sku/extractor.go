// internal/sku/extractor.go

// Package sku resolves a stable supplier SKU from whatever shape the upstream
// catalog happened to return. Providers disagree on field names and types, so
// resolution is an ordered list of extractors tried until one succeeds.
package sku

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RawFieldOrder is the ordered list of raw-payload field names tried when the
// normalized specs carry no SKU. Behavior depends on this ordering; tests pin it.
var RawFieldOrder = []string{
	"productSku",
	"sku",
	"SKU",
	"product_sku",
	"productSkuNumber",
	"skuCode",
}

// Extract resolves a SKU, trying in order: the normalized-specifications SKU,
// the candidate's own specs map, then the raw payload field variants. Returns
// "" when nothing matches; it never fails.
func Extract(normalizedSKU string, specs map[string]string, rawData map[string]interface{}) string {
	extractors := []func() string{
		func() string { return strings.TrimSpace(normalizedSKU) },
		func() string { return fromSpecs(specs) },
		func() string { return fromRawData(rawData) },
	}

	for _, extract := range extractors {
		if v := extract(); v != "" {
			return v
		}
	}
	return ""
}

func fromSpecs(specs map[string]string) string {
	if specs == nil {
		return ""
	}
	return strings.TrimSpace(specs["sku"])
}

func fromRawData(rawData map[string]interface{}) string {
	if rawData == nil {
		return ""
	}
	for _, field := range RawFieldOrder {
		raw, ok := rawData[field]
		if !ok {
			continue
		}
		if v := coerceString(raw); v != "" {
			return v
		}
	}
	return ""
}

// coerceString accepts both string and numeric raw values; anything else is
// treated as absent.
func coerceString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	}
	return ""
}
