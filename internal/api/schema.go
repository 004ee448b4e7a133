// internal/api/schema.go
package api

// submitJobSchema gates the raw submission payload before it is decoded into
// structs. Struct-level rules (country code lengths, ranges) are enforced
// afterwards by the validator; this schema catches shape problems the decoder
// would silently swallow, such as a row that is not an object.
const submitJobSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["sheetData", "providers"],
  "properties": {
    "sheetData": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "object"}
    },
    "providers": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "criteria": {
      "type": "object",
      "properties": {
        "shippingOrigin": {
          "type": "array",
          "items": {"type": "string"}
        },
        "maxDeliveryDays": {"type": "integer"},
        "priceRange": {
          "type": "object",
          "properties": {
            "min": {"type": "number"},
            "max": {"type": "number"}
          }
        },
        "currency": {"type": "string"},
        "maxResults": {"type": "integer"},
        "minMoq": {"type": "integer"},
        "maxMoq": {"type": "integer"},
        "maxLeadTimeDays": {"type": "integer"},
        "shipFrom": {"type": "string"},
        "shipTo": {"type": "string"},
        "maxShippingCost": {"type": "number"}
      }
    }
  }
}`
