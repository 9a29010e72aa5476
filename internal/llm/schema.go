package llm

import (
	"github.com/nithinv16/dukaaon-extractor/constants"
)

// BuildProductListSchema returns a JSON-Schema (draft 2020-12 subset) for the
// product arrays the extraction and fallback prompts must return. Parsed
// model output is validated against it before anything downstream trusts it.
func BuildProductListSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": 1,
		"items":    productSchema(),
	}
}

// BuildEnhancementListSchema constrains the ENHANCE pass output: per-product
// brand/category/unit corrections keyed by name.
func BuildEnhancementListSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"name":          map[string]any{"type": "string", "minLength": 1},
				"brand":         map[string]any{"type": "string"},
				"category":      map[string]any{"type": "string"},
				"subcategory":   map[string]any{"type": "string"},
				"unit":          map[string]any{"type": "string", "enum": constants.UnitsAsStringSlice()},
				"variant_name":  map[string]any{"type": "string"},
				"variant_value": map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		},
	}
}

func productSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":       map[string]any{"type": "string", "minLength": 1},
			"brand":      map[string]any{"type": "string"},
			"quantity":   map[string]any{"type": "number", "exclusiveMinimum": 0.0},
			"unit":       map[string]any{"type": "string", "enum": constants.UnitsAsStringSlice()},
			"net_amount": map[string]any{"type": "number", "minimum": 0.0},
			"category":   map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"name", "quantity"},
	}
}
