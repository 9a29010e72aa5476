package llm

import (
	"encoding/json"
	"strings"

	"github.com/nithinv16/dukaaon-extractor/constants"
)

const maxPromptTableChars = 6000

// BuildTableExtractionPrompt asks the model to reconstruct products from raw
// OCR table cells when the heuristic parser produced nothing usable.
func BuildTableExtractionPrompt(renderedTable string) (system, user string) {
	system = strings.Join([]string{
		"You are an invoice line-item parser for a wholesale grocery catalog.",
		"Return ONLY a JSON array that matches the provided JSON Schema; no prose.",
		"Each element is one purchasable product from the table.",
		"Skip totals, taxes, addresses and other non-product rows.",
		"quantity is the purchased count or weight; net_amount is the line total after discounts.",
		"unit must be one of: " + strings.Join(constants.UnitsAsStringSlice(), ", ") + ".",
		"Never output null. Omit fields you cannot determine.",
	}, " ")

	if len(renderedTable) > maxPromptTableChars {
		renderedTable = renderedTable[:maxPromptTableChars] + "\n…(truncated)"
	}
	var b strings.Builder
	b.WriteString("OCR table cells (pipe-separated, one row per line):\n")
	b.WriteString(renderedTable)
	b.WriteString("\n\nReturn the product array now.")
	return system, b.String()
}

// BuildVisionExtractionPrompt is self-contained: it asks the vision tier to
// read products straight off the receipt image, no OCR table needed.
func BuildVisionExtractionPrompt() (system, user string) {
	system = strings.Join([]string{
		"You are reading a photographed supplier receipt or invoice.",
		"Return ONLY a JSON array that matches the provided JSON Schema; no prose.",
		"Each element is one purchasable product with name, quantity, unit, net_amount and your confidence (0..1) in that line.",
		"unit must be one of: " + strings.Join(constants.UnitsAsStringSlice(), ", ") + ".",
		"Skip totals, taxes and boilerplate. Never output null; omit unknown fields.",
	}, " ")
	user = "Extract every purchasable product from the attached image."
	return system, user
}

// BuildEnhancementPrompt asks the fast tier to correct brand, category,
// subcategory and unit for already-extracted candidates, biased by previously
// confirmed human corrections for similar products.
func BuildEnhancementPrompt(productsJSON string, categories []string, subcategories map[string][]string, fewShotBlock string) (system, user string) {
	parts := []string{
		"You are enriching extracted grocery products for a seller catalog.",
		"Return ONLY a JSON array matching the provided JSON Schema, one element per input product, keyed by the exact input name.",
		"Correct obvious OCR damage in names, infer brand when recognizable, and pick category/subcategory from the taxonomy below when one fits; otherwise suggest a sensible new label.",
		"unit must be one of: " + strings.Join(constants.UnitsAsStringSlice(), ", ") + ".",
		"Never invent products and never drop input products.",
	}
	system = strings.Join(parts, " ")

	var b strings.Builder
	if len(categories) > 0 {
		b.WriteString("Existing categories: ")
		b.WriteString(strings.Join(categories, ", "))
		b.WriteString("\n")
	}
	for cat, subs := range subcategories {
		if len(subs) == 0 {
			continue
		}
		b.WriteString("Subcategories of ")
		b.WriteString(cat)
		b.WriteString(": ")
		b.WriteString(strings.Join(subs, ", "))
		b.WriteString("\n")
	}
	if fewShotBlock != "" {
		b.WriteString("\nPreviously confirmed corrections for similar products:\n")
		b.WriteString(fewShotBlock)
		b.WriteString("\n")
	}
	b.WriteString("\nProducts to enhance:\n")
	b.WriteString(productsJSON)
	return system, b.String()
}

// SchemaMessage renders a schema as a trailing system message, the same way
// the schema is communicated for every structured prompt.
func SchemaMessage(schema map[string]any) Message {
	return Message{Role: RoleSystem, Content: "JSON Schema:\n" + mustJSON(schema)}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
