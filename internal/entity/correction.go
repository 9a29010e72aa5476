package entity

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionRecord is one human correction of an AI-extracted product.
// Records are append-only; ConfidenceAfter is always 1.0 because a human
// confirmed the corrected values.
type CorrectionRecord struct {
	ID                   uuid.UUID `json:"id"`
	SellerID             string    `json:"seller_id,omitempty"`
	ExtractedName        string    `json:"extracted_name"`
	CorrectedName        string    `json:"corrected_name"`
	ExtractedBrand       string    `json:"extracted_brand,omitempty"`
	CorrectedBrand       string    `json:"corrected_brand,omitempty"`
	ExtractedCategory    string    `json:"extracted_category,omitempty"`
	CorrectedCategory    string    `json:"corrected_category,omitempty"`
	ExtractedSubcategory string    `json:"extracted_subcategory,omitempty"`
	CorrectedSubcategory string    `json:"corrected_subcategory,omitempty"`
	ExtractedQuantity    float64   `json:"extracted_quantity"`
	CorrectedQuantity    float64   `json:"corrected_quantity"`
	ExtractedUnit        string    `json:"extracted_unit,omitempty"`
	CorrectedUnit        string    `json:"corrected_unit,omitempty"`
	CorrectionType       string    `json:"correction_type"`
	ConfidenceBefore     float64   `json:"confidence_before"`
	ConfidenceAfter      float64   `json:"confidence_after"`
	CreatedAt            time.Time `json:"created_at"`
}

// FewShotExample is a correction record re-surfaced for a similar product
// name, with its similarity score and a one-line pattern note. Ephemeral;
// recomputed per query.
type FewShotExample struct {
	Record     CorrectionRecord `json:"record"`
	Similarity float64          `json:"similarity"`
	Pattern    string           `json:"pattern"`
}
