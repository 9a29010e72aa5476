package entity

import (
	"github.com/google/uuid"

	"github.com/nithinv16/dukaaon-extractor/constants"
)

// ExtractedProduct is one candidate product recovered from a receipt or
// invoice image. It is created by the table parser or a model fallback stage
// and mutated only by the enhancement merge before being returned.
type ExtractedProduct struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Brand            string         `json:"brand,omitempty"`
	Quantity         float64        `json:"quantity"`
	Unit             constants.Unit `json:"unit"`
	NetAmount        float64        `json:"net_amount"`
	UnitPrice        float64        `json:"unit_price"`
	Confidence       float64        `json:"confidence"`
	NeedsReview      bool           `json:"needs_review"`
	Category         string         `json:"category,omitempty"`
	Subcategory      string         `json:"subcategory,omitempty"`
	CategoryIsNew    bool           `json:"category_is_new,omitempty"`
	SubcategoryIsNew bool           `json:"subcategory_is_new,omitempty"`
	VariantName      string         `json:"variant_name,omitempty"`
	VariantValue     string         `json:"variant_value,omitempty"`
	MatchedProductID string         `json:"matched_product_id,omitempty"`

	// Error records a per-item enrichment failure without aborting the batch.
	Error string `json:"error,omitempty"`
}

// ResultMetadata summarizes one pipeline run.
type ResultMetadata struct {
	TotalItems  int     `json:"total_items"`
	TotalAmount float64 `json:"total_amount"`
}

// ExtractionResult is the terminal output of one pipeline run.
type ExtractionResult struct {
	Success    bool               `json:"success"`
	Products   []ExtractedProduct `json:"products"`
	Confidence float64            `json:"confidence"`
	Error      string             `json:"error,omitempty"`
	Metadata   ResultMetadata     `json:"metadata"`
}
