package constants

// Confidence thresholds and stage defaults shared across the pipeline.
const (
	// ReviewConfidenceThreshold flags a product for human review whenever its
	// confidence falls below this value.
	ReviewConfidenceThreshold = 0.7

	// RowConfidenceOK is assigned to rows that parsed cleanly from a
	// structured table; RowConfidenceLow to rows with a missing or zero amount.
	RowConfidenceOK  = 0.85
	RowConfidenceLow = 0.5

	// ModelTableConfidence is forced onto every product recovered by the
	// model-only table reconstruction fallback.
	ModelTableConfidence = 0.75

	// MinFeedbackSimilarity is the floor for a past correction to qualify as a
	// few-shot example for a new product name.
	MinFeedbackSimilarity = 0.3

	// MinTokenOverlapScore is the minimum summed shared-word length for a
	// fuzzy taxonomy match.
	MinTokenOverlapScore = 4
)
