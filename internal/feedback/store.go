package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nithinv16/dukaaon-extractor/constants"
	"github.com/nithinv16/dukaaon-extractor/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS corrections (
	id TEXT PRIMARY KEY,
	seller_id TEXT NOT NULL DEFAULT '',
	extracted_name TEXT NOT NULL,
	corrected_name TEXT NOT NULL,
	extracted_brand TEXT NOT NULL DEFAULT '',
	corrected_brand TEXT NOT NULL DEFAULT '',
	extracted_category TEXT NOT NULL DEFAULT '',
	corrected_category TEXT NOT NULL DEFAULT '',
	extracted_subcategory TEXT NOT NULL DEFAULT '',
	corrected_subcategory TEXT NOT NULL DEFAULT '',
	extracted_quantity REAL NOT NULL DEFAULT 0,
	corrected_quantity REAL NOT NULL DEFAULT 0,
	extracted_unit TEXT NOT NULL DEFAULT '',
	corrected_unit TEXT NOT NULL DEFAULT '',
	correction_type TEXT NOT NULL,
	confidence_before REAL NOT NULL,
	confidence_after REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_corrections_seller_created
	ON corrections (seller_id, created_at DESC);
`

// Store captures human corrections of extracted products and supplies
// few-shot examples back into future enhancement prompts. Append-only.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the embedded correction database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init feedback schema: %w", err)
	}
	logger.Info("feedback store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCorrections diffs index-aligned (AI-extracted, user-confirmed) product
// pairs field by field and appends one CorrectionRecord per changed pair.
// ConfidenceAfter is always 1.0: a human confirmed the corrected values.
// Returns the number of records written.
func (s *Store) SaveCorrections(ctx context.Context, sellerID string, extracted, confirmed []entity.ExtractedProduct) (int, error) {
	n := len(extracted)
	if len(confirmed) < n {
		n = len(confirmed)
	}

	saved := 0
	for i := 0; i < n; i++ {
		rec, changed := diffPair(extracted[i], confirmed[i])
		if !changed {
			continue
		}
		rec.ID = uuid.New()
		rec.SellerID = sellerID
		rec.CreatedAt = time.Now().UTC()

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO corrections (
				id, seller_id,
				extracted_name, corrected_name,
				extracted_brand, corrected_brand,
				extracted_category, corrected_category,
				extracted_subcategory, corrected_subcategory,
				extracted_quantity, corrected_quantity,
				extracted_unit, corrected_unit,
				correction_type, confidence_before, confidence_after, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID.String(), rec.SellerID,
			rec.ExtractedName, rec.CorrectedName,
			rec.ExtractedBrand, rec.CorrectedBrand,
			rec.ExtractedCategory, rec.CorrectedCategory,
			rec.ExtractedSubcategory, rec.CorrectedSubcategory,
			rec.ExtractedQuantity, rec.CorrectedQuantity,
			rec.ExtractedUnit, rec.CorrectedUnit,
			rec.CorrectionType, rec.ConfidenceBefore, rec.ConfidenceAfter, rec.CreatedAt,
		)
		if err != nil {
			return saved, fmt.Errorf("insert correction: %w", err)
		}
		saved++
	}

	s.logger.Info("feedback.corrections.saved", "seller_id", sellerID, "pairs", n, "saved", saved)
	return saved, nil
}

// Examples retrieves the top n few-shot examples for a new product name:
// the most recent n*3 records for the scope, scored by name similarity,
// filtered by the minimum threshold and sorted best-first.
func (s *Store) Examples(ctx context.Context, name, sellerID string, n int) ([]entity.FewShotExample, error) {
	if n <= 0 {
		n = 3
	}

	query := `
		SELECT id, seller_id,
			extracted_name, corrected_name,
			extracted_brand, corrected_brand,
			extracted_category, corrected_category,
			extracted_subcategory, corrected_subcategory,
			extracted_quantity, corrected_quantity,
			extracted_unit, corrected_unit,
			correction_type, confidence_before, confidence_after, created_at
		FROM corrections`
	args := []any{}
	if sellerID != "" {
		query += ` WHERE seller_id = ?`
		args = append(args, sellerID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, n*3)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	var examples []entity.FewShotExample
	for rows.Next() {
		var rec entity.CorrectionRecord
		var id string
		if err := rows.Scan(
			&id, &rec.SellerID,
			&rec.ExtractedName, &rec.CorrectedName,
			&rec.ExtractedBrand, &rec.CorrectedBrand,
			&rec.ExtractedCategory, &rec.CorrectedCategory,
			&rec.ExtractedSubcategory, &rec.CorrectedSubcategory,
			&rec.ExtractedQuantity, &rec.CorrectedQuantity,
			&rec.ExtractedUnit, &rec.CorrectedUnit,
			&rec.CorrectionType, &rec.ConfidenceBefore, &rec.ConfidenceAfter, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.ID, _ = uuid.Parse(id)

		score := Similarity(name, rec.ExtractedName)
		if score < constants.MinFeedbackSimilarity {
			continue
		}
		examples = append(examples, entity.FewShotExample{
			Record:     rec,
			Similarity: score,
			Pattern:    patternNote(rec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(examples, func(i, j int) bool {
		return examples[i].Similarity > examples[j].Similarity
	})
	if len(examples) > n {
		examples = examples[:n]
	}
	return examples, nil
}

// diffPair compares one extracted/confirmed pair and builds the record when
// any tracked field differs. correction_type names the single changed field,
// or "multiple".
func diffPair(extracted, confirmed entity.ExtractedProduct) (entity.CorrectionRecord, bool) {
	rec := entity.CorrectionRecord{
		ExtractedName:        extracted.Name,
		CorrectedName:        confirmed.Name,
		ExtractedBrand:       extracted.Brand,
		CorrectedBrand:       confirmed.Brand,
		ExtractedCategory:    extracted.Category,
		CorrectedCategory:    confirmed.Category,
		ExtractedSubcategory: extracted.Subcategory,
		CorrectedSubcategory: confirmed.Subcategory,
		ExtractedQuantity:    extracted.Quantity,
		CorrectedQuantity:    confirmed.Quantity,
		ExtractedUnit:        string(extracted.Unit),
		CorrectedUnit:        string(confirmed.Unit),
		ConfidenceBefore:     extracted.Confidence,
		ConfidenceAfter:      1.0,
	}

	var changedFields []string
	if !strings.EqualFold(strings.TrimSpace(extracted.Name), strings.TrimSpace(confirmed.Name)) {
		changedFields = append(changedFields, "name")
	}
	if !strings.EqualFold(extracted.Brand, confirmed.Brand) {
		changedFields = append(changedFields, "brand")
	}
	if !strings.EqualFold(extracted.Category, confirmed.Category) {
		changedFields = append(changedFields, "category")
	}
	if !strings.EqualFold(extracted.Subcategory, confirmed.Subcategory) {
		changedFields = append(changedFields, "subcategory")
	}
	if extracted.Quantity != confirmed.Quantity {
		changedFields = append(changedFields, "quantity")
	}
	if extracted.Unit != confirmed.Unit {
		changedFields = append(changedFields, "unit")
	}

	switch len(changedFields) {
	case 0:
		return rec, false
	case 1:
		rec.CorrectionType = changedFields[0]
	default:
		rec.CorrectionType = "multiple"
	}
	return rec, true
}

// patternNote generates the one-line explanation rendered next to a few-shot
// example.
func patternNote(rec entity.CorrectionRecord) string {
	switch rec.CorrectionType {
	case "name":
		if len(rec.CorrectedName) > len(rec.ExtractedName) {
			return "Name expanded/clarified"
		}
		return "Name corrected"
	case "brand":
		return "Brand corrected"
	case "category":
		return "Category corrected"
	case "subcategory":
		return "Subcategory corrected"
	case "quantity":
		return "Quantity corrected"
	case "unit":
		return "Unit corrected"
	default:
		return "Multiple fields corrected"
	}
}
