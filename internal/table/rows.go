package table

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nithinv16/dukaaon-extractor/constants"
	"github.com/nithinv16/dukaaon-extractor/internal/entity"
)

// skipPatterns reject rows that are invoice boilerplate rather than products:
// totals, tax lines, addresses, bank details, channel/route metadata.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(sub[\s-]?total|grand\s+total|total)\b`),
	regexp.MustCompile(`(?i)\b(invoice|bill\s+no|gstin?|cgst|sgst|igst|vat|tax\s+invoice)\b`),
	regexp.MustCompile(`(?i)\b(address|phone|mobile|email|website|pin\s?code)\b`),
	regexp.MustCompile(`(?i)\b(balance|amount\s+due|amount\s+in\s+words|round\s*off)\b`),
	regexp.MustCompile(`(?i)\b(route|channel|salesman|beat|van)\b`),
	regexp.MustCompile(`(?i)\b(terms|declaration|authori[sz]ed|signature|e\s*&\s*o\.?e)\b`),
	regexp.MustCompile(`(?i)\b(bank|ifsc|a/c\s*no|account\s+no)\b`),
	regexp.MustCompile(`(?i)\b(thank\s+you|continued|page\s+\d+)\b`),
}

var (
	reQuantityCell = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([A-Za-z.]*)`)
	reFirstDecimal = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reSizeToken    = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?(?:g|gm|gms|kg|mg|ml|l|ltr)$`)
	reCodeToken    = regexp.MustCompile(`^[A-Za-z0-9/-]{3,}$`)
	reHasDigit     = regexp.MustCompile(`\d`)
	reHasLetters   = regexp.MustCompile(`[A-Za-z]{2,}`)
)

// ExtractRow turns one data row into a candidate product, or nil when the row
// is unusable. Rejection here is deliberately conservative: a low-confidence
// product is preferred over a dropped one, since the enhancement pass gets a
// chance to repair it later.
func ExtractRow(row []string, m ColumnMapping) *entity.ExtractedProduct {
	rawName := cellAt(row, m.NameIdx)
	if strings.TrimSpace(rawName) == "" {
		return nil
	}
	if isSkippableName(rawName) {
		return nil
	}
	if IsHeaderLike(row) {
		return nil
	}

	name := CleanProductName(rawName)
	amount := parseAmount(cellAt(row, m.AmountIdx))
	if name == "" {
		if amount <= 0 {
			return nil
		}
		name = strings.TrimSpace(rawName)
	}

	quantityCell := cellAt(row, m.QuantityIdx)
	quantity, quantitySuffix := parseQuantity(quantityCell)

	unit := resolveUnit(cellAt(row, m.UnitIdx), quantitySuffix, rawName)

	unitPrice := 0.0
	if quantity > 0 {
		unitPrice = amount / quantity
	}

	needsReview := amount <= 0 || unitPrice <= 0
	confidence := constants.RowConfidenceOK
	if needsReview {
		confidence = constants.RowConfidenceLow
	}

	return &entity.ExtractedProduct{
		ID:          uuid.New(),
		Name:        name,
		Quantity:    quantity,
		Unit:        unit,
		NetAmount:   amount,
		UnitPrice:   unitPrice,
		Confidence:  confidence,
		NeedsReview: needsReview,
	}
}

// ExtractProducts runs the row extractor over a whole table, applying header
// detection when the table carries no separate header row.
func ExtractProducts(t StructuredTable) ([]entity.ExtractedProduct, ColumnMapping) {
	headers, rows := t.Headers, t.Rows
	if len(headers) == 0 {
		headers, rows = SplitHeader(t.Rows)
	}

	sample := rows
	if len(sample) > 5 {
		sample = sample[:5]
	}
	mapping := IdentifyColumns(headers, sample)

	var products []entity.ExtractedProduct
	for _, row := range rows {
		if p := ExtractRow(row, mapping); p != nil {
			products = append(products, *p)
		}
	}
	return products, mapping
}

// CleanProductName strips leading and trailing code tokens (barcodes, HSN and
// SKU codes) while preserving tokens that read as a size or weight ("75g").
func CleanProductName(raw string) string {
	tokens := strings.Fields(strings.TrimSpace(raw))

	isCode := func(tok string) bool {
		if reSizeToken.MatchString(tok) {
			return false
		}
		if !reHasDigit.MatchString(tok) {
			return false
		}
		if len(tok) >= 6 && !reHasLetters.MatchString(tok) {
			return true
		}
		return reCodeToken.MatchString(tok) && strings.ToUpper(tok) == tok
	}

	for len(tokens) > 0 && isCode(tokens[0]) {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && isCode(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func isSkippableName(name string) bool {
	for _, re := range skipPatterns {
		if re.MatchString(strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// parseQuantity reads a leading number from the quantity cell, defaulting to
// 1 when absent or invalid, and returns any trailing unit-ish suffix
// ("6 Pe" yields 6 and "Pe").
func parseQuantity(cell string) (float64, string) {
	match := reQuantityCell.FindStringSubmatch(cell)
	if match == nil {
		return 1, ""
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil || v <= 0 {
		return 1, match[2]
	}
	return v, match[2]
}

func parseAmount(cell string) float64 {
	s := StripCurrency(cell)
	match := reFirstDecimal.FindString(s)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// resolveUnit applies the unit resolution chain: explicit unit column, then
// the suffix embedded in the quantity cell, then keywords inside the raw name.
func resolveUnit(unitCell, quantitySuffix, rawName string) constants.Unit {
	if s := strings.TrimSpace(unitCell); s != "" {
		return constants.NormalizeUnitWithName(s, rawName)
	}
	if s := strings.TrimSpace(quantitySuffix); s != "" {
		return constants.NormalizeUnitWithName(s, rawName)
	}
	return constants.NormalizeUnitWithName("", rawName)
}

func cellAt(row []string, idx int) string {
	if idx == NoColumn || idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
