package table

import (
	"regexp"
	"strconv"
	"strings"
)

// Header synonym sets per role. A header cell shorter than 20 runes matching
// one of these (equality or containment) assigns the column to the role.
var (
	nameSynonyms = []string{
		"item", "description", "product", "particulars", "goods", "material",
		"article", "commodity", "details", "item name", "product name",
	}
	quantitySynonyms = []string{
		"qty", "quantity", "qnty", "pcs", "nos", "count", "no of",
	}
	unitSynonyms = []string{
		"unit", "uom", "measure", "per",
	}
	amountSynonyms = []string{
		"amount", "amt", "net amount", "net amt", "total", "value",
		"taxable value", "line total",
	}
)

// Header-vocabulary weights per role, added to overall mapping confidence.
const (
	nameHeaderWeight     = 0.4
	quantityHeaderWeight = 0.25
	amountHeaderWeight   = 0.25
	unitHeaderWeight     = 0.1
	contentInferWeight   = 0.15
)

var (
	reLetterRun = regexp.MustCompile(`[A-Za-z]{2,}`)
	reDateish   = regexp.MustCompile(`^\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}$`)
	reCodeish   = regexp.MustCompile(`^[A-Z0-9/-]+$`)
	reLeadingNo = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([A-Za-z.]*)`)
	reDecimal   = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)
)

// IdentifyColumns assigns semantic roles to table columns, in strict priority
// order: header-vocabulary match, then content-driven inference for roles
// still unassigned, then fallback defaults. A role once assigned is never
// overwritten by a later step.
func IdentifyColumns(headers []string, sampleRows [][]string) ColumnMapping {
	m := ColumnMapping{NameIdx: NoColumn, QuantityIdx: NoColumn, UnitIdx: NoColumn, AmountIdx: NoColumn}
	taken := map[int]bool{}

	assign := func(idx *int, col int, weight float64) {
		if *idx != NoColumn || taken[col] {
			return
		}
		*idx = col
		taken[col] = true
		m.Confidence += weight
	}

	matchHeader := func(synonyms []string) int {
		for col, h := range headers {
			if taken[col] {
				continue
			}
			header := strings.ToLower(strings.TrimSpace(h))
			if header == "" || len([]rune(header)) >= 20 {
				continue
			}
			for _, syn := range synonyms {
				if header == syn || strings.Contains(header, syn) {
					return col
				}
			}
		}
		return NoColumn
	}

	// 1. Header vocabulary, name first so "Item Description" is never eaten
	// by a weaker role.
	if col := matchHeader(nameSynonyms); col != NoColumn {
		assign(&m.NameIdx, col, nameHeaderWeight)
	}
	if col := matchHeader(quantitySynonyms); col != NoColumn {
		assign(&m.QuantityIdx, col, quantityHeaderWeight)
	}
	if col := matchHeader(amountSynonyms); col != NoColumn {
		assign(&m.AmountIdx, col, amountHeaderWeight)
	}
	if col := matchHeader(unitSynonyms); col != NoColumn {
		assign(&m.UnitIdx, col, unitHeaderWeight)
	}

	// 2. Content-driven inference for still-unassigned roles.
	cols := columnCount(headers, sampleRows)
	if m.NameIdx == NoColumn {
		if col := bestColumn(cols, sampleRows, taken, looksLikeName, preferLongerText(sampleRows)); col != NoColumn {
			assign(&m.NameIdx, col, contentInferWeight)
		}
	}
	if m.QuantityIdx == NoColumn {
		if col := bestColumn(cols, sampleRows, taken, looksLikeQuantity, preferFirst); col != NoColumn {
			assign(&m.QuantityIdx, col, contentInferWeight)
		}
	}
	if m.AmountIdx == NoColumn {
		if col := bestColumn(cols, sampleRows, taken, looksLikeAmount, preferRightmost); col != NoColumn {
			assign(&m.AmountIdx, col, contentInferWeight)
		}
	}

	// 3. Fallback defaults.
	if m.AmountIdx == NoColumn && cols > 0 {
		m.AmountIdx = cols - 1
	}
	if m.NameIdx == NoColumn {
		m.NameIdx = defaultNameColumn(sampleRows, cols)
	}

	if m.Confidence > 1 {
		m.Confidence = 1
	}
	return m
}

func columnCount(headers []string, rows [][]string) int {
	n := len(headers)
	for _, r := range rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// bestColumn scores every unassigned column by counting sample cells that
// satisfy the predicate, breaking ties with the given preference.
func bestColumn(cols int, rows [][]string, taken map[int]bool, pred func(string) bool, better func(cand, best int) bool) int {
	best, bestScore := NoColumn, 0
	for col := 0; col < cols; col++ {
		if taken[col] {
			continue
		}
		score := 0
		for _, row := range rows {
			if col < len(row) && pred(row[col]) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && better(col, best)) {
			best, bestScore = col, score
		}
	}
	return best
}

func preferFirst(cand, best int) bool     { return false }
func preferRightmost(cand, best int) bool { return cand > best }

func preferLongerText(rows [][]string) func(cand, best int) bool {
	avg := func(col int) float64 {
		total, n := 0, 0
		for _, row := range rows {
			if col < len(row) {
				total += len(strings.TrimSpace(row[col]))
				n++
			}
		}
		if n == 0 {
			return 0
		}
		return float64(total) / float64(n)
	}
	return func(cand, best int) bool { return avg(cand) > avg(best) }
}

func defaultNameColumn(rows [][]string, cols int) int {
	if len(rows) == 0 || cols == 0 {
		return 0
	}
	best, bestLen := 0, 0
	for col := 0; col < cols && col < len(rows[0]); col++ {
		cell := strings.TrimSpace(rows[0][col])
		if !reLetterRun.MatchString(cell) {
			continue
		}
		if len(cell) > bestLen {
			best, bestLen = col, len(cell)
		}
	}
	return best
}

// looksLikeName: a run of two or more letters, longer than 5 runes, and not
// purely numeric, a date, or an uppercase item code.
func looksLikeName(cell string) bool {
	s := strings.TrimSpace(cell)
	if len([]rune(s)) <= 5 {
		return false
	}
	if !reLetterRun.MatchString(s) {
		return false
	}
	if reDateish.MatchString(s) {
		return false
	}
	if reCodeish.MatchString(s) && !strings.Contains(s, " ") {
		return false
	}
	return true
}

// looksLikeQuantity: a leading integer or decimal, optionally followed by a
// short unit-ish suffix, with a value in [1, 10000).
func looksLikeQuantity(cell string) bool {
	s := strings.TrimSpace(cell)
	match := reLeadingNo.FindStringSubmatch(s)
	if match == nil {
		return false
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return false
	}
	if len(match[2]) > 4 {
		return false
	}
	return v >= 1 && v < 10000
}

// looksLikeAmount: a decimal currency value greater than zero after currency
// symbols and thousands separators are stripped.
func looksLikeAmount(cell string) bool {
	s := StripCurrency(cell)
	if !reDecimal.MatchString(s) {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return v > 0
}

// StripCurrency removes currency symbols, currency codes and thousands
// separators, leaving a bare decimal string.
func StripCurrency(cell string) string {
	s := strings.TrimSpace(cell)
	for _, sym := range []string{"₹", "$", "€", "£", "Rs.", "Rs", "INR", "USD"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}
