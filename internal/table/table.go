package table

import (
	"strings"
)

// StructuredTable is one table region detected by the OCR collaborator:
// ordered header cells plus ordered data rows. Produced once per OCR call and
// never mutated afterwards.
type StructuredTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// NoColumn marks an unassigned role in a ColumnMapping.
const NoColumn = -1

// ColumnMapping assigns table columns to semantic roles. Computed once per
// table; an index of NoColumn means the role could not be placed.
type ColumnMapping struct {
	NameIdx     int     `json:"name_idx"`
	QuantityIdx int     `json:"quantity_idx"`
	UnitIdx     int     `json:"unit_idx"`
	AmountIdx   int     `json:"amount_idx"`
	Confidence  float64 `json:"confidence"`
}

// headerKeywords is the vocabulary used to recognize a stray header row inside
// the data region (supplier bills often repeat the header mid-page).
var headerKeywords = []string{
	"item", "description", "product", "particulars", "qty", "quantity",
	"rate", "amount", "unit", "price", "total", "hsn", "mrp", "gst",
	"disc", "value", "sl", "sno", "s.no", "uom", "net",
}

// SplitHeader locates the header row. If row 0 is more than half empty and
// row 1 looks header-like (three or more header keywords), the header is
// promoted to row 1 and data starts at row 2; otherwise row 0 is the header.
func SplitHeader(rows [][]string) (headers []string, data [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	headers = rows[0]
	data = rows[1:]
	if mostlyEmpty(rows[0]) && len(rows) > 1 && IsHeaderLike(rows[1]) {
		headers = rows[1]
		data = rows[2:]
	}
	return headers, data
}

// IsHeaderLike reports whether a row reads as a table header: at least three
// cells matching the fixed header keyword set.
func IsHeaderLike(row []string) bool {
	hits := 0
	for _, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		if c == "" {
			continue
		}
		for _, kw := range headerKeywords {
			if c == kw || strings.Contains(c, kw) {
				hits++
				break
			}
		}
	}
	return hits >= 3
}

func mostlyEmpty(row []string) bool {
	if len(row) == 0 {
		return true
	}
	empty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) == "" {
			empty++
		}
	}
	return float64(empty)/float64(len(row)) > 0.5
}
