package constants

import (
	"sort"
	"strings"
)

// Unit is the closed set of sellable units understood by the catalog.
type Unit string

const (
	UnitPiece       Unit = "piece"
	UnitKilogram    Unit = "kilogram"
	UnitGram        Unit = "gram"
	UnitLiter       Unit = "liter"
	UnitMilliliter  Unit = "milliliter"
	UnitPack        Unit = "pack"
	UnitBox         Unit = "box"
	UnitBottle      Unit = "bottle"
	UnitCan         Unit = "can"
	UnitCarton      Unit = "carton"
	UnitCase        Unit = "case"
	UnitDozen       Unit = "dozen"
	UnitMeter       Unit = "meter"
	UnitCentimeter  Unit = "centimeter"
	UnitSquareMeter Unit = "square_meter"
)

var allUnits = []Unit{
	UnitPiece,
	UnitKilogram,
	UnitGram,
	UnitLiter,
	UnitMilliliter,
	UnitPack,
	UnitBox,
	UnitBottle,
	UnitCan,
	UnitCarton,
	UnitCase,
	UnitDozen,
	UnitMeter,
	UnitCentimeter,
	UnitSquareMeter,
}

// unitAbbreviations maps every known free-text spelling to its canonical unit.
// Invoice OCR output is noisy, so this table carries the abbreviations seen in
// real supplier bills (e.g. "Kgm", "Pe", "Ctn").
var unitAbbreviations = map[string]Unit{
	"pc": UnitPiece, "pcs": UnitPiece, "pe": UnitPiece, "pes": UnitPiece,
	"piece": UnitPiece, "pieces": UnitPiece, "nos": UnitPiece, "no": UnitPiece,
	"unit": UnitPiece, "units": UnitPiece, "each": UnitPiece, "ea": UnitPiece,

	"kg": UnitKilogram, "kgs": UnitKilogram, "kgm": UnitKilogram,
	"kilo": UnitKilogram, "kilos": UnitKilogram,
	"kilogram": UnitKilogram, "kilograms": UnitKilogram,

	"g": UnitGram, "gm": UnitGram, "gms": UnitGram, "grm": UnitGram,
	"gram": UnitGram, "grams": UnitGram,

	"l": UnitLiter, "lt": UnitLiter, "ltr": UnitLiter, "ltrs": UnitLiter,
	"liter": UnitLiter, "liters": UnitLiter, "litre": UnitLiter, "litres": UnitLiter,

	"ml": UnitMilliliter, "mls": UnitMilliliter,
	"milliliter": UnitMilliliter, "millilitre": UnitMilliliter,

	"pack": UnitPack, "packs": UnitPack, "pkt": UnitPack, "pkts": UnitPack,
	"packet": UnitPack, "packets": UnitPack, "pk": UnitPack,

	"box": UnitBox, "boxes": UnitBox, "bx": UnitBox,

	"bottle": UnitBottle, "bottles": UnitBottle, "btl": UnitBottle, "btls": UnitBottle,

	"can": UnitCan, "cans": UnitCan, "tin": UnitCan, "tins": UnitCan,

	"carton": UnitCarton, "cartons": UnitCarton, "ctn": UnitCarton, "ctns": UnitCarton,

	"case": UnitCase, "cases": UnitCase, "cs": UnitCase,

	"dozen": UnitDozen, "dozens": UnitDozen, "doz": UnitDozen, "dz": UnitDozen,

	"m": UnitMeter, "mtr": UnitMeter, "mtrs": UnitMeter,
	"meter": UnitMeter, "meters": UnitMeter, "metre": UnitMeter, "metres": UnitMeter,

	"cm": UnitCentimeter, "cms": UnitCentimeter,
	"centimeter": UnitCentimeter, "centimetre": UnitCentimeter,

	"sqm": UnitSquareMeter, "sq.m": UnitSquareMeter, "sq m": UnitSquareMeter,
	"m2": UnitSquareMeter, "square meter": UnitSquareMeter, "square metre": UnitSquareMeter,
}

// abbreviationsByLength holds the table keys longest-first so that the
// containment pass prefers "kgs" over "g".
var abbreviationsByLength = func() []string {
	keys := make([]string, 0, len(unitAbbreviations))
	for k := range unitAbbreviations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var (
	kilogramKeywords = []string{
		"rice", "flour", "atta", "sugar", "salt", "dal", "dhal", "lentil",
		"pulse", "onion", "potato", "tomato", "vegetable", "fruit", "wheat",
		"rava", "besan", "maida", "jaggery", "masala powder",
	}
	literKeywords = []string{
		"oil", "milk", "ghee", "juice", "water", "curd", "buttermilk",
	}
	milliliterKeywords = []string{
		"soft drink", "cola", "soda", "shampoo", "syrup", "tonic",
	}
)

// AllUnits returns the closed unit enumeration in a stable order.
func AllUnits() []Unit {
	out := make([]Unit, len(allUnits))
	copy(out, allUnits)
	return out
}

func UnitsAsStringSlice() []string {
	result := make([]string, len(allUnits))
	for i, u := range allUnits {
		result[i] = string(u)
	}
	return result
}

// IsValidUnit reports whether u is a member of the closed enumeration.
func IsValidUnit(u Unit) bool {
	for _, known := range allUnits {
		if u == known {
			return true
		}
	}
	return false
}

// NormalizeUnit maps a free-text unit token to the closed enumeration.
// Matching order: exact table match, containment against the table, then
// the piece default. It is total: any input yields a valid Unit.
func NormalizeUnit(text string) Unit {
	return NormalizeUnitWithName(text, "")
}

// NormalizeUnitWithName behaves like NormalizeUnit but additionally infers a
// unit from keywords in the accompanying product name before falling back to
// piece. Loose produce and staples sell by weight, liquids by volume, and
// most packaged FMCG by piece.
func NormalizeUnitWithName(text, productName string) Unit {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, ".")

	if normalized != "" {
		if u, ok := unitAbbreviations[normalized]; ok {
			return u
		}
		for _, abbr := range abbreviationsByLength {
			if len(abbr) < 2 {
				continue
			}
			if strings.Contains(normalized, abbr) {
				return unitAbbreviations[abbr]
			}
		}
	}

	if name := strings.ToLower(productName); name != "" {
		for _, kw := range kilogramKeywords {
			if strings.Contains(name, kw) {
				return UnitKilogram
			}
		}
		for _, kw := range milliliterKeywords {
			if strings.Contains(name, kw) {
				return UnitMilliliter
			}
		}
		for _, kw := range literKeywords {
			if strings.Contains(name, kw) {
				return UnitLiter
			}
		}
	}

	return UnitPiece
}
