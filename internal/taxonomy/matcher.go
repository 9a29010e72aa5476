package taxonomy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nithinv16/dukaaon-extractor/constants"
)

// CategoryMatch is the outcome of resolving an AI-suggested category string
// against the closed taxonomy.
type CategoryMatch struct {
	ID    int32
	Name  string
	IsNew bool
}

// BrandMatch is the outcome of resolving a suggested brand. Brands are never
// auto-created; a miss is handed back for human confirmation.
type BrandMatch struct {
	Name       string
	IsExisting bool
}

// genericBrandWords are marketing fillers stripped from suggested brands.
var genericBrandWords = []string{
	"premium", "deluxe", "extra", "super", "special", "classic", "original",
	"fresh", "new", "best", "quality", "pure",
}

// Matcher resolves AI-suggested taxonomy strings against the catalog's
// existing categories and subcategories, optionally creating new entries.
type Matcher struct {
	store      Store
	autoCreate bool
	logger     *slog.Logger
}

func NewMatcher(store Store, autoCreate bool, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{store: store, autoCreate: autoCreate, logger: logger}
}

// ResolveCategory matches suggested against the existing category list.
// When nothing matches the match is flagged new and, if auto-create is
// enabled, the category is created through the taxonomy store.
func (m *Matcher) ResolveCategory(ctx context.Context, suggested string) (CategoryMatch, error) {
	suggested = strings.TrimSpace(suggested)
	if suggested == "" {
		return CategoryMatch{}, nil
	}

	categories, err := m.store.ListCategories(ctx)
	if err != nil {
		return CategoryMatch{}, err
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	if idx, ok := BestMatch(suggested, names); ok {
		return CategoryMatch{ID: categories[idx].ID, Name: categories[idx].Name}, nil
	}

	if !m.autoCreate {
		return CategoryMatch{Name: suggested, IsNew: true}, nil
	}
	created, err := m.store.CreateCategory(ctx, suggested)
	if err != nil {
		return CategoryMatch{}, err
	}
	m.logger.Info("taxonomy.category.created", "name", created.Name, "id", created.ID)
	return CategoryMatch{ID: created.ID, Name: created.Name, IsNew: true}, nil
}

// ResolveSubcategory matches suggested against the subcategories of one
// category, with the same auto-create behavior as ResolveCategory.
func (m *Matcher) ResolveSubcategory(ctx context.Context, suggested string, categoryID int32) (CategoryMatch, error) {
	suggested = strings.TrimSpace(suggested)
	if suggested == "" || categoryID == 0 {
		return CategoryMatch{}, nil
	}

	subs, err := m.store.ListSubcategories(ctx, categoryID)
	if err != nil {
		return CategoryMatch{}, err
	}

	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.Name
	}
	if idx, ok := BestMatch(suggested, names); ok {
		return CategoryMatch{ID: subs[idx].ID, Name: subs[idx].Name}, nil
	}

	if !m.autoCreate {
		return CategoryMatch{Name: suggested, IsNew: true}, nil
	}
	created, err := m.store.CreateSubcategory(ctx, suggested, categoryID)
	if err != nil {
		return CategoryMatch{}, err
	}
	m.logger.Info("taxonomy.subcategory.created", "name", created.Name, "id", created.ID, "category_id", categoryID)
	return CategoryMatch{ID: created.ID, Name: created.Name, IsNew: true}, nil
}

// ResolveBrand matches suggested against known brand strings. The suggestion
// is cleaned of generic marketing words first; misses come back with
// IsExisting=false for human confirmation.
func ResolveBrand(suggested string, known []string) BrandMatch {
	cleaned := CleanBrand(suggested)
	if cleaned == "" {
		return BrandMatch{}
	}
	if idx, ok := BestMatch(cleaned, known); ok {
		return BrandMatch{Name: known[idx], IsExisting: true}
	}
	return BrandMatch{Name: cleaned, IsExisting: false}
}

// CleanBrand strips generic marketing words ("premium", "deluxe", …) from a
// suggested brand string.
func CleanBrand(s string) string {
	var kept []string
	for _, word := range strings.Fields(strings.TrimSpace(s)) {
		lower := strings.ToLower(word)
		generic := false
		for _, g := range genericBrandWords {
			if lower == g {
				generic = true
				break
			}
		}
		if !generic {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// BestMatch finds suggested among candidates: exact case-insensitive
// equality, then containment in either direction, then the highest
// token-overlap score above the minimum threshold. First hit wins.
func BestMatch(suggested string, candidates []string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(suggested))
	if s == "" {
		return -1, false
	}

	for i, c := range candidates {
		if s == strings.ToLower(strings.TrimSpace(c)) {
			return i, true
		}
	}

	for i, c := range candidates {
		cl := strings.ToLower(strings.TrimSpace(c))
		if cl == "" {
			continue
		}
		if strings.Contains(cl, s) || strings.Contains(s, cl) {
			return i, true
		}
	}

	best, bestScore := -1, 0
	for i, c := range candidates {
		score := tokenOverlapScore(s, strings.ToLower(c))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore >= constants.MinTokenOverlapScore {
		return best, true
	}
	return -1, false
}

// tokenOverlapScore sums the lengths of shared words longer than 3
// characters. Plural/singular variants count as shared ("food" vs "foods").
func tokenOverlapScore(a, b string) int {
	score := 0
	for _, wa := range splitWords(a) {
		if len(wa) <= 3 {
			continue
		}
		for _, wb := range splitWords(b) {
			if len(wb) <= 3 {
				continue
			}
			if wa == wb || strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				if len(wb) < len(wa) {
					score += len(wb)
				} else {
					score += len(wa)
				}
				break
			}
		}
	}
	return score
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
}
