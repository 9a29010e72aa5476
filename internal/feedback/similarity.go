package feedback

import "strings"

// Similarity scores two product names by word overlap:
// |shared words| / |union of words|, case-insensitive. Identical names score
// 1.0; names with disjoint vocabulary score 0.
func Similarity(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	shared := 0
	union := len(wb)
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = struct{}{}
	}
	return out
}
