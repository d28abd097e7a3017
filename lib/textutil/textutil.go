package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and removes all whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// NormalizeID lowercases and removes underscores, grouping ids and table ids are
// compared in this form.
func NormalizeID(id string) string {
	return strings.ReplaceAll(strings.ToLower(id), "_", "")
}

// CourseKey is the key course names are matched by across documents.
func CourseKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Closest returns the candidate most similar to name by Jaro-Winkler similarity,
// ok is false when there are no candidates.
func Closest(name string, candidates []string) (best string, similarity float64, ok bool) {
	normalized := NormalizeName(name)
	for _, c := range candidates {
		sim := matchr.JaroWinkler(normalized, NormalizeName(c), false)
		if !ok || sim > similarity {
			best = c
			similarity = sim
			ok = true
		}
	}
	return best, similarity, ok
}
