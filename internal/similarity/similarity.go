// Package similarity scores how closely two names resemble each other.
package similarity

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var spaceRE = regexp.MustCompile(`\s+`)

// Score returns a normalized string-similarity metric in [0,1] between two
// names: 1 means identical after canonicalization, 0 means nothing in common.
// Derived from edit distance over lowercased, whitespace-collapsed input.
func Score(a, b string) float64 {
	a = canonical(a)
	b = canonical(b)

	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}

	distance := levenshtein.ComputeDistance(a, b)
	score := 1.0 - float64(distance)/float64(longest)
	if score < 0 {
		return 0.0
	}
	return score
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(spaceRE.ReplaceAllString(name, " ")))
}
