package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Lexicon maps colloquial Mexican parts terms to canonical search terms.
type Lexicon map[string]string

// punctuation strips anything that is not a letter, digit, accent or space.
var punctuation = regexp.MustCompile(`[^a-z0-9áéíóúüñ\s]`)
var whitespace = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a raw user message: case-fold, colloquial
// substitution, punctuation strip (accents preserved), whitespace collapse.
func Normalize(message string, lex Lexicon) string {
	normalized := strings.ToLower(strings.TrimSpace(message))

	// Longest terms first so multi-word colloquialisms win over substrings.
	terms := make([]string, 0, len(lex))
	for colloquial := range lex {
		terms = append(terms, colloquial)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	for _, colloquial := range terms {
		normalized = strings.ReplaceAll(normalized, colloquial, lex[colloquial])
	}

	normalized = punctuation.ReplaceAllString(normalized, " ")
	normalized = whitespace.ReplaceAllString(normalized, " ")

	return strings.TrimSpace(normalized)
}
