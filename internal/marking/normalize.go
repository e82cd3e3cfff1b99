package marking

import (
	"strings"
	"unicode"
)

// normalize prepares an answer string for comparison: case-fold, trim,
// strip punctuation and symbols, and collapse internal whitespace.
// "Richtig" and " richtig " normalize to the same value.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// tokenize splits a normalized string into words.
func tokenize(s string) []string {
	return strings.Fields(normalize(s))
}

// lexicalOverlap returns the fraction of reference tokens that also appear
// in the candidate, in [0, 1]. Used as the conservative fallback when the
// judgment assistant is unavailable.
func lexicalOverlap(reference, candidate string) float64 {
	refTokens := tokenize(reference)
	if len(refTokens) == 0 {
		return 0
	}

	candSet := make(map[string]bool)
	for _, tok := range tokenize(candidate) {
		candSet[tok] = true
	}

	matched := 0
	for _, tok := range refTokens {
		if candSet[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(refTokens))
}
