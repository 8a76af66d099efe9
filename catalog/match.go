package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares a string for answer comparison: NFC composition so
// decomposed Hangul/Latin sequences compare equal, Unicode case folding, and
// removal of all whitespace. "DYNAMITE " and "dynamite" normalize identically,
// as do "Shape of You" and "shapeofyou".
//
// Matching is exact after normalization; there is no edit-distance or phonetic
// scoring.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	// cases.Caser carries internal state, so build one per call rather than
	// sharing across goroutines.
	s = cases.Fold().String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
