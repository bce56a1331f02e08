// Package slug derives URL slugs from human-readable titles.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Make converts a title into a URL slug: diacritics stripped, lowercased,
// runs of non-alphanumeric characters collapsed to a single hyphen, leading
// and trailing hyphens trimmed.
func Make(title string) string {
	// NFD decomposition separates base characters from combining marks,
	// so "ż" becomes "z" + combining dot.
	decomposed := norm.NFD.String(title)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastHyphen := true // suppress a leading hyphen
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark, drop
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// non-ASCII letters that survived decomposition (e.g. "ł")
			if folded := foldRune(r); folded != 0 {
				b.WriteRune(folded)
				lastHyphen = false
			} else if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// foldRune maps letters that NFD cannot decompose to their ASCII
// counterparts. Covers the Latin letters common in European titles.
func foldRune(r rune) rune {
	switch unicode.ToLower(r) {
	case 'ł':
		return 'l'
	case 'ß':
		return 's'
	case 'đ':
		return 'd'
	case 'ø':
		return 'o'
	case 'æ':
		return 'a'
	case 'œ':
		return 'o'
	case 'þ':
		return 't'
	}
	return 0
}
