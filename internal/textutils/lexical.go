package textutils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// HasLetter reports whether s contains a letter in any script.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// HasDigit reports whether s contains a decimal digit.
func HasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// IsDigitsOnly reports whether s, ignoring spaces and separators, is a number.
func IsDigitsOnly(s string) bool {
	seen := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			seen = true
		case unicode.IsSpace(r), r == ',', r == '.', r == '-':
		default:
			return false
		}
	}
	return seen
}

// IsSymbolsOnly reports whether s is non-empty and has neither letters nor digits.
func IsSymbolsOnly(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return !HasLetter(s) && !HasDigit(s)
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

const noiseRunes = "*※#・.-_=:;|/\\~>< 　'\"`"

// TrimNoise strips leading and trailing OCR noise symbols from s.
func TrimNoise(s string) string {
	return strings.Trim(s, noiseRunes)
}

// Similarity returns a case-insensitive edit-distance similarity in [0,1]:
// 1 - distance / max(len(a), len(b)) counted in characters.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := RuneLen(a)
	if l := RuneLen(b); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.Distance(a, b, nil)
	return 1 - float64(dist)/float64(longest)
}
