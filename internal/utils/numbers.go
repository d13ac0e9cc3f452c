package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseNumeric extracts the number from catalog text such as "15 000 000 ₸"
// or "120 000 км". Group separators (spaces, NBSP, commas, apostrophes) are
// dropped; a single '.' is kept as the decimal point.
func ParseNumeric(text string) (float64, bool) {
	var b strings.Builder
	seenDigit := false
	seenDot := false
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			seenDigit = true
		case r == '.' && seenDigit && !seenDot:
			b.WriteRune(r)
			seenDot = true
		case unicode.IsSpace(r) || r == ',' || r == '\'':
			continue
		default:
			if seenDigit {
				// the number ended, e.g. "2.5 (бензин)" or "120 000 км"
				return finishNumeric(b.String())
			}
		}
	}
	if !seenDigit {
		return 0, false
	}
	return finishNumeric(b.String())
}

func finishNumeric(s string) (float64, bool) {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
