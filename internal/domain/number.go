package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNoNumber is returned when a value contains no parsable digits.
var ErrNoNumber = errors.New("no number in value")

// ParseLenientNumber extracts a number from a free-text enrichment value.
// It keeps digits and the first decimal point and drops everything else,
// so "$1,234.50 avg" parses as 1234.50. A decimal point before the first
// digit reads as a leading zero, so ".5" parses as 0.5. A leading minus
// sign directly before the first digit is honored.
func ParseLenientNumber(s string) (float64, error) {
	var b strings.Builder
	seenDot := false
	seenDigit := false
	for i, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			if !seenDigit && b.Len() == 0 && i > 0 && s[i-1] == '-' {
				b.WriteByte('-')
			}
			b.WriteRune(ch)
			seenDigit = true
		case ch == '.' && !seenDot:
			if seenDigit {
				b.WriteRune(ch)
				seenDot = true
			} else if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
				b.WriteString("0.")
				seenDot = true
			}
		}
	}
	if !seenDigit {
		return 0, ErrNoNumber
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil {
		return 0, ErrNoNumber
	}
	return v, nil
}
