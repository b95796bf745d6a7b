package numeral

import (
	"fmt"
	"strings"
)

// Thai digit alphabet indexed by decimal value.
var thaiDigits = [10]rune{'๐', '๑', '๒', '๓', '๔', '๕', '๖', '๗', '๘', '๙'}

// Encode converts a non-negative decimal integer to Thai digits.
func Encode(n int) string {
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return string(thaiDigits[0])
	}
	var b strings.Builder
	for _, r := range fmt.Sprintf("%d", n) {
		b.WriteRune(thaiDigits[r-'0'])
	}
	return b.String()
}

// EncodePadded converts n to Thai digits left-padded with ๐ to at least
// width runes. Values wider than width keep all their digits.
func EncodePadded(n, width int) string {
	encoded := Encode(n)
	for pad := width - len([]rune(encoded)); pad > 0; pad-- {
		encoded = string(thaiDigits[0]) + encoded
	}
	return encoded
}

// Decode converts a Thai digit string back to its decimal value.
func Decode(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("decode numeral: empty string")
	}
	value := 0
	for _, r := range s {
		digit := -1
		for d, td := range thaiDigits {
			if r == td {
				digit = d
				break
			}
		}
		if digit < 0 {
			return 0, fmt.Errorf("decode numeral: unexpected rune %q", r)
		}
		value = value*10 + digit
	}
	return value, nil
}
