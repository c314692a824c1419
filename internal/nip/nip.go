// Package nip validates Polish taxpayer identification numbers.
//
// A NIP has ten digits. The last one is a check digit: the first nine digits
// are multiplied by fixed weights, summed, and reduced modulo 11. A remainder
// of 10 can never be a valid check digit.
package nip

import (
	"regexp"
	"strings"
)

var weights = [9]int{6, 5, 7, 2, 3, 4, 5, 6, 7}

var tenDigits = regexp.MustCompile(`^\d{10}$`)

// Clean strips a leading "PL" country prefix (any case) and all spaces and
// dashes. The result is not guaranteed to be ten digits.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "PL") {
		s = s[2:]
	}
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// Checksum returns the weighted mod-11 checksum of a ten-digit string. The
// boolean is false when digits is not exactly ten ASCII digits.
func Checksum(digits string) (int, bool) {
	if !tenDigits.MatchString(digits) {
		return 0, false
	}
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	return sum % 11, true
}

// Valid reports whether digits is a ten-digit NIP with a correct check digit.
func Valid(digits string) bool {
	check, ok := Checksum(digits)
	if !ok || check == 10 {
		return false
	}
	return check == int(digits[9]-'0')
}
