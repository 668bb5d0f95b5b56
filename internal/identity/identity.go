// Package identity validates the Iranian national identifier and normalizes
// mobile numbers and amounts entered by users.
package identity

import (
	"strconv"
	"strings"

	"github.com/m3rciful/assocbot/internal/jalali"
)

// NationalIDLength is the fixed number of digits in a national identifier.
const NationalIDLength = 10

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidNationalID applies the modulo-11 checksum. The first nine digits are
// weighted 10..2, r is the weighted sum mod 11 and the check digit must equal
// r when r < 2, else 11-r. Strings of one repeated digit pass the checksum
// arithmetically but are never issued, so they are rejected.
func ValidNationalID(id string) bool {
	if len(id) != NationalIDLength || !IsDigits(id) {
		return false
	}
	if strings.Count(id, id[:1]) == NationalIDLength {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(id[i]-'0') * (10 - i)
	}
	r := sum % 11
	check := r
	if r >= 2 {
		check = 11 - r
	}
	return check == int(id[9]-'0')
}

// NormalizeNationalID converts native digits and strips spaces and dashes.
func NormalizeNationalID(s string) string {
	s = jalali.NormalizeDigits(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// NormalizePhone reduces a mobile number to its 10 significant digits:
// "+98" and one leading zero are removed along with spaces and dashes.
// The boolean is false when the result is not exactly 10 digits.
func NormalizePhone(s string) (string, bool) {
	s = jalali.NormalizeDigits(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)
	s = strings.TrimPrefix(s, "+98")
	s = strings.TrimPrefix(s, "0")
	if len(s) != 10 || !IsDigits(s) {
		return s, false
	}
	return s, true
}

// ParseAmount reads a non-negative toman amount. Thousands separators,
// spaces and native digits are accepted.
func ParseAmount(s string) (int64, bool) {
	s = jalali.NormalizeDigits(strings.TrimSpace(s))
	s = strings.NewReplacer(",", "", "٬", "", "،", "", " ", "").Replace(s)
	if !IsDigits(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
