// Package format renders values for chat messages.
package format

import "strconv"

// Amount renders n with comma thousands separators: 1234567 → "1,234,567".
func Amount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3+1)
	if neg {
		out = append(out, '-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	out = append(out, s[:lead]...)
	for i := lead; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

// Toman renders n as "1,234 تومان".
func Toman(n int64) string { return Amount(n) + " تومان" }
