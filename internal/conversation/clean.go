package conversation

import "strings"

// MaxTextRunes bounds free text before it is stored.
const MaxTextRunes = 2000

// Clean strips NUL bytes, collapses runs of whitespace and truncates to
// MaxTextRunes.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > MaxTextRunes {
		s = string(r[:MaxTextRunes])
	}
	return s
}
