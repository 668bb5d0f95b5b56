package conversation

import (
	"strconv"
	"strings"
)

// maxIDDigits keeps ids inside int64 without relying on overflow errors.
const maxIDDigits = 18

// ParseID splits token into prefix and a trailing non-negative decimal id.
// Signs, spaces, empty ids and ids longer than 18 digits are rejected.
func ParseID(token, prefix string) (int64, bool) {
	if prefix == "" || !strings.HasPrefix(token, prefix) {
		return 0, false
	}
	raw := token[len(prefix):]
	if raw == "" || len(raw) > maxIDDigits {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Token joins prefix and id.
func Token(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
