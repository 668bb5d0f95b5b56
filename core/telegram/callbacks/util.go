// Package callbacks reads callback tokens from Telegram updates.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding. Plain
// data without the marker is returned whole as unique.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Token returns the routing token of cb. Buttons built from conversation
// keyboards carry the token as raw data; unique+payload pairs are joined.
func Token(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique + cb.Data
	}
	unique, payload := ParseCallbackData(cb)
	return unique + payload
}
