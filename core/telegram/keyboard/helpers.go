// Package keyboard converts conversation keyboards to Telegram markup.
package keyboard

import (
	"github.com/m3rciful/assocbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// MaxCallbackData is Telegram's limit on callback data bytes.
const MaxCallbackData = 64

// Inline builds inline markup with each button's token as raw callback data.
// A nil or empty keyboard yields nil so no markup is sent.
func Inline(kb conversation.Keyboard) *tele.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, len(kb))
	for _, row := range kb {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			data := b.Token
			if len(data) > MaxCallbackData {
				data = data[:MaxCallbackData]
			}
			r = append(r, tele.InlineButton{Text: b.Label, Data: data})
		}
		rows = append(rows, r)
	}
	markup.InlineKeyboard = rows
	return markup
}
