// Package router bridges Telegram updates into the conversation engine.
package router

import (
	"strings"

	"github.com/m3rciful/assocbot/core/telegram/callbacks"
	"github.com/m3rciful/assocbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// ToUpdate converts a Telegram context into an engine update. Updates
// without a sender, or of a shape the engine does not consume, are
// reported as not ok.
func ToUpdate(c tele.Context) (conversation.Update, bool) {
	user := c.Sender()
	if user == nil {
		return conversation.Update{}, false
	}
	u := conversation.Update{
		UserID:   user.ID,
		ChatID:   user.ID,
		Username: user.Username,
		Name:     strings.TrimSpace(user.FirstName + " " + user.LastName),
	}
	if chat := c.Chat(); chat != nil {
		u.ChatID = chat.ID
	}

	if cb := c.Callback(); cb != nil {
		u.Kind = conversation.KindCallback
		u.Token = callbacks.Token(cb)
		return u, u.Token != ""
	}

	msg := c.Message()
	if msg == nil {
		return conversation.Update{}, false
	}
	switch {
	case msg.Document != nil:
		doc := msg.Document
		u.Kind = conversation.KindFile
		u.Text = msg.Caption
		u.File = &conversation.File{
			ID:   doc.FileID,
			Name: doc.FileName,
			MIME: doc.MIME,
			Size: doc.FileSize,
		}
	case msg.Photo != nil:
		u.Kind = conversation.KindFile
		u.Text = msg.Caption
		u.File = &conversation.File{
			ID:    msg.Photo.FileID,
			Size:  msg.Photo.FileSize,
			MIME:  "image/jpeg",
			Photo: true,
		}
	case msg.Text != "":
		u.Kind = conversation.KindText
		u.Text = msg.Text
	default:
		return conversation.Update{}, false
	}
	return u, true
}
