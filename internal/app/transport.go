package app

import (
	"context"
	"fmt"
	"io"

	"github.com/m3rciful/assocbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/assocbot/core/telegram/sender"
	"github.com/m3rciful/assocbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Transport delivers engine output through the bot and fetches received
// files. Calls go through the dispatcher so transient failures are retried.
type Transport struct {
	bot *tele.Bot
	out *tgsender.Dispatcher
}

// NewTransport returns a Transport over bot.
func NewTransport(bot *tele.Bot, out *tgsender.Dispatcher) *Transport {
	return &Transport{bot: bot, out: out}
}

func sendOptions(kb conversation.Keyboard) []any {
	if markup := keyboard.Inline(kb); markup != nil {
		return []any{markup}
	}
	return nil
}

// SendText sends a text message.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string, kb conversation.Keyboard) error {
	return t.out.Do(ctx, "send_text", "sendMessage", func() error {
		_, err := t.bot.Send(tele.ChatID(chatID), text, sendOptions(kb)...)
		return err
	})
}

// SendFile sends a document or a photo, by platform id or from disk.
func (t *Transport) SendFile(ctx context.Context, chatID int64, file conversation.Attachment, caption string, kb conversation.Keyboard) error {
	var src tele.File
	switch {
	case file.FileID != "":
		src = tele.File{FileID: file.FileID}
	case file.Path != "":
		src = tele.FromDisk(file.Path)
	default:
		return fmt.Errorf("send file: empty attachment")
	}

	var what tele.Sendable = &tele.Document{File: src, Caption: caption}
	endpoint := "sendDocument"
	if file.Photo {
		what = &tele.Photo{File: src, Caption: caption}
		endpoint = "sendPhoto"
	}
	return t.out.Do(ctx, "send_file", endpoint, func() error {
		_, err := t.bot.Send(tele.ChatID(chatID), what, sendOptions(kb)...)
		return err
	})
}

// Fetch streams the platform file fileID into w. Only opening the file is
// retried; a failed copy is returned as is.
func (t *Transport) Fetch(ctx context.Context, fileID string, w io.Writer) error {
	var rc io.ReadCloser
	err := t.out.Do(ctx, "fetch_file", "getFile", func() error {
		var err error
		rc, err = t.bot.File(&tele.File{FileID: fileID})
		return err
	})
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}
