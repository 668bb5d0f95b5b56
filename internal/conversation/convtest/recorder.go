// Package convtest provides an in-memory Messenger for flow tests.
package convtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/m3rciful/assocbot/internal/conversation"
)

// ErrBlocked is returned for chats listed in Recorder.Fail.
var ErrBlocked = errors.New("chat blocked")

// Message is one recorded outbound message.
type Message struct {
	ChatID   int64
	Text     string
	File     *conversation.Attachment
	Keyboard conversation.Keyboard
}

// Tokens lists every button token of the message.
func (m Message) Tokens() []string {
	var out []string
	for _, row := range m.Keyboard {
		for _, b := range row {
			out = append(out, b.Token)
		}
	}
	return out
}

// HasToken reports whether the keyboard carries token.
func (m Message) HasToken(token string) bool {
	for _, t := range m.Tokens() {
		if t == token {
			return true
		}
	}
	return false
}

// Recorder records messages instead of sending them.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	// Fail makes sends to these chats return ErrBlocked.
	Fail map[int64]bool
}

// New returns an empty Recorder.
func New() *Recorder { return &Recorder{Fail: map[int64]bool{}} }

func (r *Recorder) SendText(_ context.Context, chatID int64, text string, kb conversation.Keyboard) error {
	return r.record(Message{ChatID: chatID, Text: text, Keyboard: kb})
}

func (r *Recorder) SendFile(_ context.Context, chatID int64, file conversation.Attachment, caption string, kb conversation.Keyboard) error {
	return r.record(Message{ChatID: chatID, Text: caption, File: &file, Keyboard: kb})
}

func (r *Recorder) record(m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[m.ChatID] {
		return ErrBlocked
	}
	r.msgs = append(r.msgs, m)
	return nil
}

// To returns messages delivered to chatID.
func (r *Recorder) To(chatID int64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.msgs {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the newest message to chatID.
func (r *Recorder) Last(chatID int64) (Message, bool) {
	msgs := r.To(chatID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Contains reports whether any message to chatID contains substr.
func (r *Recorder) Contains(chatID int64, substr string) bool {
	for _, m := range r.To(chatID) {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Len counts all recorded messages.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// Reset drops recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

// Text builds a text update.
func Text(user int64, text string) conversation.Update {
	return conversation.Update{UserID: user, ChatID: user, Kind: conversation.KindText, Text: text}
}

// Press builds a callback update.
func Press(user int64, token string) conversation.Update {
	return conversation.Update{UserID: user, ChatID: user, Kind: conversation.KindCallback, Token: token}
}

// Upload builds a file update.
func Upload(user int64, f conversation.File) conversation.Update {
	return conversation.Update{UserID: user, ChatID: user, Kind: conversation.KindFile, File: &f}
}
