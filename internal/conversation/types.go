// Package conversation is the state machine behind every multi-step chat
// flow. Message input is dispatched through a table keyed by the sender's
// current state; button presses are dispatched by callback token.
package conversation

import (
	"context"
	"strings"
)

// Kind is the shape of an inbound update.
type Kind int

const (
	KindText Kind = iota + 1
	KindFile
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFile:
		return "file"
	case KindCallback:
		return "callback"
	}
	return "unknown"
}

// File describes an attachment received from the platform.
type File struct {
	ID    string
	Name  string
	MIME  string
	Size  int64
	Photo bool
}

// Ext returns the lowercase extension without the dot. Photos are always jpg.
func (f File) Ext() string {
	if f.Photo {
		return "jpg"
	}
	i := strings.LastIndexByte(f.Name, '.')
	if i < 0 || i == len(f.Name)-1 {
		switch f.MIME {
		case "application/pdf":
			return "pdf"
		case "image/png":
			return "png"
		case "image/jpeg":
			return "jpg"
		}
		return ""
	}
	return strings.ToLower(f.Name[i+1:])
}

// Update is one inbound event, already stripped of platform types.
type Update struct {
	UserID   int64
	ChatID   int64
	Username string
	Name     string
	Kind     Kind
	// Text holds the message text or the caption of a file.
	Text  string
	File  *File
	Token string
}

// Button is an inline button carrying an opaque callback token.
type Button struct {
	Label string
	Token string
}

// Btn builds a Button.
func Btn(label, token string) Button { return Button{Label: label, Token: token} }

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

// Row builds one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Rows builds a keyboard with one button per row.
func Rows(buttons ...Button) Keyboard {
	kb := make(Keyboard, 0, len(buttons))
	for _, b := range buttons {
		kb = append(kb, []Button{b})
	}
	return kb
}

// Attachment is an outbound file. FileID reuses a platform-side file, Path
// uploads from disk.
type Attachment struct {
	FileID string
	Path   string
	Photo  bool
}

// Messenger is what the engine needs from the chat platform.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error
	SendFile(ctx context.Context, chatID int64, file Attachment, caption string, kb Keyboard) error
}
