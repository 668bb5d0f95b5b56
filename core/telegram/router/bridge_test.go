package router

import (
	"context"
	"testing"

	tg "github.com/m3rciful/assocbot/core/telegram"
	"github.com/m3rciful/assocbot/core/telegram/commands"
	"github.com/m3rciful/assocbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return bot
}

func message(m *tele.Message) tele.Update {
	if m.Sender == nil {
		m.Sender = &tele.User{ID: 42, FirstName: "Sara", LastName: "K", Username: "sk"}
	}
	if m.Chat == nil {
		m.Chat = &tele.Chat{ID: 4242, Type: tele.ChatPrivate}
	}
	return tele.Update{ID: 1, Message: m}
}

func TestToUpdateText(t *testing.T) {
	c := offlineBot(t).NewContext(message(&tele.Message{Text: "hello"}))
	u, ok := ToUpdate(c)
	if !ok {
		t.Fatalf("expected text update")
	}
	if u.Kind != conversation.KindText || u.Text != "hello" {
		t.Fatalf("unexpected update: %+v", u)
	}
	if u.UserID != 42 || u.ChatID != 4242 || u.Name != "Sara K" || u.Username != "sk" {
		t.Fatalf("unexpected identity: %+v", u)
	}
}

func TestToUpdateDocument(t *testing.T) {
	doc := &tele.Document{File: tele.File{FileID: "doc-1", FileSize: 2048}, FileName: "Receipt.PDF", MIME: "application/pdf"}
	c := offlineBot(t).NewContext(message(&tele.Message{Document: doc, Caption: "receipt"}))
	u, ok := ToUpdate(c)
	if !ok || u.Kind != conversation.KindFile || u.File == nil {
		t.Fatalf("expected file update, got %+v", u)
	}
	if u.File.ID != "doc-1" || u.File.Size != 2048 || u.File.Ext() != "pdf" || u.Text != "receipt" {
		t.Fatalf("unexpected file: %+v %q", u.File, u.Text)
	}
}

func TestToUpdatePhoto(t *testing.T) {
	photo := &tele.Photo{File: tele.File{FileID: "ph-1", FileSize: 100}}
	c := offlineBot(t).NewContext(message(&tele.Message{Photo: photo}))
	u, ok := ToUpdate(c)
	if !ok || u.File == nil || !u.File.Photo || u.File.Ext() != "jpg" {
		t.Fatalf("expected photo update, got %+v", u)
	}
}

func TestToUpdateCallback(t *testing.T) {
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: 7},
		Message: &tele.Message{Chat: &tele.Chat{ID: 70}},
		Data:    "event_12",
	}
	c := offlineBot(t).NewContext(tele.Update{ID: 2, Callback: cb})
	u, ok := ToUpdate(c)
	if !ok || u.Kind != conversation.KindCallback || u.Token != "event_12" {
		t.Fatalf("unexpected callback update: %+v", u)
	}
	if u.UserID != 7 || u.ChatID != 70 {
		t.Fatalf("unexpected ids: %+v", u)
	}
}

func TestToUpdateUnsupported(t *testing.T) {
	c := offlineBot(t).NewContext(message(&tele.Message{Sticker: &tele.Sticker{}}))
	if _, ok := ToUpdate(c); ok {
		t.Fatalf("sticker must not convert")
	}
}

type recordingDispatcher struct {
	got []conversation.Update
}

func (r *recordingDispatcher) Handle(_ context.Context, u conversation.Update) (conversation.Result, error) {
	r.got = append(r.got, u)
	return conversation.Result{Route: u.Token}, nil
}

type admins map[int64]bool

func (a admins) IsAdmin(_ context.Context, id int64) bool { return a[id] }

func TestCommandsArePressedAsTokens(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Token: conversation.TokenMainMenu, Description: "menu"})
	reg.RegisterCommand("/admin", commands.Command{Token: "admin_panel", Description: "panel", AdminOnly: true})

	d := &recordingDispatcher{}
	rejected := 0
	b := &bridge{d: d, reg: reg, opts: Options{
		Admins:        admins{1: true},
		OnAdminReject: func(tele.Context) error { rejected++; return nil },
	}}
	bot := offlineBot(t)

	if err := b.onMessage(bot.NewContext(message(&tele.Message{Text: "/start@assocbot"}))); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(d.got) != 1 || d.got[0].Kind != conversation.KindCallback || d.got[0].Token != conversation.TokenMainMenu {
		t.Fatalf("start not pressed: %+v", d.got)
	}

	if err := b.onMessage(bot.NewContext(message(&tele.Message{Text: "/admin"}))); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if len(d.got) != 1 || rejected != 1 {
		t.Fatalf("non-admin must be rejected: got=%d rejected=%d", len(d.got), rejected)
	}

	adminMsg := message(&tele.Message{Text: "/admin", Sender: &tele.User{ID: 1}})
	if err := b.onMessage(bot.NewContext(adminMsg)); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if len(d.got) != 2 || d.got[1].Token != "admin_panel" {
		t.Fatalf("admin command not pressed: %+v", d.got)
	}

	if err := b.onMessage(bot.NewContext(message(&tele.Message{Text: "/unknown"}))); err != nil {
		t.Fatalf("unknown: %v", err)
	}
	if len(d.got) != 3 || d.got[2].Kind != conversation.KindText || d.got[2].Text != "/unknown" {
		t.Fatalf("unknown command must pass through as text: %+v", d.got)
	}
}
