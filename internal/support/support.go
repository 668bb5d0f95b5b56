// Package support is the member help desk: frequently asked questions,
// tickets answered by admins, and the help and about screens.
package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/jalali"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/uploads"
)

const StateTicketMessage state.State = "waiting_for_ticket_message"

const (
	TokenFAQ     = "user_faq"
	TokenAsk     = "ask_ticket"
	TokenTickets = "user_tickets"
	TokenHelp    = "user_help"
	TokenAbout   = "user_about"

	kindFAQ    = "faq"
	kindTicket = "view_ticket"
	// ticketListSize caps the tickets a member can page through.
	ticketListSize = 20
)

const (
	msgNoFAQ         = "📭 هیچ سوال متداولی وجود ندارد."
	msgFAQList       = "❓ سوالات متداول:"
	msgFAQ           = "❓ سوال:\n%s\n\n📝 پاسخ:\n%s"
	msgAsk           = "لطفا سوال یا پیام خود را ارسال کنید (می‌توانید عکس/فایل هم بفرستید):"
	msgAskEmpty      = "❌ پیام خالی است. لطفاً متن یا فایل ارسال کنید:"
	msgAskTooLong    = "❌ پیام بیش از حد طولانی است. لطفا کوتاه‌تر بنویسید:"
	msgMediaOnly     = "پیام رسانه‌ای (عکس/فایل)"
	msgTicketSaved   = "✅ تیکت شما ثبت شد. ادمین‌ها به زودی پاسخ می‌دهند."
	msgTicketNotice  = "🔔 تیکت جدید\nکاربر: %d\nشناسه تیکت: #%d\n\n%s"
	msgNoTickets     = "📭 تیکتی برای پیگیری وجود ندارد."
	msgTicketList    = "📨 پیگیری تیکت‌ها:"
	msgTicketDetail  = "📨 تیکت #%d\n📆 تاریخ: %s\n📊 وضعیت: %s\n\nمتن شما:\n%s"
	msgTicketAnswer  = "\n\nپاسخ ادمین:\n%s\n🕒 زمان پاسخ: %s"
	ticketOpenLabel  = "⏳ باز"
	ticketCloseLabel = "✅ بسته"
)

// Store is the storage the help desk reads and writes.
type Store interface {
	storage.FAQs
	storage.Tickets
	storage.Settings
}

// Deps are the collaborators of the help desk.
type Deps struct {
	Store    Store
	Notifier *notify.Notifier
	Files    uploads.Rules
}

// Flow is the help desk.
type Flow struct {
	d Deps
}

// New returns the flow. A zero Files rule set gets the receipt limits.
func New(d Deps) *Flow {
	if d.Files.MaxBytes == 0 {
		d.Files = uploads.Receipt(0)
	}
	return &Flow{d: d}
}

func home() conversation.Keyboard {
	return conversation.Rows(conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu))
}

// Register installs the help desk routes and the ticket step.
func (f *Flow) Register(e *conversation.Engine) {
	e.Step(conversation.Step{
		State:    StateTicketMessage,
		Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
		Prompt:   msgAsk,
		Keyboard: conversation.Rows(conversation.Btn("❌ لغو", conversation.TokenCancel)),
		Handle:   f.onTicketMessage,
	})
	e.On(TokenFAQ, f.onFAQList)
	e.OnID(kindFAQ+"_page_", f.onFAQList)
	e.OnID(kindFAQ+"_", f.onFAQ)
	e.On(TokenAsk, func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateTicketMessage, nil)
	})
	e.On(TokenTickets, f.onTickets)
	e.OnID(kindTicket+"_page_", f.onTickets)
	e.OnID(kindTicket+"_", f.onTicket)
	e.On(TokenHelp, f.Help())
	e.On(TokenAbout, f.text(domain.SettingAboutText, domain.DefaultAboutText))
}

// Help answers the help button and the /help command.
func (f *Flow) Help() conversation.Handler {
	return f.text(domain.SettingHelpText, domain.DefaultHelpText)
}

func (f *Flow) text(key, def string) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		v, ok, err := f.d.Store.GetSetting(ctx, key)
		if err != nil {
			logger.Warn(ctx, logger.CompConv, "setting.read_failed", slog.String("key", key), slog.String("err", err.Error()))
		}
		if !ok || v == "" {
			v = def
		}
		return t.Reply(ctx, v, home())
	}
}

func (f *Flow) onFAQList(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	faqs, err := f.d.Store.ListFAQs(ctx)
	if err != nil {
		return err
	}
	ask := conversation.Row(conversation.Btn("📬 ارسال سوال جدید", TokenAsk))
	if len(faqs) == 0 {
		return t.Reply(ctx, msgNoFAQ, conversation.Keyboard{ask, home()[0]})
	}
	items := make([]conversation.Item, 0, len(faqs))
	for _, q := range faqs {
		items = append(items, conversation.Item{ID: q.ID, Label: q.Question})
	}
	kb := conversation.Paginate(items, kindFAQ, int(t.ID()), conversation.PerPage)
	return t.Reply(ctx, msgFAQList, append(conversation.Keyboard{ask}, kb...))
}

func (f *Flow) onFAQ(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	q, err := f.d.Store.GetFAQ(ctx, t.ID())
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	if err != nil {
		return err
	}
	return t.Reply(ctx, fmt.Sprintf(msgFAQ, q.Question, q.Answer), conversation.Rows(
		conversation.Btn("🔙 بازگشت به سوالات", TokenFAQ),
		conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu),
	))
}

func (f *Flow) onTicketMessage(ctx context.Context, t *conversation.Turn) error {
	text := conversation.Clean(t.Text())
	file := t.File()
	if text == "" && file == nil {
		return domain.Invalid("message", msgAskEmpty)
	}
	tk := domain.Ticket{UserID: t.UserID(), Message: text, CreatedAt: t.Now()}
	if file != nil {
		if err := f.d.Files.Check(*file); err != nil {
			return err
		}
		tk.FileID = file.ID
		if tk.Message == "" {
			tk.Message = msgMediaOnly
		}
	}
	if err := domain.ValidateStruct(tk, msgAskTooLong); err != nil {
		return err
	}
	id, err := f.d.Store.CreateTicket(ctx, tk)
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "ticket.created", slog.Int64("ticket_id", id))
	if f.d.Notifier != nil {
		n := notify.Notice{
			Key:      domain.NotifyTicket,
			Text:     fmt.Sprintf(msgTicketNotice, t.UserID(), id, tk.Message),
			Keyboard: conversation.Rows(conversation.Btn("✉️ پاسخ", conversation.Token(admin.TokenTicketReply, id))),
		}
		if tk.FileID != "" {
			n.File = &conversation.Attachment{FileID: tk.FileID, Photo: file.Photo}
		}
		f.d.Notifier.Broadcast(ctx, n)
	}
	return t.Finish(ctx, msgTicketSaved, t.Home())
}

func statusLabel(s domain.TicketStatus) string {
	if s == domain.TicketClosed {
		return ticketCloseLabel
	}
	return ticketOpenLabel
}

func (f *Flow) onTickets(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	tickets, err := f.d.Store.ListUserTickets(ctx, t.UserID())
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return t.Reply(ctx, msgNoTickets, home())
	}
	tickets = tickets[:min(len(tickets), ticketListSize)]
	items := make([]conversation.Item, 0, len(tickets))
	for _, tk := range tickets {
		items = append(items, conversation.Item{
			ID:    tk.ID,
			Label: fmt.Sprintf("#%d — %s — %s", tk.ID, statusLabel(tk.Status), preview(tk.Message, 28)),
		})
	}
	return t.Reply(ctx, msgTicketList, conversation.Paginate(items, kindTicket, int(t.ID()), conversation.PerPage))
}

func (f *Flow) onTicket(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	tk, err := f.d.Store.GetTicket(ctx, t.ID())
	if errors.Is(err, domain.ErrNotFound) || (err == nil && tk.UserID != t.UserID()) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, msgTicketDetail, tk.ID, jalali.Format(tk.CreatedAt.Unix()), statusLabel(tk.Status), tk.Message)
	if tk.AdminReply != "" {
		at := "-"
		if tk.RepliedAt != nil {
			at = jalali.Format(tk.RepliedAt.Unix())
		}
		fmt.Fprintf(&b, msgTicketAnswer, tk.AdminReply, at)
	}
	return t.Reply(ctx, b.String(), conversation.Rows(
		conversation.Btn("🔙 بازگشت", conversation.PageToken(kindTicket, 0)),
		conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu),
	))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
