package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	StateTicketReply state.State = "admin_waiting_ticket_reply"
	StateFAQQuestion state.State = "admin_waiting_faq_question"
	StateFAQAnswer   state.State = "admin_waiting_faq_answer"
)

const (
	TokenTickets     = "admin_tickets"
	kindTicketReply  = "ticket_reply"
	// TokenTicketReply opens the reply step of a ticket.
	TokenTicketReply = kindTicketReply + "_"
	TokenFAQ         = "admin_faq"
	tokenAddFAQ      = "admin_add_faq"
	tokenEditFAQ     = "admin_edit_faq_"
	tokenDelFAQ      = "admin_del_faq_"
	keyTicket        = "ticket_id"
	keyTicketPreview = "ticket_message"
	keyFAQ           = "faq_id"
	keyQuestion      = "question"
	// keepValue leaves a field unchanged while editing.
	keepValue = "-"
)

const (
	msgNoTickets      = "📭 هیچ تیکت بازی وجود ندارد."
	msgTicketList     = "📬 تیکت‌های باز:"
	msgTicketReply    = "🎫 تیکت #%d:\n%s\n\nلطفا پاسخ خود را ارسال کنید:"
	msgTicketAnswer   = "📬 پاسخ ادمین به تیکت شما:\n\n%s"
	msgTicketClosed   = "✅ پاسخ ارسال شد و تیکت بسته شد."
	msgTicketUndelivr = "⚠️ تیکت بسته شد اما ارسال پاسخ به کاربر ناموفق بود."
	msgFAQList        = "❓ سوالات متداول:"
	msgFAQQuestion    = "❓ لطفا سوال را ارسال کنید:"
	msgFAQEdit        = "سوال فعلی:\n%s\n\nپاسخ فعلی:\n%s\n\n✏️ سوال جدید را ارسال کنید (برای حفظ سوال فعلی «-» بفرستید):"
	msgFAQAnswer      = "📝 لطفا پاسخ سوال را ارسال کنید:"
	msgFAQAnswerEdit  = "📝 لطفا پاسخ جدید را ارسال کنید (برای حفظ پاسخ فعلی «-» بفرستید):"
	msgFAQAdded       = "✅ سوال متداول اضافه شد."
	msgFAQEdited      = "✅ سوال ویرایش شد."
	msgFAQDeleted     = "✅ سوال حذف شد."
	msgTooLong        = "❌ متن بیش از حد طولانی است. لطفا کوتاه‌تر بنویسید:"
	maxFAQText        = 2000
)

func (f *Flow) registerSupport(e *conversation.Engine, only guard) {
	cancel := conversation.Rows(conversation.Btn("❌ لغو", conversation.TokenCancel))
	e.Step(
		conversation.Step{
			State:    StateTicketReply,
			Requires: []string{keyTicket},
			Keyboard: cancel,
			Render: func(d state.Data) (string, conversation.Keyboard) {
				id, _ := d.Int64(keyTicket)
				return fmt.Sprintf(msgTicketReply, id, d.String(keyTicketPreview)), cancel
			},
			Handle: f.onTicketReply,
		},
		conversation.Step{
			State:    StateFAQQuestion,
			Next:     []state.State{StateFAQAnswer},
			Keyboard: cancel,
			Render: func(d state.Data) (string, conversation.Keyboard) {
				if d.Has(keyFAQ) {
					return fmt.Sprintf(msgFAQEdit, d.String("current_question"), d.String("current_answer")), cancel
				}
				return msgFAQQuestion, cancel
			},
			Handle: f.onFAQQuestion,
		},
		conversation.Step{
			State:    StateFAQAnswer,
			Requires: []string{keyQuestion},
			Keyboard: cancel,
			Render: func(d state.Data) (string, conversation.Keyboard) {
				if d.Has(keyFAQ) {
					return msgFAQAnswerEdit, cancel
				}
				return msgFAQAnswer, cancel
			},
			Handle: f.onFAQAnswer,
		},
	)
	e.On(TokenTickets, only(f.onTickets))
	e.OnID(kindTicketReply+"_page_", only(f.onTickets))
	e.OnID(kindTicketReply+"_", only(f.onTicketPick))
	e.On(TokenFAQ, only(f.onFAQList))
	e.On(tokenAddFAQ, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateFAQQuestion, nil)
	}))
	e.OnID(tokenEditFAQ, only(func(ctx context.Context, t *conversation.Turn) error {
		q, err := f.d.Store.GetFAQ(ctx, t.ID())
		if err != nil {
			return notFound(err)
		}
		t.Clear()
		return t.Enter(ctx, StateFAQQuestion, state.Data{
			keyFAQ:             q.ID,
			"current_question": q.Question,
			"current_answer":   q.Answer,
		})
	}))
	e.OnID(tokenDelFAQ, only(func(ctx context.Context, t *conversation.Turn) error {
		if err := f.d.Store.DeleteFAQ(ctx, t.ID()); err != nil {
			return notFound(err)
		}
		logger.Info(ctx, logger.CompConv, "faq.deleted", slog.Int64("faq_id", t.ID()))
		return f.replyFAQList(ctx, t, msgFAQDeleted)
	}))
}

func (f *Flow) onTickets(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	open, err := f.d.Store.ListOpenTickets(ctx)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return t.Reply(ctx, msgNoTickets, backToPanel())
	}
	items := make([]conversation.Item, 0, len(open))
	for _, tk := range open {
		items = append(items, conversation.Item{ID: tk.ID, Label: fmt.Sprintf("#%d — %s", tk.ID, truncate(tk.Message, 30))})
	}
	return t.Reply(ctx, msgTicketList, conversation.Paginate(items, kindTicketReply, int(t.ID()), conversation.PerPage))
}

// onTicketPick only gives early feedback on a closed ticket; ReplyTicket
// re-checks the status when the reply is committed.
func (f *Flow) onTicketPick(ctx context.Context, t *conversation.Turn) error {
	tk, err := f.d.Store.GetTicket(ctx, t.ID())
	if err != nil {
		return notFound(err)
	}
	if tk.Status != domain.TicketOpen {
		return &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(tk.Status)}
	}
	t.Clear()
	return t.Enter(ctx, StateTicketReply, state.Data{keyTicket: tk.ID, keyTicketPreview: truncate(tk.Message, 500)})
}

func (f *Flow) onTicketReply(ctx context.Context, t *conversation.Turn) error {
	reply := conversation.Clean(t.Text())
	if reply == "" {
		return domain.Invalid("admin_reply", msgEmptyText)
	}
	id, _ := t.Data().Int64(keyTicket)
	tk, err := f.d.Store.ReplyTicket(ctx, id, reply, t.UserID(), t.Now())
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "ticket.replied", slog.Int64("ticket_id", id))
	if err := t.Send(ctx, tk.UserID, fmt.Sprintf(msgTicketAnswer, reply), nil); err != nil {
		if ferr := t.Finish(ctx, msgTicketUndelivr, backToPanel()); ferr != nil {
			return ferr
		}
		return err
	}
	return t.Finish(ctx, msgTicketClosed, backToPanel())
}

func (f *Flow) onFAQList(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	return f.replyFAQList(ctx, t, "")
}

func (f *Flow) replyFAQList(ctx context.Context, t *conversation.Turn, header string) error {
	faqs, err := f.d.Store.ListFAQs(ctx)
	if err != nil {
		return err
	}
	kb := conversation.Keyboard{conversation.Row(conversation.Btn("➕ افزودن سوال جدید", tokenAddFAQ))}
	for _, q := range faqs {
		kb = append(kb, conversation.Row(
			conversation.Btn("✏️ "+truncate(q.Question, 30), conversation.Token(tokenEditFAQ, q.ID)),
			conversation.Btn("🗑️ حذف", conversation.Token(tokenDelFAQ, q.ID)),
		))
	}
	kb = append(kb, conversation.Row(conversation.Btn("🔙 بازگشت به پنل", TokenPanel)))
	text := msgFAQList
	if header != "" {
		text = header + "\n\n" + text
	}
	return t.Reply(ctx, text, kb)
}

func (f *Flow) onFAQQuestion(ctx context.Context, t *conversation.Turn) error {
	q := conversation.Clean(t.Text())
	if q == "" {
		return domain.Invalid(keyQuestion, msgEmptyText)
	}
	if q == keepValue && t.Data().Has(keyFAQ) {
		q = t.Data().String("current_question")
	}
	if len([]rune(q)) > maxFAQText {
		return domain.Invalid(keyQuestion, msgTooLong)
	}
	return t.Enter(ctx, StateFAQAnswer, state.Data{keyQuestion: q})
}

func (f *Flow) onFAQAnswer(ctx context.Context, t *conversation.Turn) error {
	a := conversation.Clean(t.Text())
	if a == "" {
		return domain.Invalid("answer", msgEmptyText)
	}
	d := t.Data()
	id, editing := d.Int64(keyFAQ)
	if a == keepValue && editing {
		a = d.String("current_answer")
	}
	q := domain.FAQ{ID: id, Question: d.String(keyQuestion), Answer: a}
	if err := domain.ValidateStruct(q, msgTooLong); err != nil {
		return err
	}
	saved, err := f.d.Store.SaveFAQ(ctx, q)
	if err != nil {
		return notFound(err)
	}
	logger.Info(ctx, logger.CompConv, "faq.saved", slog.Int64("faq_id", saved))
	t.Clear()
	if editing {
		return f.replyFAQList(ctx, t, msgFAQEdited)
	}
	return f.replyFAQList(ctx, t, msgFAQAdded)
}
