package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/format"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
	"github.com/m3rciful/assocbot/internal/jalali"
	"github.com/m3rciful/assocbot/internal/moderation"
)

const (
	StateWaitingDeadline state.State = "admin_waiting_deadline"
	StateWaitingCapacity state.State = "admin_waiting_capacity"
)

const (
	tokenDeadline      = "admin_ev_deadline_"
	tokenClearDeadline = "admin_ev_clear_deadline_"
	tokenCapacity      = "admin_ev_capacity_"
	tokenSingle        = "admin_ev_single_"
	tokenActive        = "admin_ev_active_"
	keyEvent           = "event_id"
)

const (
	msgNoEvents        = "📭 هیچ رویدادی وجود ندارد."
	msgEventList       = "📋 رویدادها:"
	msgDeadlinePrompt  = "⏱️ مهلت ثبت‌نام را به تاریخ شمسی وارد کنید (مثال: 1403/07/01 18:30):"
	msgDeadlineFormat  = "❌ فرمت نادرست است. نمونه معتبر: 1403/07/01 18:30"
	msgDeadlineSaved   = "✅ مهلت ثبت‌نام تنظیم شد."
	msgDeadlineCleared = "✅ مهلت ثبت‌نام حذف شد."
	msgCapacityPrompt  = "👥 ظرفیت رویداد را وارد کنید (عدد، یا -1 برای بدون محدودیت):"
	msgCapacitySaved   = "✅ ظرفیت رویداد تنظیم شد."
)

func (f *Flow) registerEventSettings(e *conversation.Engine, only guard) {
	e.Step(
		adminStep(StateWaitingDeadline, msgDeadlinePrompt, []string{keyEvent}, nil, f.onDeadline),
		adminStep(StateWaitingCapacity, msgCapacityPrompt, []string{keyEvent}, nil, f.onCapacity),
	)
	e.OnID(TokenEvents+"_page_", only(f.onEventList))
	e.OnID(TokenEvents+"_", only(f.onEventCard))
	e.OnID(tokenDeadline, only(f.waitFor(StateWaitingDeadline)))
	e.OnID(tokenCapacity, only(f.waitFor(StateWaitingCapacity)))
	e.OnID(tokenClearDeadline, only(func(ctx context.Context, t *conversation.Turn) error {
		if err := f.d.Store.SetDeadline(ctx, t.ID(), nil, t.UserID()); err != nil {
			return notFound(err)
		}
		return f.showEvent(ctx, t, t.ID(), msgDeadlineCleared)
	}))
	e.OnID(tokenSingle, only(f.toggle(func(ctx context.Context, ev domain.Event) error {
		return f.d.Store.SetSingleRegistration(ctx, ev.ID, !ev.SingleRegistration)
	})))
	e.OnID(tokenActive, only(f.toggle(func(ctx context.Context, ev domain.Event) error {
		return f.d.Store.SetActive(ctx, ev.ID, !ev.IsActive)
	})))
}

func eventKeyboard(ev domain.Event) conversation.Keyboard {
	single := "🔁 ثبت‌نام تکراری: مجاز"
	if ev.SingleRegistration {
		single = "1️⃣ ثبت‌نام تکراری: غیرمجاز"
	}
	active := "🟢 فعال"
	if !ev.IsActive {
		active = "⚪️ آرشیو"
	}
	return conversation.Keyboard{
		conversation.Row(
			conversation.Btn("✏️ ویرایش عنوان", conversation.Token(tokenEditTitle, ev.ID)),
			conversation.Btn("📝 ویرایش توضیحات", conversation.Token(tokenEditDesc, ev.ID)),
		),
		conversation.Row(
			conversation.Btn("💳 ویرایش شماره کارت", conversation.Token(tokenEditCard, ev.ID)),
			conversation.Btn("🖼️ ویرایش پوستر", conversation.Token(tokenEditPoster, ev.ID)),
		),
		conversation.Row(
			conversation.Btn("⏱️ تنظیم مهلت", conversation.Token(tokenDeadline, ev.ID)),
			conversation.Btn("🗑 حذف مهلت", conversation.Token(tokenClearDeadline, ev.ID)),
		),
		conversation.Row(
			conversation.Btn("👥 ظرفیت", conversation.Token(tokenCapacity, ev.ID)),
			conversation.Btn("📊 آمار", conversation.Token(tokenEventStats, ev.ID)),
		),
		conversation.Row(conversation.Btn(single, conversation.Token(tokenSingle, ev.ID))),
		conversation.Row(conversation.Btn(active, conversation.Token(tokenActive, ev.ID))),
		conversation.Row(
			conversation.Btn("✅ تایید گروهی در انتظار", conversation.Token(moderation.TokenBulkReg, ev.ID)),
			conversation.Btn("🔔 یادآوری به تاییدشدگان", conversation.Token(tokenRemind, ev.ID)),
		),
		conversation.Row(
			conversation.Btn("✉️ پیام به تاییدشدگان", conversation.Token(tokenMessageApproved, ev.ID)),
			conversation.Btn("✉️ پیام به ردشدگان", conversation.Token(tokenMessageRejected, ev.ID)),
		),
		conversation.Row(conversation.Btn("🔙 بازگشت به پنل", TokenPanel)),
	}
}

// EventCard renders the admin view of ev.
func EventCard(ev domain.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 #%d %s\n", ev.ID, ev.Title)
	switch ev.CostType {
	case domain.CostFree:
		b.WriteString("💰 رایگان")
		if ev.CertFee > 0 || ev.CertFeeStudent > 0 {
			fmt.Fprintf(&b, " (گواهی: %s / %s)", format.Toman(firstNonZero(ev.CertFeeStudent, ev.CertFee)), format.Toman(firstNonZero(ev.CertFeeNonStudent, ev.CertFee)))
		}
	case domain.CostFixed:
		fmt.Fprintf(&b, "💰 %s", format.Toman(ev.FixedCost))
	case domain.CostVariable:
		fmt.Fprintf(&b, "💰 دانشجو %s / غیر دانشجو %s", format.Toman(ev.StudentCost), format.Toman(ev.NonStudentCost))
	}
	b.WriteString("\n👥 ظرفیت: ")
	if ev.Unlimited() {
		b.WriteString("نامحدود")
	} else {
		b.WriteString(strconv.Itoa(*ev.Capacity))
	}
	b.WriteString("\n⏱️ مهلت: ")
	if ev.EndAtTS != nil {
		b.WriteString(jalali.Format(*ev.EndAtTS))
	} else {
		b.WriteString("ندارد")
	}
	return b.String()
}

func firstNonZero(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

func notFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	return err
}

func (f *Flow) showEvent(ctx context.Context, t *conversation.Turn, id int64, header string) error {
	ev, err := f.d.Store.GetEvent(ctx, id)
	if err != nil {
		return notFound(err)
	}
	text := EventCard(ev)
	if header != "" {
		text = header + "\n\n" + text
	}
	return t.Reply(ctx, text, eventKeyboard(ev))
}

func (f *Flow) onEventList(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	active, err := f.d.Store.ListEvents(ctx, true)
	if err != nil {
		return err
	}
	archived, err := f.d.Store.ListEvents(ctx, false)
	if err != nil {
		return err
	}
	all := append(append([]domain.Event(nil), active...), archived...)
	if len(all) == 0 {
		return t.Reply(ctx, msgNoEvents, backToPanel())
	}
	items := make([]conversation.Item, 0, len(all))
	for _, ev := range all {
		label := ev.Title
		if !ev.IsActive {
			label = "🗄 " + label
		}
		items = append(items, conversation.Item{ID: ev.ID, Label: truncate(label, submissionPreview)})
	}
	return t.Reply(ctx, msgEventList, conversation.Paginate(items, TokenEvents, int(t.ID()), conversation.PerPage))
}

func (f *Flow) onEventCard(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	return f.showEvent(ctx, t, t.ID(), "")
}

func (f *Flow) waitFor(st state.State) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		if _, err := f.d.Store.GetEvent(ctx, t.ID()); err != nil {
			return notFound(err)
		}
		t.Clear()
		return t.Enter(ctx, st, state.Data{keyEvent: t.ID()})
	}
}

func (f *Flow) toggle(apply func(context.Context, domain.Event) error) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		ev, err := f.d.Store.GetEvent(ctx, t.ID())
		if err != nil {
			return notFound(err)
		}
		if err := apply(ctx, ev); err != nil {
			return notFound(err)
		}
		logger.Info(ctx, logger.CompConv, "event.toggled",
			slog.Int64("event_id", ev.ID),
			slog.String("route", t.Update().Token),
		)
		return f.showEvent(ctx, t, ev.ID, "")
	}
}

func (f *Flow) onDeadline(ctx context.Context, t *conversation.Turn) error {
	ts, err := jalali.Parse(t.Text())
	if err != nil {
		return domain.Invalid("deadline", msgDeadlineFormat)
	}
	id, _ := t.Data().Int64(keyEvent)
	if err := f.d.Store.SetDeadline(ctx, id, &ts, t.UserID()); err != nil {
		return notFound(err)
	}
	logger.Info(ctx, logger.CompConv, "event.deadline_set",
		slog.Int64("event_id", id),
		slog.Int64("end_at_ts", ts),
	)
	t.Clear()
	return f.showEvent(ctx, t, id, msgDeadlineSaved)
}

// unlimitedCapacity is the admin input that removes the ceiling.
const unlimitedCapacity = "-1"

func (f *Flow) onCapacity(ctx context.Context, t *conversation.Turn) error {
	var capacity *int
	if raw := jalali.NormalizeDigits(t.Text()); raw != unlimitedCapacity {
		n, ok := identity.ParseAmount(raw)
		if !ok || n > 1_000_000 {
			return domain.Invalid("capacity", msgNumber)
		}
		c := int(n)
		capacity = &c
	}
	id, _ := t.Data().Int64(keyEvent)
	if err := f.d.Store.SetCapacity(ctx, id, capacity); err != nil {
		return notFound(err)
	}
	t.Clear()
	return f.showEvent(ctx, t, id, msgCapacitySaved)
}
