package admin

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	StateEditTitle  state.State = "admin_waiting_edit_title"
	StateEditDesc   state.State = "admin_waiting_edit_desc"
	StateEditCard   state.State = "admin_waiting_edit_card"
	StateEditPoster state.State = "admin_waiting_new_poster"
)

const (
	TokenStats      = "admin_stats"
	tokenEditTitle  = "admin_ev_title_"
	tokenEditDesc   = "admin_ev_desc_"
	tokenEditCard   = "admin_ev_card_"
	tokenEditPoster = "admin_ev_poster_"
	tokenEventStats = "admin_ev_stats_"
	maxTitleRunes   = 200
)

const (
	msgEditTitle     = "📌 لطفا عنوان جدید را ارسال کنید:"
	msgEditDesc      = "📝 لطفا توضیحات جدید را ارسال کنید:"
	msgEditCard      = "💳 لطفا شماره کارت جدید را ارسال کنید:"
	msgEditPoster    = "🖼️ لطفاً پوستر جدید را ارسال کنید (عکس):"
	msgNeedPhoto     = "❌ لطفا پوستر را به صورت عکس ارسال کنید:"
	msgTitleSaved    = "✅ عنوان با موفقیت ویرایش شد."
	msgDescSaved     = "✅ توضیحات با موفقیت ویرایش شد."
	msgCardSaved     = "✅ شماره کارت با موفقیت ویرایش شد."
	msgPosterSaved   = "✅ پوستر رویداد به‌روزرسانی شد."
	msgTooLongText   = "❌ متن بیش از حد طولانی است. لطفا کوتاه‌تر بنویسید:"
	msgStatsList     = "📈 آمار بر اساس رویداد:"
	msgEventStats    = "📊 آمار رویداد: %s\n\n✅ تایید شده: %d\n❌ رد شده: %d\n⏳ در انتظار: %d\n👥 مجموع: %d"
	msgStatsCapacity = "\n🎯 ظرفیت باقی‌مانده: %d"
)

func (f *Flow) registerEventEdit(e *conversation.Engine, only guard) {
	e.Step(
		adminStep(StateEditTitle, msgEditTitle, []string{keyEvent}, nil,
			f.editText(domain.FieldTitle, maxTitleRunes, msgTitleSaved)),
		adminStep(StateEditDesc, msgEditDesc, []string{keyEvent}, nil,
			f.editText(domain.FieldDescription, conversation.MaxTextRunes, msgDescSaved)),
		adminStep(StateEditCard, msgEditCard, []string{keyEvent}, nil, f.onEditCard),
		conversation.Step{
			State:     StateEditPoster,
			Accepts:   []conversation.Kind{conversation.KindFile},
			WrongKind: msgNeedPhoto,
			Requires:  []string{keyEvent},
			Prompt:    msgEditPoster,
			Keyboard:  conversation.Rows(conversation.Btn("❌ لغو", conversation.TokenCancel)),
			Handle:    f.onEditPoster,
		},
	)
	e.OnID(tokenEditTitle, only(f.waitFor(StateEditTitle)))
	e.OnID(tokenEditDesc, only(f.waitFor(StateEditDesc)))
	e.OnID(tokenEditCard, only(f.waitFor(StateEditCard)))
	e.OnID(tokenEditPoster, only(f.waitFor(StateEditPoster)))
	e.On(TokenStats, only(f.onStatsList))
	e.OnID(TokenStats+"_page_", only(f.onStatsList))
	e.OnID(TokenStats+"_", only(f.onEventStats))
	e.OnID(tokenEventStats, only(f.onEventStats))
}

func (f *Flow) saveField(ctx context.Context, t *conversation.Turn, field domain.EventField, value, saved string) error {
	id, _ := t.Data().Int64(keyEvent)
	if err := f.d.Store.EditEvent(ctx, id, field, value); err != nil {
		return notFound(err)
	}
	logger.Info(ctx, logger.CompConv, "event.edited",
		slog.Int64("event_id", id),
		slog.String("field", string(field)),
	)
	t.Clear()
	return f.showEvent(ctx, t, id, saved)
}

func (f *Flow) editText(field domain.EventField, limit int, saved string) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		v := conversation.Clean(t.Text())
		if v == "" {
			return domain.Invalid(string(field), msgEmptyText)
		}
		if utf8.RuneCountInString(v) > limit {
			return domain.Invalid(string(field), msgTooLongText)
		}
		return f.saveField(ctx, t, field, v, saved)
	}
}

func (f *Flow) onEditCard(ctx context.Context, t *conversation.Turn) error {
	card, ok := cardNumber(t.Text())
	if !ok || card == "" {
		return domain.Invalid("card_number", msgBadCard)
	}
	return f.saveField(ctx, t, domain.FieldCardNumber, card, msgCardSaved)
}

func (f *Flow) onEditPoster(ctx context.Context, t *conversation.Turn) error {
	file := t.File()
	if !file.Photo {
		return domain.Invalid("poster", msgNeedPhoto)
	}
	if err := f.d.Poster.Check(*file); err != nil {
		return err
	}
	if _, err := f.d.Keeper.Keep(ctx, "poster", t.UserID(), *file, t.Now()); err != nil {
		logger.Warn(ctx, logger.CompConv, "poster.keep_failed", slog.String("err", err.Error()))
	}
	return f.saveField(ctx, t, domain.FieldPoster, file.ID, msgPosterSaved)
}

func (f *Flow) onStatsList(ctx context.Context, t *conversation.Turn) error {
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
		items = append(items, conversation.Item{ID: ev.ID, Label: truncate("📊 "+ev.Title, submissionPreview)})
	}
	return t.Reply(ctx, msgStatsList, conversation.Paginate(items, TokenStats, int(t.ID()), conversation.PerPage))
}

func (f *Flow) onEventStats(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	ev, err := f.d.Store.GetEvent(ctx, t.ID())
	if err != nil {
		return notFound(err)
	}
	tally, err := f.d.Store.TallyRegistrations(ctx, ev.ID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(msgEventStats, ev.Title, tally.Approved, tally.Rejected, tally.Pending, tally.Total())
	if !ev.Unlimited() {
		// pending and approved rows hold a seat
		text += fmt.Sprintf(msgStatsCapacity, max(0, *ev.Capacity-tally.Approved-tally.Pending))
	}
	return t.Reply(ctx, text, conversation.Rows(
		conversation.Btn("🔙 بازگشت", conversation.PageToken(TokenStats, 0)),
		conversation.Btn("⚙️ مدیریت رویداد", conversation.Token(TokenEvents+"_", ev.ID)),
	))
}
