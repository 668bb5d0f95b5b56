package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	tokenRemind        = "admin_remind_"
	tokenRemindConfirm = "admin_remind_confirm_"
	// tokenViewEvent opens the member view of an event.
	tokenViewEvent = "event_"
	remindSample   = 6
)

const (
	msgRemindNone    = "📭 کاربری برای یادآوری وجود ندارد."
	msgRemindPreview = "⚠️ این پیام یادآوری برای رویداد '%s' به %d کاربر ارسال خواهد شد.\n\nنمونه دریافت‌کنندگان:\n%s\n\nآیا ادامه می‌دهید؟"
	msgReminder      = "🔔 یادآوری: رویداد '%s' نزدیک است. لطفاً اطلاعیه‌های کانال را دنبال کنید."
	msgRemindDone    = "🔔 یادآوری برای %d نفر ارسال شد. (%d خطا)"
)

func (f *Flow) registerRemind(e *conversation.Engine, only guard) {
	e.OnID(tokenRemind, only(f.onRemindPreview))
	e.OnID(tokenRemindConfirm, only(f.onRemindConfirm))
}

// reminderTargets returns the event and its approved registrants.
func (f *Flow) reminderTargets(ctx context.Context, id int64) (domain.Event, []int64, error) {
	ev, err := f.d.Store.GetEvent(ctx, id)
	if err != nil {
		return ev, nil, notFound(err)
	}
	users, err := f.d.Store.Recipients(ctx, domain.Audience{Target: domain.AudienceEventApproved, EventID: id})
	return ev, users, err
}

func (f *Flow) onRemindPreview(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	ev, users, err := f.reminderTargets(ctx, t.ID())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return t.Reply(ctx, msgRemindNone, backToPanel())
	}
	sample := make([]string, 0, remindSample)
	for _, uid := range users[:min(len(users), remindSample)] {
		name := "کاربر"
		if p, err := f.d.Store.GetProfile(ctx, uid); err == nil && p.FullName != "" {
			name = p.FullName
		}
		sample = append(sample, fmt.Sprintf("%s (%d)", name, uid))
	}
	return t.Reply(ctx, fmt.Sprintf(msgRemindPreview, ev.Title, len(users), strings.Join(sample, "\n")),
		conversation.Keyboard{conversation.Row(
			conversation.Btn("❌ لغو", TokenPanel),
			conversation.Btn("🟢 ارسال یادآوری به تاییدشدگان", conversation.Token(tokenRemindConfirm, ev.ID)),
		)})
}

func (f *Flow) onRemindConfirm(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	ev, users, err := f.reminderTargets(ctx, t.ID())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return t.Reply(ctx, msgRemindNone, backToPanel())
	}
	if err := f.d.Store.RecordAction(ctx, domain.AdminAction{
		AdminID:     t.UserID(),
		Action:      "send_reminder_to_approved",
		TargetTable: "events",
		TargetID:    ev.ID,
		CreatedAt:   t.Now(),
	}); err != nil {
		return err
	}
	text := fmt.Sprintf(msgReminder, ev.Title)
	view := conversation.Rows(conversation.Btn("مشاهده رویداد", conversation.Token(tokenViewEvent, ev.ID)))
	sent, failed := fanOut(ctx, t, users, func(uid int64) error {
		return t.Send(ctx, uid, text, view)
	})
	logger.Info(ctx, logger.CompConv, "event.reminded",
		slog.Int64("event_id", ev.ID),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	return t.Reply(ctx, fmt.Sprintf(msgRemindDone, sent, failed), backToPanel())
}
