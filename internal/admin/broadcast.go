package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
)

const (
	StateBroadcastContent state.State = "admin_waiting_broadcast_content"
	StateTargetID         state.State = "admin_waiting_target_id"
	StateSendToIDContent  state.State = "admin_waiting_send_to_id_content"
)

const (
	TokenBroadcast         = "admin_broadcast"
	tokenBroadcastAll      = "broadcast_all"
	tokenBroadcastApproved = "broadcast_approved"
	tokenBroadcastRejected = "broadcast_rejected"
	tokenBroadcastByEvent  = "broadcast_by_event"
	kindBroadcastEvent     = "broadcast_event"
	tokenSendToID          = "admin_send_to_id"
	tokenMessageApproved   = "admin_message_approved_"
	tokenMessageRejected   = "admin_message_rejected_"
	keyAudience            = "target"
	keyTargetUser          = "target_id"
)

// broadcastBurst broadcasts are allowed per broadcastWindow and admin.
const (
	broadcastBurst  = 2
	broadcastWindow = 5 * time.Minute
)

const (
	msgBroadcastMenu    = "📣 لطفا گروه هدف را انتخاب کنید:"
	msgBroadcastEvents  = "📋 رویداد مورد نظر را برای ارسال به تاییدشدگان انتخاب کنید:"
	msgBroadcastPrompt  = "✏️ پیام، عکس یا فایل خود را ارسال کنید:"
	msgBroadcastLimited = "❌ امکان ارسال پیام همگانی در این لحظه وجود ندارد. لطفاً بعداً تلاش کنید."
	msgBroadcastEmpty   = "❌ پیام خالی است. لطفاً متن یا فایل ارسال کنید:"
	msgNoRecipients     = "📭 هیچ کاربری در این گروه وجود ندارد."
	msgBroadcastDone    = "✅ ارسال همگانی به پایان رسید.\n\n📬 کل کاربران: %d\n✅ دریافت کردند: %d\n❌ ارسال نشد: %d"
	msgTargetIDPrompt   = "✉️ شناسه عددی کاربر مقصد را وارد کنید:"
	msgSendToIDPrompt   = "✏️ حالا پیام یا فایل را برای ارسال به %d ارسال کنید:"
	msgSentToID         = "✅ پیام به %d ارسال شد."
	msgSendToIDFailed   = "⚠️ ارسال پیام به %d ناموفق بود."
)

// limiter hands out one token bucket per admin.
type limiter struct {
	mu      sync.Mutex
	buckets map[int64]*rate.Limiter
}

func newLimiter() *limiter { return &limiter{buckets: map[int64]*rate.Limiter{}} }

func (l *limiter) allow(adminID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[adminID]
	if !ok {
		b = rate.NewLimiter(rate.Every(broadcastWindow/broadcastBurst), broadcastBurst)
		l.buckets[adminID] = b
	}
	return b.AllowN(now, 1)
}

func broadcastKeyboard() conversation.Keyboard {
	return conversation.Keyboard{
		conversation.Row(
			conversation.Btn("📬 همه کاربران", tokenBroadcastAll),
			conversation.Btn("✅ کاربران تایید شده", tokenBroadcastApproved),
		),
		conversation.Row(
			conversation.Btn("❌ کاربران رد شده", tokenBroadcastRejected),
			conversation.Btn("🎫 تاییدشدگان یک رویداد", tokenBroadcastByEvent),
		),
		conversation.Row(conversation.Btn("✉️ پیام به آیدی (خاص)", tokenSendToID)),
		conversation.Row(conversation.Btn("🔙 بازگشت به پنل", TokenPanel)),
	}
}

func (f *Flow) registerBroadcast(e *conversation.Engine, only guard) {
	content := []conversation.Kind{conversation.KindText, conversation.KindFile}
	cancel := conversation.Rows(conversation.Btn("❌ لغو", conversation.TokenCancel))
	e.Step(
		conversation.Step{
			State:    StateBroadcastContent,
			Accepts:  content,
			Requires: []string{keyAudience},
			Prompt:   msgBroadcastPrompt,
			Keyboard: cancel,
			Handle:   f.onBroadcastContent,
		},
		adminStep(StateTargetID, msgTargetIDPrompt, nil, []state.State{StateSendToIDContent}, f.onTargetID),
		conversation.Step{
			State:    StateSendToIDContent,
			Accepts:  content,
			Requires: []string{keyTargetUser},
			Keyboard: cancel,
			Render: func(d state.Data) (string, conversation.Keyboard) {
				id, _ := d.Int64(keyTargetUser)
				return fmt.Sprintf(msgSendToIDPrompt, id), cancel
			},
			Handle: f.onSendToIDContent,
		},
	)
	e.On(TokenBroadcast, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Reply(ctx, msgBroadcastMenu, broadcastKeyboard())
	}))
	audience := func(target domain.AudienceTarget) conversation.Handler {
		return only(func(ctx context.Context, t *conversation.Turn) error {
			t.Clear()
			return t.Enter(ctx, StateBroadcastContent, state.Data{keyAudience: string(target)})
		})
	}
	e.On(tokenBroadcastAll, audience(domain.AudienceAll))
	e.On(tokenBroadcastApproved, audience(domain.AudienceApproved))
	e.On(tokenBroadcastRejected, audience(domain.AudienceRejected))
	e.On(tokenBroadcastByEvent, only(f.onBroadcastEvents))
	e.OnID(kindBroadcastEvent+"_page_", only(f.onBroadcastEvents))
	e.OnID(kindBroadcastEvent+"_", only(f.eventAudience(domain.AudienceEventApproved)))
	e.OnID(tokenMessageApproved, only(f.eventAudience(domain.AudienceEventApproved)))
	e.OnID(tokenMessageRejected, only(f.eventAudience(domain.AudienceEventRejected)))
	e.On(tokenSendToID, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateTargetID, nil)
	}))
}

func (f *Flow) onBroadcastEvents(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	evs, err := f.d.Store.ListEvents(ctx, true)
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		return t.Reply(ctx, msgNoEvents, backToPanel())
	}
	items := make([]conversation.Item, 0, len(evs))
	for _, ev := range evs {
		items = append(items, conversation.Item{ID: ev.ID, Label: truncate(ev.Title, submissionPreview)})
	}
	return t.Reply(ctx, msgBroadcastEvents, conversation.Paginate(items, kindBroadcastEvent, int(t.ID()), conversation.PerPage))
}

func (f *Flow) eventAudience(target domain.AudienceTarget) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		if _, err := f.d.Store.GetEvent(ctx, t.ID()); err != nil {
			return notFound(err)
		}
		t.Clear()
		return t.Enter(ctx, StateBroadcastContent, state.Data{keyAudience: string(target), keyEvent: t.ID()})
	}
}

// deliver sends the turn's text or file to chatID.
func deliver(ctx context.Context, t *conversation.Turn, chatID int64, text string, kb conversation.Keyboard) error {
	if file := t.File(); file != nil {
		return t.SendFile(ctx, chatID, conversation.Attachment{FileID: file.ID, Photo: file.Photo}, text, kb)
	}
	return t.Send(ctx, chatID, text, kb)
}

// fanOut delivers to every recipient and counts the failures. One blocked
// user does not stop the rest.
func fanOut(ctx context.Context, t *conversation.Turn, recipients []int64, send func(chatID int64) error) (sent, failed int) {
	for _, uid := range recipients {
		if err := send(uid); err != nil {
			failed++
			logger.Debug(ctx, logger.CompConv, "broadcast.delivery_failed",
				slog.Int64("chat_id", uid),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent, failed
}

func (f *Flow) onBroadcastContent(ctx context.Context, t *conversation.Turn) error {
	text := conversation.Clean(t.Text())
	if text == "" && t.File() == nil {
		return domain.Invalid("broadcast", msgBroadcastEmpty)
	}
	if !f.limits.allow(t.UserID(), t.Now()) {
		return domain.Invalid("broadcast", msgBroadcastLimited)
	}
	eventID, _ := t.Data().Int64(keyEvent)
	a := domain.Audience{Target: domain.AudienceTarget(t.Data().String(keyAudience)), EventID: eventID}
	if !a.Valid() {
		return fmt.Errorf("broadcast: invalid audience %+v", a)
	}
	recipients, err := f.d.Store.Recipients(ctx, a)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return t.Finish(ctx, msgNoRecipients, backToPanel())
	}
	t.Clear()
	sent, failed := fanOut(ctx, t, recipients, func(uid int64) error {
		return deliver(ctx, t, uid, text, nil)
	})
	logger.Info(ctx, logger.CompConv, "broadcast.sent",
		slog.String("target", string(a.Target)),
		slog.Int64("event_id", a.EventID),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	table := "users"
	if a.PerEvent() {
		table = "events"
	}
	if err := f.d.Store.RecordAction(ctx, domain.AdminAction{
		AdminID:     t.UserID(),
		Action:      "broadcast_" + string(a.Target),
		TargetTable: table,
		TargetID:    a.EventID,
		Note:        truncate(text, submissionPreview),
		CreatedAt:   t.Now(),
	}); err != nil {
		logger.Warn(ctx, logger.CompConv, "broadcast.audit_failed", slog.String("err", err.Error()))
	}
	return t.Reply(ctx, fmt.Sprintf(msgBroadcastDone, len(recipients), sent, failed), backToPanel())
}

func (f *Flow) onTargetID(ctx context.Context, t *conversation.Turn) error {
	raw := identity.NormalizeNationalID(t.Text())
	id, err := strconv.ParseInt(raw, 10, 64)
	if !identity.IsDigits(raw) || err != nil || id <= 0 {
		return domain.Invalid("target_id", msgBadUserID)
	}
	return t.Enter(ctx, StateSendToIDContent, state.Data{keyTargetUser: id})
}

func (f *Flow) onSendToIDContent(ctx context.Context, t *conversation.Turn) error {
	text := conversation.Clean(t.Text())
	if text == "" && t.File() == nil {
		return domain.Invalid("message", msgBroadcastEmpty)
	}
	target, _ := t.Data().Int64(keyTargetUser)
	sendErr := deliver(ctx, t, target, text, nil)
	if sendErr != nil {
		if err := t.Finish(ctx, fmt.Sprintf(msgSendToIDFailed, target), backToPanel()); err != nil {
			return err
		}
		return sendErr
	}
	logger.Info(ctx, logger.CompConv, "broadcast.direct_sent", slog.Int64("chat_id", target))
	return t.Finish(ctx, fmt.Sprintf(msgSentToID, target), backToPanel())
}
