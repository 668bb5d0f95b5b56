package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
)

// States of the moderation table.
const (
	StateExplain      state.State = "admin_explain_action"
	StateRejectReason state.State = "admin_waiting_reject_reason"
)

const (
	keyKind   = "target_kind"
	keyTable  = "target_table"
	keyTarget = "target_id"
	keyStatus = "new_status"
	keyReg    = "registration_id"
)

// Registration review tokens.
const (
	TokenApproveReg = "admin_approve_reg_"
	TokenRejectReg  = "admin_reject_reg_"
	TokenBulkReg    = "admin_bulk_approve_"
)

const (
	msgExplain       = "🔎 لطفا توضیحی که می‌خواهید برای کاربر ارسال شود را بنویسید (این پیام تنها یک‌بار ارسال می‌شود):"
	msgDelivered     = "✅ وضعیت مورد با موفقیت به‌روزرسانی شد و پیام توضیح برای کاربر ارسال شد."
	msgDeliverFailed = "⚠️ وضعیت مورد به‌روزرسانی شد اما ارسال پیام به کاربر با خطا مواجه شد. لطفا بررسی کنید."
	msgNoRecipient   = "⚠️ وضعیت مورد به‌روزرسانی شد اما کاربر مقصد پیدا نشد."
	msgAskReason     = "لطفا دلیل رد ثبت‌نام را بنویسید:"
	msgEmptyReason   = "❌ دلیل نمی‌تواند خالی باشد. لطفا دوباره بنویسید:"
	msgRegApprovedU  = "✅ ثبت‌نام شما تایید شد!\nرویداد: %s"
	msgRegApprovedA  = "✅ ثبت‌نام تایید شد."
	msgRegRejectedU  = "❌ ثبت‌نام شما رد شد.\nرویداد: %s\nدلیل: %s"
	msgRegRejectedA  = "✅ ثبت‌نام رد شد و دلیل برای کاربر ارسال شد."
	msgBulkNone      = "📭 ثبت‌نام در انتظاری برای این رویداد وجود ندارد."
	msgBulkDone      = "✅ %d ثبت‌نام تایید شد."
	msgBulkFailed    = "\n⚠️ ارسال پیام به %d کاربر ناموفق بود."
)

// Store is the storage moderation touches.
type Store interface {
	storage.Submissions
	storage.Registrations
}

// Flow routes moderation buttons.
type Flow struct {
	store  Store
	roster *notify.Roster
}

// New returns the moderation flow.
func New(store Store, roster *notify.Roster) *Flow {
	return &Flow{store: store, roster: roster}
}

// Register installs the steps and routes.
func (f *Flow) Register(e *conversation.Engine) {
	cancel := conversation.Rows(conversation.Btn("❌ لغو", conversation.TokenCancel))
	e.Step(
		conversation.Step{
			State:    StateExplain,
			Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
			Requires: []string{keyKind, keyTable, keyTarget, keyStatus},
			Prompt:   msgExplain,
			Keyboard: cancel,
			Handle:   f.onExplain,
		},
		conversation.Step{
			State:    StateRejectReason,
			Requires: []string{keyReg},
			Prompt:   msgAskReason,
			Keyboard: cancel,
			Handle:   f.onRejectReason,
		},
	)
	for _, a := range Actions {
		e.OnID(a.Prefix, f.roster.Only(f.begin(a)))
	}
	e.OnID(TokenApproveReg, f.roster.Only(f.onApproveReg))
	e.OnID(TokenRejectReg, f.roster.Only(f.onRejectReg))
	e.OnID(TokenBulkReg, f.roster.Only(f.onBulkApprove))
}

// begin checks the record is still pending and asks for the explanation.
// The check only gives early feedback; the commit re-applies it.
func (f *Flow) begin(a Action) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		sub, err := f.store.GetSubmission(ctx, a.Kind, t.ID())
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Ineligible(domain.ReasonNotFound)
		}
		if err != nil {
			return err
		}
		if sub.Status != domain.StatusPending {
			return &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(sub.Status)}
		}
		table, err := a.Kind.Table()
		if err != nil {
			return err
		}
		t.Clear()
		return t.Enter(ctx, StateExplain, state.Data{
			keyKind:   string(a.Kind),
			keyTable:  table,
			keyTarget: t.ID(),
			keyStatus: string(a.Status),
		})
	}
}

func (f *Flow) onExplain(ctx context.Context, t *conversation.Turn) error {
	d := t.Data()
	kind := domain.SubmissionKind(d.String(keyKind))
	status := domain.SubmissionStatus(d.String(keyStatus))
	id, _ := d.Int64(keyTarget)
	if !kind.Allows(status) {
		return fmt.Errorf("moderation: %s cannot move to %s", kind, status)
	}
	note := conversation.Clean(t.Text())
	sub, err := f.store.Resolve(ctx, domain.Decision{
		Kind:      kind,
		ID:        id,
		NewStatus: status,
		AdminID:   t.UserID(),
		Note:      note,
		At:        t.Now(),
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompMod, "moderation.resolved",
		slog.String("target_table", d.String(keyTable)),
		slog.Int64("target_id", id),
		slog.String("new_status", string(status)),
	)
	if sub.UserID == 0 {
		return t.Finish(ctx, msgNoRecipient, t.Home())
	}
	text := UserMessage(kind, id, status, note)
	var sendErr error
	if file := t.File(); file != nil {
		sendErr = t.SendFile(ctx, sub.UserID, conversation.Attachment{FileID: file.ID, Photo: file.Photo}, text, nil)
	} else {
		sendErr = t.Send(ctx, sub.UserID, text, nil)
	}
	if sendErr != nil {
		logger.Warn(ctx, logger.CompMod, "moderation.delivery_failed",
			slog.Int64("target_id", id),
			slog.String("err", sendErr.Error()),
		)
		if err := t.Finish(ctx, msgDeliverFailed, t.Home()); err != nil {
			return err
		}
		return sendErr
	}
	return t.Finish(ctx, msgDelivered, t.Home())
}

func (f *Flow) onApproveReg(ctx context.Context, t *conversation.Turn) error {
	r, err := f.store.ReviewRegistration(ctx, t.ID(), domain.RegApproved, "", t.UserID(), t.Now())
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompMod, "registration.approved", slog.Int64("registration_id", r.ID))
	return f.announce(ctx, t, r.UserID, fmt.Sprintf(msgRegApprovedU, r.EventTitle), msgRegApprovedA)
}

func (f *Flow) onRejectReg(ctx context.Context, t *conversation.Turn) error {
	r, err := f.store.GetRegistration(ctx, t.ID())
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	if err != nil {
		return err
	}
	if r.Status != domain.RegPending {
		return &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(r.Status)}
	}
	t.Clear()
	return t.Enter(ctx, StateRejectReason, state.Data{keyReg: r.ID})
}

func (f *Flow) onRejectReason(ctx context.Context, t *conversation.Turn) error {
	reason := conversation.Clean(t.Text())
	if reason == "" {
		return domain.Invalid("reason", msgEmptyReason)
	}
	id, _ := t.Data().Int64(keyReg)
	r, err := f.store.ReviewRegistration(ctx, id, domain.RegRejected, reason, t.UserID(), t.Now())
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompMod, "registration.rejected", slog.Int64("registration_id", r.ID))
	return f.announce(ctx, t, r.UserID, fmt.Sprintf(msgRegRejectedU, r.EventTitle, reason), msgRegRejectedA)
}

// announce tells the user, then the admin. A failed user delivery is
// reported to the admin and returned for logging.
func (f *Flow) announce(ctx context.Context, t *conversation.Turn, userID int64, userText, adminText string) error {
	if err := t.Send(ctx, userID, userText, nil); err != nil {
		if ferr := t.Finish(ctx, msgDeliverFailed, t.Home()); ferr != nil {
			return ferr
		}
		return err
	}
	return t.Finish(ctx, adminText, t.Home())
}

// onBulkApprove approves every pending registration of the event and tells
// each registrant. Rows approved by another admin in the meantime are skipped
// by the store.
func (f *Flow) onBulkApprove(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	regs, err := f.store.ApprovePending(ctx, t.ID(), t.UserID(), t.Now())
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		return t.Reply(ctx, msgBulkNone, t.Home())
	}
	failed := 0
	for _, r := range regs {
		if err := t.Send(ctx, r.UserID, fmt.Sprintf(msgRegApprovedU, r.EventTitle), nil); err != nil {
			failed++
			logger.Warn(ctx, logger.CompMod, "registration.bulk_delivery_failed",
				slog.Int64("registration_id", r.ID),
				slog.String("err", err.Error()),
			)
		}
	}
	logger.Info(ctx, logger.CompMod, "registration.bulk_approved",
		slog.Int64("event_id", t.ID()),
		slog.Int("count", len(regs)),
		slog.Int("failed", failed),
	)
	text := fmt.Sprintf(msgBulkDone, len(regs))
	if failed > 0 {
		text += fmt.Sprintf(msgBulkFailed, failed)
	}
	return t.Reply(ctx, text, t.Home())
}
