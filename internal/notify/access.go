package notify

import (
	"context"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/internal/conversation"
)

// MsgDenied is sent to non-admins pressing admin buttons.
const MsgDenied = "⛔️ شما دسترسی ادمین ندارید."

// Only wraps h so that it runs for administrators only.
func (r *Roster) Only(h conversation.Handler) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		if !r.IsAdmin(ctx, t.UserID()) {
			logger.Warn(ctx, logger.CompApp, "admin.denied", slog.Int64("user_id", t.UserID()))
			return t.Reply(ctx, MsgDenied, nil)
		}
		return h(ctx, t)
	}
}

// MsgOwnerOnly is sent to admins pressing owner buttons.
const MsgOwnerOnly = "❌ فقط ادمین اصلی می‌تواند ادمین‌ها را مدیریت کند!"

// OwnerOnly wraps h so that it runs for the configured owner only.
func (r *Roster) OwnerOnly(h conversation.Handler) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		if !r.IsOwner(t.UserID()) {
			logger.Warn(ctx, logger.CompApp, "owner.denied", slog.Int64("user_id", t.UserID()))
			return t.Reply(ctx, MsgOwnerOnly, nil)
		}
		return h(ctx, t)
	}
}
