package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	TokenManageAdmins = "admin_manage_admins"
	tokenRemoveAdmin  = "admin_remove_admin_"
)

const (
	msgAdmins         = "👑 لیست ادمین‌ها:"
	msgAdminRemoved   = "✅ ادمین %d حذف شد."
	msgAdminFixed     = "❌ ادمین‌های تعریف‌شده در پیکربندی قابل حذف نیستند."
	msgAdminNotStored = "❌ این کاربر ادمین نیست."
)

func (f *Flow) registerAdmins(e *conversation.Engine) {
	owner := f.d.Roster.OwnerOnly
	e.On(TokenManageAdmins, owner(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return f.showAdmins(ctx, t, "")
	}))
	e.OnID(tokenRemoveAdmin, owner(f.onRemoveAdmin))
}

func (f *Flow) adminLabel(ctx context.Context, id int64) string {
	if p, err := f.d.Store.GetProfile(ctx, id); err == nil && p.FullName != "" {
		return fmt.Sprintf("%s (%d)", p.FullName, id)
	}
	return fmt.Sprint(id)
}

func (f *Flow) showAdmins(ctx context.Context, t *conversation.Turn, header string) error {
	kb := conversation.Keyboard{conversation.Row(conversation.Btn("➕ افزودن ادمین جدید", TokenAddAdmin))}
	for _, id := range f.d.Roster.All(ctx) {
		label := f.adminLabel(ctx, id)
		switch {
		case f.d.Roster.IsOwner(id):
			kb = append(kb, conversation.Row(conversation.Btn("👑 "+label+" (اصلی)", conversation.TokenNoop)))
		case f.d.Roster.Configured(id):
			kb = append(kb, conversation.Row(conversation.Btn("⚙️ "+label, conversation.TokenNoop)))
		default:
			kb = append(kb, conversation.Row(conversation.Btn("🗑️ حذف "+label, conversation.Token(tokenRemoveAdmin, id))))
		}
	}
	kb = append(kb, backToPanel()...)
	text := msgAdmins
	if header != "" {
		text = header + "\n\n" + text
	}
	return t.Reply(ctx, text, kb)
}

func (f *Flow) onRemoveAdmin(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	id := t.ID()
	if f.d.Roster.Configured(id) {
		return f.showAdmins(ctx, t, msgAdminFixed)
	}
	if err := f.d.Store.RemoveAdmin(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return f.showAdmins(ctx, t, msgAdminNotStored)
		}
		return err
	}
	logger.Info(ctx, logger.CompConv, "admin.removed", slog.Int64("removed_admin", id))
	return f.showAdmins(ctx, t, fmt.Sprintf(msgAdminRemoved, id))
}
