// Package admin is the administrator surface: the panel, pending lists,
// the event wizard, per-event settings and edits, broadcasts, support,
// global settings and the owner's admin list.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/jalali"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/uploads"
)

// Tokens of the panel.
const (
	TokenPanel        = "admin_panel"
	TokenNewEvent     = "admin_new_event"
	TokenPendingRegs  = "admin_reg"
	TokenEvents       = "admin_event"
	TokenSettings     = "admin_settings"
	TokenNotify       = "admin_notify_settings"
	TokenAudit        = "admin_audit"
	TokenAddAdmin     = "admin_add_admin"
	tokenSubmissions  = "admin_sub_"
	msgPanel          = "👑 به پنل ادمین خوش آمدید:"
	msgNumber         = "❌ لطفا یک عدد معتبر وارد کنید:"
	auditListSize     = 10
	submissionPreview = 40
)

// Deps are the collaborators of the admin surface.
type Deps struct {
	Store  storage.Store
	Roster *notify.Roster
	// Notifier supplies the defaults of the notification toggles.
	Notifier *notify.Notifier
	Keeper *uploads.Keeper
	Poster uploads.Rules
	// SingleDefault is the single-registration flag of new events.
	SingleDefault bool
}

// Flow is the admin surface.
type Flow struct {
	d      Deps
	limits *limiter
}

// New returns the admin flow. A zero Poster rule set gets the default limits
// and a nil Notifier reads the toggles with every default on.
func New(d Deps) *Flow {
	if d.Poster.MaxBytes == 0 {
		d.Poster = uploads.Poster(0)
	}
	if d.Notifier == nil {
		d.Notifier = notify.New(d.Roster, d.Store, nil, nil)
	}
	return &Flow{d: d, limits: newLimiter()}
}

var kindLabels = map[domain.SubmissionKind]string{
	domain.KindIdea:       "💡 ایده‌ها",
	domain.KindCollab:     "🤝 درخواست‌های همکاری",
	domain.KindDonation:   "💰 حمایت‌های مالی",
	domain.KindMembership: "🪪 درخواست‌های عضویت",
}

func submissionListKind(k domain.SubmissionKind) string { return tokenSubmissions + string(k) }

// PanelKeyboard is the admin panel.
func PanelKeyboard() conversation.Keyboard {
	kb := conversation.Keyboard{
		conversation.Row(conversation.Btn("➕ رویداد جدید", TokenNewEvent)),
		conversation.Row(conversation.Btn("📋 مدیریت رویدادها", conversation.PageToken(TokenEvents, 0))),
		conversation.Row(conversation.Btn("📝 ثبت‌نام‌های در انتظار", conversation.PageToken(TokenPendingRegs, 0))),
	}
	for _, k := range domain.Kinds() {
		kb = append(kb, conversation.Row(conversation.Btn(kindLabels[k], conversation.PageToken(submissionListKind(k), 0))))
	}
	return append(kb,
		conversation.Row(
			conversation.Btn("📣 ارسال پیام همگانی", TokenBroadcast),
			conversation.Btn("📬 تیکت‌ها", TokenTickets),
		),
		conversation.Row(
			conversation.Btn("❓ سوالات متداول", TokenFAQ),
			conversation.Btn("📈 آمار رویدادها", TokenStats),
		),
		conversation.Row(
			conversation.Btn("⚙️ تنظیمات", TokenSettings),
			conversation.Btn("🔔 اعلان‌ها", TokenNotify),
		),
		conversation.Row(
			conversation.Btn("🧾 گزارش اقدامات", TokenAudit),
			conversation.Btn("👑 مدیریت ادمین‌ها", TokenManageAdmins),
		),
		conversation.Row(conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu)),
	)
}

// Register installs every admin step and route. All routes are admin-only.
func (f *Flow) Register(e *conversation.Engine) {
	only := f.d.Roster.Only
	e.On(TokenPanel, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Reply(ctx, msgPanel, PanelKeyboard())
	}))
	e.On(TokenAudit, only(f.onAudit))

	f.registerWizard(e, only)
	f.registerEventSettings(e, only)
	f.registerPending(e, only)
	f.registerSettings(e, only)
	f.registerBroadcast(e, only)
	f.registerRemind(e, only)
	f.registerSupport(e, only)
	f.registerEventEdit(e, only)
	f.registerAdmins(e)
}

func backToPanel() conversation.Keyboard {
	return conversation.Rows(conversation.Btn("🔙 بازگشت به پنل", TokenPanel))
}

// adminStep is a text step of the admin table.
func adminStep(st state.State, prompt string, requires []string, next []state.State, h conversation.Handler) conversation.Step {
	return conversation.Step{
		State:    st,
		Requires: requires,
		Next:     next,
		Prompt:   prompt,
		Keyboard: conversation.Rows(conversation.Btn("❌ لغو", conversation.TokenCancel)),
		Handle:   h,
	}
}

func (f *Flow) onAudit(ctx context.Context, t *conversation.Turn) error {
	actions, err := f.d.Store.ListActions(ctx, auditListSize)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return t.Reply(ctx, "📭 هنوز اقدامی ثبت نشده است.", backToPanel())
	}
	var b strings.Builder
	b.WriteString("🧾 آخرین اقدامات ادمین‌ها:\n")
	for _, a := range actions {
		fmt.Fprintf(&b, "\n• %s — %s #%d — ادمین %d — %s", a.Action, a.TargetTable, a.TargetID, a.AdminID,
			jalali.Format(a.CreatedAt.Unix()))
		if a.Note != "" {
			fmt.Fprintf(&b, "\n  «%s»", truncate(a.Note, submissionPreview))
		}
	}
	return t.Reply(ctx, b.String(), backToPanel())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
