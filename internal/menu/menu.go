// Package menu is the member-facing navigation: the main menu, the active
// and archived event listings and the user's own registrations.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/format"
	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/jalali"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/profile"
	"github.com/m3rciful/assocbot/internal/registration"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/submissions"
	"github.com/m3rciful/assocbot/internal/support"
)

const (
	TokenActive  = "events_active"
	TokenArchive = "events_archive"
	TokenMyRegs  = "user_my_regs"

	kindActive  = "event"
	kindArchive = "archive_event"
	kindMyReg   = "myreg"
)

const (
	MsgMain         = "منوی اصلی:"
	msgFallback     = "لطفا از دکمه‌های منوی زیر استفاده کنید:"
	msgNoActive     = "📭 هیچ رویداد فعالی وجود ندارد."
	msgNoArchive    = "📭 هیچ رویداد آرشیو شده‌ای وجود ندارد."
	msgNoRegs       = "📭 شما هنوز در هیچ رویدادی ثبت‌نام نکرده‌اید."
	msgActiveList   = "📅 رویدادهای فعال:"
	msgArchiveList  = "🗄 آرشیو رویدادها:"
	msgMyRegsList   = "🎟 ثبت‌نام‌های من:"
	msgEventClosed  = "⛔️ ثبت‌نام این رویداد بسته است."
	tokenBackActive = kindActive + "_page_0"
)

// Deps are the collaborators of the menu.
type Deps struct {
	Store  storage.Store
	Roster *notify.Roster
}

// Menu is the navigation flow.
type Menu struct {
	d Deps
}

// New returns the menu.
func New(d Deps) *Menu { return &Menu{d: d} }

// Keyboard is the main menu. Admins also get the panel button.
func Keyboard(isAdmin bool) conversation.Keyboard {
	kb := conversation.Keyboard{
		conversation.Row(
			conversation.Btn("📅 رویدادهای فعال", TokenActive),
			conversation.Btn("🗄 آرشیو رویدادها", TokenArchive),
		),
		conversation.Row(
			conversation.Btn("🎟 ثبت‌نام‌های من", TokenMyRegs),
			conversation.Btn("👤 پروفایل من", profile.TokenProfile),
		),
		conversation.Row(
			conversation.Btn("💡 ارسال ایده", submissions.TokenIdea),
			conversation.Btn("🤝 درخواست همکاری", submissions.TokenCollab),
		),
		conversation.Row(
			conversation.Btn("💰 حمایت مالی", submissions.TokenDonate),
			conversation.Btn("🪪 عضویت در انجمن", submissions.TokenMembership),
		),
		conversation.Row(
			conversation.Btn("❓ سوالات متداول", support.TokenFAQ),
			conversation.Btn("📬 ارسال تیکت", support.TokenAsk),
		),
		conversation.Row(conversation.Btn("📨 پیگیری تیکت‌ها", support.TokenTickets)),
		conversation.Row(
			conversation.Btn("📖 راهنما", support.TokenHelp),
			conversation.Btn("ℹ️ درباره ما", support.TokenAbout),
		),
	}
	if isAdmin {
		kb = append(kb, conversation.Row(conversation.Btn("👑 پنل ادمین", admin.TokenPanel)))
	}
	return kb
}

// Register installs the menu routes.
func (m *Menu) Register(e *conversation.Engine) {
	e.On(conversation.TokenMainMenu, m.onMain)
	e.On(TokenActive, m.listEvents(true))
	e.OnID(kindActive+"_page_", m.listEvents(true))
	e.OnID(kindActive+"_", m.onEvent(true))
	e.On(TokenArchive, m.listEvents(false))
	e.OnID(kindArchive+"_page_", m.listEvents(false))
	e.OnID(kindArchive+"_", m.onEvent(false))
	e.On(TokenMyRegs, m.listRegs)
	e.OnID(kindMyReg+"_page_", m.listRegs)
	e.OnID(kindMyReg+"_", m.onReg)
}

// Main is the handler of /start and the main menu button.
func (m *Menu) Main() conversation.Handler { return m.onMain }

// Fallback answers text sent outside any flow.
func (m *Menu) Fallback() conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		return t.Reply(ctx, msgFallback, Keyboard(m.d.Roster.IsAdmin(ctx, t.UserID())))
	}
}

func (m *Menu) onMain(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	if err := m.d.Store.TouchUser(ctx, t.UserID(), t.Update().Username); err != nil {
		logger.Warn(ctx, logger.CompConv, "user.touch_failed", slog.String("err", err.Error()))
	}
	return t.Reply(ctx, MsgMain, Keyboard(m.d.Roster.IsAdmin(ctx, t.UserID())))
}

func (m *Menu) listEvents(active bool) conversation.Handler {
	kind, empty, title := kindActive, msgNoActive, msgActiveList
	if !active {
		kind, empty, title = kindArchive, msgNoArchive, msgArchiveList
	}
	return func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		evs, err := m.d.Store.ListEvents(ctx, active)
		if err != nil {
			return err
		}
		if len(evs) == 0 {
			return t.Reply(ctx, empty, t.Home())
		}
		items := make([]conversation.Item, 0, len(evs))
		for _, ev := range evs {
			items = append(items, conversation.Item{ID: ev.ID, Label: ev.Title})
		}
		return t.Reply(ctx, title, conversation.Paginate(items, kind, int(t.ID()), conversation.PerPage))
	}
}

// Describe renders ev for members.
func Describe(ev domain.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 %s\n", ev.Title)
	if ev.Description != "" {
		b.WriteString("\n" + ev.Description + "\n")
	}
	b.WriteString("\n")
	switch ev.CostType {
	case domain.CostFixed:
		fmt.Fprintf(&b, "💰 هزینه: %s", format.Toman(ev.FixedCost))
	case domain.CostVariable:
		fmt.Fprintf(&b, "💰 دانشجویان: %s\n💰 غیر دانشجویان: %s", format.Toman(ev.StudentCost), format.Toman(ev.NonStudentCost))
	default:
		b.WriteString("🆓 رایگان")
		if q := registration.Price(ev, true); !q.Free() {
			fmt.Fprintf(&b, "\n📜 هزینه گواهی: %s", format.Toman(q.Amount))
		}
	}
	if !ev.Unlimited() {
		b.WriteString("\n👥 ظرفیت: " + strconv.Itoa(*ev.Capacity))
	}
	if ev.EndAtTS != nil {
		b.WriteString("\n⏱️ مهلت ثبت‌نام: " + jalali.Format(*ev.EndAtTS))
	}
	return b.String()
}

func (m *Menu) onEvent(active bool) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		ev, err := m.d.Store.GetEvent(ctx, t.ID())
		if errors.Is(err, domain.ErrNotFound) || (err == nil && ev.IsActive != active) {
			return domain.Ineligible(domain.ReasonNotFound)
		}
		if err != nil {
			return err
		}
		text := Describe(ev)
		var kb conversation.Keyboard
		back := kindArchive + "_page_0"
		switch {
		case !active:
		case ev.Expired(t.Now()):
			text += "\n\n" + msgEventClosed
		default:
			kb = append(kb, conversation.Row(conversation.Btn("📝 ثبت‌نام", conversation.Token(registration.TokenStart, ev.ID))))
		}
		if active {
			back = tokenBackActive
		}
		kb = append(kb, conversation.Row(conversation.Btn("🔙 بازگشت", back)))
		if ev.PosterFileID != "" {
			return t.ReplyFile(ctx, conversation.Attachment{FileID: ev.PosterFileID, Photo: true}, text, kb)
		}
		return t.Reply(ctx, text, kb)
	}
}

// StatusLabel is the member-facing registration status.
func StatusLabel(s domain.RegistrationStatus) string {
	switch s {
	case domain.RegApproved:
		return "✅ تایید شده"
	case domain.RegRejected:
		return "❌ رد شده"
	}
	return "⏳ در انتظار"
}

func (m *Menu) listRegs(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	regs, err := m.d.Store.ListUserRegistrations(ctx, t.UserID())
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		return t.Reply(ctx, msgNoRegs, t.Home())
	}
	items := make([]conversation.Item, 0, len(regs))
	for _, r := range regs {
		items = append(items, conversation.Item{ID: r.ID, Label: r.EventTitle + " | " + StatusLabel(r.Status)})
	}
	return t.Reply(ctx, msgMyRegsList, conversation.Paginate(items, kindMyReg, int(t.ID()), conversation.PerPage))
}

func (m *Menu) onReg(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	r, err := m.d.Store.GetRegistration(ctx, t.ID())
	if errors.Is(err, domain.ErrNotFound) || (err == nil && r.UserID != t.UserID()) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🎟 ثبت‌نام #%d\n🎫 %s\nوضعیت: %s\n💰 مبلغ: %s\n📅 تاریخ: %s",
		r.ID, r.EventTitle, StatusLabel(r.Status), format.Toman(r.Amount), jalali.Format(r.RegisterDate.Unix()))
	if r.Status == domain.RegRejected && r.RejectReason != "" {
		b.WriteString("\nدلیل: " + r.RejectReason)
	}
	return t.Reply(ctx, b.String(), conversation.Rows(
		conversation.Btn("🔙 بازگشت", kindMyReg+"_page_0"),
		conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu),
	))
}
