package submissions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
	"github.com/m3rciful/assocbot/internal/jalali"
)

const (
	StateMemName          state.State = "mem_fullname"
	StateMemMajor         state.State = "mem_major"
	StateMemEntryYear     state.State = "mem_entry_year"
	StateMemStudentNumber state.State = "mem_student_number"
	StateMemNationalID    state.State = "mem_national_id"
	StateMemPhone         state.State = "mem_phone"
	StateMemUsername      state.State = "mem_username"
	StateMemCard          state.State = "mem_card"

	TokenMembership        = "user_membership"
	TokenMembershipConfirm = "membership_confirm"
)

const (
	msgMemName        = "👤 لطفا نام و نام خانوادگی خود را وارد کنید:"
	msgMemBadName     = "❌ نام باید حداقل 3 کاراکتر باشد. لطفا دوباره وارد کنید:"
	msgMemMajor       = "📚 رشته تحصیلی خود را وارد کنید:"
	msgMemBadMajor    = "❌ رشته باید حداقل 2 کاراکتر باشد. لطفا دوباره وارد کنید:"
	msgMemYear        = "📅 سال ورود خود را وارد کنید (مثال: 1400):"
	msgMemBadYear     = "❌ سال ورود باید 4 رقم باشد. لطفا دوباره وارد کنید:"
	msgMemNumber      = "🎓 شماره دانشجویی خود را وارد کنید:"
	msgMemBadNumber   = "❌ شماره دانشجویی باید حداقل 5 رقم و عددی باشد. لطفا دوباره وارد کنید:"
	msgMemNID         = "🆔 کد ملی خود را وارد کنید (10 رقمی):"
	msgMemBadNID      = "❌ کد ملی وارد شده معتبر نیست. لطفا دوباره وارد کنید:"
	msgMemPhone       = "📞 شماره تماس خود را وارد کنید:"
	msgMemBadPhone    = "❌ شماره تماس باید 10 رقمی باشد (مثال: 09123456789). لطفا دوباره وارد کنید:"
	msgMemUsername    = "💬 یوزرنیم تلگرام خود را وارد کنید (در صورت نداشتن، - ارسال کنید):"
	msgMemCard        = "🪪 لطفا تصویر کارت دانشجویی خود را ارسال کنید:"
	msgMemNeedCard    = "❌ لطفا تصویر یا فایل کارت دانشجویی را ارسال کنید:"
	msgMemDone        = "✅ درخواست عضویت شما با موفقیت ثبت شد و در حال بررسی است."
	msgMemNotice      = "🔔 درخواست عضویت جدید — #%d\nنام: %s\nرشته: %s\nسال ورود: %s\nشماره دانشجویی: %s\nکد ملی: %s\nتماس: %s\nیوزرنیم: %s"
	msgMemIntroSuffix = "\n\nبرای شروع، دکمه زیر را بزنید."
)

func minRunes(n int, message, field string) func(string) (string, error) {
	return func(s string) (string, error) {
		s = conversation.Clean(s)
		if utf8.RuneCountInString(s) < n {
			return "", domain.Invalid(field, message)
		}
		return s, nil
	}
}

func digits(minLen, maxLen int, message, field string) func(string) (string, error) {
	return func(s string) (string, error) {
		s = strings.ReplaceAll(jalali.NormalizeDigits(strings.TrimSpace(s)), " ", "")
		if !identity.IsDigits(s) || len(s) < minLen || (maxLen > 0 && len(s) > maxLen) {
			return "", domain.Invalid(field, message)
		}
		return s, nil
	}
}

func nationalID(s string) (string, error) {
	nid := identity.NormalizeNationalID(s)
	if !identity.ValidNationalID(nid) {
		return "", domain.Invalid("national_id", msgMemBadNID)
	}
	return nid, nil
}

func phone(s string) (string, error) {
	p, ok := identity.NormalizePhone(s)
	if !ok {
		return "", domain.Invalid("phone", msgMemBadPhone)
	}
	return p, nil
}

// NormalizeUsername maps "-" to no username and prefixes "@" otherwise.
func NormalizeUsername(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return ""
	}
	return "@" + strings.TrimLeft(s, "@")
}

func (f *Flow) registerMembership(e *conversation.Engine) {
	need := func(keys ...string) []string { return keys }
	e.Step(
		textStep(StateMemName, StateMemMajor, msgMemName, "full_name", nil,
			minRunes(3, msgMemBadName, "full_name")),
		textStep(StateMemMajor, StateMemEntryYear, msgMemMajor, "major", need("full_name"),
			minRunes(2, msgMemBadMajor, "major")),
		textStep(StateMemEntryYear, StateMemStudentNumber, msgMemYear, "entry_year", need("full_name", "major"),
			digits(4, 4, msgMemBadYear, "entry_year")),
		textStep(StateMemStudentNumber, StateMemNationalID, msgMemNumber, "student_number", need("full_name", "major", "entry_year"),
			digits(5, 0, msgMemBadNumber, "student_number")),
		textStep(StateMemNationalID, StateMemPhone, msgMemNID, "national_id", need("full_name", "student_number"),
			nationalID),
		textStep(StateMemPhone, StateMemUsername, msgMemPhone, "phone", need("full_name", "national_id"),
			phone),
		textStep(StateMemUsername, StateMemCard, msgMemUsername, "telegram_username", need("full_name", "phone"),
			func(s string) (string, error) { return NormalizeUsername(s), nil }),
		conversation.Step{
			State:     StateMemCard,
			Accepts:   []conversation.Kind{conversation.KindFile},
			WrongKind: msgMemNeedCard,
			Requires:  need("full_name", "major", "entry_year", "student_number", "national_id", "phone", "telegram_username"),
			Prompt:    msgMemCard,
			Keyboard:  cancelKB,
			Handle:    f.onMemCard,
		},
	)
	e.On(TokenMembership, func(ctx context.Context, t *conversation.Turn) error {
		desc := f.setting(ctx, domain.SettingMembershipDesc, domain.DefaultMembershipDesc)
		kb := conversation.Rows(
			conversation.Btn("📝 شروع درخواست عضویت", TokenMembershipConfirm),
			conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu),
		)
		return t.Reply(ctx, desc+msgMemIntroSuffix, kb)
	})
	e.On(TokenMembershipConfirm, func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateMemName, nil)
	})
}

func (f *Flow) onMemCard(ctx context.Context, t *conversation.Turn) error {
	fileID, path, err := f.attachment(ctx, t, "membership")
	if err != nil {
		return err
	}
	d := t.Data()
	m := domain.Membership{
		UserID:           t.UserID(),
		FullName:         d.String("full_name"),
		Major:            d.String("major"),
		EntryYear:        d.String("entry_year"),
		StudentNumber:    d.String("student_number"),
		NationalID:       d.String("national_id"),
		Phone:            d.String("phone"),
		TelegramUsername: d.String("telegram_username"),
		CardFileID:       fileID,
		CardFilePath:     path,
	}
	if err := domain.Validator().Struct(m); err != nil {
		return fmt.Errorf("membership application: %w", err)
	}
	student := true
	id, err := f.d.Store.CreateMembership(ctx, m, domain.Profile{
		UserID:     m.UserID,
		FullName:   m.FullName,
		NationalID: m.NationalID,
		StudentID:  m.StudentNumber,
		Phone:      m.Phone,
		IsStudent:  &student,
		Username:   m.TelegramUsername,
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "membership.created", slog.Int64("target_id", id))
	replyErr := t.Finish(ctx, msgMemDone, t.Home())
	username := m.TelegramUsername
	if username == "" {
		username = "-"
	}
	f.announce(ctx, domain.KindMembership, id, fmt.Sprintf(msgMemNotice, id, m.FullName, m.Major, m.EntryYear,
		m.StudentNumber, m.NationalID, m.Phone, username), fileID)
	return replyErr
}
