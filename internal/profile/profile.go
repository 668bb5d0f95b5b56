// Package profile shows members their stored identity and lets them
// re-enter it.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
	"github.com/m3rciful/assocbot/internal/storage"
)

// States of the edit wizard.
const (
	StateName          state.State = "edit_profile_name"
	StateNationalID    state.State = "edit_profile_national"
	StatePhone         state.State = "edit_profile_phone"
	StateStudentChoice state.State = "edit_profile_student_choice"
	StateStudentID     state.State = "edit_profile_student_id"
)

const (
	TokenProfile    = "user_profile"
	TokenEdit       = "edit_profile_all"
	TokenStudentYes = "profile_student_yes"
	TokenStudentNo  = "profile_student_no"
)

const (
	keyName  = "full_name"
	keyNID   = "national_id"
	keyPhone = "phone"
)

const (
	msgProfile      = "👤 پروفایل شما\n\nنام: %s\nتلفن: %s\nکد ملی: %s\nدانشجو: %s\nآیدی عددی: %d"
	msgStudentYes   = "بله — شماره دانشجویی: %s"
	msgStudentNo    = "خیر"
	msgUnknown      = "—"
	msgAskName      = "✏️ ویرایش پروفایل — لطفاً نام کامل خود را ارسال کنید:"
	msgBadName      = "❌ نام باید حداقل 3 کاراکتر باشد. لطفا دوباره ارسال کنید:"
	msgAskNID       = "🆔 لطفا کد ملی خود را ارسال کنید (10 رقمی):"
	msgBadNID       = "❌ کد ملی باید 10 رقمی و عددی باشد. لطفا دوباره ارسال کنید:"
	msgBadNIDSum    = "❌ کد ملی وارد شده معتبر نیست. لطفا دوباره ارسال کنید:"
	msgAskPhone     = "📞 لطفاً شماره تماس خود را ارسال کنید:"
	msgBadPhone     = "❌ شماره معتبر نیست. مثال: 09123456789"
	msgAskStudent   = "❓ آیا شما دانشجو هستید؟"
	msgPickOption   = "❌ لطفا یکی از گزینه‌ها را انتخاب کنید:"
	msgAskStudentID = "🎓 لطفاً شماره دانشجویی خود را ارسال کنید:"
	msgBadStudentID = "❌ شماره دانشجویی باید عددی باشد. لطفا دوباره ارسال کنید:"
	msgSaved        = "✅ پروفایل شما با موفقیت به‌روزرسانی شد."
)

// Flow is the profile screen and its edit wizard.
type Flow struct {
	store storage.Profiles
}

// New returns the flow.
func New(store storage.Profiles) *Flow { return &Flow{store: store} }

// Register installs the steps and routes.
func (f *Flow) Register(e *conversation.Engine) {
	cancel := conversation.Row(conversation.Btn("❌ لغو", conversation.TokenCancel))
	text := func(st state.State, prompt string, requires []string, next state.State, h conversation.Handler) conversation.Step {
		return conversation.Step{
			State:    st,
			Requires: requires,
			Next:     []state.State{next},
			Prompt:   prompt,
			Keyboard: conversation.Keyboard{cancel},
			Handle:   h,
		}
	}
	e.Step(
		text(StateName, msgAskName, nil, StateNationalID, f.onName),
		text(StateNationalID, msgAskNID, []string{keyName}, StatePhone, f.onNationalID),
		text(StatePhone, msgAskPhone, []string{keyName, keyNID}, StateStudentChoice, f.onPhone),
		conversation.Step{
			State:    StateStudentChoice,
			Requires: []string{keyName, keyNID, keyPhone},
			Prompt:   msgAskStudent,
			Keyboard: conversation.Keyboard{
				conversation.Row(conversation.Btn("🎓 من دانشجو هستم", TokenStudentYes)),
				conversation.Row(conversation.Btn("🧑‍💼 دانشجو نیستم", TokenStudentNo)),
				cancel,
			},
			Next: []state.State{StateStudentID},
			Handle: func(context.Context, *conversation.Turn) error {
				return domain.Invalid("is_student", msgPickOption)
			},
		},
		conversation.Step{
			State:    StateStudentID,
			Requires: []string{keyName, keyNID, keyPhone},
			Prompt:   msgAskStudentID,
			Keyboard: conversation.Keyboard{cancel},
			Handle:   f.onStudentID,
		},
	)
	e.On(TokenProfile, f.onProfile)
	e.On(TokenEdit, func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateName, nil)
	})
	e.OnIn(TokenStudentYes, StateStudentChoice, func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateStudentID, nil)
	})
	e.OnIn(TokenStudentNo, StateStudentChoice, func(ctx context.Context, t *conversation.Turn) error {
		return f.save(ctx, t, false, "")
	})
}

func orUnknown(s string) string {
	if s == "" {
		return msgUnknown
	}
	return s
}

// Describe renders p for its owner.
func Describe(p domain.Profile) string {
	student := msgStudentNo
	if p.IsStudent != nil && *p.IsStudent {
		student = fmt.Sprintf(msgStudentYes, orUnknown(p.StudentID))
	}
	phone := p.Phone
	if phone != "" {
		phone = "0" + phone
	}
	return fmt.Sprintf(msgProfile, orUnknown(p.FullName), orUnknown(phone), orUnknown(p.NationalID), student, p.UserID)
}

func (f *Flow) onProfile(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	p, err := f.store.GetProfile(ctx, t.UserID())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	p.UserID = t.UserID()
	return t.Reply(ctx, Describe(p), conversation.Rows(
		conversation.Btn("✏️ ویرایش اطلاعات من", TokenEdit),
		conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu),
	))
}

func (f *Flow) onName(ctx context.Context, t *conversation.Turn) error {
	name := conversation.Clean(t.Text())
	if utf8.RuneCountInString(name) < 3 {
		return domain.Invalid(keyName, msgBadName)
	}
	return t.Enter(ctx, StateNationalID, state.Data{keyName: name})
}

func (f *Flow) onNationalID(ctx context.Context, t *conversation.Turn) error {
	nid := identity.NormalizeNationalID(t.Text())
	if len(nid) != identity.NationalIDLength || !identity.IsDigits(nid) {
		return domain.Invalid(keyNID, msgBadNID)
	}
	if !identity.ValidNationalID(nid) {
		return domain.Invalid(keyNID, msgBadNIDSum)
	}
	return t.Enter(ctx, StatePhone, state.Data{keyNID: nid})
}

func (f *Flow) onPhone(ctx context.Context, t *conversation.Turn) error {
	phone, ok := identity.NormalizePhone(t.Text())
	if !ok {
		return domain.Invalid(keyPhone, msgBadPhone)
	}
	return t.Enter(ctx, StateStudentChoice, state.Data{keyPhone: phone})
}

func (f *Flow) onStudentID(ctx context.Context, t *conversation.Turn) error {
	sid := identity.NormalizeNationalID(t.Text())
	if !identity.IsDigits(sid) {
		return domain.Invalid("student_id", msgBadStudentID)
	}
	return f.save(ctx, t, true, sid)
}

// save writes the collected identity in one upsert.
func (f *Flow) save(ctx context.Context, t *conversation.Turn, student bool, studentID string) error {
	d := t.Data()
	p := domain.Profile{
		UserID:     t.UserID(),
		FullName:   d.String(keyName),
		NationalID: d.String(keyNID),
		Phone:      d.String(keyPhone),
		StudentID:  studentID,
		IsStudent:  &student,
		Username:   t.Update().Username,
	}
	if err := f.store.UpsertProfile(ctx, p); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "profile.updated", slog.Bool("is_student", student))
	return t.Finish(ctx, msgSaved, t.Home())
}
