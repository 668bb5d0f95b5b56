package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/format"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
	"github.com/m3rciful/assocbot/internal/moderation"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/uploads"
)

// States of the registration table.
const (
	StateName       state.State = "reg_name"
	StateNationalID state.State = "reg_national_id"
	StatePhone      state.State = "reg_phone"
	StateStudent    state.State = "reg_student"
	StateStudentID  state.State = "reg_student_id"
	StatePayment    state.State = "reg_payment"
	StateReceipt    state.State = "reg_receipt"
)

// Callback tokens.
const (
	TokenStart       = "start_register_"
	TokenManual      = "start_register_manual_"
	TokenUseProfile  = "use_profile_"
	TokenStudentYes  = "student_yes"
	TokenStudentNo   = "student_no"
	TokenPaymentDone = "payment_done"
)

const (
	keyEvent     = "event_id"
	keyName      = "full_name"
	keyNID       = "national_id"
	keyPhone     = "phone"
	keyStudent   = "is_student"
	keyStudentID = "student_id"
	keyAmount    = "amount"
	keyCard      = "card"
	keyHolder    = "holder"
)

var cancelRow = conversation.Row(conversation.Btn("❌ لغو فرایند", conversation.TokenCancel))

// Deps are the collaborators of the flow.
type Deps struct {
	Store    storage.Store
	Notifier *notify.Notifier
	Keeper   *uploads.Keeper
	Receipt  uploads.Rules
}

// Flow is the registration conversation.
type Flow struct {
	d Deps
}

// New returns the flow. A zero Receipt rule set gets the default limits.
func New(d Deps) *Flow {
	if d.Receipt.MaxBytes == 0 {
		d.Receipt = uploads.Receipt(0)
	}
	return &Flow{d: d}
}

// Register installs the steps and routes.
func (f *Flow) Register(e *conversation.Engine) {
	cancelOnly := conversation.Keyboard{cancelRow}
	studentKB := conversation.Keyboard{
		conversation.Row(
			conversation.Btn("🎓 دانشجو", TokenStudentYes),
			conversation.Btn("🧑‍💼 غیر دانشجو", TokenStudentNo),
		),
		cancelRow,
	}
	paymentKB := conversation.Keyboard{
		conversation.Row(conversation.Btn("✅ واریز کردم", TokenPaymentDone)),
		cancelRow,
	}
	e.Step(
		conversation.Step{
			State:    StateName,
			Requires: []string{keyEvent},
			Next:     []state.State{StateNationalID},
			Prompt:   msgAskName,
			Keyboard: cancelOnly,
			Handle:   f.onName,
		},
		conversation.Step{
			State:    StateNationalID,
			Requires: []string{keyEvent, keyName},
			Next:     []state.State{StatePhone},
			Prompt:   msgAskNationalID,
			Keyboard: cancelOnly,
			Handle:   f.onNationalID,
		},
		conversation.Step{
			State:    StatePhone,
			Requires: []string{keyEvent, keyName, keyNID},
			Next:     []state.State{StateStudent},
			Prompt:   msgAskPhone,
			Keyboard: cancelOnly,
			Handle:   f.onPhone,
		},
		conversation.Step{
			State:    StateStudent,
			Requires: []string{keyEvent, keyName, keyNID, keyPhone},
			Prompt:   msgAskStudent,
			Keyboard: studentKB,
			Handle: func(context.Context, *conversation.Turn) error {
				return domain.Invalid("is_student", msgPickOption)
			},
		},
		conversation.Step{
			State:    StateStudentID,
			Requires: []string{keyEvent, keyName, keyNID, keyPhone, keyStudent},
			Next:     []state.State{StatePayment},
			Prompt:   msgAskStudentID,
			Keyboard: cancelOnly,
			Handle:   f.onStudentID,
		},
		conversation.Step{
			State:    StatePayment,
			Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
			Requires: []string{keyEvent, keyAmount},
			Next:     []state.State{StateReceipt},
			Keyboard: paymentKB,
			Render:   renderPayment(paymentKB),
			Handle:   f.onPayment,
		},
		conversation.Step{
			State:     StateReceipt,
			Accepts:   []conversation.Kind{conversation.KindFile},
			WrongKind: msgNeedReceipt,
			Requires:  []string{keyEvent, keyAmount},
			Prompt:    msgAskReceipt,
			Keyboard:  cancelOnly,
			Handle:    f.onReceipt,
		},
	)

	e.OnID(TokenStart, f.onStart)
	e.OnID(TokenManual, f.onManual)
	e.OnID(TokenUseProfile, f.onUseProfile)
	e.OnIn(TokenStudentYes, StateStudent, func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateStudentID, state.Data{keyStudent: true})
	})
	e.OnIn(TokenStudentNo, StateStudent, func(ctx context.Context, t *conversation.Turn) error {
		t.Stay(state.Data{keyStudent: false})
		return f.quote(ctx, t)
	})
	e.OnIn(TokenPaymentDone, StatePayment, func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateReceipt, nil)
	})
}

func renderPayment(kb conversation.Keyboard) func(state.Data) (string, conversation.Keyboard) {
	return func(d state.Data) (string, conversation.Keyboard) {
		amount, _ := d.Int64(keyAmount)
		holder := ""
		if h := d.String(keyHolder); h != "" {
			holder = "👤 بنام: " + h + "\n"
		}
		return fmt.Sprintf(msgPayment, d.String(keyCard), holder, format.Toman(amount)), kb
	}
}

func (f *Flow) onStart(ctx context.Context, t *conversation.Turn) error {
	if _, err := Eligible(ctx, f.d.Store, t.ID(), t.UserID(), t.Now()); err != nil {
		return err
	}
	p, err := f.d.Store.GetProfile(ctx, t.UserID())
	if errors.Is(err, domain.ErrNotFound) || (err == nil && p.Empty()) {
		return f.begin(ctx, t, t.ID())
	}
	if err != nil {
		return err
	}
	kb := conversation.Rows(
		conversation.Btn("✅ استفاده از اطلاعات پروفایل من", conversation.Token(TokenUseProfile, t.ID())),
		conversation.Btn("✍️ وارد کردن دستی", conversation.Token(TokenManual, t.ID())),
		conversation.Btn("❌ لغو فرایند", conversation.TokenCancel),
	)
	return t.Reply(ctx, msgChooseSource, kb)
}

func (f *Flow) onManual(ctx context.Context, t *conversation.Turn) error {
	if _, err := Eligible(ctx, f.d.Store, t.ID(), t.UserID(), t.Now()); err != nil {
		return err
	}
	return f.begin(ctx, t, t.ID())
}

func (f *Flow) begin(ctx context.Context, t *conversation.Turn, eventID int64) error {
	t.Clear()
	logger.Info(ctx, logger.CompReg, "registration.started",
		slog.Int64("event_id", eventID),
	)
	return t.Enter(ctx, StateName, state.Data{keyEvent: eventID})
}

func (f *Flow) onUseProfile(ctx context.Context, t *conversation.Turn) error {
	if _, err := Eligible(ctx, f.d.Store, t.ID(), t.UserID(), t.Now()); err != nil {
		return err
	}
	p, err := f.d.Store.GetProfile(ctx, t.UserID())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err != nil || !p.Complete() {
		if err := t.Reply(ctx, msgProfileMissing, nil); err != nil {
			return err
		}
		return f.begin(ctx, t, t.ID())
	}
	t.Clear()
	patch := state.Data{
		keyEvent:     t.ID(),
		keyName:      p.FullName,
		keyNID:       p.NationalID,
		keyPhone:     p.Phone,
		keyStudentID: p.StudentID,
	}
	if p.IsStudent == nil {
		return t.Enter(ctx, StateStudent, patch)
	}
	patch[keyStudent] = *p.IsStudent
	if err := t.Move(StateStudent, patch); err != nil {
		return err
	}
	return f.quote(ctx, t)
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
		return domain.Invalid(keyNID, msgBadNIDFormat)
	}
	if !identity.ValidNationalID(nid) {
		return domain.Invalid(keyNID, msgBadNIDChecksum)
	}
	return t.Enter(ctx, StatePhone, state.Data{keyNID: nid})
}

func (f *Flow) onPhone(ctx context.Context, t *conversation.Turn) error {
	phone, ok := identity.NormalizePhone(t.Text())
	if !ok {
		return domain.Invalid(keyPhone, msgBadPhone)
	}
	return t.Enter(ctx, StateStudent, state.Data{keyPhone: phone})
}

func (f *Flow) onStudentID(ctx context.Context, t *conversation.Turn) error {
	sid := identity.NormalizeNationalID(t.Text())
	if !identity.IsDigits(sid) {
		return domain.Invalid(keyStudentID, msgBadStudentID)
	}
	t.Stay(state.Data{keyStudentID: sid})
	return f.quote(ctx, t)
}

// quote prices the event for the collected status and either finalizes or
// asks for payment.
func (f *Flow) quote(ctx context.Context, t *conversation.Turn) error {
	d := t.Data()
	eventID, _ := d.Int64(keyEvent)
	student, _ := d.Bool(keyStudent)
	ev, err := f.d.Store.GetEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	if err != nil {
		return err
	}
	q := Price(ev, student)
	logger.Debug(ctx, logger.CompReg, "registration.quoted",
		slog.Int64("event_id", eventID),
		slog.Int64("amount", q.Amount),
		slog.Bool("student", student),
	)
	if q.Free() {
		t.Stay(state.Data{keyAmount: int64(0)})
		return f.finalize(ctx, t, "")
	}
	return t.Enter(ctx, StatePayment, state.Data{
		keyAmount: q.Amount,
		keyCard:   q.Card,
		keyHolder: q.Holder,
	})
}

func (f *Flow) onPayment(ctx context.Context, t *conversation.Turn) error {
	if t.File() == nil {
		return domain.Invalid("payment", msgPressPaid)
	}
	return f.onReceipt(ctx, t)
}

func (f *Flow) onReceipt(ctx context.Context, t *conversation.Turn) error {
	file := t.File()
	if file == nil {
		return domain.Invalid("receipt", msgNeedReceipt)
	}
	if err := f.d.Receipt.Check(*file); err != nil {
		return err
	}
	path, err := f.d.Keeper.Keep(ctx, "receipt", t.UserID(), *file, t.Now())
	if err != nil {
		logger.Warn(ctx, logger.CompReg, "receipt.keep_failed", slog.String("err", err.Error()))
	}
	if path != "" {
		logger.Debug(ctx, logger.CompReg, "receipt.kept", slog.String("path", path))
	}
	return f.finalize(ctx, t, file.ID)
}

// finalize commits the registration. Admin notification follows the commit
// and cannot undo it.
func (f *Flow) finalize(ctx context.Context, t *conversation.Turn, receipt string) error {
	d := t.Data()
	eventID, _ := d.Int64(keyEvent)
	amount, _ := d.Int64(keyAmount)
	student, _ := d.Bool(keyStudent)
	profile := domain.Profile{
		UserID:     t.UserID(),
		FullName:   d.String(keyName),
		NationalID: d.String(keyNID),
		Phone:      d.String(keyPhone),
		StudentID:  d.String(keyStudentID),
		IsStudent:  &student,
		Username:   t.Update().Username,
	}
	if err := domain.Validator().Struct(profile); err != nil {
		return fmt.Errorf("profile for registration: %w", err)
	}
	id, err := f.d.Store.CommitRegistration(ctx, storage.RegistrationCommit{
		Profile:    profile,
		EventID:    eventID,
		Amount:     amount,
		IsStudent:  student,
		ReceiptRef: receipt,
		Now:        t.Now(),
	}, Check)
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompReg, "registration.committed",
		slog.Int64("registration_id", id),
		slog.Int64("event_id", eventID),
		slog.Int64("amount", amount),
	)
	replyErr := t.Finish(ctx, msgDone, t.Home())
	f.notifyAdmins(ctx, id, profile, eventID, amount, receipt)
	return replyErr
}

func (f *Flow) notifyAdmins(ctx context.Context, id int64, p domain.Profile, eventID, amount int64, receipt string) {
	if f.d.Notifier == nil {
		return
	}
	title := ""
	if ev, err := f.d.Store.GetEvent(ctx, eventID); err == nil {
		title = ev.Title
	}
	n := notify.Notice{
		Key:  domain.NotifyRegistration,
		Text: fmt.Sprintf(msgAdminNotice, p.FullName, p.UserID, title, format.Toman(amount)),
		Keyboard: conversation.Keyboard{conversation.Row(
			conversation.Btn("✅ تایید", conversation.Token(moderation.TokenApproveReg, id)),
			conversation.Btn("❌ رد", conversation.Token(moderation.TokenRejectReg, id)),
		)},
	}
	if receipt != "" {
		n.File = &conversation.Attachment{FileID: receipt}
	}
	f.d.Notifier.Broadcast(ctx, n)
}
