package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
)

type guard = func(conversation.Handler) conversation.Handler

// Event wizard states.
const (
	StateEventTitle          state.State = "admin_new_event_title"
	StateEventDesc           state.State = "admin_new_event_desc"
	StateEventCost           state.State = "admin_new_event_cost"
	StateEventCostAmount     state.State = "admin_new_event_cost_amount"
	StateEventNonStudentCost state.State = "admin_new_event_non_student_cost"
	StateEventCard           state.State = "admin_new_event_card"
	StateEventCert           state.State = "admin_new_event_cert"
	StateEventCertDiff       state.State = "admin_new_event_cert_diff"
	StateEventCertFee        state.State = "admin_new_event_cert_fee"
	StateEventCertFeeStudent state.State = "admin_new_event_cert_fee_student"
	StateEventCertFeeOther   state.State = "admin_new_event_cert_fee_non_student"
	StateEventCertCard       state.State = "admin_new_event_cert_card"
	StateEventCertHolder     state.State = "admin_new_event_cert_card_holder"
	StateEventPoster         state.State = "admin_new_event_poster"
)

const (
	msgEventTitle      = "📝 عنوان رویداد را وارد کنید:"
	msgEventBadTitle   = "❌ عنوان نمی‌تواند خالی باشد:"
	msgEventDesc       = "📄 توضیحات رویداد را وارد کنید (برای رد شدن - ارسال کنید):"
	msgEventCost       = "💰 نوع هزینه رویداد را انتخاب کنید:"
	msgPickOption      = "❌ لطفا یکی از گزینه‌ها را انتخاب کنید:"
	msgFixedAmount     = "💵 مبلغ ثبت‌نام را به تومان وارد کنید:"
	msgStudentAmount   = "🎓 مبلغ ثبت‌نام دانشجویان را به تومان وارد کنید:"
	msgNonStudentCost  = "🧑‍💼 مبلغ ثبت‌نام غیر دانشجویان را به تومان وارد کنید:"
	msgEventCard       = "💳 شماره کارت دریافت وجه را وارد کنید:"
	msgBadCard         = "❌ شماره کارت معتبر نیست. لطفا فقط اعداد را ارسال کنید:"
	msgCert            = "📜 آیا برای این رویداد گواهی صادر می‌شود؟"
	msgCertDiff        = "آیا هزینه گواهی برای دانشجویان و غیر دانشجویان متفاوت است؟"
	msgCertFee         = "💵 هزینه صدور گواهی را به تومان وارد کنید:"
	msgCertFeeStudent  = "🎓 هزینه گواهی دانشجویان را به تومان وارد کنید:"
	msgCertFeeOther    = "🧑‍💼 هزینه گواهی غیر دانشجویان را به تومان وارد کنید:"
	msgCertCard        = "💳 شماره کارت دریافت هزینه گواهی را وارد کنید:"
	msgCertHolder      = "👤 نام صاحب کارت را وارد کنید:"
	msgBadHolder       = "❌ نام صاحب کارت نمی‌تواند خالی باشد:"
	msgPoster          = "🖼️ پوستر رویداد را به صورت عکس ارسال کنید (برای رد شدن - ارسال کنید):"
	msgPosterNeedPhoto = "❌ لطفا عکس پوستر یا - ارسال کنید:"
	msgEventCreated    = "✅ رویداد «%s» با شناسه #%d ایجاد شد."
)

const (
	tokenCostFree     = "cost_free"
	tokenCostFixed    = "cost_fixed"
	tokenCostVariable = "cost_variable"
	tokenCertYes      = "cert_yes"
	tokenCertNo       = "cert_no"
	tokenCertDiffYes  = "cert_diff_yes"
	tokenCertDiffNo   = "cert_diff_no"
)

func amountHandler(key string, next state.State) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		n, ok := identity.ParseAmount(t.Text())
		if !ok {
			return domain.Invalid(key, msgNumber)
		}
		return t.Enter(ctx, next, state.Data{key: n})
	}
}

func cardNumber(s string) (string, bool) {
	s = strings.NewReplacer(" ", "", "-", "").Replace(identity.NormalizeNationalID(s))
	return s, identity.IsDigits(s)
}

func (f *Flow) registerWizard(e *conversation.Engine, only guard) {
	cancel := conversation.Row(conversation.Btn("❌ لغو", conversation.TokenCancel))
	costKB := conversation.Keyboard{
		conversation.Row(
			conversation.Btn("🆓 رایگان", tokenCostFree),
			conversation.Btn("💵 ثابت", tokenCostFixed),
			conversation.Btn("🎓 متغیر", tokenCostVariable),
		),
		cancel,
	}
	yesNo := func(yes, no string) conversation.Keyboard {
		return conversation.Keyboard{
			conversation.Row(conversation.Btn("✅ بله", yes), conversation.Btn("❌ خیر", no)),
			cancel,
		}
	}
	pick := func(context.Context, *conversation.Turn) error { return domain.Invalid("option", msgPickOption) }
	title := []string{"title"}

	e.Step(
		adminStep(StateEventTitle, msgEventTitle, nil, []state.State{StateEventDesc},
			func(ctx context.Context, t *conversation.Turn) error {
				v := conversation.Clean(t.Text())
				if v == "" {
					return domain.Invalid("title", msgEventBadTitle)
				}
				return t.Enter(ctx, StateEventDesc, state.Data{"title": v})
			}),
		adminStep(StateEventDesc, msgEventDesc, title, []state.State{StateEventCost},
			func(ctx context.Context, t *conversation.Turn) error {
				v := conversation.Clean(t.Text())
				if v == "-" {
					v = ""
				}
				return t.Enter(ctx, StateEventCost, state.Data{"description": v})
			}),
		conversation.Step{State: StateEventCost, Requires: title, Prompt: msgEventCost, Keyboard: costKB, Handle: pick},
		adminStep(StateEventCostAmount, msgFixedAmount, []string{"title", "cost_type"},
			[]state.State{StateEventNonStudentCost, StateEventCard}, f.onCostAmount),
		adminStep(StateEventNonStudentCost, msgNonStudentCost, []string{"title", "student_cost"}, []state.State{StateEventCard},
			amountHandler("non_student_cost", StateEventCard)),
		adminStep(StateEventCard, msgEventCard, []string{"title", "cost_type"}, []state.State{StateEventPoster},
			func(ctx context.Context, t *conversation.Turn) error {
				card, ok := cardNumber(t.Text())
				if !ok {
					return domain.Invalid("card_number", msgBadCard)
				}
				return t.Enter(ctx, StateEventPoster, state.Data{"card_number": card})
			}),
		conversation.Step{State: StateEventCert, Requires: title, Prompt: msgCert, Keyboard: yesNo(tokenCertYes, tokenCertNo), Handle: pick},
		conversation.Step{State: StateEventCertDiff, Requires: title, Prompt: msgCertDiff, Keyboard: yesNo(tokenCertDiffYes, tokenCertDiffNo), Handle: pick},
		adminStep(StateEventCertFee, msgCertFee, title, []state.State{StateEventCertCard},
			amountHandler("cert_fee", StateEventCertCard)),
		adminStep(StateEventCertFeeStudent, msgCertFeeStudent, title, []state.State{StateEventCertFeeOther},
			amountHandler("cert_fee_student", StateEventCertFeeOther)),
		adminStep(StateEventCertFeeOther, msgCertFeeOther, []string{"title", "cert_fee_student"}, []state.State{StateEventCertCard},
			amountHandler("cert_fee_non_student", StateEventCertCard)),
		adminStep(StateEventCertCard, msgCertCard, title, []state.State{StateEventCertHolder},
			func(ctx context.Context, t *conversation.Turn) error {
				card, ok := cardNumber(t.Text())
				if !ok {
					return domain.Invalid("cert_card_number", msgBadCard)
				}
				return t.Enter(ctx, StateEventCertHolder, state.Data{"cert_card_number": card})
			}),
		adminStep(StateEventCertHolder, msgCertHolder, []string{"title", "cert_card_number"}, []state.State{StateEventPoster},
			func(ctx context.Context, t *conversation.Turn) error {
				v := conversation.Clean(t.Text())
				if v == "" {
					return domain.Invalid("cert_card_holder", msgBadHolder)
				}
				return t.Enter(ctx, StateEventPoster, state.Data{"cert_card_holder": v})
			}),
		conversation.Step{
			State:    StateEventPoster,
			Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
			Requires: []string{"title", "cost_type"},
			Prompt:   msgPoster,
			Keyboard: conversation.Keyboard{cancel},
			Handle:   f.onPoster,
		},
	)

	e.On(TokenNewEvent, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateEventTitle, nil)
	}))
	e.OnIn(tokenCostFixed, StateEventCost, only(func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateEventCostAmount, state.Data{"cost_type": string(domain.CostFixed)})
	}))
	e.OnIn(tokenCostVariable, StateEventCost, only(func(ctx context.Context, t *conversation.Turn) error {
		if err := t.Move(StateEventCostAmount, state.Data{"cost_type": string(domain.CostVariable)}); err != nil {
			return err
		}
		return t.Reply(ctx, msgStudentAmount, conversation.Keyboard{cancel})
	}))
	e.OnIn(tokenCostFree, StateEventCost, only(func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateEventCert, state.Data{"cost_type": string(domain.CostFree)})
	}))
	e.OnIn(tokenCertNo, StateEventCert, only(func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateEventPoster, nil)
	}))
	e.OnIn(tokenCertYes, StateEventCert, only(func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateEventCertDiff, nil)
	}))
	e.OnIn(tokenCertDiffNo, StateEventCertDiff, only(func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateEventCertFee, nil)
	}))
	e.OnIn(tokenCertDiffYes, StateEventCertDiff, only(func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateEventCertFeeStudent, nil)
	}))
}

// onCostAmount stores the fixed price, or the student price of a variable
// event before asking for the non-student one.
func (f *Flow) onCostAmount(ctx context.Context, t *conversation.Turn) error {
	n, ok := identity.ParseAmount(t.Text())
	if !ok {
		return domain.Invalid("amount", msgNumber)
	}
	if domain.CostType(t.Data().String("cost_type")) == domain.CostVariable {
		return t.Enter(ctx, StateEventNonStudentCost, state.Data{"student_cost": n})
	}
	return t.Enter(ctx, StateEventCard, state.Data{"fixed_cost": n})
}

func (f *Flow) onPoster(ctx context.Context, t *conversation.Turn) error {
	posterID := ""
	if file := t.File(); file != nil {
		if err := f.d.Poster.Check(*file); err != nil {
			return err
		}
		if _, err := f.d.Keeper.Keep(ctx, "poster", t.UserID(), *file, t.Now()); err != nil {
			logger.Warn(ctx, logger.CompConv, "poster.keep_failed", slog.String("err", err.Error()))
		}
		posterID = file.ID
	} else if t.Text() != "-" {
		return domain.Invalid("poster", msgPosterNeedPhoto)
	}
	ev := eventFromData(t.Data())
	ev.PosterFileID = posterID
	ev.IsActive = true
	ev.SingleRegistration = f.d.SingleDefault
	admin := t.UserID()
	ev.CreatedBy = &admin
	if err := domain.ValidateStruct(ev, msgEventBadTitle); err != nil {
		return fmt.Errorf("event from wizard: %v", err)
	}
	id, err := f.d.Store.CreateEvent(ctx, ev)
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "event.created",
		slog.Int64("event_id", id),
		slog.String("cost_type", string(ev.CostType)),
	)
	return t.Finish(ctx, fmt.Sprintf(msgEventCreated, ev.Title, id), eventKeyboard(domain.Event{ID: id, IsActive: true, SingleRegistration: ev.SingleRegistration}))
}

func eventFromData(d state.Data) domain.Event {
	num := func(k string) int64 {
		n, _ := d.Int64(k)
		return n
	}
	return domain.Event{
		Title:             d.String("title"),
		Description:       d.String("description"),
		CostType:          domain.CostType(d.String("cost_type")),
		FixedCost:         num("fixed_cost"),
		StudentCost:       num("student_cost"),
		NonStudentCost:    num("non_student_cost"),
		CardNumber:        d.String("card_number"),
		CertFee:           num("cert_fee"),
		CertFeeStudent:    num("cert_fee_student"),
		CertFeeNonStudent: num("cert_fee_non_student"),
		CertCardNumber:    d.String("cert_card_number"),
		CertCardHolder:    d.String("cert_card_holder"),
	}
}
