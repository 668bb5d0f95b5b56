package submissions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/format"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
)

const (
	StateDonateAmount   state.State = "donate_amount"
	StateDonateWaitPaid state.State = "donate_wait_paid"
	StateDonateReceipt  state.State = "donate_receipt"

	TokenDonate        = "user_donate"
	TokenDonateConfirm = "donate_confirm"
	TokenDonatePaid    = "donate_paid"
)

const (
	defaultDonationDesc = "با حمایت مالی خود به برگزاری رویدادهای انجمن کمک کنید."
	msgDonateIntro      = "💳 حمایت مالی از انجمن\n\n"
	msgDonateAmount     = "💳 لطفا مبلغ حمایت را به تومان وارد کنید (مثلا: 50000). اگر می‌خواهید مقدار را اعلام نکنید، 0 وارد کنید."
	msgDonateBadAmount  = "❌ لطفا یک عدد مبلغ معتبر وارد کنید (مثلا: 50000):"
	msgDonateNoCard     = "❌ اطلاعات کارت حمایت هنوز تنظیم نشده است. لطفا بعدا تلاش کنید."
	msgDonateCard       = "کارت: %s\nبنام: %s\nمبلغ اعلام‌شده: %s\n\nپس از پرداخت، دکمه زیر را بزنید."
	msgDonatePressPaid  = "❌ لطفا پس از پرداخت دکمه «پرداخت کردم» را بزنید یا رسید را ارسال کنید."
	msgDonateReceipt    = "📎 لطفا تصویر یا فایل رسید پرداخت را ارسال کنید:"
	msgDonateNeedFile   = "❌ لطفا تصویر یا فایل رسید را ارسال کنید:"
	msgDonateDone       = "✅ رسید دریافت شد و برای بررسی به ادمین ارسال شد. متشکریم!"
	msgDonateNotice     = "🔔 حمایت مالی جدید — #%d — کاربر: %d — مبلغ: %s"
)

func (f *Flow) registerDonation(e *conversation.Engine) {
	paidKB := conversation.Keyboard{
		conversation.Row(conversation.Btn("✅ پرداخت کردم", TokenDonatePaid)),
		conversation.Row(conversation.Btn("❌ لغو فرایند", conversation.TokenCancel)),
	}
	e.Step(
		conversation.Step{
			State:    StateDonateAmount,
			Next:     []state.State{StateDonateWaitPaid},
			Prompt:   msgDonateAmount,
			Keyboard: cancelKB,
			Handle:   f.onDonateAmount,
		},
		conversation.Step{
			State:    StateDonateWaitPaid,
			Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
			Requires: []string{"amount", "card"},
			Keyboard: paidKB,
			Render: func(d state.Data) (string, conversation.Keyboard) {
				amount, _ := d.Int64("amount")
				return fmt.Sprintf(msgDonateCard, d.String("card"), d.String("holder"), format.Toman(amount)), paidKB
			},
			Handle: func(ctx context.Context, t *conversation.Turn) error {
				if t.File() == nil {
					return domain.Invalid("paid", msgDonatePressPaid)
				}
				return f.onDonateReceipt(ctx, t)
			},
		},
		conversation.Step{
			State:     StateDonateReceipt,
			Accepts:   []conversation.Kind{conversation.KindFile},
			WrongKind: msgDonateNeedFile,
			Requires:  []string{"amount"},
			Prompt:    msgDonateReceipt,
			Keyboard:  cancelKB,
			Handle:    f.onDonateReceipt,
		},
	)
	e.On(TokenDonate, func(ctx context.Context, t *conversation.Turn) error {
		desc := f.setting(ctx, domain.SettingDonationDesc, defaultDonationDesc)
		kb := conversation.Rows(
			conversation.Btn("💳 ادامه و پرداخت", TokenDonateConfirm),
			conversation.Btn("🏠 منوی اصلی", conversation.TokenMainMenu),
		)
		return t.Reply(ctx, msgDonateIntro+desc, kb)
	})
	e.On(TokenDonateConfirm, func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateDonateAmount, nil)
	})
	e.OnIn(TokenDonatePaid, StateDonateWaitPaid, func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, StateDonateReceipt, nil)
	})
}

func (f *Flow) onDonateAmount(ctx context.Context, t *conversation.Turn) error {
	amount, ok := identity.ParseAmount(t.Text())
	if !ok {
		return domain.Invalid("amount", msgDonateBadAmount)
	}
	card := f.setting(ctx, domain.SettingDonationCard, "")
	if card == "" {
		return t.Finish(ctx, msgDonateNoCard, t.Home())
	}
	holder := f.setting(ctx, domain.SettingDonationCardHolder, "-")
	return t.Enter(ctx, StateDonateWaitPaid, state.Data{"amount": amount, "card": card, "holder": holder})
}

func (f *Flow) onDonateReceipt(ctx context.Context, t *conversation.Turn) error {
	if t.File() == nil {
		return domain.Invalid("receipt", msgDonateNeedFile)
	}
	fileID, path, err := f.attachment(ctx, t, "donation")
	if err != nil {
		return err
	}
	amount, _ := t.Data().Int64("amount")
	id, err := f.d.Store.CreateDonation(ctx, domain.Donation{
		UserID:   t.UserID(),
		Amount:   amount,
		Currency: "IRR",
		FileID:   fileID,
		FilePath: path,
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "donation.created",
		slog.Int64("target_id", id),
		slog.Int64("amount", amount),
	)
	replyErr := t.Finish(ctx, msgDonateDone, t.Home())
	f.announce(ctx, domain.KindDonation, id, fmt.Sprintf(msgDonateNotice, id, t.UserID(), format.Toman(amount)), fileID)
	return replyErr
}
