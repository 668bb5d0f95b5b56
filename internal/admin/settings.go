package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/identity"
)

const (
	StateDonationCard   state.State = "admin_waiting_donation_card"
	StateDonationHolder state.State = "admin_waiting_donation_holder"
	StateDonationDesc   state.State = "admin_waiting_donation_desc"
	StateMembershipDesc state.State = "admin_waiting_membership_desc"
	StateNewAdmin       state.State = "admin_waiting_new_admin"
	StateHelpText       state.State = "admin_waiting_help_text"
)

const (
	tokenSetDonationCard   = "admin_set_donation_card"
	tokenSetDonationDesc   = "admin_set_donation_desc"
	tokenSetMembershipDesc = "admin_set_membership_desc"
	tokenSetHelpText       = "admin_set_help_text"
	tokenToggleNotify      = "admin_toggle_notify_"
)

const (
	msgSettings           = "⚙️ تنظیمات:"
	msgDonationCardPrompt = "💳 شماره کارت حمایت مالی را وارد کنید:"
	msgDonationHolder     = "👤 نام صاحب کارت را وارد کنید:"
	msgDonationSaved      = "✅ اطلاعات کارت حمایت ذخیره شد:\n%s\n%s"
	msgDonationDescPrompt = "📄 متن توضیحات حمایت مالی را ارسال کنید:"
	msgDonationDescSaved  = "✅ توضیحات حمایت ذخیره شد."
	msgMembershipPrompt   = "📄 متن توضیحات عضویت را ارسال کنید:"
	msgMembershipSaved    = "✅ توضیحات عضویت ذخیره شد."
	msgHelpTextPrompt     = "📖 متن راهنمای ربات را ارسال کنید:"
	msgHelpTextSaved      = "✅ متن راهنما ذخیره شد."
	msgEmptyText          = "❌ متن نمی‌تواند خالی باشد:"
	msgNotify             = "🔔 اعلان‌های ادمین:"
	msgNewAdminPrompt     = "👤 شناسه عددی کاربر را وارد کنید:"
	msgBadUserID          = "❌ شناسه کاربر معتبر نیست. لطفا فقط عدد ارسال کنید:"
	msgAdminAdded         = "✅ کاربر %d به عنوان ادمین اضافه شد."
)

var notifyLabels = map[string]string{
	domain.NotifyRegistration: "ثبت‌نام جدید",
	domain.NotifyMembership:   "عضویت جدید",
	domain.NotifyIdea:         "ایده جدید",
	domain.NotifyCollab:       "همکاری جدید",
	domain.NotifyDonation:     "حمایت مالی جدید",
	domain.NotifyTicket:       "تیکت جدید",
}

func settingsKeyboard() conversation.Keyboard {
	return conversation.Keyboard{
		conversation.Row(conversation.Btn("💳 کارت حمایت مالی", tokenSetDonationCard)),
		conversation.Row(conversation.Btn("📄 توضیحات حمایت", tokenSetDonationDesc)),
		conversation.Row(conversation.Btn("🪪 توضیحات عضویت", tokenSetMembershipDesc)),
		conversation.Row(conversation.Btn("📖 متن راهنما", tokenSetHelpText)),
		conversation.Row(conversation.Btn("🔙 بازگشت به پنل", TokenPanel)),
	}
}

func (f *Flow) registerSettings(e *conversation.Engine, only guard) {
	e.Step(
		adminStep(StateDonationCard, msgDonationCardPrompt, nil, []state.State{StateDonationHolder},
			func(ctx context.Context, t *conversation.Turn) error {
				card, ok := cardNumber(t.Text())
				if !ok {
					return domain.Invalid("donation_card", msgBadCard)
				}
				return t.Enter(ctx, StateDonationHolder, state.Data{"donation_card": card})
			}),
		adminStep(StateDonationHolder, msgDonationHolder, []string{"donation_card"}, nil, f.onDonationHolder),
		adminStep(StateDonationDesc, msgDonationDescPrompt, nil, nil,
			f.saveText(domain.SettingDonationDesc, msgDonationDescSaved)),
		adminStep(StateMembershipDesc, msgMembershipPrompt, nil, nil,
			f.saveText(domain.SettingMembershipDesc, msgMembershipSaved)),
		adminStep(StateNewAdmin, msgNewAdminPrompt, nil, nil, f.onNewAdmin),
		adminStep(StateHelpText, msgHelpTextPrompt, nil, nil,
			f.saveText(domain.SettingHelpText, msgHelpTextSaved)),
	)
	enter := func(st state.State) conversation.Handler {
		return only(func(ctx context.Context, t *conversation.Turn) error {
			t.Clear()
			return t.Enter(ctx, st, nil)
		})
	}
	e.On(TokenSettings, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Reply(ctx, msgSettings, settingsKeyboard())
	}))
	e.On(tokenSetDonationCard, enter(StateDonationCard))
	e.On(tokenSetDonationDesc, enter(StateDonationDesc))
	e.On(tokenSetMembershipDesc, enter(StateMembershipDesc))
	e.On(TokenAddAdmin, f.d.Roster.OwnerOnly(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateNewAdmin, nil)
	}))
	e.On(tokenSetHelpText, enter(StateHelpText))
	e.On(TokenNotify, only(func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Reply(ctx, msgNotify, f.notifyKeyboard(ctx))
	}))
	e.OnID(tokenToggleNotify, only(f.onToggleNotify))
}

func (f *Flow) notifyKeyboard(ctx context.Context) conversation.Keyboard {
	var kb conversation.Keyboard
	for i, key := range domain.NotifyKeys() {
		mark := "🔕"
		if f.d.Notifier.Enabled(ctx, key) {
			mark = "🔔"
		}
		kb = append(kb, conversation.Row(conversation.Btn(mark+" "+notifyLabels[key], conversation.Token(tokenToggleNotify, int64(i)))))
	}
	return append(kb, conversation.Row(conversation.Btn("🔙 بازگشت به پنل", TokenPanel)))
}

func (f *Flow) onToggleNotify(ctx context.Context, t *conversation.Turn) error {
	keys := domain.NotifyKeys()
	i := int(t.ID())
	if i >= len(keys) {
		return domain.Ineligible(domain.ReasonNotFound)
	}
	value := "1"
	if f.d.Notifier.Enabled(ctx, keys[i]) {
		value = "0"
	}
	if err := f.d.Store.SetSetting(ctx, keys[i], value); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "notify.toggled",
		slog.String("key", keys[i]),
		slog.String("value", value),
	)
	return t.Reply(ctx, msgNotify, f.notifyKeyboard(ctx))
}

func (f *Flow) onDonationHolder(ctx context.Context, t *conversation.Turn) error {
	holder := conversation.Clean(t.Text())
	if holder == "" {
		return domain.Invalid("donation_card_holder", msgBadHolder)
	}
	card := t.Data().String("donation_card")
	if err := f.d.Store.SetSetting(ctx, domain.SettingDonationCard, card); err != nil {
		return err
	}
	if err := f.d.Store.SetSetting(ctx, domain.SettingDonationCardHolder, holder); err != nil {
		return err
	}
	return t.Finish(ctx, fmt.Sprintf(msgDonationSaved, card, holder), backToPanel())
}

func (f *Flow) saveText(key, saved string) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		v := conversation.Clean(t.Text())
		if v == "" {
			return domain.Invalid(key, msgEmptyText)
		}
		if err := f.d.Store.SetSetting(ctx, key, v); err != nil {
			return err
		}
		return t.Finish(ctx, saved, backToPanel())
	}
}

func (f *Flow) onNewAdmin(ctx context.Context, t *conversation.Turn) error {
	raw := identity.NormalizeNationalID(t.Text())
	id, err := strconv.ParseInt(raw, 10, 64)
	if !identity.IsDigits(raw) || err != nil || id <= 0 {
		return domain.Invalid("admin_id", msgBadUserID)
	}
	if err := f.d.Store.AddAdmin(ctx, id, t.UserID(), "admin"); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "admin.added",
		slog.Int64("new_admin", id),
	)
	return t.Finish(ctx, fmt.Sprintf(msgAdminAdded, id), backToPanel())
}
