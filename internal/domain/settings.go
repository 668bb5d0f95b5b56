package domain

// Setting keys stored in the settings table.
const (
	SettingDonationCard       = "donation_card"
	SettingDonationCardHolder = "donation_card_holder"
	SettingDonationDesc       = "donation_description"
	SettingMembershipDesc     = "membership_description"
	SettingHelpText           = "user_help_text"
	SettingAboutText          = "user_about_text"

	NotifyRegistration = "notify_new_registration"
	NotifyMembership   = "notify_new_membership"
	NotifyIdea         = "notify_new_idea"
	NotifyCollab       = "notify_new_collab"
	NotifyDonation     = "notify_new_donation"
	NotifyTicket       = "notify_new_ticket"
)

// NotifyKeys lists every admin notification flag.
func NotifyKeys() []string {
	return []string{NotifyRegistration, NotifyMembership, NotifyIdea, NotifyCollab, NotifyDonation, NotifyTicket}
}

// NotifyKeyFor maps a submission kind to its notification flag.
func NotifyKeyFor(k SubmissionKind) string {
	switch k {
	case KindIdea:
		return NotifyIdea
	case KindCollab:
		return NotifyCollab
	case KindDonation:
		return NotifyDonation
	case KindMembership:
		return NotifyMembership
	}
	return ""
}

// DefaultMembershipDesc is shown when no membership description is stored.
const DefaultMembershipDesc = "برای عضویت، لطفاً اطلاعات خود را کامل وارد کنید. پس از بررسی، نتیجه به شما اطلاع داده خواهد شد."

// DefaultHelpText is shown when no help text is stored.
const DefaultHelpText = "راهنمای جامع ربات هنوز توسط ادمین تنظیم نشده است."

// DefaultAboutText introduces the bot when no about text is stored.
const DefaultAboutText = `🤖 ربات رسمی انجمن علمی دانشجویی

📌 امکانات:
- ثبت‌نام در رویدادهای علمی و کارگاه‌ها
- پاسخ به سوالات متداول
- ارتباط مستقیم با ادمین‌ها از طریق تیکت
- ارسال ایده، درخواست همکاری و حمایت مالی`
