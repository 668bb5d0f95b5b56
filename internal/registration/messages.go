package registration

const (
	msgChooseSource   = "برای ثبت‌نام می‌خواهید از اطلاعات پروفایل خود استفاده کنید یا دستی وارد کنید؟"
	msgProfileMissing = "ℹ️ اطلاعات پروفایل شما کامل نیست. لطفا اطلاعات را دستی وارد کنید."
	msgAskName        = "👤 لطفا نام و نام خانوادگی خود را ارسال کنید:"
	msgBadName        = "❌ نام باید حداقل 3 کاراکتر باشد. لطفا دوباره ارسال کنید:"
	msgAskNationalID  = "🆔 لطفا کد ملی خود را ارسال کنید (10 رقمی):"
	msgBadNIDFormat   = "❌ کد ملی باید 10 رقمی و عددی باشد. لطفا دوباره ارسال کنید:"
	msgBadNIDChecksum = "❌ کد ملی وارد شده معتبر نیست. لطفا دوباره ارسال کنید:"
	msgAskPhone       = "📞 لطفا شماره تماس خود را ارسال کنید:"
	msgBadPhone       = "❌ شماره تماس باید 10 رقمی باشد (مثال: 09123456789). لطفا دوباره ارسال کنید:"
	msgAskStudent     = "❓ آیا شما دانشجو هستید؟"
	msgPickOption     = "❌ لطفا یکی از گزینه‌ها را انتخاب کنید:"
	msgAskStudentID   = "🎓 لطفا شماره دانشجویی خود را ارسال کنید:"
	msgBadStudentID   = "❌ شماره دانشجویی باید عددی باشد. لطفا دوباره ارسال کنید:"
	msgPayment        = "💳 شماره کارت: %s\n%s💰 مبلغ قابل پرداخت: %s\n\nپس از واریز، دکمه «واریز کردم» را بزنید."
	msgPressPaid      = "❌ لطفا پس از واریز دکمه «واریز کردم» را بزنید یا فیش را ارسال کنید."
	msgAskReceipt     = "🖼️ لطفا فیش واریز را به صورت عکس یا فایل ارسال کنید:"
	msgNeedReceipt    = "❌ لطفا یک عکس یا فایل فیش واریز ارسال کنید:"
	msgDone           = "✅ ثبت‌نام شما با موفقیت انجام شد و در حال بررسی است.\nپس از تایید ادمین، از طریق ربات به شما اطلاع داده می‌شود."
	msgAdminNotice    = "🔔 ثبت‌نام جدید\nکاربر: %s (%d)\nرویداد: %s\nمبلغ: %s"
)
