package registration_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/moderation"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/registration"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/storage/memstore"
)

const adminID = 500

type harness struct {
	t     *testing.T
	ctx   context.Context
	eng   *conversation.Engine
	store *memstore.Store
	rec   *convtest.Recorder
	now   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: memstore.New(),
		rec:   convtest.New(),
		now:   time.Unix(1_700_000_000, 0),
	}
	h.eng = conversation.New(state.NewMemoryStore(), h.rec,
		conversation.WithClock(func() time.Time { return h.now }))
	n := notify.New(notify.NewRoster(h.store, adminID, nil), h.store, h.rec, nil)
	h.eng.Mount(registration.New(registration.Deps{Store: h.store, Notifier: n}))
	if err := h.eng.Validate(); err != nil {
		t.Fatalf("table: %v", err)
	}
	return h
}

func (h *harness) event(e domain.Event) int64 {
	h.t.Helper()
	e.IsActive = true
	id, err := h.store.CreateEvent(h.ctx, e)
	if err != nil {
		h.t.Fatalf("create event: %v", err)
	}
	return id
}

func (h *harness) do(u conversation.Update) conversation.Result {
	h.t.Helper()
	res, err := h.eng.Handle(h.ctx, u)
	if err != nil {
		h.t.Fatalf("handle %+v: %v", u, err)
	}
	return res
}

func (h *harness) expectLast(user int64, substr string) convtest.Message {
	h.t.Helper()
	m, ok := h.rec.Last(user)
	if !ok || !strings.Contains(m.Text, substr) {
		h.t.Fatalf("last message to %d = %q, want it to contain %q", user, m.Text, substr)
	}
	return m
}

func (h *harness) stateOf(user int64) state.State {
	st, _ := h.eng.Store().GetState(user)
	return st
}

func (h *harness) seedRegistration(user, eventID int64) int64 {
	h.t.Helper()
	student := false
	id, err := h.store.CommitRegistration(h.ctx, storage.RegistrationCommit{
		Profile: domain.Profile{UserID: user, FullName: "کاربر تست", NationalID: "0499370899", Phone: "9123456789", IsStudent: &student},
		EventID: eventID,
		Now:     h.now,
	}, nil)
	if err != nil {
		h.t.Fatalf("seed registration: %v", err)
	}
	return id
}

func TestManualRegistrationWithReceipt(t *testing.T) {
	h := newHarness(t)
	ev := h.event(domain.Event{
		Title: "کارگاه گو", CostType: domain.CostVariable, StudentCost: 50000, NonStudentCost: 80000,
		CardNumber: "6037991234567890", SingleRegistration: true,
	})
	const user = 10

	h.do(convtest.Press(user, conversation.Token(registration.TokenStart, ev)))
	h.expectLast(user, "نام و نام خانوادگی")

	h.do(convtest.Text(user, "ab"))
	h.expectLast(user, "حداقل 3 کاراکتر")
	if h.stateOf(user) != registration.StateName {
		t.Fatalf("validation moved state to %s", h.stateOf(user))
	}

	h.do(convtest.Text(user, "  علی   رضایی "))
	h.expectLast(user, "کد ملی")
	h.do(convtest.Text(user, "12345"))
	h.expectLast(user, "10 رقمی و عددی")
	h.do(convtest.Text(user, "0499370890"))
	h.expectLast(user, "معتبر نیست")
	h.do(convtest.Text(user, "0499370899"))
	h.expectLast(user, "شماره تماس")

	h.do(convtest.Text(user, "12"))
	h.expectLast(user, "10 رقمی باشد")
	h.do(convtest.Text(user, "0912 345-6789"))
	m := h.expectLast(user, "دانشجو هستید")
	if !m.HasToken(registration.TokenStudentYes) || !m.HasToken(registration.TokenStudentNo) {
		t.Fatalf("student question lacks buttons: %v", m.Tokens())
	}

	h.do(convtest.Text(user, "بله"))
	h.expectLast(user, "یکی از گزینه‌ها")

	h.do(convtest.Press(user, registration.TokenStudentYes))
	h.expectLast(user, "شماره دانشجویی")
	h.do(convtest.Text(user, "98a"))
	h.expectLast(user, "عددی باشد")
	h.do(convtest.Text(user, "9812345"))
	m = h.expectLast(user, "50,000 تومان")
	if !strings.Contains(m.Text, "6037991234567890") || !m.HasToken(registration.TokenPaymentDone) {
		t.Fatalf("payment message incomplete: %q %v", m.Text, m.Tokens())
	}

	h.do(convtest.Press(user, registration.TokenPaymentDone))
	h.expectLast(user, "فیش واریز")
	h.do(convtest.Text(user, "فرستادم"))
	h.expectLast(user, "لطفا یک عکس یا فایل")
	h.do(convtest.Upload(user, conversation.File{ID: "doc-1", Name: "fish.docx", Size: 100}))
	h.expectLast(user, "jpg, jpeg, png, pdf")
	h.do(convtest.Upload(user, conversation.File{ID: "big", Photo: true, Size: 11 << 20}))
	h.expectLast(user, "10MB")
	if h.stateOf(user) != registration.StateReceipt {
		t.Fatalf("rejected upload left state %s", h.stateOf(user))
	}

	res := h.do(convtest.Upload(user, conversation.File{ID: "photo-1", Photo: true, Size: 2048}))
	if res.Outcome != "ok" || res.Next != state.StateIdle {
		t.Fatalf("final result %+v", res)
	}
	h.expectLast(user, "با موفقیت انجام شد")
	if h.eng.Store().InProgress(user) {
		t.Fatalf("state not cleared after finalize")
	}

	regs, err := h.store.ListUserRegistrations(h.ctx, user)
	if err != nil || len(regs) != 1 {
		t.Fatalf("registrations %v, %v", regs, err)
	}
	r := regs[0]
	if r.Status != domain.RegPending || r.Amount != 50000 || !r.IsStudent || r.PaymentReceiptRef != "photo-1" {
		t.Fatalf("stored registration %+v", r)
	}
	p, err := h.store.GetProfile(h.ctx, user)
	if err != nil || p.FullName != "علی رضایی" || p.Phone != "9123456789" || p.StudentID != "9812345" {
		t.Fatalf("stored profile %+v, %v", p, err)
	}

	notice, ok := h.rec.Last(adminID)
	if !ok || notice.File == nil || notice.File.FileID != "photo-1" {
		t.Fatalf("admin notice %+v", notice)
	}
	if !notice.HasToken(conversation.Token(moderation.TokenApproveReg, r.ID)) {
		t.Fatalf("admin notice lacks approve button: %v", notice.Tokens())
	}
}

func TestNonStudentPaysNonStudentPrice(t *testing.T) {
	h := newHarness(t)
	ev := h.event(domain.Event{Title: "سمینار", CostType: domain.CostVariable, StudentCost: 50000, NonStudentCost: 80000})
	const user = 11
	h.do(convtest.Press(user, conversation.Token(registration.TokenStart, ev)))
	h.do(convtest.Text(user, "مریم احمدی"))
	h.do(convtest.Text(user, "0499370899"))
	h.do(convtest.Text(user, "09123456789"))
	h.do(convtest.Press(user, registration.TokenStudentNo))
	h.expectLast(user, "80,000 تومان")

	h.do(convtest.Upload(user, conversation.File{ID: "r-1", Name: "r.pdf", Size: 10}))
	h.expectLast(user, "با موفقیت انجام شد")
}

func TestFreeEventWithStoredProfileFinalizesImmediately(t *testing.T) {
	h := newHarness(t)
	ev := h.event(domain.Event{Title: "جلسه معارفه", CostType: domain.CostFree})
	const user = 12
	student := false
	if err := h.store.UpsertProfile(h.ctx, domain.Profile{
		UserID: user, FullName: "رضا کریمی", NationalID: "0499370899", Phone: "9123456789", IsStudent: &student,
	}); err != nil {
		t.Fatalf("profile: %v", err)
	}

	h.do(convtest.Press(user, conversation.Token(registration.TokenStart, ev)))
	m := h.expectLast(user, "اطلاعات پروفایل")
	if !m.HasToken(conversation.Token(registration.TokenUseProfile, ev)) {
		t.Fatalf("choice lacks use-profile button: %v", m.Tokens())
	}
	h.do(convtest.Press(user, conversation.Token(registration.TokenUseProfile, ev)))
	h.expectLast(user, "با موفقیت انجام شد")

	regs, _ := h.store.ListUserRegistrations(h.ctx, user)
	if len(regs) != 1 || regs[0].Amount != 0 || regs[0].PaymentReceiptRef != "" {
		t.Fatalf("free registration %+v", regs)
	}
}

func TestIncompleteProfileFallsBackToManual(t *testing.T) {
	h := newHarness(t)
	ev := h.event(domain.Event{Title: "رویداد", CostType: domain.CostFree})
	const user = 13
	if err := h.store.UpsertProfile(h.ctx, domain.Profile{UserID: user, FullName: "نا"}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	h.do(convtest.Press(user, conversation.Token(registration.TokenUseProfile, ev)))
	h.expectLast(user, "نام و نام خانوادگی")
	if !h.rec.Contains(user, "کامل نیست") {
		t.Fatalf("user was not told the profile is incomplete")
	}
	if h.stateOf(user) != registration.StateName {
		t.Fatalf("state %s", h.stateOf(user))
	}
}

func TestCapacityRejectsThirdBeforeStateChange(t *testing.T) {
	h := newHarness(t)
	capacity := 2
	ev := h.event(domain.Event{Title: "ظرفیت محدود", CostType: domain.CostFree, Capacity: &capacity})
	h.seedRegistration(1, ev)
	h.seedRegistration(2, ev)

	const user = 3
	res := h.do(convtest.Press(user, conversation.Token(registration.TokenStart, ev)))
	if res.Outcome != "ineligible" {
		t.Fatalf("outcome %q", res.Outcome)
	}
	h.expectLast(user, "ظرفیت")
	if h.eng.Store().InProgress(user) {
		t.Fatalf("refused user entered a flow")
	}
	h.do(convtest.Press(user, conversation.Token(registration.TokenManual, ev)))
	h.expectLast(user, "ظرفیت")
	h.do(convtest.Press(user, conversation.Token(registration.TokenUseProfile, ev)))
	h.expectLast(user, "ظرفیت")
	if h.eng.Store().InProgress(user) {
		t.Fatalf("refused user entered a flow")
	}
}

func TestSingleRegistrationApprovedBlocksRejectedAllows(t *testing.T) {
	h := newHarness(t)
	ev := h.event(domain.Event{Title: "تک ثبت‌نام", CostType: domain.CostFree, SingleRegistration: true})
	const user = 20

	first := h.seedRegistration(user, ev)
	if _, err := h.store.ReviewRegistration(h.ctx, first, domain.RegApproved, "", adminID, h.now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	h.do(convtest.Press(user, conversation.Token(registration.TokenStart, ev)))
	h.expectLast(user, "قبلاً برای این رویداد ثبت‌نام")

	other := h.event(domain.Event{Title: "دومی", CostType: domain.CostFree, SingleRegistration: true})
	second := h.seedRegistration(user, other)
	if _, err := h.store.ReviewRegistration(h.ctx, second, domain.RegRejected, "ناقص", adminID, h.now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	h.do(convtest.Press(user, conversation.Token(registration.TokenStart, other)))
	h.expectLast(user, "اطلاعات پروفایل")
	h.do(convtest.Press(user, conversation.Token(registration.TokenUseProfile, other)))
	h.expectLast(user, "با موفقیت انجام شد")

	regs, _ := h.store.ListUserRegistrations(h.ctx, user)
	if len(regs) != 3 {
		t.Fatalf("want 3 registrations, got %d", len(regs))
	}
}

func TestCommitRechecksCapacity(t *testing.T) {
	h := newHarness(t)
	capacity := 1
	ev := h.event(domain.Event{Title: "یک نفره", CostType: domain.CostFixed, FixedCost: 1000, Capacity: &capacity})
	const user = 30
	h.do(convtest.Press(user, conversation.Token(registration.TokenStart, ev)))
	h.do(convtest.Text(user, "سارا محمدی"))
	h.do(convtest.Text(user, "0499370899"))
	h.do(convtest.Text(user, "09123456789"))
	h.do(convtest.Press(user, registration.TokenStudentNo))
	h.expectLast(user, "1,000 تومان")

	// someone else takes the last seat while the user is paying
	h.seedRegistration(31, ev)

	res := h.do(convtest.Upload(user, conversation.File{ID: "late", Photo: true, Size: 10}))
	if res.Outcome != "ineligible" {
		t.Fatalf("outcome %q", res.Outcome)
	}
	h.expectLast(user, "ظرفیت")
	regs, _ := h.store.ListUserRegistrations(h.ctx, user)
	if len(regs) != 0 {
		t.Fatalf("late registration was stored: %+v", regs)
	}
	if _, err := h.store.GetProfile(h.ctx, user); err == nil {
		t.Fatalf("profile upserted although the commit was refused")
	}
}
