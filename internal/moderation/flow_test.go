package moderation_test

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/moderation"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/storage/memstore"
)

const (
	adminA = 900
	adminB = 901
	member = 42
)

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
	h := &harness{t: t, ctx: context.Background(), store: memstore.New(), rec: convtest.New(), now: time.Unix(1_700_000_000, 0)}
	h.eng = conversation.New(state.NewMemoryStore(), h.rec,
		conversation.WithClock(func() time.Time { return h.now }))
	h.eng.Mount(moderation.New(h.store, notify.NewRoster(h.store, adminA, []int64{adminB})))
	if err := h.eng.Validate(); err != nil {
		t.Fatalf("table: %v", err)
	}
	return h
}

func (h *harness) do(u conversation.Update) conversation.Result {
	h.t.Helper()
	res, err := h.eng.Handle(h.ctx, u)
	if err != nil {
		if _, partial := err.(*domain.DeliveryError); !partial {
			h.t.Fatalf("handle %+v: %v", u, err)
		}
	}
	return res
}

func (h *harness) last(chat int64) string {
	m, _ := h.rec.Last(chat)
	return m.Text
}

func (h *harness) idea() int64 {
	h.t.Helper()
	id, err := h.store.CreateIdea(h.ctx, domain.Idea{UserID: member, Title: "کتابخانه", Description: "قفسه جدید"})
	if err != nil {
		h.t.Fatalf("create idea: %v", err)
	}
	return id
}

func TestApproveWithExplanation(t *testing.T) {
	h := newHarness(t)
	id := h.idea()

	h.do(convtest.Press(adminA, conversation.Token("admin_approve_idea_", id)))
	if !strings.Contains(h.last(adminA), "توضیحی") {
		t.Fatalf("explanation prompt missing: %q", h.last(adminA))
	}
	st, _ := h.eng.Store().GetState(adminA)
	if st != moderation.StateExplain {
		t.Fatalf("state %s", st)
	}

	h.do(convtest.Text(adminA, "عالی بود"))
	want := "💡 وضعیت ایده شما (#" + strconv.FormatInt(id, 10) + "): ✅ تایید شد\n\nعالی بود"
	if got := h.last(member); got != want {
		t.Fatalf("user message %q, want %q", got, want)
	}
	if !strings.Contains(h.last(adminA), "با موفقیت") {
		t.Fatalf("admin result %q", h.last(adminA))
	}
	sub, _ := h.store.GetSubmission(h.ctx, domain.KindIdea, id)
	if sub.Status != domain.StatusApproved || sub.AdminNote != "عالی بود" || sub.ProcessedBy == nil || *sub.ProcessedBy != adminA {
		t.Fatalf("stored %+v", sub)
	}
	actions, _ := h.store.ListActions(h.ctx, 10)
	if len(actions) != 1 || actions[0].Action != "set_status_approved" || actions[0].TargetTable != "ideas" || actions[0].TargetID != id {
		t.Fatalf("audit %+v", actions)
	}
}

func TestSecondActionIsRejected(t *testing.T) {
	h := newHarness(t)
	id := h.idea()

	// both admins open the explanation step before either commits
	h.do(convtest.Press(adminA, conversation.Token("admin_approve_idea_", id)))
	h.do(convtest.Press(adminB, conversation.Token("admin_reject_idea_", id)))

	h.do(convtest.Text(adminA, "تایید"))
	first, _ := h.store.GetSubmission(h.ctx, domain.KindIdea, id)

	h.now = h.now.Add(time.Hour)
	res := h.do(convtest.Text(adminB, "رد"))
	if res.Outcome != "ineligible" {
		t.Fatalf("second outcome %q", res.Outcome)
	}
	if !strings.Contains(h.last(adminB), "قبلاً پردازش شده") || !strings.Contains(h.last(adminB), "approved") {
		t.Fatalf("second admin told %q", h.last(adminB))
	}
	after, _ := h.store.GetSubmission(h.ctx, domain.KindIdea, id)
	if after.Status != domain.StatusApproved || after.AdminNote != "تایید" || !after.ProcessedAt.Equal(*first.ProcessedAt) {
		t.Fatalf("second action changed the record: %+v", after)
	}
	if n := len(h.rec.To(member)); n != 1 {
		t.Fatalf("member got %d messages", n)
	}
	actions, _ := h.store.ListActions(h.ctx, 10)
	if len(actions) != 1 {
		t.Fatalf("audit rows %d", len(actions))
	}

	// pressing again after the fact is refused up front
	h.do(convtest.Press(adminB, conversation.Token("admin_mark_idea_", id)))
	if !strings.Contains(h.last(adminB), "قبلاً پردازش شده") {
		t.Fatalf("late press told %q", h.last(adminB))
	}
	if h.eng.Store().InProgress(adminB) {
		t.Fatalf("late press entered a flow")
	}
}

func TestEmptyExplanationUsesFallback(t *testing.T) {
	h := newHarness(t)
	id, _ := h.store.CreateDonation(h.ctx, domain.Donation{UserID: member, Amount: 50000})
	h.do(convtest.Press(adminA, conversation.Token("admin_reject_donation_", id)))
	h.do(convtest.Upload(adminA, conversation.File{ID: "proof", Photo: true}))
	m, _ := h.rec.Last(member)
	if m.File == nil || m.File.FileID != "proof" {
		t.Fatalf("file not relayed: %+v", m)
	}
	if !strings.HasSuffix(m.Text, "متاسفانه درخواست شما مورد تایید قرار نگرفت.") || !strings.HasPrefix(m.Text, "💰") {
		t.Fatalf("fallback text %q", m.Text)
	}
}

func TestDeliveryFailureKeepsDecision(t *testing.T) {
	h := newHarness(t)
	id, _ := h.store.CreateCollaboration(h.ctx, domain.Collaboration{UserID: member, FullName: "نیما", Organization: "شرکت"})
	h.rec.Fail[member] = true
	h.do(convtest.Press(adminA, conversation.Token("admin_approve_collab_", id)))
	res := h.do(convtest.Text(adminA, "خوش آمدید"))
	if res.Outcome != "partial" {
		t.Fatalf("outcome %q", res.Outcome)
	}
	if !strings.Contains(h.last(adminA), "با خطا مواجه شد") {
		t.Fatalf("admin told %q", h.last(adminA))
	}
	sub, _ := h.store.GetSubmission(h.ctx, domain.KindCollab, id)
	if sub.Status != domain.StatusApproved {
		t.Fatalf("decision rolled back: %s", sub.Status)
	}
}

func TestNonAdminCannotModerate(t *testing.T) {
	h := newHarness(t)
	id := h.idea()
	h.do(convtest.Press(member, conversation.Token("admin_approve_idea_", id)))
	if h.last(member) != notify.MsgDenied {
		t.Fatalf("non-admin told %q", h.last(member))
	}
	sub, _ := h.store.GetSubmission(h.ctx, domain.KindIdea, id)
	if sub.Status != domain.StatusPending {
		t.Fatalf("status changed to %s", sub.Status)
	}
}

func TestRegistrationReview(t *testing.T) {
	h := newHarness(t)
	ev, _ := h.store.CreateEvent(h.ctx, domain.Event{Title: "همایش", IsActive: true, CostType: domain.CostFree})
	commit := func(user int64) int64 {
		id, err := h.store.CommitRegistration(h.ctx, storage.RegistrationCommit{
			Profile: domain.Profile{UserID: user, FullName: "کاربر"}, EventID: ev, Now: h.now,
		}, nil)
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		return id
	}
	approveID := commit(member)
	rejectID := commit(member + 1)

	h.do(convtest.Press(adminA, conversation.Token(moderation.TokenApproveReg, approveID)))
	if !strings.Contains(h.last(member), "تایید شد") || !strings.Contains(h.last(member), "همایش") {
		t.Fatalf("user told %q", h.last(member))
	}
	h.do(convtest.Press(adminB, conversation.Token(moderation.TokenApproveReg, approveID)))
	if !strings.Contains(h.last(adminB), "قبلاً پردازش شده") {
		t.Fatalf("double approve told %q", h.last(adminB))
	}

	h.do(convtest.Press(adminA, conversation.Token(moderation.TokenRejectReg, rejectID)))
	if h.last(adminA) != "لطفا دلیل رد ثبت‌نام را بنویسید:" {
		t.Fatalf("reason prompt %q", h.last(adminA))
	}
	h.do(convtest.Text(adminA, "   "))
	if !strings.Contains(h.last(adminA), "خالی") {
		t.Fatalf("empty reason accepted")
	}
	h.do(convtest.Text(adminA, "فیش نامعتبر"))
	if !strings.Contains(h.last(member+1), "دلیل: فیش نامعتبر") {
		t.Fatalf("rejected user told %q", h.last(member+1))
	}
	r, _ := h.store.GetRegistration(h.ctx, rejectID)
	if r.Status != domain.RegRejected || r.RejectReason != "فیش نامعتبر" {
		t.Fatalf("stored %+v", r)
	}
}

func TestBulkApprove(t *testing.T) {
	h := newHarness(t)
	ev, _ := h.store.CreateEvent(h.ctx, domain.Event{Title: "کارگاه", IsActive: true, CostType: domain.CostFree})
	for _, user := range []int64{member, member + 1, member + 2} {
		if _, err := h.store.CommitRegistration(h.ctx, storage.RegistrationCommit{
			Profile: domain.Profile{UserID: user, FullName: "کاربر"}, EventID: ev, Now: h.now,
		}, nil); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	regs, _ := h.store.ListUserRegistrations(h.ctx, member+2)
	if _, err := h.store.ReviewRegistration(h.ctx, regs[0].ID, domain.RegRejected, "x", adminB, h.now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	h.rec.Fail[member+1] = true

	h.do(convtest.Press(adminA, conversation.Token(moderation.TokenBulkReg, ev)))
	if !strings.Contains(h.last(adminA), "2 ثبت‌نام تایید شد") || !strings.Contains(h.last(adminA), "1 کاربر") {
		t.Fatalf("admin told %q", h.last(adminA))
	}
	if !strings.Contains(h.last(member), "کارگاه") {
		t.Fatalf("member told %q", h.last(member))
	}
	if h.rec.Contains(member+2, "تایید شد") {
		t.Fatalf("rejected registrant was approved")
	}
	for _, user := range []int64{member, member + 1} {
		regs, _ := h.store.ListUserRegistrations(h.ctx, user)
		if regs[0].Status != domain.RegApproved {
			t.Fatalf("user %d status %s", user, regs[0].Status)
		}
	}

	h.do(convtest.Press(adminB, conversation.Token(moderation.TokenBulkReg, ev)))
	if !strings.Contains(h.last(adminB), "در انتظاری") {
		t.Fatalf("second bulk told %q", h.last(adminB))
	}
}
