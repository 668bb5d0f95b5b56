package admin_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/moderation"
	"github.com/m3rciful/assocbot/internal/storage"
)

func (h *harness) register(evID, user int64, status domain.RegistrationStatus) {
	h.t.Helper()
	id, err := h.store.CommitRegistration(h.ctx, storage.RegistrationCommit{
		Profile: domain.Profile{UserID: user, FullName: "Member"},
		EventID: evID,
		Now:     time.Unix(1_700_000_000, 0),
	}, nil)
	if err != nil {
		h.t.Fatalf("commit: %v", err)
	}
	if status != domain.RegPending {
		if _, err := h.store.ReviewRegistration(h.ctx, id, status, "", adminID, time.Unix(1_700_000_000, 0)); err != nil {
			h.t.Fatalf("review: %v", err)
		}
	}
}

func TestBroadcastToAllCountsFailures(t *testing.T) {
	h := newHarness(t)
	for _, u := range []int64{41, 42, 43} {
		if err := h.store.TouchUser(h.ctx, u, ""); err != nil {
			t.Fatalf("touch: %v", err)
		}
	}
	h.rec.Fail[43] = true

	h.do(convtest.Press(adminID, admin.TokenBroadcast))
	h.do(convtest.Press(adminID, "broadcast_all"))
	if h.stateOf() != admin.StateBroadcastContent {
		t.Fatalf("state = %q", h.stateOf())
	}
	h.say("  ")
	h.expectLast("پیام خالی")
	h.say("Meeting tonight")
	m := h.expectLast("ارسال همگانی به پایان رسید")
	if !strings.Contains(m.Text, "کل کاربران: 3") || !strings.Contains(m.Text, "دریافت کردند: 2") || !strings.Contains(m.Text, "ارسال نشد: 1") {
		t.Fatalf("summary = %q", m.Text)
	}
	for _, u := range []int64{41, 42} {
		if !h.rec.Contains(u, "Meeting tonight") {
			t.Fatalf("user %d not reached", u)
		}
	}
	actions, _ := h.store.ListActions(h.ctx, 5)
	if len(actions) == 0 || actions[0].Action != "broadcast_all" {
		t.Fatalf("broadcast not audited: %+v", actions)
	}
}

func TestBroadcastByStatusAndEvent(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent()
	other := h.createEvent()
	h.register(ev, 41, domain.RegApproved)
	h.register(ev, 42, domain.RegRejected)
	h.register(other, 43, domain.RegApproved)
	h.register(ev, 44, domain.RegPending)

	h.do(convtest.Press(adminID, conversation.Token("admin_message_rejected_", ev)))
	h.say("Sorry")
	if !h.rec.Contains(42, "Sorry") || h.rec.Contains(41, "Sorry") || h.rec.Contains(44, "Sorry") {
		t.Fatalf("rejected audience wrong")
	}

	h.do(convtest.Press(adminID, "broadcast_by_event"))
	m, _ := h.rec.Last(adminID)
	if !m.HasToken(conversation.Token("broadcast_event_", other)) {
		t.Fatalf("event picker tokens %v", m.Tokens())
	}
	h.do(convtest.Press(adminID, conversation.Token("broadcast_event_", other)))
	h.say("Room 12")
	if !h.rec.Contains(43, "Room 12") || h.rec.Contains(41, "Room 12") {
		t.Fatalf("per-event audience wrong")
	}
}

func TestBroadcastRateLimited(t *testing.T) {
	h := newHarness(t)
	if err := h.store.TouchUser(h.ctx, 41, ""); err != nil {
		t.Fatalf("touch: %v", err)
	}
	for i := 0; i < 2; i++ {
		h.do(convtest.Press(adminID, "broadcast_all"))
		h.say("hello")
		h.expectLast("ارسال همگانی به پایان رسید")
	}
	h.do(convtest.Press(adminID, "broadcast_all"))
	h.say("hello")
	h.expectLast("امکان ارسال پیام همگانی")
	if h.stateOf() != admin.StateBroadcastContent {
		t.Fatalf("limited broadcast left state %q", h.stateOf())
	}
	if n := len(h.rec.To(41)); n != 2 {
		t.Fatalf("user received %d broadcasts", n)
	}
}

func TestBroadcastForwardsFiles(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent()
	h.register(ev, 41, domain.RegApproved)
	h.do(convtest.Press(adminID, conversation.Token("admin_message_approved_", ev)))
	up := convtest.Upload(adminID, conversation.File{ID: "poster-9", Photo: true})
	up.Text = "See you"
	h.do(up)
	m, ok := h.rec.Last(41)
	if !ok || m.File == nil || m.File.FileID != "poster-9" || m.Text != "See you" {
		t.Fatalf("user got %+v", m)
	}
}

func TestSendToID(t *testing.T) {
	h := newHarness(t)
	h.do(convtest.Press(adminID, "admin_send_to_id"))
	h.say("x1")
	h.expectLast("شناسه کاربر معتبر نیست")
	h.say("777")
	h.expectLast("777")
	if h.stateOf() != admin.StateSendToIDContent {
		t.Fatalf("state = %q", h.stateOf())
	}
	h.say("Your card is ready")
	h.expectLast("پیام به 777 ارسال شد")
	if !h.rec.Contains(777, "Your card is ready") {
		t.Fatalf("target not reached")
	}
}

func TestReminderPreviewAndConfirm(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent()
	h.do(convtest.Press(adminID, conversation.Token("admin_remind_", ev)))
	h.expectLast("کاربری برای یادآوری وجود ندارد")

	h.register(ev, 41, domain.RegApproved)
	h.register(ev, 42, domain.RegPending)
	h.do(convtest.Press(adminID, conversation.Token("admin_remind_", ev)))
	m := h.expectLast("به 1 کاربر ارسال خواهد شد")
	if !strings.Contains(m.Text, "Member (41)") {
		t.Fatalf("sample missing: %q", m.Text)
	}
	if len(h.rec.To(41)) != 0 {
		t.Fatalf("preview already delivered")
	}
	confirm := conversation.Token("admin_remind_confirm_", ev)
	if !m.HasToken(confirm) {
		t.Fatalf("confirm button missing: %v", m.Tokens())
	}
	h.do(convtest.Press(adminID, confirm))
	h.expectLast("یادآوری برای 1 نفر ارسال شد")
	got, ok := h.rec.Last(41)
	if !ok || !strings.Contains(got.Text, "Hackathon") || !got.HasToken(conversation.Token("event_", ev)) {
		t.Fatalf("reminder = %+v", got)
	}
	if h.rec.Contains(42, "یادآوری") {
		t.Fatalf("pending registrant reminded")
	}
}

func TestEventCardOffersBulkActions(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent()
	h.do(convtest.Press(adminID, conversation.Token(admin.TokenEvents+"_", ev)))
	m, _ := h.rec.Last(adminID)
	for _, tok := range []string{
		conversation.Token(moderation.TokenBulkReg, ev),
		conversation.Token("admin_remind_", ev),
		conversation.Token("admin_message_approved_", ev),
		conversation.Token("admin_message_rejected_", ev),
	} {
		if !m.HasToken(tok) {
			t.Fatalf("event card missing %s: %v", tok, m.Tokens())
		}
	}
}
