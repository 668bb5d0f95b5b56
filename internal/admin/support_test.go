package admin_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
)

func TestTicketReplyClosesOnce(t *testing.T) {
	h := newHarness(t)
	h.do(convtest.Press(adminID, admin.TokenTickets))
	h.expectLast("هیچ تیکت بازی")

	id, err := h.store.CreateTicket(h.ctx, domain.Ticket{UserID: 42, Message: "When does the library open?"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	h.do(convtest.Press(adminID, admin.TokenTickets))
	m, _ := h.rec.Last(adminID)
	pick := conversation.Token("ticket_reply_", id)
	if !m.HasToken(pick) {
		t.Fatalf("ticket not listed: %v", m.Tokens())
	}
	h.do(convtest.Press(adminID, pick))
	h.expectLast("library open")
	if h.stateOf() != admin.StateTicketReply {
		t.Fatalf("state = %q", h.stateOf())
	}
	h.say("   ")
	h.expectLast("خالی")
	h.say("At nine")
	h.expectLast("تیکت بسته شد")
	if !h.rec.Contains(42, "پاسخ ادمین به تیکت شما:\n\nAt nine") {
		t.Fatalf("user not answered")
	}
	tk, _ := h.store.GetTicket(h.ctx, id)
	if tk.Status != domain.TicketClosed || tk.AdminReply != "At nine" || tk.RepliedBy == nil || *tk.RepliedBy != adminID {
		t.Fatalf("stored %+v", tk)
	}

	h.do(convtest.Press(adminID, pick))
	h.expectLast("قبلاً پردازش شده")
	if n := len(h.rec.To(42)); n != 1 {
		t.Fatalf("user received %d replies", n)
	}
}

func TestTicketClosedWhileTyping(t *testing.T) {
	h := newHarness(t)
	id, _ := h.store.CreateTicket(h.ctx, domain.Ticket{UserID: 42, Message: "Hi"})
	h.do(convtest.Press(adminID, conversation.Token("ticket_reply_", id)))
	if _, err := h.store.ReplyTicket(h.ctx, id, "first", 501, time.Unix(1_700_000_000, 0)); err != nil {
		t.Fatalf("reply: %v", err)
	}
	h.say("second")
	h.expectLast("قبلاً پردازش شده")
	tk, _ := h.store.GetTicket(h.ctx, id)
	if tk.AdminReply != "first" {
		t.Fatalf("reply overwritten: %q", tk.AdminReply)
	}
}

func TestFAQLifecycle(t *testing.T) {
	h := newHarness(t)
	h.do(convtest.Press(adminID, admin.TokenFAQ))
	h.do(convtest.Press(adminID, "admin_add_faq"))
	h.say("Where is the office?", "Building 3")
	h.expectLast("سوال متداول اضافه شد")
	faqs, _ := h.store.ListFAQs(h.ctx)
	if len(faqs) != 1 || faqs[0].Answer != "Building 3" {
		t.Fatalf("faqs = %+v", faqs)
	}
	id := faqs[0].ID

	h.do(convtest.Press(adminID, conversation.Token("admin_edit_faq_", id)))
	h.expectLast("Where is the office?")
	h.say("-", "Building 4, room 2")
	m := h.expectLast("سوال ویرایش شد")
	if !m.HasToken(conversation.Token("admin_del_faq_", id)) {
		t.Fatalf("list missing delete: %v", m.Tokens())
	}
	q, _ := h.store.GetFAQ(h.ctx, id)
	if q.Question != "Where is the office?" || q.Answer != "Building 4, room 2" {
		t.Fatalf("edited = %+v", q)
	}

	h.do(convtest.Press(adminID, conversation.Token("admin_del_faq_", id)))
	h.expectLast("سوال حذف شد")
	if faqs, _ := h.store.ListFAQs(h.ctx); len(faqs) != 0 {
		t.Fatalf("faq not deleted")
	}
	h.do(convtest.Press(adminID, conversation.Token("admin_del_faq_", id)))
	h.expectLast("پیدا نشد")
}

func TestHelpTextSetting(t *testing.T) {
	h := newHarness(t)
	h.do(convtest.Press(adminID, "admin_set_help_text"))
	h.say("Use the buttons below.")
	h.expectLast("متن راهنما ذخیره شد")
	if v, _, _ := h.store.GetSetting(h.ctx, domain.SettingHelpText); !strings.HasPrefix(v, "Use the buttons") {
		t.Fatalf("help text = %q", v)
	}
}
