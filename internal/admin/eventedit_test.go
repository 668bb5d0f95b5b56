package admin_test

import (
	"strings"
	"testing"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/notify"
)

func TestEditEventFields(t *testing.T) {
	h := newHarness(t)
	id := h.createEvent()

	h.do(convtest.Press(adminID, conversation.Token("admin_ev_title_", id)))
	if h.stateOf() != admin.StateEditTitle {
		t.Fatalf("state = %q", h.stateOf())
	}
	h.say("  ")
	h.expectLast("خالی")
	h.say(strings.Repeat("x", 201))
	h.expectLast("طولانی")
	h.say("Hackathon 2024")
	h.expectLast("عنوان با موفقیت ویرایش شد")

	h.do(convtest.Press(adminID, conversation.Token("admin_ev_desc_", id)))
	h.say("Two days of code")
	h.expectLast("توضیحات با موفقیت")

	h.do(convtest.Press(adminID, conversation.Token("admin_ev_card_", id)))
	h.say("not a card")
	h.expectLast("شماره کارت معتبر نیست")
	h.say("6037-9911-2233-4455")
	h.expectLast("شماره کارت با موفقیت")

	ev, _ := h.store.GetEvent(h.ctx, id)
	if ev.Title != "Hackathon 2024" || ev.Description != "Two days of code" || ev.CardNumber != "6037991122334455" {
		t.Fatalf("edited event = %+v", ev)
	}
	if h.stateOf() != state.StateIdle {
		t.Fatalf("edit left state %q", h.stateOf())
	}
}

func TestEditPosterNeedsPhoto(t *testing.T) {
	h := newHarness(t)
	id := h.createEvent()
	h.do(convtest.Press(adminID, conversation.Token("admin_ev_poster_", id)))
	h.say("-")
	h.expectLast("به صورت عکس")
	h.do(convtest.Upload(adminID, conversation.File{ID: "doc-1", Name: "poster.png", Size: 1024}))
	h.expectLast("به صورت عکس")
	h.do(convtest.Upload(adminID, conversation.File{ID: "photo-2", Photo: true, Size: 2048}))
	h.expectLast("پوستر رویداد به‌روزرسانی شد")
	if ev, _ := h.store.GetEvent(h.ctx, id); ev.PosterFileID != "photo-2" {
		t.Fatalf("poster = %q", ev.PosterFileID)
	}
}

func TestEditMissingEvent(t *testing.T) {
	h := newHarness(t)
	h.do(convtest.Press(adminID, conversation.Token("admin_ev_title_", 99)))
	h.expectLast("پیدا نشد")
	if h.stateOf() == admin.StateEditTitle {
		t.Fatalf("entered edit for a missing event")
	}
}

func TestEventStats(t *testing.T) {
	h := newHarness(t)
	h.do(convtest.Press(adminID, admin.TokenStats))
	h.expectLast("هیچ رویدادی")

	id := h.createEvent()
	five := 5
	if err := h.store.SetCapacity(h.ctx, id, &five); err != nil {
		t.Fatalf("capacity: %v", err)
	}
	h.register(id, 41, domain.RegApproved)
	h.register(id, 42, domain.RegRejected)
	h.register(id, 43, domain.RegPending)

	h.do(convtest.Press(adminID, admin.TokenStats))
	m := h.expectLast("آمار بر اساس رویداد")
	if !m.HasToken(conversation.Token(admin.TokenStats+"_", id)) {
		t.Fatalf("event not listed: %v", m.Tokens())
	}
	h.do(convtest.Press(adminID, conversation.Token(admin.TokenStats+"_", id)))
	m = h.expectLast("تایید شده: 1")
	for _, want := range []string{"رد شده: 1", "در انتظار: 1", "مجموع: 3", "ظرفیت باقی‌مانده: 3"} {
		if !strings.Contains(m.Text, want) {
			t.Fatalf("stats %q lacks %q", m.Text, want)
		}
	}
}

func TestManageAdmins(t *testing.T) {
	h := newHarness(t)
	if err := h.store.AddAdmin(h.ctx, 777, adminID, "admin"); err != nil {
		t.Fatalf("add: %v", err)
	}

	h.do(convtest.Press(777, admin.TokenManageAdmins))
	if !h.rec.Contains(777, notify.MsgOwnerOnly) {
		t.Fatalf("non-owner admin reached admin management")
	}
	h.do(convtest.Press(777, admin.TokenAddAdmin))
	if m, _ := h.rec.Last(777); m.Text != notify.MsgOwnerOnly {
		t.Fatalf("non-owner could add admins: %q", m.Text)
	}

	h.do(convtest.Press(adminID, admin.TokenManageAdmins))
	m := h.expectLast("لیست ادمین‌ها")
	remove := conversation.Token("admin_remove_admin_", 777)
	if !m.HasToken(remove) || m.HasToken(conversation.Token("admin_remove_admin_", adminID)) {
		t.Fatalf("admin list tokens = %v", m.Tokens())
	}

	h.do(convtest.Press(adminID, conversation.Token("admin_remove_admin_", adminID)))
	h.expectLast("قابل حذف نیستند")

	h.do(convtest.Press(adminID, remove))
	m = h.expectLast("ادمین 777 حذف شد")
	if m.HasToken(remove) {
		t.Fatalf("removed admin still listed")
	}
	if ok, _ := h.store.IsAdmin(h.ctx, 777); ok {
		t.Fatalf("admin not removed")
	}
	h.do(convtest.Press(adminID, remove))
	h.expectLast("ادمین نیست")
}
