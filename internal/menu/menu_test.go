package menu_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/admin"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/menu"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/registration"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/storage/memstore"
)

const (
	adminID = 500
	userID  = 42
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	eng   *conversation.Engine
	store *memstore.Store
	rec   *convtest.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, ctx: context.Background(), store: memstore.New(), rec: convtest.New()}
	m := menu.New(menu.Deps{Store: h.store, Roster: notify.NewRoster(h.store, adminID, nil)})
	h.eng = conversation.New(state.NewMemoryStore(), h.rec,
		conversation.WithFallback(m.Fallback()),
		conversation.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	h.eng.Mount(m)
	if err := h.eng.Validate(); err != nil {
		t.Fatalf("table: %v", err)
	}
	return h
}

func (h *harness) press(user int64, token string) convtest.Message {
	h.t.Helper()
	if _, err := h.eng.Handle(h.ctx, convtest.Press(user, token)); err != nil {
		h.t.Fatalf("press %s: %v", token, err)
	}
	m, ok := h.rec.Last(user)
	if !ok {
		h.t.Fatalf("no reply to %s", token)
	}
	return m
}

func (h *harness) event(e domain.Event) int64 {
	h.t.Helper()
	id, err := h.store.CreateEvent(h.ctx, e)
	if err != nil {
		h.t.Fatalf("create event: %v", err)
	}
	return id
}

func TestMainMenuShowsPanelToAdmins(t *testing.T) {
	h := newHarness(t)
	if m := h.press(userID, conversation.TokenMainMenu); m.Text != menu.MsgMain || m.HasToken(admin.TokenPanel) {
		t.Fatalf("member menu = %q %v", m.Text, m.Tokens())
	}
	if m := h.press(adminID, conversation.TokenMainMenu); !m.HasToken(admin.TokenPanel) {
		t.Fatalf("admin menu lacks panel: %v", m.Tokens())
	}
}

func TestMainMenuRecordsUser(t *testing.T) {
	h := newHarness(t)
	u := convtest.Press(userID, conversation.TokenMainMenu)
	u.Username = "sara"
	if _, err := h.eng.Handle(h.ctx, u); err != nil {
		t.Fatalf("handle: %v", err)
	}
	p, err := h.store.GetProfile(h.ctx, userID)
	if err != nil || p.Username != "sara" || p.FullName != "" {
		t.Fatalf("profile = %+v, %v", p, err)
	}

	h.store.FailNext = errors.New("db down")
	if m := h.press(userID, conversation.TokenMainMenu); m.Text != menu.MsgMain {
		t.Fatalf("menu blocked by storage failure: %q", m.Text)
	}
}

func TestFallbackOnStrayText(t *testing.T) {
	h := newHarness(t)
	if _, err := h.eng.Handle(h.ctx, convtest.Text(userID, "hello")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	m, ok := h.rec.Last(userID)
	if !ok || !m.HasToken(menu.TokenActive) {
		t.Fatalf("fallback did not show the menu: %+v", m)
	}
}

func TestActiveAndArchivedEvents(t *testing.T) {
	h := newHarness(t)
	if m := h.press(userID, menu.TokenActive); !strings.Contains(m.Text, "هیچ رویداد فعالی") {
		t.Fatalf("empty list text = %q", m.Text)
	}
	open := h.event(domain.Event{Title: "Workshop", CostType: domain.CostVariable, StudentCost: 50000, NonStudentCost: 80000, IsActive: true, PosterFileID: "poster-1"})
	old := h.event(domain.Event{Title: "Old talk", CostType: domain.CostFree})

	m := h.press(userID, menu.TokenActive)
	if !m.HasToken("event_"+strconv.FormatInt(open, 10)) || m.HasToken("event_"+strconv.FormatInt(old, 10)) {
		t.Fatalf("active list tokens = %v", m.Tokens())
	}
	m = h.press(userID, "event_"+strconv.FormatInt(open, 10))
	if m.File == nil || !m.File.Photo || !strings.Contains(m.Text, "50,000") {
		t.Fatalf("event card = %+v", m)
	}
	if !m.HasToken(registration.TokenStart + strconv.FormatInt(open, 10)) {
		t.Fatalf("register button missing: %v", m.Tokens())
	}

	m = h.press(userID, menu.TokenArchive)
	if !m.HasToken("archive_event_" + strconv.FormatInt(old, 10)) {
		t.Fatalf("archive tokens = %v", m.Tokens())
	}
	m = h.press(userID, "archive_event_"+strconv.FormatInt(old, 10))
	if m.HasToken(registration.TokenStart + strconv.FormatInt(old, 10)) {
		t.Fatalf("archived event offers registration")
	}
	if m = h.press(userID, "event_"+strconv.FormatInt(old, 10)); !strings.Contains(m.Text, "پیدا نشد") {
		t.Fatalf("archived event opened as active: %q", m.Text)
	}
}

func TestMyRegistrationsOwnership(t *testing.T) {
	h := newHarness(t)
	ev := h.event(domain.Event{Title: "Workshop", CostType: domain.CostFixed, FixedCost: 1000, IsActive: true})
	id, err := h.store.CommitRegistration(h.ctx, storage.RegistrationCommit{
		Profile: domain.Profile{UserID: userID, FullName: "Ali Rezaei", NationalID: "0499370899", Phone: "9123456789"},
		EventID: ev,
		Amount:  1000,
		Now:     time.Unix(1_700_000_000, 0),
	}, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	m := h.press(userID, menu.TokenMyRegs)
	if !m.HasToken("myreg_" + strconv.FormatInt(id, 10)) {
		t.Fatalf("registration not listed: %v", m.Tokens())
	}
	m = h.press(userID, "myreg_"+strconv.FormatInt(id, 10))
	if !strings.Contains(m.Text, "⏳ در انتظار") || !strings.Contains(m.Text, "Workshop") {
		t.Fatalf("detail = %q", m.Text)
	}
	if m = h.press(7, "myreg_"+strconv.FormatInt(id, 10)); !strings.Contains(m.Text, "پیدا نشد") {
		t.Fatalf("other user saw the registration: %q", m.Text)
	}
	if m = h.press(7, menu.TokenMyRegs); !strings.Contains(m.Text, "ثبت‌نام نکرده‌اید") {
		t.Fatalf("empty list = %q", m.Text)
	}
}

func TestStatusLabels(t *testing.T) {
	cases := map[domain.RegistrationStatus]string{
		domain.RegPending:  "⏳ در انتظار",
		domain.RegApproved: "✅ تایید شده",
		domain.RegRejected: "❌ رد شده",
	}
	for s, want := range cases {
		if got := menu.StatusLabel(s); got != want {
			t.Fatalf("StatusLabel(%s) = %q", s, got)
		}
	}
}
