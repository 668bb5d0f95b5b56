package profile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/profile"
	"github.com/m3rciful/assocbot/internal/storage/memstore"
)

const user = 77

func setup(t *testing.T) (*conversation.Engine, *memstore.Store, *convtest.Recorder) {
	t.Helper()
	store, rec := memstore.New(), convtest.New()
	e := conversation.New(state.NewMemoryStore(), rec)
	e.Mount(profile.New(store))
	if err := e.Validate(); err != nil {
		t.Fatalf("table: %v", err)
	}
	return e, store, rec
}

func send(t *testing.T, e *conversation.Engine, updates ...conversation.Update) {
	t.Helper()
	for _, u := range updates {
		if _, err := e.Handle(context.Background(), u); err != nil {
			t.Fatalf("handle %+v: %v", u, err)
		}
	}
}

func last(rec *convtest.Recorder) string {
	m, _ := rec.Last(user)
	return m.Text
}

func TestEditProfileAsStudent(t *testing.T) {
	e, store, rec := setup(t)
	send(t, e, convtest.Press(user, profile.TokenProfile))
	if !strings.Contains(last(rec), "نام: —") {
		t.Fatalf("empty profile shown as %q", last(rec))
	}
	send(t, e,
		convtest.Press(user, profile.TokenEdit),
		convtest.Text(user, "Al"),
	)
	if !strings.Contains(last(rec), "حداقل 3") {
		t.Fatalf("short name accepted: %q", last(rec))
	}
	send(t, e,
		convtest.Text(user, "Sara Ahmadi"),
		convtest.Text(user, "0499370898"),
	)
	if !strings.Contains(last(rec), "معتبر نیست") {
		t.Fatalf("bad checksum accepted: %q", last(rec))
	}
	send(t, e,
		convtest.Text(user, "۰۴۹۹۳۷۰۸۹۹"),
		convtest.Text(user, "0912 345 6789"),
		convtest.Text(user, "yes"),
	)
	if !strings.Contains(last(rec), "یکی از گزینه‌ها") {
		t.Fatalf("typed choice accepted: %q", last(rec))
	}
	send(t, e,
		convtest.Press(user, profile.TokenStudentYes),
		convtest.Text(user, "98123"),
	)
	if !strings.Contains(last(rec), "با موفقیت") {
		t.Fatalf("not saved: %q", last(rec))
	}
	p, err := store.GetProfile(context.Background(), user)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.FullName != "Sara Ahmadi" || p.NationalID != "0499370899" || p.Phone != "9123456789" ||
		p.StudentID != "98123" || p.IsStudent == nil || !*p.IsStudent {
		t.Fatalf("stored %+v", p)
	}
	send(t, e, convtest.Press(user, profile.TokenProfile))
	if !strings.Contains(last(rec), "شماره دانشجویی: 98123") || !strings.Contains(last(rec), "09123456789") {
		t.Fatalf("profile shown as %q", last(rec))
	}
}

func TestEditProfileNonStudent(t *testing.T) {
	e, store, _ := setup(t)
	send(t, e,
		convtest.Press(user, profile.TokenEdit),
		convtest.Text(user, "Reza Karimi"),
		convtest.Text(user, "0499370899"),
		convtest.Text(user, "09121112233"),
		convtest.Press(user, profile.TokenStudentNo),
	)
	p, _ := store.GetProfile(context.Background(), user)
	if p.IsStudent == nil || *p.IsStudent || p.Phone != "9121112233" {
		t.Fatalf("stored %+v", p)
	}
	if st, _ := e.Store().GetState(user); st != state.StateIdle {
		t.Fatalf("wizard left state %q", st)
	}
}

func TestStudentButtonOutsideWizard(t *testing.T) {
	e, store, rec := setup(t)
	send(t, e, convtest.Press(user, profile.TokenStudentNo))
	if last(rec) != conversation.MsgInvalid {
		t.Fatalf("stray button answered %q", last(rec))
	}
	if _, err := store.GetProfile(context.Background(), user); err != domain.ErrNotFound {
		t.Fatalf("profile written: %v", err)
	}
}
