package notify

import (
	"context"
	"testing"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/storage/memstore"
)

func TestRosterMergesConfiguredAndStored(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.AddAdmin(ctx, 30, 1, "admin"); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	r := NewRoster(st, 1, []int64{20, 1})
	got := r.All(ctx)
	if len(got) != 3 || got[0] != 1 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("unexpected roster %v", got)
	}
	if !r.IsAdmin(ctx, 30) || !r.IsAdmin(ctx, 20) || r.IsAdmin(ctx, 99) {
		t.Fatalf("IsAdmin mismatch")
	}
	if !r.IsOwner(1) || r.IsOwner(20) || !r.Configured(20) || r.Configured(30) {
		t.Fatalf("owner or configured mismatch")
	}
	if NewRoster(st, 0, nil).IsOwner(0) {
		t.Fatalf("zero owner must not match")
	}
}

func TestBroadcastHonoursFlagsAndFailures(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	rec := convtest.New()
	rec.Fail[2] = true
	n := New(NewRoster(st, 1, []int64{2, 3}), st, rec, map[string]bool{domain.NotifyIdea: true})

	if sent := n.Broadcast(ctx, Notice{Key: domain.NotifyIdea, Text: "hi"}); sent != 2 {
		t.Fatalf("sent %d, want 2", sent)
	}
	if err := st.SetSetting(ctx, domain.NotifyIdea, "0"); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec.Reset()
	if sent := n.Broadcast(ctx, Notice{Key: domain.NotifyIdea, Text: "hi"}); sent != 0 || rec.Len() != 0 {
		t.Fatalf("disabled flag still sent %d", sent)
	}
	if sent := n.Broadcast(ctx, Notice{Text: "always"}); sent != 2 {
		t.Fatalf("unkeyed notice sent %d", sent)
	}
}

func TestOnlyDeniesNonAdmins(t *testing.T) {
	ctx := context.Background()
	rec := convtest.New()
	e := conversation.New(state.NewMemoryStore(), rec)
	r := NewRoster(nil, 1, nil)
	ran := 0
	e.On("secret", r.Only(func(context.Context, *conversation.Turn) error {
		ran++
		return nil
	}))
	if _, err := e.Handle(ctx, convtest.Press(2, "secret")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ran != 0 || !rec.Contains(2, MsgDenied) {
		t.Fatalf("non-admin reached handler")
	}
	if _, err := e.Handle(ctx, convtest.Press(1, "secret")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ran != 1 {
		t.Fatalf("admin did not reach handler")
	}
}
