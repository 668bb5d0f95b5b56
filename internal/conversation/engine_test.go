package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/conversation/convtest"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	stName state.State = "t_name"
	stAge  state.State = "t_age"
	stDoc  state.State = "t_doc"
)

func newEngine(t *testing.T) (*conversation.Engine, *convtest.Recorder) {
	t.Helper()
	rec := convtest.New()
	e := conversation.New(state.NewMemoryStore(), rec)
	e.Step(
		conversation.Step{
			State:  stName,
			Prompt: "name?",
			Next:   []state.State{stAge},
			Handle: func(ctx context.Context, t *conversation.Turn) error {
				if len(t.Text()) < 3 {
					return domain.Invalid("name", "too short")
				}
				return t.Enter(ctx, stAge, state.Data{"name": t.Text()})
			},
		},
		conversation.Step{
			State:    stAge,
			Prompt:   "age?",
			Requires: []string{"name"},
			Next:     []state.State{stDoc},
			Handle: func(ctx context.Context, t *conversation.Turn) error {
				switch t.Text() {
				case "full":
					return domain.Ineligible(domain.ReasonCapacityFull)
				case "boom":
					return domain.Storage("save", errors.New("db down"))
				}
				return t.Enter(ctx, stDoc, state.Data{"age": t.Text()})
			},
		},
		conversation.Step{
			State:     stDoc,
			Prompt:    "doc?",
			Accepts:   []conversation.Kind{conversation.KindFile},
			WrongKind: "send a file",
			Requires:  []string{"name", "age"},
			Handle: func(ctx context.Context, t *conversation.Turn) error {
				return t.Finish(ctx, "done "+t.Data().String("name"), nil)
			},
		},
	)
	e.On("start", func(ctx context.Context, t *conversation.Turn) error {
		return t.Enter(ctx, stName, nil)
	})
	e.OnID("item_", func(ctx context.Context, t *conversation.Turn) error {
		return t.Reply(ctx, "item", nil)
	})
	e.OnID("item_page_", func(ctx context.Context, t *conversation.Turn) error {
		return t.Reply(ctx, "page", nil)
	})
	if err := e.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return e, rec
}

func mustState(t *testing.T, e *conversation.Engine, user int64, want state.State) {
	t.Helper()
	got, _ := e.Store().GetState(user)
	if got != want {
		t.Fatalf("state = %q, want %q", got, want)
	}
}

func TestFlowHappyPath(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	steps := []conversation.Update{
		convtest.Press(1, "start"),
		convtest.Text(1, "Sara"),
		convtest.Text(1, "21"),
		convtest.Upload(1, conversation.File{ID: "f1", Photo: true}),
	}
	for _, u := range steps {
		if _, err := e.Handle(ctx, u); err != nil {
			t.Fatalf("handle %+v: %v", u, err)
		}
	}
	last, _ := rec.Last(1)
	if last.Text != "done Sara" {
		t.Fatalf("unexpected final reply %q", last.Text)
	}
	if e.Store().InProgress(1) {
		t.Fatalf("state not cleared after finish")
	}
}

func TestValidationKeepsState(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	_, _ = e.Handle(ctx, convtest.Press(1, "start"))
	res, err := e.Handle(ctx, convtest.Text(1, "Al"))
	if err != nil {
		t.Fatalf("validation surfaced as error: %v", err)
	}
	if res.Outcome != "validation" {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	mustState(t, e, 1, stName)
	if last, _ := rec.Last(1); last.Text != "too short" {
		t.Fatalf("expected validation message, got %q", last.Text)
	}
}

func TestEligibilityClearsState(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	_, _ = e.Handle(ctx, convtest.Press(1, "start"))
	_, _ = e.Handle(ctx, convtest.Text(1, "Sara"))
	res, err := e.Handle(ctx, convtest.Text(1, "full"))
	if err != nil || res.Outcome != "ineligible" {
		t.Fatalf("outcome=%s err=%v", res.Outcome, err)
	}
	if e.Store().InProgress(1) {
		t.Fatalf("state kept after eligibility error")
	}
	if !rec.Contains(1, "ظرفیت") {
		t.Fatalf("capacity message not sent")
	}
}

func TestStorageErrorClearsAndReports(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	_, _ = e.Handle(ctx, convtest.Press(1, "start"))
	_, _ = e.Handle(ctx, convtest.Text(1, "Sara"))
	res, err := e.Handle(ctx, convtest.Text(1, "boom"))
	var se *domain.StorageError
	if !errors.As(err, &se) || res.Outcome != "fail" {
		t.Fatalf("outcome=%s err=%v", res.Outcome, err)
	}
	if e.Store().InProgress(1) {
		t.Fatalf("state kept after storage error")
	}
	last, _ := rec.Last(1)
	if last.Text != conversation.MsgFailure || strings.Contains(last.Text, "db down") {
		t.Fatalf("raw error leaked: %q", last.Text)
	}
}

func TestWrongKindAndIgnoredText(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	res, _ := e.Handle(ctx, convtest.Text(9, "hello"))
	if res.Outcome != "ignored" || rec.Len() != 0 {
		t.Fatalf("text without state should be ignored, outcome=%s", res.Outcome)
	}

	_, _ = e.Handle(ctx, convtest.Press(1, "start"))
	_, _ = e.Handle(ctx, convtest.Text(1, "Sara"))
	_, _ = e.Handle(ctx, convtest.Text(1, "21"))
	_, _ = e.Handle(ctx, convtest.Text(1, "not a file"))
	mustState(t, e, 1, stDoc)
	if last, _ := rec.Last(1); last.Text != "send a file" {
		t.Fatalf("wrong kind reply %q", last.Text)
	}
}

func TestCancelFromAnyState(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	_, _ = e.Handle(ctx, convtest.Press(1, "start"))
	_, _ = e.Handle(ctx, convtest.Text(1, "Sara"))
	if _, err := e.Handle(ctx, convtest.Press(1, conversation.TokenCancel)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if e.Store().InProgress(1) {
		t.Fatalf("cancel did not clear state")
	}
	if last, _ := rec.Last(1); last.Text != conversation.MsgCancelled {
		t.Fatalf("unexpected cancel reply %q", last.Text)
	}
	// cancel with no state still answers
	if _, err := e.Handle(ctx, convtest.Press(2, conversation.TokenCancel)); err != nil {
		t.Fatalf("cancel idle: %v", err)
	}
}

func TestMissingDataAborts(t *testing.T) {
	e, _ := newEngine(t)
	e.Store().SetState(4, stDoc, state.Data{"name": "x"})
	res, err := e.Handle(context.Background(), convtest.Upload(4, conversation.File{ID: "f"}))
	if err == nil || res.Outcome != "fail" {
		t.Fatalf("expected failure on missing data, got %s %v", res.Outcome, err)
	}
	if e.Store().InProgress(4) {
		t.Fatalf("broken flow not cleared")
	}
}

func TestPrefixRouting(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()
	cases := map[string]string{
		"item_42":      "item",
		"item_page_3":  "page",
		"item_":        conversation.MsgInvalid,
		"item_-1":      conversation.MsgInvalid,
		"item_+1":      conversation.MsgInvalid,
		"item_4x":      conversation.MsgInvalid,
		"item_page_":   conversation.MsgInvalid,
		"unknown_7":    conversation.MsgInvalid,
		"item_1234567890123456789": conversation.MsgInvalid,
	}
	for token, want := range cases {
		rec.Reset()
		_, _ = e.Handle(ctx, convtest.Press(1, token))
		last, ok := rec.Last(1)
		if !ok || last.Text != want {
			t.Errorf("token %q replied %q, want %q", token, last.Text, want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, ok := conversation.ParseID("admin_approve_idea_42", "admin_approve_idea_"); !ok || id != 42 {
		t.Fatalf("parse failed: %d %v", id, ok)
	}
	for _, bad := range []string{"admin_approve_idea_", "admin_approve_idea_ 4", "admin_approve_idea_4.2", "other_4"} {
		if _, ok := conversation.ParseID(bad, "admin_approve_idea_"); ok {
			t.Errorf("accepted %q", bad)
		}
	}
}

func TestValidateReportsProblems(t *testing.T) {
	e := conversation.New(state.NewMemoryStore(), convtest.New())
	e.Step(conversation.Step{State: "a", Next: []state.State{"missing"}, Handle: func(context.Context, *conversation.Turn) error { return nil }})
	e.Step(conversation.Step{State: "a"})
	e.OnIn("x", "nowhere", func(context.Context, *conversation.Turn) error { return nil })
	err := e.Validate()
	var te *conversation.TableError
	if !errors.As(err, &te) || len(te.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", err)
	}
}

func TestStateRestrictedRoute(t *testing.T) {
	e, rec := newEngine(t)
	called := false
	e.OnIn("confirm", stAge, func(context.Context, *conversation.Turn) error {
		called = true
		return nil
	})
	_, _ = e.Handle(context.Background(), convtest.Press(1, "confirm"))
	if called {
		t.Fatalf("route ran outside its state")
	}
	if last, _ := rec.Last(1); last.Text != conversation.MsgInvalid {
		t.Fatalf("expected invalid reply, got %q", last.Text)
	}
}

func TestPaginate(t *testing.T) {
	items := make([]conversation.Item, 12)
	for i := range items {
		items[i] = conversation.Item{ID: int64(i + 1), Label: "e"}
	}
	kb := conversation.Paginate(items, "event", 1, 5)
	// 5 items, nav row, home row
	if len(kb) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(kb))
	}
	if kb[0][0].Token != "event_6" {
		t.Fatalf("first item token %s", kb[0][0].Token)
	}
	nav := kb[5]
	if len(nav) != 2 || nav[0].Token != "event_page_0" || nav[1].Token != "event_page_2" {
		t.Fatalf("unexpected nav %+v", nav)
	}
	last := conversation.Paginate(items, "event", 2, 5)
	if len(last) != 4 || len(last[2]) != 1 || last[2][0].Token != "event_page_1" {
		t.Fatalf("unexpected last page %+v", last)
	}
	empty := conversation.Paginate(nil, "event", 0, 5)
	if empty[0][0].Token != conversation.TokenNoop {
		t.Fatalf("empty list should show noop button")
	}
}
