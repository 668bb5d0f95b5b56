package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/domain"
)

// Tokens and texts the engine owns.
const (
	TokenCancel   = "cancel"
	TokenMainMenu = "main_menu"
	TokenNoop     = "noop"

	MsgCancelled = "✅ عملیات لغو شد."
	MsgInvalid   = "❌ عملیات نامعتبر!"
	MsgFailure   = "❌ خطایی رخ داد. لطفا بعدا دوباره تلاش کنید."
)

// Route binds a callback token, or a token prefix followed by an id, to a
// handler. A non-empty State restricts the route to users in that state.
type Route struct {
	Token  string
	Prefix bool
	State  state.State
	Handle Handler
}

// Result summarises one dispatched update for transport logs.
type Result struct {
	Route   string
	State   state.State
	Next    state.State
	Outcome string
	Replies int
}

// Engine dispatches updates to steps and routes.
type Engine struct {
	store    state.Store
	msg      Messenger
	steps    map[state.State]Step
	exact    map[string]Route
	prefixes []Route
	fallback Handler
	home     Keyboard
	now      func() time.Time
	problems []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithHome sets the keyboard attached to terminal messages.
func WithHome(kb Keyboard) Option { return func(e *Engine) { e.home = kb } }

// WithFallback handles text that arrives outside any flow.
func WithFallback(h Handler) Option { return func(e *Engine) { e.fallback = h } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New builds an engine with the cancel and noop routes installed.
func New(store state.Store, msg Messenger, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		msg:   msg,
		steps: make(map[state.State]Step),
		exact: make(map[string]Route),
		now:   time.Now,
		home:  Rows(Btn("🏠 منوی اصلی", TokenMainMenu)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.On(TokenCancel, func(ctx context.Context, t *Turn) error {
		return t.Finish(ctx, MsgCancelled, t.Home())
	})
	e.On(TokenNoop, func(context.Context, *Turn) error { return nil })
	return e
}

// Store exposes the state store.
func (e *Engine) Store() state.Store { return e.store }

// Messenger exposes the outbound transport.
func (e *Engine) Messenger() Messenger { return e.msg }

// Home returns the keyboard attached to terminal messages.
func (e *Engine) Home() Keyboard { return e.home }

// Mount registers every flow.
func (e *Engine) Mount(flows ...Flow) {
	for _, f := range flows {
		f.Register(e)
	}
}

// Step adds rows to the state table.
func (e *Engine) Step(steps ...Step) {
	for _, s := range steps {
		if _, dup := e.steps[s.State]; dup {
			e.problems = append(e.problems, "duplicate state "+string(s.State))
			continue
		}
		e.steps[s.State] = s
	}
}

// On routes an exact token.
func (e *Engine) On(token string, h Handler) { e.route(Route{Token: token, Handle: h}) }

// OnIn routes an exact token for users in st only.
func (e *Engine) OnIn(token string, st state.State, h Handler) {
	e.route(Route{Token: token, State: st, Handle: h})
}

// OnID routes prefix followed by a decimal id; the id is available as Turn.ID.
func (e *Engine) OnID(prefix string, h Handler) {
	e.route(Route{Token: prefix, Prefix: true, Handle: h})
}

func (e *Engine) route(r Route) {
	if r.Token == "" || r.Handle == nil {
		e.problems = append(e.problems, fmt.Sprintf("incomplete route %q", r.Token))
		return
	}
	if !r.Prefix {
		if _, dup := e.exact[r.Token]; dup {
			e.problems = append(e.problems, "duplicate token "+r.Token)
			return
		}
		e.exact[r.Token] = r
		return
	}
	for _, p := range e.prefixes {
		if p.Token == r.Token {
			e.problems = append(e.problems, "duplicate prefix "+r.Token)
			return
		}
	}
	e.prefixes = append(e.prefixes, r)
	sort.SliceStable(e.prefixes, func(i, j int) bool {
		return len(e.prefixes[i].Token) > len(e.prefixes[j].Token)
	})
}

// Validate checks the table: every step has a handler, every Next and
// every route state is a registered step.
func (e *Engine) Validate() error {
	problems := append([]string(nil), e.problems...)
	known := func(st state.State) bool {
		_, ok := e.steps[st]
		return ok || st == state.StateIdle
	}
	states := make([]string, 0, len(e.steps))
	for st := range e.steps {
		states = append(states, string(st))
	}
	sort.Strings(states)
	for _, name := range states {
		s := e.steps[state.State(name)]
		if s.Handle == nil {
			problems = append(problems, "step without handler "+name)
		}
		for _, n := range s.Next {
			if !known(n) {
				problems = append(problems, fmt.Sprintf("step %s leads to unknown state %s", name, n))
			}
		}
	}
	check := func(r Route) {
		if r.State != "" && !known(r.State) {
			problems = append(problems, fmt.Sprintf("route %s requires unknown state %s", r.Token, r.State))
		}
	}
	for _, r := range e.exact {
		check(r)
	}
	for _, r := range e.prefixes {
		check(r)
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &TableError{Problems: problems}
	}
	return nil
}

// Lookup returns the step registered for st.
func (e *Engine) Lookup(st state.State) (Step, bool) {
	s, ok := e.steps[st]
	return s, ok
}

func (e *Engine) match(token string) (Route, int64, bool) {
	if r, ok := e.exact[token]; ok {
		return r, 0, true
	}
	for _, r := range e.prefixes {
		if id, ok := ParseID(token, r.Token); ok {
			return r, id, true
		}
	}
	return Route{}, 0, false
}

// Handle dispatches one update. Domain errors are turned into user replies
// here; the returned error is only for logging.
func (e *Engine) Handle(ctx context.Context, u Update) (Result, error) {
	cur, _ := e.store.GetState(u.UserID)
	res := Result{State: cur, Next: cur}
	t := &Turn{e: e, u: u, state: cur, next: cur, data: e.store.GetData(u.UserID)}
	ctx = logger.WithState(ctx, string(cur))

	var h Handler
	switch u.Kind {
	case KindCallback:
		r, id, ok := e.match(u.Token)
		if !ok || (r.State != "" && r.State != cur) {
			res.Route = "invalid"
			res.Outcome = "ignored"
			logger.Debug(ctx, logger.CompConv, "callback.rejected",
				slog.String("cb_key", logger.SanitizeLimit(u.Token, 64)),
			)
			err := t.Reply(ctx, MsgInvalid, nil)
			res.Replies = t.replies
			return res, err
		}
		res.Route = r.Token
		t.id = id
		h = r.Handle
	default:
		step, ok := e.steps[cur]
		if !ok {
			res.Route = "fallback"
			if e.fallback == nil || u.Kind != KindText {
				res.Outcome = "ignored"
				return res, nil
			}
			h = e.fallback
			break
		}
		res.Route = string(cur)
		if !step.accepts(u.Kind) {
			res.Outcome = "validation"
			if step.WrongKind == "" {
				return res, nil
			}
			err := t.Reply(ctx, step.WrongKind, step.Keyboard)
			res.Replies = t.replies
			return res, err
		}
		if missing := step.missing(t.data); len(missing) > 0 {
			t.Clear()
			_ = t.Reply(ctx, MsgInvalid, e.home)
			res.Outcome = "fail"
			res.Next = state.StateIdle
			res.Replies = t.replies
			return res, fmt.Errorf("state %s entered without %v", cur, missing)
		}
		t.step = &step
		h = step.Handle
	}

	err := h(ctx, t)
	return e.settle(ctx, t, res, err)
}

func (e *Engine) settle(ctx context.Context, t *Turn, res Result, err error) (Result, error) {
	var (
		ve *domain.ValidationError
		ee *domain.EligibilityError
		de *domain.DeliveryError
	)
	switch {
	case err == nil:
		res.Outcome = "ok"
	case errors.As(err, &ve):
		// state is kept so the same step handles the retry
		res.Outcome = "validation"
		var kb Keyboard
		if t.step != nil {
			kb = t.step.Keyboard
		}
		err = t.Reply(ctx, ve.Message, kb)
	case errors.As(err, &ee):
		t.Clear()
		res.Outcome = "ineligible"
		err = t.Reply(ctx, ee.Message(), e.home)
	case errors.As(err, &de):
		res.Outcome = "partial"
	default:
		t.Clear()
		res.Outcome = "fail"
		logger.Error(ctx, logger.CompConv, "handler.failed",
			slog.String("route", res.Route),
			slog.String("err", err.Error()),
		)
		_ = t.Reply(ctx, MsgFailure, e.home)
	}
	res.Next = t.next
	res.Replies = t.replies
	return res, err
}
