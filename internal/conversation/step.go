package conversation

import (
	"context"
	"fmt"

	"github.com/m3rciful/assocbot/core/telegram/state"
)

// Handler runs one transition.
type Handler func(ctx context.Context, t *Turn) error

// Step is one row of the state table: the preconditions for entering its
// handler and where it may lead.
type Step struct {
	State state.State
	// Accepts lists the input kinds routed to Handle. Empty means text only.
	Accepts []Kind
	// WrongKind is sent when a non-accepted kind arrives. Empty ignores it.
	WrongKind string
	// Requires lists data keys earlier steps must have stored.
	Requires []string
	// Next lists the states Handle may move to. Leaving the flow through
	// Finish or Clear is always allowed.
	Next []state.State
	// Prompt is sent on entry. Render overrides it when set.
	Prompt   string
	Keyboard Keyboard
	Render   func(d state.Data) (string, Keyboard)
	Handle   Handler
}

func (s Step) accepts(k Kind) bool {
	if len(s.Accepts) == 0 {
		return k == KindText
	}
	for _, a := range s.Accepts {
		if a == k {
			return true
		}
	}
	return false
}

func (s Step) allows(next state.State) bool {
	for _, n := range s.Next {
		if n == next {
			return true
		}
	}
	return false
}

func (s Step) prompt(d state.Data) (string, Keyboard) {
	if s.Render != nil {
		return s.Render(d)
	}
	return s.Prompt, s.Keyboard
}

func (s Step) missing(d state.Data) []string {
	var out []string
	for _, k := range s.Requires {
		if !d.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Flow groups the steps and button routes of one feature.
type Flow interface {
	Register(e *Engine)
}

// TableError lists every problem found when validating the state table.
type TableError struct {
	Problems []string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("conversation table invalid: %v", e.Problems)
}
