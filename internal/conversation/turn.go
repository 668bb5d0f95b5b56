package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/domain"
)

// Turn is the handler's view of one update.
type Turn struct {
	e       *Engine
	u       Update
	state   state.State
	next    state.State
	data    state.Data
	step    *Step
	id      int64
	replies int
}

// Update returns the inbound update.
func (t *Turn) Update() Update { return t.u }

// UserID returns the sender.
func (t *Turn) UserID() int64 { return t.u.UserID }

// ChatID returns the chat the update came from.
func (t *Turn) ChatID() int64 { return t.u.ChatID }

// Text returns the trimmed message text or caption.
func (t *Turn) Text() string { return strings.TrimSpace(t.u.Text) }

// File returns the attachment, nil for text and callbacks.
func (t *Turn) File() *File { return t.u.File }

// ID returns the id parsed from a prefix route token.
func (t *Turn) ID() int64 { return t.id }

// State returns the state the update was dispatched in.
func (t *Turn) State() state.State { return t.state }

// Data returns the flow data including patches applied in this turn.
func (t *Turn) Data() state.Data { return t.data }

// Now returns the engine clock.
func (t *Turn) Now() time.Time { return t.e.now() }

// Home returns the home keyboard.
func (t *Turn) Home() Keyboard { return t.e.home }

// Reply sends text to the originating chat.
func (t *Turn) Reply(ctx context.Context, text string, kb Keyboard) error {
	return t.Send(ctx, t.u.ChatID, text, kb)
}

// ReplyFile sends a file to the originating chat.
func (t *Turn) ReplyFile(ctx context.Context, file Attachment, caption string, kb Keyboard) error {
	return t.SendFile(ctx, t.u.ChatID, file, caption, kb)
}

// Send delivers text to any chat. Failures come back as DeliveryError.
func (t *Turn) Send(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	if chatID == t.u.ChatID {
		t.replies++
	}
	if err := t.e.msg.SendText(ctx, chatID, text, kb); err != nil {
		return &domain.DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// SendFile delivers a file to any chat. Failures come back as DeliveryError.
func (t *Turn) SendFile(ctx context.Context, chatID int64, file Attachment, caption string, kb Keyboard) error {
	if chatID == t.u.ChatID {
		t.replies++
	}
	if err := t.e.msg.SendFile(ctx, chatID, file, caption, kb); err != nil {
		return &domain.DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// Move switches to next and merges patch without sending a prompt. Inside a
// step, next must be one of the step's declared Next states.
func (t *Turn) Move(next state.State, patch state.Data) error {
	if _, ok := t.e.steps[next]; !ok {
		return fmt.Errorf("move to unregistered state %s", next)
	}
	if t.step != nil && next != t.step.State && !t.step.allows(next) {
		return fmt.Errorf("step %s may not move to %s", t.step.State, next)
	}
	t.e.store.SetState(t.u.UserID, next, patch)
	for k, v := range patch {
		t.data[k] = v
	}
	t.next = next
	return nil
}

// Enter moves to next and sends its prompt.
func (t *Turn) Enter(ctx context.Context, next state.State, patch state.Data) error {
	if err := t.Move(next, patch); err != nil {
		return err
	}
	text, kb := t.e.steps[next].prompt(t.data)
	if text == "" {
		return nil
	}
	return t.Reply(ctx, text, kb)
}

// Stay merges patch and keeps the current state.
func (t *Turn) Stay(patch state.Data) {
	t.e.store.SetState(t.u.UserID, t.next, patch)
	for k, v := range patch {
		t.data[k] = v
	}
}

// Clear ends the flow.
func (t *Turn) Clear() {
	t.e.store.ClearState(t.u.UserID)
	t.data = state.Data{}
	t.next = state.StateIdle
}

// Finish ends the flow and replies.
func (t *Turn) Finish(ctx context.Context, text string, kb Keyboard) error {
	t.Clear()
	return t.Reply(ctx, text, kb)
}
