// Package submissions hosts the member-facing wizards that end in a
// moderated record: ideas, collaboration proposals, donations and
// membership applications.
package submissions

import (
	"context"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/moderation"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
	"github.com/m3rciful/assocbot/internal/uploads"
)

// Store is what the wizards persist into.
type Store interface {
	storage.Submissions
	storage.Settings
}

// Deps are the collaborators of the flows.
type Deps struct {
	Store    Store
	Notifier *notify.Notifier
	Keeper   *uploads.Keeper
	Files    uploads.Rules
}

// Flow registers all four wizards.
type Flow struct {
	d Deps
}

// New returns the flow. A zero Files rule set gets the default limits.
func New(d Deps) *Flow {
	if d.Files.MaxBytes == 0 {
		d.Files = uploads.Receipt(0)
	}
	return &Flow{d: d}
}

// Register installs every wizard.
func (f *Flow) Register(e *conversation.Engine) {
	f.registerIdea(e)
	f.registerCollab(e)
	f.registerDonation(e)
	f.registerMembership(e)
}

var cancelKB = conversation.Rows(conversation.Btn("❌ لغو فرایند", conversation.TokenCancel))

// textStep builds a text step that validates with check, stores the result
// under key and enters next.
func textStep(st, next state.State, prompt, key string, requires []string, check func(string) (string, error)) conversation.Step {
	return conversation.Step{
		State:    st,
		Requires: requires,
		Next:     []state.State{next},
		Prompt:   prompt,
		Keyboard: cancelKB,
		Handle: func(ctx context.Context, t *conversation.Turn) error {
			v, err := check(t.Text())
			if err != nil {
				return err
			}
			return t.Enter(ctx, next, state.Data{key: v})
		},
	}
}

// attachment validates and keeps the optional file of a turn.
func (f *Flow) attachment(ctx context.Context, t *conversation.Turn, prefix string) (fileID, path string, err error) {
	file := t.File()
	if file == nil {
		return "", "", nil
	}
	if err := f.d.Files.Check(*file); err != nil {
		return "", "", err
	}
	path, kerr := f.d.Keeper.Keep(ctx, prefix, t.UserID(), *file, t.Now())
	if kerr != nil {
		logger.Warn(ctx, logger.CompConv, "upload.keep_failed",
			slog.String("prefix", prefix),
			slog.String("err", kerr.Error()),
		)
	}
	return file.ID, path, nil
}

// announce notifies admins with the moderation buttons for kind.
func (f *Flow) announce(ctx context.Context, kind domain.SubmissionKind, id int64, text, fileID string) {
	if f.d.Notifier == nil {
		return
	}
	var row []conversation.Button
	for _, a := range moderation.ActionsFor(kind) {
		row = append(row, conversation.Btn(a.Label(), conversation.Token(a.Prefix, id)))
	}
	n := notify.Notice{Key: domain.NotifyKeyFor(kind), Text: text, Keyboard: conversation.Keyboard{row}}
	if fileID != "" {
		n.File = &conversation.Attachment{FileID: fileID}
	}
	f.d.Notifier.Broadcast(ctx, n)
}

func (f *Flow) setting(ctx context.Context, key, def string) string {
	v, ok, err := f.d.Store.GetSetting(ctx, key)
	if err != nil {
		logger.Warn(ctx, logger.CompConv, "setting.read_failed", slog.String("key", key), slog.String("err", err.Error()))
		return def
	}
	if !ok || v == "" {
		return def
	}
	return v
}
