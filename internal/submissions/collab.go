package submissions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	StateCollabName     state.State = "collab_name"
	StateCollabProposal state.State = "collab_proposal"

	TokenCollab = "user_request_collab"
)

const (
	msgCollabName     = "🤝 درخواست همکاری — لطفا نام و سازمانتان را وارد کنید (فرمت: نام | سازمان):"
	msgCollabBadName  = "❌ لطفا نام و سازمان را با فرمت «نام | سازمان» وارد کنید:"
	msgCollabProposal = "📄 لطفا پیشنهاد همکاری خود را بنویسید (می‌توانید فایل هم ارسال کنید):"
	msgCollabDone     = "✅ درخواست همکاری ثبت شد. مدیران در اسرع وقت بررسی می‌کنند."
	msgCollabNotice   = "🔔 درخواست همکاری جدید — #%d\nکاربر: %d\n%s | %s\n\n%s"
)

// ParseNameOrg splits "name | organization".
func ParseNameOrg(s string) (name, org string, ok bool) {
	name, org, found := strings.Cut(conversation.Clean(s), "|")
	name, org = strings.TrimSpace(name), strings.TrimSpace(org)
	if !found || name == "" || org == "" {
		return "", "", false
	}
	return name, org, true
}

func (f *Flow) registerCollab(e *conversation.Engine) {
	e.Step(
		conversation.Step{
			State:    StateCollabName,
			Next:     []state.State{StateCollabProposal},
			Prompt:   msgCollabName,
			Keyboard: cancelKB,
			Handle: func(ctx context.Context, t *conversation.Turn) error {
				name, org, ok := ParseNameOrg(t.Text())
				if !ok {
					return domain.Invalid("name", msgCollabBadName)
				}
				return t.Enter(ctx, StateCollabProposal, state.Data{"name": name, "org": org})
			},
		},
		conversation.Step{
			State:    StateCollabProposal,
			Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
			Requires: []string{"name", "org"},
			Prompt:   msgCollabProposal,
			Keyboard: cancelKB,
			Handle:   f.onCollabProposal,
		},
	)
	e.On(TokenCollab, func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateCollabName, nil)
	})
}

func (f *Flow) onCollabProposal(ctx context.Context, t *conversation.Turn) error {
	proposal := conversation.Clean(t.Text())
	fileID, path, err := f.attachment(ctx, t, "collab")
	if err != nil {
		return err
	}
	if proposal == "" && fileID == "" {
		return domain.Invalid("proposal", msgEmptyBody)
	}
	d := t.Data()
	c := domain.Collaboration{
		UserID:       t.UserID(),
		FullName:     d.String("name"),
		Organization: d.String("org"),
		Proposal:     proposal,
		FileID:       fileID,
		FilePath:     path,
	}
	id, err := f.d.Store.CreateCollaboration(ctx, c)
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "collab.created", slog.Int64("target_id", id))
	replyErr := t.Finish(ctx, msgCollabDone, t.Home())
	f.announce(ctx, domain.KindCollab, id,
		fmt.Sprintf(msgCollabNotice, id, c.UserID, c.FullName, c.Organization, c.Proposal), fileID)
	return replyErr
}
