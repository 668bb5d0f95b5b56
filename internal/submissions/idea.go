package submissions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/state"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

const (
	StateIdeaTitle state.State = "idea_title"
	StateIdeaDesc  state.State = "idea_desc"

	TokenIdea = "user_send_idea"
)

const (
	msgIdeaTitle    = "📨 ارسال ایده — لطفا عنوان ایده را بنویسید:"
	msgIdeaBadTitle = "❌ عنوان معتبر نیست. لطفا دوباره بنویسید:"
	msgIdeaDesc     = "📝 حالا توضیحات ایده را بنویسید (می‌توانید فایل یا عکس هم ارسال کنید):"
	msgEmptyBody    = "❌ لطفا متن یا فایلی ارسال کنید:"
	msgIdeaDone     = "✅ ایده شما ثبت شد. متشکریم!"
	msgIdeaNotice   = "🔔 ایده جدید — #%d\nکاربر: %d\nعنوان: %s\n\n%s"
)

func (f *Flow) registerIdea(e *conversation.Engine) {
	e.Step(
		textStep(StateIdeaTitle, StateIdeaDesc, msgIdeaTitle, "title", nil, func(s string) (string, error) {
			s = conversation.Clean(s)
			if s == "" {
				return "", domain.Invalid("title", msgIdeaBadTitle)
			}
			return s, nil
		}),
		conversation.Step{
			State:    StateIdeaDesc,
			Accepts:  []conversation.Kind{conversation.KindText, conversation.KindFile},
			Requires: []string{"title"},
			Prompt:   msgIdeaDesc,
			Keyboard: cancelKB,
			Handle:   f.onIdeaDesc,
		},
	)
	e.On(TokenIdea, func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		return t.Enter(ctx, StateIdeaTitle, nil)
	})
}

func (f *Flow) onIdeaDesc(ctx context.Context, t *conversation.Turn) error {
	desc := conversation.Clean(t.Text())
	fileID, path, err := f.attachment(ctx, t, "idea")
	if err != nil {
		return err
	}
	if desc == "" && fileID == "" {
		return domain.Invalid("description", msgEmptyBody)
	}
	idea := domain.Idea{
		UserID:      t.UserID(),
		Title:       t.Data().String("title"),
		Description: desc,
		FileID:      fileID,
		FilePath:    path,
	}
	id, err := f.d.Store.CreateIdea(ctx, idea)
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompConv, "idea.created", slog.Int64("target_id", id))
	replyErr := t.Finish(ctx, msgIdeaDone, t.Home())
	f.announce(ctx, domain.KindIdea, id, fmt.Sprintf(msgIdeaNotice, id, idea.UserID, idea.Title, idea.Description), fileID)
	return replyErr
}
