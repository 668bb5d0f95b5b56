package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/assocbot/core/telegram/format"
	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/moderation"
)

const (
	msgNoPending = "📭 موردی در انتظار بررسی نیست."
	msgPending   = "📝 موارد در انتظار بررسی:"
)

func (f *Flow) registerPending(e *conversation.Engine, only guard) {
	e.OnID(TokenPendingRegs+"_page_", only(f.onPendingRegs))
	e.OnID(TokenPendingRegs+"_", only(f.onPendingReg))
	for _, k := range domain.Kinds() {
		kind := submissionListKind(k)
		e.OnID(kind+"_page_", only(f.onPendingSubs(k)))
		e.OnID(kind+"_", only(f.onPendingSub(k)))
	}
}

func (f *Flow) onPendingRegs(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	regs, err := f.d.Store.ListPendingRegistrations(ctx)
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		return t.Reply(ctx, msgNoPending, backToPanel())
	}
	items := make([]conversation.Item, 0, len(regs))
	for _, r := range regs {
		items = append(items, conversation.Item{
			ID:    r.ID,
			Label: truncate(fmt.Sprintf("#%d %s", r.ID, r.EventTitle), submissionPreview),
		})
	}
	return t.Reply(ctx, msgPending, conversation.Paginate(items, TokenPendingRegs, int(t.ID()), conversation.PerPage))
}

// RegistrationCard renders a registration for review.
func RegistrationCard(r domain.UserRegistration, p domain.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 ثبت‌نام #%d\n🎫 رویداد: %s\n", r.ID, r.EventTitle)
	fmt.Fprintf(&b, "👤 %s\n🆔 کد ملی: %s\n📞 تلفن: %s\n", p.FullName, p.NationalID, p.Phone)
	if r.IsStudent {
		fmt.Fprintf(&b, "🎓 دانشجو (%s)\n", p.StudentID)
	} else {
		b.WriteString("🧑‍💼 غیر دانشجو\n")
	}
	fmt.Fprintf(&b, "💰 مبلغ: %s", format.Toman(r.Amount))
	return b.String()
}

func (f *Flow) onPendingReg(ctx context.Context, t *conversation.Turn) error {
	t.Clear()
	r, err := f.d.Store.GetRegistration(ctx, t.ID())
	if err != nil {
		return notFound(err)
	}
	p, err := f.d.Store.GetProfile(ctx, r.UserID)
	if err != nil {
		p = domain.Profile{UserID: r.UserID}
	}
	text := RegistrationCard(r, p)
	if r.Status != domain.RegPending {
		return t.Reply(ctx, text+"\n\nوضعیت: "+string(r.Status), backToPanel())
	}
	kb := conversation.Keyboard{
		conversation.Row(
			conversation.Btn("✅ تایید", conversation.Token(moderation.TokenApproveReg, r.ID)),
			conversation.Btn("❌ رد", conversation.Token(moderation.TokenRejectReg, r.ID)),
		),
		conversation.Row(conversation.Btn("🔙 بازگشت", conversation.PageToken(TokenPendingRegs, 0))),
	}
	if r.PaymentReceiptRef != "" {
		return t.ReplyFile(ctx, conversation.Attachment{FileID: r.PaymentReceiptRef}, text, kb)
	}
	return t.Reply(ctx, text, kb)
}

func (f *Flow) onPendingSubs(k domain.SubmissionKind) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		subs, err := f.d.Store.ListPending(ctx, k)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			return t.Reply(ctx, msgNoPending, backToPanel())
		}
		items := make([]conversation.Item, 0, len(subs))
		for _, s := range subs {
			items = append(items, conversation.Item{
				ID:    s.ID,
				Label: truncate(fmt.Sprintf("#%d %s", s.ID, s.Summary), submissionPreview),
			})
		}
		return t.Reply(ctx, kindLabels[k], conversation.Paginate(items, submissionListKind(k), int(t.ID()), conversation.PerPage))
	}
}

// SubmissionCard renders a submission for review.
func SubmissionCard(s domain.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d\n👤 کاربر: %d\n%s", kindLabels[s.Kind], s.ID, s.UserID, s.Summary)
	if s.Detail != "" {
		b.WriteString("\n\n" + s.Detail)
	}
	if s.Status != domain.StatusPending {
		b.WriteString("\n\nوضعیت: " + string(s.Status))
	}
	return b.String()
}

func (f *Flow) onPendingSub(k domain.SubmissionKind) conversation.Handler {
	return func(ctx context.Context, t *conversation.Turn) error {
		t.Clear()
		s, err := f.d.Store.GetSubmission(ctx, k, t.ID())
		if err != nil {
			return notFound(err)
		}
		var kb conversation.Keyboard
		if s.Status == domain.StatusPending {
			var row []conversation.Button
			for _, a := range moderation.ActionsFor(k) {
				row = append(row, conversation.Btn(a.Label(), conversation.Token(a.Prefix, s.ID)))
			}
			kb = append(kb, row)
		}
		kb = append(kb, conversation.Row(conversation.Btn("🔙 بازگشت", conversation.PageToken(submissionListKind(k), 0))))
		if s.FileID != "" {
			return t.ReplyFile(ctx, conversation.Attachment{FileID: s.FileID}, SubmissionCard(s), kb)
		}
		return t.Reply(ctx, SubmissionCard(s), kb)
	}
}
