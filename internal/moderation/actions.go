// Package moderation applies admin decisions to pending submissions and
// registrations. Every transition is a conditional update on status
// 'pending', so a record changes at most once however many admins act on it.
package moderation

import (
	"fmt"

	"github.com/m3rciful/assocbot/internal/domain"
)

// Action is one moderation button.
type Action struct {
	Prefix string
	Kind   domain.SubmissionKind
	Status domain.SubmissionStatus
}

// Actions lists every submission button the package routes.
var Actions = []Action{
	{"admin_approve_idea_", domain.KindIdea, domain.StatusApproved},
	{"admin_reject_idea_", domain.KindIdea, domain.StatusRejected},
	{"admin_mark_idea_", domain.KindIdea, domain.StatusHandled},
	{"admin_approve_collab_", domain.KindCollab, domain.StatusApproved},
	{"admin_reject_collab_", domain.KindCollab, domain.StatusRejected},
	{"admin_confirm_donation_", domain.KindDonation, domain.StatusConfirmed},
	{"admin_reject_donation_", domain.KindDonation, domain.StatusRejected},
	{"admin_approve_membership_", domain.KindMembership, domain.StatusApproved},
	{"admin_reject_membership_", domain.KindMembership, domain.StatusRejected},
}

// ActionsFor returns the buttons available for kind, in display order.
func ActionsFor(kind domain.SubmissionKind) []Action {
	var out []Action
	for _, a := range Actions {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Label is the button caption for a.
func (a Action) Label() string {
	switch a.Status {
	case domain.StatusApproved, domain.StatusConfirmed:
		return "✅ تایید"
	case domain.StatusRejected:
		return "❌ رد"
	case domain.StatusHandled:
		return "🔔 انجام شد"
	}
	return string(a.Status)
}

var headers = map[domain.SubmissionKind]string{
	domain.KindIdea:       "💡 وضعیت ایده شما (#%d): %s\n\n",
	domain.KindCollab:     "🤝 وضعیت درخواست همکاری شما (#%d): %s\n\n",
	domain.KindDonation:   "💰 وضعیت حمایت مالی شما (#%d): %s\n\n",
	domain.KindMembership: "🪪 وضعیت درخواست عضویت شما (#%d): %s\n\n",
}

func statusLabel(s domain.SubmissionStatus) string {
	switch s {
	case domain.StatusApproved, domain.StatusConfirmed:
		return "✅ تایید شد"
	case domain.StatusRejected:
		return "❌ رد شد"
	case domain.StatusHandled:
		return "🔔 علامت‌گذاری شد (انجام‌شده)"
	}
	return string(s)
}

func fallbackNote(s domain.SubmissionStatus) string {
	switch s {
	case domain.StatusApproved, domain.StatusConfirmed:
		return "درخواست شما بررسی و تایید شد. از همراهی شما سپاسگزاریم."
	case domain.StatusRejected:
		return "متاسفانه درخواست شما مورد تایید قرار نگرفت."
	}
	return "وضعیت درخواست شما به‌روز شد."
}

// UserMessage composes what the submitter receives. An empty note falls
// back to the canned text for the status.
func UserMessage(kind domain.SubmissionKind, id int64, status domain.SubmissionStatus, note string) string {
	if note == "" {
		note = fallbackNote(status)
	}
	return fmt.Sprintf(headers[kind], id, statusLabel(status)) + note
}
