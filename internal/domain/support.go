package domain

import "time"

// TicketStatus is the state of a support ticket.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is a member question answered once by an admin.
type Ticket struct {
	ID         int64        `db:"id"`
	UserID     int64        `db:"user_id"`
	Message    string       `db:"message" validate:"required,max=2000"`
	FileID     string       `db:"file_id"`
	Status     TicketStatus `db:"status"`
	AdminReply string       `db:"admin_reply"`
	RepliedBy  *int64       `db:"replied_by"`
	RepliedAt  *time.Time   `db:"replied_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

// FAQ is one question/answer pair shown to members.
type FAQ struct {
	ID       int64  `db:"id"`
	Question string `db:"question" validate:"required,max=2000"`
	Answer   string `db:"answer" validate:"required,max=2000"`
}

// AudienceTarget selects broadcast recipients.
type AudienceTarget string

const (
	// AudienceAll is every user the bot has seen.
	AudienceAll AudienceTarget = "all"
	// AudienceApproved is every user holding an approved registration.
	AudienceApproved AudienceTarget = "approved"
	// AudienceRejected is every user holding a rejected registration.
	AudienceRejected AudienceTarget = "rejected"
	// AudienceEventApproved is the approved registrants of one event.
	AudienceEventApproved AudienceTarget = "event_approved"
	// AudienceEventRejected is the rejected registrants of one event.
	AudienceEventRejected AudienceTarget = "event_rejected"
)

// Audience is a broadcast target. EventID is used by the event targets only.
type Audience struct {
	Target  AudienceTarget
	EventID int64
}

// RegistrationStatus returns the registration status the target filters on
// and whether it filters on one at all.
func (a Audience) RegistrationStatus() (RegistrationStatus, bool) {
	switch a.Target {
	case AudienceApproved, AudienceEventApproved:
		return RegApproved, true
	case AudienceRejected, AudienceEventRejected:
		return RegRejected, true
	}
	return "", false
}

// PerEvent reports whether the target is scoped to EventID.
func (a Audience) PerEvent() bool {
	return a.Target == AudienceEventApproved || a.Target == AudienceEventRejected
}

// Valid reports whether the target is known.
func (a Audience) Valid() bool {
	switch a.Target {
	case AudienceAll, AudienceApproved, AudienceRejected:
		return true
	case AudienceEventApproved, AudienceEventRejected:
		return a.EventID > 0
	}
	return false
}
