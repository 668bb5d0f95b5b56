// Package storage declares the persistence contracts used by the flows.
// Implementations live in postgres (production) and memstore (tests and the
// memory driver); both enforce the same guards.
package storage

import (
	"context"
	"time"

	"github.com/m3rciful/assocbot/internal/domain"
)

// Events stores events and their registration settings.
type Events interface {
	CreateEvent(ctx context.Context, e domain.Event) (int64, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	// ListEvents returns active or archived events, newest first.
	ListEvents(ctx context.Context, active bool) ([]domain.Event, error)
	SetDeadline(ctx context.Context, id int64, endAt *int64, by int64) error
	SetCapacity(ctx context.Context, id int64, capacity *int) error
	SetSingleRegistration(ctx context.Context, id int64, single bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	// EditEvent rewrites one editable column of the event.
	EditEvent(ctx context.Context, id int64, field domain.EventField, value string) error
	// DeactivateExpired flips every active event whose deadline is at or
	// before now in one statement and returns what it flipped.
	DeactivateExpired(ctx context.Context, now int64) ([]domain.EventTitle, error)
}

// RegistrationCommit is everything finalization writes.
type RegistrationCommit struct {
	Profile    domain.Profile
	EventID    int64
	Amount     int64
	IsStudent  bool
	ReceiptRef string
	Now        time.Time
}

// Guard evaluates eligibility against counts read inside the commit
// transaction.
type Guard func(ev domain.Event, counts domain.RegistrationCounts, now time.Time) error

// Registrations stores event registrations.
type Registrations interface {
	RegistrationCounts(ctx context.Context, eventID, userID int64) (domain.RegistrationCounts, error)
	TallyRegistrations(ctx context.Context, eventID int64) (domain.RegistrationTally, error)
	// CommitRegistration locks the event, re-runs guard on fresh counts,
	// upserts the profile and inserts a pending registration atomically.
	CommitRegistration(ctx context.Context, in RegistrationCommit, guard Guard) (int64, error)
	GetRegistration(ctx context.Context, id int64) (domain.UserRegistration, error)
	ListUserRegistrations(ctx context.Context, userID int64) ([]domain.UserRegistration, error)
	ListPendingRegistrations(ctx context.Context) ([]domain.UserRegistration, error)
	// ReviewRegistration moves a pending registration to status once and
	// records an audit row. A non-pending row yields already_processed.
	ReviewRegistration(ctx context.Context, id int64, status domain.RegistrationStatus, reason string, adminID int64, at time.Time) (domain.UserRegistration, error)
	// ApprovePending approves every pending registration of eventID in one
	// statement, audits each row and returns the rows it moved.
	ApprovePending(ctx context.Context, eventID, adminID int64, at time.Time) ([]domain.UserRegistration, error)
}

// Profiles stores reusable user identity.
type Profiles interface {
	GetProfile(ctx context.Context, userID int64) (domain.Profile, error)
	UpsertProfile(ctx context.Context, p domain.Profile) error
	// TouchUser records a user who opened the bot without touching stored
	// identity fields.
	TouchUser(ctx context.Context, userID int64, username string) error
}

// Audience resolves broadcast recipients.
type Audience interface {
	// Recipients returns the distinct user ids of a, ascending.
	Recipients(ctx context.Context, a domain.Audience) ([]int64, error)
}

// Tickets stores support tickets.
type Tickets interface {
	CreateTicket(ctx context.Context, t domain.Ticket) (int64, error)
	GetTicket(ctx context.Context, id int64) (domain.Ticket, error)
	// ListUserTickets returns the user's tickets, newest first.
	ListUserTickets(ctx context.Context, userID int64) ([]domain.Ticket, error)
	// ListOpenTickets returns unanswered tickets, oldest first.
	ListOpenTickets(ctx context.Context) ([]domain.Ticket, error)
	// ReplyTicket closes an open ticket with reply and audits it. A closed
	// ticket yields already_processed.
	ReplyTicket(ctx context.Context, id int64, reply string, adminID int64, at time.Time) (domain.Ticket, error)
}

// FAQs stores the frequently asked questions.
type FAQs interface {
	ListFAQs(ctx context.Context) ([]domain.FAQ, error)
	GetFAQ(ctx context.Context, id int64) (domain.FAQ, error)
	// SaveFAQ inserts f when f.ID is 0 and updates it otherwise.
	SaveFAQ(ctx context.Context, f domain.FAQ) (int64, error)
	DeleteFAQ(ctx context.Context, id int64) error
}

// Submissions stores moderated records.
type Submissions interface {
	CreateIdea(ctx context.Context, v domain.Idea) (int64, error)
	CreateCollaboration(ctx context.Context, v domain.Collaboration) (int64, error)
	CreateDonation(ctx context.Context, v domain.Donation) (int64, error)
	// CreateMembership inserts the application and upserts the profile in
	// one transaction.
	CreateMembership(ctx context.Context, v domain.Membership, p domain.Profile) (int64, error)
	GetSubmission(ctx context.Context, kind domain.SubmissionKind, id int64) (domain.Submission, error)
	ListPending(ctx context.Context, kind domain.SubmissionKind) ([]domain.Submission, error)
	// Resolve applies d only while the record is pending and appends the
	// audit row in the same transaction.
	Resolve(ctx context.Context, d domain.Decision) (domain.Submission, error)
}

// Settings stores key/value settings.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	// SeedSettings inserts values whose keys are absent.
	SeedSettings(ctx context.Context, defaults map[string]string) error
}

// Admins stores administrator identities.
type Admins interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]int64, error)
	AddAdmin(ctx context.Context, userID, addedBy int64, role string) error
	// RemoveAdmin deletes a stored admin; ErrNotFound when there is none.
	RemoveAdmin(ctx context.Context, userID int64) error
}

// Audit is the append-only action log.
type Audit interface {
	// RecordAction appends an action that no status transition covers,
	// such as a broadcast.
	RecordAction(ctx context.Context, a domain.AdminAction) error
	ListActions(ctx context.Context, limit int) ([]domain.AdminAction, error)
}

// Store is the full persistence surface.
type Store interface {
	Events
	Registrations
	Profiles
	Audience
	Tickets
	FAQs
	Submissions
	Settings
	Admins
	Audit
	Ping(ctx context.Context) error
}

// SettingBool reads a "1"/"0" flag, returning def when absent or on error.
func SettingBool(ctx context.Context, s Settings, key string, def bool) bool {
	v, ok, err := s.GetSetting(ctx, key)
	if err != nil || !ok {
		return def
	}
	return v == "1" || v == "true"
}

// SetAction returns the audit action name for a status change.
func SetAction(status string) string { return "set_status_" + status }
