package domain

import (
	"fmt"
	"time"
)

// SubmissionKind names a moderated record type.
type SubmissionKind string

const (
	KindIdea       SubmissionKind = "idea"
	KindCollab     SubmissionKind = "collab"
	KindDonation   SubmissionKind = "donation"
	KindMembership SubmissionKind = "membership"
)

// SubmissionStatus is the state of a moderated record.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusApproved  SubmissionStatus = "approved"
	StatusConfirmed SubmissionStatus = "confirmed"
	StatusRejected  SubmissionStatus = "rejected"
	StatusHandled   SubmissionStatus = "handled"
)

var kindTables = map[SubmissionKind]string{
	KindIdea:       "ideas",
	KindCollab:     "collaborations",
	KindDonation:   "donations",
	KindMembership: "memberships",
}

var kindDecisions = map[SubmissionKind][]SubmissionStatus{
	KindIdea:       {StatusApproved, StatusRejected, StatusHandled},
	KindCollab:     {StatusApproved, StatusRejected},
	KindDonation:   {StatusConfirmed, StatusRejected},
	KindMembership: {StatusApproved, StatusRejected},
}

// Kinds lists every moderated kind.
func Kinds() []SubmissionKind {
	return []SubmissionKind{KindIdea, KindCollab, KindDonation, KindMembership}
}

// Table returns the storage table for k. Only known kinds map to a table, so
// the result is safe to interpolate into SQL.
func (k SubmissionKind) Table() (string, error) {
	t, ok := kindTables[k]
	if !ok {
		return "", fmt.Errorf("unknown submission kind %q", k)
	}
	return t, nil
}

// KindForTable is the inverse of Table.
func KindForTable(table string) (SubmissionKind, bool) {
	for k, t := range kindTables {
		if t == table {
			return k, true
		}
	}
	return "", false
}

// Allows reports whether an admin may move a k record to s.
func (k SubmissionKind) Allows(s SubmissionStatus) bool {
	for _, v := range kindDecisions[k] {
		if v == s {
			return true
		}
	}
	return false
}

// Submission is the shared moderation view of ideas, collaborations,
// donations and memberships.
type Submission struct {
	Kind        SubmissionKind   `db:"-"`
	ID          int64            `db:"id"`
	UserID      int64            `db:"user_id"`
	Status      SubmissionStatus `db:"status"`
	AdminNote   string           `db:"admin_note"`
	ProcessedBy *int64           `db:"processed_by"`
	ProcessedAt *time.Time       `db:"processed_at"`
	Summary     string           `db:"summary"`
	Detail      string           `db:"detail"`
	FileID      string           `db:"file_id"`
}

// Decision is an admin's requested transition of one submission.
type Decision struct {
	Kind      SubmissionKind
	ID        int64
	NewStatus SubmissionStatus
	AdminID   int64
	Note      string
	At        time.Time
}

// Idea is a member-submitted idea.
type Idea struct {
	ID          int64  `db:"id"`
	UserID      int64  `db:"user_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	FileID      string `db:"file_id"`
	FilePath    string `db:"file_path"`
}

// Collaboration is a partnership proposal.
type Collaboration struct {
	ID           int64  `db:"id"`
	UserID       int64  `db:"user_id"`
	FullName     string `db:"full_name"`
	Organization string `db:"organization"`
	Proposal     string `db:"proposal"`
	FileID       string `db:"file_id"`
	FilePath     string `db:"file_path"`
}

// Donation is a declared payment with its receipt.
type Donation struct {
	ID       int64  `db:"id"`
	UserID   int64  `db:"user_id"`
	Amount   int64  `db:"amount"`
	Currency string `db:"currency"`
	FileID   string `db:"file_id"`
	FilePath string `db:"file_path"`
}

// Membership is an application to join the association.
type Membership struct {
	ID               int64  `db:"id"`
	UserID           int64  `db:"user_id"`
	FullName         string `db:"full_name" validate:"required,min=3"`
	Major            string `db:"major" validate:"required,min=2"`
	EntryYear        string `db:"entry_year" validate:"required,len=4,numeric"`
	StudentNumber    string `db:"student_number" validate:"required,min=5,numeric"`
	NationalID       string `db:"national_id" validate:"required,nationalid"`
	Phone            string `db:"phone" validate:"required,len=10,numeric"`
	TelegramUsername string `db:"telegram_username"`
	CardFileID       string `db:"card_file_id"`
	CardFilePath     string `db:"card_file_path"`
}

// AdminAction is one row of the append-only audit log.
type AdminAction struct {
	ID          int64     `db:"id"`
	AdminID     int64     `db:"admin_id"`
	Action      string    `db:"action"`
	TargetTable string    `db:"target_table"`
	TargetID    int64     `db:"target_id"`
	Note        string    `db:"note"`
	CreatedAt   time.Time `db:"created_at"`
}
