package domain

import "time"

// RegistrationStatus is the moderation state of a registration.
type RegistrationStatus string

const (
	RegPending  RegistrationStatus = "pending"
	RegApproved RegistrationStatus = "approved"
	RegRejected RegistrationStatus = "rejected"
)

// Active reports whether the status holds a seat.
func (s RegistrationStatus) Active() bool {
	return s == RegPending || s == RegApproved
}

// Registration is one user's enrolment in an event.
type Registration struct {
	ID                int64              `db:"id"`
	UserID            int64              `db:"user_id"`
	EventID           int64              `db:"event_id"`
	Status            RegistrationStatus `db:"status"`
	Amount            int64              `db:"amount"`
	IsStudent         bool               `db:"is_student"`
	PaymentReceiptRef string             `db:"payment_receipt_ref"`
	RejectReason      string             `db:"reject_reason"`
	ProcessedBy       *int64             `db:"processed_by"`
	ProcessedAt       *time.Time         `db:"processed_at"`
	RegisterDate      time.Time          `db:"register_date"`
}

// RegistrationCounts summarises a user's and an event's registrations.
type RegistrationCounts struct {
	// UserActive counts the user's pending or approved rows for the event.
	UserActive int
	// EventActive counts all pending or approved rows for the event.
	EventActive int
}

// UserRegistration joins a registration with its event title for listings.
type UserRegistration struct {
	Registration
	EventTitle string `db:"event_title"`
}
