// Package domain holds the association's records and the error taxonomy
// shared by every conversation flow.
package domain

import "time"

// CostType selects how an event is priced.
type CostType string

const (
	CostFree     CostType = "free"
	CostFixed    CostType = "fixed"
	CostVariable CostType = "variable"
)

// Valid reports whether c is a known cost type.
func (c CostType) Valid() bool {
	switch c {
	case CostFree, CostFixed, CostVariable:
		return true
	}
	return false
}

// Event is an association event users can register for.
type Event struct {
	ID                 int64    `db:"id"`
	Title              string   `db:"title" validate:"required,max=200"`
	Description        string   `db:"description" validate:"max=4000"`
	CostType           CostType `db:"cost_type" validate:"oneof=free fixed variable"`
	FixedCost          int64    `db:"fixed_cost" validate:"gte=0"`
	StudentCost        int64    `db:"student_cost" validate:"gte=0"`
	NonStudentCost     int64    `db:"non_student_cost" validate:"gte=0"`
	CardNumber         string   `db:"card_number"`
	CertFee            int64    `db:"cert_fee" validate:"gte=0"`
	CertFeeStudent     int64    `db:"cert_fee_student" validate:"gte=0"`
	CertFeeNonStudent  int64    `db:"cert_fee_non_student" validate:"gte=0"`
	CertCardNumber     string   `db:"cert_card_number"`
	CertCardHolder     string   `db:"cert_card_holder"`
	PosterFileID       string   `db:"poster_file_id"`
	Capacity           *int     `db:"capacity" validate:"omitempty,gte=0"`
	SingleRegistration bool     `db:"single_registration"`
	EndAtTS            *int64   `db:"end_at_ts"`
	EndSetBy           *int64   `db:"end_set_by"`
	IsActive           bool     `db:"is_active"`
	CreatedBy          *int64   `db:"created_by"`
}

// Expired reports whether the registration deadline is at or before now.
func (e Event) Expired(now time.Time) bool {
	return e.EndAtTS != nil && *e.EndAtTS <= now.Unix()
}

// Unlimited reports whether the event has no capacity ceiling. A stored
// capacity of 0 means no seats at all.
func (e Event) Unlimited() bool {
	return e.Capacity == nil
}

// EventField is an event column admins may rewrite after creation.
type EventField string

const (
	FieldTitle       EventField = "title"
	FieldDescription EventField = "description"
	FieldCardNumber  EventField = "card_number"
	FieldPoster      EventField = "poster_file_id"
)

// RegistrationTally counts an event's registrations by status.
type RegistrationTally struct {
	Approved int `db:"approved"`
	Rejected int `db:"rejected"`
	Pending  int `db:"pending"`
}

// Total is the number of registrations of any status.
func (t RegistrationTally) Total() int { return t.Approved + t.Rejected + t.Pending }

// EventTitle is the id/title pair returned by bulk operations.
type EventTitle struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}
