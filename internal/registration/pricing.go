// Package registration runs event sign-up: eligibility, identity collection,
// pricing, the payment and receipt steps, and the final commit.
package registration

import "github.com/m3rciful/assocbot/internal/domain"

// Quote is what a user owes for one event and where to pay it.
type Quote struct {
	Amount int64
	Card   string
	Holder string
	// Certificate is set when the amount is a certificate fee on a free event.
	Certificate bool
}

// Free reports whether registration finalizes with no payment step.
func (q Quote) Free() bool { return q.Amount <= 0 }

// Price resolves the amount for ev. For free events a single cert_fee above
// zero applies to everyone, otherwise the fee matching the student status.
func Price(ev domain.Event, student bool) Quote {
	switch ev.CostType {
	case domain.CostFixed:
		return Quote{Amount: ev.FixedCost, Card: ev.CardNumber}
	case domain.CostVariable:
		if student {
			return Quote{Amount: ev.StudentCost, Card: ev.CardNumber}
		}
		return Quote{Amount: ev.NonStudentCost, Card: ev.CardNumber}
	}
	q := Quote{Card: ev.CertCardNumber, Holder: ev.CertCardHolder, Certificate: true}
	switch {
	case ev.CertFee > 0:
		q.Amount = ev.CertFee
	case student:
		q.Amount = ev.CertFeeStudent
	default:
		q.Amount = ev.CertFeeNonStudent
	}
	return q
}
