package registration

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/storage"
)

// Check applies every registration guard to ev. Both entry paths call it
// before touching conversation state, and the commit transaction calls it
// again on counts read under the event lock.
func Check(ev domain.Event, counts domain.RegistrationCounts, now time.Time) error {
	if !ev.IsActive {
		return domain.Ineligible(domain.ReasonInactive)
	}
	if ev.Expired(now) {
		return domain.Ineligible(domain.ReasonDeadlinePassed)
	}
	if ev.SingleRegistration && counts.UserActive > 0 {
		return domain.Ineligible(domain.ReasonDuplicate)
	}
	if !ev.Unlimited() && counts.EventActive >= *ev.Capacity {
		return domain.Ineligible(domain.ReasonCapacityFull)
	}
	return nil
}

var _ storage.Guard = Check

// Eligible loads the event and the user's counts and runs Check.
func Eligible(ctx context.Context, s storage.Store, eventID, userID int64, now time.Time) (domain.Event, error) {
	ev, err := s.GetEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Event{}, domain.Ineligible(domain.ReasonNotFound)
	}
	if err != nil {
		return domain.Event{}, err
	}
	counts, err := s.RegistrationCounts(ctx, eventID, userID)
	if err != nil {
		return domain.Event{}, err
	}
	return ev, Check(ev, counts, now)
}
