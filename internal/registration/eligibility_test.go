package registration

import (
	"testing"
	"time"

	"github.com/m3rciful/assocbot/internal/domain"
)

func intp(v int) *int { return &v }
func i64p(v int64) *int64 { return &v }

func TestCheck(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	base := domain.Event{IsActive: true, SingleRegistration: true}
	cases := []struct {
		name   string
		mutate func(*domain.Event)
		counts domain.RegistrationCounts
		want   domain.EligibilityReason
	}{
		{"open", nil, domain.RegistrationCounts{}, ""},
		{"inactive", func(e *domain.Event) { e.IsActive = false }, domain.RegistrationCounts{}, domain.ReasonInactive},
		{"deadline passed", func(e *domain.Event) { e.EndAtTS = i64p(now.Unix()) }, domain.RegistrationCounts{}, domain.ReasonDeadlinePassed},
		{"deadline ahead", func(e *domain.Event) { e.EndAtTS = i64p(now.Unix() + 1) }, domain.RegistrationCounts{}, ""},
		{"duplicate", nil, domain.RegistrationCounts{UserActive: 1, EventActive: 1}, domain.ReasonDuplicate},
		{"multi allowed", func(e *domain.Event) { e.SingleRegistration = false }, domain.RegistrationCounts{UserActive: 1, EventActive: 1}, ""},
		{"capacity full", func(e *domain.Event) { e.Capacity = intp(2) }, domain.RegistrationCounts{EventActive: 2}, domain.ReasonCapacityFull},
		{"capacity left", func(e *domain.Event) { e.Capacity = intp(2) }, domain.RegistrationCounts{EventActive: 1}, ""},
		{"zero capacity admits nobody", func(e *domain.Event) { e.Capacity = intp(0) }, domain.RegistrationCounts{}, domain.ReasonCapacityFull},
		{"zero capacity with seats taken", func(e *domain.Event) { e.Capacity = intp(0) }, domain.RegistrationCounts{EventActive: 5}, domain.ReasonCapacityFull},
		{"nil capacity is unlimited", func(e *domain.Event) { e.Capacity = nil }, domain.RegistrationCounts{EventActive: 100}, ""},
	}
	for _, tc := range cases {
		ev := base
		if tc.mutate != nil {
			tc.mutate(&ev)
		}
		err := Check(ev, tc.counts, now)
		if tc.want == "" {
			if err != nil {
				t.Fatalf("%s: unexpected %v", tc.name, err)
			}
			continue
		}
		if !domain.IsReason(err, tc.want) {
			t.Fatalf("%s: got %v, want %s", tc.name, err, tc.want)
		}
	}
}
