package registration

import (
	"testing"

	"github.com/m3rciful/assocbot/internal/domain"
)

func TestPriceVariable(t *testing.T) {
	ev := domain.Event{CostType: domain.CostVariable, StudentCost: 50000, NonStudentCost: 80000, CardNumber: "6037"}
	if q := Price(ev, true); q.Amount != 50000 || q.Card != "6037" {
		t.Fatalf("student quote %+v", q)
	}
	if q := Price(ev, false); q.Amount != 80000 {
		t.Fatalf("non-student quote %+v", q)
	}
}

func TestPriceFixedIgnoresStatus(t *testing.T) {
	ev := domain.Event{CostType: domain.CostFixed, FixedCost: 30000, StudentCost: 1}
	if Price(ev, true).Amount != 30000 || Price(ev, false).Amount != 30000 {
		t.Fatalf("fixed price should not depend on status")
	}
}

func TestPriceCertificateFee(t *testing.T) {
	cases := []struct {
		name    string
		ev      domain.Event
		student bool
		want    int64
	}{
		{"single fee wins for students", domain.Event{CertFee: 20000, CertFeeStudent: 5000, CertFeeNonStudent: 9000}, true, 20000},
		{"single fee wins for others", domain.Event{CertFee: 20000, CertFeeStudent: 5000, CertFeeNonStudent: 9000}, false, 20000},
		{"student fee", domain.Event{CertFeeStudent: 5000, CertFeeNonStudent: 9000}, true, 5000},
		{"non-student fee", domain.Event{CertFeeStudent: 5000, CertFeeNonStudent: 9000}, false, 9000},
		{"no certificate", domain.Event{}, true, 0},
	}
	for _, tc := range cases {
		tc.ev.CostType = domain.CostFree
		tc.ev.CertCardNumber = "5022"
		q := Price(tc.ev, tc.student)
		if q.Amount != tc.want {
			t.Fatalf("%s: amount %d, want %d", tc.name, q.Amount, tc.want)
		}
		if !q.Certificate || q.Card != "5022" {
			t.Fatalf("%s: free events pay to the certificate card, got %+v", tc.name, q)
		}
		if q.Free() != (tc.want == 0) {
			t.Fatalf("%s: Free() = %v", tc.name, q.Free())
		}
	}
}
