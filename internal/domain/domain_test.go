package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestEventExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	past := now.Unix() - 1
	future := now.Unix() + 60
	if (Event{}).Expired(now) {
		t.Fatalf("event without deadline expired")
	}
	if !(Event{EndAtTS: &past}).Expired(now) {
		t.Fatalf("past deadline not expired")
	}
	if (Event{EndAtTS: &future}).Expired(now) {
		t.Fatalf("future deadline expired")
	}
}

func TestKindTablesAndDecisions(t *testing.T) {
	for _, k := range Kinds() {
		table, err := k.Table()
		if err != nil {
			t.Fatalf("kind %s: %v", k, err)
		}
		back, ok := KindForTable(table)
		if !ok || back != k {
			t.Fatalf("table %s did not map back to %s", table, k)
		}
	}
	if _, err := SubmissionKind("users; drop").Table(); err == nil {
		t.Fatalf("unknown kind mapped to a table")
	}
	if !KindDonation.Allows(StatusConfirmed) || KindDonation.Allows(StatusApproved) {
		t.Fatalf("donation decisions wrong")
	}
	if !KindIdea.Allows(StatusHandled) || KindCollab.Allows(StatusHandled) {
		t.Fatalf("handled decision wrong")
	}
}

func TestStorageWrapKeepsDomainErrors(t *testing.T) {
	elig := Ineligible(ReasonCapacityFull)
	if got := Storage("op", elig); got != elig {
		t.Fatalf("eligibility error was wrapped: %v", got)
	}
	wrapped := Storage("insert", errors.New("boom"))
	var se *StorageError
	if !errors.As(wrapped, &se) || se.Code() != "storage" {
		t.Fatalf("expected StorageError, got %T", wrapped)
	}
	if !IsReason(fmt.Errorf("ctx: %w", elig), ReasonCapacityFull) {
		t.Fatalf("IsReason did not unwrap")
	}
}

func TestProfileValidation(t *testing.T) {
	p := Profile{FullName: "Sara Ahmadi", NationalID: "0499370899", Phone: "9123456789"}
	if err := ValidateStruct(p, "bad"); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
	p.NationalID = "0499370898"
	err := ValidateStruct(p, "bad")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "NationalID" {
		t.Fatalf("expected NationalID validation error, got %v", err)
	}
}

func TestProfileMissing(t *testing.T) {
	yes := true
	p := Profile{FullName: "Ali", NationalID: "0499370899", Phone: "9123456789", IsStudent: &yes}
	if p.Complete() {
		t.Fatalf("student without student id reported complete")
	}
	p.StudentID = "9912345"
	if !p.Complete() {
		t.Fatalf("complete profile reported missing %v", p.Missing())
	}
}

func TestEventValidation(t *testing.T) {
	e := Event{Title: "Workshop", CostType: CostVariable, StudentCost: 50000, NonStudentCost: 80000}
	if err := ValidateStruct(e, "bad"); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	e.CostType = "gift"
	if err := ValidateStruct(e, "bad"); err == nil {
		t.Fatalf("unknown cost type accepted")
	}
}
