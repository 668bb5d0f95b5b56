package identity

import (
	"fmt"
	"strings"
	"testing"
)

func checksum(prefix string) int {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(prefix[i]-'0') * (10 - i)
	}
	r := sum % 11
	if r < 2 {
		return r
	}
	return 11 - r
}

func TestValidNationalIDKnown(t *testing.T) {
	valid := []string{"0499370899", "0790419904", "0084575948"}
	for _, id := range valid {
		if !ValidNationalID(id) {
			t.Errorf("expected %s to be valid", id)
		}
	}
	invalid := []string{"0499370898", "123", "04993708990", "04993a0899", "", "1234567890"}
	for _, id := range invalid {
		if ValidNationalID(id) {
			t.Errorf("expected %s to be invalid", id)
		}
	}
}

func TestValidNationalIDRepeatedDigits(t *testing.T) {
	for d := 0; d <= 9; d++ {
		id := strings.Repeat(fmt.Sprint(d), 10)
		if ValidNationalID(id) {
			t.Errorf("repeated digit id %s accepted", id)
		}
	}
}

// Every nine-digit prefix in a sample has exactly one accepted check digit.
func TestValidNationalIDProperty(t *testing.T) {
	for n := 100000000; n < 100000000+20000; n += 7 {
		prefix := fmt.Sprintf("%09d", n)
		want := checksum(prefix)
		accepted := 0
		for c := 0; c <= 9; c++ {
			id := fmt.Sprintf("%s%d", prefix, c)
			ok := ValidNationalID(id)
			if ok {
				accepted++
			}
			if ok != (c == want) {
				t.Fatalf("id %s: accepted=%v want check %d", id, ok, want)
			}
		}
		if accepted != 1 {
			t.Fatalf("prefix %s accepted %d check digits", prefix, accepted)
		}
	}
}

// Remainders 0 and 1 keep the remainder as the check digit, larger ones use
// 11-r, so a remainder of 10 maps to check digit 1 and no id needs 10.
func TestValidNationalIDRemainderEdges(t *testing.T) {
	cases := []struct {
		id string
		r  int
	}{
		{"1000000011", 1},  // sum 12
		{"0000000019", 2},  // sum 2
		{"0000000108", 3},  // sum 3
		{"0000000116", 5},  // sum 5
		{"1000000001", 10}, // sum 10
		{"0000000051", 10}, // sum 10
	}
	for _, c := range cases {
		if !ValidNationalID(c.id) {
			t.Errorf("remainder %d edge %s rejected", c.r, c.id)
		}
	}
	if ValidNationalID("0000000000") {
		t.Fatalf("all zero accepted")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]struct {
		out string
		ok  bool
	}{
		"09123456789":       {"9123456789", true},
		"+989123456789":     {"9123456789", true},
		"912 345 6789":      {"9123456789", true},
		"0912-345-6789":     {"9123456789", true},
		"۰۹۱۲۳۴۵۶۷۸۹":       {"9123456789", true},
		"0912345678":        {"912345678", false},
		"09123456789123":    {"9123456789123", false},
		"09a23456789":       {"9a23456789", false},
	}
	for in, want := range cases {
		got, ok := NormalizePhone(in)
		if got != want.out || ok != want.ok {
			t.Errorf("NormalizePhone(%q) = %q,%v want %q,%v", in, got, ok, want.out, want.ok)
		}
	}
}

func TestParseAmount(t *testing.T) {
	ok := map[string]int64{"0": 0, "50000": 50000, "50,000": 50000, "۱۲۰۰۰": 12000, " 1 000 ": 1000}
	for in, want := range ok {
		got, valid := ParseAmount(in)
		if !valid || got != want {
			t.Fatalf("ParseAmount(%q) = %d, %v", in, got, valid)
		}
	}
	for _, in := range []string{"", "-5", "abc", "1.5", "99999999999999999999"} {
		if _, valid := ParseAmount(in); valid {
			t.Fatalf("ParseAmount(%q) accepted", in)
		}
	}
}
