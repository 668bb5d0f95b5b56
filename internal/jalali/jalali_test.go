package jalali

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

func TestKnownDates(t *testing.T) {
	cases := []struct {
		jy, jm, jd int
		gy, gm, gd int
	}{
		{1403, 1, 1, 2024, 3, 20},
		{1402, 12, 29, 2024, 3, 19},
		{1400, 1, 1, 2021, 3, 21},
		{1399, 12, 30, 2021, 3, 20},
		{1403, 7, 1, 2024, 9, 22},
		// after a Gregorian leap day
		{1330, 12, 10, 1952, 3, 1},
	}
	for _, c := range cases {
		gy, gm, gd := ToGregorian(c.jy, c.jm, c.jd)
		if gy != c.gy || gm != c.gm || gd != c.gd {
			t.Errorf("ToGregorian(%d/%d/%d) = %d-%d-%d", c.jy, c.jm, c.jd, gy, gm, gd)
		}
		jy, jm, jd := ToJalali(c.gy, c.gm, c.gd)
		if jy != c.jy || jm != c.jm || jd != c.jd {
			t.Errorf("ToJalali(%d-%d-%d) = %d/%d/%d", c.gy, c.gm, c.gd, jy, jm, jd)
		}
	}
}

func TestParseOffset(t *testing.T) {
	ts, err := Parse("1403/01/01 00:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2024, 3, 19, 20, 30, 0, 0, time.UTC).Unix()
	if ts != want {
		t.Fatalf("want %d got %d", want, ts)
	}
}

func TestParseDigitsAndSeparators(t *testing.T) {
	ascii, err := Parse("1403/07/01 18:30")
	if err != nil {
		t.Fatalf("ascii: %v", err)
	}
	for _, in := range []string{"۱۴۰۳/۰۷/۰۱ ۱۸:۳۰", "١٤٠٣-٠٧-٠١ ١٨:٣٠", "  1403-7-1 18:30 "} {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != ascii {
			t.Fatalf("%q parsed to %d, want %d", in, got, ascii)
		}
	}
	dateOnly, err := Parse("1403/07/01")
	if err != nil {
		t.Fatalf("date only: %v", err)
	}
	if Format(dateOnly) != "1403/07/01 00:00" {
		t.Fatalf("date-only default time wrong: %s", Format(dateOnly))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, in := range []string{
		"", "1403", "1403/13/01", "1403/00/10", "1403/07/31", "1403/01/32",
		"1403/01/01 24:00", "1403/01/01 10:60", "1403/01/01 1030", "abcd/01/01",
		"1403/12/31",
	} {
		if _, err := Parse(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		jy := 1370 + r.Intn(60)
		jm := 1 + r.Intn(12)
		maxDay := 31
		switch {
		case jm == 12:
			maxDay = 29
		case jm >= 7:
			maxDay = 30
		}
		jd := 1 + r.Intn(maxDay)
		s := fmt.Sprintf("%04d/%02d/%02d %02d:%02d", jy, jm, jd, r.Intn(24), r.Intn(60))
		ts, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := Format(ts); got != s {
			t.Fatalf("round trip %q -> %d -> %q", s, ts, got)
		}
	}
}
