// Package jalali converts between Jalali (Solar Hijri) civil date strings and
// Unix epoch seconds at the fixed Tehran offset.
package jalali

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Zone is the fixed +03:30 offset used for every deadline.
var Zone = time.FixedZone("IRST", 3*3600+30*60)

// Layout documents the accepted input and produced output shape.
const Layout = "YYYY/MM/DD HH:MM"

// ErrFormat is returned when input does not describe a valid Jalali date.
var ErrFormat = errors.New("jalali: invalid date")

var gregorianDaysBeforeMonth = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// NormalizeDigits maps Persian and Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToJalali converts a Gregorian civil date.
func ToJalali(gy, gm, gd int) (jy, jm, jd int) {
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + gregorianDaysBeforeMonth[gm-1]
	jy = -1595 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return jy, jm, jd
}

// ToGregorian converts a Jalali civil date.
func ToGregorian(jy, jm, jd int) (gy, gm, gd int) {
	jy += 1595
	days := -355668 + 365*jy + (jy/33)*8 + ((jy%33)+3)/4 + jd
	if jm < 7 {
		days += (jm - 1) * 31
	} else {
		days += (jm-7)*30 + 186
	}
	gy = 400 * (days / 146097)
	days %= 146097
	if days > 36524 {
		days--
		gy += 100 * (days / 36524)
		days %= 36524
		if days >= 365 {
			days++
		}
	}
	gy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		gy += (days - 1) / 365
		days = (days - 1) % 365
	}
	gd = days + 1

	monthDays := [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if (gy%4 == 0 && gy%100 != 0) || gy%400 == 0 {
		monthDays[1] = 29
	}
	gm = 0
	for gm < 12 && gd > monthDays[gm] {
		gd -= monthDays[gm]
		gm++
	}
	return gy, gm + 1, gd
}

// Parse reads "YYYY/MM/DD HH:MM" (time optional, '-' accepted as the date
// separator) and returns epoch seconds.
func Parse(s string) (int64, error) {
	t, err := ParseTime(s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// ParseTime is Parse returning a time.Time in Zone.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(NormalizeDigits(s))
	if s == "" {
		return time.Time{}, ErrFormat
	}
	datePart, timePart, _ := strings.Cut(s, " ")
	timePart = strings.TrimSpace(timePart)

	fields := strings.FieldsFunc(datePart, func(r rune) bool { return r == '/' || r == '-' })
	if len(fields) != 3 {
		return time.Time{}, ErrFormat
	}
	jy, err1 := strconv.Atoi(fields[0])
	jm, err2 := strconv.Atoi(fields[1])
	jd, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, ErrFormat
	}
	if jy < 1 || jm < 1 || jm > 12 || jd < 1 || jd > 31 {
		return time.Time{}, ErrFormat
	}

	hh, mm := 0, 0
	if timePart != "" {
		hs, ms, ok := strings.Cut(timePart, ":")
		if !ok {
			return time.Time{}, ErrFormat
		}
		var errH, errM error
		hh, errH = strconv.Atoi(hs)
		mm, errM = strconv.Atoi(ms)
		if errH != nil || errM != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
			return time.Time{}, ErrFormat
		}
	}

	gy, gm, gd := ToGregorian(jy, jm, jd)
	if y, m, d := ToJalali(gy, gm, gd); y != jy || m != jm || d != jd {
		return time.Time{}, ErrFormat
	}
	return time.Date(gy, time.Month(gm), gd, hh, mm, 0, 0, Zone), nil
}

// Format renders epoch seconds as "YYYY/MM/DD HH:MM" in Zone.
func Format(ts int64) string {
	t := time.Unix(ts, 0).In(Zone)
	jy, jm, jd := ToJalali(t.Year(), int(t.Month()), t.Day())
	return fmt.Sprintf("%04d/%02d/%02d %02d:%02d", jy, jm, jd, t.Hour(), t.Minute())
}
