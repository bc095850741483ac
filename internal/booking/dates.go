package booking

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

// DefaultMaxNights bounds a stay when no other limit is configured.
const DefaultMaxNights = 365

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date (YYYY-MM-DD) into UTC midnight.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid(field, "is required")
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// ParseStay parses and orders a check-in/checkout pair.  Checkout must
// be strictly after check-in and the stay at most maxNights long; a
// non-positive maxNights means DefaultMaxNights.
func ParseStay(checkIn, checkOut string, maxNights int) (time.Time, time.Time, error) {
	in, err := ParseDate("check_in_date", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := ParseDate("check_out_date", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !in.Before(out) {
		return time.Time{}, time.Time{}, invalid("check_out_date", "must be after check_in_date")
	}
	if maxNights <= 0 {
		maxNights = DefaultMaxNights
	}
	if Nights(in, out) > maxNights {
		return time.Time{}, time.Time{}, invalid("check_out_date", "stay must not exceed "+strconv.Itoa(maxNights)+" nights")
	}
	return in, out, nil
}

// ExpandRange returns every night of the half-open stay [checkIn,
// checkOut), one day apart.  The checkout day is not included.  Each
// call returns a fresh slice.
func ExpandRange(checkIn, checkOut time.Time) ([]time.Time, error) {
	in, out := Day(checkIn), Day(checkOut)
	if !in.Before(out) {
		return nil, invalid("check_out_date", "must be after check_in_date")
	}
	days := make([]time.Time, 0, Nights(in, out))
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// Nights counts the nights between two calendar days.
func Nights(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
}
