package gating

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of schedule dates (SQL DATE).
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

var ErrInvalidDate = errors.New("invalid calendar date")

// DateOnly returns the UTC midnight of t's UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate normalizes a stored date to UTC midnight. Timestamps are cut to the
// calendar date as written, without converting between zones first.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.ParseInLocation(DateLayout, s[:len(DateLayout)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if rest := s[len(DateLayout):]; rest != "" && rest[0] != 'T' && rest[0] != ' ' {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dayNumber counts whole days since the Unix epoch. Exact for UTC midnights.
func dayNumber(t time.Time) int64 {
	return DateOnly(t).Unix() / secondsPerDay
}

// DaysBetween returns the signed number of calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(dayNumber(to) - dayNumber(from))
}

// FormatUnlockDate renders a date as "March 15, 2025".
func FormatUnlockDate(date *time.Time) string {
	if date == nil {
		return "Not scheduled"
	}
	return DateOnly(*date).Format("January 2, 2006")
}
