package domain

import (
	"fmt"
	"time"
)

// DayFormat is the wire and storage format for execution days.
const DayFormat = "2006-01-02"

// Day is a calendar day with no time-of-day component, stored as an ISO 8601
// date string. The empty Day means "never" (e.g. a fund that has not had a
// price published yet). ISO dates compare correctly as strings, which keeps
// the monotonicity check a plain comparison in both Go and SQL.
type Day string

// ParseDay parses an ISO date string ("2024-03-15") into a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Day(t.Format(DayFormat)), nil
}

// DayOf truncates a time to its calendar day.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayFormat))
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d == "" }

// After reports whether d is strictly after other. An unset day is before
// every set day.
func (d Day) After(other Day) bool {
	if d.IsZero() {
		return false
	}
	if other.IsZero() {
		return true
	}
	return string(d) > string(other)
}

func (d Day) String() string { return string(d) }
