package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used as the ledger key.
const DateLayout = "2006-01-02"

// DateKey identifies one calendar day, e.g. "2024-03-09".
type DateKey string

// NewDateKey returns the key of the calendar day t falls on, in t's location.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format(DateLayout))
}

// ParseDateKey parses s as a calendar day at midnight in loc.
func ParseDateKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Time returns the day at midnight in loc.
func (k DateKey) Time(loc *time.Location) (time.Time, error) {
	return ParseDateKey(string(k), loc)
}

// Valid reports whether the key is a real calendar day.
func (k DateKey) Valid() bool {
	_, err := ParseDateKey(string(k), time.UTC)
	return err == nil
}

func (k DateKey) String() string { return string(k) }

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
