package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateKeyLayout is the canonical calendar-date key format.
const DateKeyLayout = "2006-01-02"

// MonthLayout identifies a displayed month.
const MonthLayout = "2006-01"

var ErrInvalidDateKey = errors.New("invalid date key")

// IDFunc produces a fresh, collision-resistant identifier.
type IDFunc func() string

// NewID is the default IDFunc.
func NewID() string {
	return uuid.NewString()
}

// ParseDateKey parses a yyyy-MM-dd key into midnight UTC of that date.
// Non-canonical spellings such as "2024-3-1" are rejected.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil || t.Format(DateKeyLayout) != key {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, key)
	}
	return t, nil
}

// DateKey formats the calendar date of t (in t's own location).
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// DateOf strips the clock from t, keeping its local calendar date, and
// returns midnight UTC so date arithmetic never crosses a DST boundary.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseMonth parses a yyyy-MM month into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t, nil
}
