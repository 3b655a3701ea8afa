package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"schoolplanner/internal/model"
)

// DefaultHorizonDays is the forward window, anchor included, in which
// recurring instances are generated.
const DefaultHorizonDays = 90

var ErrInvalidRepeat = errors.New("invalid repeat mode")

// Rule describes how an activity repeats from its anchor date.
type Rule struct {
	Mode model.RepeatMode
	// CustomDays are weekday indices (Sunday=0) used by RepeatCustom.
	CustomDays []time.Weekday
}

var schoolWeek = []struct {
	day time.Weekday
	rr  rrule.Weekday
}{
	{time.Monday, rrule.MO},
	{time.Tuesday, rrule.TU},
	{time.Wednesday, rrule.WE},
	{time.Thursday, rrule.TH},
	{time.Friday, rrule.FR},
}

// Expand returns the ordered target dates for an activity anchored at
// anchor. The anchor is always the first element, even on a weekend.
// Later dates are weekdays within horizonDays of the anchor.
func Expand(anchor time.Time, rule Rule, horizonDays int) ([]time.Time, error) {
	anchor = DateOf(anchor)
	out := []time.Time{anchor}

	mode := rule.Mode
	if mode == "" {
		mode = model.RepeatNone
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepeat, rule.Mode)
	}
	if mode == model.RepeatNone {
		return out, nil
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	byDay := weekdaysFor(anchor, Rule{Mode: mode, CustomDays: rule.CustomDays})
	if len(byDay) == 0 {
		// An empty BYDAY would make rrule match every day.
		return out, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   anchor.AddDate(0, 0, 1),
		Until:     anchor.AddDate(0, 0, horizonDays-1),
		Byweekday: byDay,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: build recurrence: %w", err)
	}
	for _, d := range r.All() {
		out = append(out, DateOf(d))
	}
	return out, nil
}

// weekdaysFor resolves the BYDAY set for a rule, weekends excluded.
func weekdaysFor(anchor time.Time, rule Rule) []rrule.Weekday {
	want := make(map[time.Weekday]bool, 5)
	switch rule.Mode {
	case model.RepeatDaily:
		for _, d := range schoolWeek {
			want[d.day] = true
		}
	case model.RepeatWeekly:
		want[anchor.Weekday()] = true
	case model.RepeatCustom:
		for _, d := range rule.CustomDays {
			want[d] = true
		}
	}

	out := make([]rrule.Weekday, 0, len(want))
	for _, d := range schoolWeek {
		if want[d.day] {
			out = append(out, d.rr)
		}
	}
	return out
}
