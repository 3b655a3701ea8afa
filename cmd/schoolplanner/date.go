package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"schoolplanner/internal/planner"
)

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// resolveDate accepts a yyyy-MM-dd key or an English phrase such as
// "tomorrow" or "next friday". Empty means today.
func resolveDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return planner.DateKey(now), nil
	}
	if _, err := planner.ParseDateKey(s); err == nil {
		return s, nil
	}
	res, err := dateParser.Parse(s, now)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: %q", planner.ErrInvalidDateKey, s)
	}
	return planner.DateKey(res.Time), nil
}

// resolveMonth accepts yyyy-MM or anything resolveDate understands.
func resolveMonth(s string, now time.Time) (time.Time, error) {
	if m, err := planner.ParseMonth(strings.TrimSpace(s)); err == nil {
		return m, nil
	}
	key, err := resolveDate(s, now)
	if err != nil {
		return time.Time{}, err
	}
	d, _ := planner.ParseDateKey(key)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
}

// parseWeekdays reads a comma-separated list of school days, by name
// ("mon,wed") or by number (1=Monday ... 5=Friday).
func parseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if d, ok := weekdayNames[part]; ok {
			out = append(out, d)
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 5 {
			return nil, fmt.Errorf("unknown school day %q", part)
		}
		out = append(out, time.Weekday(n))
	}
	return out, nil
}
