package ics

import (
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

// TimedDuration is the length given to timed activities, which carry only a
// start time.
const TimedDuration = 30 * time.Minute

const uidDomain = "@schoolplanner"

var propCompleted = ical.ComponentProperty("X-SCHOOLPLANNER-COMPLETED")

// Encode renders the store as an iCalendar document with one VEVENT per
// activity. Timed activities are placed in loc.
func Encode(days model.Days, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}
	cal := ical.NewCalendarFor("schoolplanner")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("School Schedule")

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		date, err := planner.ParseDateKey(key)
		if err != nil {
			continue
		}
		for _, a := range planner.Sorted(days[key].Activities) {
			addEvent(cal, date, a, loc, now)
		}
	}
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, date time.Time, a model.Activity, loc *time.Location, now time.Time) {
	ev := cal.AddEvent(a.ID + uidDomain)
	ev.SetDtStampTime(now.UTC())

	summary := a.Title
	if a.Icon != "" {
		summary = a.Icon + " " + a.Title
	}
	ev.SetSummary(summary)

	if a.IsAllDay {
		ev.SetAllDayStartAt(date)
		ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
	} else {
		start := date
		if t, err := time.Parse("15:04", a.Time); err == nil {
			start = time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(TimedDuration))
	}

	if a.SeriesID != "" {
		ev.AddProperty(ical.ComponentPropertyRelatedTo, a.SeriesID+uidDomain)
	}
	if a.Completed {
		ev.AddProperty(propCompleted, "TRUE")
	}
}
