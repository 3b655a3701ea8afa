package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"schoolplanner/internal/log"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location converts every occurrence before it is bucketed by date.
	// Nil means time.Local.
	Location *time.Location

	// From and To form the inclusive window.
	From time.Time
	To   time.Time

	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	UID      string
	Summary  string
	Location string
	AllDay   bool
	Start    time.Time
	End      time.Time
}

// Expand turns parsed events into concrete occurrences within the window,
// applying RRULE, EXDATE and RECURRENCE-ID overrides. The result is sorted
// by start time.
func Expand(events []Event, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.To.Before(cfg.From) {
		return nil, errors.New("ics: window end is before its start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	base := make(map[string][]Event)
	overrides := make(map[string][]Event)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			base[ev.UID] = append(base[ev.UID], ev)
		}
	}

	out := make([]Occurrence, 0)
	for uid, evs := range base {
		for _, ev := range evs {
			var occ []Occurrence
			if ev.RawRRule == "" {
				occ = expandSingle(ev, overrides[uid], cfg)
			} else {
				var capped bool
				occ, capped = expandRecurring(ev, overrides[uid], cfg)
				if capped {
					log.Warn("ics: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
				}
			}
			out = append(out, occ...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func expandSingle(ev Event, overrides []Event, cfg ExpandConfig) []Occurrence {
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	from, to := window(cfg, ev)
	if !overlaps(start, end, from, to) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, start, end, cfg.Location)}
}

func expandRecurring(ev Event, overrides []Event, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		log.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	from, to := window(cfg, ev)
	times := set.Between(from, to, true)

	capped := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		capped = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(times))
	for _, start := range times {
		end := start.Add(dur)
		if ev.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, 1)
		}
		inst := ev
		if o, ok := findOverride(overrides, start); ok {
			inst, start, end = o, o.Start, o.End
		}
		out = append(out, makeOccurrence(inst, start, end, cfg.Location))
	}
	return out, capped
}

// window returns the expansion bounds in the event's own location. All-day
// events are bounded by calendar date so a zone offset cannot shift a day
// in or out.
func window(cfg ExpandConfig, ev Event) (time.Time, time.Time) {
	loc := ev.Start.Location()
	if !ev.AllDay {
		return cfg.From.In(loc), cfg.To.In(loc)
	}
	from := time.Date(cfg.From.Year(), cfg.From.Month(), cfg.From.Day(), 0, 0, 0, 0, loc)
	to := time.Date(cfg.To.Year(), cfg.To.Month(), cfg.To.Day(), 23, 59, 59, 0, loc)
	return from, to
}

func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func makeOccurrence(ev Event, start, end time.Time, loc *time.Location) Occurrence {
	occ := Occurrence{
		UID:      ev.UID,
		Summary:  ev.Summary,
		Location: ev.Location,
		AllDay:   ev.AllDay,
		Start:    start,
		End:      end,
	}
	// All-day dates are calendar dates, not instants; keep them as read.
	if !ev.AllDay {
		occ.Start = start.In(loc)
		occ.End = end.In(loc)
	}
	return occ
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
