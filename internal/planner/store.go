package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"schoolplanner/internal/model"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrEmptyTitle       = errors.New("title is required")
	ErrInvalidTime      = errors.New("time must be HH:MM")
	ErrInvalidMood      = errors.New("invalid mood")
)

// DefaultTime is used when a timed activity is added without a time.
const DefaultTime = "09:00"

// Options carries the collaborators the pure operations need.
type Options struct {
	NewID       IDFunc
	HorizonDays int
}

func (o Options) id() string {
	if o.NewID == nil {
		return NewID()
	}
	return o.NewID()
}

// AddRequest describes a new activity and how it repeats.
type AddRequest struct {
	Title       string
	Time        string
	IsAllDay    bool
	Icon        string
	Color       string
	CustomColor string
	Repeat      model.RepeatMode
	CustomDays  []time.Weekday
}

// AddResult reports what Add created.
type AddResult struct {
	SeriesID string
	Dates    []string
	IDs      []string
}

// Add expands req from the anchor date and appends one fresh activity to
// every target date.
func Add(days model.Days, anchorKey string, req AddRequest, opts Options) (model.Days, AddResult, error) {
	anchor, err := ParseDateKey(anchorKey)
	if err != nil {
		return days, AddResult{}, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return days, AddResult{}, ErrEmptyTitle
	}
	if req.Time == "" {
		req.Time = DefaultTime
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return days, AddResult{}, fmt.Errorf("%w: %q", ErrInvalidTime, req.Time)
	}

	targets, err := Expand(anchor, Rule{Mode: req.Repeat, CustomDays: req.CustomDays}, opts.HorizonDays)
	if err != nil {
		return days, AddResult{}, err
	}

	var res AddResult
	if req.Repeat != "" && req.Repeat != model.RepeatNone {
		res.SeriesID = opts.id()
	}

	out := days.Clone()
	for _, t := range targets {
		key := DateKey(t)
		a := model.Activity{
			ID:          opts.id(),
			SeriesID:    res.SeriesID,
			Title:       req.Title,
			Time:        req.Time,
			IsAllDay:    req.IsAllDay,
			Icon:        req.Icon,
			Color:       req.Color,
			CustomColor: req.CustomColor,
		}
		out[key] = appendActivity(Day(out, key), a)
		res.Dates = append(res.Dates, key)
		res.IDs = append(res.IDs, a.ID)
	}
	return out, res, nil
}

// Scope selects how much of a series a removal affects.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeSeries Scope = "series"
)

// RemovalPlan is the first step of the removal protocol. When NeedsScope is
// set the caller must ask the user before calling Remove with ScopeSeries.
type RemovalPlan struct {
	DateKey     string `json:"date"`
	ActivityID  string `json:"activityId"`
	SeriesID    string `json:"seriesId,omitempty"`
	NeedsScope  bool   `json:"needsScope"`
	SeriesCount int    `json:"seriesCount"`
}

// PlanRemoval locates the activity and reports whether a scope decision is
// needed. ok is false when the day or the activity does not exist.
func PlanRemoval(days model.Days, dateKey, activityID string) (plan RemovalPlan, ok bool) {
	a, found := findActivity(days, dateKey, activityID)
	if !found {
		return RemovalPlan{}, false
	}
	plan = RemovalPlan{
		DateKey:    dateKey,
		ActivityID: activityID,
		SeriesID:   a.SeriesID,
		NeedsScope: a.SeriesID != "",
	}
	if a.SeriesID != "" {
		plan.SeriesCount = countSeries(days, a.SeriesID)
	}
	return plan, true
}

// Remove performs a planned removal and returns the number of activities
// removed. Any scope other than ScopeSeries, or a plan without a series,
// removes only the planned instance.
func Remove(days model.Days, plan RemovalPlan, scope Scope) (model.Days, int) {
	if scope == ScopeSeries && plan.SeriesID != "" {
		out := days.Clone()
		removed := 0
		for key, rec := range days {
			kept := make([]model.Activity, 0, len(rec.Activities))
			for _, a := range rec.Activities {
				if a.SeriesID == plan.SeriesID {
					removed++
					continue
				}
				kept = append(kept, a)
			}
			if len(kept) != len(rec.Activities) {
				rec.Activities = kept
				out[key] = rec
			}
		}
		return out, removed
	}

	rec, ok := days[plan.DateKey]
	if !ok {
		return days, 0
	}
	kept, removed := withoutID(rec.Activities, plan.ActivityID)
	if removed == 0 {
		return days, 0
	}
	out := days.Clone()
	rec.Activities = kept
	out[plan.DateKey] = rec
	return out, removed
}

// Toggle flips the completed flag of one activity. Missing days or ids
// leave the store untouched and report false.
func Toggle(days model.Days, dateKey, activityID string) (model.Days, bool) {
	rec, ok := days[dateKey]
	if !ok {
		return days, false
	}
	acts := make([]model.Activity, len(rec.Activities))
	copy(acts, rec.Activities)
	for i := range acts {
		if acts[i].ID == activityID {
			acts[i].Completed = !acts[i].Completed
			out := days.Clone()
			rec.Activities = acts
			out[dateKey] = rec
			return out, true
		}
	}
	return days, false
}

// Clone duplicates an activity within its day. The copy is incomplete and
// never belongs to the original series.
func Clone(days model.Days, dateKey, activityID string, opts Options) (model.Days, model.Activity, error) {
	a, ok := findActivity(days, dateKey, activityID)
	if !ok {
		return days, model.Activity{}, fmt.Errorf("%w: %s on %s", ErrActivityNotFound, activityID, dateKey)
	}
	a.ID = opts.id()
	a.Completed = false
	a.SeriesID = ""

	out := days.Clone()
	out[dateKey] = appendActivity(Day(days, dateKey), a)
	return out, a, nil
}

// Relocate moves (or copies) an activity to another date. The inserted
// instance always gets a fresh id; a move keeps the series id, a copy is
// detached from it. Moving onto the source date does not remove the
// original.
func Relocate(days model.Days, fromKey, toKey, activityID string, copyOnly bool, opts Options) (model.Days, model.Activity, error) {
	if _, err := ParseDateKey(toKey); err != nil {
		return days, model.Activity{}, err
	}
	a, ok := findActivity(days, fromKey, activityID)
	if !ok {
		return days, model.Activity{}, fmt.Errorf("%w: %s on %s", ErrActivityNotFound, activityID, fromKey)
	}

	out := days.Clone()
	if !copyOnly && fromKey != toKey {
		src := out[fromKey]
		src.Activities, _ = withoutID(src.Activities, activityID)
		out[fromKey] = src
	}

	a.ID = opts.id()
	if copyOnly {
		a.SeriesID = ""
	}
	out[toKey] = appendActivity(Day(out, toKey), a)
	return out, a, nil
}

// Insert appends prepared activities to their days, keeping their ids.
// Keys must be valid date keys.
func Insert(days model.Days, batch map[string][]model.Activity) (model.Days, error) {
	for key := range batch {
		if _, err := ParseDateKey(key); err != nil {
			return days, err
		}
	}
	out := days.Clone()
	for key, acts := range batch {
		rec := Day(out, key)
		for _, a := range acts {
			rec = appendActivity(rec, a)
		}
		out[key] = rec
	}
	return out, nil
}

// UniqueIDs gives every activity whose id is empty, listed in taken, or
// already used earlier in days a fresh id. Days are visited in key order.
// days must be freshly decoded: its records are rewritten in place. taken
// may be nil. It returns the number of ids replaced.
func UniqueIDs(days model.Days, taken map[string]bool, newID IDFunc) int {
	if newID == nil {
		newID = NewID
	}
	seen := make(map[string]bool, len(taken))
	for id := range taken {
		seen[id] = true
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	replaced := 0
	for _, key := range keys {
		rec := days[key]
		for i := range rec.Activities {
			id := rec.Activities[i].ID
			for id == "" || seen[id] {
				id = newID()
			}
			if id != rec.Activities[i].ID {
				rec.Activities[i].ID = id
				replaced++
			}
			seen[id] = true
		}
		days[key] = rec
	}
	return replaced
}

// SetMood sets or clears (empty mood) the mood of a day.
func SetMood(days model.Days, dateKey string, mood model.Mood) (model.Days, error) {
	if _, err := ParseDateKey(dateKey); err != nil {
		return days, err
	}
	if !mood.Valid() {
		return days, fmt.Errorf("%w: %q", ErrInvalidMood, mood)
	}
	out := days.Clone()
	rec := Day(days, dateKey)
	rec.Mood = mood
	out[dateKey] = rec
	return out, nil
}

// Day returns the record for key, or an empty record if none exists yet.
func Day(days model.Days, key string) model.DayRecord {
	if rec, ok := days[key]; ok {
		return rec
	}
	return model.DayRecord{Date: key, Activities: []model.Activity{}}
}

// Range returns the records whose keys fall within [fromKey, toKey].
func Range(days model.Days, fromKey, toKey string) model.Days {
	out := make(model.Days)
	for k, v := range days {
		if k >= fromKey && k <= toKey {
			out[k] = v
		}
	}
	return out
}

// Sorted returns the activities of a day in display order: all-day items
// first, then by time. The input slice is not modified.
func Sorted(acts []model.Activity) []model.Activity {
	out := make([]model.Activity, len(acts))
	copy(out, acts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsAllDay != out[j].IsAllDay {
			return out[i].IsAllDay
		}
		if out[i].IsAllDay {
			return false
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// Count returns the total number of activities in the store.
func Count(days model.Days) int {
	n := 0
	for _, rec := range days {
		n += len(rec.Activities)
	}
	return n
}

func findActivity(days model.Days, dateKey, id string) (model.Activity, bool) {
	rec, ok := days[dateKey]
	if !ok {
		return model.Activity{}, false
	}
	for _, a := range rec.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return model.Activity{}, false
}

func countSeries(days model.Days, seriesID string) int {
	n := 0
	for _, rec := range days {
		for _, a := range rec.Activities {
			if a.SeriesID == seriesID {
				n++
			}
		}
	}
	return n
}

// appendActivity returns rec with a appended to a fresh activities slice.
func appendActivity(rec model.DayRecord, a model.Activity) model.DayRecord {
	acts := make([]model.Activity, 0, len(rec.Activities)+1)
	acts = append(acts, rec.Activities...)
	rec.Activities = append(acts, a)
	return rec
}

// withoutID drops the first activity with id.
func withoutID(acts []model.Activity, id string) ([]model.Activity, int) {
	kept := make([]model.Activity, 0, len(acts))
	removed := 0
	for _, a := range acts {
		if removed == 0 && a.ID == id {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}
