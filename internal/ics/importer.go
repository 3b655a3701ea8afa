package ics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

// Imported activities use a fixed calendar icon and color.
const (
	ImportIcon  = "📅"
	ImportColor = "bg-sky-200"
)

// maxSpanDays caps how many days one all-day occurrence may fill.
const maxSpanDays = 31

// Importer turns an external school calendar into planner activities.
type Importer struct {
	Fetcher  *Fetcher
	NewID    planner.IDFunc
	Location *time.Location
}

// Read returns the calendar body from an http(s) URL or a local file.
func (im *Importer) Read(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		f := im.Fetcher
		if f == nil {
			f = NewFetcher("")
		}
		res, err := f.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		return res.Body, nil
	}
	return os.ReadFile(src)
}

// Batch converts the calendar body into activities keyed by date, covering
// [from, from+horizonDays). Weekend dates are skipped. When a UID lands on
// more than one date its activities share a fresh series id; a one-off
// event gets none.
func (im *Importer) Batch(body []byte, from time.Time, horizonDays int) (map[string][]model.Activity, error) {
	events, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}
	if horizonDays <= 0 {
		horizonDays = planner.DefaultHorizonDays
	}
	loc := im.Location
	if loc == nil {
		loc = time.Local
	}
	newID := im.NewID
	if newID == nil {
		newID = planner.NewID
	}

	first := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	last := first.AddDate(0, 0, horizonDays)
	occs, err := Expand(events, ExpandConfig{Location: loc, From: first, To: last.Add(-time.Nanosecond)})
	if err != nil {
		return nil, err
	}

	firstKey := planner.DateKey(first)
	lastKey := planner.DateKey(last.AddDate(0, 0, -1))
	type placed struct {
		occ  Occurrence
		days []time.Time
	}
	var kept []placed
	perUID := make(map[string]int)
	for _, occ := range occs {
		var days []time.Time
		for _, d := range occurrenceDates(occ) {
			key := planner.DateKey(d)
			if planner.IsWeekend(d) || key < firstKey || key > lastKey {
				continue
			}
			days = append(days, d)
		}
		if len(days) == 0 {
			continue
		}
		kept = append(kept, placed{occ: occ, days: days})
		perUID[occ.UID] += len(days)
	}

	series := make(map[string]string)
	batch := make(map[string][]model.Activity)
	for _, p := range kept {
		occ := p.occ
		sid := series[occ.UID]
		if sid == "" && perUID[occ.UID] > 1 {
			sid = newID()
			series[occ.UID] = sid
		}
		for _, d := range p.days {
			a := model.Activity{
				ID:       newID(),
				SeriesID: sid,
				Title:    title(occ),
				Time:     planner.DefaultTime,
				IsAllDay: occ.AllDay,
				Icon:     ImportIcon,
				Color:    ImportColor,
			}
			if !occ.AllDay {
				a.Time = occ.Start.Format("15:04")
			}
			key := planner.DateKey(d)
			batch[key] = append(batch[key], a)
		}
	}
	return batch, nil
}

// occurrenceDates lists the calendar dates an occurrence covers: the start
// date for timed events, every date of [start, end) for all-day ones.
func occurrenceDates(occ Occurrence) []time.Time {
	start := planner.DateOf(occ.Start)
	if !occ.AllDay {
		return []time.Time{start}
	}
	end := planner.DateOf(occ.End)
	out := []time.Time{start}
	for d := start.AddDate(0, 0, 1); d.Before(end) && len(out) < maxSpanDays; d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func title(occ Occurrence) string {
	s := strings.TrimSpace(occ.Summary)
	if s == "" {
		s = "Calendar event"
	}
	return s
}
