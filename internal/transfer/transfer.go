// Package transfer implements JSON export and import of the activity store.
//
// The export document is the store itself: a JSON object keyed by
// yyyy-MM-dd, each value a day record. Import merges at the date-key level,
// so an imported day replaces the existing day with the same key wholesale
// and days absent from the file are left alone.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

var ErrMalformed = errors.New("invalid file format")

// Filename is the suggested export filename for the given day.
func Filename(now time.Time) string {
	return "school-schedule-" + now.Format(planner.DateKeyLayout) + ".json"
}

// Export serialises the whole store. A nil store exports as {}.
func Export(days model.Days) ([]byte, error) {
	if days == nil {
		days = model.Days{}
	}
	data, err := json.MarshalIndent(days, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("transfer: marshal: %w", err)
	}
	return data, nil
}

// Parse validates an import document and returns its day records. Any
// failure wraps ErrMalformed. Activities with a missing or repeated id get
// a fresh one.
func Parse(data []byte) (model.Days, error) {
	out, err := parse(data)
	if err != nil {
		return nil, err
	}
	planner.UniqueIDs(out, nil, planner.NewID)
	return out, nil
}

func parse(data []byte) (model.Days, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: top level must be an object", ErrMalformed)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make(model.Days, len(raw))
	for _, key := range sortedKeys(raw) {
		if _, err := planner.ParseDateKey(key); err != nil {
			return nil, fmt.Errorf("%w: key %q is not a yyyy-MM-dd date", ErrMalformed, key)
		}
		body := bytes.TrimSpace(raw[key])
		if len(body) == 0 || body[0] != '{' {
			return nil, fmt.Errorf("%w: day %s must be an object", ErrMalformed, key)
		}

		var rec model.DayRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("%w: day %s: %v", ErrMalformed, key, err)
		}
		if rec.Date == "" {
			rec.Date = key
		}
		if rec.Date != key {
			return nil, fmt.Errorf("%w: day %s carries date %q", ErrMalformed, key, rec.Date)
		}
		if !rec.Mood.Valid() {
			return nil, fmt.Errorf("%w: day %s has unknown mood %q", ErrMalformed, key, rec.Mood)
		}
		if rec.Activities == nil {
			rec.Activities = []model.Activity{}
		}
		out[key] = rec
	}
	return out, nil
}

// Merge overlays imported onto days. Neither input is modified.
func Merge(days, imported model.Days) model.Days {
	out := days.Clone()
	if out == nil {
		out = model.Days{}
	}
	for k, v := range imported {
		out[k] = v
	}
	return out
}

// Import parses data and merges it into days. Imported ids that clash
// with activities kept from days are replaced. On error days is returned
// unchanged.
func Import(days model.Days, data []byte) (model.Days, model.Days, error) {
	imported, err := parse(data)
	if err != nil {
		return days, nil, err
	}
	taken := make(map[string]bool)
	for key, rec := range days {
		if _, replaced := imported[key]; replaced {
			continue
		}
		for _, a := range rec.Activities {
			taken[a.ID] = true
		}
	}
	planner.UniqueIDs(imported, taken, planner.NewID)
	return Merge(days, imported), imported, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
