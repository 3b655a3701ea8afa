// Package service owns the live activity store. Every mutation runs under
// one lock against the current immutable value, swaps in the result and
// hands a snapshot to the saver.
package service

import (
	"errors"
	"fmt"
	"sync"

	"schoolplanner/internal/log"
	"schoolplanner/internal/metrics"
	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/transfer"
)

// ErrScopeRequired is returned by Remove when the activity belongs to a
// series and no scope was chosen.
var ErrScopeRequired = errors.New("activity belongs to a series: choose single or series")

// Saver accepts store snapshots for persisting. persist.AsyncSaver
// satisfies it.
type Saver interface {
	Submit(days model.Days)
}

type Planner struct {
	mu   sync.RWMutex
	days model.Days

	opts    planner.Options
	saver   Saver
	metrics *metrics.Metrics
}

// New wraps an initially loaded store. saver and m may be nil.
func New(initial model.Days, opts planner.Options, saver Saver, m *metrics.Metrics) *Planner {
	if initial == nil {
		initial = model.Days{}
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = planner.DefaultHorizonDays
	}
	m.SetActivities(planner.Count(initial))
	return &Planner{days: initial, opts: opts, saver: saver, metrics: m}
}

// commit must be called with mu held.
func (p *Planner) commit(op string, next model.Days) {
	p.days = next
	n := planner.Count(next)
	p.metrics.Mutation(op, n)
	if p.saver != nil {
		p.saver.Submit(next)
	}
	log.Debug("store updated", "op", op, "days", len(next), "activities", n)
}

// Snapshot returns the current store value. Callers must not modify it.
func (p *Planner) Snapshot() model.Days {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.days
}

// Day returns one day with its activities in display order.
func (p *Planner) Day(key string) (model.DayRecord, error) {
	if _, err := planner.ParseDateKey(key); err != nil {
		return model.DayRecord{}, err
	}
	rec := planner.Day(p.Snapshot(), key)
	rec.Activities = planner.Sorted(rec.Activities)
	return rec, nil
}

// Range returns the stored days within [from, to].
func (p *Planner) Range(from, to string) (model.Days, error) {
	if _, err := planner.ParseDateKey(from); err != nil {
		return nil, err
	}
	if _, err := planner.ParseDateKey(to); err != nil {
		return nil, err
	}
	return planner.Range(p.Snapshot(), from, to), nil
}

func (p *Planner) Add(anchorKey string, req planner.AddRequest) (planner.AddResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, res, err := planner.Add(p.days, anchorKey, req, p.opts)
	if err != nil {
		return res, err
	}
	p.commit("add", next)
	log.Info("activity added", "title", req.Title, "anchor", anchorKey, "instances", len(res.IDs), "series", res.SeriesID)
	return res, nil
}

// QuickAdd adds a non-repeating preset activity at the default time.
func (p *Planner) QuickAdd(dateKey, label string) (planner.AddResult, error) {
	preset, ok := model.IconByLabel(label)
	if !ok {
		return planner.AddResult{}, fmt.Errorf("unknown preset %q", label)
	}
	return p.Add(dateKey, planner.AddRequest{
		Title:  preset.Label,
		Time:   planner.DefaultTime,
		Icon:   preset.Icon,
		Color:  preset.Color,
		Repeat: model.RepeatNone,
	})
}

// PlanRemoval reports whether removing the activity needs a scope.
func (p *Planner) PlanRemoval(dateKey, activityID string) (planner.RemovalPlan, error) {
	plan, ok := planner.PlanRemoval(p.Snapshot(), dateKey, activityID)
	if !ok {
		return plan, notFound(dateKey, activityID)
	}
	return plan, nil
}

// Remove deletes an activity. A series member with an empty scope yields
// ErrScopeRequired and the plan so the caller can ask; any other
// unrecognised scope removes the single instance.
func (p *Planner) Remove(dateKey, activityID string, scope planner.Scope) (planner.RemovalPlan, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	plan, ok := planner.PlanRemoval(p.days, dateKey, activityID)
	if !ok {
		return plan, 0, notFound(dateKey, activityID)
	}
	if plan.NeedsScope && scope == "" {
		return plan, 0, ErrScopeRequired
	}
	next, removed := planner.Remove(p.days, plan, scope)
	p.commit("remove", next)
	log.Info("activity removed", "date", dateKey, "id", activityID, "scope", scope, "removed", removed)
	return plan, removed, nil
}

func (p *Planner) Toggle(dateKey, activityID string) (model.Activity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, ok := planner.Toggle(p.days, dateKey, activityID)
	if !ok {
		return model.Activity{}, notFound(dateKey, activityID)
	}
	p.commit("toggle", next)
	for _, a := range next[dateKey].Activities {
		if a.ID == activityID {
			return a, nil
		}
	}
	return model.Activity{}, nil
}

func (p *Planner) Clone(dateKey, activityID string) (model.Activity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, a, err := planner.Clone(p.days, dateKey, activityID, p.opts)
	if err != nil {
		return a, err
	}
	p.commit("clone", next)
	return a, nil
}

// Relocate completes a drag of activityID from one day onto another. The
// modifier state decides between copy and move.
func (p *Planner) Relocate(fromKey, toKey, activityID string, mods planner.Modifiers) (model.Activity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	drag, err := planner.StartDrag(p.days, fromKey, activityID)
	if err != nil {
		return model.Activity{}, err
	}
	next, a, err := drag.Drop(p.days, toKey, mods, p.opts)
	if err != nil {
		return a, err
	}
	op := "move"
	if mods.Copy() {
		op = "copy"
	}
	p.commit(op, next)
	log.Info("activity relocated", "op", op, "from", fromKey, "to", toKey, "id", a.ID)
	return a, nil
}

func (p *Planner) SetMood(dateKey string, mood model.Mood) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := planner.SetMood(p.days, dateKey, mood)
	if err != nil {
		return err
	}
	p.commit("mood", next)
	return nil
}

// InsertBatch adds prepared activities, e.g. from a calendar import, and
// returns how many were added.
func (p *Planner) InsertBatch(op string, batch map[string][]model.Activity) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := planner.Insert(p.days, batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, acts := range batch {
		n += len(acts)
	}
	p.commit(op, next)
	return n, nil
}

// Import merges a JSON export into the store and returns the number of
// day records replaced or added. A malformed document leaves the store
// untouched.
func (p *Planner) Import(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, imported, err := transfer.Import(p.days, data)
	if err != nil {
		log.Warn("import rejected", "err", err)
		return 0, err
	}
	p.commit("import", next)
	p.metrics.Imported(len(imported))
	log.Info("schedule imported", "days", len(imported))
	return len(imported), nil
}

// Export serialises the current store.
func (p *Planner) Export() ([]byte, error) {
	return transfer.Export(p.Snapshot())
}

func notFound(dateKey, activityID string) error {
	return fmt.Errorf("%w: %s on %s", planner.ErrActivityNotFound, activityID, dateKey)
}
