package planner

import (
	"fmt"

	"schoolplanner/internal/model"
)

// Modifiers is the keyboard modifier state observed at drop time.
type Modifiers struct {
	Alt  bool `json:"altKey"`
	Ctrl bool `json:"ctrlKey"`
	Meta bool `json:"metaKey"`
}

// Copy reports whether the drop should copy instead of move.
func (m Modifiers) Copy() bool {
	return m.Alt || m.Ctrl || m.Meta
}

// Drag is the state captured at drag start: which activity, from where.
type Drag struct {
	ActivityID string `json:"activityId"`
	From       string `json:"from"`
}

// StartDrag captures a drag of an existing activity.
func StartDrag(days model.Days, fromKey, activityID string) (Drag, error) {
	if _, ok := findActivity(days, fromKey, activityID); !ok {
		return Drag{}, fmt.Errorf("%w: %s on %s", ErrActivityNotFound, activityID, fromKey)
	}
	return Drag{ActivityID: activityID, From: fromKey}, nil
}

// Drop completes the drag onto toKey.
func (d Drag) Drop(days model.Days, toKey string, mods Modifiers, opts Options) (model.Days, model.Activity, error) {
	return Relocate(days, d.From, toKey, d.ActivityID, mods.Copy(), opts)
}
