package planner_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

// seqIDs returns an IDFunc yielding id-1, id-2, ...
func seqIDs() planner.IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testOpts() planner.Options {
	return planner.Options{NewID: seqIDs(), HorizonDays: planner.DefaultHorizonDays}
}

func addOne(t *testing.T, days model.Days, key, title string, opts planner.Options) (model.Days, string) {
	t.Helper()
	out, res, err := planner.Add(days, key, planner.AddRequest{Title: title, Time: "10:00"}, opts)
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)
	return out, res.IDs[0]
}

func TestAddWeeklySeries(t *testing.T) {
	opts := testOpts()
	days, res, err := planner.Add(model.Days{}, "2024-03-04", planner.AddRequest{
		Title:  "Math Quiz",
		Icon:   "🧮",
		Color:  "bg-sky-200",
		Repeat: model.RepeatWeekly,
	}, opts)
	require.NoError(t, err)

	require.NotEmpty(t, res.SeriesID)
	assert.Len(t, res.Dates, 13)
	assert.Equal(t, "2024-03-04", res.Dates[0])

	seen := map[string]bool{}
	for _, key := range res.Dates {
		rec, ok := days[key]
		require.True(t, ok, key)
		assert.Equal(t, key, rec.Date)
		require.Len(t, rec.Activities, 1)
		a := rec.Activities[0]
		assert.Equal(t, res.SeriesID, a.SeriesID)
		assert.Equal(t, planner.DefaultTime, a.Time)
		assert.False(t, a.Completed)
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestAddDoesNotMutateInput(t *testing.T) {
	opts := testOpts()
	base, _ := addOne(t, model.Days{}, "2024-03-04", "Reading", opts)
	before := len(base["2024-03-04"].Activities)

	_, _, err := planner.Add(base, "2024-03-04", planner.AddRequest{Title: "Lunch"}, opts)
	require.NoError(t, err)
	assert.Len(t, base["2024-03-04"].Activities, before)
}

func TestAddNoneHasNoSeries(t *testing.T) {
	days, res, err := planner.Add(nil, "2024-03-04", planner.AddRequest{Title: "QOTD", Repeat: model.RepeatNone}, testOpts())
	require.NoError(t, err)
	assert.Empty(t, res.SeriesID)
	assert.Empty(t, days["2024-03-04"].Activities[0].SeriesID)
}

func TestAddValidation(t *testing.T) {
	opts := testOpts()
	_, _, err := planner.Add(nil, "2024-03-04", planner.AddRequest{Title: "  "}, opts)
	assert.ErrorIs(t, err, planner.ErrEmptyTitle)

	_, _, err = planner.Add(nil, "2024-03-04", planner.AddRequest{Title: "Math", Time: "25:99"}, opts)
	assert.ErrorIs(t, err, planner.ErrInvalidTime)

	_, _, err = planner.Add(nil, "03/04/2024", planner.AddRequest{Title: "Math"}, opts)
	assert.ErrorIs(t, err, planner.ErrInvalidDateKey)
}

func TestRemoveSeriesAndSingle(t *testing.T) {
	opts := testOpts()
	days, res, err := planner.Add(model.Days{}, "2024-03-04", planner.AddRequest{Title: "OT", Repeat: model.RepeatWeekly}, opts)
	require.NoError(t, err)
	days, otherID := addOne(t, days, "2024-03-11", "Lunch", opts)

	plan, ok := planner.PlanRemoval(days, "2024-03-11", res.IDs[1])
	require.True(t, ok)
	assert.True(t, plan.NeedsScope)
	assert.Equal(t, 13, plan.SeriesCount)

	single, n := planner.Remove(days, plan, planner.ScopeSingle)
	assert.Equal(t, 1, n)
	assert.Equal(t, planner.Count(days)-1, planner.Count(single))
	assert.Len(t, single["2024-03-04"].Activities, 1, "other series members untouched")
	require.Len(t, single["2024-03-11"].Activities, 1)
	assert.Equal(t, otherID, single["2024-03-11"].Activities[0].ID)

	series, n := planner.Remove(days, plan, planner.ScopeSeries)
	assert.Equal(t, 13, n)
	for key, rec := range series {
		for _, a := range rec.Activities {
			assert.NotEqual(t, res.SeriesID, a.SeriesID, "series member left on %s", key)
		}
	}
	assert.Len(t, series["2024-03-11"].Activities, 1)
}

func TestRemoveUnknownScopeFallsBackToSingle(t *testing.T) {
	opts := testOpts()
	days, res, err := planner.Add(model.Days{}, "2024-03-04", planner.AddRequest{Title: "SLP", Repeat: model.RepeatDaily}, opts)
	require.NoError(t, err)

	plan, ok := planner.PlanRemoval(days, "2024-03-04", res.IDs[0])
	require.True(t, ok)
	out, n := planner.Remove(days, plan, "")
	assert.Equal(t, 1, n)
	assert.Equal(t, len(res.IDs)-1, planner.Count(out))
}

func TestRemoveMissingIsNoop(t *testing.T) {
	_, ok := planner.PlanRemoval(model.Days{}, "2024-03-04", "nope")
	assert.False(t, ok)

	days := model.Days{}
	out, n := planner.Remove(days, planner.RemovalPlan{DateKey: "2024-03-04", ActivityID: "nope"}, planner.ScopeSingle)
	assert.Zero(t, n)
	assert.Empty(t, out)
}

func TestRemoveSingleWithDuplicateIDsDropsOne(t *testing.T) {
	days := model.Days{"2024-03-04": {Date: "2024-03-04", Activities: []model.Activity{
		{ID: "x", Title: "First"},
		{ID: "x", Title: "Second"},
	}}}
	out, n := planner.Remove(days, planner.RemovalPlan{DateKey: "2024-03-04", ActivityID: "x"}, planner.ScopeSingle)
	assert.Equal(t, 1, n)
	require.Len(t, out["2024-03-04"].Activities, 1)
	assert.Equal(t, "Second", out["2024-03-04"].Activities[0].Title)
}

func TestUniqueIDs(t *testing.T) {
	days := model.Days{
		"2024-03-04": {Date: "2024-03-04", Activities: []model.Activity{
			{ID: "x", Title: "A"}, {ID: "x", Title: "B"}, {Title: "C"},
		}},
		"2024-03-05": {Date: "2024-03-05", Activities: []model.Activity{
			{ID: "x", Title: "D"}, {ID: "taken", Title: "E"}, {ID: "ok", Title: "F"},
		}},
	}
	n := planner.UniqueIDs(days, map[string]bool{"taken": true}, seqIDs())
	assert.Equal(t, 4, n)

	seen := map[string]bool{}
	for _, rec := range days {
		for _, a := range rec.Activities {
			assert.NotEmpty(t, a.ID)
			assert.False(t, seen[a.ID], a.ID)
			assert.NotEqual(t, "taken", a.ID)
			seen[a.ID] = true
		}
	}
	assert.Equal(t, "x", days["2024-03-04"].Activities[0].ID)
	assert.Equal(t, "ok", days["2024-03-05"].Activities[2].ID)
}

func TestToggle(t *testing.T) {
	opts := testOpts()
	days, id := addOne(t, model.Days{}, "2024-03-04", "Reading", opts)

	toggled, ok := planner.Toggle(days, "2024-03-04", id)
	require.True(t, ok)
	assert.True(t, toggled["2024-03-04"].Activities[0].Completed)
	assert.False(t, days["2024-03-04"].Activities[0].Completed, "input must not change")

	back, ok := planner.Toggle(toggled, "2024-03-04", id)
	require.True(t, ok)
	assert.False(t, back["2024-03-04"].Activities[0].Completed)

	_, ok = planner.Toggle(days, "2024-03-05", id)
	assert.False(t, ok)
	_, ok = planner.Toggle(days, "2024-03-04", "missing")
	assert.False(t, ok)
}

func TestCloneDetachesSeries(t *testing.T) {
	opts := testOpts()
	days, res, err := planner.Add(model.Days{}, "2024-03-04", planner.AddRequest{Title: "Theater", Repeat: model.RepeatWeekly}, opts)
	require.NoError(t, err)
	days, _ = planner.Toggle(days, "2024-03-04", res.IDs[0])

	out, clone, err := planner.Clone(days, "2024-03-04", res.IDs[0], opts)
	require.NoError(t, err)
	assert.NotEqual(t, res.IDs[0], clone.ID)
	assert.Empty(t, clone.SeriesID)
	assert.False(t, clone.Completed)
	assert.Equal(t, "Theater", clone.Title)
	assert.Len(t, out["2024-03-04"].Activities, 2)

	_, _, err = planner.Clone(days, "2024-03-04", "missing", opts)
	assert.ErrorIs(t, err, planner.ErrActivityNotFound)
}

func TestRelocateMoveAndCopy(t *testing.T) {
	opts := testOpts()
	days, res, err := planner.Add(model.Days{}, "2024-03-04", planner.AddRequest{Title: "Biology", Repeat: model.RepeatWeekly}, opts)
	require.NoError(t, err)
	id := res.IDs[0]

	moved, a, err := planner.Relocate(days, "2024-03-04", "2024-03-05", id, false, opts)
	require.NoError(t, err)
	assert.Empty(t, moved["2024-03-04"].Activities)
	require.Len(t, moved["2024-03-05"].Activities, 1)
	assert.NotEqual(t, id, a.ID)
	assert.Equal(t, res.SeriesID, a.SeriesID)

	copied, c, err := planner.Relocate(days, "2024-03-04", "2024-03-05", id, true, opts)
	require.NoError(t, err)
	assert.Len(t, copied["2024-03-04"].Activities, 1)
	assert.Len(t, copied["2024-03-05"].Activities, 1)
	assert.Empty(t, c.SeriesID)

	same, _, err := planner.Relocate(days, "2024-03-04", "2024-03-04", id, false, opts)
	require.NoError(t, err)
	assert.Len(t, same["2024-03-04"].Activities, 2)

	_, _, err = planner.Relocate(days, "2024-03-04", "2024-03-05", "missing", false, opts)
	assert.ErrorIs(t, err, planner.ErrActivityNotFound)
}

func TestDragDropUsesModifiers(t *testing.T) {
	opts := testOpts()
	days, id := addOne(t, model.Days{}, "2024-03-04", "Advisory", opts)

	drag, err := planner.StartDrag(days, "2024-03-04", id)
	require.NoError(t, err)

	out, _, err := drag.Drop(days, "2024-03-06", planner.Modifiers{Alt: true}, opts)
	require.NoError(t, err)
	assert.Len(t, out["2024-03-04"].Activities, 1)
	assert.Len(t, out["2024-03-06"].Activities, 1)

	out, _, err = drag.Drop(days, "2024-03-06", planner.Modifiers{}, opts)
	require.NoError(t, err)
	assert.Empty(t, out["2024-03-04"].Activities)

	_, err = planner.StartDrag(days, "2024-03-05", id)
	assert.ErrorIs(t, err, planner.ErrActivityNotFound)
}

func TestSetMood(t *testing.T) {
	days, err := planner.SetMood(model.Days{}, "2024-03-04", model.MoodHappy)
	require.NoError(t, err)
	assert.Equal(t, model.MoodHappy, days["2024-03-04"].Mood)
	assert.Equal(t, "2024-03-04", days["2024-03-04"].Date)
	assert.NotNil(t, days["2024-03-04"].Activities)

	_, err = planner.SetMood(days, "2024-03-04", "grumpy")
	assert.ErrorIs(t, err, planner.ErrInvalidMood)
}

func TestSortedAllDayFirst(t *testing.T) {
	acts := []model.Activity{
		{ID: "a", Time: "13:00"},
		{ID: "b", Time: "08:30"},
		{ID: "c", Time: "07:00", IsAllDay: true},
	}
	got := planner.Sorted(acts)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.Equal(t, "a", acts[0].ID)
}

func TestRange(t *testing.T) {
	opts := testOpts()
	days, _ := addOne(t, model.Days{}, "2024-03-01", "A", opts)
	days, _ = addOne(t, days, "2024-03-15", "B", opts)
	days, _ = addOne(t, days, "2024-04-01", "C", opts)

	got := planner.Range(days, "2024-03-01", "2024-03-31")
	assert.Len(t, got, 2)
	_, ok := got["2024-04-01"]
	assert.False(t, ok)
}

func TestDayDefaultsEmpty(t *testing.T) {
	rec := planner.Day(model.Days{}, "2024-03-04")
	assert.Equal(t, "2024-03-04", rec.Date)
	assert.NotNil(t, rec.Activities)
	assert.Empty(t, rec.Activities)
}

func TestInsertKeepsIDs(t *testing.T) {
	days, _ := addOne(t, model.Days{}, "2024-03-04", "Math", testOpts())
	out, err := planner.Insert(days, map[string][]model.Activity{
		"2024-03-04": {{ID: "ext-1", SeriesID: "uid-1", Title: "Assembly", IsAllDay: true}},
		"2024-03-05": {{ID: "ext-2", SeriesID: "uid-1", Title: "Assembly", IsAllDay: true}},
	})
	require.NoError(t, err)
	assert.Len(t, out["2024-03-04"].Activities, 2)
	assert.Equal(t, "ext-2", out["2024-03-05"].Activities[0].ID)
	assert.Len(t, days["2024-03-04"].Activities, 1)

	_, err = planner.Insert(days, map[string][]model.Activity{"tomorrow": {{ID: "x"}}})
	assert.ErrorIs(t, err, planner.ErrInvalidDateKey)
}
