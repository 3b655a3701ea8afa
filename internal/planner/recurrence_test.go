package planner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

func mustDate(t *testing.T, key string) time.Time {
	t.Helper()
	d, err := planner.ParseDateKey(key)
	require.NoError(t, err)
	return d
}

func TestExpandNoneOnlyAnchor(t *testing.T) {
	anchor := mustDate(t, "2024-03-04")
	dates, err := planner.Expand(anchor, planner.Rule{Mode: model.RepeatNone}, 90)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{anchor}, dates)
}

func TestExpandDailySkipsWeekends(t *testing.T) {
	anchor := mustDate(t, "2024-03-04") // Monday
	dates, err := planner.Expand(anchor, planner.Rule{Mode: model.RepeatDaily}, 90)
	require.NoError(t, err)

	require.Len(t, dates, 65)
	assert.Equal(t, anchor, dates[0])
	limit := anchor.AddDate(0, 0, 89)
	for i, d := range dates {
		assert.False(t, planner.IsWeekend(d), "date %s is a weekend", planner.DateKey(d))
		assert.False(t, d.After(limit), "date %s past horizon", planner.DateKey(d))
		if i > 0 {
			assert.True(t, d.After(dates[i-1]), "dates out of order at %d", i)
		}
	}
}

func TestExpandWeeklyMondays(t *testing.T) {
	anchor := mustDate(t, "2024-03-04")
	dates, err := planner.Expand(anchor, planner.Rule{Mode: model.RepeatWeekly}, 90)
	require.NoError(t, err)

	require.Len(t, dates, 13)
	for i, d := range dates {
		assert.Equal(t, time.Monday, d.Weekday())
		assert.Equal(t, anchor.AddDate(0, 0, 7*i), d)
	}
	assert.Equal(t, "2024-05-27", planner.DateKey(dates[len(dates)-1]))
}

func TestExpandWeeklyFromWeekendKeepsOnlyAnchor(t *testing.T) {
	anchor := mustDate(t, "2024-03-02") // Saturday
	dates, err := planner.Expand(anchor, planner.Rule{Mode: model.RepeatWeekly}, 90)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{anchor}, dates)
}

func TestExpandCustomDays(t *testing.T) {
	anchor := mustDate(t, "2024-03-01") // Friday, not in the set
	set := []time.Weekday{time.Monday, time.Wednesday, time.Saturday}
	dates, err := planner.Expand(anchor, planner.Rule{Mode: model.RepeatCustom, CustomDays: set}, 90)
	require.NoError(t, err)

	require.Greater(t, len(dates), 1)
	assert.Equal(t, anchor, dates[0])
	for _, d := range dates[1:] {
		wd := d.Weekday()
		assert.True(t, wd == time.Monday || wd == time.Wednesday, "unexpected weekday %s", wd)
	}
}

func TestExpandCustomEmptySetDegenerates(t *testing.T) {
	anchor := mustDate(t, "2024-03-04")
	dates, err := planner.Expand(anchor, planner.Rule{Mode: model.RepeatCustom}, 90)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{anchor}, dates)
}

func TestExpandRejectsUnknownMode(t *testing.T) {
	_, err := planner.Expand(mustDate(t, "2024-03-04"), planner.Rule{Mode: "monthly"}, 90)
	assert.ErrorIs(t, err, planner.ErrInvalidRepeat)
}

func TestParseDateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"2024-03-01", true},
		{"2024-3-1", false},
		{"2024-02-30", false},
		{"", false},
		{"march", false},
	}
	for _, tt := range tests {
		_, err := planner.ParseDateKey(tt.key)
		if tt.ok {
			assert.NoError(t, err, tt.key)
		} else {
			assert.ErrorIs(t, err, planner.ErrInvalidDateKey, tt.key)
		}
	}
}
