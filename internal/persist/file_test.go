package persist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolplanner/internal/config"
	"schoolplanner/internal/model"
	"schoolplanner/internal/persist"
)

func sampleDays() model.Days {
	return model.Days{
		"2024-03-04": {
			Date: "2024-03-04",
			Mood: model.MoodHappy,
			Activities: []model.Activity{
				{ID: "a1", SeriesID: "s1", Title: "Math", Time: "09:00", Icon: "🧮", Color: "bg-blue-200"},
				{ID: "a2", Title: "Lunch", Time: "12:00", Icon: "🍱", Color: "bg-rose-200", Completed: true},
			},
		},
	}
}

func TestFileBackendMissingFileIsEmpty(t *testing.T) {
	b := persist.NewFileBackend(filepath.Join(t.TempDir(), "planner.json"), "")
	days, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.json")
	b := persist.NewFileBackend(path, config.StorageKey)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, sampleDays()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"school_planner_v5_days"`)

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleDays(), got)
}

func TestFileBackendOtherKeyIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	ctx := context.Background()
	require.NoError(t, persist.NewFileBackend(path, "school_planner_v4_days").Save(ctx, sampleDays()))

	got, err := persist.NewFileBackend(path, config.StorageKey).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileBackendNormalisesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	doc := `{"school_planner_v5_days":{"2024-03-05":{"activities":null}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := persist.NewFileBackend(path, "").Load(context.Background())
	require.NoError(t, err)
	rec := got["2024-03-05"]
	assert.Equal(t, "2024-03-05", rec.Date)
	assert.NotNil(t, rec.Activities)
	assert.Empty(t, rec.Activities)
}

func TestFileBackendCorruptIsQuarantined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := persist.NewFileBackend(path, "").Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")

	_, err = os.Stat(path + ".corrupt")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileBackendRepairsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	doc := `{"school_planner_v5_days":{
		"2024-03-04":{"date":"2024-03-04","activities":[{"id":"x","title":"A"},{"id":"x","title":"B"}]},
		"2024-03-05":{"date":"2024-03-05","activities":[{"id":"","title":"C"}]}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := persist.NewFileBackend(path, "").Load(context.Background())
	require.NoError(t, err)

	a := got["2024-03-04"].Activities
	require.Len(t, a, 2)
	assert.Equal(t, "x", a[0].ID)
	assert.NotEqual(t, "x", a[1].ID)
	assert.NotEmpty(t, got["2024-03-05"].Activities[0].ID)
}

func TestFileBackendCorruptReportsFailedMove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	// A non-empty directory in the way makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(path+".corrupt", "keep"), 0o700))

	_, err := persist.NewFileBackend(path, "").Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not move it")
	assert.NotContains(t, err.Error(), "backed up")

	_, err = os.Stat(path)
	assert.NoError(t, err, "corrupt file stays in place")
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := persist.Open(ctx, config.StorageConfig{Backend: "file", Path: filepath.Join(dir, "p.json")})
	require.NoError(t, err)
	assert.IsType(t, &persist.FileBackend{}, b)

	_, err = persist.Open(ctx, config.StorageConfig{Backend: "redis"})
	assert.Error(t, err)
}
