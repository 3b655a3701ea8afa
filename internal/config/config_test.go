package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.HorizonDays)
	assert.Equal(t, 10, cfg.Print.PageSize)
	assert.Equal(t, StorageKey, cfg.Storage.Key)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\nstorage:\n  backend: sqlite\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "./data/planner.db", cfg.Storage.Path)
	assert.Equal(t, 90, cfg.HorizonDays)
}

func TestLoadUnknownBackendFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: redis\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCHOOLPLANNER_LISTEN", "0.0.0.0:8181")
	t.Setenv("SCHOOLPLANNER_PAGE_SIZE", "5")
	t.Setenv("SCHOOLPLANNER_AUTH_USERNAME", "classroom")
	t.Setenv("SCHOOLPLANNER_AUTH_PASSWORD", "apple")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8181", cfg.Listen)
	assert.Equal(t, 5, cfg.Print.PageSize)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "classroom", cfg.BasicAuth.Username)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestWarningsFlagCustomHorizon(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings())

	t.Setenv("SCHOOLPLANNER_HORIZON_DAYS", "30")
	cfg, err = Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.HorizonDays)
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "horizon_days is 30")
}
