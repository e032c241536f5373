package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occurrence-engine/config"
)

func TestLoad_CreatesDefaultsOnFirstRun(t *testing.T) {
	// GIVEN: no config file yet
	path := filepath.Join(t.TempDir(), "nested", "occurrences.yaml")

	// WHEN: loading
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: defaults are returned and written with 0600
	assert.Equal(t, config.DefaultConfig(), cfg)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occurrences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: ':memory:'\nlog_level: DEBUG\nmax_range_days: -5\ndefault_calendar: us-federal\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.True(t, cfg.Debug())
	assert.Equal(t, config.DefaultConfig().MaxRangeDays, cfg.MaxRangeDays)
	assert.Equal(t, config.DefaultConfig().Listen, cfg.Listen)
	assert.Equal(t, "us-federal", cfg.DefaultCalendar)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err = config.Load(path)
	assert.Error(t, err)
}

func TestNormalize_UnknownLevel(t *testing.T) {
	cfg := &config.Config{LogLevel: "verbose"}
	cfg.Normalize()
	assert.Equal(t, config.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Debug())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occurrences.yaml")
	cfg := config.DefaultConfig()
	cfg.Listen = ":9090"
	cfg.AllowedOrigins = []string{"https://example.com"}

	require.NoError(t, config.Save(path, cfg))
	back, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
