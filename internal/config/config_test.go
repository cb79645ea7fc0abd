package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 3.0, cfg.Schedule.DefaultYield)
	assert.Equal(t, "08:00", cfg.Schedule.WorkdayStart)
	assert.Equal(t, "17:00", cfg.Schedule.WorkdayEnd)
	assert.Len(t, cfg.Schedule.WorkDays, 5)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 9000
database:
  driver: postgres
  dsn: host=localhost dbname=creamery sslmode=disable
scheduling:
  default_yield: 4.5
  prep_duration_minutes: 20
  cleaning_duration_minutes: 25
  workday_start: "07:30"
  workday_end: "15:00"
  work_days: [monday, wednesday, friday]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 4.5, cfg.Schedule.DefaultYield)
	assert.Equal(t, 20, cfg.Schedule.PrepDurationMinutes)
	assert.Equal(t, []string{"monday", "wednesday", "friday"}, cfg.Schedule.WorkDays)
	// untouched sections keep their defaults
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CREAMERY_DATABASE_DSN", "file::memory:")
	t.Setenv("CREAMERY_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 7070, cfg.Port)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduling:\n  work_days: [someday]\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("CREAMERY_DATABASE_DRIVER", "oracle")

	_, err := Load("")
	assert.Error(t, err)
}
