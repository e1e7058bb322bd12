package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "litestat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
facilities: [P7, P8]
remote:
  region: ap-northeast-2
  history_table: glass_history
  inspection_table: defect_inspection
lake:
  root_dir: /data/lake
store:
  driver: sqlite
  dsn: /data/litestat.db
schedule:
  at: "03:30"
log_level: debug
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"P7", "P8"}, cfg.Facilities)
	assert.Equal(t, "glass_history", cfg.Remote.HistoryTable)
	assert.Equal(t, "defect_inspection", cfg.Remote.InspectionTable)
	assert.Equal(t, "/data/lake", cfg.Lake.RootDir)
	assert.Equal(t, "03:30", cfg.Schedule.At)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	// Defaults survive a partial file.
	assert.True(t, cfg.Lake.ProductFilter)
	assert.InDelta(t, 0.01, cfg.Lake.FilterFPRate, 1e-9)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LITESTAT_REMOTE_HISTORY_TABLE", "glass_history_v2")
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "glass_history_v2", cfg.Remote.HistoryTable)
}

func TestLoadMissingTableMappingIsFatal(t *testing.T) {
	_, err := Load(writeConfig(t, `
facilities: [P7]
remote:
  inspection_table: defect_inspection
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.history_table")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Facilities: []string{"P7"},
			Remote:     RemoteConfig{HistoryTable: "h", InspectionTable: "i"},
			Lake:       LakeConfig{FilterFPRate: 0.01},
			Schedule:   ScheduleConfig{At: "02:00"},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Facilities = []string{"p7 bad"}
	assert.Error(t, c.Validate(), "facility codes are restricted to path-safe characters")

	c = base()
	c.Schedule.At = "25:99"
	assert.Error(t, c.Validate())

	c = base()
	c.Lake.FilterFPRate = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Facilities = nil
	assert.Error(t, c.Validate())
}
