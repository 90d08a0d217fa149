package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 1472, cfg.MapWidthPx)
	assert.Equal(t, 1104, cfg.MapHeightPx)
	assert.Equal(t, 32, cfg.CellSize)
	assert.Equal(t, 30, cfg.MovementTimeoutSec)
	assert.Equal(t, 10, cfg.SweepIntervalSec)
	assert.Len(t, cfg.Roster, 5)
	assert.NotEmpty(t, cfg.Obstacles)
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen: ":9000"
movement_timeout_sec: 60
cell_size: 16
roster:
  - id: hero
    name: Hero
    kind: player
    x: 10
    y: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 60, cfg.MovementTimeoutSec)
	assert.Equal(t, 16, cfg.CellSize)
	require.Len(t, cfg.Roster, 1)
	assert.Equal(t, "hero", cfg.Roster[0].ID)
	// 未覆盖的字段保持默认
	assert.Equal(t, 1472, cfg.MapWidthPx)
	assert.Equal(t, 10, cfg.SweepIntervalSec)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"bad_yaml":     "listen: [unclosed",
		"zero_cell":    "cell_size: 0",
		"neg_timeout":  "movement_timeout_sec: -5",
		"zero_sweep":   "sweep_interval_sec: 0",
		"dup_roster":   "roster:\n  - id: a\n    name: A\n  - id: a\n    name: B",
		"empty_rostid": "roster:\n  - name: anonymous",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
