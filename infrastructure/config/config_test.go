package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceInterval())
	assert.Equal(t, 200*time.Millisecond, cfg.HoldGap())
	assert.Equal(t, 500*time.Millisecond, cfg.ReleaseGap())
	assert.Equal(t, 500*time.Millisecond, cfg.CoalesceWindow())
}

func TestLoadConfigFromFile_OverlaysDefaults(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, `
environment: production
workspace_path: /data/canvas.db
persistence:
  debounce_ms: 150
router:
  hold_gap_ms: 100
  release_gap_ms: 400
`)

	// Act
	cfg, err := LoadConfigFromFile(path)

	// Assert: file values win, untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "/data/canvas.db", cfg.WorkspacePath)
	assert.Equal(t, 150, cfg.Persistence.DebounceMillis)
	assert.Equal(t, 100, cfg.Router.HoldGapMillis)
	assert.Equal(t, 400, cfg.Router.ReleaseGapMillis)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200, cfg.History.Capacity)
}

func TestLoadConfigFromFile_RejectsReleaseGapBelowHoldGap(t *testing.T) {
	// Arrange: release gap shorter than hold gap makes the state machine
	// unreachable between the gaps
	path := writeConfigFile(t, `
router:
  hold_gap_ms: 400
  release_gap_ms: 100
`)

	// Act
	_, err := LoadConfigFromFile(path)

	// Assert
	assert.Error(t, err)
}

func TestLoadConfigFromFile_RejectsUnknownEnvironment(t *testing.T) {
	path := writeConfigFile(t, `environment: staging`)
	_, err := LoadConfigFromFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFromFile_RejectsUnreadableFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	// Arrange
	t.Setenv("CANVAS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("CANVAS_DEBOUNCE_MS", "75")
	t.Setenv("CANVAS_HISTORY_CAPACITY", "50")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 75, cfg.Persistence.DebounceMillis)
	assert.Equal(t, 50, cfg.History.Capacity)
}

func TestLoadConfig_EnvOverridesBeatFile(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, `
persistence:
  debounce_ms: 150
`)
	t.Setenv("CANVAS_CONFIG", path)
	t.Setenv("CANVAS_DEBOUNCE_MS", "90")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Persistence.DebounceMillis)
}

func TestLoadConfig_InvalidEnvIntFallsBack(t *testing.T) {
	t.Setenv("CANVAS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("CANVAS_DEBOUNCE_MS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Persistence.DebounceMillis)
}

func TestWatcher_ReloadsOnFileChange(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, `
router:
  hold_gap_ms: 200
  release_gap_ms: 500
`)
	initial, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	watcher, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	var reloads atomic.Int32
	watcher.OnReload(func(*Config) { reloads.Add(1) })

	// Act
	require.NoError(t, os.WriteFile(path, []byte(`
router:
  hold_gap_ms: 120
  release_gap_ms: 360
`), 0o644))

	// Assert: the debounced reload lands and exposes the new values
	require.Eventually(t, func() bool {
		return reloads.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 120, watcher.Current().Router.HoldGapMillis)
	assert.Equal(t, 360, watcher.Current().Router.ReleaseGapMillis)
}

func TestWatcher_RejectedReloadKeepsPreviousConfig(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, `
router:
  hold_gap_ms: 200
  release_gap_ms: 500
`)
	initial, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	watcher, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	// Act: write a config that fails validation
	require.NoError(t, os.WriteFile(path, []byte(`
router:
  hold_gap_ms: 400
  release_gap_ms: 100
`), 0o644))

	// Assert: after the debounce window the old config is still in place
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, 200, watcher.Current().Router.HoldGapMillis)
}

func TestWatcher_DisabledOutsideDevelopment(t *testing.T) {
	// Arrange
	cfg := DefaultConfig()
	cfg.Environment = "production"

	// Act: path does not even need to exist
	watcher, err := NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), cfg, zap.NewNop())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, cfg, watcher.Current())
	watcher.Stop()
}
