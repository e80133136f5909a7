package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/cctv/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "chromium", cfg.Browser.Binary)
	assert.Equal(t, 9222, cfg.Browser.DebugPort)
	assert.Equal(t, 2*time.Second, cfg.Capture.Period.Duration)
	assert.Equal(t, time.Second, cfg.Capture.Grace.Duration)
	assert.Equal(t, 10*time.Second, cfg.Booster.Interval.Duration)
	assert.Equal(t, DefaultBoostNice, cfg.Booster.Niceness())
	assert.Equal(t, 3, cfg.Acquire.Attempts)
	assert.Equal(t, time.Second, cfg.Acquire.Backoff.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CCTV_TEST_BROWSER", "/opt/chrome/chrome")

	content := `
browser:
  binary: ${CCTV_TEST_BROWSER}
  debug_port: 9333
  process_patterns: ["chrome*"]
capture:
  period: 3s
  root: ${CCTV_TEST_ROOT:-/var/lib/cctv}
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cctv.yml"), []byte(content), 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser.Binary)
	assert.Equal(t, 9333, cfg.Browser.DebugPort)
	assert.Equal(t, []string{"chrome*"}, cfg.Browser.ProcessPatterns)
	assert.Equal(t, 3*time.Second, cfg.Capture.Period.Duration)
	assert.Equal(t, "/var/lib/cctv", cfg.Capture.Root)
	assert.Equal(t, time.Second, cfg.Capture.Grace.Duration, "unset fields keep defaults")

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	content := `
[capture]
period = "3s"
dpi = 192.0

[acquire]
attempts = 5

[logging]
level = "warn"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cctv.toml"), []byte(content), 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Capture.Period.Duration)
	assert.Equal(t, 192.0, cfg.Capture.DPI)
	assert.Equal(t, 5, cfg.Acquire.Attempts)

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "warn", logCfg.Level)
}

func TestLoadFromWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "browser:\n  debug_port: 70000\n"},
		{name: "bad nice", content: "booster:\n  nice: -40\n"},
		{name: "bad duration", content: "capture:\n  period: soon\n"},
		{name: "sub-second period", content: "capture:\n  period: 500ms\n"},
		{name: "not yaml", content: "browser: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cctv.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid), "got %v", err)
		})
	}
}

func TestBoosterNiceZeroIsKept(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("booster:\n  nice: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Booster.Niceness())

	cfg, err = LoadFromTOML([]byte("[booster]\nnice = 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Booster.Niceness())
}

func TestMinimumCapturePeriod(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("capture:\n  period: 1s\n"))
	require.NoError(t, err)
	assert.Equal(t, MinCapturePeriod, cfg.Capture.Period.Duration)

	_, err = LoadFromBytes([]byte("capture:\n  period: 999ms\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "cctv.yml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}
