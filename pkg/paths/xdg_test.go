package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCctvHomeOverridesXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCTV_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "/nowhere")

	assert.Equal(t, filepath.Join(home, "config", "cctv"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "data", "cctv", "sessions"), SessionsDir())
	assert.Equal(t, filepath.Join(home, "state", "cctv", "cctv.pid"), PidFilePath())
	assert.Equal(t, filepath.Join(home, "config", "cctv", "settings.yml"), SettingsPath())
}

func TestXDGVariables(t *testing.T) {
	t.Setenv("CCTV_HOME", "")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	assert.Equal(t, "/tmp/xdg-state/cctv", StateDir())
	day := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "/tmp/xdg-state/cctv/logs/cctv-2024-03-09.log", LogFilePath("cctv", day))
}

func TestEnsureDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCTV_HOME", home)

	require.NoError(t, EnsureDirs())
	for _, dir := range []string{ConfigDir(), DataDir(), StateDir(), SessionsDir(), LogDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}
