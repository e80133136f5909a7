package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/cctv/pkg/paths"
	"github.com/grovetools/cctv/state"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestURLGetRestoresDefault(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	out, err := execute(t, NewURLCmd())
	require.NoError(t, err)
	assert.Equal(t, state.DefaultURL, strings.TrimSpace(out))

	_, err = os.Stat(paths.SettingsPath())
	assert.NoError(t, err, "default is written back")
}

func TestURLSetThenGet(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	_, err := execute(t, NewURLCmd(), "set", "https://10.0.0.5/board")
	require.NoError(t, err)

	out, err := execute(t, NewURLCmd(), "get")
	require.NoError(t, err)
	assert.Equal(t, "https://10.0.0.5/board", strings.TrimSpace(out))
}

func TestURLSetRejectsRelative(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	_, err := execute(t, NewURLCmd(), "set", "board.html")
	assert.Error(t, err)
}

func TestPathsFollowHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCTV_HOME", home)

	out, err := execute(t, NewPathsCmd())
	require.NoError(t, err)

	var got PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, filepath.Join(home, "data", "cctv", "sessions"), got.SessionsDir)
	assert.Equal(t, filepath.Join(home, "state", "cctv", "cctv.pid"), got.PidFile)
}

func TestSessionsEmpty(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	out, err := execute(t, NewSessionsCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded yet.")
}

func TestRotateArchivesLeftovers(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	dir := filepath.Join(paths.SessionsDir(), "2024-05-06 08-00-00")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-05-06 08-00-01.jpg"), []byte("jpeg"), 0644))

	out, err := execute(t, NewRotateCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Archived 1 session(s)")

	_, err = os.Stat(dir + ".zip")
	assert.NoError(t, err)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	out, err = execute(t, NewSessionsCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-06 08-00-00.zip")
}

func TestConfigPrintsDefaults(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	out, err := execute(t, NewConfigCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "period: 2s")
	assert.Contains(t, out, "binary: chromium")
}
