package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesNamedDirectory(t *testing.T) {
	root := t.TempDir()
	started := time.Date(2024, 5, 6, 7, 8, 9, 500, time.Local)

	sess, err := New(root, started)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-06 07-08-09", sess.Name())
	assert.Equal(t, filepath.Join(root, "2024-05-06 07-08-09"), sess.Dir)
	assert.Equal(t, filepath.Join(root, "2024-05-06 07-08-09.zip"), sess.ArchivePath())
	assert.NotEmpty(t, sess.ID)

	info, err := os.Stat(sess.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFramePath(t *testing.T) {
	sess := &Session{Dir: "/data/2024-05-06 07-08-09"}
	at := time.Date(2024, 5, 6, 7, 8, 11, 0, time.Local)
	assert.Equal(t, "/data/2024-05-06 07-08-09/2024-05-06 07-08-11.jpg", sess.FramePath(at))
}

func TestParseName(t *testing.T) {
	got, ok := ParseName("2024-05-06 07-08-09.zip")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local), got)

	_, ok = ParseName("lost+found")
	assert.False(t, ok)
}
