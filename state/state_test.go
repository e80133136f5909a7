package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreOperations(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "nested", "settings.yml"))

	t.Run("Load empty state", func(t *testing.T) {
		st, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, st)
	})

	t.Run("Set and Get string value", func(t *testing.T) {
		require.NoError(t, store.Set("test.key", "test-value"))

		got, err := store.GetString("test.key")
		require.NoError(t, err)
		assert.Equal(t, "test-value", got)
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		got, ok, err := store.Get("non.existent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("GetString on non-string value", func(t *testing.T) {
		require.NoError(t, store.Set("test.number", 42))

		got, err := store.GetString("test.number")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("Delete key", func(t *testing.T) {
		require.NoError(t, store.Delete("test.key"))

		_, ok, err := store.Get("test.key")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		want      string
		rewritten bool
	}{
		{name: "missing file", want: DefaultURL, rewritten: true},
		{name: "valid value", initial: "cctv.url: http://nvr.local/live\n", want: "http://nvr.local/live"},
		{name: "relative value", initial: "cctv.url: nvr.local/live\n", want: DefaultURL, rewritten: true},
		{name: "non-string value", initial: "cctv.url: 7\n", want: DefaultURL, rewritten: true},
		{name: "corrupt file", initial: "cctv.url: [\n", want: DefaultURL, rewritten: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yml")
			if tt.initial != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.initial), 0644))
			}
			store := Open(path)

			got, err := ResolveURL(store)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			stored, err := store.GetString(URLKey)
			require.NoError(t, err)
			if tt.rewritten {
				assert.Equal(t, DefaultURL, stored)
			} else {
				assert.Equal(t, tt.want, stored)
			}
		})
	}
}

func TestResolveURLKeepsOtherKeys(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "settings.yml"))
	require.NoError(t, store.Set("other.key", "kept"))

	_, err := ResolveURL(store)
	require.NoError(t, err)

	got, err := store.GetString("other.key")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestSetURL(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "settings.yml"))

	require.Error(t, SetURL(store, "not a url"))
	require.NoError(t, SetURL(store, "https://example.com/cam"))

	got, err := ResolveURL(store)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cam", got)
}
