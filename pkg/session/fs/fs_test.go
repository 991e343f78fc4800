package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/session"
	sessiontest "github.com/marmos91/filebrowse/pkg/session/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStore(t *testing.T) {
	suite := &sessiontest.StoreTestSuite{
		NewStore: func(t *testing.T, expiry session.Expiry) session.Store {
			store, err := New(Config{Dir: filepath.Join(t.TempDir(), "sessions"), Expiry: expiry})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestFilesystemStoreLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	store, err := New(Config{Dir: dir})
	require.NoError(t, err)
	ctx := t.Context()

	t.Run("CreateMakesDirectory", func(t *testing.T) {
		_, err := os.Stat(dir)
		require.True(t, os.IsNotExist(err))

		_, err = store.Create(ctx)
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("OneJSONArrayPerSession", func(t *testing.T) {
		id, err := store.Create(ctx)
		require.NoError(t, err)
		want := sessiontest.Records(3)
		require.NoError(t, store.Freeze(ctx, id, want))

		data, err := os.ReadFile(filepath.Join(dir, id+".json"))
		require.NoError(t, err)

		var raw []map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Len(t, raw, 3)
		assert.Equal(t, "file-000.xml", raw[0]["name"])
		assert.Contains(t, raw[0], "lastModified")
		assert.Contains(t, raw[0], "isFile")

		var got []files.Record
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, want, got)
	})

	t.Run("NoTempFilesLeftBehind", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.Equal(t, ".json", filepath.Ext(e.Name()), e.Name())
		}
	})

	t.Run("SweepIgnoresForeignFiles", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		stats, err := store.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Removed)

		_, err = os.Stat(filepath.Join(dir, "notes.txt"))
		assert.NoError(t, err)
	})

	t.Run("SweepMissingDirectory", func(t *testing.T) {
		missing, err := New(Config{Dir: filepath.Join(t.TempDir(), "absent")})
		require.NoError(t, err)
		stats, err := missing.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Scanned)
	})

	t.Run("FreezeRejectsInvalidID", func(t *testing.T) {
		err := store.Freeze(ctx, "../escape", sessiontest.Records(1))
		assert.Error(t, err)
	})

	t.Run("RequiresDirectory", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})
}
