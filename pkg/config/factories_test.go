package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionBadger "github.com/marmos91/filebrowse/pkg/session/badger"
	sessionFs "github.com/marmos91/filebrowse/pkg/session/fs"
	sessionMemory "github.com/marmos91/filebrowse/pkg/session/memory"
	"github.com/marmos91/filebrowse/pkg/upload"
)

func TestCreateSessionStore_Filesystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	store, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:       "filesystem",
		Duration:   time.Minute,
		Filesystem: map[string]any{"path": dir},
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	fsStore, ok := store.(*sessionFs.Store)
	require.True(t, ok, "expected *fs.Store, got %T", store)
	assert.Equal(t, dir, fsStore.Dir())
}

func TestCreateSessionStore_FilesystemRequiresPath(t *testing.T) {
	_, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestCreateSessionStore_Badger(t *testing.T) {
	store, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:     "badger",
		Duration: time.Minute,
		Badger:   map[string]any{"in_memory": true},
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok := store.(*sessionBadger.Store)
	assert.True(t, ok, "expected *badger.Store, got %T", store)
}

func TestCreateSessionStore_BadgerOnDisk(t *testing.T) {
	store, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:     "badger",
		Duration: time.Minute,
		Badger:   map[string]any{"db_path": filepath.Join(t.TempDir(), "db")},
	})
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestCreateSessionStore_BadgerRequiresPath(t *testing.T) {
	_, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_path is required")
}

func TestCreateSessionStore_Memory(t *testing.T) {
	store, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:     "memory",
		Duration: time.Minute,
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok := store.(*sessionMemory.Store)
	assert.True(t, ok, "expected *memory.Store, got %T", store)
}

func TestCreateSessionStore_UnknownType(t *testing.T) {
	_, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{Type: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session store type")
}

func TestCreateSessionStore_InvalidOptions(t *testing.T) {
	_, err := CreateSessionStore(t.Context(), "reports", &SiteSessionsConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": []int{1, 2}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestCreateMirror_None(t *testing.T) {
	mirror, err := CreateMirror(t.Context(), &MirrorConfig{})
	require.NoError(t, err)
	assert.Nil(t, mirror)
}

func TestCreateMirror_UnknownType(t *testing.T) {
	_, err := CreateMirror(t.Context(), &MirrorConfig{Type: "gcs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown upload mirror type")
}

func TestCreateMirror_S3(t *testing.T) {
	mirror, err := CreateMirror(t.Context(), &MirrorConfig{
		Type: "s3",
		S3: map[string]any{
			"region":            "us-east-1",
			"bucket":            "uploads",
			"key_prefix":        "filebrowse/",
			"endpoint":          "http://localhost:9000",
			"access_key_id":     "minio",
			"secret_access_key": "minio123",
		},
	})
	require.NoError(t, err)

	_, ok := mirror.(*upload.S3Mirror)
	assert.True(t, ok, "expected *upload.S3Mirror, got %T", mirror)
}

func TestDecodeS3MirrorOptions(t *testing.T) {
	opts, err := decodeS3MirrorOptions(map[string]any{
		"region": "eu-west-1",
		"bucket": "uploads",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, opts.MaxRetries)

	_, err = decodeS3MirrorOptions(map[string]any{"region": "eu-west-1"})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = decodeS3MirrorOptions(map[string]any{"bucket": "uploads"})
	assert.ErrorContains(t, err, "region is required")
}
