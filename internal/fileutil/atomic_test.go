package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	require.NoError(t, WriteFileAtomic(path, []byte("initial"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("updated content"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "updated content", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not remain")
	assert.Equal(t, "snapshot.json", entries[0].Name())
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	t.Parallel()
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "x.json"), []byte("data"), 0o644)
	assert.Error(t, err)
}

func TestWriteJSONAtomic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, WriteJSONAtomic(path, []byte(`{"phase":"bid","high_bid":70}`)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"phase\": \"bid\",\n  \"high_bid\": 70\n}\n", string(data))

	assert.Error(t, WriteJSONAtomic(filepath.Join(dir, "bad.json"), []byte("{")))
	_, err = os.Stat(filepath.Join(dir, "bad.json"))
	assert.True(t, os.IsNotExist(err))
}
