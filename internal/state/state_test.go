package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hashes.json.zst")
	hashes := map[string]string{
		"/out/a.txt":     "deadbeef",
		"/out/sub/b.bin": "cafebabe",
	}

	require.NoError(t, Save(path, hashes))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, hashes, got)
}

func TestLoadMissingFileIsColdStart(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope.json.zst"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json.zst")
	require.NoError(t, os.WriteFile(path, []byte("not zstd at all"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json.zst")

	require.NoError(t, Save(path, map[string]string{"/a": "1"}))
	require.NoError(t, Save(path, map[string]string{"/b": "2"}))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/b": "2"}, got)
}
