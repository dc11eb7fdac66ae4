package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	path := filepath.Join(dir, "extension.js")

	// Creates missing parent directories
	require.NoError(t, WriteFile(path, []byte("first")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	// Replaces existing content
	require.NoError(t, WriteFile(path, []byte("second")))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestArtifactSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extension.js")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	size, err := ArtifactSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	_, err = ArtifactSize(filepath.Join(dir, "missing.js"))
	assert.Error(t, err)

	// Directories are not artifacts
	_, err = ArtifactSize(dir)
	assert.Error(t, err)
}
