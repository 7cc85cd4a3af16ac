package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRealFileSystem(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, NewRealFileSystem())
}

func TestRealFileSystem_Integration(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "plugin.yaml")
	require.NoError(t, fs.WriteFileAtomic(testFile, []byte("greet: {}\n"), 0o644))

	content, err := fs.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "greet: {}\n", string(content))
	assert.True(t, fs.Exists(testFile))

	info, err := fs.Stat(testFile)
	require.NoError(t, err)
	assert.Equal(t, "plugin.yaml", info.Name)
	assert.Equal(t, int64(10), info.Size)
	assert.False(t, info.IsDir)

	nestedDir := filepath.Join(tmpDir, "plugins", "nested")
	require.NoError(t, fs.MkdirAll(nestedDir, 0o755))
	assert.True(t, fs.Exists(nestedDir))

	copied := filepath.Join(tmpDir, "plugins", "copy.yaml")
	require.NoError(t, fs.CopyFile(testFile, copied))
	data, err := fs.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "greet: {}\n", string(data))

	renamed := filepath.Join(tmpDir, "renamed.yaml")
	require.NoError(t, fs.Rename(testFile, renamed))
	assert.False(t, fs.Exists(testFile))
	assert.True(t, fs.Exists(renamed))

	require.NoError(t, fs.Remove(renamed))
	assert.False(t, fs.Exists(renamed))
}

func TestRealFileSystem_WriteFileAtomic_ReplacesExisting(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "plugin.yaml")

	require.NoError(t, fs.WriteFileAtomic(path, []byte("old"), 0o644))
	require.NoError(t, fs.WriteFileAtomic(path, []byte("new"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// No temp files are left next to the target.
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRealFileSystem_WriteFileAtomic_MissingDir(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	err := fs.WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "plugin.yaml"), []byte("x"), 0o644)
	assert.Error(t, err)
}

func TestRealFileSystem_ReadDir(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "b.wasm"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.zip"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "sub"), 0o755))

	infos, err := fs.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "a.zip", infos[0].Name)
	assert.Equal(t, "b.wasm", infos[1].Name)
	assert.Equal(t, "sub", infos[2].Name)
	assert.True(t, infos[2].IsDir)
}

func TestRealFileSystem_CopyFile_Errors(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	tmpDir := t.TempDir()

	assert.Error(t, fs.CopyFile(filepath.Join(tmpDir, "missing"), filepath.Join(tmpDir, "dest")))
	assert.Error(t, fs.CopyFile(tmpDir, filepath.Join(tmpDir, "dest")))
}

func TestRealFileSystem_ReadFile_NotFound(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	_, err := fs.ReadFile(filepath.Join(t.TempDir(), "nonexistent.txt"))
	assert.True(t, os.IsNotExist(err))
}
