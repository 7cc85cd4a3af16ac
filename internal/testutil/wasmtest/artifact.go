package wasmtest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// File is one archive entry.
type File struct {
	Name string
	Data []byte
}

// Zip builds a zip archive holding files in order.
func Zip(t testing.TB, files ...File) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(f.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// PluginJar writes a zip artifact holding a single plugin unit named
// <name>.wasm plus an optional YAML manifest, and returns its path.
func PluginJar(t testing.TB, dir, file string, p Plugin, manifest string) string {
	t.Helper()

	files := []File{{Name: p.Name + ".wasm", Data: Module(p)}}
	if manifest != "" {
		files = append(files, File{Name: "plugin.yaml", Data: []byte(manifest)})
	}
	return WriteFile(t, dir, file, Zip(t, files...))
}
