package ports

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo contains file metadata.
type FileInfo struct {
	Name    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// FileSystem provides the file operations used by the registry store and the
// plugin manager. Every mutation of the registry file goes through
// WriteFileAtomic so a crash can never leave a truncated registry behind.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	CopyFile(src, dest string) error
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
