package mocks

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jmmirabile/Jex/internal/ports"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("injected failure")

// Filesystem operations that can be made to fail.
const (
	OpReadFile        = "ReadFile"
	OpWriteFileAtomic = "WriteFileAtomic"
	OpMkdirAll        = "MkdirAll"
	OpCopyFile        = "CopyFile"
	OpRename          = "Rename"
	OpRemove          = "Remove"
)

type fault struct {
	op     string
	suffix string
	err    error
	times  int
}

// FileSystem is a thread-safe test double for ports.FileSystem. It forwards to
// an underlying implementation and fails selected operations on demand.
type FileSystem struct {
	ports.FileSystem

	mu     sync.Mutex
	faults []*fault
	calls  []string
}

// NewFileSystem wraps inner.
func NewFileSystem(inner ports.FileSystem) *FileSystem {
	return &FileSystem{FileSystem: inner}
}

// FailOn makes op fail for paths ending in suffix (empty matches everything)
// until the fault has fired times times. times <= 0 means forever.
func (fs *FileSystem) FailOn(op, suffix string, times int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = append(fs.faults, &fault{op: op, suffix: suffix, err: ErrInjected, times: times})
}

// Reset clears faults and recorded calls.
func (fs *FileSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = nil
	fs.calls = nil
}

// Calls returns the recorded "Op path" entries.
func (fs *FileSystem) Calls() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, len(fs.calls))
	copy(out, fs.calls)
	return out
}

func (fs *FileSystem) check(op, path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.calls = append(fs.calls, op+" "+path)
	for _, f := range fs.faults {
		if f.op != op || !strings.HasSuffix(path, f.suffix) || f.times < 0 {
			continue
		}
		if f.times > 0 {
			f.times--
			if f.times == 0 {
				f.times = -1
			}
		}
		return fmt.Errorf("%s %s: %w", op, path, f.err)
	}
	return nil
}

// ReadFile reads a file unless a fault is armed.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	if err := fs.check(OpReadFile, path); err != nil {
		return nil, err
	}
	return fs.FileSystem.ReadFile(path)
}

// WriteFileAtomic writes a file unless a fault is armed.
func (fs *FileSystem) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := fs.check(OpWriteFileAtomic, path); err != nil {
		return err
	}
	return fs.FileSystem.WriteFileAtomic(path, data, perm)
}

// MkdirAll creates directories unless a fault is armed.
func (fs *FileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := fs.check(OpMkdirAll, path); err != nil {
		return err
	}
	return fs.FileSystem.MkdirAll(path, perm)
}

// CopyFile copies a file unless a fault is armed. Faults match on dest.
func (fs *FileSystem) CopyFile(src, dest string) error {
	if err := fs.check(OpCopyFile, dest); err != nil {
		return err
	}
	return fs.FileSystem.CopyFile(src, dest)
}

// Rename renames a file unless a fault is armed. Faults match on newPath.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	if err := fs.check(OpRename, newPath); err != nil {
		return err
	}
	return fs.FileSystem.Rename(oldPath, newPath)
}

// Remove removes a file unless a fault is armed.
func (fs *FileSystem) Remove(path string) error {
	if err := fs.check(OpRemove, path); err != nil {
		return err
	}
	return fs.FileSystem.Remove(path)
}

var _ ports.FileSystem = (*FileSystem)(nil)
