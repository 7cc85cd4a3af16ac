package artifact

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jmmirabile/Jex/internal/domain/plugin"
)

// Format is the container format of an artifact file.
type Format string

// Supported formats.
const (
	FormatWasm    Format = "wasm"
	FormatZip     Format = "zip"
	FormatUnknown Format = "unknown"
)

// MaxUnitSize bounds the size of a single loadable unit.
const MaxUnitSize = 64 << 20

var (
	wasmMagic = []byte{0x00, 'a', 's', 'm'}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
)

// contents is an opened artifact: its loadable units in archive order and the
// optional manifest.
type contents struct {
	path     string
	format   Format
	units    []string
	manifest *plugin.Manifest
	read     func(unit string) ([]byte, error)
}

// open inspects the artifact at path. A missing file is reported with
// plugin.ErrArtifactNotFound; an unrecognised file yields no units.
func open(path string) (*contents, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, plugin.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("%w: %w", plugin.ErrArtifactNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", plugin.ErrArtifactNotFound, path)
	}

	format, err := detect(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatWasm:
		return openWasm(path), nil
	case FormatZip:
		return openZip(path)
	default:
		return &contents{path: path, format: FormatUnknown, read: noUnits}, nil
	}
}

func detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: %w", plugin.ErrArtifactNotFound, err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return FormatUnknown, nil
	}
	switch {
	case bytes.Equal(header, wasmMagic):
		return FormatWasm, nil
	case bytes.Equal(header, zipMagic):
		return FormatZip, nil
	default:
		return FormatUnknown, nil
	}
}

// A bare module holds exactly one unit, named after the file.
func openWasm(path string) *contents {
	unit := filepath.Base(path)
	return &contents{
		path:   path,
		format: FormatWasm,
		units:  []string{unit},
		read: func(name string) ([]byte, error) {
			if name != unit {
				return nil, fmt.Errorf("%w: unit %q not found, module provides %q", plugin.ErrEntryPointInvalid, name, unit)
			}
			return readLimited(path)
		},
	}
}

func openZip(path string) (*contents, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &contents{path: path, format: FormatUnknown, read: noUnits}, nil
	}
	defer func() { _ = zr.Close() }()

	c := &contents{path: path, format: FormatZip}
	for _, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() {
			continue
		}
		if plugin.IsManifestFile(name) && c.manifest == nil {
			data, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", plugin.ErrInvalidManifest, name, err)
			}
			m, err := plugin.ParseManifest(name, data)
			if err != nil {
				return nil, err
			}
			c.manifest = m
			continue
		}
		if strings.HasSuffix(name, ".wasm") && !strings.HasPrefix(name, "__MACOSX/") {
			c.units = append(c.units, name)
		}
	}

	c.read = func(unit string) ([]byte, error) {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", plugin.ErrEntryPointInvalid, err)
		}
		defer func() { _ = zr.Close() }()

		for _, f := range zr.File {
			if f.Name == unit {
				data, err := readZipFile(f)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", plugin.ErrEntryPointInvalid, err)
				}
				return data, nil
			}
		}
		return nil, fmt.Errorf("%w: unit %q not found in archive", plugin.ErrEntryPointInvalid, unit)
	}
	return c, nil
}

// candidates returns the units to try during discovery: the manifest entry
// first when it names a unit, then the rest in archive order.
func (c *contents) candidates() []string {
	if c.manifest == nil || c.manifest.Entry == "" {
		return c.units
	}
	entry := path.Clean(c.manifest.Entry)
	out := make([]string, 0, len(c.units))
	for _, u := range c.units {
		if u == entry {
			out = append(out, u)
		}
	}
	for _, u := range c.units {
		if u != entry {
			out = append(out, u)
		}
	}
	return out
}

func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxUnitSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, MaxUnitSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, MaxUnitSize))
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plugin.ErrArtifactNotFound, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, MaxUnitSize))
}

func noUnits(unit string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %q: artifact is neither a WebAssembly module nor a zip archive", plugin.ErrEntryPointInvalid, unit)
}
