package plugin

import (
	"fmt"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Manifest file names recognised at the root of an archive artifact.
const (
	ManifestYAML = "plugin.yaml"
	ManifestTOML = "plugin.toml"
)

// Defaults applied when an artifact carries no manifest or leaves fields empty.
const (
	DefaultVersion     = "1.0.0"
	DefaultDescription = "A jex plugin"
)

// Manifest is the optional metadata shipped inside an archive artifact.
type Manifest struct {
	Name        string `yaml:"name" toml:"name"`
	Version     string `yaml:"version" toml:"version"`
	Description string `yaml:"description" toml:"description"`
	// Entry names the loadable unit to prefer during discovery.
	Entry string `yaml:"entry" toml:"entry"`
}

// IsManifestFile reports whether an archive entry is a manifest.
func IsManifestFile(name string) bool {
	return name == ManifestYAML || name == ManifestTOML
}

// ParseManifest decodes a manifest; the format follows the file extension.
func ParseManifest(filename string, data []byte) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(path.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, filename, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, filename, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported manifest format %q", ErrInvalidManifest, filename)
	}

	if m.Version != "" && !IsValidVersion(m.Version) {
		return nil, fmt.Errorf("%w: %s: version %q is not a semantic version", ErrInvalidManifest, filename, m.Version)
	}
	if m.Entry != "" && !strings.HasSuffix(m.Entry, ".wasm") {
		return nil, fmt.Errorf("%w: %s: entry %q must name a .wasm module", ErrInvalidManifest, filename, m.Entry)
	}
	return &m, nil
}

// WithDefaults returns a copy of m (or an empty manifest) with the default
// version and description filled in.
func (m *Manifest) WithDefaults() Manifest {
	var out Manifest
	if m != nil {
		out = *m
	}
	if out.Version == "" {
		out.Version = DefaultVersion
	}
	if out.Description == "" {
		out.Description = DefaultDescription
	}
	return out
}

// IsValidVersion reports whether v is a semantic version, with or without
// the leading "v".
func IsValidVersion(v string) bool {
	return semver.IsValid(canonical(v))
}

// IsDowngrade reports whether next is an older semantic version than current.
// Versions that are not valid semver never count as a downgrade.
func IsDowngrade(current, next string) bool {
	c, n := canonical(current), canonical(next)
	if !semver.IsValid(c) || !semver.IsValid(n) {
		return false
	}
	return semver.Compare(n, c) < 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
