package registry

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Descriptor is the persisted record of one installed plugin.
type Descriptor struct {
	// Name is the unique plugin name users type on the command line.
	Name string
	// ArtifactPath is the artifact's file name inside the plugins directory.
	ArtifactPath string
	// EntryPoint identifies the loadable unit inside the artifact.
	EntryPoint string
	// Version is informational only.
	Version string
	// Description is optional.
	Description string
}

// Validate checks the fields required to load the plugin.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ArtifactPath) == "" {
		return fmt.Errorf("plugin %q: missing artifact (jar)", d.Name)
	}
	if strings.TrimSpace(d.EntryPoint) == "" {
		return fmt.Errorf("plugin %q: missing entry point (class)", d.Name)
	}
	if !IsBareFileName(d.ArtifactPath) {
		return fmt.Errorf("plugin %q: artifact %q must be a file name inside the plugins directory", d.Name, d.ArtifactPath)
	}
	return nil
}

// DisplayVersion returns the version for listings, "unknown" when unset.
func (d Descriptor) DisplayVersion() string {
	if d.Version == "" {
		return "unknown"
	}
	return d.Version
}

// IsBareFileName reports whether name is a plain file name with no directory
// component, so joining it to the plugins directory cannot escape it.
func IsBareFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
