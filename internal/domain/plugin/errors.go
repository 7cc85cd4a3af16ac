package plugin

import (
	"errors"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrArtifactNotFound indicates the artifact file does not exist.
	ErrArtifactNotFound = errors.New("plugin artifact not found")
	// ErrEntryPointInvalid indicates the entry point is missing from the
	// artifact or cannot be compiled and instantiated.
	ErrEntryPointInvalid = errors.New("plugin entry point is invalid")
	// ErrNotAPlugin indicates the loaded unit does not provide the plugin capability.
	ErrNotAPlugin = errors.New("artifact does not provide a plugin")
	// ErrInvalidName indicates a plugin name that cannot be used.
	ErrInvalidName = errors.New("invalid plugin name")
	// ErrInvalidManifest indicates an artifact manifest that cannot be parsed.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// IsLoadFailure returns true if err is one of the artifact loading failures.
func IsLoadFailure(err error) bool {
	return errors.Is(err, ErrArtifactNotFound) ||
		errors.Is(err, ErrEntryPointInvalid) ||
		errors.Is(err, ErrNotAPlugin)
}

// ExitCode extracts the exit status carried by err: 0 for nil, the plugin's
// code for *ExitError, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
