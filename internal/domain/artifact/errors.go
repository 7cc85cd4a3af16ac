package artifact

import (
	"fmt"
)

// LoadError reports why an artifact or one of its units could not be turned
// into a plugin. Err wraps one of the plugin package sentinels.
type LoadError struct {
	Path string
	Unit string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("loading plugin artifact %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("loading %s from plugin artifact %s: %v", e.Unit, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
