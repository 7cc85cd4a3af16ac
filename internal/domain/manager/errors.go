package manager

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrAlreadyInstalled indicates install was called for a registered name.
	ErrAlreadyInstalled = errors.New("plugin is already installed")
	// ErrNotInstalled indicates update or uninstall of an unknown name.
	ErrNotInstalled = errors.New("plugin is not installed")
	// ErrArtifactInUse indicates the artifact file name belongs to another plugin.
	ErrArtifactInUse = errors.New("artifact file is used by another plugin")
)

// OperationError describes a failed lifecycle operation.
type OperationError struct {
	Op   Op
	Name string
	Err  error
	// Phase is the final transaction phase: failed or rolled_back.
	Phase Phase
	// RollbackErrs holds compensations that could not be applied.
	RollbackErrs []error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s plugin %s: %v", e.Op, e.Name, e.Err)
	if len(e.RollbackErrs) > 0 {
		parts := make([]string, len(e.RollbackErrs))
		for i, err := range e.RollbackErrs {
			parts[i] = err.Error()
		}
		msg += fmt.Sprintf(" (rollback incomplete: %s)", strings.Join(parts, "; "))
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsOperationError returns true if err came from a lifecycle operation.
func IsOperationError(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr)
}
