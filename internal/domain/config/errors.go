package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodePluginNotFound   = "PLUGIN_NOT_FOUND"
	ErrCodePluginExists     = "PLUGIN_EXISTS"
	ErrCodeNotInstalled     = "NOT_INSTALLED"
	ErrCodeRegistryInvalid  = "REGISTRY_INVALID"
	ErrCodeArtifactNotFound = "ARTIFACT_NOT_FOUND"
	ErrCodeArtifactInvalid  = "ARTIFACT_INVALID"
	ErrCodeArtifactInUse    = "ARTIFACT_IN_USE"
	ErrCodeUsage            = "USAGE"
	ErrCodeSetupFailed      = "SETUP_FAILED"
)

// UserError represents a user-friendly error with actionable suggestions.
type UserError struct {
	Code       string // Error code for categorization (e.g., "PLUGIN_NOT_FOUND")
	Message    string // User-friendly error message
	Context    string // File path or plugin name the error refers to
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	var b strings.Builder

	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}

	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *UserError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}

	return b.String()
}

// NewUserError creates a new UserError with the given code and message.
func NewUserError(code, message string) *UserError {
	return &UserError{
		Code:    code,
		Message: message,
	}
}

// WithContext returns a new UserError with context set.
func (e *UserError) WithContext(ctx string) *UserError {
	c := *e
	c.Context = ctx
	return &c
}

// WithSuggestion returns a new UserError with suggestion set.
func (e *UserError) WithSuggestion(suggestion string) *UserError {
	c := *e
	c.Suggestion = suggestion
	return &c
}

// WithUnderlying returns a new UserError wrapping another error.
func (e *UserError) WithUnderlying(err error) *UserError {
	c := *e
	c.Underlying = err
	return &c
}

// NewPluginNotFoundError creates an error for a command that is neither a
// builtin nor a registered plugin.
func NewPluginNotFoundError(name string) *UserError {
	return &UserError{
		Code:       ErrCodePluginNotFound,
		Message:    fmt.Sprintf("Unknown command or plugin: %s", name),
		Suggestion: "Run 'jex --list' to see available plugins.",
	}
}

// NewPluginExistsError creates an error for installing a name twice.
func NewPluginExistsError(name string) *UserError {
	return &UserError{
		Code:       ErrCodePluginExists,
		Message:    fmt.Sprintf("plugin '%s' is already installed", name),
		Suggestion: fmt.Sprintf("Use 'jex --update-plugin %s --jar <file>' to replace it.", name),
	}
}

// NewNotInstalledError creates an error for updating or removing an unknown plugin.
func NewNotInstalledError(name string) *UserError {
	return &UserError{
		Code:       ErrCodeNotInstalled,
		Message:    fmt.Sprintf("plugin '%s' is not installed", name),
		Suggestion: "Run 'jex --list' to see installed plugins.",
	}
}

// NewRegistryInvalidError creates an error for an unreadable registry file.
func NewRegistryInvalidError(path string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeRegistryInvalid,
		Message:    "plugin registry is not valid YAML",
		Context:    path,
		Suggestion: "Fix or remove the registry file, then run 'jex --install' to recreate it.",
		Underlying: err,
	}
}

// NewArtifactNotFoundError creates an error for a missing artifact file.
func NewArtifactNotFoundError(path string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeArtifactNotFound,
		Message:    "plugin artifact not found",
		Context:    path,
		Suggestion: "Check the path passed to --jar.",
		Underlying: err,
	}
}

// NewArtifactInvalidError creates an error for an artifact that holds no usable plugin.
func NewArtifactInvalidError(path string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeArtifactInvalid,
		Message:    "artifact does not contain a valid jex plugin",
		Context:    path,
		Suggestion: "Build the plugin for wasip1 and export the jex ABI. 'jex new-plugin <name>' generates a working skeleton.",
		Underlying: err,
	}
}

// NewUsageError creates an error for invalid command-line usage.
func NewUsageError(message string) *UserError {
	return &UserError{
		Code:       ErrCodeUsage,
		Message:    message,
		Suggestion: "Run 'jex --help' for usage.",
	}
}

// NewSetupFailedError creates an error for a failed --install run.
func NewSetupFailedError(step string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeSetupFailed,
		Message:    fmt.Sprintf("setup failed: %s", step),
		Underlying: err,
	}
}

// IsUserError checks if an error is a UserError with a specific code.
func IsUserError(err error, code string) bool {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}

// GetUserError extracts a UserError from an error chain, if present.
func GetUserError(err error) *UserError {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}
