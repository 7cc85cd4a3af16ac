package app

import (
	"errors"
	"fmt"

	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/manager"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// userError converts domain errors into a *config.UserError carrying a
// suggestion. Errors it does not recognise are returned unchanged.
func userError(err error, registryFile string) error {
	if config.GetUserError(err) != nil {
		return err
	}

	var name string
	var opErr *manager.OperationError
	if errors.As(err, &opErr) {
		name = opErr.Name
	}

	var ue *config.UserError
	switch {
	case errors.Is(err, manager.ErrAlreadyInstalled):
		ue = config.NewPluginExistsError(name)
	case errors.Is(err, manager.ErrNotInstalled):
		ue = config.NewNotInstalledError(name)
	case errors.Is(err, registry.ErrInvalidRegistry):
		return config.NewRegistryInvalidError(registryFile, err)
	case errors.Is(err, manager.ErrArtifactInUse):
		ue = config.NewUserError(config.ErrCodeArtifactInUse, err.Error()).
			WithSuggestion("Rename the artifact file before installing it.")
	case errors.Is(err, plugin.ErrArtifactNotFound):
		ue = config.NewArtifactNotFoundError("", nil)
		ue.Message = err.Error()
	case errors.Is(err, plugin.ErrEntryPointInvalid),
		errors.Is(err, plugin.ErrNotAPlugin),
		errors.Is(err, plugin.ErrInvalidManifest):
		ue = config.NewArtifactInvalidError("", nil)
		ue.Message = err.Error()
	case errors.Is(err, plugin.ErrInvalidName):
		ue = config.NewUsageError(err.Error())
	default:
		return err
	}
	return ue.WithUnderlying(err)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error, verbose bool) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError writes err to stderr. Technical details are added when debug
// logging is on.
func (d *Dispatcher) printError(err error, c *components) {
	verbose := c != nil && c.logger.Level() == ports.LevelDebug
	err = userError(err, d.cfg.Paths.RegistryFile)

	st := d.styles(d.io.Err)
	fmt.Fprintf(d.io.Err, "%s %s\n", st.Error.Render("Error:"), formatError(err, verbose))
}
