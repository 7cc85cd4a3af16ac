package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// list prints the installed plugins, the built-in commands and any artifact
// in the plugins directory the registry does not reference.
func (d *Dispatcher) list(ctx context.Context, c *components) {
	out := d.io.Out
	st := d.styles(out)

	reg, regErr := c.repo.Load(ctx, d.cfg.Paths.RegistryFile)

	if reg.Len() == 0 {
		fmt.Fprintln(out, "No plugins installed.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Install a plugin with:")
		fmt.Fprintln(out, "  jex --install-plugin <name> --jar <path>")
		fmt.Fprintln(out, "Create a new one with:")
		fmt.Fprintln(out, "  jex new-plugin <name>")
	} else {
		fmt.Fprintln(out, st.Title.Render("Installed Plugins:"))
		for _, desc := range reg.Descriptors() {
			line := fmt.Sprintf("  %s (%s)", st.Name.Render(desc.Name), versionLabel(desc))
			if desc.Description != "" {
				line += " - " + desc.Description
			}
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", st.Title.Render("Built-in commands:"), strings.Join(d.cfg.Builtins.Names(), ", "))

	// Every file would look untracked against a registry that failed to parse.
	if regErr != nil {
		return
	}
	untracked, err := c.manager.Untracked(ctx, reg)
	if err != nil {
		c.logger.Warn(ctx, "could not scan plugins directory", ports.F("error", err))
		return
	}
	if len(untracked) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, st.Warning.Render(fmt.Sprintf("Untracked artifacts in %s:", d.cfg.Paths.PluginsDir)))
	for _, file := range untracked {
		fmt.Fprintf(out, "  %s\n", file)
	}
	fmt.Fprintln(out, st.Muted.Render("Reinstall them with --install-plugin or remove them with 'jex doctor --fix'."))
}

func versionLabel(d registry.Descriptor) string {
	if d.Version == "" {
		return "version unknown"
	}
	return "v" + d.Version
}
