package app

import (
	"fmt"
	"strings"
)

func (d *Dispatcher) printHelp() {
	out := d.io.Out
	st := d.styles(out)

	fmt.Fprintf(out, "%s - run plugins by name\n\n", st.Title.Render("jex"))

	fmt.Fprintln(out, st.Title.Render("Usage:"))
	fmt.Fprintln(out, "  jex <plugin> [args...]                  Run a plugin")
	fmt.Fprintln(out, "  jex [flags]")
	fmt.Fprintln(out)

	fmt.Fprintln(out, st.Title.Render("Flags:"))
	fmt.Fprintln(out, "  --install, --setup                      Create directories, the registry and the jex wrapper")
	fmt.Fprintln(out, "  -l, --list                              List installed plugins")
	fmt.Fprintln(out, "  --install-plugin <name> --jar <path>    Install a plugin artifact")
	fmt.Fprintln(out, "  --update-plugin <name> --jar <path>     Replace an installed plugin")
	fmt.Fprintln(out, "  --uninstall-plugin <name>               Remove a plugin")
	fmt.Fprintln(out, "  --debug                                 Enable debug logging")
	fmt.Fprintln(out, "  --log-json                              Write logs as JSON")
	fmt.Fprintln(out, "  -v, --version                           Print version information")
	fmt.Fprintln(out, "  -h, --help                              Show this help")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s %s\n\n", st.Title.Render("Built-in commands:"), strings.Join(d.cfg.Builtins.Names(), ", "))

	fmt.Fprintln(out, st.Title.Render("Files:"))
	fmt.Fprintf(out, "  Registry: %s\n", d.cfg.Paths.RegistryFile)
	fmt.Fprintf(out, "  Plugins:  %s\n", d.cfg.Paths.PluginsDir)
}

func (d *Dispatcher) printVersion() {
	fmt.Fprintf(d.io.Out, "jex %s\n", d.cfg.Build.Version)
	if d.cfg.Build.Commit != "" {
		fmt.Fprintf(d.io.Out, "  commit: %s\n", d.cfg.Build.Commit)
	}
	if d.cfg.Build.Date != "" {
		fmt.Fprintf(d.io.Out, "  built:  %s\n", d.cfg.Build.Date)
	}
}
