package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/manager"
)

// Usage lines of the lifecycle verbs.
const (
	usageInstallPlugin   = "Usage: jex --install-plugin <name> --jar <path>"
	usageUpdatePlugin    = "Usage: jex --update-plugin <name> --jar <path>"
	usageUninstallPlugin = "Usage: jex --uninstall-plugin <name>"
)

// hostOptions are the host-level flags.
type hostOptions struct {
	setup           bool
	list            bool
	version         bool
	installPlugin   string
	updatePlugin    string
	uninstallPlugin string
	jar             string
	debug           bool
	logJSON         bool
}

// runHost parses argv as host flags. Parsing stops at the first positional
// argument, which is then dispatched as a plugin with the rest of argv.
func (d *Dispatcher) runHost(ctx context.Context, argv []string) int {
	var (
		opts hostOptions
		code int
		c    *components
	)

	cmd := &cobra.Command{
		Use:           "jex",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c = d.wire(opts.debug, opts.logJSON)
			var err error
			code, err = d.runVerb(cmd, c, &opts, args)
			return err
		},
	}
	cmd.SetArgs(argv)
	cmd.SetIn(d.io.In)
	cmd.SetOut(d.io.Out)
	cmd.SetErr(d.io.Err)
	cmd.SetHelpFunc(func(*cobra.Command, []string) { d.printHelp() })
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return config.NewUsageError(err.Error())
	})

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.BoolVar(&opts.setup, "install", false, "set up directories, the registry and the jex wrapper")
	flags.BoolVar(&opts.setup, "setup", false, "alias of --install")
	flags.BoolVarP(&opts.list, "list", "l", false, "list installed plugins")
	flags.BoolVarP(&opts.version, "version", "v", false, "print version information")
	flags.StringVar(&opts.installPlugin, "install-plugin", "", "install a plugin under `name`")
	flags.StringVar(&opts.updatePlugin, "update-plugin", "", "replace the artifact of plugin `name`")
	flags.StringVar(&opts.uninstallPlugin, "uninstall-plugin", "", "remove plugin `name`")
	flags.StringVar(&opts.jar, "jar", "", "plugin artifact `path` (.wasm or .zip/.jar)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON")

	if err := cmd.ExecuteContext(ctx); err != nil {
		d.printError(err, c)
		return 1
	}
	return code
}

// runVerb performs the single host action selected by the flags.
func (d *Dispatcher) runVerb(cmd *cobra.Command, c *components, opts *hostOptions, args []string) (int, error) {
	ctx := cmd.Context()
	flags := cmd.Flags()

	var verbs []string
	for _, name := range []string{"install", "setup", "list", "version", "install-plugin", "update-plugin", "uninstall-plugin"} {
		if flags.Changed(name) {
			verbs = append(verbs, "--"+name)
		}
	}
	if len(verbs) > 1 {
		return 1, config.NewUsageError(fmt.Sprintf("Usage: only one action may be given, got %s", strings.Join(verbs, ", ")))
	}

	hasJar := flags.Changed("jar")
	switch {
	case flags.Changed("install-plugin"):
		if !hasJar || len(args) > 0 {
			return 1, config.NewUsageError(usageInstallPlugin)
		}
		return d.installPlugin(ctx, c, manager.OpInstall, opts.installPlugin, opts.jar)

	case flags.Changed("update-plugin"):
		if !hasJar || len(args) > 0 {
			return 1, config.NewUsageError(usageUpdatePlugin)
		}
		return d.installPlugin(ctx, c, manager.OpUpdate, opts.updatePlugin, opts.jar)

	case flags.Changed("uninstall-plugin"):
		if hasJar || len(args) > 0 {
			return 1, config.NewUsageError(usageUninstallPlugin)
		}
		return d.uninstallPlugin(ctx, c, opts.uninstallPlugin)
	}

	if hasJar {
		return 1, config.NewUsageError("Usage: --jar requires --install-plugin or --update-plugin")
	}

	switch {
	case opts.version:
		d.printVersion()
		return 0, nil
	case opts.setup:
		if err := d.setup(ctx, c); err != nil {
			return 1, err
		}
		return 0, nil
	case opts.list:
		d.list(ctx, c)
		return 0, nil
	case len(args) > 0:
		return d.dispatch(ctx, c, args[0], args[1:]), nil
	default:
		d.printHelp()
		return 0, nil
	}
}

func (d *Dispatcher) installPlugin(ctx context.Context, c *components, op manager.Op, name, jar string) (int, error) {
	var (
		result *manager.Result
		err    error
	)
	if op == manager.OpUpdate {
		result, err = c.manager.Update(ctx, name, jar)
	} else {
		result, err = c.manager.Install(ctx, name, jar)
	}
	if err != nil {
		return 1, err
	}

	st := d.styles(d.io.Out)
	verb := "Installed"
	if op == manager.OpUpdate {
		verb = "Updated"
	}
	fmt.Fprintf(d.io.Out, "%s %s plugin %s (%s)\n",
		st.Success.Render("✓"), verb, st.Name.Render(result.Name), versionLabel(result.Descriptor))
	d.printWarnings(result.Warnings)
	if op == manager.OpInstall {
		fmt.Fprintf(d.io.Out, "Run it with: jex %s\n", result.Name)
	}
	return 0, nil
}

func (d *Dispatcher) uninstallPlugin(ctx context.Context, c *components, name string) (int, error) {
	result, err := c.manager.Uninstall(ctx, name)
	if err != nil {
		return 1, err
	}

	st := d.styles(d.io.Out)
	fmt.Fprintf(d.io.Out, "%s Uninstalled plugin %s\n", st.Success.Render("✓"), st.Name.Render(result.Name))
	d.printWarnings(result.Warnings)
	return 0, nil
}

func (d *Dispatcher) printWarnings(warnings []string) {
	st := d.styles(d.io.Err)
	for _, w := range warnings {
		fmt.Fprintf(d.io.Err, "%s %s\n", st.Warning.Render("Warning:"), w)
	}
}
