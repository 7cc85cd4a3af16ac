package builtin

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/ports"
)

const infoName = "info"

func newInfo(env Env) plugin.Plugin {
	return &command{name: infoName, env: env, build: buildInfo}
}

func buildInfo(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show details about a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			name := args[0]

			if env.set != nil && env.set.Has(name) {
				p, _ := env.set.Resolve(name, env)
				fmt.Fprintf(out, "Name:        %s\n", name)
				fmt.Fprintln(out, "Type:        built-in")
				printOptions(cmd, p.DeclaredOptions())
				return nil
			}

			reg, err := env.Manager.Installed(ctx)
			if err != nil {
				env.Logger.Warn(ctx, "registry could not be read", ports.F("error", err))
			}
			d, ok := reg.Get(name)
			if !ok {
				return config.NewPluginNotFoundError(name)
			}

			fmt.Fprintf(out, "Name:        %s\n", d.Name)
			fmt.Fprintln(out, "Type:        plugin")
			fmt.Fprintf(out, "Version:     %s\n", d.DisplayVersion())
			if d.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", d.Description)
			}
			fmt.Fprintf(out, "Artifact:    %s\n", filepath.Join(env.Paths.PluginsDir, d.ArtifactPath))
			fmt.Fprintf(out, "Entry point: %s\n", d.EntryPoint)

			m, err := env.Loader.Load(ctx, d)
			if err != nil {
				fmt.Fprintf(out, "Status:      not loadable (%v)\n", err)
				return nil
			}
			defer func() { _ = m.Close(ctx) }()

			fmt.Fprintln(out, "Status:      ok")
			printOptions(cmd, m.DeclaredOptions())
			return nil
		},
	}
}

func printOptions(cmd *cobra.Command, opts []string) {
	out := cmd.OutOrStdout()
	if len(opts) == 0 {
		fmt.Fprintln(out, "Options:     none declared")
		return
	}
	fmt.Fprintln(out, "Options:")
	for _, o := range opts {
		fmt.Fprintf(out, "  %s\n", o)
	}
}
