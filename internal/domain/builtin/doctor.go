package builtin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmmirabile/Jex/internal/domain/plugin"
)

const doctorName = "doctor"

func newDoctor(env Env) plugin.Plugin {
	return &command{name: doctorName, env: env, build: buildDoctor}
}

func buildDoctor(env Env) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the registry against the plugins directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			report, err := env.Manager.Check(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Registry: %s\n", env.Paths.RegistryFile)
			fmt.Fprintf(out, "Plugins:  %s\n\n", env.Paths.PluginsDir)

			problems := 0
			dangling := make(map[string]bool, len(report.Dangling))
			for _, d := range report.Dangling {
				dangling[d.Name] = true
				problems++
				fmt.Fprintf(out, "  ✗ %s: artifact %s is missing\n", d.Name, d.ArtifactPath)
			}

			reg, _ := env.Manager.Installed(ctx)
			for _, d := range reg.Descriptors() {
				if dangling[d.Name] {
					continue
				}
				m, err := env.Loader.Load(ctx, d)
				if err != nil {
					problems++
					fmt.Fprintf(out, "  ✗ %s: %v\n", d.Name, err)
					continue
				}
				_ = m.Close(ctx)
				fmt.Fprintf(out, "  ✓ %s\n", d.Name)
			}

			for _, file := range report.Untracked {
				fmt.Fprintf(out, "  ! %s is not referenced by the registry\n", file)
			}

			if fix && len(report.Untracked) > 0 {
				removed, err := env.Manager.Clean(ctx, report)
				for _, file := range removed {
					fmt.Fprintf(out, "  removed %s\n", file)
				}
				if err != nil {
					return err
				}
			} else {
				problems += len(report.Untracked)
			}

			fmt.Fprintln(out)
			if problems == 0 {
				fmt.Fprintln(out, "No problems found.")
				return nil
			}
			fmt.Fprintf(out, "%d problem(s) found.", problems)
			if len(report.Untracked) > 0 && !fix {
				fmt.Fprint(out, " Run 'jex doctor --fix' to remove untracked artifacts.")
			}
			fmt.Fprintln(out)
			return plugin.Exit(1)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "remove artifacts the registry does not reference")
	return cmd
}
