package builtin

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/ports"
	"github.com/jmmirabile/Jex/internal/templates"
)

const newPluginName = "new-plugin"

func newNewPlugin(env Env) plugin.Plugin {
	return &command{name: newPluginName, env: env, build: buildNewPlugin}
}

func buildNewPlugin(env Env) *cobra.Command {
	var (
		module      string
		dir         string
		description string
	)

	cmd := &cobra.Command{
		Use:   "new-plugin <name>",
		Short: "Create a new plugin project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			if err := plugin.ValidateName(name); err != nil {
				return err
			}
			if env.set != nil && env.set.Has(name) {
				return config.NewUsageError(fmt.Sprintf("'%s' is a built-in command name", name))
			}

			target := dir
			if target == "" {
				target = name
			}
			target = ports.ExpandPath(target)

			if env.FS.Exists(target) {
				entries, err := env.FS.ReadDir(target)
				if err != nil {
					return err
				}
				if len(entries) > 0 {
					return config.NewUsageError(fmt.Sprintf("directory %s already exists and is not empty", target))
				}
			}

			files, err := templates.GenerateScaffold(templates.ScaffoldData{
				Name:        name,
				Module:      module,
				Description: description,
			})
			if err != nil {
				return err
			}

			for _, f := range files {
				path := filepath.Join(target, f.Path)
				if err := env.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := env.FS.WriteFileAtomic(path, []byte(f.Content), f.Mode); err != nil {
					return err
				}
				env.Logger.Debug(ctx, "wrote scaffold file", ports.F("path", path))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created plugin project %s in %s\n\n", name, target)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "  cd %s\n", target)
			fmt.Fprintf(out, "  GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o %s.wasm .\n", name)
			fmt.Fprintf(out, "  jex --install-plugin %s --jar %s.wasm\n", name, name)
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Go module path (default: the plugin name)")
	cmd.Flags().StringVar(&dir, "dir", "", "project directory (default: ./<name>)")
	cmd.Flags().StringVar(&description, "description", "", "plugin description")
	return cmd
}
