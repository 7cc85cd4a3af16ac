// Package builtin holds the commands compiled into jex. They are resolved
// before the plugin registry, so an installed plugin can never shadow one.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmmirabile/Jex/internal/domain/artifact"
	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/manager"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/ports"
)

// Env is what a built-in command may use.
type Env struct {
	IO      plugin.IO
	Paths   config.Paths
	Manager *manager.Manager
	Loader  *artifact.Loader
	FS      ports.FileSystem
	Logger  ports.Logger

	set *Set
}

// Factory creates a built-in command.
type Factory func(Env) plugin.Plugin

// Set is a fixed table of built-in commands.
type Set struct {
	factories map[string]Factory
}

// NewSet creates a Set from a name to factory table.
func NewSet(table map[string]Factory) *Set {
	factories := make(map[string]Factory, len(table))
	for name, f := range table {
		factories[name] = f
	}
	return &Set{factories: factories}
}

// Default returns the built-in commands shipped with jex.
func Default() *Set {
	return NewSet(map[string]Factory{
		infoName:      newInfo,
		doctorName:    newDoctor,
		newPluginName: newNewPlugin,
	})
}

// Resolve creates the command registered under name.
func (s *Set) Resolve(name string, env Env) (plugin.Plugin, bool) {
	f, ok := s.factories[name]
	if !ok {
		return nil, false
	}
	env.IO = env.IO.WithDefaults()
	env.set = s
	return f(env), true
}

// Has reports whether name is a built-in command.
func (s *Set) Has(name string) bool {
	_, ok := s.factories[name]
	return ok
}

// Names returns the built-in command names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.factories))
	for name := range s.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// command adapts a cobra command to plugin.Plugin. The cobra command is built
// per call so flag state never leaks between invocations.
type command struct {
	name  string
	env   Env
	build func(env Env) *cobra.Command
}

func (c *command) Name() string { return c.name }

func (c *command) DeclaredOptions() []string {
	cmd := c.build(c.env)
	cmd.InitDefaultHelpFlag()

	var opts []string
	for _, line := range strings.Split(cmd.Flags().FlagUsages(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			opts = append(opts, line)
		}
	}
	return opts
}

func (c *command) Execute(ctx context.Context, args []string) error {
	if args == nil {
		// cobra falls back to os.Args when given nil.
		args = []string{}
	}

	cmd := c.build(c.env)
	cmd.SetArgs(args)
	cmd.SetIn(c.env.IO.In)
	cmd.SetOut(c.env.IO.Out)
	cmd.SetErr(c.env.IO.Err)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.ExecuteContext(ctx); err != nil {
		var exitErr *plugin.ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}
