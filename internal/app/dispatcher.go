// Package app wires the jex components together and maps the command line
// onto them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmmirabile/Jex/internal/adapters/logging"
	"github.com/jmmirabile/Jex/internal/adapters/registryfile"
	"github.com/jmmirabile/Jex/internal/domain/artifact"
	"github.com/jmmirabile/Jex/internal/domain/builtin"
	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/manager"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// BuildInfo is the version information injected at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Config configures a Dispatcher.
type Config struct {
	Paths    config.Paths
	IO       plugin.IO
	FS       ports.FileSystem
	Builtins *builtin.Set
	Build    BuildInfo

	// LogLevel is a level name; empty means warn.
	LogLevel string
	// LogOutput receives log lines (default: IO.Err).
	LogOutput io.Writer

	// GOOS selects the setup layout (default: runtime.GOOS).
	GOOS string
	// Getenv is used by setup for PATH guidance (default: os.Getenv).
	Getenv func(string) string
	// Executable locates the running binary for setup (default: os.Executable).
	Executable func() (string, error)
	// PluginEnv is the environment given to plugins. Nil means os.Environ().
	PluginEnv []string
}

// Dispatcher resolves the command line to a host action or a plugin.
type Dispatcher struct {
	cfg Config
	io  plugin.IO
}

// components are the services of one invocation.
type components struct {
	logger  ports.Logger
	repo    registry.Repository
	loader  *artifact.Loader
	manager *manager.Manager
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Builtins == nil {
		cfg.Builtins = builtin.Default()
	}
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	if cfg.Executable == nil {
		cfg.Executable = os.Executable
	}
	if cfg.Build.Version == "" {
		cfg.Build.Version = "dev"
	}
	streams := cfg.IO.WithDefaults()
	if cfg.LogOutput == nil {
		cfg.LogOutput = streams.Err
	}
	return &Dispatcher{cfg: cfg, io: streams}
}

// Run executes argv (without the program name) and returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, argv []string) int {
	if len(argv) == 0 {
		d.printHelp()
		return 0
	}
	if !strings.HasPrefix(argv[0], "-") {
		return d.dispatch(ctx, d.wire(false, false), argv[0], argv[1:])
	}
	return d.runHost(ctx, argv)
}

func (d *Dispatcher) wire(debug, json bool) *components {
	level := ports.ParseLevel(d.cfg.LogLevel)
	if debug {
		level = ports.LevelDebug
	}
	logger := logging.NewHCLogger(logging.Options{
		Output: d.cfg.LogOutput,
		Level:  level,
		JSON:   json,
	})

	repo := registryfile.NewYAMLRepository(d.cfg.FS, logger)
	loader := artifact.NewLoader(artifact.Config{
		PluginsDir: d.cfg.Paths.PluginsDir,
		IO:         d.io,
		Env:        d.cfg.PluginEnv,
		Logger:     logger,
	})
	return &components{
		logger: logger,
		repo:   repo,
		loader: loader,
		manager: manager.New(manager.Config{
			RegistryFile: d.cfg.Paths.RegistryFile,
			PluginsDir:   d.cfg.Paths.PluginsDir,
			Repository:   repo,
			FileSystem:   d.cfg.FS,
			Loader:       loader,
			Reserved:     d.cfg.Builtins.Has,
			Logger:       logger,
		}),
	}
}

// dispatch runs the built-in or installed plugin called name.
func (d *Dispatcher) dispatch(ctx context.Context, c *components, name string, args []string) int {
	p, code, ok := d.resolve(ctx, c, name)
	if !ok {
		return code
	}
	defer func() {
		if err := plugin.Close(ctx, p); err != nil {
			c.logger.Debug(ctx, "failed to release plugin", ports.F("plugin", name), ports.F("error", err))
		}
	}()

	c.logger.Debug(ctx, "executing plugin", ports.F("plugin", name), ports.F("args", args))
	err := execute(ctx, p, args)
	if err == nil {
		return 0
	}
	var exitErr *plugin.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	d.printError(err, c)
	return 1
}

// resolve looks name up in the built-in set first, then in the registry.
func (d *Dispatcher) resolve(ctx context.Context, c *components, name string) (plugin.Plugin, int, bool) {
	if p, ok := d.cfg.Builtins.Resolve(name, builtin.Env{
		IO:      d.io,
		Paths:   d.cfg.Paths,
		Manager: c.manager,
		Loader:  c.loader,
		FS:      d.cfg.FS,
		Logger:  c.logger,
	}); ok {
		return p, 0, true
	}

	// A malformed registry is logged by the repository and read as empty.
	reg, _ := c.repo.Load(ctx, d.cfg.Paths.RegistryFile)
	desc, ok := reg.Get(name)
	if !ok {
		fmt.Fprintf(d.io.Err, "%s Unknown command or plugin: %s\n", d.styles(d.io.Err).Error.Render("Error:"), name)
		d.list(ctx, c)
		return nil, 1, false
	}

	mod, err := c.loader.Load(ctx, desc)
	if err != nil {
		fmt.Fprintf(d.io.Err, "%s failed to load plugin %s: %v\n", d.styles(d.io.Err).Error.Render("Error:"), name, err)
		return nil, 1, false
	}
	return mod, 0, true
}

// execute runs p, turning a panic into an error.
func execute(ctx context.Context, p plugin.Plugin, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Execute(ctx, args)
}

func (d *Dispatcher) styles(w io.Writer) styles {
	return newStyles(lipgloss.NewRenderer(w))
}
