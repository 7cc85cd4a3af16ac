// Package artifact turns plugin artifacts on disk into executable plugins.
//
// An artifact is either a bare WebAssembly module or a zip archive holding
// one or more modules plus an optional manifest. Every unit is compiled in its
// own wazero runtime, so two plugins never share symbols, memory or host state.
//
// A unit is a plugin when it implements ABI version 1:
//
//	memory                       exported linear memory
//	plugin_abi_version() -> i32  must return 1
//	plugin_name() -> i64         (ptr << 32) | len of the UTF-8 name
//	plugin_options() -> i64      optional, newline separated option list
//	plugin_execute() -> i32      exit code; arguments arrive as WASI argv
package artifact

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// ABIVersion is the plugin ABI implemented by this host.
const ABIVersion = 1

// Plugin ABI exports.
const (
	ExportMemory     = "memory"
	ExportABIVersion = "plugin_abi_version"
	ExportName       = "plugin_name"
	ExportOptions    = "plugin_options"
	ExportExecute    = "plugin_execute"
)

// Config configures a Loader.
type Config struct {
	// PluginsDir is where installed artifacts live.
	PluginsDir string
	// IO is wired to the standard streams of executed plugins.
	IO plugin.IO
	// Env is passed to plugins as KEY=VALUE pairs. Nil means os.Environ().
	Env []string
	// Logger receives loader diagnostics and plugin log calls.
	Logger ports.Logger
}

// Loader loads plugin artifacts. It holds no state between calls.
type Loader struct {
	pluginsDir string
	io         plugin.IO
	env        []string
	logger     ports.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg Config) *Loader {
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}
	return &Loader{
		pluginsDir: cfg.PluginsDir,
		io:         cfg.IO.WithDefaults(),
		env:        env,
		logger:     cfg.Logger.Named("loader"),
	}
}

// Load resolves d against the plugins directory and loads its entry point.
func (l *Loader) Load(ctx context.Context, d registry.Descriptor) (*Module, error) {
	if !registry.IsBareFileName(d.ArtifactPath) {
		return nil, &LoadError{
			Path: d.ArtifactPath,
			Err:  fmt.Errorf("%w: artifact must be a file inside the plugins directory", plugin.ErrArtifactNotFound),
		}
	}
	path := filepath.Join(l.pluginsDir, d.ArtifactPath)

	l.logger.Debug(ctx, "loading plugin",
		ports.F("plugin", d.Name), ports.F("artifact", path), ports.F("entry", d.EntryPoint))

	c, err := open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	m, err := l.instantiate(ctx, c, d.EntryPoint)
	if err != nil {
		return nil, &LoadError{Path: path, Unit: d.EntryPoint, Err: err}
	}
	return m, nil
}

// Discover scans every unit of the artifact at path and returns the first
// one implementing the plugin ABI. A manifest entry is tried first.
func (l *Loader) Discover(ctx context.Context, path string) (*Module, error) {
	c, err := open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	candidates := c.candidates()
	if len(candidates) == 0 {
		return nil, &LoadError{
			Path: path,
			Err:  fmt.Errorf("%w: no WebAssembly modules found (format: %s)", plugin.ErrNotAPlugin, c.format),
		}
	}

	failures := make([]string, 0, len(candidates))
	for _, unit := range candidates {
		m, err := l.instantiate(ctx, c, unit)
		if err == nil {
			l.logger.Debug(ctx, "discovered plugin", ports.F("artifact", path), ports.F("entry", unit), ports.F("plugin", m.Name()))
			return m, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.Debug(ctx, "unit is not a plugin", ports.F("artifact", path), ports.F("unit", unit), ports.F("error", err.Error()))
		failures = append(failures, fmt.Sprintf("%s: %v", unit, err))
	}

	return nil, &LoadError{
		Path: path,
		Err:  fmt.Errorf("%w: %s", plugin.ErrNotAPlugin, strings.Join(failures, "; ")),
	}
}

// instantiate compiles unit in a fresh runtime and probes it for the plugin
// capability. On failure the runtime is closed.
func (l *Loader) instantiate(ctx context.Context, c *contents, unit string) (_ *Module, err error) {
	code, err := c.read(unit)
	if err != nil {
		return nil, err
	}

	logger := l.logger.Named("plugin").With(ports.F("unit", unit))
	rt, err := newRuntime(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plugin.ErrEntryPointInvalid, err)
	}
	defer func() {
		if err != nil {
			_ = rt.Close(ctx)
		}
	}()

	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compile: %w", plugin.ErrEntryPointInvalid, err)
	}

	if err := checkExports(compiled); err != nil {
		return nil, err
	}

	probe, err := rt.InstantiateModule(ctx, compiled, l.moduleConfig(nil, plugin.IO{}.WithDefaults()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to instantiate: %w", plugin.ErrEntryPointInvalid, err)
	}
	defer func() { _ = probe.Close(ctx) }()

	version, err := callI32(ctx, probe, ExportABIVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plugin.ErrNotAPlugin, err)
	}
	if version != ABIVersion {
		return nil, fmt.Errorf("%w: unsupported plugin ABI version %d (host supports %d)", plugin.ErrNotAPlugin, version, ABIVersion)
	}

	name, err := callString(ctx, probe, ExportName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plugin.ErrNotAPlugin, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: %s returned an empty name", plugin.ErrNotAPlugin, ExportName)
	}

	var options []string
	if probe.ExportedFunction(ExportOptions) != nil {
		raw, err := callString(ctx, probe, ExportOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", plugin.ErrNotAPlugin, err)
		}
		options = splitOptions(raw)
	}

	return &Module{
		loader:   l,
		runtime:  rt,
		compiled: compiled,
		path:     c.path,
		entry:    unit,
		name:     name,
		options:  options,
		manifest: c.manifest.WithDefaults(),
	}, nil
}

type exportSignature struct {
	name     string
	results  []api.ValueType
	optional bool
}

var abiExports = []exportSignature{
	{name: ExportABIVersion, results: []api.ValueType{api.ValueTypeI32}},
	{name: ExportName, results: []api.ValueType{api.ValueTypeI64}},
	{name: ExportOptions, results: []api.ValueType{api.ValueTypeI64}, optional: true},
	{name: ExportExecute, results: []api.ValueType{api.ValueTypeI32}},
}

// checkExports verifies the compiled module declares the ABI exports.
func checkExports(compiled wazero.CompiledModule) error {
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return fmt.Errorf("%w: missing exported %q", plugin.ErrNotAPlugin, ExportMemory)
	}

	funcs := compiled.ExportedFunctions()
	for _, want := range abiExports {
		def, ok := funcs[want.name]
		if !ok {
			if want.optional {
				continue
			}
			return fmt.Errorf("%w: missing export %q", plugin.ErrNotAPlugin, want.name)
		}
		if len(def.ParamTypes()) != 0 || !sameTypes(def.ResultTypes(), want.results) {
			return fmt.Errorf("%w: export %q has the wrong signature", plugin.ErrNotAPlugin, want.name)
		}
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func callI32(ctx context.Context, m api.Module, name string) (int32, error) {
	results, err := m.ExportedFunction(name).Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", name, err)
	}
	return api.DecodeI32(results[0]), nil
}

// callString calls a function returning a packed (ptr << 32) | len and
// copies the referenced bytes.
func callString(ctx context.Context, m api.Module, name string) (string, error) {
	results, err := m.ExportedFunction(name).Call(ctx)
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	packed := results[0]
	ptr, length := uint32(packed>>32), uint32(packed)
	if length == 0 {
		return "", nil
	}
	data, ok := m.Memory().Read(ptr, length)
	if !ok {
		return "", fmt.Errorf("%s returned out of range memory (ptr=%d, len=%d)", name, ptr, length)
	}
	return string(data), nil
}

func splitOptions(raw string) []string {
	var options []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			options = append(options, line)
		}
	}
	return options
}

// moduleConfig builds the instantiation config for one run of a unit.
func (l *Loader) moduleConfig(args []string, streams plugin.IO) wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(args...).
		WithStdin(streams.In).
		WithStdout(streams.Out).
		WithStderr(streams.Err).
		WithStartFunctions("_initialize").
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(hostRoot(), "/"))

	for _, kv := range l.env {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			cfg = cfg.WithEnv(k, v)
		}
	}
	return cfg
}

func hostRoot() string {
	if runtime.GOOS == "windows" {
		if wd, err := os.Getwd(); err == nil {
			return filepath.VolumeName(wd) + `\`
		}
	}
	return "/"
}
