package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"

	"github.com/jmmirabile/Jex/internal/domain/plugin"
)

// ErrModuleClosed is returned when executing a module after Close.
var ErrModuleClosed = errors.New("plugin module is closed")

// Module is a loaded plugin unit. It owns its runtime until Close.
type Module struct {
	loader   *Loader
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	path     string
	entry    string
	name     string
	options  []string
	manifest plugin.Manifest

	mu     sync.Mutex
	closed bool
}

// Name returns the name reported by the plugin.
func (m *Module) Name() string {
	return m.name
}

// DeclaredOptions returns the options the plugin documents.
func (m *Module) DeclaredOptions() []string {
	out := make([]string, len(m.options))
	copy(out, m.options)
	return out
}

// EntryPoint returns the unit identifier inside the artifact.
func (m *Module) EntryPoint() string {
	return m.entry
}

// Path returns the artifact file the module was loaded from.
func (m *Module) Path() string {
	return m.path
}

// Manifest returns the artifact metadata with defaults applied.
func (m *Module) Manifest() plugin.Manifest {
	return m.manifest
}

// Execute runs the plugin in a fresh instance with args as argv[1:].
func (m *Module) Execute(ctx context.Context, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrModuleClosed
	}

	argv := append([]string{m.name}, args...)
	instance, err := m.runtime.InstantiateModule(ctx, m.compiled, m.loader.moduleConfig(argv, m.loader.io))
	if err != nil {
		if code, ok := exitCode(err); ok && ctx.Err() == nil {
			return plugin.Exit(code)
		}
		return fmt.Errorf("failed to start plugin %s: %w", m.name, err)
	}
	defer func() { _ = instance.Close(ctx) }()

	results, err := instance.ExportedFunction(ExportExecute).Call(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("plugin %s interrupted: %w", m.name, ctxErr)
		}
		if code, ok := exitCode(err); ok {
			return plugin.Exit(code)
		}
		return fmt.Errorf("plugin %s failed: %w", m.name, err)
	}

	return plugin.Exit(int(int32(uint32(results[0]))))
}

// Close releases the runtime and everything compiled in it.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.runtime.Close(ctx)
}

// exitCode extracts the status passed to WASI proc_exit.
func exitCode(err error) (int, bool) {
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.ExitCode()), true
	}
	return 0, false
}

var (
	_ plugin.Plugin = (*Module)(nil)
	_ plugin.Closer = (*Module)(nil)
)
