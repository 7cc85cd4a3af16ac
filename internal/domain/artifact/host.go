package artifact

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/jmmirabile/Jex/internal/ports"
)

// HostModuleName is the import module plugins use for host services.
const HostModuleName = "jex"

// newRuntime creates a runtime dedicated to a single artifact unit, with
// WASI and the host module instantiated. Nothing is shared between runtimes.
func newRuntime(ctx context.Context, logger ports.Logger) (wazero.Runtime, error) {
	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true)

	r := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	if err := registerHostModule(ctx, r, logger); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return r, nil
}

// registerHostModule exposes the logging functions plugins may import.
func registerHostModule(ctx context.Context, r wazero.Runtime, logger ports.Logger) error {
	builder := r.NewHostModuleBuilder(HostModuleName)

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) {
			logger.Info(ctx, readString(m, ptr, length))
		}).
		Export("log_info")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) {
			logger.Warn(ctx, readString(m, ptr, length))
		}).
		Export("log_warn")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) {
			logger.Error(ctx, readString(m, ptr, length))
		}).
		Export("log_error")

	_, err := builder.Instantiate(ctx)
	return err
}

// readString copies a string out of module memory.
func readString(m api.Module, ptr, length uint32) string {
	if m == nil {
		return ""
	}
	mem := m.Memory()
	if mem == nil {
		return ""
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return ""
	}
	return string(data)
}
