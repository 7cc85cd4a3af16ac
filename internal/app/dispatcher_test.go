package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmmirabile/Jex/internal/adapters/filesystem"
	"github.com/jmmirabile/Jex/internal/adapters/registryfile"
	"github.com/jmmirabile/Jex/internal/domain/builtin"
	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/testutil"
	"github.com/jmmirabile/Jex/internal/testutil/wasmtest"
)

type harness struct {
	cfg    Config
	out    *bytes.Buffer
	errOut *bytes.Buffer
	root   string
	srcDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	root := t.TempDir()
	h := &harness{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		root:   root,
		srcDir: filepath.Join(root, "src"),
	}
	exe := wasmtest.WriteFile(t, root, "build/jex", []byte("#!/bin/sh\necho jex\n"))
	h.cfg = Config{
		Paths: config.Paths{
			ConfigDir:    filepath.Join(root, "config"),
			PluginsDir:   filepath.Join(root, "config", "plugins"),
			RegistryFile: filepath.Join(root, "config", "plugin.yaml"),
			LibDir:       filepath.Join(root, "lib"),
			BinDir:       filepath.Join(root, "bin"),
		},
		IO:         plugin.IO{Out: h.out, Err: h.errOut},
		FS:         filesystem.NewRealFileSystem(),
		Build:      BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-02"},
		LogLevel:   "warn",
		GOOS:       "linux",
		Getenv:     func(key string) string { return map[string]string{"PATH": "/usr/bin:/bin"}[key] },
		Executable: func() (string, error) { return exe, nil },
		PluginEnv:  []string{},
	}
	return h
}

// run executes argv with fresh output buffers.
func (h *harness) run(argv ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	return New(h.cfg).Run(context.Background(), argv)
}

func (h *harness) jar(t *testing.T, file string, p wasmtest.Plugin) string {
	t.Helper()
	return wasmtest.PluginJar(t, h.srcDir, file, p, "")
}

func (h *harness) install(t *testing.T, name string, p wasmtest.Plugin) {
	t.Helper()
	p.Name = name
	code := h.run("--install-plugin", name, "--jar", h.jar(t, name+".jar", p))
	require.Equal(t, 0, code, h.errOut.String())
}

func TestDispatcher_Help(t *testing.T) {
	t.Parallel()

	for _, argv := range [][]string{nil, {"-h"}, {"--help"}, {"--debug"}} {
		h := newHarness(t)
		assert.Equal(t, 0, h.run(argv...), "argv %v", argv)
		assert.Contains(t, h.out.String(), "Usage:")
		assert.Contains(t, h.out.String(), "--install-plugin <name> --jar <path>")
		assert.Contains(t, h.out.String(), h.cfg.Paths.RegistryFile)
	}
}

func TestDispatcher_Version(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"-v", "--version"} {
		h := newHarness(t)
		assert.Equal(t, 0, h.run(flag))
		assert.Contains(t, h.out.String(), "jex 1.2.3")
		assert.Contains(t, h.out.String(), "commit: abc123")
	}
}

func TestDispatcher_ListEmpty(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	assert.Equal(t, 0, h.run("--list"))
	assert.Contains(t, h.out.String(), "No plugins installed.")
	assert.Contains(t, h.out.String(), "jex --install-plugin <name> --jar <path>")
	assert.Contains(t, h.out.String(), "Built-in commands: doctor, info, new-plugin")
}

func TestDispatcher_InstallAndRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{EchoArgs: true})
	assert.Contains(t, h.out.String(), "Installed plugin greet (v1.0.0)")

	assert.Equal(t, 0, h.run("-l"))
	assert.Contains(t, h.out.String(), "Installed Plugins:")
	assert.Contains(t, h.out.String(), "  greet (v1.0.0) - A jex plugin")

	assert.Equal(t, 0, h.run("greet", "--help", "x y"))
	assert.Equal(t, "greet\x00--help\x00x y\x00", h.out.String())
	assert.Empty(t, h.errOut.String())
}

func TestDispatcher_HostFlagsBeforePlugin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{EchoArgs: true})

	assert.Equal(t, 0, h.run("--debug", "greet", "--name", "x"))
	assert.Equal(t, "greet\x00--name\x00x\x00", h.out.String())
	assert.Contains(t, h.errOut.String(), "executing plugin")
}

func TestDispatcher_ExitCodes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "fail", wasmtest.Plugin{ExitCode: 3})
	h.install(t, "quit", wasmtest.Plugin{ExitCode: 7, ProcExit: true})

	assert.Equal(t, 3, h.run("fail"))
	assert.Empty(t, h.errOut.String())
	assert.Equal(t, 7, h.run("quit"))
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{})

	assert.Equal(t, 1, h.run("unknown-cmd"))
	assert.Contains(t, h.errOut.String(), "Error: Unknown command or plugin: unknown-cmd")
	assert.Contains(t, h.out.String(), "Installed Plugins:")
	assert.Contains(t, h.out.String(), "greet (v1.0.0)")
}

func TestDispatcher_BuiltinPrecedence(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	jar := h.jar(t, "info.jar", wasmtest.Plugin{Name: "info", Stdout: "external info\n"})

	assert.Equal(t, 0, h.run("--install-plugin", "info", "--jar", jar))
	assert.Contains(t, h.errOut.String(), "Warning:")
	assert.Contains(t, h.errOut.String(), "built-in takes precedence")

	assert.Equal(t, 0, h.run("info", "doctor"))
	assert.Contains(t, h.out.String(), "Type:        built-in")
	assert.NotContains(t, h.out.String(), "external info")
}

func TestDispatcher_ListIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{})
	h.install(t, "hello", wasmtest.Plugin{})

	require.Equal(t, 0, h.run("--list"))
	first := h.out.String()
	require.Equal(t, 0, h.run("--list"))

	assert.Equal(t, first, h.out.String())
}

func TestDispatcher_ListShowsUntracked(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wasmtest.WriteFile(t, h.cfg.Paths.PluginsDir, "stray.wasm", wasmtest.NotWasm())

	assert.Equal(t, 0, h.run("--list"))
	assert.Contains(t, h.out.String(), "Untracked artifacts in "+h.cfg.Paths.PluginsDir)
	assert.Contains(t, h.out.String(), "  stray.wasm")
}

func TestDispatcher_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"install without jar", []string{"--install-plugin", "greet"}, "Error: Usage: jex --install-plugin <name> --jar <path>"},
		{"update without jar", []string{"--update-plugin", "greet"}, "Error: Usage: jex --update-plugin <name> --jar <path>"},
		{"uninstall with jar", []string{"--uninstall-plugin", "greet", "--jar", "x.wasm"}, "Error: Usage: jex --uninstall-plugin <name>"},
		{"install with extra argument", []string{"--install-plugin", "greet", "--jar", "x.wasm", "extra"}, "Error: Usage: jex --install-plugin"},
		{"jar alone", []string{"--jar", "x.wasm"}, "Error: Usage: --jar requires"},
		{"two actions", []string{"--list", "--version"}, "only one action"},
		{"missing flag value", []string{"--uninstall-plugin"}, "Error: flag needs an argument"},
		{"unknown flag", []string{"--bogus"}, "Error: unknown flag: --bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)

			assert.Equal(t, 1, h.run(tt.argv...))
			assert.Contains(t, h.errOut.String(), tt.want)
			assert.NoFileExists(t, h.cfg.Paths.RegistryFile)
		})
	}
}

func TestDispatcher_UpdateMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	jar := h.jar(t, "greet-v2.jar", wasmtest.Plugin{Name: "greet"})

	assert.Equal(t, 1, h.run("--update-plugin", "greet", "--jar", jar))
	assert.Contains(t, h.errOut.String(), "plugin 'greet' is not installed")
	assert.NoFileExists(t, h.cfg.Paths.RegistryFile)
	assert.NoDirExists(t, h.cfg.Paths.PluginsDir)
}

func TestDispatcher_InstallTwice(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{})

	assert.Equal(t, 1, h.run("--install-plugin", "greet", "--jar", filepath.Join(h.srcDir, "greet.jar")))
	assert.Contains(t, h.errOut.String(), "plugin 'greet' is already installed")
	assert.Contains(t, h.errOut.String(), "--update-plugin greet")
}

func TestDispatcher_InstallInvalidArtifact(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	bad := wasmtest.WriteFile(t, h.srcDir, "bad.wasm", wasmtest.NotWasm())

	assert.Equal(t, 1, h.run("--install-plugin", "bad", "--jar", bad))
	assert.Contains(t, h.errOut.String(), "Error:")
	assert.Contains(t, h.errOut.String(), "Suggestion:")
	assert.NoFileExists(t, h.cfg.Paths.RegistryFile)
}

func TestDispatcher_Uninstall(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{})

	assert.Equal(t, 0, h.run("--uninstall-plugin", "greet"))
	assert.Contains(t, h.out.String(), "Uninstalled plugin greet")
	assert.NoFileExists(t, filepath.Join(h.cfg.Paths.PluginsDir, "greet.jar"))

	assert.Equal(t, 0, h.run("--list"))
	assert.Contains(t, h.out.String(), "No plugins installed.")

	assert.Equal(t, 1, h.run("--uninstall-plugin", "greet"))
	assert.Contains(t, h.errOut.String(), "plugin 'greet' is not installed")
}

func TestDispatcher_LoadFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.install(t, "greet", wasmtest.Plugin{})
	require.NoError(t, os.WriteFile(filepath.Join(h.cfg.Paths.PluginsDir, "greet.jar"), wasmtest.Corrupt(), 0o644))

	assert.Equal(t, 1, h.run("greet"))
	assert.Contains(t, h.errOut.String(), "Error: failed to load plugin greet:")
}

func TestDispatcher_InvalidRegistry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wasmtest.WriteFile(t, h.cfg.Paths.ConfigDir, "plugin.yaml", []byte("greet: [unterminated\n"))

	assert.Equal(t, 0, h.run("--list"))
	assert.Contains(t, h.out.String(), "No plugins installed.")
	assert.Contains(t, h.errOut.String(), "plugin registry is unreadable")

	jar := h.jar(t, "greet.jar", wasmtest.Plugin{Name: "greet"})
	assert.Equal(t, 1, h.run("--install-plugin", "greet", "--jar", jar))
	assert.Contains(t, h.errOut.String(), "plugin registry is not valid YAML")

	testutil.AssertFileEquals(t, h.cfg.Paths.RegistryFile, "greet: [unterminated\n")
}

func TestDispatcher_HandWrittenRegistry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wasmtest.WriteFile(t, h.cfg.Paths.PluginsDir, "greet.wasm", wasmtest.Module(wasmtest.Plugin{Name: "greet", Stdout: "hi\n"}))
	content := testutil.NewRegistryBuilder().
		WithComment("maintained by hand").
		WithPlugin("greet").
		WithDisabled("old").
		ToYAML()
	wasmtest.WriteFile(t, h.cfg.Paths.ConfigDir, "plugin.yaml", []byte(content))

	assert.Equal(t, 0, h.run("--list"))
	assert.Contains(t, h.out.String(), "  greet (version unknown)")
	assert.NotContains(t, h.out.String(), "old")

	assert.Equal(t, 0, h.run("greet"))
	assert.Equal(t, "hi\n", h.out.String())

	assert.Equal(t, 1, h.run("old"))
	assert.Contains(t, h.errOut.String(), "Unknown command or plugin: old")
}

type panicPlugin struct{}

func (panicPlugin) Name() string                            { return "boom" }
func (panicPlugin) DeclaredOptions() []string               { return nil }
func (panicPlugin) Execute(context.Context, []string) error { panic("kaboom") }

func TestDispatcher_RecoversBuiltinPanic(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.Builtins = builtin.NewSet(map[string]builtin.Factory{
		"boom": func(builtin.Env) plugin.Plugin { return panicPlugin{} },
	})

	assert.Equal(t, 1, h.run("boom"))
	assert.Contains(t, h.errOut.String(), "plugin boom panicked: kaboom")
}

func TestDispatcher_Setup(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	paths := h.cfg.Paths

	assert.Equal(t, 0, h.run("--install"), h.errOut.String())
	assert.Contains(t, h.out.String(), "Created registry")
	assert.Contains(t, h.out.String(), "is not on your PATH")
	assert.DirExists(t, paths.PluginsDir)

	testutil.AssertFileEquals(t, paths.RegistryFile, registryfile.Header)

	installed := filepath.Join(paths.LibDir, "jex")
	assert.FileExists(t, installed)

	testutil.AssertFileContains(t, filepath.Join(paths.BinDir, "jex"), `exec "`+installed+`" "$@"`)

	h.cfg.Getenv = func(string) string { return paths.BinDir }
	assert.Equal(t, 0, h.run("--setup"))
	assert.Contains(t, h.out.String(), "Registry exists")
	assert.NotContains(t, h.out.String(), "PATH")
}

func TestDispatcher_SetupFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.Executable = func() (string, error) { return filepath.Join(h.root, "missing"), nil }

	assert.Equal(t, 1, h.run("--install"))
	assert.Contains(t, h.errOut.String(), "setup failed: copy executable")
}
