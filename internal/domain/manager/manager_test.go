package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmmirabile/Jex/internal/adapters/filesystem"
	"github.com/jmmirabile/Jex/internal/adapters/logging"
	"github.com/jmmirabile/Jex/internal/adapters/registryfile"
	"github.com/jmmirabile/Jex/internal/domain/artifact"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/testutil/mocks"
	"github.com/jmmirabile/Jex/internal/testutil/wasmtest"
)

type fixture struct {
	mgr          *Manager
	fs           *mocks.FileSystem
	repo         *registryfile.YAMLRepository
	pluginsDir   string
	registryFile string
	srcDir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	f := &fixture{
		fs:           mocks.NewFileSystem(filesystem.NewRealFileSystem()),
		pluginsDir:   filepath.Join(root, "config", "plugins"),
		registryFile: filepath.Join(root, "config", "plugin.yaml"),
		srcDir:       filepath.Join(root, "src"),
	}
	logger := logging.NewNopLogger()
	f.repo = registryfile.NewYAMLRepository(f.fs, logger)
	f.mgr = New(Config{
		RegistryFile: f.registryFile,
		PluginsDir:   f.pluginsDir,
		Repository:   f.repo,
		FileSystem:   f.fs,
		Loader:       artifact.NewLoader(artifact.Config{PluginsDir: f.pluginsDir, Logger: logger}),
		Reserved:     func(name string) bool { return name == "info" },
		Logger:       logger,
	})
	return f
}

// jar writes a plugin archive into the source directory.
func (f *fixture) jar(t *testing.T, file, name, manifest string) string {
	t.Helper()
	return wasmtest.PluginJar(t, f.srcDir, file, wasmtest.Plugin{Name: name}, manifest)
}

func (f *fixture) registry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := f.repo.Load(context.Background(), f.registryFile)
	require.NoError(t, err)
	return reg
}

func (f *fixture) pluginFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.pluginsDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func requirePhase(t *testing.T, err error, want Phase) {
	t.Helper()
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, want, opErr.Phase)
}

func TestManager_Install(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	src := f.jar(t, "greet.jar", "greet", "")

	result, err := f.mgr.Install(ctx, "greet", src)
	require.NoError(t, err)
	assert.Equal(t, PhaseCommitted, result.Phase)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, registry.Descriptor{
		Name:         "greet",
		ArtifactPath: "greet.jar",
		EntryPoint:   "greet.wasm",
		Version:      plugin.DefaultVersion,
		Description:  plugin.DefaultDescription,
	}, result.Descriptor)

	d, ok := f.registry(t).Get("greet")
	require.True(t, ok)
	assert.Equal(t, result.Descriptor, d)
	assert.Equal(t, []string{"greet.jar"}, f.pluginFiles(t))

	// The source is copied, not moved.
	assert.FileExists(t, src)
}

func TestManager_Install_UsesManifest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	src := f.jar(t, "greet.jar", "greet", "version: 1.4.2\ndescription: Friendly greeter\n")

	result, err := f.mgr.Install(context.Background(), "greet", src)
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", result.Descriptor.Version)
	assert.Equal(t, "Friendly greeter", result.Descriptor.Description)
}

func TestManager_Install_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", ""))
	require.NoError(t, err)

	otherDir := t.TempDir()
	sameFile := wasmtest.PluginJar(t, otherDir, "greet.jar", wasmtest.Plugin{Name: "hello"}, "")
	notPlugin := wasmtest.WriteFile(t, otherDir, "lib.wasm", wasmtest.Module(wasmtest.Plugin{Name: "lib", OmitExecute: true}))

	tests := []struct {
		name    string
		plugin  string
		source  string
		wantErr error
	}{
		{name: "already installed", plugin: "greet", source: f.jar(t, "greet2.jar", "greet", ""), wantErr: ErrAlreadyInstalled},
		{name: "invalid name", plugin: "../evil", source: f.jar(t, "evil.jar", "evil", ""), wantErr: plugin.ErrInvalidName},
		{name: "missing source", plugin: "ghost", source: filepath.Join(otherDir, "ghost.jar"), wantErr: plugin.ErrArtifactNotFound},
		{name: "directory source", plugin: "ghost", source: otherDir, wantErr: plugin.ErrArtifactNotFound},
		{name: "not a plugin", plugin: "lib", source: notPlugin, wantErr: plugin.ErrNotAPlugin},
		{name: "artifact in use", plugin: "hello", source: sameFile, wantErr: ErrArtifactInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.Install(ctx, tt.plugin, tt.source)
			require.ErrorIs(t, err, tt.wantErr)
			requirePhase(t, err, PhaseFailed)
		})
	}

	assert.Equal(t, []string{"greet"}, f.registry(t).Names())
	assert.Equal(t, []string{"greet.jar"}, f.pluginFiles(t))
}

func TestManager_Install_SaveFailureRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	src := f.jar(t, "greet.jar", "greet", "")

	f.fs.FailOn(mocks.OpWriteFileAtomic, "plugin.yaml", 1)

	_, err := f.mgr.Install(ctx, "greet", src)
	require.ErrorIs(t, err, registry.ErrSaveFailed)
	requirePhase(t, err, PhaseRolledBack)

	assert.Equal(t, 0, f.registry(t).Len())
	assert.Empty(t, f.pluginFiles(t))

	// The fault is spent; retrying succeeds.
	result, err := f.mgr.Install(ctx, "greet", src)
	require.NoError(t, err)
	assert.Equal(t, PhaseCommitted, result.Phase)
	assert.True(t, f.registry(t).Has("greet"))
}

func TestManager_Install_CopyFailureLeavesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fs.FailOn(mocks.OpRename, "greet.jar", 1)

	_, err := f.mgr.Install(context.Background(), "greet", f.jar(t, "greet.jar", "greet", ""))
	require.ErrorIs(t, err, mocks.ErrInjected)
	requirePhase(t, err, PhaseFailed)

	assert.Empty(t, f.pluginFiles(t), "staging file is cleaned up")
	assert.False(t, f.fs.Exists(f.registryFile))
}

func TestManager_Install_AfterInterruptedInstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	src := f.jar(t, "greet.jar", "greet", "")

	// Simulate a crash after the artifact was placed but before the registry
	// was saved.
	require.NoError(t, os.MkdirAll(f.pluginsDir, 0o755))
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.pluginsDir, "greet.jar"), data, 0o644))

	report, err := f.mgr.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"greet.jar"}, report.Untracked)
	assert.False(t, f.registry(t).Has("greet"))

	_, err = f.mgr.Install(ctx, "greet", src)
	require.NoError(t, err)

	report, err = f.mgr.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestManager_RefusesInvalidRegistry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	garbage := []byte("greet: [not, a, mapping\n")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.registryFile), 0o755))
	require.NoError(t, os.WriteFile(f.registryFile, garbage, 0o644))

	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", ""))
	require.ErrorIs(t, err, registry.ErrInvalidRegistry)

	_, err = f.mgr.Uninstall(ctx, "greet")
	require.ErrorIs(t, err, registry.ErrInvalidRegistry)

	_, err = f.mgr.Check(ctx)
	require.ErrorIs(t, err, registry.ErrInvalidRegistry)

	data, err := os.ReadFile(f.registryFile)
	require.NoError(t, err)
	assert.Equal(t, garbage, data, "registry file is left untouched")
	assert.Empty(t, f.pluginFiles(t))
}

func TestManager_Update(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", "version: 1.0.0\n"))
	require.NoError(t, err)

	newDir := t.TempDir()
	src := wasmtest.PluginJar(t, newDir, "greet.jar", wasmtest.Plugin{Name: "greet", Stdout: "v2"}, "version: 2.0.0\n")

	result, err := f.mgr.Update(ctx, "greet", src)
	require.NoError(t, err)
	assert.Equal(t, PhaseCommitted, result.Phase)
	assert.Empty(t, result.Warnings)

	d, ok := f.registry(t).Get("greet")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", d.Version)
	assert.Equal(t, []string{"greet.jar"}, f.pluginFiles(t), "backup removed after commit")

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(f.pluginsDir, "greet.jar"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestManager_Update_NotInstalled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.mgr.Update(context.Background(), "missing", f.jar(t, "missing.jar", "missing", ""))
	require.ErrorIs(t, err, ErrNotInstalled)
	requirePhase(t, err, PhaseFailed)
	assert.False(t, f.fs.Exists(f.registryFile))
}

func TestManager_Update_SaveFailureRestoresPrevious(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", "version: 1.0.0\n"))
	require.NoError(t, err)
	before := f.registry(t)
	original, err := os.ReadFile(filepath.Join(f.pluginsDir, "greet.jar"))
	require.NoError(t, err)

	src := wasmtest.PluginJar(t, t.TempDir(), "greet.jar", wasmtest.Plugin{Name: "greet"}, "version: 2.0.0\n")
	f.fs.FailOn(mocks.OpWriteFileAtomic, "plugin.yaml", 1)

	_, err = f.mgr.Update(ctx, "greet", src)
	require.ErrorIs(t, err, registry.ErrSaveFailed)
	requirePhase(t, err, PhaseRolledBack)

	assert.True(t, before.Equal(f.registry(t)))
	restored, err := os.ReadFile(filepath.Join(f.pluginsDir, "greet.jar"))
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.Equal(t, []string{"greet.jar"}, f.pluginFiles(t))
}

func TestManager_Update_RenamedArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet-1.0.jar", "greet", "version: 1.0.0\n"))
	require.NoError(t, err)

	result, err := f.mgr.Update(ctx, "greet", f.jar(t, "greet-0.9.jar", "greet", "version: 0.9.0\n"))
	require.NoError(t, err)
	assert.Equal(t, "greet-0.9.jar", result.Descriptor.ArtifactPath)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "older")

	assert.Equal(t, []string{"greet-0.9.jar"}, f.pluginFiles(t), "old artifact removed")
}

func TestManager_Uninstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "hello", f.jar(t, "hello.jar", "hello", ""))
	require.NoError(t, err)

	before := f.registry(t)
	filesBefore := f.pluginFiles(t)

	_, err = f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", ""))
	require.NoError(t, err)

	result, err := f.mgr.Uninstall(ctx, "greet")
	require.NoError(t, err)
	assert.Equal(t, PhaseCommitted, result.Phase)
	assert.Equal(t, "greet.jar", result.Descriptor.ArtifactPath)

	// Install followed by uninstall leaves everything as it was.
	assert.True(t, before.Equal(f.registry(t)))
	assert.Equal(t, filesBefore, f.pluginFiles(t))
}

func TestManager_Uninstall_NotInstalled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.mgr.Uninstall(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotInstalled)
	requirePhase(t, err, PhaseFailed)
}

func TestManager_Uninstall_SaveFailureRestoresArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", ""))
	require.NoError(t, err)

	f.fs.FailOn(mocks.OpWriteFileAtomic, "plugin.yaml", 1)
	_, err = f.mgr.Uninstall(ctx, "greet")
	require.ErrorIs(t, err, registry.ErrSaveFailed)
	requirePhase(t, err, PhaseRolledBack)

	assert.True(t, f.registry(t).Has("greet"))
	assert.Equal(t, []string{"greet.jar"}, f.pluginFiles(t))
}

func TestManager_Uninstall_MissingArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", ""))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.pluginsDir, "greet.jar")))

	result, err := f.mgr.Uninstall(ctx, "greet")
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 1)
	assert.False(t, f.registry(t).Has("greet"))
}

func TestManager_ReservedNameWarning(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.mgr.Install(context.Background(), "info", f.jar(t, "info.jar", "info", ""))
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "built-in")
}

func TestManager_CheckAndClean(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Install(ctx, "greet", f.jar(t, "greet.jar", "greet", ""))
	require.NoError(t, err)
	_, err = f.mgr.Install(ctx, "hello", f.jar(t, "hello.jar", "hello", ""))
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.pluginsDir, "hello.jar")))
	require.NoError(t, os.WriteFile(filepath.Join(f.pluginsDir, ".greet.jar.staging"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.pluginsDir, "stray.wasm"), []byte("x"), 0o644))

	report, err := f.mgr.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []string{".greet.jar.staging", "stray.wasm"}, report.Untracked)
	require.Len(t, report.Dangling, 1)
	assert.Equal(t, "hello", report.Dangling[0].Name)

	removed, err := f.mgr.Clean(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, report.Untracked, removed)
	assert.Equal(t, []string{"greet.jar"}, f.pluginFiles(t))
}

func TestManager_CheckWithoutPluginsDir(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	report, err := f.mgr.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
}
