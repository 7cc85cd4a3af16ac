// Package manager implements the plugin lifecycle: install, update and
// uninstall keep the registry file and the plugins directory consistent.
//
// Every operation is a transaction. Preconditions are checked first; then the
// plugins directory is changed (staged); the registry is saved last. If the
// save fails the staged change is undone, so a reader never sees a registry
// entry whose artifact is missing or half written.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmmirabile/Jex/internal/domain/artifact"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// Op names a lifecycle operation.
type Op string

// Lifecycle operations.
const (
	OpInstall   Op = "install"
	OpUpdate    Op = "update"
	OpUninstall Op = "uninstall"
)

// Suffixes of the temporary files kept in the plugins directory while an
// operation is in flight.
const (
	stagingSuffix  = ".staging"
	backupSuffix   = ".backup"
	removingSuffix = ".removing"
)

// Result describes a committed operation.
type Result struct {
	Op         Op
	Name       string
	Descriptor registry.Descriptor
	Phase      Phase
	// Warnings are non-fatal observations, e.g. a name shadowed by a built-in.
	Warnings []string
}

// Config configures a Manager.
type Config struct {
	RegistryFile string
	PluginsDir   string
	Repository   registry.Repository
	FileSystem   ports.FileSystem
	Loader       *artifact.Loader
	// Reserved reports names taken by built-in commands.
	Reserved func(name string) bool
	Logger   ports.Logger
}

// Manager performs lifecycle operations.
type Manager struct {
	registryFile string
	pluginsDir   string
	repo         registry.Repository
	fs           ports.FileSystem
	loader       *artifact.Loader
	reserved     func(string) bool
	logger       ports.Logger
}

// New creates a Manager.
func New(cfg Config) *Manager {
	reserved := cfg.Reserved
	if reserved == nil {
		reserved = func(string) bool { return false }
	}
	return &Manager{
		registryFile: cfg.RegistryFile,
		pluginsDir:   cfg.PluginsDir,
		repo:         cfg.Repository,
		fs:           cfg.FileSystem,
		loader:       cfg.Loader,
		reserved:     reserved,
		logger:       cfg.Logger.Named("manager"),
	}
}

// Installed loads the registry for reading. A malformed registry yields an
// empty registry together with the error.
func (m *Manager) Installed(ctx context.Context) (*registry.Registry, error) {
	return m.repo.Load(ctx, m.registryFile)
}

// loadForWrite loads the registry and refuses to continue if it is malformed,
// since saving would discard every entry.
func (m *Manager) loadForWrite(ctx context.Context) (*registry.Registry, error) {
	reg, err := m.repo.Load(ctx, m.registryFile)
	if err != nil {
		return nil, fmt.Errorf("refusing to modify the registry: %w", err)
	}
	return reg, nil
}

// Install registers a new plugin from the artifact at source.
func (m *Manager) Install(ctx context.Context, name, source string) (*Result, error) {
	tx, err := newTransaction(OpInstall, name)
	if err != nil {
		return nil, err
	}

	reg, err := m.loadForWrite(ctx)
	if err != nil {
		return nil, tx.fail(err)
	}
	if err := plugin.ValidateName(name); err != nil {
		return nil, tx.fail(err)
	}
	if reg.Has(name) {
		return nil, tx.fail(ErrAlreadyInstalled)
	}

	src, desc, err := m.inspect(ctx, reg, name, source)
	if err != nil {
		return nil, tx.fail(err)
	}

	result := &Result{Op: OpInstall, Name: name, Descriptor: desc}
	m.checkReserved(ctx, result)
	tx.validated()

	dest := m.artifactPath(desc.ArtifactPath)
	if !samePath(src, dest) {
		if err := m.place(src, dest); err != nil {
			return nil, tx.fail(err)
		}
		tx.staged(func() error { return m.fs.Remove(dest) })
	} else {
		tx.staged(nil)
	}

	if err := m.verify(ctx, desc); err != nil {
		return nil, tx.fail(err)
	}

	reg.Put(desc)
	if err := m.repo.Save(ctx, m.registryFile, reg); err != nil {
		return nil, tx.fail(err)
	}

	tx.commit()
	result.Phase = tx.Phase()
	m.logger.Info(ctx, "plugin installed",
		ports.F("plugin", name), ports.F("artifact", desc.ArtifactPath), ports.F("entry", desc.EntryPoint))
	return result, nil
}

// Update replaces an installed plugin with the artifact at source.
func (m *Manager) Update(ctx context.Context, name, source string) (*Result, error) {
	tx, err := newTransaction(OpUpdate, name)
	if err != nil {
		return nil, err
	}

	reg, err := m.loadForWrite(ctx)
	if err != nil {
		return nil, tx.fail(err)
	}
	previous, ok := reg.Get(name)
	if !ok {
		return nil, tx.fail(ErrNotInstalled)
	}

	src, desc, err := m.inspect(ctx, reg, name, source)
	if err != nil {
		return nil, tx.fail(err)
	}

	result := &Result{Op: OpUpdate, Name: name, Descriptor: desc}
	if plugin.IsDowngrade(previous.Version, desc.Version) {
		msg := fmt.Sprintf("version %s is older than the installed %s", desc.Version, previous.Version)
		result.Warnings = append(result.Warnings, msg)
		m.logger.Warn(ctx, "plugin downgrade", ports.F("plugin", name),
			ports.F("installed", previous.Version), ports.F("new", desc.Version))
	}
	m.checkReserved(ctx, result)
	tx.validated()

	dest := m.artifactPath(desc.ArtifactPath)
	if !samePath(src, dest) {
		backup := ""
		if m.fs.Exists(dest) {
			backup = m.tempPath(desc.ArtifactPath, backupSuffix)
			if err := m.fs.Rename(dest, backup); err != nil {
				return nil, tx.fail(fmt.Errorf("failed to back up %s: %w", dest, err))
			}
		}
		if err := m.place(src, dest); err != nil {
			if backup != "" {
				if restoreErr := m.fs.Rename(backup, dest); restoreErr != nil {
					err = errors.Join(err, restoreErr)
				}
			}
			return nil, tx.fail(err)
		}
		tx.staged(func() error {
			if err := m.fs.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if backup != "" {
				return m.fs.Rename(backup, dest)
			}
			return nil
		})
		defer func() {
			if backup != "" && tx.Phase() == PhaseCommitted {
				m.removeQuietly(ctx, backup)
			}
		}()
	} else {
		tx.staged(nil)
	}

	if err := m.verify(ctx, desc); err != nil {
		return nil, tx.fail(err)
	}

	reg.Put(desc)
	if err := m.repo.Save(ctx, m.registryFile, reg); err != nil {
		return nil, tx.fail(err)
	}

	tx.commit()
	result.Phase = tx.Phase()

	if previous.ArtifactPath != desc.ArtifactPath && registry.IsBareFileName(previous.ArtifactPath) {
		if _, shared := reg.FindByArtifact(previous.ArtifactPath); !shared {
			m.removeQuietly(ctx, m.artifactPath(previous.ArtifactPath))
		}
	}

	m.logger.Info(ctx, "plugin updated",
		ports.F("plugin", name), ports.F("artifact", desc.ArtifactPath), ports.F("version", desc.Version))
	return result, nil
}

// Uninstall removes a plugin and its artifact.
func (m *Manager) Uninstall(ctx context.Context, name string) (*Result, error) {
	tx, err := newTransaction(OpUninstall, name)
	if err != nil {
		return nil, err
	}

	reg, err := m.loadForWrite(ctx)
	if err != nil {
		return nil, tx.fail(err)
	}
	desc, ok := reg.Get(name)
	if !ok {
		return nil, tx.fail(ErrNotInstalled)
	}

	result := &Result{Op: OpUninstall, Name: name, Descriptor: desc}
	tx.validated()

	reg.Remove(name)

	path := m.artifactPath(desc.ArtifactPath)
	aside := ""
	_, shared := reg.FindByArtifact(desc.ArtifactPath)
	switch {
	case shared:
		m.logger.Debug(ctx, "artifact shared with another plugin, keeping it", ports.F("artifact", path))
		tx.staged(nil)
	case m.fs.Exists(path):
		aside = m.tempPath(desc.ArtifactPath, removingSuffix)
		if err := m.fs.Rename(path, aside); err != nil {
			return nil, tx.fail(fmt.Errorf("failed to move %s aside: %w", path, err))
		}
		tx.staged(func() error { return m.fs.Rename(aside, path) })
	default:
		msg := fmt.Sprintf("artifact %s was already missing", desc.ArtifactPath)
		result.Warnings = append(result.Warnings, msg)
		m.logger.Warn(ctx, "artifact already missing", ports.F("plugin", name), ports.F("artifact", path))
		tx.staged(nil)
	}

	if err := m.repo.Save(ctx, m.registryFile, reg); err != nil {
		return nil, tx.fail(err)
	}

	tx.commit()
	result.Phase = tx.Phase()
	if aside != "" {
		m.removeQuietly(ctx, aside)
	}

	m.logger.Info(ctx, "plugin uninstalled", ports.F("plugin", name))
	return result, nil
}

// inspect checks the source artifact and builds the descriptor it would be
// registered under.
func (m *Manager) inspect(ctx context.Context, reg *registry.Registry, name, source string) (string, registry.Descriptor, error) {
	src := ports.ExpandPath(source)
	if abs, err := filepath.Abs(src); err == nil {
		src = abs
	}

	info, err := m.fs.Stat(src)
	if err != nil || info.IsDir {
		return "", registry.Descriptor{}, fmt.Errorf("%w: %s", plugin.ErrArtifactNotFound, source)
	}

	mod, err := m.loader.Discover(ctx, src)
	if err != nil {
		return "", registry.Descriptor{}, err
	}
	entry, manifest := mod.EntryPoint(), mod.Manifest()
	_ = mod.Close(ctx)

	file := filepath.Base(src)
	if owner, ok := reg.FindByArtifact(file); ok && owner.Name != name {
		return "", registry.Descriptor{}, fmt.Errorf("%w: %s belongs to %s", ErrArtifactInUse, file, owner.Name)
	}

	return src, registry.Descriptor{
		Name:         name,
		ArtifactPath: file,
		EntryPoint:   entry,
		Version:      manifest.Version,
		Description:  manifest.Description,
	}, nil
}

// place copies src into the plugins directory under a staging name and
// renames it onto dest, replacing any untracked file already there.
func (m *Manager) place(src, dest string) error {
	if err := m.fs.MkdirAll(m.pluginsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugins directory: %w", err)
	}

	staging := m.tempPath(filepath.Base(dest), stagingSuffix)
	if err := m.fs.CopyFile(src, staging); err != nil {
		_ = m.fs.Remove(staging)
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := m.fs.Rename(staging, dest); err != nil {
		_ = m.fs.Remove(staging)
		return fmt.Errorf("failed to place artifact: %w", err)
	}
	return nil
}

// verify loads the staged descriptor the same way dispatch will.
func (m *Manager) verify(ctx context.Context, desc registry.Descriptor) error {
	mod, err := m.loader.Load(ctx, desc)
	if err != nil {
		return err
	}
	return mod.Close(ctx)
}

func (m *Manager) checkReserved(ctx context.Context, result *Result) {
	if !m.reserved(result.Name) {
		return
	}
	msg := fmt.Sprintf("%q is a built-in command; the built-in takes precedence and this plugin will not be reachable by that name", result.Name)
	result.Warnings = append(result.Warnings, msg)
	m.logger.Warn(ctx, "plugin name shadowed by built-in", ports.F("plugin", result.Name))
}

func (m *Manager) artifactPath(file string) string {
	return filepath.Join(m.pluginsDir, file)
}

func (m *Manager) tempPath(file, suffix string) string {
	return filepath.Join(m.pluginsDir, "."+file+suffix)
}

func (m *Manager) removeQuietly(ctx context.Context, path string) {
	if err := m.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn(ctx, "failed to remove leftover file", ports.F("path", path), ports.F("error", err.Error()))
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
