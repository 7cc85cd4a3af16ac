package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jmmirabile/Jex/internal/domain/registry"
	"github.com/jmmirabile/Jex/internal/ports"
)

// Report lists inconsistencies between the registry and the plugins directory.
type Report struct {
	// Untracked are files in the plugins directory no descriptor refers to,
	// including leftovers of interrupted operations.
	Untracked []string
	// Dangling are descriptors whose artifact is missing.
	Dangling []registry.Descriptor
}

// Clean reports whether nothing needs attention.
func (r *Report) Clean() bool {
	return len(r.Untracked) == 0 && len(r.Dangling) == 0
}

// Check compares the registry with the plugins directory. It never modifies
// anything. A malformed registry is an error: every artifact would look
// untracked.
func (m *Manager) Check(ctx context.Context) (*Report, error) {
	reg, err := m.repo.Load(ctx, m.registryFile)
	if err != nil {
		return nil, err
	}

	untracked, err := m.Untracked(ctx, reg)
	if err != nil {
		return nil, err
	}

	report := &Report{Untracked: untracked}
	for _, d := range reg.Descriptors() {
		if !registry.IsBareFileName(d.ArtifactPath) || !m.fs.Exists(m.artifactPath(d.ArtifactPath)) {
			report.Dangling = append(report.Dangling, d)
		}
	}

	return report, nil
}

// Untracked lists plugin directory files not referenced by reg, sorted by name.
func (m *Manager) Untracked(_ context.Context, reg *registry.Registry) ([]string, error) {
	entries, err := m.fs.ReadDir(m.pluginsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if _, ok := reg.FindByArtifact(e.Name); ok {
			continue
		}
		files = append(files, e.Name)
	}
	sort.Strings(files)
	return files, nil
}

// Clean removes the untracked files listed in report and returns the ones
// removed. Dangling descriptors are left alone: reinstalling is the fix.
func (m *Manager) Clean(ctx context.Context, report *Report) ([]string, error) {
	var (
		removed []string
		errs    []error
	)
	for _, file := range report.Untracked {
		if !registry.IsBareFileName(file) {
			continue
		}
		path := m.artifactPath(file)
		if err := m.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, file)
		m.logger.Info(ctx, "removed untracked artifact", ports.F("path", path))
	}
	return removed, errors.Join(errs...)
}
