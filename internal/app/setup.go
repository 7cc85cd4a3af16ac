package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/ports"
	"github.com/jmmirabile/Jex/internal/templates"
)

// setup prepares a per-user installation: directories, an empty registry,
// a copy of the running executable and a wrapper script on the bin dir.
func (d *Dispatcher) setup(ctx context.Context, c *components) error {
	paths := d.cfg.Paths
	out := d.io.Out
	st := d.styles(out)
	done := st.Success.Render("✓")

	for _, dir := range []string{paths.ConfigDir, paths.PluginsDir, paths.LibDir, paths.BinDir} {
		if dir == "" {
			continue
		}
		if err := d.cfg.FS.MkdirAll(dir, 0o755); err != nil {
			return config.NewSetupFailedError("create directory", err).WithContext(dir)
		}
		c.logger.Debug(ctx, "directory ready", ports.F("path", dir))
	}
	fmt.Fprintf(out, "%s Config directory: %s\n", done, paths.ConfigDir)

	if c.repo.Exists(ctx, paths.RegistryFile) {
		fmt.Fprintf(out, "%s Registry exists: %s\n", done, paths.RegistryFile)
	} else {
		if err := c.repo.WriteDefault(ctx, paths.RegistryFile); err != nil {
			return config.NewSetupFailedError("write registry", err).WithContext(paths.RegistryFile)
		}
		fmt.Fprintf(out, "%s Created registry: %s\n", done, paths.RegistryFile)
	}

	if paths.LibDir == "" || paths.BinDir == "" {
		return config.NewSetupFailedError("locate install directories", fmt.Errorf("home directory unknown")).
			WithSuggestion("Set " + config.EnvBin + " or HOME and run 'jex --install' again.")
	}

	exe, err := d.executablePath()
	if err != nil {
		return config.NewSetupFailedError("locate the jex executable", err)
	}
	installed := filepath.Join(paths.LibDir, config.ExecutableName(d.cfg.GOOS))
	if samePath(exe, installed) {
		fmt.Fprintf(out, "%s Executable in place: %s\n", done, installed)
	} else {
		if err := d.cfg.FS.CopyFile(exe, installed); err != nil {
			return config.NewSetupFailedError("copy executable", err).WithContext(installed)
		}
		fmt.Fprintf(out, "%s Installed executable: %s\n", done, installed)
	}

	script, err := templates.GenerateWrapper(d.cfg.GOOS, templates.WrapperData{Executable: installed})
	if err != nil {
		return config.NewSetupFailedError("render wrapper script", err)
	}
	wrapper := filepath.Join(paths.BinDir, config.WrapperName(d.cfg.GOOS))
	if err := d.cfg.FS.WriteFileAtomic(wrapper, []byte(script), templates.WrapperMode); err != nil {
		return config.NewSetupFailedError("write wrapper script", err).WithContext(wrapper)
	}
	fmt.Fprintf(out, "%s Wrapper script: %s\n", done, wrapper)

	if !d.onPath(paths.BinDir) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, st.Warning.Render(paths.BinDir+" is not on your PATH."))
		if d.cfg.GOOS == "windows" {
			fmt.Fprintf(out, "  Add it with: setx PATH \"%%PATH%%;%s\"\n", paths.BinDir)
		} else {
			fmt.Fprintln(out, "  Add this line to your shell profile (~/.bashrc, ~/.zshrc):")
			fmt.Fprintf(out, "    export PATH=\"%s:$PATH\"\n", paths.BinDir)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Setup complete. Run 'jex --list' to see installed plugins.")
	return nil
}

func (d *Dispatcher) executablePath() (string, error) {
	exe, err := d.cfg.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

func (d *Dispatcher) onPath(dir string) bool {
	sep := ":"
	if d.cfg.GOOS == "windows" {
		sep = ";"
	}
	want := filepath.Clean(dir)
	for _, entry := range strings.Split(d.cfg.Getenv("PATH"), sep) {
		if entry != "" && samePath(entry, want) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	if absA, err := filepath.Abs(a); err == nil {
		if absB, err := filepath.Abs(b); err == nil {
			return absA == absB
		}
	}
	return false
}
