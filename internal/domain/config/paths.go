package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// Application names and well-known file names.
const (
	AppName          = "Jex"
	BinaryName       = "jex"
	RegistryFileName = "plugin.yaml"
	PluginsDirName   = "plugins"
)

// Environment variables that override defaults.
const (
	EnvHome     = "JEX_HOME"
	EnvBin      = "JEX_BIN"
	EnvLogLevel = "JEX_LOG_LEVEL"
)

// Env abstracts the process environment so path resolution is testable.
type Env struct {
	GOOS    string
	Getenv  func(key string) string
	HomeDir func() (string, error)
}

// OSEnv returns the environment of the running process.
func OSEnv() Env {
	return Env{
		GOOS:    runtime.GOOS,
		Getenv:  os.Getenv,
		HomeDir: os.UserHomeDir,
	}
}

// Paths holds every location jex reads or writes.
type Paths struct {
	// ConfigDir holds the registry file and the plugins directory.
	ConfigDir string
	// PluginsDir holds installed plugin artifacts.
	PluginsDir string
	// LibDir receives the jex executable during setup.
	LibDir string
	// BinDir receives the wrapper script during setup.
	BinDir string
	// RegistryFile is the plugin registry.
	RegistryFile string
}

// ResolvePaths computes Paths for env.
//
//	config  $JEX_HOME, else Windows %APPDATA%/Jex, macOS ~/Library/Application Support/Jex,
//	        others $XDG_CONFIG_HOME/Jex or ~/.config/Jex
//	lib     Windows %LOCALAPPDATA%/Programs/Jex, macOS ~/Library/Application Support/Jex,
//	        others ~/.local/lib/jex
//	bin     $JEX_BIN, else Windows the lib directory, others ~/.local/bin
func ResolvePaths(env Env) (Paths, error) {
	home, err := env.HomeDir()
	if err != nil {
		home = ""
	}

	configDir := env.Getenv(EnvHome)
	if configDir == "" {
		configDir = defaultConfigDir(env, home)
	}
	if configDir == "" {
		return Paths{}, NewUserError(ErrCodeSetupFailed, "cannot determine the configuration directory").
			WithSuggestion("Set " + EnvHome + " to the directory jex should use.").
			WithUnderlying(errors.Join(errors.New("home directory unknown"), err))
	}

	libDir := defaultLibDir(env, home)

	binDir := env.Getenv(EnvBin)
	if binDir == "" {
		if env.GOOS == "windows" {
			binDir = libDir
		} else if home != "" {
			binDir = filepath.Join(home, ".local", "bin")
		}
	}

	return Paths{
		ConfigDir:    configDir,
		PluginsDir:   filepath.Join(configDir, PluginsDirName),
		LibDir:       libDir,
		BinDir:       binDir,
		RegistryFile: filepath.Join(configDir, RegistryFileName),
	}, nil
}

func defaultConfigDir(env Env, home string) string {
	switch env.GOOS {
	case "windows":
		if appData := env.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		if home != "" {
			return filepath.Join(home, "AppData", "Roaming", AppName)
		}
	case "darwin":
		if home != "" {
			return filepath.Join(home, "Library", "Application Support", AppName)
		}
	default:
		if xdg := env.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName)
		}
		if home != "" {
			return filepath.Join(home, ".config", AppName)
		}
	}
	return ""
}

func defaultLibDir(env Env, home string) string {
	switch env.GOOS {
	case "windows":
		if local := env.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Programs", AppName)
		}
		if home != "" {
			return filepath.Join(home, "AppData", "Local", "Programs", AppName)
		}
	case "darwin":
		if home != "" {
			return filepath.Join(home, "Library", "Application Support", AppName)
		}
	default:
		if home != "" {
			return filepath.Join(home, ".local", "lib", BinaryName)
		}
	}
	return ""
}

// ExecutableName returns the installed executable name for goos.
func ExecutableName(goos string) string {
	if goos == "windows" {
		return BinaryName + ".exe"
	}
	return BinaryName
}

// WrapperName returns the wrapper script name for goos.
func WrapperName(goos string) string {
	if goos == "windows" {
		return BinaryName + ".bat"
	}
	return BinaryName
}
