package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(goos, home string, vars map[string]string) Env {
	return Env{
		GOOS:   goos,
		Getenv: func(key string) string { return vars[key] },
		HomeDir: func() (string, error) {
			if home == "" {
				return "", errors.New("no home")
			}
			return home, nil
		},
	}
}

func TestResolvePaths(t *testing.T) {
	t.Parallel()

	home := filepath.Join("/", "home", "dev")

	tests := []struct {
		name      string
		env       Env
		configDir string
		libDir    string
		binDir    string
	}{
		{
			name:      "linux defaults",
			env:       fakeEnv("linux", home, nil),
			configDir: filepath.Join(home, ".config", "Jex"),
			libDir:    filepath.Join(home, ".local", "lib", "jex"),
			binDir:    filepath.Join(home, ".local", "bin"),
		},
		{
			name:      "linux honours XDG_CONFIG_HOME",
			env:       fakeEnv("linux", home, map[string]string{"XDG_CONFIG_HOME": "/xdg"}),
			configDir: filepath.Join("/xdg", "Jex"),
			libDir:    filepath.Join(home, ".local", "lib", "jex"),
			binDir:    filepath.Join(home, ".local", "bin"),
		},
		{
			name:      "darwin defaults",
			env:       fakeEnv("darwin", home, nil),
			configDir: filepath.Join(home, "Library", "Application Support", "Jex"),
			libDir:    filepath.Join(home, "Library", "Application Support", "Jex"),
			binDir:    filepath.Join(home, ".local", "bin"),
		},
		{
			name: "windows defaults",
			env: fakeEnv("windows", home, map[string]string{
				"APPDATA":      "/appdata/roaming",
				"LOCALAPPDATA": "/appdata/local",
			}),
			configDir: filepath.Join("/appdata/roaming", "Jex"),
			libDir:    filepath.Join("/appdata/local", "Programs", "Jex"),
			binDir:    filepath.Join("/appdata/local", "Programs", "Jex"),
		},
		{
			name: "overrides",
			env: fakeEnv("linux", home, map[string]string{
				EnvHome: "/srv/jex",
				EnvBin:  "/opt/bin",
			}),
			configDir: "/srv/jex",
			libDir:    filepath.Join(home, ".local", "lib", "jex"),
			binDir:    "/opt/bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			paths, err := ResolvePaths(tt.env)
			require.NoError(t, err)

			assert.Equal(t, tt.configDir, paths.ConfigDir)
			assert.Equal(t, tt.libDir, paths.LibDir)
			assert.Equal(t, tt.binDir, paths.BinDir)
			assert.Equal(t, filepath.Join(tt.configDir, "plugins"), paths.PluginsDir)
			assert.Equal(t, filepath.Join(tt.configDir, "plugin.yaml"), paths.RegistryFile)
		})
	}
}

func TestResolvePaths_NoHome(t *testing.T) {
	t.Parallel()

	_, err := ResolvePaths(fakeEnv("linux", "", nil))
	require.Error(t, err)
	assert.True(t, IsUserError(err, ErrCodeSetupFailed))

	paths, err := ResolvePaths(fakeEnv("linux", "", map[string]string{EnvHome: "/srv/jex"}))
	require.NoError(t, err)
	assert.Equal(t, "/srv/jex", paths.ConfigDir)
}

func TestExecutableAndWrapperNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "jex", ExecutableName("linux"))
	assert.Equal(t, "jex.exe", ExecutableName("windows"))
	assert.Equal(t, "jex", WrapperName("darwin"))
	assert.Equal(t, "jex.bat", WrapperName("windows"))
}

func TestOSEnv(t *testing.T) {
	t.Parallel()

	env := OSEnv()
	assert.NotEmpty(t, env.GOOS)
	assert.NotNil(t, env.Getenv)
	assert.NotNil(t, env.HomeDir)
}
