package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "lanes"

// Environment variables read by Resolve.
const (
	EnvConfig  = "LANES_CONFIG"
	EnvDBPath  = "LANES_DB_PATH"
	EnvAPIURL  = "LANES_API_URL"
	EnvDevMode = "LANES_DEV_MODE"
	EnvAppName = "LANES_APP_NAME"
)

// Paths represents paths data used by this package.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
}

// Options defines optional settings for configuration.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths returns default paths.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions returns default paths with options.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", homeErr)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	if runtime.GOOS == "windows" {
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			dataDir = v
		}
	}

	env := map[string]string{
		"XDG_CONFIG_HOME": os.Getenv("XDG_CONFIG_HOME"),
		"XDG_DATA_HOME":   os.Getenv("XDG_DATA_HOME"),
		"APPDATA":         os.Getenv("APPDATA"),
		"LOCALAPPDATA":    os.Getenv("LOCALAPPDATA"),
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor resolves config and data locations for one OS and environment.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase := userConfigDir
	dataBase := userDataDir

	switch goos {
	case "linux":
		if v := env["XDG_CONFIG_HOME"]; v != "" {
			configBase = v
		}
		if v := env["XDG_DATA_HOME"]; v != "" {
			dataBase = v
		}
	case "windows":
		if v := env["APPDATA"]; v != "" {
			configBase = v
		}
		if v := env["LOCALAPPDATA"]; v != "" {
			dataBase = v
		}
	}

	appDataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    appDataDir,
		DBPath:     filepath.Join(appDataDir, appName+".db"),
	}, nil
}

// Overrides carries explicit path choices; empty fields fall back to the environment.
type Overrides struct {
	AppName    string
	DevMode    *bool
	ConfigPath string
	DBPath     string
}

// Resolve applies flag overrides first, then LANES_* environment values, then OS defaults.
func Resolve(getenv func(string) string, o Overrides) (Paths, Options, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	opts := Options{AppName: DefaultAppName}
	if v, ok := ParseBoolEnv(getenv(EnvDevMode)); ok {
		opts.DevMode = v
	}
	if v := strings.TrimSpace(getenv(EnvAppName)); v != "" {
		opts.AppName = v
	}
	if o.DevMode != nil {
		opts.DevMode = *o.DevMode
	}
	if v := strings.TrimSpace(o.AppName); v != "" {
		opts.AppName = v
	}

	paths, err := DefaultPathsWithOptions(opts)
	if err != nil {
		return Paths{}, opts, err
	}
	paths.ConfigPath = firstNonEmpty(o.ConfigPath, getenv(EnvConfig), paths.ConfigPath)
	paths.DBPath = firstNonEmpty(o.DBPath, getenv(EnvDBPath), paths.DBPath)
	return paths, opts, nil
}

// ParseBoolEnv parses a boolean env value; ok is false when unset or malformed.
func ParseBoolEnv(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
