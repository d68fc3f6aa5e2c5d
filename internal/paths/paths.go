// Package paths resolves where gdao keeps its configuration and its default
// SQLite database.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "gdao"

// DefaultDataDirName is the working-directory relative data directory used
// when nothing else is configured.
const DefaultDataDirName = ".gdao-db"

// DefaultDatabaseFile is the SQLite file created in the data directory when
// no connection descriptor is configured.
const DefaultDatabaseFile = "gdao.db"

// Environment variables overriding the directories.
const (
	EnvConfigDir = "GDAO_CONFIG_DIR"
	EnvDataDir   = "GDAO_DATA_DIR"
)

// platformDir holds the platform lookups; tests replace them.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $xdgEnv/gdao, or ~/<fallback...>/gdao when the variable is
// empty. Outside Linux it returns os.UserConfigDir()/gdao.
func xdgDir(xdgEnv string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// DefaultConfigDir returns the platform configuration directory:
//
//	Linux:   $XDG_CONFIG_HOME/gdao (fallback ~/.config/gdao)
//	macOS:   ~/Library/Application Support/gdao
//	Windows: %APPDATA%/gdao
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory:
//
//	Linux:   $XDG_DATA_HOME/gdao (fallback ~/.local/share/gdao)
//	macOS, Windows: same as DefaultConfigDir
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > GDAO_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config file value > GDAO_DATA_DIR >
// $(CWD)/.gdao-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// DefaultDescriptor returns the descriptor of the SQLite database kept in
// dataDir.
func DefaultDescriptor(dataDir string) string {
	return "sqlite://" + filepath.Join(dataDir, DefaultDatabaseFile)
}
