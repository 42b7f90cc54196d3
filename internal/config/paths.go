package config

import (
	"os"
	"path/filepath"
)

const appName = "tubeq"

// GetAppDir returns the per-user application directory. It honours
// XDG_CONFIG_HOME on Linux and APPDATA on Windows through os.UserConfigDir.
func GetAppDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, "."+appName)
}

// GetStateDir holds the sqlite database.
func GetStateDir() string {
	return filepath.Join(GetAppDir(), "state")
}

// GetLogsDir holds debug logs.
func GetLogsDir() string {
	return filepath.Join(GetAppDir(), "logs")
}

// GetRuntimeDir holds the lock, pid, port and token files.
func GetRuntimeDir() string {
	return filepath.Join(GetAppDir(), "run")
}

// GetDatabasePath returns the path of the history/schedule database.
func GetDatabasePath() string {
	return filepath.Join(GetStateDir(), appName+".db")
}

// EnsureDirs creates every application directory.
func EnsureDirs() error {
	for _, dir := range []string{GetAppDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
