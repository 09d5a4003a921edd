package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths
	AppName = "caskcat"

	// ConfigFileName is the config file inside the config directory.
	ConfigFileName = "config.yaml"

	// SnapshotFileName is the compressed catalog snapshot inside the cache directory.
	SnapshotFileName = "casks.json.gz"
)

// GetCacheDir returns the platform-specific cache directory for the application
// On Linux: ~/.cache/caskcat/
// On macOS: ~/Library/Caches/caskcat/
// On Windows: %LOCALAPPDATA%\caskcat\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetConfigDir returns the platform-specific config directory for the application
// On Linux: ~/.config/caskcat/
// On macOS: ~/Library/Application Support/caskcat/
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// GetConfigPath returns the default config file path.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// SnapshotPath returns the catalog snapshot path inside cacheDir.
func SnapshotPath(cacheDir string) string {
	return filepath.Join(cacheDir, SnapshotFileName)
}
