package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is used for config, state and log directory names
const AppName = "genstudio"

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	LogDir       string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// Studio state is runtime state, not user data
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, AppName, "studio.db"),
		LogDir:       filepath.Join(xdg.StateHome, AppName, "logs"),
	}
}

// GetDefaultCachePath returns the default cache directory path
func GetDefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, AppName)
}
