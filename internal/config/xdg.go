// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "lyritype"

func xdgDir(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// XDGCacheHome returns the XDG cache home or a default fallback.
func XDGCacheHome() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultBundleDir returns the cache directory for fetched lyrics bundles.
func DefaultBundleDir() string {
	return filepath.Join(XDGCacheHome(), appName, "bundles")
}

// DefaultBundlePath returns the cached bundle path for a track.
func DefaultBundlePath(trackID string) string {
	return filepath.Join(DefaultBundleDir(), trackID+".yaml")
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), appName, appName+".log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
