// Package config resolves where the File Identity Manager keeps its state:
// the SQLite store path and the root directory a Local FIM reconciles
// against. Both can come from environment variables or an optional TOML
// file; callers (library users and cmd/fileidctl) are free to bypass this
// package entirely and construct a fileid manager with explicit paths.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// appName names the XDG/Application-Support subdirectory used on every platform.
const appName = "fileid"

// storeFileName is the default SQLite database file name.
const storeFileName = "file_id_manager.db"

// DefaultDataDir returns the platform-specific directory for application data
// (the SQLite store lives here by default).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/fileid).
// On macOS, uses ~/Library/Application Support/fileid per Apple guidelines.
// Other platforms fall back to ~/.local/share/fileid.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDataDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// linuxDataDir returns the XDG-compliant data directory for Linux.
func linuxDataDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}

// DefaultConfigDir returns the platform-specific directory for the optional
// TOML config file.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultStorePath returns the full path to the default SQLite store file.
func DefaultStorePath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, storeFileName)
}

// DefaultConfigPath returns the full path to the default config.toml file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, "config.toml")
}
