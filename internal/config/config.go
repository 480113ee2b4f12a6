package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig is the on-disk TOML shape of the optional config file. All
// fields are optional; a missing file resolves to a zero FileConfig.
type FileConfig struct {
	StorePath string `toml:"store_path"`
	RootDir   string `toml:"root_dir"`
	LogLevel  string `toml:"log_level"`
}

// CLIOverrides holds values explicitly set by a caller (e.g. command-line
// flags), which take precedence over both the environment and the file.
type CLIOverrides struct {
	ConfigPath string
	StorePath  string
	RootDir    string
	LogLevel   string
}

// Resolved is the effective configuration after applying the file, then
// environment, then explicit CLI overrides, in that order of increasing
// priority.
type Resolved struct {
	StorePath string
	RootDir   string
	LogLevel  string
}

// LoadFile reads and parses a TOML config file. A missing file is not an
// error — it resolves to a zero FileConfig, since the config file is
// entirely optional.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}

		return FileConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fc FileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return FileConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return fc, nil
}

// Resolve merges the file config, environment overrides, and explicit CLI
// overrides into a single Resolved configuration. Afterwards an empty
// StorePath falls back to DefaultStorePath(); RootDir and LogLevel are left
// empty (a Local FIM requires a root explicitly).
func Resolve(cli CLIOverrides) (Resolved, error) {
	configPath := cli.ConfigPath
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	fc, err := LoadFile(configPath)
	if err != nil {
		return Resolved{}, err
	}

	env := ReadEnvOverrides()

	r := Resolved{
		StorePath: firstNonEmpty(cli.StorePath, env.StorePath, fc.StorePath),
		RootDir:   firstNonEmpty(cli.RootDir, env.RootDir, fc.RootDir),
		LogLevel:  firstNonEmpty(cli.LogLevel, env.LogLevel, fc.LogLevel),
	}

	if r.StorePath == "" {
		r.StorePath = DefaultStorePath()
	}

	return r, nil
}

// firstNonEmpty returns the first non-empty string, in priority order.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// ValidateAbsolute reports an error if path is empty or not absolute.
// Both the store path and the root directory must be absolute — relative
// paths are rejected at configuration time (spec invariant: store paths
// never leave the FIM boundary ambiguous).
func ValidateAbsolute(name, path string) error {
	if path == "" {
		return fmt.Errorf("config: %s must not be empty", name)
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("config: %s must be an absolute path, got %q", name, path)
	}

	return nil
}
