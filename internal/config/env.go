package config

import "os"

// Environment variable names for overrides.
const (
	EnvStorePath = "FILEID_STORE_PATH"
	EnvRootDir   = "FILEID_ROOT_DIR"
	EnvLogLevel  = "FILEID_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables. Resolve
// applies them on top of the file config, which in turn is overridden by
// explicit caller-supplied values.
type EnvOverrides struct {
	StorePath string
	RootDir   string
	LogLevel  string
}

// ReadEnvOverrides reads the fileid environment variables. Missing
// variables leave the corresponding field empty.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		StorePath: os.Getenv(EnvStorePath),
		RootDir:   os.Getenv(EnvRootDir),
		LogLevel:  os.Getenv(EnvLogLevel),
	}
}
