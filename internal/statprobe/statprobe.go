// Package statprobe produces a compact, platform-independent stat record
// for a filesystem path, the cross-check Local FIM uses to recognize a file
// independent of its current path.
package statprobe

import (
	"errors"
	"fmt"
	"os"
)

// Stat is the compact record a FIM reconciles against. CrTime is the
// nanosecond birth time where the platform exposes one (macOS); elsewhere
// it is nil, and records are matched on MTime instead.
type Stat struct {
	Ino       uint64
	CrTime    *int64 // nanoseconds; nil if unavailable
	MTime     int64  // nanoseconds
	IsDir     bool
	IsSymlink bool
}

// Probe stats path without dereferencing symlinks (symlinks are reported
// as such, never silently followed). Returns (nil, nil) if the path does
// not exist (ENOENT maps to "absent", per the FIM's error-handling
// contract); any other error is returned wrapped.
func Probe(path string) (*Stat, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // nil,nil is the documented "absent" signal
		}

		return nil, fmt.Errorf("statprobe: stat %s: %w", path, err)
	}

	return fromFileInfo(info)
}
