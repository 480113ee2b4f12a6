//go:build darwin

package statprobe

import (
	"os"
	"syscall"
)

// fromFileInfo extracts the Stat record from a Darwin os.FileInfo. macOS
// exposes a true birth time (Birthtimespec), the preferred CrTime source.
func fromFileInfo(info os.FileInfo) (*Stat, error) {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, errUnsupportedSys
	}

	crtime := sys.Birthtimespec.Sec*nanosPerSecond + sys.Birthtimespec.Nsec

	return &Stat{
		Ino:       sys.Ino,
		CrTime:    &crtime,
		MTime:     sys.Mtimespec.Sec*nanosPerSecond + sys.Mtimespec.Nsec,
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
	}, nil
}
