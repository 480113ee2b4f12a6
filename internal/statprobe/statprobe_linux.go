//go:build linux

package statprobe

import (
	"os"
	"syscall"
)

// fromFileInfo extracts the Stat record from a Linux os.FileInfo. Linux's
// syscall.Stat_t exposes no birth time, and its change time (Ctim) moves on
// every rename, write or chmod, so it cannot stand in for a creation time:
// CrTime is left nil and records are matched on MTime instead.
func fromFileInfo(info os.FileInfo) (*Stat, error) {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, errUnsupportedSys
	}

	return &Stat{
		Ino:       sys.Ino,
		CrTime:    nil,
		MTime:     sys.Mtim.Sec*nanosPerSecond + sys.Mtim.Nsec,
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
	}, nil
}
