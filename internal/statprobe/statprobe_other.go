//go:build !linux && !darwin

package statprobe

import "os"

// fromFileInfo is the fallback for platforms without a Stat_t-based inode
// (e.g. Windows). CrTime is always nil; Ino is synthesized from ModTime so
// callers still get a non-zero value, but Local FIM's inode-identity
// invariants are not meaningfully enforceable on such platforms.
func fromFileInfo(info os.FileInfo) (*Stat, error) {
	return &Stat{
		Ino:       uint64(info.ModTime().UnixNano()), //nolint:gosec // best-effort fallback identity
		CrTime:    nil,
		MTime:     info.ModTime().UnixNano(),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
	}, nil
}
