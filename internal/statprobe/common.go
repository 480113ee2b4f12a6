package statprobe

import "errors"

// nanosPerSecond converts syscall second/nanosecond pairs into a single
// Unix-nanosecond timestamp.
const nanosPerSecond = 1_000_000_000

// errUnsupportedSys is returned when os.FileInfo.Sys() does not yield the
// expected platform stat type (should not happen on a supported OS/FS).
var errUnsupportedSys = errors.New("statprobe: unsupported stat_t type")
