// Package pathnorm converts between "API paths" — forward-slash,
// root-relative paths exchanged with a host — and "store paths" —
// absolute, OS-native paths held internally by a FIM. Store paths always
// have redundant separators collapsed; with NFC enabled (Local FIM) they
// are also NFC-normalized. Arbitrary FIM paths are logical and never pass
// through this package.
//
// "Case normalization" in the original File Identity Manager this package
// is modeled on is `os.path.normcase`, which is a no-op everywhere except
// Windows; on the POSIX platforms this module targets (Linux, macOS) a
// store path's case is preserved exactly, since both are case-sensitive
// (or case-preserving) filesystems where lowercasing would make real stat
// calls miss.
package pathnorm

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalizer converts between API and store path forms for a single root.
// The zero value is not usable; construct with New.
type Normalizer struct {
	rootDir string
	nfc     bool
}

// New creates a Normalizer rooted at rootDir. Set nfc for Local FIM
// (NFC Unicode normalization so a macOS NFD-decomposed filename and its
// Linux NFC-composed equivalent land on the same store path). Redundant
// separators are collapsed whether or not nfc is set.
func New(rootDir string, nfc bool) *Normalizer {
	rootDir = filepath.Clean(rootDir)
	if nfc {
		rootDir = unicodeNFC(rootDir)
	}

	return &Normalizer{rootDir: rootDir, nfc: nfc}
}

// RootDir returns the configured root directory.
func (n *Normalizer) RootDir() string {
	return n.rootDir
}

// Normalize converts p into a store path. If p is not already rooted at
// rootDir, rootDir is prepended. "Already rooted" is a longest-common-prefix
// test on the raw string, not a strict ancestor resolution — this matches
// the reference implementation and means a path like "/rootfoo" is (by
// design) considered already-rooted under root "/root", since the test
// never walks path components to check a true parent/child relationship.
func (n *Normalizer) Normalize(p string) string {
	full := p
	if !strings.HasPrefix(p, n.rootDir) {
		full = filepath.Join(n.rootDir, p)
	}

	full = filepath.Clean(full)

	if n.nfc {
		full = unicodeNFC(full)
	}

	return full
}

// unicodeNFC normalizes a path string to NFC form without altering its
// case, so decomposed (NFD) and composed (NFC) forms of the same name
// compare equal while remaining a valid, case-preserving store path.
func unicodeNFC(p string) string {
	return norm.NFC.String(p)
}

// ToAPI converts a store path back to its API form: forward-slash,
// relative to rootDir. Returns ("", false) if p is empty or not prefixed
// by rootDir.
func (n *Normalizer) ToAPI(p string) (string, bool) {
	if p == "" || !strings.HasPrefix(p, n.rootDir) {
		return "", false
	}

	rel := strings.TrimPrefix(p, n.rootDir)
	rel = strings.TrimPrefix(rel, string(filepath.Separator))

	return filepath.ToSlash(rel), true
}
