// Package fileid implements a File Identity Manager: a persistent index
// that assigns every file or directory beneath a root a stable, opaque
// identifier that survives renames, moves, and in-place edits.
//
// Two implementations share the Manager contract: ArbitraryManager is a
// pure path-keyed index driven only by explicit calls; LocalManager
// reconciles the index against a real filesystem using inode identity and
// timestamps, so files moved externally (e.g. by shell commands) retain
// their IDs.
package fileid

import "context"

// ID is the canonical textual form of a 128-bit random value
// (uuid.New().String()). Comparison is plain string equality.
type ID string

// FileRecord is the primary entity tracked by both FIM variants.
type FileRecord struct {
	ID ID
	// Path is an absolute, case-normalized store path.
	Path string
	// Ino, CrTime, MTime, IsDir apply to Local FIM records only.
	Ino    uint64
	CrTime *int64
	MTime  int64
	IsDir  bool
}

// Event is a single host-delivered action to route through a Dispatcher.
type Event struct {
	Action     string // "get", "save", "rename", "copy", "delete"
	Path       string
	SourcePath string // set for rename/copy
}

// Manager is the capability interface both FIM variants implement.
type Manager interface {
	// Index returns the existing ID at p if present, else creates and
	// returns a fresh one.
	Index(ctx context.Context, p string) (ID, error)
	// GetID returns the ID at p, or (zero, false, nil) if p is not indexed.
	GetID(ctx context.Context, p string) (ID, bool, error)
	// GetPath returns the API-form path stored for id, or (_, false, nil)
	// if id is unknown or its backing file can no longer be reconciled.
	GetPath(ctx context.Context, id ID) (string, bool, error)
	// Move updates the record at oldPath to newPath, re-parenting any
	// descendants, and returns its ID.
	Move(ctx context.Context, oldPath, newPath string) (ID, error)
	// Copy creates a fresh record at to (and for each descendant of from),
	// returning the new ID at to. from is left untouched. LocalManager adds
	// descendant records only when to is a directory on disk, and only for
	// descendants that exist under it.
	Copy(ctx context.Context, from, to string) (ID, error)
	// Delete removes the record at p and its descendants. LocalManager
	// removes descendants only while p is a directory on disk.
	Delete(ctx context.Context, p string) error
	// Save refreshes the record's tracked stat after a content edit.
	// Arbitrary FIM treats this as a no-op.
	Save(ctx context.Context, p string) error
}
