package fileid

import (
	"errors"
	"fmt"
)

// Sentinel errors, checked with errors.Is. NotFound is never returned from
// query operations — GetID/GetPath signal absence with a boolean return
// instead — but it is returned, wrapped, by administrative operations like
// the CLI's drop-table command. Integrity is returned, wrapped, when the
// Local FIM's ino UNIQUE constraint rejects an insert (two live records
// would otherwise claim the same inode); callers must not retry silently.
var (
	ErrConfiguration = errors.New("fileid: invalid configuration")
	ErrNotFound      = errors.New("fileid: record not found")
	ErrIntegrity     = errors.New("fileid: store integrity violation")
)

// FilesystemError wraps a non-ENOENT error from a stat or readdir call.
// ENOENT is modelled as absence (nil, nil) and never reaches this type.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("fileid: filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
