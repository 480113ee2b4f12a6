package fileid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tonimelisma/fileid/internal/pathnorm"
	"github.com/tonimelisma/fileid/internal/statprobe"
	"github.com/tonimelisma/fileid/internal/store"
)

// LocalManager reconciles a persistent index against a real filesystem
// using inode identity and creation/modification timestamps, so files moved
// or renamed out-of-band (e.g. by shell commands) retain their IDs.
//
// A record moves through four states:
//
//   - absent: no record exists for the file.
//   - indexed: a record exists whose stored (ino, path, timestamps) agree
//     with the filesystem.
//   - stale: the stored stat no longer matches disk (an out-of-band edit
//     changed mtime without a Save call); resolved by the next sync that
//     touches the record.
//   - orphaned: the on-disk path is gone without a Delete call; resolved by
//     the next query that syncs the record, or observed by GetPath.
//
// Transitions: absent -> indexed via Index, Move, Copy, the bootstrap walk,
// or sync discovery. indexed -> indexed (re-pathed) via Move or a sync that
// matches the inode at a new path. indexed -> absent via Delete, or sync
// detecting timestamp divergence at a matching inode. indexed -> stale via
// an out-of-band edit. indexed -> orphaned via an out-of-band deletion.
type LocalManager struct {
	store  *store.LocalStore
	norm   *pathnorm.Normalizer
	logger *slog.Logger
}

// NewLocalManager opens (creating if necessary) the Local FIM database at
// storePath, rooted at rootDir, and runs the bootstrap indexing walk.
// storePath must be absolute, or the literal ":memory:" for tests. rootDir
// must be absolute and non-empty.
func NewLocalManager(ctx context.Context, storePath, rootDir string, logger *slog.Logger) (*LocalManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if storePath != ":memory:" && !filepath.IsAbs(storePath) {
		return nil, fmt.Errorf("%w: store path %q is not absolute", ErrConfiguration, storePath)
	}

	if rootDir == "" || !filepath.IsAbs(rootDir) {
		return nil, fmt.Errorf("%w: root dir %q is not absolute", ErrConfiguration, rootDir)
	}

	s, err := store.OpenLocal(ctx, storePath, logger)
	if err != nil {
		return nil, fmt.Errorf("fileid: opening local store: %w", err)
	}

	m := &LocalManager{
		store:  s,
		norm:   pathnorm.New(rootDir, true),
		logger: logger,
	}

	if err := m.bootstrap(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("fileid: bootstrap indexing %s: %w", rootDir, err)
	}

	return m, nil
}

// Close releases the underlying store connection.
func (m *LocalManager) Close() error {
	return m.store.Close()
}

// bootstrap walks root_dir, indexing every directory (including the root)
// in a single commit. Non-directory entries are discovered lazily.
func (m *LocalManager) bootstrap(ctx context.Context) error {
	m.logger.Info("fileid: bootstrap indexing starting", "root_dir", m.norm.RootDir())

	err := m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		return m.walkIndexDirs(ctx, tx, m.norm.RootDir())
	})
	if err != nil {
		return err
	}

	m.logger.Info("fileid: bootstrap indexing complete", "root_dir", m.norm.RootDir())

	return nil
}

// walkIndexDirs recursively indexes dir and every directory nested under
// it, using store paths directly (dir is already an absolute store path).
func (m *LocalManager) walkIndexDirs(ctx context.Context, tx *store.LocalTx, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.indexStorePath(tx, dir, nil); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &FilesystemError{Path: dir, Err: err}
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		if err := m.walkIndexDirs(ctx, tx, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}

	return nil
}

// indexStorePath is the shared index logic, operating on an already
// store-normalized path and an optional pre-fetched stat.
func (m *LocalManager) indexStorePath(tx *store.LocalTx, storePath string, st *statprobe.Stat) (ID, error) {
	if st == nil {
		probed, err := statprobe.Probe(storePath)
		if err != nil {
			return "", &FilesystemError{Path: storePath, Err: err}
		}
		st = probed
	}

	if st == nil {
		return "", fmt.Errorf("fileid: index %s: %w", storePath, ErrNotFound)
	}

	if st.IsSymlink {
		real, err := filepath.EvalSymlinks(storePath)
		if err != nil {
			return "", &FilesystemError{Path: storePath, Err: err}
		}

		return m.indexStorePath(tx, real, nil)
	}

	existingID, _, err := m.syncFile(tx, storePath, st)
	if err != nil {
		return "", err
	}

	if existingID != "" {
		return existingID, nil
	}

	return m.create(tx, storePath, st)
}

// create inserts a fresh record for path using the fields of st.
func (m *LocalManager) create(tx *store.LocalTx, path string, st *statprobe.Stat) (ID, error) {
	newID := ID(uuid.New().String())

	row := store.LocalRow{
		ID:     string(newID),
		Path:   path,
		Ino:    st.Ino,
		CrTime: st.CrTime,
		MTime:  st.MTime,
		IsDir:  st.IsDir,
	}

	if err := tx.Insert(row); err != nil {
		if errors.Is(err, store.ErrConstraint) {
			return "", fmt.Errorf("fileid: create %s: %w: %w", path, ErrIntegrity, err)
		}

		return "", err
	}

	return newID, nil
}

// syncFile is the unit reconciliation step: if the inode at path matches a
// known record, it updates that record to reflect path (re-parenting
// descendants if the record is a directory whose path changed), or destroys
// the record if its timestamps no longer match. Returns the record ID (or
// "" if none matched or the record was destroyed) and whether a directory
// re-parent occurred, which may invalidate a caller's open cursor over
// directory records.
func (m *LocalManager) syncFile(tx *store.LocalTx, path string, st *statprobe.Stat) (ID, bool, error) {
	if st.IsSymlink {
		return "", false, nil
	}

	row, err := tx.GetByIno(st.Ino)
	if err != nil {
		return "", false, err
	}

	if row == nil {
		return "", false, nil
	}

	if !recordMatchesTimestamp(row, st) {
		if err := tx.DeleteByID(row.ID); err != nil {
			return "", false, err
		}

		return "", false, nil
	}

	invalidated := false

	if row.Path != path {
		if row.IsDir {
			if err := tx.CascadeReparent(row.Path, path); err != nil {
				return "", false, err
			}

			invalidated = true
		} else {
			if err := tx.UpdatePath(row.ID, path); err != nil {
				return "", false, err
			}
		}
	}

	return ID(row.ID), invalidated, nil
}

// syncAll performs a full reconciliation pass over every indexed directory,
// restarting the driving cursor from scratch whenever a directory
// re-parent invalidates it mid-pass.
func (m *LocalManager) syncAll(ctx context.Context, tx *store.LocalTx) error {
	for {
		dirs, err := tx.ListDirs()
		if err != nil {
			return err
		}

		restarted := false

		for _, d := range dirs {
			if err := ctx.Err(); err != nil {
				return err
			}

			st, err := statprobe.Probe(d.Path)
			if err != nil {
				return &FilesystemError{Path: d.Path, Err: err}
			}

			if st == nil {
				continue
			}

			if st.MTime == d.MTime {
				continue
			}

			invalidated, err := m.syncDir(ctx, tx, d.Path)
			if err != nil {
				return err
			}

			if _, err := m.indexStorePath(tx, d.Path, st); err != nil {
				return err
			}

			if invalidated {
				restarted = true
				break
			}
		}

		if !restarted {
			return nil
		}
	}
}

// syncDir enumerates dirPath's immediate children, syncing each one; an
// unindexed directory child is indexed and its own subtree walked.
func (m *LocalManager) syncDir(ctx context.Context, tx *store.LocalTx, dirPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return false, &FilesystemError{Path: dirPath, Err: err}
	}

	invalidated := false

	for _, e := range entries {
		childPath := filepath.Join(dirPath, e.Name())

		childSt, err := statprobe.Probe(childPath)
		if err != nil {
			return invalidated, &FilesystemError{Path: childPath, Err: err}
		}

		if childSt == nil {
			continue
		}

		id, childInvalidated, err := m.syncFile(tx, childPath, childSt)
		if err != nil {
			return invalidated, err
		}

		if childInvalidated {
			invalidated = true
		}

		if id == "" && childSt.IsDir && !childSt.IsSymlink {
			if err := m.walkIndexDirs(ctx, tx, childPath); err != nil {
				return invalidated, err
			}
		}
	}

	return invalidated, nil
}

// recordMatchesTimestamp compares the effective timestamp (crtime if
// present on both sides, else mtime) of a stored record against a stat.
func recordMatchesTimestamp(row *store.LocalRow, st *statprobe.Stat) bool {
	if row.CrTime != nil && st.CrTime != nil {
		return *row.CrTime == *st.CrTime
	}

	return row.MTime == st.MTime
}

// recordMatchesStat reports whether row still reflects the live file at st:
// same inode, same effective timestamp.
func recordMatchesStat(row *store.LocalRow, st *statprobe.Stat) bool {
	return row.Ino == st.Ino && recordMatchesTimestamp(row, st)
}

// Index returns the existing ID at p (after reconciling it against the
// filesystem), or creates a fresh record if p is unindexed. Symlinks are
// followed to their target; the link itself is never tracked.
func (m *LocalManager) Index(ctx context.Context, p string) (ID, error) {
	m.logger.Info("fileid: index starting", "path", p)

	storePath := m.norm.Normalize(p)

	var id ID

	err := m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		gotID, err := m.indexStorePath(tx, storePath, nil)
		id = gotID

		return err
	})
	if err != nil {
		return "", fmt.Errorf("fileid: index %s: %w", p, err)
	}

	m.logger.Info("fileid: index complete", "path", p, "id", id)

	return id, nil
}

// GetID returns the ID at p after reconciling it against the filesystem, or
// (_, false, nil) if p does not currently exist on disk or has no record.
func (m *LocalManager) GetID(ctx context.Context, p string) (ID, bool, error) {
	m.logger.Debug("fileid: get_id", "path", p)

	storePath := m.norm.Normalize(p)

	st, err := statprobe.Probe(storePath)
	if err != nil {
		return "", false, &FilesystemError{Path: storePath, Err: err}
	}

	if st == nil {
		return "", false, nil
	}

	var id ID

	err = m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		gotID, _, err := m.syncFile(tx, storePath, st)
		id = gotID

		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("fileid: get_id %s: %w", p, err)
	}

	if id == "" {
		return "", false, nil
	}

	return id, true, nil
}

// GetPath optimistically returns the API path stored for id. If the stored
// path's current stat no longer matches the record, a full sync pass is
// run and the lookup retried once; if the record still cannot be
// reconciled (or was deleted during sync), it returns (_, false, nil).
func (m *LocalManager) GetPath(ctx context.Context, id ID) (string, bool, error) {
	m.logger.Debug("fileid: get_path", "id", id)

	var (
		apiPath string
		found   bool
	)

	err := m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		row, err := tx.GetByID(string(id))
		if err != nil {
			return err
		}

		if row == nil {
			return nil
		}

		st, err := statprobe.Probe(row.Path)
		if err != nil {
			return &FilesystemError{Path: row.Path, Err: err}
		}

		if st != nil && recordMatchesStat(row, st) {
			apiPath, found = m.norm.ToAPI(row.Path)
			return nil
		}

		if err := m.syncAll(ctx, tx); err != nil {
			return err
		}

		row, err = tx.GetByID(string(id))
		if err != nil {
			return err
		}

		if row == nil {
			return nil
		}

		st, err = statprobe.Probe(row.Path)
		if err != nil {
			return &FilesystemError{Path: row.Path, Err: err}
		}

		if st == nil || !recordMatchesStat(row, st) {
			return nil
		}

		apiPath, found = m.norm.ToAPI(row.Path)

		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("fileid: get_path %s: %w", id, err)
	}

	return apiPath, found, nil
}

// Move reconciles the record at oldPath to newPath. If newPath is a
// directory, every descendant record under oldPath is re-parented to the
// corresponding path under newPath. Returns ErrNotFound if newPath does not
// exist on disk.
func (m *LocalManager) Move(ctx context.Context, oldPath, newPath string) (ID, error) {
	m.logger.Info("fileid: move starting", "old_path", oldPath, "new_path", newPath)

	oldStore := m.norm.Normalize(oldPath)
	newStore := m.norm.Normalize(newPath)

	st, err := statprobe.Probe(newStore)
	if err != nil {
		return "", &FilesystemError{Path: newStore, Err: err}
	}

	if st == nil {
		return "", fmt.Errorf("fileid: move %s -> %s: %w", oldPath, newPath, ErrNotFound)
	}

	var id ID

	err = m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		row, err := tx.GetByPath(oldStore)
		if err != nil {
			return err
		}

		if st.IsDir {
			if err := tx.CascadeReparent(oldStore, newStore); err != nil {
				return err
			}
		}

		if row != nil {
			updated := store.LocalRow{
				ID:     row.ID,
				Path:   newStore,
				Ino:    st.Ino,
				CrTime: st.CrTime,
				MTime:  st.MTime,
				IsDir:  st.IsDir,
			}

			if err := tx.Update(updated); err != nil {
				return err
			}

			id = ID(row.ID)

			return nil
		}

		newID, err := m.create(tx, newStore, st)
		if err != nil {
			return err
		}

		id = newID

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fileid: move %s -> %s: %w", oldPath, newPath, err)
	}

	m.logger.Info("fileid: move complete", "old_path", oldPath, "new_path", newPath, "id", id)

	return id, nil
}

// Copy creates a fresh record at to. If to is an on-disk directory, every
// indexed descendant of from that has a corresponding on-disk entry under
// to also gets a fresh record; descendants without on-disk presence under
// to are silently skipped (no synthetic records are inserted). from is
// left untouched.
func (m *LocalManager) Copy(ctx context.Context, from, to string) (ID, error) {
	m.logger.Info("fileid: copy starting", "from", from, "to", to)

	fromStore := m.norm.Normalize(from)
	toStore := m.norm.Normalize(to)

	var newID ID

	err := m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		toSt, err := statprobe.Probe(toStore)
		if err != nil {
			return &FilesystemError{Path: toStore, Err: err}
		}

		if toSt != nil && toSt.IsDir {
			descendants, err := tx.GlobByPrefix(fromStore)
			if err != nil {
				return err
			}

			for _, d := range descendants {
				if d.Path == fromStore {
					continue
				}

				rel := strings.TrimPrefix(d.Path, fromStore)
				destPath := toStore + rel

				destSt, err := statprobe.Probe(destPath)
				if err != nil {
					return &FilesystemError{Path: destPath, Err: err}
				}

				if destSt == nil {
					continue
				}

				if _, err := m.create(tx, destPath, destSt); err != nil {
					return err
				}
			}
		}

		if _, err := m.indexStorePath(tx, fromStore, nil); err != nil {
			return err
		}

		gotID, err := m.indexStorePath(tx, toStore, nil)
		if err != nil {
			return err
		}

		newID = gotID

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fileid: copy %s -> %s: %w", from, to, err)
	}

	m.logger.Info("fileid: copy complete", "from", from, "to", to, "id", newID)

	return newID, nil
}

// Delete removes the record at p. If p is an on-disk directory, every
// descendant record is removed too.
func (m *LocalManager) Delete(ctx context.Context, p string) error {
	m.logger.Info("fileid: delete starting", "path", p)

	storePath := m.norm.Normalize(p)

	st, err := statprobe.Probe(storePath)
	if err != nil {
		return &FilesystemError{Path: storePath, Err: err}
	}

	err = m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		if st != nil && st.IsDir {
			return tx.DeleteByGlob(storePath)
		}

		return tx.DeleteByPath(storePath)
	})
	if err != nil {
		return fmt.Errorf("fileid: delete %s: %w", p, err)
	}

	m.logger.Info("fileid: delete complete", "path", p)

	return nil
}

// Save refreshes the record's (ino, crtime, mtime) after a content edit,
// preserving the ID provided the inode is unchanged. No-op if p has no
// record at the matching inode and path.
func (m *LocalManager) Save(ctx context.Context, p string) error {
	m.logger.Info("fileid: save starting", "path", p)

	storePath := m.norm.Normalize(p)

	st, err := statprobe.Probe(storePath)
	if err != nil {
		return &FilesystemError{Path: storePath, Err: err}
	}

	if st == nil {
		return nil
	}

	err = m.store.WithTx(ctx, func(tx *store.LocalTx) error {
		row, err := tx.GetByIno(st.Ino)
		if err != nil {
			return err
		}

		if row == nil || row.Path != storePath {
			return nil
		}

		updated := store.LocalRow{
			ID:     row.ID,
			Path:   row.Path,
			Ino:    st.Ino,
			CrTime: st.CrTime,
			MTime:  st.MTime,
			IsDir:  st.IsDir,
		}

		return tx.Update(updated)
	})
	if err != nil {
		return fmt.Errorf("fileid: save %s: %w", p, err)
	}

	m.logger.Info("fileid: save complete", "path", p)

	return nil
}
