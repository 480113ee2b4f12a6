package fileid

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tonimelisma/fileid/internal/store"
)

// ArbitraryManager is a pure path-keyed FIM: it does not consult the
// filesystem and learns about operations only through explicit calls.
// Descendant matching always uses "/" as the separator, regardless of
// GOOS, because Arbitrary FIM paths are logical and host-supplied.
type ArbitraryManager struct {
	store  *store.ArbitraryStore
	logger *slog.Logger
}

// NewArbitraryManager opens (creating if necessary) the Arbitrary FIM
// database at storePath. storePath must be absolute, or the literal
// ":memory:" for tests.
func NewArbitraryManager(ctx context.Context, storePath string, logger *slog.Logger) (*ArbitraryManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if storePath != ":memory:" && !filepath.IsAbs(storePath) {
		return nil, fmt.Errorf("%w: store path %q is not absolute", ErrConfiguration, storePath)
	}

	s, err := store.OpenArbitrary(ctx, storePath, logger)
	if err != nil {
		return nil, fmt.Errorf("fileid: opening arbitrary store: %w", err)
	}

	return &ArbitraryManager{store: s, logger: logger}, nil
}

// Close releases the underlying store connection.
func (m *ArbitraryManager) Close() error {
	return m.store.Close()
}

// Index returns the existing ID at p, inserting a fresh record if absent.
func (m *ArbitraryManager) Index(ctx context.Context, p string) (ID, error) {
	m.logger.Info("fileid: index starting", "path", p)

	var id ID

	err := m.store.WithTx(ctx, func(tx *store.ArbitraryTx) error {
		row, err := tx.GetByPath(p)
		if err != nil {
			return err
		}

		if row != nil {
			id = ID(row.ID)
			return nil
		}

		newID := ID(uuid.New().String())
		if err := tx.Insert(string(newID), p); err != nil {
			return err
		}

		id = newID

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fileid: index %s: %w", p, err)
	}

	m.logger.Info("fileid: index complete", "path", p, "id", id)

	return id, nil
}

// GetID returns the ID at p, or (_, false, nil) if p is not indexed.
func (m *ArbitraryManager) GetID(ctx context.Context, p string) (ID, bool, error) {
	m.logger.Debug("fileid: get_id", "path", p)

	var (
		id    ID
		found bool
	)

	err := m.store.WithTx(ctx, func(tx *store.ArbitraryTx) error {
		row, err := tx.GetByPath(p)
		if err != nil {
			return err
		}

		if row != nil {
			id, found = ID(row.ID), true
		}

		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("fileid: get_id %s: %w", p, err)
	}

	return id, found, nil
}

// GetPath returns the stored path for id, or (_, false, nil) if unknown.
func (m *ArbitraryManager) GetPath(ctx context.Context, id ID) (string, bool, error) {
	m.logger.Debug("fileid: get_path", "id", id)

	var (
		path  string
		found bool
	)

	err := m.store.WithTx(ctx, func(tx *store.ArbitraryTx) error {
		row, err := tx.GetByID(string(id))
		if err != nil {
			return err
		}

		if row != nil {
			path, found = row.Path, true
		}

		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("fileid: get_path %s: %w", id, err)
	}

	return path, found, nil
}

// Move updates the record at oldPath to newPath, re-parenting every
// descendant whose path begins with oldPath+"/". If oldPath has no record,
// a new one is inserted at newPath instead.
func (m *ArbitraryManager) Move(ctx context.Context, oldPath, newPath string) (ID, error) {
	m.logger.Info("fileid: move starting", "old_path", oldPath, "new_path", newPath)

	var id ID

	err := m.store.WithTx(ctx, func(tx *store.ArbitraryTx) error {
		row, err := tx.GetByPath(oldPath)
		if err != nil {
			return err
		}

		if row == nil {
			newID := ID(uuid.New().String())
			if err := tx.Insert(string(newID), newPath); err != nil {
				return err
			}

			id = newID

			return nil
		}

		if err := tx.CascadeReparent(oldPath, newPath); err != nil {
			return err
		}

		id = ID(row.ID)

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fileid: move %s -> %s: %w", oldPath, newPath, err)
	}

	m.logger.Info("fileid: move complete", "old_path", oldPath, "new_path", newPath, "id", id)

	return id, nil
}

// Copy inserts a new record at to with a fresh ID, plus a new record (each
// with its own fresh ID) for every descendant of from under the
// corresponding path beneath to. from is left untouched.
func (m *ArbitraryManager) Copy(ctx context.Context, from, to string) (ID, error) {
	m.logger.Info("fileid: copy starting", "from", from, "to", to)

	var newID ID

	err := m.store.WithTx(ctx, func(tx *store.ArbitraryTx) error {
		newID = ID(uuid.New().String())
		if err := tx.Insert(string(newID), to); err != nil {
			return err
		}

		descendants, err := tx.GlobByPrefix(from)
		if err != nil {
			return err
		}

		for _, d := range descendants {
			if d.Path == from {
				continue
			}

			rel := strings.TrimPrefix(d.Path, from)
			destPath := to + rel

			descID := ID(uuid.New().String())
			if err := tx.Insert(string(descID), destPath); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fileid: copy %s -> %s: %w", from, to, err)
	}

	m.logger.Info("fileid: copy complete", "from", from, "to", to, "id", newID)

	return newID, nil
}

// Delete removes the record at p and all its descendants.
func (m *ArbitraryManager) Delete(ctx context.Context, p string) error {
	m.logger.Info("fileid: delete starting", "path", p)

	if err := m.store.WithTx(ctx, func(tx *store.ArbitraryTx) error {
		return tx.DeleteByGlob(p)
	}); err != nil {
		return fmt.Errorf("fileid: delete %s: %w", p, err)
	}

	m.logger.Info("fileid: delete complete", "path", p)

	return nil
}

// Save is a no-op: Arbitrary FIM does not track content.
func (m *ArbitraryManager) Save(_ context.Context, _ string) error {
	return nil
}
