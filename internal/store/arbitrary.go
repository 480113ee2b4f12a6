package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Row is a single (id, path) record in the Arbitrary FIM schema.
type Row struct {
	ID   string
	Path string
}

// SQL for the Arbitrary schema's files table.
const (
	sqlArbGetByID = `SELECT id, path FROM files WHERE id = ?`

	sqlArbGetByPath = `SELECT id, path FROM files WHERE path = ?`

	sqlArbInsert = `INSERT INTO files (id, path) VALUES (?, ?)`

	sqlArbUpdatePath = `UPDATE files SET path = ? WHERE id = ?`

	sqlArbDeleteByPath = `DELETE FROM files WHERE path = ?`

	sqlArbDeleteByGlob = `DELETE FROM files WHERE path = ? OR path GLOB ?`

	sqlArbGlobByPrefix = `SELECT id, path FROM files WHERE path = ? OR path GLOB ?`

	// SUBSTR is 1-based in SQLite and counts characters, not bytes; the
	// caller supplies the character length of oldPrefix plus one.
	sqlArbCascadeReparent = `UPDATE files SET path = ? || SUBSTR(path, ?)
		WHERE path = ? OR path GLOB ?`
)

type arbitraryStatements struct {
	getByID         *sql.Stmt
	getByPath       *sql.Stmt
	insert          *sql.Stmt
	updatePath      *sql.Stmt
	deleteByPath    *sql.Stmt
	deleteByGlob    *sql.Stmt
	globByPrefix    *sql.Stmt
	cascadeReparent *sql.Stmt
}

// ArbitraryStore is the Record Store backing for the Arbitrary FIM: a flat
// path-keyed index with no filesystem reconciliation.
type ArbitraryStore struct {
	db     *sql.DB
	logger *slog.Logger
	stmts  arbitraryStatements
}

// OpenArbitrary opens (creating if necessary) the Arbitrary FIM database at
// path, applies migrations, and prepares statements. Use ":memory:" for
// tests.
func OpenArbitrary(ctx context.Context, path string, logger *slog.Logger) (*ArbitraryStore, error) {
	db, err := open(ctx, path, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, db, logger, arbitraryMigrationsFS, "migrations/arbitrary"); err != nil {
		db.Close()
		return nil, err
	}

	s := &ArbitraryStore{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare arbitrary statements: %w", err)
	}

	return s, nil
}

func (s *ArbitraryStore) prepareStatements(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.stmts.getByID, sqlArbGetByID, "arbGetByID"},
		{&s.stmts.getByPath, sqlArbGetByPath, "arbGetByPath"},
		{&s.stmts.insert, sqlArbInsert, "arbInsert"},
		{&s.stmts.updatePath, sqlArbUpdatePath, "arbUpdatePath"},
		{&s.stmts.deleteByPath, sqlArbDeleteByPath, "arbDeleteByPath"},
		{&s.stmts.deleteByGlob, sqlArbDeleteByGlob, "arbDeleteByGlob"},
		{&s.stmts.globByPrefix, sqlArbGlobByPrefix, "arbGlobByPrefix"},
		{&s.stmts.cascadeReparent, sqlArbCascadeReparent, "arbCascadeReparent"},
	})
}

// Close closes the underlying database connection.
func (s *ArbitraryStore) Close() error {
	return s.db.Close()
}

// ArbitraryTx is a single transaction's view of the Arbitrary store. Every
// method commits nothing itself; the enclosing WithTx call commits or rolls
// back once, for the whole operation.
type ArbitraryTx struct {
	ctx   context.Context
	tx    *sql.Tx
	stmts *arbitraryStatements
}

// WithTx runs fn inside a single SQLite transaction, committing on success
// and rolling back on any error. The deferred Rollback also runs if fn
// panics (the panic is not recovered) and is a no-op after Commit.
func (s *ArbitraryStore) WithTx(ctx context.Context, fn func(*ArbitraryTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	atx := &ArbitraryTx{ctx: ctx, tx: tx, stmts: &s.stmts}

	if err := fn(atx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}

	return nil
}

// GetByID returns the record with the given id, or (nil, nil) if absent.
func (t *ArbitraryTx) GetByID(id string) (*Row, error) {
	var r Row

	err := t.tx.StmtContext(t.ctx, t.stmts.getByID).QueryRowContext(t.ctx, id).Scan(&r.ID, &r.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get by id: %w", err)
	}

	return &r, nil
}

// GetByPath returns the record at the given exact path, or (nil, nil) if
// absent.
func (t *ArbitraryTx) GetByPath(path string) (*Row, error) {
	var r Row

	err := t.tx.StmtContext(t.ctx, t.stmts.getByPath).QueryRowContext(t.ctx, path).Scan(&r.ID, &r.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get by path: %w", err)
	}

	return &r, nil
}

// GlobByPrefix returns the record at prefix itself (if any) plus every
// descendant whose path starts with prefix + "/".
func (t *ArbitraryTx) GlobByPrefix(prefix string) ([]Row, error) {
	rows, err := t.tx.StmtContext(t.ctx, t.stmts.globByPrefix).QueryContext(t.ctx, prefix, prefix+"/*")
	if err != nil {
		return nil, fmt.Errorf("store: glob by prefix: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Path); err != nil {
			return nil, fmt.Errorf("store: scan glob row: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// Insert adds a new (id, path) record.
func (t *ArbitraryTx) Insert(id, path string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.insert).ExecContext(t.ctx, id, path); err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}

	return nil
}

// UpdatePath rewrites the path for the record with the given id.
func (t *ArbitraryTx) UpdatePath(id, path string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.updatePath).ExecContext(t.ctx, path, id); err != nil {
		return fmt.Errorf("store: update path: %w", err)
	}

	return nil
}

// DeleteByPath removes the record at the exact given path.
func (t *ArbitraryTx) DeleteByPath(path string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.deleteByPath).ExecContext(t.ctx, path); err != nil {
		return fmt.Errorf("store: delete by path: %w", err)
	}

	return nil
}

// DeleteByGlob removes the record at prefix itself plus every descendant
// under prefix.
func (t *ArbitraryTx) DeleteByGlob(prefix string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.deleteByGlob).ExecContext(t.ctx, prefix, prefix+"/*"); err != nil {
		return fmt.Errorf("store: delete by glob: %w", err)
	}

	return nil
}

// CascadeReparent rewrites oldPrefix to newPrefix across the record at
// oldPrefix itself and every path nested under it, lifted directly from the
// teacher's CascadePathUpdate.
func (t *ArbitraryTx) CascadeReparent(oldPrefix, newPrefix string) error {
	oldLen := utf8.RuneCountInString(oldPrefix) + 1

	_, err := t.tx.StmtContext(t.ctx, t.stmts.cascadeReparent).
		ExecContext(t.ctx, newPrefix, oldLen, oldPrefix, oldPrefix+"/*")
	if err != nil {
		return fmt.Errorf("store: cascade reparent %q -> %q: %w", oldPrefix, newPrefix, err)
	}

	return nil
}
