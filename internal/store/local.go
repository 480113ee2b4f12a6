package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ErrConstraint signals that an Insert rejected a row on the ino UNIQUE
// constraint: two live records would otherwise claim the same inode.
var ErrConstraint = errors.New("store: constraint violation")

// LocalRow is a single record in the Local FIM schema: a path-keyed entry
// cross-referenced to the filesystem by inode.
type LocalRow struct {
	ID     string
	Path   string
	Ino    uint64
	CrTime *int64
	MTime  int64
	IsDir  bool
}

// SQL for the Local schema's files table.
const (
	sqlLocalGetByID = `SELECT id, path, ino, crtime, mtime, is_dir FROM files WHERE id = ?`

	sqlLocalGetByPath = `SELECT id, path, ino, crtime, mtime, is_dir FROM files WHERE path = ? LIMIT 1`

	sqlLocalGetByIno = `SELECT id, path, ino, crtime, mtime, is_dir FROM files WHERE ino = ?`

	sqlLocalInsert = `INSERT INTO files (id, path, ino, crtime, mtime, is_dir)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlLocalUpdate = `UPDATE files SET path = ?, ino = ?, crtime = ?, mtime = ?, is_dir = ?
		WHERE id = ?`

	sqlLocalUpdatePath = `UPDATE files SET path = ? WHERE id = ?`

	sqlLocalDeleteByID = `DELETE FROM files WHERE id = ?`

	sqlLocalDeleteByPath = `DELETE FROM files WHERE path = ?`

	sqlLocalDeleteByGlob = `DELETE FROM files WHERE path = ? OR path GLOB ?`

	sqlLocalGlobByPrefix = `SELECT id, path, ino, crtime, mtime, is_dir
		FROM files WHERE path = ? OR path GLOB ?`

	sqlLocalListDirs = `SELECT id, path, ino, crtime, mtime, is_dir
		FROM files WHERE is_dir = 1`

	sqlLocalCascadeReparent = `UPDATE files SET path = ? || SUBSTR(path, ?)
		WHERE path = ? OR path GLOB ?`
)

type localStatements struct {
	getByID         *sql.Stmt
	getByPath       *sql.Stmt
	getByIno        *sql.Stmt
	insert          *sql.Stmt
	update          *sql.Stmt
	updatePath      *sql.Stmt
	deleteByID      *sql.Stmt
	deleteByPath    *sql.Stmt
	deleteByGlob    *sql.Stmt
	globByPrefix    *sql.Stmt
	listDirs        *sql.Stmt
	cascadeReparent *sql.Stmt
}

// LocalStore is the Record Store backing for the Local FIM: a path-keyed
// index kept in sync with the real filesystem via inode identity.
type LocalStore struct {
	db     *sql.DB
	logger *slog.Logger
	stmts  localStatements
}

// OpenLocal opens (creating if necessary) the Local FIM database at path,
// applies migrations, and prepares statements. Use ":memory:" for tests.
func OpenLocal(ctx context.Context, path string, logger *slog.Logger) (*LocalStore, error) {
	db, err := open(ctx, path, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, db, logger, localMigrationsFS, "migrations/local"); err != nil {
		db.Close()
		return nil, err
	}

	s := &LocalStore{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare local statements: %w", err)
	}

	return s, nil
}

func (s *LocalStore) prepareStatements(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.stmts.getByID, sqlLocalGetByID, "localGetByID"},
		{&s.stmts.getByPath, sqlLocalGetByPath, "localGetByPath"},
		{&s.stmts.getByIno, sqlLocalGetByIno, "localGetByIno"},
		{&s.stmts.insert, sqlLocalInsert, "localInsert"},
		{&s.stmts.update, sqlLocalUpdate, "localUpdate"},
		{&s.stmts.updatePath, sqlLocalUpdatePath, "localUpdatePath"},
		{&s.stmts.deleteByID, sqlLocalDeleteByID, "localDeleteByID"},
		{&s.stmts.deleteByPath, sqlLocalDeleteByPath, "localDeleteByPath"},
		{&s.stmts.deleteByGlob, sqlLocalDeleteByGlob, "localDeleteByGlob"},
		{&s.stmts.globByPrefix, sqlLocalGlobByPrefix, "localGlobByPrefix"},
		{&s.stmts.listDirs, sqlLocalListDirs, "localListDirs"},
		{&s.stmts.cascadeReparent, sqlLocalCascadeReparent, "localCascadeReparent"},
	})
}

// Close closes the underlying database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// LocalTx is a single transaction's view of the Local store.
type LocalTx struct {
	ctx   context.Context
	tx    *sql.Tx
	stmts *localStatements
}

// WithTx runs fn inside a single SQLite transaction, committing on success
// and rolling back on any error.
func (s *LocalStore) WithTx(ctx context.Context, fn func(*LocalTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	ltx := &LocalTx{ctx: ctx, tx: tx, stmts: &s.stmts}

	if err := fn(ltx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}

	return nil
}

func scanLocalRow(row interface {
	Scan(dest ...any) error
}) (*LocalRow, error) {
	var r LocalRow
	var isDir int64

	if err := row.Scan(&r.ID, &r.Path, &r.Ino, &r.CrTime, &r.MTime, &isDir); err != nil {
		return nil, err
	}

	r.IsDir = isDir != 0

	return &r, nil
}

// GetByID returns the record with the given id, or (nil, nil) if absent.
func (t *LocalTx) GetByID(id string) (*LocalRow, error) {
	r, err := scanLocalRow(t.tx.StmtContext(t.ctx, t.stmts.getByID).QueryRowContext(t.ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get by id: %w", err)
	}

	return r, nil
}

// GetByPath returns the first record at the given path, or (nil, nil) if
// absent. Local paths are not guaranteed unique during reconciliation races,
// so callers that need a specific record should disambiguate by id or ino.
func (t *LocalTx) GetByPath(path string) (*LocalRow, error) {
	r, err := scanLocalRow(t.tx.StmtContext(t.ctx, t.stmts.getByPath).QueryRowContext(t.ctx, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get by path: %w", err)
	}

	return r, nil
}

// GetByIno returns the record with the given inode, or (nil, nil) if absent.
func (t *LocalTx) GetByIno(ino uint64) (*LocalRow, error) {
	r, err := scanLocalRow(t.tx.StmtContext(t.ctx, t.stmts.getByIno).QueryRowContext(t.ctx, ino))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get by ino: %w", err)
	}

	return r, nil
}

// GlobByPrefix returns the record at prefix itself (if any) plus every
// descendant whose path starts with prefix + "/".
func (t *LocalTx) GlobByPrefix(prefix string) ([]LocalRow, error) {
	rows, err := t.tx.StmtContext(t.ctx, t.stmts.globByPrefix).QueryContext(t.ctx, prefix, prefix+"/*")
	if err != nil {
		return nil, fmt.Errorf("store: glob by prefix: %w", err)
	}
	defer rows.Close()

	var out []LocalRow
	for rows.Next() {
		r, err := scanLocalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan glob row: %w", err)
		}
		out = append(out, *r)
	}

	return out, rows.Err()
}

// Insert adds a new record. Returns an error wrapping ErrConstraint if r.Ino
// collides with an existing record's inode (the ino column is UNIQUE).
func (t *LocalTx) Insert(r LocalRow) error {
	_, err := t.tx.StmtContext(t.ctx, t.stmts.insert).ExecContext(t.ctx,
		r.ID, r.Path, r.Ino, r.CrTime, r.MTime, boolToInt(r.IsDir))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("store: insert: %w: %w", ErrConstraint, err)
		}

		return fmt.Errorf("store: insert: %w", err)
	}

	return nil
}

// Update overwrites every mutable field of the record with the given id.
func (t *LocalTx) Update(r LocalRow) error {
	_, err := t.tx.StmtContext(t.ctx, t.stmts.update).ExecContext(t.ctx,
		r.Path, r.Ino, r.CrTime, r.MTime, boolToInt(r.IsDir), r.ID)
	if err != nil {
		return fmt.Errorf("store: update: %w", err)
	}

	return nil
}

// UpdatePath rewrites only the path for the record with the given id.
func (t *LocalTx) UpdatePath(id, path string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.updatePath).ExecContext(t.ctx, path, id); err != nil {
		return fmt.Errorf("store: update path: %w", err)
	}

	return nil
}

// ListDirs returns every record with is_dir = true, the driving set for a
// full reconciliation pass.
func (t *LocalTx) ListDirs() ([]LocalRow, error) {
	rows, err := t.tx.StmtContext(t.ctx, t.stmts.listDirs).QueryContext(t.ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list dirs: %w", err)
	}
	defer rows.Close()

	var out []LocalRow
	for rows.Next() {
		r, err := scanLocalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan dir row: %w", err)
		}
		out = append(out, *r)
	}

	return out, rows.Err()
}

// DeleteByID removes the record with the given id. Local paths are not
// unique, so deletion keyed by path alone could remove the wrong record;
// callers that know the id (e.g. after a timestamp-divergence detection in
// syncFile) must use this instead of DeleteByPath.
func (t *LocalTx) DeleteByID(id string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.deleteByID).ExecContext(t.ctx, id); err != nil {
		return fmt.Errorf("store: delete by id: %w", err)
	}

	return nil
}

// DeleteByPath removes the record at the exact given path.
func (t *LocalTx) DeleteByPath(path string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.deleteByPath).ExecContext(t.ctx, path); err != nil {
		return fmt.Errorf("store: delete by path: %w", err)
	}

	return nil
}

// DeleteByGlob removes the record at prefix itself plus every descendant
// under prefix.
func (t *LocalTx) DeleteByGlob(prefix string) error {
	if _, err := t.tx.StmtContext(t.ctx, t.stmts.deleteByGlob).ExecContext(t.ctx, prefix, prefix+"/*"); err != nil {
		return fmt.Errorf("store: delete by glob: %w", err)
	}

	return nil
}

// CascadeReparent rewrites oldPrefix to newPrefix across the record at
// oldPrefix itself and every path nested under it.
func (t *LocalTx) CascadeReparent(oldPrefix, newPrefix string) error {
	oldLen := utf8.RuneCountInString(oldPrefix) + 1

	_, err := t.tx.StmtContext(t.ctx, t.stmts.cascadeReparent).
		ExecContext(t.ctx, newPrefix, oldLen, oldPrefix, oldPrefix+"/*")
	if err != nil {
		return fmt.Errorf("store: cascade reparent %q -> %q: %w", oldPrefix, newPrefix, err)
	}

	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
