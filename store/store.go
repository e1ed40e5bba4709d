// Package store persists operators and ordered operator pools in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fumin/secondq/sparse"
)

const (
	tableOp   = "op"
	tableTerm = "term"
	tablePool = "pool"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrFlavorMismatch = errors.New("flavor mismatch")
)

// Store is an SQLite database of operators.
type Store struct {
	Path string

	db *sql.DB
}

// Open opens the database at path, creating it if necessary.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{Path: path}
	var err error
	s.db, err = newDB(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores op under name, replacing any operator of the same name.
// Labels keep their order, and zero coefficients are kept.
func Save[F sparse.Flavor[F]](ctx context.Context, s *Store, name string, op *sparse.Op[F]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	if err := saveOp(ctx, tx, name, op); err != nil {
		return errors.Wrap(err, "")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func saveOp[F sparse.Flavor[F]](ctx context.Context, tx *sql.Tx, name string, op *sparse.Op[F]) error {
	meta, err := yaml.Marshal(op.Flavor())
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := deleteOp(ctx, tx, name); err != nil {
		return errors.Wrap(err, "")
	}

	sqlStr := fmt.Sprintf(`INSERT INTO %s (name, flavor, meta, register_length) VALUES (?, ?, ?, ?)`, tableOp)
	args := []any{name, op.Flavor().Name(), string(meta), op.RegisterLength()}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (name, pos, label, re, im) VALUES (?, ?, ?, ?, ?)`, tableTerm))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer stmt.Close()
	var pos int
	for label, c := range op.All() {
		if _, err := stmt.ExecContext(ctx, name, pos, label, real(c), imag(c)); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %d %q", name, pos, label))
		}
		pos++
	}
	return nil
}

func deleteOp(ctx context.Context, tx *sql.Tx, name string) error {
	for _, table := range []string{tableOp, tableTerm} {
		sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE name=?`, table)
		if _, err := tx.ExecContext(ctx, sqlStr, name); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %s", sqlStr, name))
		}
	}
	return nil
}

// Load reads the operator stored under name.
// The flavor is decoded from the database, and must have the same name as F.
func Load[F sparse.Flavor[F]](ctx context.Context, s *Store, name string) (*sparse.Op[F], error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer tx.Rollback()

	op, err := loadOp[F](ctx, tx, name)
	if err != nil {
		return nil, err
	}
	return op, nil
}

func loadOp[F sparse.Flavor[F]](ctx context.Context, tx *sql.Tx, name string) (*sparse.Op[F], error) {
	sqlStr := fmt.Sprintf(`SELECT flavor, meta, register_length FROM %s WHERE name=?`, tableOp)
	var flavorName, meta string
	var registerLength int
	err := tx.QueryRowContext(ctx, sqlStr, name).Scan(&flavorName, &meta, &registerLength)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	case err != nil:
		return nil, errors.Wrap(err, "")
	}

	var f F
	if err := yaml.Unmarshal([]byte(meta), &f); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%q", meta))
	}
	if f.Name() != flavorName {
		return nil, errors.Wrapf(ErrFlavorMismatch, "%q is %s, not %s", name, flavorName, f.Name())
	}

	sqlStr = fmt.Sprintf(`SELECT label, re, im FROM %s WHERE name=? ORDER BY pos`, tableTerm)
	rows, err := tx.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	terms := make([]sparse.Term, 0)
	for rows.Next() {
		var label string
		var re, im float64
		if err := rows.Scan(&label, &re, &im); err != nil {
			return nil, errors.Wrap(err, "")
		}
		terms = append(terms, sparse.Term{Label: label, Coeff: complex(re, im)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	op, err := sparse.New(f, terms, registerLength)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%q", name))
	}
	return op, nil
}

// SavePool stores an ordered pool of operators, replacing any pool of the same name.
func SavePool[F sparse.Flavor[F]](ctx context.Context, s *Store, pool string, ops []*sparse.Op[F]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	names, err := poolNames(ctx, tx, pool)
	if err != nil {
		return errors.Wrap(err, "")
	}
	for _, name := range names {
		if err := deleteOp(ctx, tx, name); err != nil {
			return errors.Wrap(err, "")
		}
	}
	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE pool=?`, tablePool)
	if _, err := tx.ExecContext(ctx, sqlStr, pool); err != nil {
		return errors.Wrap(err, "")
	}

	// The row at position -1 marks the pool as saved, even if it is empty.
	sqlStr = fmt.Sprintf(`INSERT INTO %s (pool, pos, name) VALUES (?, ?, ?)`, tablePool)
	if _, err := tx.ExecContext(ctx, sqlStr, pool, -1, ""); err != nil {
		return errors.Wrap(err, "")
	}
	for i, op := range ops {
		name := memberName(pool, i)
		if err := saveOp(ctx, tx, name, op); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}
		if _, err := tx.ExecContext(ctx, sqlStr, pool, i, name); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// LoadPool reads a pool of operators in the order they were saved.
func LoadPool[F sparse.Flavor[F]](ctx context.Context, s *Store, pool string) ([]*sparse.Op[F], error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer tx.Rollback()

	var n int
	sqlStr := fmt.Sprintf(`SELECT count(1) FROM %s WHERE pool=?`, tablePool)
	if err := tx.QueryRowContext(ctx, sqlStr, pool).Scan(&n); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if n == 0 {
		return nil, errors.Wrapf(ErrNotFound, "pool %q", pool)
	}

	names, err := poolNames(ctx, tx, pool)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	ops := make([]*sparse.Op[F], 0, len(names))
	for _, name := range names {
		op, err := loadOp[F](ctx, tx, name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func poolNames(ctx context.Context, tx *sql.Tx, pool string) ([]string, error) {
	sqlStr := fmt.Sprintf(`SELECT name FROM %s WHERE pool=? AND pos >= 0 ORDER BY pos`, tablePool)
	rows, err := tx.QueryContext(ctx, sqlStr, pool)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return names, nil
}

func memberName(pool string, i int) string {
	return fmt.Sprintf("%s/%d", pool, i)
}

// Names returns the names of the operators that are not pool members.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	sqlStr := fmt.Sprintf(`SELECT name FROM %s WHERE name NOT IN (SELECT name FROM %s) ORDER BY name`, tableOp, tablePool)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return names, nil
}

func newDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := prepareDB(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return db, nil
}

func prepareDB(ctx context.Context, db *sql.DB) error {
	sqlStrs := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, flavor TEXT, meta TEXT, register_length INTEGER, PRIMARY KEY (name)) STRICT`, tableOp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, pos INTEGER, label TEXT, re REAL, im REAL, PRIMARY KEY (name, pos)) STRICT`, tableTerm),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (pool TEXT, pos INTEGER, name TEXT, PRIMARY KEY (pool, pos)) STRICT`, tablePool),
	}
	for _, sqlStr := range sqlStrs {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}
