package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/barventory/barventory/internal/schema"
)

// dbtx matches both *sql.DB and *sql.Tx so the same statements serve
// single-operation calls and the reconciler's multi-collection transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// encode canonicalizes a record, derives and normalizes its key, and
// serializes the document. The derived key must be non-empty.
func encode[V any](c schema.Collection[V], v V) (key, doc string, err error) {
	if c.Canonicalize != nil {
		v = c.Canonicalize(v)
	}
	key = normalizeKey(c.Key(v))
	if key == "" {
		return "", "", errEmptyKey(c.Name)
	}
	doc, err = marshalRecord(v)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", c.Name, err)
	}
	return key, doc, nil
}

// GetAll returns every record in the collection. Order is the engine's
// iteration order; an empty collection yields an empty slice, not nil.
func GetAll[V any](ctx context.Context, m *Manager, c schema.Collection[V]) ([]V, error) {
	if !schema.Known(c.Name) {
		return nil, errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT v FROM `+c.Name)
	if err != nil {
		return nil, m.observe(fmt.Errorf("query %s: %w", c.Name, err))
	}
	defer rows.Close()

	records := []V{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", c.Name, err)
		}
		v, err := unmarshalRecord[V](doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, m.observe(fmt.Errorf("iterate %s: %w", c.Name, err))
	}

	return records, nil
}

// Get returns the record for a key. Absence is reported through the bool,
// not as an error.
func Get[V any](ctx context.Context, m *Manager, c schema.Collection[V], key string) (V, bool, error) {
	var zero V
	if !schema.Known(c.Name) {
		return zero, false, errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return zero, false, err
	}

	var doc string
	err = db.QueryRowContext(ctx, `SELECT v FROM `+c.Name+` WHERE k = ?`, normalizeKey(key)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, m.observe(fmt.Errorf("get %s[%s]: %w", c.Name, key, err))
	}

	v, err := unmarshalRecord[V](doc)
	if err != nil {
		return zero, false, fmt.Errorf("%s: %w", c.Name, err)
	}
	return v, true, nil
}

// Put inserts or replaces a record and returns the key used. A key
// collision is never an error.
func Put[V any](ctx context.Context, m *Manager, c schema.Collection[V], v V) (string, error) {
	if !schema.Known(c.Name) {
		return "", errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return "", err
	}
	key, err := put(ctx, db, c, v)
	if err != nil {
		return "", m.observe(err)
	}
	return key, nil
}

// put is the transaction-participating form of Put.
func put[V any](ctx context.Context, q dbtx, c schema.Collection[V], v V) (string, error) {
	key, doc, err := encode(c, v)
	if err != nil {
		return "", err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO `+c.Name+` (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v
	`, key, doc)
	if err != nil {
		return "", fmt.Errorf("put %s[%s]: %w", c.Name, key, err)
	}
	return key, nil
}

// Add inserts a record and returns the key used. Fails with KEY_EXISTS when
// the key is already present, leaving the stored record unchanged.
func Add[V any](ctx context.Context, m *Manager, c schema.Collection[V], v V) (string, error) {
	if !schema.Known(c.Name) {
		return "", errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return "", err
	}

	key, doc, err := encode(c, v)
	if err != nil {
		return "", err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO `+c.Name+` (k, v) VALUES (?, ?)`, key, doc)
	if isConstraintErr(err) {
		return "", errKeyExists(c.Name, key)
	}
	if err != nil {
		return "", m.observe(fmt.Errorf("add %s[%s]: %w", c.Name, key, err))
	}
	return key, nil
}

// Delete removes the record for a key. Deleting an absent key succeeds.
func Delete[V any](ctx context.Context, m *Manager, c schema.Collection[V], key string) error {
	if !schema.Known(c.Name) {
		return errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}
	if err := del(ctx, db, c.Name, key); err != nil {
		return m.observe(err)
	}
	return nil
}

// del is the transaction-participating form of Delete.
func del(ctx context.Context, q dbtx, collection, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM `+collection+` WHERE k = ?`, normalizeKey(key)); err != nil {
		return fmt.Errorf("delete %s[%s]: %w", collection, key, err)
	}
	return nil
}

// Clear removes every record in the collection.
func Clear[V any](ctx context.Context, m *Manager, c schema.Collection[V]) error {
	if !schema.Known(c.Name) {
		return errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM `+c.Name); err != nil {
		return m.observe(fmt.Errorf("clear %s: %w", c.Name, err))
	}
	return nil
}

// Count returns the number of records in the collection.
func Count[V any](ctx context.Context, m *Manager, c schema.Collection[V]) (int, error) {
	if !schema.Known(c.Name) {
		return 0, errUnknownCollection(c.Name)
	}
	db, err := m.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.Name).Scan(&n); err != nil {
		return 0, m.observe(fmt.Errorf("count %s: %w", c.Name, err))
	}
	return n, nil
}

// storedKeys reads the full key set of a collection.
func storedKeys(ctx context.Context, q dbtx, collection string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT k FROM `+collection)
	if err != nil {
		return nil, fmt.Errorf("query %s keys: %w", collection, err)
	}
	defer rows.Close()

	keys := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", collection, err)
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// isConstraintErr reports whether err is a primary-key violation.
func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrConstraint
}
