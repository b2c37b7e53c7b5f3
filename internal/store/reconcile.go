package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/barventory/barventory/internal/schema"
)

// Replacement is one collection's contribution to a ReplaceAll call. Build
// values with Replace or Singleton.
type Replacement interface {
	collection() string
	apply(ctx context.Context, tx *sql.Tx) error
}

// Replace declares that the collection's contents must equal records after
// reconciliation: incoming records are put (insert-or-replace), stored keys
// absent from the incoming set are deleted. An empty records slice empties
// the collection.
func Replace[V any](c schema.Collection[V], records []V) Replacement {
	return replaceSet[V]{c: c, records: records}
}

// Singleton declares a put of one record under its collection's canonical
// key. Nothing is deleted; omitting the singleton from a ReplaceAll call
// leaves it untouched, which is the deliberate asymmetry from Replace.
func Singleton[V any](c schema.Collection[V], record V) Replacement {
	return singletonSet[V]{c: c, record: record}
}

type replaceSet[V any] struct {
	c       schema.Collection[V]
	records []V
}

func (s replaceSet[V]) collection() string { return s.c.Name }

func (s replaceSet[V]) apply(ctx context.Context, tx *sql.Tx) error {
	stored, err := storedKeys(ctx, tx, s.c.Name)
	if err != nil {
		return err
	}

	// Put every incoming record: adds new keys and refreshes existing ones
	// in one pass, no existence check needed.
	incoming := make(map[string]bool, len(s.records))
	for _, v := range s.records {
		key, err := put(ctx, tx, s.c, v)
		if err != nil {
			return err
		}
		incoming[key] = true
	}

	// Delete stored keys the caller no longer holds: true replace
	// semantics, not an additive merge.
	for k := range stored {
		if incoming[k] {
			continue
		}
		if err := del(ctx, tx, s.c.Name, k); err != nil {
			return err
		}
	}

	return nil
}

type singletonSet[V any] struct {
	c      schema.Collection[V]
	record V
}

func (s singletonSet[V]) collection() string { return s.c.Name }

func (s singletonSet[V]) apply(ctx context.Context, tx *sql.Tx) error {
	_, err := put(ctx, tx, s.c, s.record)
	return err
}

// ReplaceAll commits the given replacements in one transaction spanning
// exactly the collections they name. Any failure aborts the whole
// transaction: the store reverts to its pre-call state, the error reaches
// the caller, and the notifier receives a save-failed event. After success,
// GetAll on every replaced collection returns exactly the incoming set.
func ReplaceAll(ctx context.Context, m *Manager, sets ...Replacement) error {
	names := make([]string, 0, len(sets))
	for _, s := range sets {
		if !schema.Known(s.collection()) {
			return errUnknownCollection(s.collection())
		}
		names = append(names, s.collection())
	}

	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	m.checkVersionDrift(ctx, db)

	err = func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reconcile tx: %w", err)
		}
		defer tx.Rollback() // No-op if committed

		for _, s := range sets {
			if err := s.apply(ctx, tx); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reconcile tx: %w", err)
		}
		return nil
	}()

	if err != nil {
		err = m.observe(err)
		m.notifier.Notify(Event{
			Kind:     EventSaveFailed,
			Severity: SeverityError,
			Message:  fmt.Sprintf("saving %s failed", strings.Join(names, ", ")),
			Err:      err,
		})
		return &Error{
			Code:    ErrCodeSaveFailed,
			Message: "reconciliation aborted, no writes applied",
			Err:     err,
		}
	}

	m.log.Debugw("reconciled", "collections", names)
	return nil
}
