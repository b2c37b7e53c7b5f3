package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/barventory/barventory/internal/schema"
)

// runPendingMigrations interprets the registry's step descriptors for every
// migration whose version exceeds the on-disk version, strictly in version
// order. The version pragma is written inside the same transaction as the
// last step, so the on-disk version advances atomically with the schema it
// describes. Re-running against a current schema is a no-op. Exclusive
// access is mandatory; a busy failure surfaces to the caller, which owns the
// blocked-state retry.
func runPendingMigrations(ctx context.Context, db *sql.DB, fromVersion int) error {
	var pending []schema.Migration
	for _, mig := range schema.Migrations() {
		if mig.Version > fromVersion {
			pending = append(pending, mig)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, mig := range pending {
		for _, step := range mig.Steps {
			if err := execStep(ctx, tx, step); err != nil {
				return fmt.Errorf("migration to v%d: %w", mig.Version, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schema.Version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return tx.Commit()
}

// execStep executes one migration step descriptor. Both kinds are
// create-if-absent: re-creating an existing collection or index is a no-op,
// not an error. Unknown kinds are rejected so a future destructive kind
// cannot slip through this interpreter silently.
func execStep(ctx context.Context, tx *sql.Tx, step schema.Step) error {
	if !schema.Known(step.Collection) {
		return errUnknownCollection(step.Collection)
	}

	switch step.Kind {
	case schema.StepCreateCollection:
		_, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (k TEXT PRIMARY KEY, v TEXT NOT NULL)`,
			step.Collection,
		))
		if err != nil {
			return fmt.Errorf("create collection %s: %w", step.Collection, err)
		}
		return nil

	case schema.StepCreateIndex:
		_, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s (json_extract(v, '$.%s'))`,
			step.Index, step.Collection, step.Field,
		))
		if err != nil {
			return fmt.Errorf("create index %s on %s: %w", step.Index, step.Collection, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown migration step kind %d", step.Kind)
	}
}
