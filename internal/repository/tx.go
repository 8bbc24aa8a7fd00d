package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTransaction runs fn inside a database transaction. The transaction
// is rolled back when fn returns an error or panics, otherwise committed.
// All writes issued through the *sql.Tx handed to fn commit or roll back
// as one atomic unit.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
