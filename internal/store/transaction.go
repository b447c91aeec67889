package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
)

// TxFn is the unit of work handed to RunInTransaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn inside a single transaction. The transaction
// commits only when fn returns nil; an error or a panic rolls it back.
// Failures to begin or commit wrap ErrTransactionFailed, and a failed
// rollback is joined onto fn's error.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, beginErr := db.BeginTx(ctx, nil)
	if beginErr != nil {
		log.Error("failed to begin transaction", redact.Attr(beginErr))
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrTransactionFailed, beginErr)
	}

	done := false
	defer func() {
		if done {
			return
		}
		p := recover()
		cause := err
		if p != nil {
			cause = fmt.Errorf("panic: %v", p)
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("transaction rollback failed",
				slog.String("rollback_error", redact.Error(rbErr)),
				slog.String("original_error", redact.Error(cause)))
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		} else {
			log.Debug("transaction rolled back", redact.Attr(cause))
		}
		if p != nil {
			// ALLOW-PANIC: re-raise after the rollback
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	done = true
	if commitErr := tx.Commit(); commitErr != nil {
		log.Error("failed to commit transaction", redact.Attr(commitErr))
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrTransactionFailed, commitErr)
	}
	return nil
}
