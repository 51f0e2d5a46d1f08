package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// dbExecutor is satisfied by both *sql.DB and *sql.Tx, letting query
// helpers below run unchanged whether or not a transaction is open.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx runs fn inside a single database/sql transaction at read-committed
// isolation (spec §5), committing on success and rolling back on error or
// panic. The Public Façade wraps every one of its five operations in
// exactly one call to WithTx (spec §5: "single transaction per call").
// Server-mode transient errors are retried with exponential backoff before
// giving up; embedded mode relies on the driver's own retry behavior.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return fmt.Errorf("sqlstore: begin tx: %w", err)
		}

		done := false
		defer func() {
			if !done {
				_ = tx.Rollback()
			}
		}()

		txCtx := context.WithValue(ctx, txKey{}, tx)
		if err := fn(txCtx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlstore: commit: %w", err)
		}
		done = true
		return nil
	})
}

// exec resolves the dbExecutor to use for a call: the open transaction
// carried on ctx (the common case, since every public operation runs
// inside WithTx), falling back to the bare *sql.DB for read-only helpers
// invoked outside a transaction (e.g. diagnostics, tests).
func (s *Store) exec(ctx context.Context) dbExecutor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// withRetry retries op against transient server-mode connection errors.
// Embedded mode returns op() unchanged: the embedded driver already retries
// at a lower layer, so double-retrying would only mask real failures
// behind delay.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if !s.cfg.ServerMode {
		return op()
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.cfg.retryMaxElapsed()
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

// isRetryableError recognizes the same transient connection conditions the
// teacher's Dolt backend retries in server mode.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection", "invalid connection", "broken pipe",
		"connection reset", "connection refused", "database is read only",
		"lost connection", "gone away", "i/o timeout", "unknown database",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// nowFunc is overridable in tests; production code always uses time.Now.
var nowFunc = time.Now
