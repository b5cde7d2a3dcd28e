package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// DBTxKey carries an open transaction through a request context so that
	// repositories participate in it instead of using the pool directly.
	DBTxKey contextKey = "db_tx"
	// DBConnKey carries a dedicated pool connection through a request context.
	DBConnKey contextKey = "db_conn"
)

// TxFromContext retrieves the active transaction from context, or nil when
// the caller is not running inside a transaction.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ConnFromContext retrieves a dedicated database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// WithTx begins a transaction on the pool and returns a derived context that
// carries it. The caller owns the transaction and must Commit or Rollback.
// If the context already carries a transaction it is reused, in which case
// the returned transaction must NOT be committed by the nested caller.
func WithTx(ctx context.Context, pool *pgxpool.Pool) (context.Context, pgx.Tx, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return ctx, tx, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}

	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// DetachTx returns a context that no longer carries an enclosing
// transaction or dedicated connection, so repositories fall back to the
// pool. Used for writes that must survive the caller's rollback, such as
// access logs.
func DetachTx(ctx context.Context) context.Context {
	if TxFromContext(ctx) == nil && ConnFromContext(ctx) == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, DBTxKey, nil)
	return context.WithValue(ctx, DBConnKey, nil)
}

// RunInTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise. Nested calls join the outer
// transaction and leave commit/rollback to it.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	txCtx, tx, err := WithTx(ctx, pool)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
