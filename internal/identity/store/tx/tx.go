// Package tx provides the transactional boundary shared by the identity
// stores. Services run multi-entity write sequences through a Runner; SQL
// stores pick the transaction out of the context so the same store code
// works inside and outside a transaction.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor returns the context transaction when one is open, otherwise the
// bare connection pool.
func Executor(ctx context.Context, db *sql.DB) Queryer {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Runner executes a function within a transactional boundary. SQL
// implementations wrap a database transaction; the in-memory implementation
// uses a coarse lock with snapshot rollback so service tests exercise the
// same all-or-nothing contract.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs functions inside a database transaction.
type SQLRunner struct {
	db *sql.DB
}

// NewSQL builds a Runner over a connection pool.
func NewSQL(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
