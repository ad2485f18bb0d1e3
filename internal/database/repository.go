package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"investment-platform/internal/faults"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every
// repository method works identically inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides data access for all platform entities. Methods are
// split across repository_*.go files by concern.
type Repository struct {
	db *DB
	q  querier
}

// NewRepository creates a new repository backed by the connection pool.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db, q: db.Pool}
}

// WithTx runs fn inside a single database transaction. The repository
// passed to fn routes every query through the transaction, so a profit
// credit and its ledger increment (or a withdrawal completion and its
// debit) commit or roll back as one unit.
func (r *Repository) WithTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	if _, ok := r.q.(pgx.Tx); ok {
		// Already inside a transaction; reuse it.
		return fn(r)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return &faults.StorageError{Op: "begin tx", Err: err}
	}

	txRepo := &Repository{db: r.db, q: tx}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &faults.StorageError{Op: "commit tx", Err: err}
	}

	return nil
}

// HealthCheck verifies the underlying pool is reachable.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// storageErr wraps a driver error unless it is already a domain error.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &faults.StorageError{Op: op, Err: err}
}

// isNoRows reports whether err is the pgx no-rows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
