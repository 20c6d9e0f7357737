package repository

import (
	"context"
	"database/sql"
)

// Store owns the database handle and runs units of work.  Repositories
// hold a *Store and resolve their executor per call, so the same method
// works inside or outside a transaction: WithTx stashes the *sql.Tx in
// the context and every statement issued under that context joins it.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for wiring (ping checks, shutdown).
func (s *Store) DB() *sql.DB { return s.db }

type txKey struct{}

// WithTx runs fn inside a transaction.  A nested call joins the ambient
// transaction instead of opening a second one.  fn returning an error
// rolls everything back; otherwise the transaction commits.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the ambient transaction when present, the pool otherwise.
func (s *Store) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
