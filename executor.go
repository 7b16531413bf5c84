package fluentmig

import (
	"context"
	"database/sql"
	"errors"
)

// Rows is the minimal result cursor the engine reads ledger and lock state
// through. *sql.Rows satisfies it; test doubles provide their own.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// StatementRunner executes and queries single statements. Both an Executor
// and an open Tx satisfy it, so ledger writes can run inside the unit's
// transaction.
type StatementRunner interface {
	Execute(ctx context.Context, statement string) (int64, error)
	Query(ctx context.Context, statement string) (Rows, error)
}

// Tx is one open transaction.
type Tx interface {
	StatementRunner
	Commit() error
	Rollback() error
}

// Executor is the thin synchronous seam between the engine and a live
// database connection. The engine renders literal SQL and pushes it through
// here; connection management and wire protocol belong to the driver behind
// it.
type Executor interface {
	StatementRunner
	Begin(ctx context.Context) (Tx, error)
}

// DBExecutor adapts a *database/sql.DB to the Executor seam. Deadline
// failures surface as TimeoutError so callers can tell them from statement
// errors.
type DBExecutor struct {
	DB *sql.DB
}

// NewDBExecutor wraps an open database handle.
func NewDBExecutor(db *sql.DB) *DBExecutor {
	return &DBExecutor{DB: db}
}

// Execute runs one statement and returns the affected-row count.
func (e *DBExecutor) Execute(ctx context.Context, statement string) (int64, error) {
	res, err := e.DB.ExecContext(ctx, statement)
	if err != nil {
		return 0, wrapTimeout(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count for DDL; the statement itself
		// succeeded.
		return 0, nil
	}
	return n, nil
}

// Query runs one statement and returns its rows.
func (e *DBExecutor) Query(ctx context.Context, statement string) (Rows, error) {
	rows, err := e.DB.QueryContext(ctx, statement)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	return rows, nil
}

// Begin opens a transaction.
func (e *DBExecutor) Begin(ctx context.Context) (Tx, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	return &dbTx{tx: tx}, nil
}

type dbTx struct {
	tx *sql.Tx
}

func (t *dbTx) Execute(ctx context.Context, statement string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, statement)
	if err != nil {
		return 0, wrapTimeout(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (t *dbTx) Query(ctx context.Context, statement string) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, statement)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	return rows, nil
}

func (t *dbTx) Commit() error   { return t.tx.Commit() }
func (t *dbTx) Rollback() error { return t.tx.Rollback() }

func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Underlying: err}
	}
	return err
}
