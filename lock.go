package fluentmig

import (
	"context"
	"fmt"
	"hash/fnv"
)

// advisoryLock is the cross-process mutual exclusion around a run. The
// Plan-then-Execute window is a read-then-act race when several application
// instances start up together, so the lock is taken before planning and held
// until the run finishes or fails.
//
// Postgres, SQL Server, and MySQL use their session-scoped advisory locks.
// SQLite has none, so a single-row lock table next to the ledger stands in;
// its insert either succeeds or hits the primary key of a concurrent holder.
type advisoryLock struct {
	gen    *Generator
	ledger string
}

func newAdvisoryLock(gen *Generator, ledgerTable string) *advisoryLock {
	return &advisoryLock{gen: gen, ledger: ledgerTable}
}

// name returns the lock resource identifier, tied to the ledger table so two
// tools with separate ledgers in one database do not exclude each other.
func (a *advisoryLock) name() string {
	return "fluentmig:" + a.ledger
}

// key folds the lock name into the 64-bit key space Postgres advisory locks
// use.
func (a *advisoryLock) key() int64 {
	h := fnv.New64a()
	h.Write([]byte(a.name()))
	return int64(h.Sum64())
}

func (a *advisoryLock) unavailable() error {
	return &LockUnavailableError{Dialect: a.gen.Dialect()}
}

// Acquire takes the lock without waiting. Contention is a
// LockUnavailableError and the caller aborts with no side effects.
func (a *advisoryLock) Acquire(ctx context.Context, ex Executor) error {
	switch a.gen.Dialect() {
	case Postgres:
		return a.acquireBool(ctx, ex, fmt.Sprintf("SELECT pg_try_advisory_lock(%d)", a.key()))
	case MySQL:
		return a.acquireBool(ctx, ex, fmt.Sprintf("SELECT GET_LOCK('%s', 0)", a.name()))
	case SQLServer:
		stmt := fmt.Sprintf(
			"DECLARE @r INT; EXEC @r = sp_getapplock @Resource = '%s', @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = 0; SELECT @r",
			a.name())
		rows, err := ex.Query(ctx, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()
		var r int
		if !rows.Next() {
			return a.unavailable()
		}
		if err := rows.Scan(&r); err != nil {
			return err
		}
		if r < 0 {
			return a.unavailable()
		}
		return rows.Err()
	case SQLite:
		table := a.gen.d.quote(a.ledger + "_lock")
		ensure := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s ("id" INTEGER NOT NULL PRIMARY KEY CHECK ("id" = 1))`, table)
		if _, err := ex.Execute(ctx, ensure); err != nil {
			return err
		}
		if _, err := ex.Execute(ctx, fmt.Sprintf(`INSERT INTO %s ("id") VALUES (1)`, table)); err != nil {
			return a.unavailable()
		}
		return nil
	}
	return fmt.Errorf("no lock strategy for dialect %s", a.gen.Dialect())
}

// acquireBool runs a query whose single cell is truthy on success.
func (a *advisoryLock) acquireBool(ctx context.Context, ex Executor, stmt string) error {
	rows, err := ex.Query(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		return a.unavailable()
	}
	var got bool
	if err := rows.Scan(&got); err != nil {
		return err
	}
	if !got {
		return a.unavailable()
	}
	return rows.Err()
}

// Release drops the lock. Called in every exit path after Acquire succeeds;
// release failures are reported but do not mask the run's own error.
func (a *advisoryLock) Release(ctx context.Context, ex Executor) error {
	switch a.gen.Dialect() {
	case Postgres:
		rows, err := ex.Query(ctx, fmt.Sprintf("SELECT pg_advisory_unlock(%d)", a.key()))
		if err != nil {
			return err
		}
		return rows.Close()
	case MySQL:
		rows, err := ex.Query(ctx, fmt.Sprintf("SELECT RELEASE_LOCK('%s')", a.name()))
		if err != nil {
			return err
		}
		return rows.Close()
	case SQLServer:
		_, err := ex.Execute(ctx, fmt.Sprintf(
			"EXEC sp_releaseapplock @Resource = '%s', @LockOwner = 'Session'", a.name()))
		return err
	case SQLite:
		table := a.gen.d.quote(a.ledger + "_lock")
		_, err := ex.Execute(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = 1`, table))
		return err
	}
	return nil
}
