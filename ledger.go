package fluentmig

import (
	"context"
	"fmt"
	"time"
)

// DefaultLedgerTable is the version-ledger table name used when the config
// does not name one.
const DefaultLedgerTable = "schemaversion"

// VersionLedgerEntry is one persisted row of the ledger: proof that a
// migration version has been applied.
type VersionLedgerEntry struct {
	Version     int64
	AppliedAt   time.Time
	Description string
}

// Ledger reads and writes the version-ledger table for one dialect. The
// ledger is the single source of truth for applied state; the runner never
// infers it from schema introspection.
type Ledger struct {
	table string
	gen   *Generator
}

// NewLedger returns a ledger client over the given table name.
func NewLedger(table string, gen *Generator) *Ledger {
	if table == "" {
		table = DefaultLedgerTable
	}
	return &Ledger{table: table, gen: gen}
}

// Table returns the ledger table name.
func (l *Ledger) Table() string { return l.table }

func (l *Ledger) quoted() string {
	return l.gen.d.quote(l.table)
}

// ensureSQL returns the dialect's create-if-absent statement for the ledger
// table: (version BIGINT PRIMARY KEY, applied_at timestamp, description).
func (l *Ledger) ensureSQL() string {
	qt := l.quoted()
	switch l.gen.Dialect() {
	case SQLServer:
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s ([version] BIGINT NOT NULL PRIMARY KEY, [applied_at] DATETIME2 NOT NULL, [description] NVARCHAR(400) NOT NULL)",
			l.table, qt)
	case MySQL:
		return fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (`version` BIGINT NOT NULL PRIMARY KEY, `applied_at` DATETIME NOT NULL, `description` VARCHAR(400) NOT NULL)",
			qt)
	case SQLite:
		return fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s ("version" INTEGER NOT NULL PRIMARY KEY, "applied_at" TIMESTAMP NOT NULL, "description" TEXT NOT NULL)`,
			qt)
	default: // Postgres
		return fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s ("version" BIGINT NOT NULL PRIMARY KEY, "applied_at" TIMESTAMP NOT NULL, "description" TEXT NOT NULL)`,
			qt)
	}
}

// EnsureTable creates the ledger table when it does not exist yet.
func (l *Ledger) EnsureTable(ctx context.Context, r StatementRunner) error {
	_, err := r.Execute(ctx, l.ensureSQL())
	return err
}

// Exists reports whether the ledger table is present, using each dialect's
// catalog so read-only callers can probe without creating it.
func (l *Ledger) Exists(ctx context.Context, r StatementRunner) (bool, error) {
	var stmt string
	switch l.gen.Dialect() {
	case SQLServer:
		stmt = fmt.Sprintf("SELECT CASE WHEN OBJECT_ID(N'%s', N'U') IS NULL THEN 0 ELSE 1 END", l.table)
	case MySQL:
		stmt = fmt.Sprintf("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = '%s'", l.table)
	case SQLite:
		stmt = fmt.Sprintf("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = '%s'", l.table)
	default: // Postgres
		stmt = fmt.Sprintf("SELECT COUNT(*) FROM pg_catalog.pg_tables WHERE schemaname = current_schema() AND tablename = '%s'", l.table)
	}
	rows, err := r.Query(ctx, stmt)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return false, rows.Err()
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, rows.Err()
}

// Entries returns every ledger row ordered by version ascending.
func (l *Ledger) Entries(ctx context.Context, r StatementRunner) ([]VersionLedgerEntry, error) {
	q := l.gen.d.quote
	stmt := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY %s ASC",
		q("version"), q("applied_at"), q("description"), l.quoted(), q("version"))
	rows, err := r.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VersionLedgerEntry
	for rows.Next() {
		var e VersionLedgerEntry
		if err := rows.Scan(&e.Version, &e.AppliedAt, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MaxVersion returns the highest applied version, or 0 when the ledger is
// empty.
func (l *Ledger) MaxVersion(ctx context.Context, r StatementRunner) (int64, error) {
	entries, err := l.Entries(ctx, r)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return entries[len(entries)-1].Version, nil
}

// Insert records a successful apply. Runs on the caller's StatementRunner so
// it participates in the unit's transaction.
func (l *Ledger) Insert(ctx context.Context, r StatementRunner, e VersionLedgerEntry) error {
	q := l.gen.d.quote
	at, err := l.gen.literal(e.AppliedAt)
	if err != nil {
		return err
	}
	desc, err := l.gen.literal(e.Description)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (%d, %s, %s)",
		l.quoted(), q("version"), q("applied_at"), q("description"),
		e.Version, at, desc)
	_, err = r.Execute(ctx, stmt)
	return err
}

// Delete removes the entry for a reverted version.
func (l *Ledger) Delete(ctx context.Context, r StatementRunner, version int64) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %d",
		l.quoted(), l.gen.d.quote("version"), version)
	_, err := r.Execute(ctx, stmt)
	return err
}
