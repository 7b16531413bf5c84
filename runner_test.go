package fluentmig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeRows serves pre-built result rows through the Rows seam.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity mismatch: %d dest, %d values", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("unsupported scan destination %T", dest[i])
		}
	}
	return nil
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

var (
	ledgerInsertRe = regexp.MustCompile(`^INSERT INTO "schemaversion" .*VALUES \((\d+), '([^']*)', '([^']*)'\)$`)
	ledgerDeleteRe = regexp.MustCompile(`^DELETE FROM "schemaversion" WHERE "version" = (\d+)$`)
)

// fakeDB emulates just enough postgres to back the ledger and advisory lock:
// it tracks every statement, keeps committed ledger rows, and can be told to
// fail statements or deny the lock.
type fakeDB struct {
	stmts         []string
	entries       []VersionLedgerEntry
	ledgerCreated bool

	failContains string
	lockDenied   bool
	afterCommit  func()

	begins    int
	commits   int
	rollbacks int
}

func (db *fakeDB) apply(stmt string, entries *[]VersionLedgerEntry) error {
	db.stmts = append(db.stmts, stmt)
	if db.failContains != "" && strings.Contains(stmt, db.failContains) {
		return errors.New("forced statement failure")
	}
	if strings.Contains(stmt, `CREATE TABLE IF NOT EXISTS "schemaversion"`) {
		db.ledgerCreated = true
	}
	if m := ledgerInsertRe.FindStringSubmatch(stmt); m != nil {
		v, _ := strconv.ParseInt(m[1], 10, 64)
		at, _ := time.Parse("2006-01-02 15:04:05", m[2])
		*entries = append(*entries, VersionLedgerEntry{Version: v, AppliedAt: at, Description: m[3]})
		return nil
	}
	if m := ledgerDeleteRe.FindStringSubmatch(stmt); m != nil {
		v, _ := strconv.ParseInt(m[1], 10, 64)
		keep := make([]VersionLedgerEntry, 0, len(*entries))
		for _, e := range *entries {
			if e.Version != v {
				keep = append(keep, e)
			}
		}
		*entries = keep
	}
	return nil
}

func (db *fakeDB) query(stmt string, entries []VersionLedgerEntry) (Rows, error) {
	db.stmts = append(db.stmts, stmt)
	switch {
	case strings.Contains(stmt, "pg_try_advisory_lock"):
		return &fakeRows{rows: [][]any{{!db.lockDenied}}}, nil
	case strings.Contains(stmt, "pg_advisory_unlock"):
		return &fakeRows{rows: [][]any{{true}}}, nil
	case strings.Contains(stmt, "pg_catalog.pg_tables"):
		var n int64
		if db.ledgerCreated || len(entries) > 0 {
			n = 1
		}
		return &fakeRows{rows: [][]any{{n}}}, nil
	case strings.Contains(stmt, `FROM "schemaversion"`):
		rows := make([][]any, len(entries))
		for i, e := range entries {
			rows[i] = []any{e.Version, e.AppliedAt, e.Description}
		}
		return &fakeRows{rows: rows}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", stmt)
}

func (db *fakeDB) executed(substr string) bool {
	for _, s := range db.stmts {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

type fakeExec struct{ db *fakeDB }

func (f *fakeExec) Execute(_ context.Context, stmt string) (int64, error) {
	return 0, f.db.apply(stmt, &f.db.entries)
}

func (f *fakeExec) Query(_ context.Context, stmt string) (Rows, error) {
	return f.db.query(stmt, f.db.entries)
}

func (f *fakeExec) Begin(context.Context) (Tx, error) {
	f.db.begins++
	return &fakeTx{db: f.db, entries: append([]VersionLedgerEntry(nil), f.db.entries...)}, nil
}

// fakeTx buffers ledger changes until Commit so a rollback leaves the fakeDB
// untouched, mirroring per-unit transaction semantics.
type fakeTx struct {
	db      *fakeDB
	entries []VersionLedgerEntry
}

func (t *fakeTx) Execute(_ context.Context, stmt string) (int64, error) {
	return 0, t.db.apply(stmt, &t.entries)
}

func (t *fakeTx) Query(_ context.Context, stmt string) (Rows, error) {
	return t.db.query(stmt, t.entries)
}

func (t *fakeTx) Commit() error {
	t.db.commits++
	t.db.entries = t.entries
	if t.db.afterCommit != nil {
		t.db.afterCommit()
	}
	return nil
}

func (t *fakeTx) Rollback() error {
	t.db.rollbacks++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, db *fakeDB, reg *Registry) *Runner {
	t.Helper()
	r, err := NewRunner(Config{Dialect: Postgres, Logger: quietLogger()}, reg, &fakeExec{db: db})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return r
}

func simpleUnit(t *testing.T, version int64, name, table string) *MigrationUnit {
	t.Helper()
	u := NewUnit(version, name)
	if err := u.Up().CreateTable(table).WithColumn("id").AsInt64().PrimaryKey().Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := u.Down().DeleteTable(table).Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return u
}

func threeUnitRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	// Registration order is deliberately shuffled; execution must sort.
	reg.MustRegister(simpleUnit(t, 2, "two", "t2"))
	reg.MustRegister(simpleUnit(t, 1, "one", "t1"))
	reg.MustRegister(simpleUnit(t, 3, "three", "t3"))
	return reg
}

func appliedVersions(report *Report) []int64 {
	out := make([]int64, len(report.Applied))
	for i, a := range report.Applied {
		out[i] = a.Version
	}
	return out
}

func equalVersions(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// TestRunnerAppliesPendingAscending verifies a full up run applies every
// pending unit in version order regardless of registration order.
func TestRunnerAppliesPendingAscending(t *testing.T) {
	db := &fakeDB{}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	report, err := r.Up(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := appliedVersions(report); !equalVersions(got, []int64{1, 2, 3}) {
		t.Errorf("Expected applied order [1 2 3], got %v", got)
	}
	if len(db.entries) != 3 {
		t.Errorf("Expected 3 ledger entries, got %d", len(db.entries))
	}
	if db.commits != 3 {
		t.Errorf("Expected 3 commits, got %d", db.commits)
	}
	if report.RunID == "" {
		t.Errorf("Expected a run id")
	}
}

// TestRunnerUpTargetLimits verifies target bounds the up run and a later run
// picks up the remainder.
func TestRunnerUpTargetLimits(t *testing.T) {
	db := &fakeDB{}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	report, err := r.Up(context.Background(), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := appliedVersions(report); !equalVersions(got, []int64{1, 2}) {
		t.Errorf("Expected [1 2], got %v", got)
	}

	report, err = r.Up(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := appliedVersions(report); !equalVersions(got, []int64{3}) {
		t.Errorf("Expected [3], got %v", got)
	}
}

// TestRunnerPlanIdempotent verifies planning changes nothing and repeats to
// the same answer.
func TestRunnerPlanIdempotent(t *testing.T) {
	db := &fakeDB{}
	r := newTestRunner(t, db, threeUnitRegistry(t))
	ctx := context.Background()

	first, err := r.Plan(ctx, Up, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := r.Plan(ctx, Up, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(first.Units) != 3 || len(second.Units) != 3 {
		t.Errorf("Expected both plans to hold 3 units, got %d and %d", len(first.Units), len(second.Units))
	}
	if len(db.entries) != 0 {
		t.Errorf("Expected planning to write nothing, ledger has %d entries", len(db.entries))
	}
	if db.ledgerCreated {
		t.Errorf("Expected planning against a fresh database to leave the ledger table uncreated")
	}

	if _, err := r.Up(ctx, 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	after, err := r.Plan(ctx, Up, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(after.Units) != 0 {
		t.Errorf("Expected empty plan after full run, got %d units", len(after.Units))
	}
}

// TestRunnerDownRevertsDescending verifies down runs walk applied units in
// reverse and honor the keep-target.
func TestRunnerDownRevertsDescending(t *testing.T) {
	db := &fakeDB{}
	r := newTestRunner(t, db, threeUnitRegistry(t))
	ctx := context.Background()

	if _, err := r.Up(ctx, 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	report, err := r.Down(ctx, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := appliedVersions(report); !equalVersions(got, []int64{3, 2}) {
		t.Errorf("Expected revert order [3 2], got %v", got)
	}
	if len(db.entries) != 1 || db.entries[0].Version != 1 {
		t.Errorf("Expected only version 1 left in ledger, got %v", db.entries)
	}
	if !db.executed(`DROP TABLE "t3"`) {
		t.Errorf("Expected backward SQL to run")
	}

	report, err = r.Down(ctx, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := appliedVersions(report); !equalVersions(got, []int64{1}) {
		t.Errorf("Expected [1], got %v", got)
	}
	if len(db.entries) != 0 {
		t.Errorf("Expected empty ledger, got %v", db.entries)
	}
}

// TestRunnerUnitFailureRollsBack verifies a failing statement aborts the run,
// rolls back the unit, and leaves no ledger entry for it.
func TestRunnerUnitFailureRollsBack(t *testing.T) {
	db := &fakeDB{failContains: `"t2"`}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	report, err := r.Up(context.Background(), 0)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Expected ExecutionError, got %v", err)
	}
	if execErr.Version != 2 || execErr.UnitName != "two" {
		t.Errorf("Expected failure in unit 2, got %+v", execErr)
	}
	if execErr.SQL == "" {
		t.Errorf("Expected the failing SQL in the error")
	}
	if got := appliedVersions(report); !equalVersions(got, []int64{1}) {
		t.Errorf("Expected only unit 1 applied, got %v", got)
	}
	if len(db.entries) != 1 || db.entries[0].Version != 1 {
		t.Errorf("Expected ledger to hold only version 1, got %v", db.entries)
	}
	if db.rollbacks != 1 {
		t.Errorf("Expected 1 rollback, got %d", db.rollbacks)
	}
	if db.executed(`"t3"`) {
		t.Errorf("Expected unit 3 never attempted")
	}
}

// TestRunnerGateSkipsForeignDialect verifies a gated expression for another
// dialect executes nothing and is counted, not failed.
func TestRunnerGateSkipsForeignDialect(t *testing.T) {
	reg := NewRegistry()
	u := NewUnit(1, "gated seed")
	if err := u.Up().CreateTable("t1").WithColumn("id").AsInt64().PrimaryKey().Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := u.Up().IfDatabase(MySQL).ExecuteSql("SET mysql_only = 1").Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reg.MustRegister(u)

	db := &fakeDB{}
	r := newTestRunner(t, db, reg)
	report, err := r.Up(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Skipped != 1 {
		t.Errorf("Expected 1 skipped expression, got %d", report.Skipped)
	}
	if db.executed("mysql_only") {
		t.Errorf("Expected gated SQL never to execute")
	}
	if len(db.entries) != 1 {
		t.Errorf("Expected the unit to be recorded as applied, got %v", db.entries)
	}
}

// TestRunnerRejectsOutOfOrderPending verifies a pending unit older than the
// ledger head aborts planning.
func TestRunnerRejectsOutOfOrderPending(t *testing.T) {
	db := &fakeDB{entries: []VersionLedgerEntry{
		{Version: 2, AppliedAt: time.Now().UTC(), Description: "two"},
	}}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	_, err := r.Up(context.Background(), 0)
	var seqErr *SequencingError
	if !errors.As(err, &seqErr) {
		t.Fatalf("Expected SequencingError, got %v", err)
	}
	if seqErr.Version != 1 || seqErr.Previous != 2 {
		t.Errorf("Expected version 1 vs head 2, got %+v", seqErr)
	}
	if db.executed("CREATE TABLE \"t1\"") {
		t.Errorf("Expected no unit SQL to run")
	}
}

// TestRunnerLockUnavailable verifies a denied lock aborts before any
// database change.
func TestRunnerLockUnavailable(t *testing.T) {
	db := &fakeDB{lockDenied: true}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	_, err := r.Up(context.Background(), 0)
	var lockErr *LockUnavailableError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockUnavailableError, got %v", err)
	}
	if len(db.entries) != 0 {
		t.Errorf("Expected no ledger writes, got %v", db.entries)
	}
	if db.executed("CREATE TABLE") {
		t.Errorf("Expected no DDL before the lock")
	}
}

// TestRunnerDisableLockSkipsAcquisition verifies the single-writer escape
// hatch.
func TestRunnerDisableLockSkipsAcquisition(t *testing.T) {
	db := &fakeDB{lockDenied: true}
	r, err := NewRunner(Config{Dialect: Postgres, Logger: quietLogger(), DisableLock: true},
		threeUnitRegistry(t), &fakeExec{db: db})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := r.Up(context.Background(), 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if db.executed("pg_try_advisory_lock") {
		t.Errorf("Expected no lock acquisition")
	}
}

// TestRunnerNonTransactionalUnit verifies WithoutTransaction executes on the
// raw connection.
func TestRunnerNonTransactionalUnit(t *testing.T) {
	reg := NewRegistry()
	u := NewUnit(1, "concurrent index").WithoutTransaction()
	if err := u.Up().ExecuteSql(`CREATE INDEX CONCURRENTLY "ix" ON "t" ("c")`).Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reg.MustRegister(u)

	db := &fakeDB{}
	r := newTestRunner(t, db, reg)
	if _, err := r.Up(context.Background(), 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if db.begins != 0 {
		t.Errorf("Expected no transaction, got %d begins", db.begins)
	}
	if len(db.entries) != 1 {
		t.Errorf("Expected ledger entry outside a transaction, got %v", db.entries)
	}
}

// TestRunnerDownRejectsUnknownLedgerVersion verifies a ledger row without a
// registered unit fails the down plan.
func TestRunnerDownRejectsUnknownLedgerVersion(t *testing.T) {
	db := &fakeDB{entries: []VersionLedgerEntry{
		{Version: 99, AppliedAt: time.Now().UTC(), Description: "mystery"},
	}}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	_, err := r.Down(context.Background(), 0)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

// TestRunnerUpRejectsUnknownLedgerVersion verifies an unknown ledger row is
// diagnosed on the way up too, instead of skewing the out-of-order check.
func TestRunnerUpRejectsUnknownLedgerVersion(t *testing.T) {
	db := &fakeDB{entries: []VersionLedgerEntry{
		{Version: 99, AppliedAt: time.Now().UTC(), Description: "mystery"},
	}}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	_, err := r.Up(context.Background(), 0)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	var seqErr *SequencingError
	if errors.As(err, &seqErr) {
		t.Errorf("Expected no SequencingError for an unknown ledger version, got %v", err)
	}
	if len(db.entries) != 1 {
		t.Errorf("Expected the ledger untouched, got %d entries", len(db.entries))
	}
}

// TestRunnerCancelledBetweenUnits verifies cancellation between units stops
// the run cleanly: finished work stays committed, the rest never starts.
func TestRunnerCancelledBetweenUnits(t *testing.T) {
	db := &fakeDB{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db.afterCommit = func() {
		if db.commits == 1 {
			cancel()
		}
	}
	r := newTestRunner(t, db, threeUnitRegistry(t))

	report, err := r.Up(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !equalVersions(appliedVersions(report), []int64{1}) {
		t.Errorf("Expected only version 1 in the report, got %v", appliedVersions(report))
	}
	if len(db.entries) != 1 || db.entries[0].Version != 1 {
		t.Errorf("Expected the ledger to hold exactly version 1, got %+v", db.entries)
	}
	if db.executed(`CREATE TABLE "t2"`) {
		t.Errorf("Expected no statements from the second unit after cancellation")
	}
}

// TestRunnerStatus verifies status pairs each unit with its ledger state.
func TestRunnerStatus(t *testing.T) {
	db := &fakeDB{}
	r := newTestRunner(t, db, threeUnitRegistry(t))
	ctx := context.Background()

	fresh, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(fresh) != 3 {
		t.Fatalf("Expected 3 statuses on a fresh database, got %d", len(fresh))
	}
	if db.ledgerCreated {
		t.Errorf("Expected status on a fresh database not to create the ledger table")
	}

	if _, err := r.Up(ctx, 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	statuses, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("Expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt.IsZero() {
		t.Errorf("Expected version 1 applied with a timestamp, got %+v", statuses[0])
	}
	if statuses[1].Applied || statuses[2].Applied {
		t.Errorf("Expected versions 2 and 3 pending")
	}
}

// TestRunnerPreview verifies preview renders without executing.
func TestRunnerPreview(t *testing.T) {
	reg := NewRegistry()
	u := NewUnit(1, "gated")
	if err := u.Up().CreateTable("t1").WithColumn("id").AsInt64().PrimaryKey().Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := u.Up().IfDatabase(MySQL).ExecuteSql("SET x = 1").Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reg.MustRegister(u)

	db := &fakeDB{}
	r := newTestRunner(t, db, reg)
	previews, err := r.Preview(context.Background(), Up, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("Expected 1 preview, got %d", len(previews))
	}
	if len(previews[0].Statements) != 1 || !strings.HasPrefix(previews[0].Statements[0], "CREATE TABLE") {
		t.Errorf("Unexpected preview statements: %v", previews[0].Statements)
	}
	if len(previews[0].Skipped) != 1 {
		t.Errorf("Expected the gate listed as skipped, got %v", previews[0].Skipped)
	}
	if len(db.entries) != 0 {
		t.Errorf("Expected preview to write nothing")
	}
	if db.executed("CREATE TABLE \"t1\"") {
		t.Errorf("Expected preview not to execute unit SQL")
	}
	if db.ledgerCreated {
		t.Errorf("Expected preview on a fresh database not to create the ledger table")
	}
}

// TestValidateRegistryAggregatesProblems verifies validation reports every
// problem at once instead of stopping at the first.
func TestValidateRegistryAggregatesProblems(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(simpleUnit(t, 1, "good", "t1"))

	empty := NewUnit(2, "no forward")
	if err := empty.Down().DeleteTable("x").Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reg.MustRegister(empty)

	guid := NewUnit(3, "guid default")
	if err := guid.Up().CreateTable("g").
		WithColumn("id").AsGuid().NotNullable().WithDefault(NewGuid).
		Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reg.MustRegister(guid)

	err := ValidateRegistry(reg)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(valErr.Problems) < 2 {
		t.Errorf("Expected at least 2 aggregated problems, got %v", valErr.Problems)
	}
	for _, p := range valErr.Problems {
		if !strings.Contains(valErr.Error(), p) {
			t.Errorf("Expected Error() to list %q, got %q", p, valErr.Error())
		}
	}

	// Under postgres alone the guid default is fine; only the empty unit
	// remains a problem.
	err = ValidateRegistry(reg, Postgres)
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(valErr.Problems) != 1 {
		t.Errorf("Expected exactly 1 problem under postgres, got %v", valErr.Problems)
	}
}
