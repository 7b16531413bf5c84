package fluentmig

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Direction selects whether a run applies forward sequences or reverts
// backward ones. A run is exactly one of the two.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Config holds runner settings.
type Config struct {
	// Dialect is the target database family.
	Dialect DialectTag

	// LedgerTable is the version-ledger table name. Defaults to
	// DefaultLedgerTable.
	LedgerTable string

	// Logger receives structured run events. Defaults to slog.Default().
	Logger *slog.Logger

	// DisableLock skips cross-process locking. Meant for tests and
	// single-writer environments only.
	DisableLock bool
}

// Plan is the computed set of units a run would touch, in execution order.
type Plan struct {
	Direction Direction
	Target    int64
	Units     []*MigrationUnit
}

// AppliedUnit identifies one unit a run applied or reverted.
type AppliedUnit struct {
	Version int64
	Name    string
}

// Report summarizes a finished (or aborted) run. On failure it lists the
// units that committed before the failing one; those remain applied.
type Report struct {
	RunID     string
	Direction Direction
	Applied   []AppliedUnit
	Skipped   int // expressions skipped by conditional gates
}

// UnitPreview is the rendered SQL of one planned unit, for dry-run output.
type UnitPreview struct {
	Version    int64
	Name       string
	Statements []string
	Skipped    []string // string forms of gate-skipped expressions
}

// UnitStatus pairs a registered unit with its ledger state.
type UnitStatus struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Runner orchestrates a migration run: discover registered units, plan
// against the ledger, execute each planned unit inside its own transaction,
// and record the outcome. Execution is strictly sequential; the only
// concurrency concern is other processes, handled by the advisory lock.
type Runner struct {
	cfg    Config
	reg    *Registry
	gen    *Generator
	exec   Executor
	ledger *Ledger
	lock   *advisoryLock
	log    *slog.Logger
}

// NewRunner builds a runner for one dialect over one executor. The executor
// may be nil when the runner is only used for offline validation.
func NewRunner(cfg Config, reg *Registry, exec Executor) (*Runner, error) {
	gen, err := NewGenerator(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if cfg.LedgerTable == "" {
		cfg.LedgerTable = DefaultLedgerTable
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		reg:    reg,
		gen:    gen,
		exec:   exec,
		ledger: NewLedger(cfg.LedgerTable, gen),
		lock:   newAdvisoryLock(gen, cfg.LedgerTable),
		log:    log,
	}, nil
}

// Generator exposes the runner's SQL generator, mainly for preview tooling.
func (r *Runner) Generator() *Generator { return r.gen }

// EnsureLedger creates the version-ledger table when absent.
func (r *Runner) EnsureLedger(ctx context.Context) error {
	return r.ledger.EnsureTable(ctx, r.exec)
}

// Validate performs every construction- and render-stage check for this
// runner's dialect without touching the database.
func (r *Runner) Validate() error {
	return ValidateRegistry(r.reg, r.cfg.Dialect)
}

// ValidateRegistry checks every registered unit: recorded construction
// errors, empty forward sequences, and renderability under each given
// dialect (all dialects when none given). All problems are aggregated into
// one ValidationError rather than stopping at the first.
func ValidateRegistry(reg *Registry, tags ...DialectTag) error {
	if len(tags) == 0 {
		tags = AllDialects
	}
	var problems []string
	for _, u := range reg.Units() {
		if err := u.Err(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", u, err))
			continue
		}
		if len(u.Forward()) == 0 {
			problems = append(problems, fmt.Sprintf("%s: has no forward expressions", u))
		}
		for _, tag := range tags {
			gen, err := NewGenerator(tag)
			if err != nil {
				return err
			}
			for _, seq := range []struct {
				label string
				exprs []Expression
			}{{"up", u.Forward()}, {"down", u.Backward()}} {
				for i, e := range seq.exprs {
					if _, err := gen.Render(e); err != nil {
						problems = append(problems, fmt.Sprintf("%s: %s expression %d (%s) under %s: %v",
							u, seq.label, i, e.Kind(), tag, err))
					}
				}
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Plan computes the unit set a run in the given direction would execute.
// Target semantics follow the CLI contract: for Up, target 0 means the
// highest registered version; for Down, target 0 means revert everything.
// Planning is read-only and idempotent: a missing ledger table is treated as
// an empty ledger rather than created.
func (r *Runner) Plan(ctx context.Context, dir Direction, target int64) (*Plan, error) {
	return r.plan(ctx, r.exec, dir, target)
}

// readLedger fetches the ledger entries, reporting a missing table as empty
// so read-only callers never mutate the database.
func (r *Runner) readLedger(ctx context.Context, sr StatementRunner) ([]VersionLedgerEntry, error) {
	exists, err := r.ledger.Exists(ctx, sr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return r.ledger.Entries(ctx, sr)
}

func (r *Runner) plan(ctx context.Context, sr StatementRunner, dir Direction, target int64) (*Plan, error) {
	entries, err := r.readLedger(ctx, sr)
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]VersionLedgerEntry, len(entries))
	var maxApplied int64
	for _, e := range entries {
		if _, known := r.reg.Lookup(e.Version); !known {
			return nil, &ValidationError{Problems: []string{
				fmt.Sprintf("ledger contains version %d (%s) with no registered migration", e.Version, e.Description),
			}}
		}
		applied[e.Version] = e
		if e.Version > maxApplied {
			maxApplied = e.Version
		}
	}

	plan := &Plan{Direction: dir, Target: target}
	switch dir {
	case Up:
		if target <= 0 {
			target = r.reg.MaxVersion()
			plan.Target = target
		}
		for _, u := range r.reg.Units() {
			if _, done := applied[u.Version()]; done {
				continue
			}
			if u.Version() <= maxApplied {
				// A unit older than the ledger head was never applied;
				// applying it now would be out of order.
				return nil, &SequencingError{Version: u.Version(), Previous: maxApplied, Mode: "up"}
			}
			if u.Version() <= target {
				plan.Units = append(plan.Units, u)
			}
		}
	case Down:
		units := r.reg.Units()
		for i := len(units) - 1; i >= 0; i-- {
			u := units[i]
			if _, done := applied[u.Version()]; !done {
				continue
			}
			if u.Version() > target {
				plan.Units = append(plan.Units, u)
			}
		}
	}
	return plan, nil
}

// Preview runs Plan and renders every planned unit's SQL without executing
// anything. Gate-skipped expressions are listed rather than rendered.
func (r *Runner) Preview(ctx context.Context, dir Direction, target int64) ([]UnitPreview, error) {
	plan, err := r.Plan(ctx, dir, target)
	if err != nil {
		return nil, err
	}
	out := make([]UnitPreview, 0, len(plan.Units))
	for _, u := range plan.Units {
		p := UnitPreview{Version: u.Version(), Name: u.Name()}
		seq := u.Forward()
		if dir == Down {
			seq = u.Backward()
		}
		for _, e := range seq {
			if gate, ok := e.(*ConditionalExpr); ok && !gate.AppliesTo(r.gen.Dialect()) {
				p.Skipped = append(p.Skipped, gate.String())
				continue
			}
			stmts, err := r.gen.Render(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", u, err)
			}
			p.Statements = append(p.Statements, stmts...)
		}
		out = append(out, p)
	}
	return out, nil
}

// Status lists every registered unit annotated with its ledger state. Like
// Plan it never creates the ledger table.
func (r *Runner) Status(ctx context.Context) ([]UnitStatus, error) {
	entries, err := r.readLedger(ctx, r.exec)
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]VersionLedgerEntry, len(entries))
	for _, e := range entries {
		applied[e.Version] = e
	}
	units := r.reg.Units()
	out := make([]UnitStatus, 0, len(units))
	for _, u := range units {
		s := UnitStatus{Version: u.Version(), Name: u.Name()}
		if e, ok := applied[u.Version()]; ok {
			s.Applied = true
			s.AppliedAt = e.AppliedAt
		}
		out = append(out, s)
	}
	return out, nil
}

// Up applies every pending unit with version at most target (0 = all) in
// ascending order. See Run for the execution contract.
func (r *Runner) Up(ctx context.Context, target int64) (*Report, error) {
	return r.run(ctx, Up, target)
}

// Down reverts every applied unit with version above target (0 = revert
// everything) in descending order. See Run for the execution contract.
func (r *Runner) Down(ctx context.Context, target int64) (*Report, error) {
	return r.run(ctx, Down, target)
}

// run is the Discover -> Plan -> Execute state machine. The advisory lock
// brackets the whole window so planning cannot race another process's
// execution. Each unit is atomic: its expressions and its ledger write
// commit together or roll back together. The run itself is not atomic —
// units committed before a failure stay applied, later units are never
// attempted.
func (r *Runner) run(ctx context.Context, dir Direction, target int64) (*Report, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Direction: dir}
	log := r.log.With("run_id", report.RunID, "direction", dir.String(), "dialect", string(r.cfg.Dialect))

	if !r.cfg.DisableLock {
		if err := r.lock.Acquire(ctx, r.exec); err != nil {
			return nil, err
		}
		defer func() {
			if err := r.lock.Release(ctx, r.exec); err != nil {
				log.Warn("failed to release migration lock", "error", err)
			}
		}()
	}

	if err := r.EnsureLedger(ctx); err != nil {
		return report, err
	}
	plan, err := r.plan(ctx, r.exec, dir, target)
	if err != nil {
		return report, err
	}
	log.Info("planned migration run", "units", len(plan.Units), "target", plan.Target)

	var prev int64
	for _, u := range plan.Units {
		// Cancellation is honored between units only; a unit in flight
		// either commits or rolls back.
		if err := ctx.Err(); err != nil {
			log.Info("run cancelled", "applied", len(report.Applied))
			return report, err
		}
		if prev != 0 {
			if dir == Up && u.Version() <= prev {
				return report, &SequencingError{Version: u.Version(), Previous: prev, Mode: "up"}
			}
			if dir == Down && u.Version() >= prev {
				return report, &SequencingError{Version: u.Version(), Previous: prev, Mode: "down"}
			}
		}
		prev = u.Version()

		if err := r.executeUnit(ctx, log, u, dir, report); err != nil {
			return report, err
		}
		report.Applied = append(report.Applied, AppliedUnit{Version: u.Version(), Name: u.Name()})
	}
	log.Info("run complete", "applied", len(report.Applied), "skipped_expressions", report.Skipped)
	return report, nil
}

func (r *Runner) executeUnit(ctx context.Context, log *slog.Logger, u *MigrationUnit, dir Direction, report *Report) error {
	seq := u.Forward()
	verb := "applying"
	if dir == Down {
		seq = u.Backward()
		verb = "reverting"
	}
	log.Info(verb+" migration", "version", u.Version(), "name", u.Name(), "transactional", u.Transactional())

	var sr StatementRunner = r.exec
	var tx Tx
	if u.Transactional() {
		var err error
		tx, err = r.exec.Begin(ctx)
		if err != nil {
			return err
		}
		sr = tx
	}
	fail := func(idx int, sql string, cause error) error {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warn("rollback failed", "version", u.Version(), "error", rbErr)
			}
		}
		return &ExecutionError{
			Version:    u.Version(),
			UnitName:   u.Name(),
			Index:      idx,
			SQL:        sql,
			Underlying: cause,
		}
	}

	for i, e := range seq {
		if gate, ok := e.(*ConditionalExpr); ok && !gate.AppliesTo(r.gen.Dialect()) {
			report.Skipped++
			log.Info("skipped expression", "version", u.Version(), "index", i,
				"expression", gate.String(), "reason", "dialect not in applicability set")
			continue
		}
		stmts, err := r.gen.Render(e)
		if err != nil {
			return fail(i, "", err)
		}
		for _, stmt := range stmts {
			if _, err := sr.Execute(ctx, stmt); err != nil {
				return fail(i, stmt, err)
			}
		}
	}

	if dir == Up {
		entry := VersionLedgerEntry{
			Version:     u.Version(),
			AppliedAt:   time.Now().UTC(),
			Description: u.Name(),
		}
		if err := r.ledger.Insert(ctx, sr, entry); err != nil {
			return fail(len(seq), "", err)
		}
	} else {
		if err := r.ledger.Delete(ctx, sr, u.Version()); err != nil {
			return fail(len(seq), "", err)
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fail(len(seq), "", err)
		}
	}
	log.Info("migration committed", "version", u.Version())
	return nil
}
