package fluentmig

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidDefinitionError reports a structurally malformed expression or column
// definition detected at construction time.
type InvalidDefinitionError struct {
	Subject string // table, column, or index the definition belongs to
	Reason  string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition for %q: %s", e.Subject, e.Reason)
}

// BuilderReuseError reports a terminal builder method called more than once on
// the same builder instance.
type BuilderReuseError struct {
	Builder string
}

func (e *BuilderReuseError) Error() string {
	return fmt.Sprintf("builder %s already emitted; builders are single-use", e.Builder)
}

// UnsupportedTypeError reports a column type a dialect cannot render.
type UnsupportedTypeError struct {
	Dialect DialectTag
	Table   string
	Column  string
	Type    ColumnType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("dialect %s cannot render type %s for column %s.%s",
		e.Dialect, e.Type, e.Table, e.Column)
}

// SequencingError reports an attempt to apply or revert units out of strict
// version order.
type SequencingError struct {
	Version  int64
	Previous int64
	Mode     string // "up" or "down"
}

func (e *SequencingError) Error() string {
	return fmt.Sprintf("out-of-order %s: version %d after %d", e.Mode, e.Version, e.Previous)
}

// LockUnavailableError reports that the cross-process migration lock could not
// be acquired.
type LockUnavailableError struct {
	Dialect DialectTag
}

func (e *LockUnavailableError) Error() string {
	return fmt.Sprintf("migration lock unavailable (%s); another runner is active", e.Dialect)
}

// ExecutionError wraps a SQL executor failure with the unit and expression that
// produced it, plus the rendered SQL for diagnosis.
type ExecutionError struct {
	Version    int64
	UnitName   string
	Index      int // index of the failing expression within the unit
	SQL        string
	Underlying error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed at expression %d: %v\nsql: %s",
		e.Version, e.UnitName, e.Index, e.Underlying, e.SQL)
}

func (e *ExecutionError) Unwrap() error { return e.Underlying }

// TimeoutError reports a statement or transaction exceeding the executor's
// deadline.
type TimeoutError struct {
	Underlying error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("statement timed out: %v", e.Underlying)
}

func (e *TimeoutError) Unwrap() error { return e.Underlying }

// ValidationError reports a problem found before any database work, such as
// duplicate version numbers across registered units.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "validation failed: " + e.Problems[0]
	}
	return fmt.Sprintf("validation failed with %d problems:\n%s",
		len(e.Problems), strings.Join(e.Problems, "\n"))
}

// IsConstructionError reports whether err belongs to the construction-time
// family that must never be deferred to execution.
func IsConstructionError(err error) bool {
	var def *InvalidDefinitionError
	var reuse *BuilderReuseError
	return errors.As(err, &def) || errors.As(err, &reuse)
}
