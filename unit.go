package fluentmig

import (
	"fmt"
	"strings"
)

// MigrationUnit is one versioned schema change with independently authored
// forward and backward expression sequences. Units are built once through the
// fluent layer and are read-only to the runner.
type MigrationUnit struct {
	version       int64
	name          string
	transactional bool

	forward  []Expression
	backward []Expression

	// firstErr records the first construction error so a unit whose author
	// ignored a builder error is still rejected at registration.
	firstErr error
}

// NewUnit creates an empty migration unit. The version must be a positive,
// globally unique value; timestamp-like integers (e.g. 20240131120000) are the
// usual convention.
func NewUnit(version int64, name string) *MigrationUnit {
	u := &MigrationUnit{
		version:       version,
		name:          strings.TrimSpace(name),
		transactional: true,
	}
	if version <= 0 {
		u.fail(&InvalidDefinitionError{
			Subject: fmt.Sprintf("migration %d", version),
			Reason:  "version must be positive",
		})
	}
	if u.name == "" {
		u.fail(&InvalidDefinitionError{
			Subject: fmt.Sprintf("migration %d", version),
			Reason:  "name is empty",
		})
	}
	return u
}

// Version returns the unit's version value.
func (u *MigrationUnit) Version() int64 { return u.version }

// Name returns the unit's descriptive name.
func (u *MigrationUnit) Name() string { return u.name }

// Transactional reports whether the runner wraps this unit in a transaction.
func (u *MigrationUnit) Transactional() bool { return u.transactional }

// WithoutTransaction declares the unit as a non-transactional maintenance
// unit, for operations some dialects forbid inside a transaction. On failure
// such a unit may leave partial changes behind; prefer keeping it to a single
// expression.
func (u *MigrationUnit) WithoutTransaction() *MigrationUnit {
	u.transactional = false
	return u
}

// Up returns the builder context for the forward sequence.
func (u *MigrationUnit) Up() *SequenceBuilder {
	return &SequenceBuilder{unit: u, sink: func(e Expression) { u.forward = append(u.forward, e) }}
}

// Down returns the builder context for the backward sequence.
func (u *MigrationUnit) Down() *SequenceBuilder {
	return &SequenceBuilder{unit: u, sink: func(e Expression) { u.backward = append(u.backward, e) }}
}

// Forward returns the forward expression sequence in authored order.
func (u *MigrationUnit) Forward() []Expression { return u.forward }

// Backward returns the backward expression sequence in authored order.
func (u *MigrationUnit) Backward() []Expression { return u.backward }

// Err returns the first construction error recorded against the unit, if any.
func (u *MigrationUnit) Err() error { return u.firstErr }

func (u *MigrationUnit) fail(err error) {
	if u.firstErr == nil {
		u.firstErr = err
	}
}

func (u *MigrationUnit) String() string {
	return fmt.Sprintf("migration %d (%s)", u.version, u.name)
}
