package fluentmig

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the logical column types the expression model supports.
// Dialects map each kind to provider-specific SQL; Custom passes a raw type
// string through untouched.
type TypeKind int

const (
	TypeInt16 TypeKind = iota
	TypeInt32
	TypeInt64
	TypeString
	TypeDecimal
	TypeBoolean
	TypeDateTime
	TypeGuid
	TypeBinary
	TypeCustom
)

// ColumnType is a logical type plus its size parameters. Length zero on
// String and Binary means unbounded.
type ColumnType struct {
	Kind      TypeKind
	Length    int
	Precision int
	Scale     int
	Raw       string
}

func (t ColumnType) String() string {
	switch t.Kind {
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeString:
		if t.Length > 0 {
			return fmt.Sprintf("String(%d)", t.Length)
		}
		return "String"
	case TypeDecimal:
		return fmt.Sprintf("Decimal(%d,%d)", t.Precision, t.Scale)
	case TypeBoolean:
		return "Boolean"
	case TypeDateTime:
		return "DateTime"
	case TypeGuid:
		return "Guid"
	case TypeBinary:
		if t.Length > 0 {
			return fmt.Sprintf("Binary(%d)", t.Length)
		}
		return "Binary"
	case TypeCustom:
		return fmt.Sprintf("Custom(%s)", t.Raw)
	}
	return fmt.Sprintf("TypeKind(%d)", int(t.Kind))
}

// integerFamily reports whether the type can carry an identity sequence.
func (t ColumnType) integerFamily() bool {
	return t.Kind == TypeInt16 || t.Kind == TypeInt32 || t.Kind == TypeInt64
}

// SystemToken is a symbolic default value resolved by each dialect at render
// time, e.g. the database's own current-timestamp function.
type SystemToken int

const (
	CurrentTimestamp SystemToken = iota + 1
	NewGuid
)

func (s SystemToken) String() string {
	switch s {
	case CurrentTimestamp:
		return "CurrentTimestamp"
	case NewGuid:
		return "NewGuid"
	}
	return fmt.Sprintf("SystemToken(%d)", int(s))
}

// DefaultValue is either a literal value or a system token; exactly one side
// is set.
type DefaultValue struct {
	Literal any
	Token   SystemToken
}

// ColumnDefinition describes one column of a table. Instances are built by
// the fluent layer and are not modified after the owning expression is
// emitted.
type ColumnDefinition struct {
	Name              string
	Type              ColumnType
	Nullable          bool
	Default           *DefaultValue
	Identity          bool
	IdentitySeed      int64
	IdentityIncrement int64
	PrimaryKey        bool
	Unique            bool
}

// validate checks the structural invariants that hold regardless of dialect.
// Dialect-specific restrictions (e.g. nullable primary keys) are enforced at
// render time.
func (c ColumnDefinition) validate(table string) error {
	subject := table + "." + c.Name
	if strings.TrimSpace(c.Name) == "" {
		return &InvalidDefinitionError{Subject: table, Reason: "column name is empty"}
	}
	if c.Identity && !c.Type.integerFamily() {
		return &InvalidDefinitionError{
			Subject: subject,
			Reason:  fmt.Sprintf("identity requires an integer type, got %s", c.Type),
		}
	}
	if c.Identity && c.Default != nil {
		return &InvalidDefinitionError{Subject: subject, Reason: "identity column cannot carry a default"}
	}
	if c.Identity && c.Nullable {
		return &InvalidDefinitionError{Subject: subject, Reason: "identity column cannot be nullable"}
	}
	switch c.Type.Kind {
	case TypeString, TypeBinary:
		if c.Type.Length < 0 {
			return &InvalidDefinitionError{Subject: subject, Reason: "negative length"}
		}
	case TypeDecimal:
		if c.Type.Precision <= 0 {
			return &InvalidDefinitionError{Subject: subject, Reason: "decimal precision must be positive"}
		}
		if c.Type.Scale < 0 || c.Type.Scale > c.Type.Precision {
			return &InvalidDefinitionError{
				Subject: subject,
				Reason:  fmt.Sprintf("decimal scale %d out of range for precision %d", c.Type.Scale, c.Type.Precision),
			}
		}
	case TypeCustom:
		if strings.TrimSpace(c.Type.Raw) == "" {
			return &InvalidDefinitionError{Subject: subject, Reason: "custom type string is empty"}
		}
	}
	if d := c.Default; d != nil {
		if d.Token != 0 && d.Literal != nil {
			return &InvalidDefinitionError{Subject: subject, Reason: "default cannot be both literal and system token"}
		}
		if d.Token == 0 && d.Literal == nil {
			return &InvalidDefinitionError{Subject: subject, Reason: "default has neither literal nor system token"}
		}
	}
	return nil
}
