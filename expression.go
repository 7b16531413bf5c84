package fluentmig

import (
	"fmt"
	"strings"
)

// ExpressionKind tags the operation an Expression performs.
type ExpressionKind int

const (
	KindCreateTable ExpressionKind = iota
	KindAlterTable
	KindDeleteTable
	KindAddColumn
	KindAlterColumn
	KindDeleteColumn
	KindCreateIndex
	KindDeleteIndex
	KindCreateForeignKey
	KindDeleteForeignKey
	KindCreateSchema
	KindDeleteSchema
	KindInsertRow
	KindUpdateRow
	KindDeleteRow
	KindExecuteRawSql
	KindRenameTable
	KindRenameColumn
	KindConditional
)

var kindNames = map[ExpressionKind]string{
	KindCreateTable:      "CreateTable",
	KindAlterTable:       "AlterTable",
	KindDeleteTable:      "DeleteTable",
	KindAddColumn:        "AddColumn",
	KindAlterColumn:      "AlterColumn",
	KindDeleteColumn:     "DeleteColumn",
	KindCreateIndex:      "CreateIndex",
	KindDeleteIndex:      "DeleteIndex",
	KindCreateForeignKey: "CreateForeignKey",
	KindDeleteForeignKey: "DeleteForeignKey",
	KindCreateSchema:     "CreateSchema",
	KindDeleteSchema:     "DeleteSchema",
	KindInsertRow:        "InsertRow",
	KindUpdateRow:        "UpdateRow",
	KindDeleteRow:        "DeleteRow",
	KindExecuteRawSql:    "ExecuteRawSql",
	KindRenameTable:      "RenameTable",
	KindRenameColumn:     "RenameColumn",
	KindConditional:      "Conditional",
}

func (k ExpressionKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ExpressionKind(%d)", int(k))
}

// Expression is one atomic, dialect-independent schema or data operation.
// Expressions carry data only; rendering belongs to the dialect layer and
// execution to the runner. Implementations are immutable once emitted by a
// builder.
type Expression interface {
	Kind() ExpressionKind
	// String returns a short human-readable form used in preview output and
	// run logs.
	String() string

	validate() error
}

// ReferentialAction is the ON DELETE / ON UPDATE behavior of a foreign key.
type ReferentialAction int

const (
	NoAction ReferentialAction = iota
	Cascade
	SetNull
	SetDefault
	Restrict
)

func (a ReferentialAction) sql() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	case Restrict:
		return "RESTRICT"
	}
	return "NO ACTION"
}

// IndexColumn is one member of an index key.
type IndexColumn struct {
	Name       string
	Descending bool
}

// ColumnValue is one column/value pair of a data expression. Pairs are kept
// in a slice rather than a map so rendering order is stable.
type ColumnValue struct {
	Name  string
	Value any
}

func qualified(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

// CreateTableExpr creates a table with an ordered set of columns.
type CreateTableExpr struct {
	Schema  string
	Name    string
	Columns []ColumnDefinition
}

func (e *CreateTableExpr) Kind() ExpressionKind { return KindCreateTable }

func (e *CreateTableExpr) String() string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return fmt.Sprintf("CreateTable %s (%s)", qualified(e.Schema, e.Name), strings.Join(names, ", "))
}

func (e *CreateTableExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "CreateTable", Reason: "table name is empty"}
	}
	if len(e.Columns) == 0 {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "table has no columns"}
	}
	seen := make(map[string]struct{}, len(e.Columns))
	identities := 0
	for _, c := range e.Columns {
		if err := c.validate(e.Name); err != nil {
			return err
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return &InvalidDefinitionError{Subject: e.Name, Reason: "duplicate column " + c.Name}
		}
		seen[key] = struct{}{}
		if c.Identity {
			identities++
		}
	}
	if identities > 1 {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "more than one identity column"}
	}
	return nil
}

// AlterTableExpr groups an ordered batch of column additions and alterations
// against one table. Rendering expands each change in order.
type AlterTableExpr struct {
	Schema  string
	Name    string
	Changes []Expression // AddColumnExpr or AlterColumnExpr only
}

func (e *AlterTableExpr) Kind() ExpressionKind { return KindAlterTable }

func (e *AlterTableExpr) String() string {
	return fmt.Sprintf("AlterTable %s (%d changes)", qualified(e.Schema, e.Name), len(e.Changes))
}

func (e *AlterTableExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "AlterTable", Reason: "table name is empty"}
	}
	if len(e.Changes) == 0 {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "alter table has no changes"}
	}
	for _, ch := range e.Changes {
		switch ch.Kind() {
		case KindAddColumn, KindAlterColumn:
		default:
			return &InvalidDefinitionError{
				Subject: e.Name,
				Reason:  fmt.Sprintf("alter table cannot contain %s", ch.Kind()),
			}
		}
		if err := ch.validate(); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTableExpr drops a table.
type DeleteTableExpr struct {
	Schema string
	Name   string
}

func (e *DeleteTableExpr) Kind() ExpressionKind { return KindDeleteTable }

func (e *DeleteTableExpr) String() string {
	return "DeleteTable " + qualified(e.Schema, e.Name)
}

func (e *DeleteTableExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "DeleteTable", Reason: "table name is empty"}
	}
	return nil
}

// AddColumnExpr adds one column to an existing table.
type AddColumnExpr struct {
	Schema string
	Table  string
	Column ColumnDefinition
}

func (e *AddColumnExpr) Kind() ExpressionKind { return KindAddColumn }

func (e *AddColumnExpr) String() string {
	return fmt.Sprintf("AddColumn %s.%s", qualified(e.Schema, e.Table), e.Column.Name)
}

func (e *AddColumnExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "AddColumn", Reason: "table name is empty"}
	}
	if e.Column.Identity {
		return &InvalidDefinitionError{
			Subject: e.Table + "." + e.Column.Name,
			Reason:  "identity columns can only be declared at table creation",
		}
	}
	return e.Column.validate(e.Table)
}

// AlterColumnExpr replaces an existing column's definition.
type AlterColumnExpr struct {
	Schema string
	Table  string
	Column ColumnDefinition
}

func (e *AlterColumnExpr) Kind() ExpressionKind { return KindAlterColumn }

func (e *AlterColumnExpr) String() string {
	return fmt.Sprintf("AlterColumn %s.%s", qualified(e.Schema, e.Table), e.Column.Name)
}

func (e *AlterColumnExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "AlterColumn", Reason: "table name is empty"}
	}
	if e.Column.Identity {
		return &InvalidDefinitionError{
			Subject: e.Table + "." + e.Column.Name,
			Reason:  "cannot alter a column into an identity",
		}
	}
	return e.Column.validate(e.Table)
}

// DeleteColumnExpr drops one or more columns from a table.
type DeleteColumnExpr struct {
	Schema  string
	Table   string
	Columns []string
}

func (e *DeleteColumnExpr) Kind() ExpressionKind { return KindDeleteColumn }

func (e *DeleteColumnExpr) String() string {
	return fmt.Sprintf("DeleteColumn %s (%s)", qualified(e.Schema, e.Table), strings.Join(e.Columns, ", "))
}

func (e *DeleteColumnExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "DeleteColumn", Reason: "table name is empty"}
	}
	if len(e.Columns) == 0 {
		return &InvalidDefinitionError{Subject: e.Table, Reason: "no columns to delete"}
	}
	for _, c := range e.Columns {
		if strings.TrimSpace(c) == "" {
			return &InvalidDefinitionError{Subject: e.Table, Reason: "column name is empty"}
		}
	}
	return nil
}

// CreateIndexExpr creates an index over an ordered column list.
type CreateIndexExpr struct {
	Schema  string
	Table   string
	Name    string
	Columns []IndexColumn
	Unique  bool
}

func (e *CreateIndexExpr) Kind() ExpressionKind { return KindCreateIndex }

func (e *CreateIndexExpr) String() string {
	return fmt.Sprintf("CreateIndex %s on %s", e.Name, qualified(e.Schema, e.Table))
}

func (e *CreateIndexExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "CreateIndex", Reason: "index name is empty"}
	}
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "table name is empty"}
	}
	if len(e.Columns) == 0 {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "index has no columns"}
	}
	for _, c := range e.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return &InvalidDefinitionError{Subject: e.Name, Reason: "index column name is empty"}
		}
	}
	return nil
}

// DeleteIndexExpr drops an index. Some dialects require the owning table.
type DeleteIndexExpr struct {
	Schema string
	Table  string
	Name   string
}

func (e *DeleteIndexExpr) Kind() ExpressionKind { return KindDeleteIndex }

func (e *DeleteIndexExpr) String() string {
	return fmt.Sprintf("DeleteIndex %s on %s", e.Name, qualified(e.Schema, e.Table))
}

func (e *DeleteIndexExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "DeleteIndex", Reason: "index name is empty"}
	}
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "table name is empty"}
	}
	return nil
}

// CreateForeignKeyExpr adds a named foreign-key constraint.
type CreateForeignKeyExpr struct {
	Name        string
	FromSchema  string
	FromTable   string
	FromColumns []string
	ToSchema    string
	ToTable     string
	ToColumns   []string
	OnDelete    ReferentialAction
	OnUpdate    ReferentialAction
}

func (e *CreateForeignKeyExpr) Kind() ExpressionKind { return KindCreateForeignKey }

func (e *CreateForeignKeyExpr) String() string {
	return fmt.Sprintf("CreateForeignKey %s: %s(%s) -> %s(%s)",
		e.Name,
		qualified(e.FromSchema, e.FromTable), strings.Join(e.FromColumns, ", "),
		qualified(e.ToSchema, e.ToTable), strings.Join(e.ToColumns, ", "))
}

func (e *CreateForeignKeyExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "CreateForeignKey", Reason: "constraint name is empty"}
	}
	if strings.TrimSpace(e.FromTable) == "" || strings.TrimSpace(e.ToTable) == "" {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "both tables must be named"}
	}
	if len(e.FromColumns) == 0 || len(e.FromColumns) != len(e.ToColumns) {
		return &InvalidDefinitionError{
			Subject: e.Name,
			Reason:  "foreign key column lists must be non-empty and of equal length",
		}
	}
	return nil
}

// DeleteForeignKeyExpr drops a named foreign-key constraint.
type DeleteForeignKeyExpr struct {
	Schema string
	Table  string
	Name   string
}

func (e *DeleteForeignKeyExpr) Kind() ExpressionKind { return KindDeleteForeignKey }

func (e *DeleteForeignKeyExpr) String() string {
	return fmt.Sprintf("DeleteForeignKey %s on %s", e.Name, qualified(e.Schema, e.Table))
}

func (e *DeleteForeignKeyExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "DeleteForeignKey", Reason: "constraint name is empty"}
	}
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: e.Name, Reason: "table name is empty"}
	}
	return nil
}

// CreateSchemaExpr creates a named schema.
type CreateSchemaExpr struct {
	Name string
}

func (e *CreateSchemaExpr) Kind() ExpressionKind { return KindCreateSchema }
func (e *CreateSchemaExpr) String() string       { return "CreateSchema " + e.Name }

func (e *CreateSchemaExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "CreateSchema", Reason: "schema name is empty"}
	}
	return nil
}

// DeleteSchemaExpr drops a named schema.
type DeleteSchemaExpr struct {
	Name string
}

func (e *DeleteSchemaExpr) Kind() ExpressionKind { return KindDeleteSchema }
func (e *DeleteSchemaExpr) String() string       { return "DeleteSchema " + e.Name }

func (e *DeleteSchemaExpr) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &InvalidDefinitionError{Subject: "DeleteSchema", Reason: "schema name is empty"}
	}
	return nil
}

// InsertRowExpr inserts one or more rows into a table. Every row shares the
// rendering path but may name different columns.
type InsertRowExpr struct {
	Schema string
	Table  string
	Rows   [][]ColumnValue
}

func (e *InsertRowExpr) Kind() ExpressionKind { return KindInsertRow }

func (e *InsertRowExpr) String() string {
	return fmt.Sprintf("InsertRow %s (%d rows)", qualified(e.Schema, e.Table), len(e.Rows))
}

func (e *InsertRowExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "InsertRow", Reason: "table name is empty"}
	}
	if len(e.Rows) == 0 {
		return &InvalidDefinitionError{Subject: e.Table, Reason: "no rows to insert"}
	}
	for _, row := range e.Rows {
		if len(row) == 0 {
			return &InvalidDefinitionError{Subject: e.Table, Reason: "empty row"}
		}
	}
	return nil
}

// UpdateRowExpr updates rows matching Where; AllRows must be set explicitly
// to update without a filter.
type UpdateRowExpr struct {
	Schema  string
	Table   string
	Set     []ColumnValue
	Where   []ColumnValue
	AllRows bool
}

func (e *UpdateRowExpr) Kind() ExpressionKind { return KindUpdateRow }

func (e *UpdateRowExpr) String() string {
	return "UpdateRow " + qualified(e.Schema, e.Table)
}

func (e *UpdateRowExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "UpdateRow", Reason: "table name is empty"}
	}
	if len(e.Set) == 0 {
		return &InvalidDefinitionError{Subject: e.Table, Reason: "update sets no columns"}
	}
	if len(e.Where) == 0 && !e.AllRows {
		return &InvalidDefinitionError{
			Subject: e.Table,
			Reason:  "update without a filter requires AllRows",
		}
	}
	return nil
}

// DeleteRowExpr deletes rows matching Where; AllRows must be set explicitly
// to delete everything.
type DeleteRowExpr struct {
	Schema  string
	Table   string
	Where   []ColumnValue
	AllRows bool
}

func (e *DeleteRowExpr) Kind() ExpressionKind { return KindDeleteRow }

func (e *DeleteRowExpr) String() string {
	return "DeleteRow " + qualified(e.Schema, e.Table)
}

func (e *DeleteRowExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "DeleteRow", Reason: "table name is empty"}
	}
	if len(e.Where) == 0 && !e.AllRows {
		return &InvalidDefinitionError{
			Subject: e.Table,
			Reason:  "delete without a filter requires AllRows",
		}
	}
	return nil
}

// ExecuteRawSqlExpr passes a statement through to the executor verbatim.
type ExecuteRawSqlExpr struct {
	SQL string
}

func (e *ExecuteRawSqlExpr) Kind() ExpressionKind { return KindExecuteRawSql }

func (e *ExecuteRawSqlExpr) String() string {
	s := strings.TrimSpace(e.SQL)
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return "ExecuteRawSql " + s
}

func (e *ExecuteRawSqlExpr) validate() error {
	if strings.TrimSpace(e.SQL) == "" {
		return &InvalidDefinitionError{Subject: "ExecuteRawSql", Reason: "statement is empty"}
	}
	return nil
}

// RenameTableExpr renames a table within its schema.
type RenameTableExpr struct {
	Schema  string
	OldName string
	NewName string
}

func (e *RenameTableExpr) Kind() ExpressionKind { return KindRenameTable }

func (e *RenameTableExpr) String() string {
	return fmt.Sprintf("RenameTable %s -> %s", qualified(e.Schema, e.OldName), e.NewName)
}

func (e *RenameTableExpr) validate() error {
	if strings.TrimSpace(e.OldName) == "" || strings.TrimSpace(e.NewName) == "" {
		return &InvalidDefinitionError{Subject: "RenameTable", Reason: "both old and new names are required"}
	}
	return nil
}

// RenameColumnExpr renames a column.
type RenameColumnExpr struct {
	Schema  string
	Table   string
	OldName string
	NewName string
}

func (e *RenameColumnExpr) Kind() ExpressionKind { return KindRenameColumn }

func (e *RenameColumnExpr) String() string {
	return fmt.Sprintf("RenameColumn %s.%s -> %s", qualified(e.Schema, e.Table), e.OldName, e.NewName)
}

func (e *RenameColumnExpr) validate() error {
	if strings.TrimSpace(e.Table) == "" {
		return &InvalidDefinitionError{Subject: "RenameColumn", Reason: "table name is empty"}
	}
	if strings.TrimSpace(e.OldName) == "" || strings.TrimSpace(e.NewName) == "" {
		return &InvalidDefinitionError{Subject: e.Table, Reason: "both old and new column names are required"}
	}
	return nil
}
