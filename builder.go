package fluentmig

import "sort"

// SequenceBuilder is the explicit context every fluent chain starts from. It
// is obtained from MigrationUnit.Up or Down and appends each finished
// expression to that sequence, in call order. Appending is the only side
// effect any builder performs; no builder touches the database.
//
// Builders are single-use: calling Build twice on the same builder returns a
// BuilderReuseError. Builders are not safe for concurrent use.
type SequenceBuilder struct {
	unit *MigrationUnit
	sink func(Expression)
}

// IfDatabase returns a gated sequence builder whose emissions apply only when
// the run targets one of the given dialects. Expressions built through the
// returned builder are wrapped in a single conditional group.
func (s *SequenceBuilder) IfDatabase(tags ...DialectTag) *SequenceBuilder {
	gate := &ConditionalExpr{Applicable: append([]DialectTag(nil), tags...)}
	if err := gate.validate(); err != nil {
		s.unit.fail(err)
	}
	s.sink(gate)
	return &SequenceBuilder{
		unit: s.unit,
		sink: func(e Expression) { gate.Wrapped = append(gate.Wrapped, e) },
	}
}

type builderState struct {
	seq     *SequenceBuilder
	what    string
	emitted bool
}

// emit validates and appends the finished expressions. The first error is
// also recorded on the unit so an ignored return value still fails the run
// at registration or validation time.
func (b *builderState) emit(exprs ...Expression) error {
	if b.emitted {
		err := &BuilderReuseError{Builder: b.what}
		b.seq.unit.fail(err)
		return err
	}
	b.emitted = true
	for _, e := range exprs {
		if err := e.validate(); err != nil {
			b.seq.unit.fail(err)
			return err
		}
	}
	for _, e := range exprs {
		b.seq.sink(e)
	}
	return nil
}

// sortedPairs flattens a map into name-ordered pairs so rendering stays
// deterministic regardless of map iteration order.
func sortedPairs(m map[string]any) []ColumnValue {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]ColumnValue, len(names))
	for i, n := range names {
		out[i] = ColumnValue{Name: n, Value: m[n]}
	}
	return out
}

// --- create table ---

// CreateTableBuilder accumulates a table definition plus any inline foreign
// keys, which are emitted as separate expressions after the table itself.
type CreateTableBuilder struct {
	state builderState
	expr  CreateTableExpr
	fks   []*CreateForeignKeyExpr
	cur   *ColumnDefinition
}

// CreateTable starts a table definition.
func (s *SequenceBuilder) CreateTable(name string) *CreateTableBuilder {
	return &CreateTableBuilder{
		state: builderState{seq: s, what: "CreateTable(" + name + ")"},
		expr:  CreateTableExpr{Name: name},
	}
}

// InSchema sets the table's schema.
func (b *CreateTableBuilder) InSchema(schema string) *CreateTableBuilder {
	b.expr.Schema = schema
	return b
}

func (b *CreateTableBuilder) flushColumn() {
	if b.cur != nil {
		b.expr.Columns = append(b.expr.Columns, *b.cur)
		b.cur = nil
	}
}

// WithColumn starts a new column. Columns default to nullable until
// NotNullable, PrimaryKey, or Identity says otherwise.
func (b *CreateTableBuilder) WithColumn(name string) *TableColumnBuilder {
	b.flushColumn()
	b.cur = &ColumnDefinition{Name: name, Nullable: true}
	return &TableColumnBuilder{table: b}
}

// Build finalizes the pending column and emits the table expression followed
// by its inline foreign keys.
func (b *CreateTableBuilder) Build() error {
	b.flushColumn()
	exprs := make([]Expression, 0, 1+len(b.fks))
	exprs = append(exprs, &b.expr)
	for _, fk := range b.fks {
		exprs = append(exprs, fk)
	}
	return b.state.emit(exprs...)
}

// TableColumnBuilder configures the column most recently started with
// WithColumn. It chains back into the table builder, so one fluent run can
// define every column and finish with Build.
type TableColumnBuilder struct {
	table *CreateTableBuilder
}

func (c *TableColumnBuilder) set(f func(*ColumnDefinition)) *TableColumnBuilder {
	if c.table.cur != nil {
		f(c.table.cur)
	}
	return c
}

// AsInt16 sets the column type to a 16-bit integer.
func (c *TableColumnBuilder) AsInt16() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeInt16} })
}

// AsInt32 sets the column type to a 32-bit integer.
func (c *TableColumnBuilder) AsInt32() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeInt32} })
}

// AsInt64 sets the column type to a 64-bit integer.
func (c *TableColumnBuilder) AsInt64() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeInt64} })
}

// AsString sets a length-bounded string type.
func (c *TableColumnBuilder) AsString(length int) *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeString, Length: length} })
}

// AsText sets an unbounded string type.
func (c *TableColumnBuilder) AsText() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeString} })
}

// AsDecimal sets an exact numeric type with the given precision and scale.
func (c *TableColumnBuilder) AsDecimal(precision, scale int) *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) {
		d.Type = ColumnType{Kind: TypeDecimal, Precision: precision, Scale: scale}
	})
}

// AsBoolean sets a boolean type.
func (c *TableColumnBuilder) AsBoolean() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeBoolean} })
}

// AsDateTime sets a date-time type.
func (c *TableColumnBuilder) AsDateTime() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeDateTime} })
}

// AsGuid sets a GUID/UUID type.
func (c *TableColumnBuilder) AsGuid() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeGuid} })
}

// AsBinary sets a length-bounded binary type; zero length means unbounded.
func (c *TableColumnBuilder) AsBinary(length int) *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeBinary, Length: length} })
}

// AsCustom sets a raw provider type string passed through unmapped.
func (c *TableColumnBuilder) AsCustom(raw string) *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeCustom, Raw: raw} })
}

// Nullable marks the column nullable (the default).
func (c *TableColumnBuilder) Nullable() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Nullable = true })
}

// NotNullable marks the column NOT NULL.
func (c *TableColumnBuilder) NotNullable() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Nullable = false })
}

// PrimaryKey marks the column as (part of) the primary key and coerces it to
// NOT NULL.
func (c *TableColumnBuilder) PrimaryKey() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) {
		d.PrimaryKey = true
		d.Nullable = false
	})
}

// Unique adds a unique constraint on the column.
func (c *TableColumnBuilder) Unique() *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Unique = true })
}

// Identity marks the column as an auto-incrementing identity with seed and
// increment of one.
func (c *TableColumnBuilder) Identity() *TableColumnBuilder {
	return c.IdentitySeeded(1, 1)
}

// IdentitySeeded marks the column as an identity starting at seed and
// stepping by increment.
func (c *TableColumnBuilder) IdentitySeeded(seed, increment int64) *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) {
		d.Identity = true
		d.IdentitySeed = seed
		d.IdentityIncrement = increment
		d.Nullable = false
	})
}

// WithDefault sets the column default. Pass a literal value, or one of the
// system tokens CurrentTimestamp / NewGuid to defer to the database function.
func (c *TableColumnBuilder) WithDefault(value any) *TableColumnBuilder {
	return c.set(func(d *ColumnDefinition) {
		if tok, ok := value.(SystemToken); ok {
			d.Default = &DefaultValue{Token: tok}
		} else {
			d.Default = &DefaultValue{Literal: value}
		}
	})
}

// ForeignKey declares a single-column foreign key from this column, emitted
// as a named constraint right after the table is created.
func (c *TableColumnBuilder) ForeignKey(name, refTable, refColumn string) *TableColumnBuilder {
	t := c.table
	if t.cur != nil {
		t.fks = append(t.fks, &CreateForeignKeyExpr{
			Name:        name,
			FromSchema:  t.expr.Schema,
			FromTable:   t.expr.Name,
			FromColumns: []string{t.cur.Name},
			ToTable:     refTable,
			ToColumns:   []string{refColumn},
		})
	}
	return c
}

// WithColumn finishes the current column and starts the next one.
func (c *TableColumnBuilder) WithColumn(name string) *TableColumnBuilder {
	return c.table.WithColumn(name)
}

// Build finishes the table; see CreateTableBuilder.Build.
func (c *TableColumnBuilder) Build() error {
	return c.table.Build()
}

// --- alter table ---

// AlterTableBuilder accumulates an ordered batch of column additions and
// alterations emitted as one AlterTable expression.
type AlterTableBuilder struct {
	state builderState
	expr  AlterTableExpr
	cur   *alterChange
}

type alterChange struct {
	add bool
	col ColumnDefinition
}

// AlterTable starts an alteration batch against an existing table.
func (s *SequenceBuilder) AlterTable(name string) *AlterTableBuilder {
	return &AlterTableBuilder{
		state: builderState{seq: s, what: "AlterTable(" + name + ")"},
		expr:  AlterTableExpr{Name: name},
	}
}

// InSchema sets the table's schema.
func (b *AlterTableBuilder) InSchema(schema string) *AlterTableBuilder {
	b.expr.Schema = schema
	return b
}

func (b *AlterTableBuilder) flushChange() {
	if b.cur == nil {
		return
	}
	if b.cur.add {
		b.expr.Changes = append(b.expr.Changes, &AddColumnExpr{
			Schema: b.expr.Schema, Table: b.expr.Name, Column: b.cur.col,
		})
	} else {
		b.expr.Changes = append(b.expr.Changes, &AlterColumnExpr{
			Schema: b.expr.Schema, Table: b.expr.Name, Column: b.cur.col,
		})
	}
	b.cur = nil
}

// AddColumn adds a new column to the table.
func (b *AlterTableBuilder) AddColumn(name string) *AlterColumnBuilder {
	b.flushChange()
	b.cur = &alterChange{add: true, col: ColumnDefinition{Name: name, Nullable: true}}
	return &AlterColumnBuilder{table: b}
}

// AlterColumn replaces an existing column's definition.
func (b *AlterTableBuilder) AlterColumn(name string) *AlterColumnBuilder {
	b.flushChange()
	b.cur = &alterChange{col: ColumnDefinition{Name: name, Nullable: true}}
	return &AlterColumnBuilder{table: b}
}

// Build emits the accumulated batch.
func (b *AlterTableBuilder) Build() error {
	b.flushChange()
	return b.state.emit(&b.expr)
}

// AlterColumnBuilder configures the column most recently started with
// AddColumn or AlterColumn.
type AlterColumnBuilder struct {
	table *AlterTableBuilder
}

func (c *AlterColumnBuilder) set(f func(*ColumnDefinition)) *AlterColumnBuilder {
	if c.table.cur != nil {
		f(&c.table.cur.col)
	}
	return c
}

// AsInt16 sets the column type to a 16-bit integer.
func (c *AlterColumnBuilder) AsInt16() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeInt16} })
}

// AsInt32 sets the column type to a 32-bit integer.
func (c *AlterColumnBuilder) AsInt32() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeInt32} })
}

// AsInt64 sets the column type to a 64-bit integer.
func (c *AlterColumnBuilder) AsInt64() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeInt64} })
}

// AsString sets a length-bounded string type.
func (c *AlterColumnBuilder) AsString(length int) *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeString, Length: length} })
}

// AsText sets an unbounded string type.
func (c *AlterColumnBuilder) AsText() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeString} })
}

// AsDecimal sets an exact numeric type with the given precision and scale.
func (c *AlterColumnBuilder) AsDecimal(precision, scale int) *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) {
		d.Type = ColumnType{Kind: TypeDecimal, Precision: precision, Scale: scale}
	})
}

// AsBoolean sets a boolean type.
func (c *AlterColumnBuilder) AsBoolean() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeBoolean} })
}

// AsDateTime sets a date-time type.
func (c *AlterColumnBuilder) AsDateTime() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeDateTime} })
}

// AsGuid sets a GUID/UUID type.
func (c *AlterColumnBuilder) AsGuid() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeGuid} })
}

// AsBinary sets a length-bounded binary type; zero length means unbounded.
func (c *AlterColumnBuilder) AsBinary(length int) *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeBinary, Length: length} })
}

// AsCustom sets a raw provider type string passed through unmapped.
func (c *AlterColumnBuilder) AsCustom(raw string) *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Type = ColumnType{Kind: TypeCustom, Raw: raw} })
}

// Nullable marks the column nullable (the default).
func (c *AlterColumnBuilder) Nullable() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Nullable = true })
}

// NotNullable marks the column NOT NULL.
func (c *AlterColumnBuilder) NotNullable() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Nullable = false })
}

// Unique adds a unique constraint on the column.
func (c *AlterColumnBuilder) Unique() *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) { d.Unique = true })
}

// WithDefault sets the column default; see TableColumnBuilder.WithDefault.
func (c *AlterColumnBuilder) WithDefault(value any) *AlterColumnBuilder {
	return c.set(func(d *ColumnDefinition) {
		if tok, ok := value.(SystemToken); ok {
			d.Default = &DefaultValue{Token: tok}
		} else {
			d.Default = &DefaultValue{Literal: value}
		}
	})
}

// AddColumn finishes the current change and starts a new column addition.
func (c *AlterColumnBuilder) AddColumn(name string) *AlterColumnBuilder {
	return c.table.AddColumn(name)
}

// AlterColumn finishes the current change and starts a new alteration.
func (c *AlterColumnBuilder) AlterColumn(name string) *AlterColumnBuilder {
	return c.table.AlterColumn(name)
}

// Build finishes the batch; see AlterTableBuilder.Build.
func (c *AlterColumnBuilder) Build() error {
	return c.table.Build()
}

// --- single-expression builders ---

// DeleteTableBuilder drops a table.
type DeleteTableBuilder struct {
	state builderState
	expr  DeleteTableExpr
}

// DeleteTable starts a table drop.
func (s *SequenceBuilder) DeleteTable(name string) *DeleteTableBuilder {
	return &DeleteTableBuilder{
		state: builderState{seq: s, what: "DeleteTable(" + name + ")"},
		expr:  DeleteTableExpr{Name: name},
	}
}

// InSchema sets the table's schema.
func (b *DeleteTableBuilder) InSchema(schema string) *DeleteTableBuilder {
	b.expr.Schema = schema
	return b
}

// Build emits the drop.
func (b *DeleteTableBuilder) Build() error { return b.state.emit(&b.expr) }

// DeleteColumnBuilder drops columns from a table.
type DeleteColumnBuilder struct {
	state builderState
	expr  DeleteColumnExpr
}

// DeleteColumn starts a column drop against a table.
func (s *SequenceBuilder) DeleteColumn(table string, columns ...string) *DeleteColumnBuilder {
	return &DeleteColumnBuilder{
		state: builderState{seq: s, what: "DeleteColumn(" + table + ")"},
		expr:  DeleteColumnExpr{Table: table, Columns: append([]string(nil), columns...)},
	}
}

// InSchema sets the table's schema.
func (b *DeleteColumnBuilder) InSchema(schema string) *DeleteColumnBuilder {
	b.expr.Schema = schema
	return b
}

// Build emits the drop.
func (b *DeleteColumnBuilder) Build() error { return b.state.emit(&b.expr) }

// CreateIndexBuilder accumulates an index definition.
type CreateIndexBuilder struct {
	state builderState
	expr  CreateIndexExpr
}

// CreateIndex starts an index definition on a table.
func (s *SequenceBuilder) CreateIndex(name, table string) *CreateIndexBuilder {
	return &CreateIndexBuilder{
		state: builderState{seq: s, what: "CreateIndex(" + name + ")"},
		expr:  CreateIndexExpr{Name: name, Table: table},
	}
}

// InSchema sets the table's schema.
func (b *CreateIndexBuilder) InSchema(schema string) *CreateIndexBuilder {
	b.expr.Schema = schema
	return b
}

// OnColumn appends an ascending key column.
func (b *CreateIndexBuilder) OnColumn(name string) *CreateIndexBuilder {
	b.expr.Columns = append(b.expr.Columns, IndexColumn{Name: name})
	return b
}

// OnColumnDescending appends a descending key column.
func (b *CreateIndexBuilder) OnColumnDescending(name string) *CreateIndexBuilder {
	b.expr.Columns = append(b.expr.Columns, IndexColumn{Name: name, Descending: true})
	return b
}

// Unique makes the index unique.
func (b *CreateIndexBuilder) Unique() *CreateIndexBuilder {
	b.expr.Unique = true
	return b
}

// Build emits the index.
func (b *CreateIndexBuilder) Build() error { return b.state.emit(&b.expr) }

// DeleteIndexBuilder drops an index.
type DeleteIndexBuilder struct {
	state builderState
	expr  DeleteIndexExpr
}

// DeleteIndex starts an index drop. The table is required by dialects that
// scope index names to their table.
func (s *SequenceBuilder) DeleteIndex(name, table string) *DeleteIndexBuilder {
	return &DeleteIndexBuilder{
		state: builderState{seq: s, what: "DeleteIndex(" + name + ")"},
		expr:  DeleteIndexExpr{Name: name, Table: table},
	}
}

// InSchema sets the owning table's schema.
func (b *DeleteIndexBuilder) InSchema(schema string) *DeleteIndexBuilder {
	b.expr.Schema = schema
	return b
}

// Build emits the drop.
func (b *DeleteIndexBuilder) Build() error { return b.state.emit(&b.expr) }

// ForeignKeyBuilder accumulates a named foreign-key constraint.
type ForeignKeyBuilder struct {
	state builderState
	expr  CreateForeignKeyExpr
}

// CreateForeignKey starts a named foreign-key constraint.
func (s *SequenceBuilder) CreateForeignKey(name string) *ForeignKeyBuilder {
	return &ForeignKeyBuilder{
		state: builderState{seq: s, what: "CreateForeignKey(" + name + ")"},
		expr:  CreateForeignKeyExpr{Name: name},
	}
}

// From names the referencing table and columns.
func (b *ForeignKeyBuilder) From(table string, columns ...string) *ForeignKeyBuilder {
	b.expr.FromTable = table
	b.expr.FromColumns = append([]string(nil), columns...)
	return b
}

// FromSchema sets the referencing table's schema.
func (b *ForeignKeyBuilder) FromSchema(schema string) *ForeignKeyBuilder {
	b.expr.FromSchema = schema
	return b
}

// To names the referenced table and columns.
func (b *ForeignKeyBuilder) To(table string, columns ...string) *ForeignKeyBuilder {
	b.expr.ToTable = table
	b.expr.ToColumns = append([]string(nil), columns...)
	return b
}

// ToSchema sets the referenced table's schema.
func (b *ForeignKeyBuilder) ToSchema(schema string) *ForeignKeyBuilder {
	b.expr.ToSchema = schema
	return b
}

// OnDelete sets the delete action.
func (b *ForeignKeyBuilder) OnDelete(a ReferentialAction) *ForeignKeyBuilder {
	b.expr.OnDelete = a
	return b
}

// OnUpdate sets the update action.
func (b *ForeignKeyBuilder) OnUpdate(a ReferentialAction) *ForeignKeyBuilder {
	b.expr.OnUpdate = a
	return b
}

// Build emits the constraint.
func (b *ForeignKeyBuilder) Build() error { return b.state.emit(&b.expr) }

// DeleteForeignKeyBuilder drops a named foreign-key constraint.
type DeleteForeignKeyBuilder struct {
	state builderState
	expr  DeleteForeignKeyExpr
}

// DeleteForeignKey starts a constraint drop.
func (s *SequenceBuilder) DeleteForeignKey(name, table string) *DeleteForeignKeyBuilder {
	return &DeleteForeignKeyBuilder{
		state: builderState{seq: s, what: "DeleteForeignKey(" + name + ")"},
		expr:  DeleteForeignKeyExpr{Name: name, Table: table},
	}
}

// InSchema sets the owning table's schema.
func (b *DeleteForeignKeyBuilder) InSchema(schema string) *DeleteForeignKeyBuilder {
	b.expr.Schema = schema
	return b
}

// Build emits the drop.
func (b *DeleteForeignKeyBuilder) Build() error { return b.state.emit(&b.expr) }

// SchemaBuilder creates or drops a named schema.
type SchemaBuilder struct {
	state builderState
	expr  Expression
}

// CreateSchema starts a schema creation.
func (s *SequenceBuilder) CreateSchema(name string) *SchemaBuilder {
	return &SchemaBuilder{
		state: builderState{seq: s, what: "CreateSchema(" + name + ")"},
		expr:  &CreateSchemaExpr{Name: name},
	}
}

// DeleteSchema starts a schema drop.
func (s *SequenceBuilder) DeleteSchema(name string) *SchemaBuilder {
	return &SchemaBuilder{
		state: builderState{seq: s, what: "DeleteSchema(" + name + ")"},
		expr:  &DeleteSchemaExpr{Name: name},
	}
}

// Build emits the schema operation.
func (b *SchemaBuilder) Build() error { return b.state.emit(b.expr) }

// InsertBuilder accumulates rows to insert into one table.
type InsertBuilder struct {
	state builderState
	expr  InsertRowExpr
}

// Insert starts a row insertion into a table.
func (s *SequenceBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{
		state: builderState{seq: s, what: "Insert(" + table + ")"},
		expr:  InsertRowExpr{Table: table},
	}
}

// InSchema sets the table's schema.
func (b *InsertBuilder) InSchema(schema string) *InsertBuilder {
	b.expr.Schema = schema
	return b
}

// Row appends one row. Column order in the rendered statement is the sorted
// column-name order, independent of map iteration.
func (b *InsertBuilder) Row(values map[string]any) *InsertBuilder {
	b.expr.Rows = append(b.expr.Rows, sortedPairs(values))
	return b
}

// Build emits the insert.
func (b *InsertBuilder) Build() error { return b.state.emit(&b.expr) }

// UpdateBuilder accumulates an update against one table.
type UpdateBuilder struct {
	state builderState
	expr  UpdateRowExpr
}

// Update starts an update against a table.
func (s *SequenceBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{
		state: builderState{seq: s, what: "Update(" + table + ")"},
		expr:  UpdateRowExpr{Table: table},
	}
}

// InSchema sets the table's schema.
func (b *UpdateBuilder) InSchema(schema string) *UpdateBuilder {
	b.expr.Schema = schema
	return b
}

// Set provides the columns to assign.
func (b *UpdateBuilder) Set(values map[string]any) *UpdateBuilder {
	b.expr.Set = sortedPairs(values)
	return b
}

// Where provides the equality filter, AND-joined.
func (b *UpdateBuilder) Where(values map[string]any) *UpdateBuilder {
	b.expr.Where = sortedPairs(values)
	return b
}

// AllRows explicitly allows an unfiltered update.
func (b *UpdateBuilder) AllRows() *UpdateBuilder {
	b.expr.AllRows = true
	return b
}

// Build emits the update.
func (b *UpdateBuilder) Build() error { return b.state.emit(&b.expr) }

// DeleteRowBuilder accumulates a row deletion against one table.
type DeleteRowBuilder struct {
	state builderState
	expr  DeleteRowExpr
}

// Delete starts a row deletion against a table.
func (s *SequenceBuilder) Delete(table string) *DeleteRowBuilder {
	return &DeleteRowBuilder{
		state: builderState{seq: s, what: "Delete(" + table + ")"},
		expr:  DeleteRowExpr{Table: table},
	}
}

// InSchema sets the table's schema.
func (b *DeleteRowBuilder) InSchema(schema string) *DeleteRowBuilder {
	b.expr.Schema = schema
	return b
}

// Where provides the equality filter, AND-joined.
func (b *DeleteRowBuilder) Where(values map[string]any) *DeleteRowBuilder {
	b.expr.Where = sortedPairs(values)
	return b
}

// AllRows explicitly allows an unfiltered delete.
func (b *DeleteRowBuilder) AllRows() *DeleteRowBuilder {
	b.expr.AllRows = true
	return b
}

// Build emits the delete.
func (b *DeleteRowBuilder) Build() error { return b.state.emit(&b.expr) }

// RawSqlBuilder passes a statement through verbatim.
type RawSqlBuilder struct {
	state builderState
	expr  ExecuteRawSqlExpr
}

// ExecuteSql starts a raw SQL statement.
func (s *SequenceBuilder) ExecuteSql(sql string) *RawSqlBuilder {
	return &RawSqlBuilder{
		state: builderState{seq: s, what: "ExecuteSql"},
		expr:  ExecuteRawSqlExpr{SQL: sql},
	}
}

// Build emits the statement.
func (b *RawSqlBuilder) Build() error { return b.state.emit(&b.expr) }

// RenameTableBuilder renames a table.
type RenameTableBuilder struct {
	state builderState
	expr  RenameTableExpr
}

// RenameTable starts a table rename.
func (s *SequenceBuilder) RenameTable(oldName, newName string) *RenameTableBuilder {
	return &RenameTableBuilder{
		state: builderState{seq: s, what: "RenameTable(" + oldName + ")"},
		expr:  RenameTableExpr{OldName: oldName, NewName: newName},
	}
}

// InSchema sets the table's schema.
func (b *RenameTableBuilder) InSchema(schema string) *RenameTableBuilder {
	b.expr.Schema = schema
	return b
}

// Build emits the rename.
func (b *RenameTableBuilder) Build() error { return b.state.emit(&b.expr) }

// RenameColumnBuilder renames a column.
type RenameColumnBuilder struct {
	state builderState
	expr  RenameColumnExpr
}

// RenameColumn starts a column rename.
func (s *SequenceBuilder) RenameColumn(table, oldName, newName string) *RenameColumnBuilder {
	return &RenameColumnBuilder{
		state: builderState{seq: s, what: "RenameColumn(" + table + "." + oldName + ")"},
		expr:  RenameColumnExpr{Table: table, OldName: oldName, NewName: newName},
	}
}

// InSchema sets the table's schema.
func (b *RenameColumnBuilder) InSchema(schema string) *RenameColumnBuilder {
	b.expr.Schema = schema
	return b
}

// Build emits the rename.
func (b *RenameColumnBuilder) Build() error { return b.state.emit(&b.expr) }
