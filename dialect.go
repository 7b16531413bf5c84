package fluentmig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DialectTag identifies a supported database family. The set is closed:
// planning and gating compare tags, never free-form strings.
type DialectTag string

const (
	Postgres  DialectTag = "postgres"
	SQLServer DialectTag = "sqlserver"
	MySQL     DialectTag = "mysql"
	SQLite    DialectTag = "sqlite"
)

// AllDialects lists every supported dialect tag in a fixed order.
var AllDialects = []DialectTag{Postgres, SQLServer, MySQL, SQLite}

func (t DialectTag) valid() bool {
	switch t {
	case Postgres, SQLServer, MySQL, SQLite:
		return true
	}
	return false
}

// ParseDialect maps a provider identifier to its dialect tag.
func ParseDialect(s string) (DialectTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown provider %q; must be one of: postgres, sqlserver, mysql, sqlite", s)
}

// alterStyle selects how a dialect expresses column alteration.
type alterStyle int

const (
	alterUnsupported alterStyle = iota
	alterTypeClauses            // ALTER COLUMN ... TYPE / SET NOT NULL (Postgres)
	alterRedefine               // ALTER COLUMN <name> <type> <nullability> (SQL Server)
	alterModify                 // MODIFY COLUMN <full definition> (MySQL)
)

// dialect supplies the provider-specific pieces the shared generator composes:
// quoting, the type map, identity and default-token syntax, and the handful
// of statements whose shape differs wholesale between providers.
type dialect interface {
	tag() DialectTag
	quote(ident string) string
	// typeSQL maps a logical type; ok=false means the dialect cannot
	// represent it.
	typeSQL(t ColumnType) (sql string, ok bool)
	// identityFragment returns the fragment appended after nullability.
	// consumesPK means the fragment already establishes the primary key.
	identityFragment(c ColumnDefinition) (frag string, consumesPK bool, err error)
	tokenSQL(tok SystemToken) (string, error)
	boolLiteral(b bool) string
	binaryLiteral(b []byte) string
	supportsSchemas() bool
	supportsAddForeignKey() bool
	alterColumnStyle() alterStyle

	addColumnSQL(table, columnSQL string) string
	dropForeignKey(table string, e *DeleteForeignKeyExpr) ([]string, error)
	dropIndex(table string, e *DeleteIndexExpr) []string
	renameTable(table string, e *RenameTableExpr) []string
	renameColumn(table string, e *RenameColumnExpr) []string
}

// Generator renders expressions into literal SQL for one dialect. Rendering
// is pure and deterministic: the same expression always yields the same
// statements, which is what makes dry-run output and tests reproducible.
type Generator struct {
	d dialect
}

// NewGenerator returns the generator for a dialect tag.
func NewGenerator(tag DialectTag) (*Generator, error) {
	switch tag {
	case Postgres:
		return &Generator{d: postgresDialect{}}, nil
	case SQLServer:
		return &Generator{d: sqlserverDialect{}}, nil
	case MySQL:
		return &Generator{d: mysqlDialect{}}, nil
	case SQLite:
		return &Generator{d: sqliteDialect{}}, nil
	}
	return nil, fmt.Errorf("unknown dialect tag %q", string(tag))
}

// Dialect returns the tag this generator renders for.
func (g *Generator) Dialect() DialectTag { return g.d.tag() }

// Render converts an expression into an ordered list of SQL statements.
// Multi-statement expressions preserve the order the dialect requires. A
// conditional gate that does not apply to this dialect renders nothing.
func (g *Generator) Render(e Expression) ([]string, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	switch x := e.(type) {
	case *ConditionalExpr:
		if !x.AppliesTo(g.d.tag()) {
			return nil, nil
		}
		var out []string
		for _, w := range x.Wrapped {
			stmts, err := g.Render(w)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
		return out, nil
	case *CreateTableExpr:
		return g.createTable(x)
	case *AlterTableExpr:
		var out []string
		for _, ch := range x.Changes {
			stmts, err := g.Render(ch)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
		return out, nil
	case *DeleteTableExpr:
		qt, err := g.qualify(x.Schema, x.Name)
		if err != nil {
			return nil, err
		}
		return []string{"DROP TABLE " + qt}, nil
	case *AddColumnExpr:
		return g.addColumn(x)
	case *AlterColumnExpr:
		return g.alterColumn(x)
	case *DeleteColumnExpr:
		qt, err := g.qualify(x.Schema, x.Table)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(x.Columns))
		for i, c := range x.Columns {
			out[i] = fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", qt, g.d.quote(c))
		}
		return out, nil
	case *CreateIndexExpr:
		return g.createIndex(x)
	case *DeleteIndexExpr:
		qt, err := g.qualify(x.Schema, x.Table)
		if err != nil {
			return nil, err
		}
		return g.d.dropIndex(qt, x), nil
	case *CreateForeignKeyExpr:
		return g.createForeignKey(x)
	case *DeleteForeignKeyExpr:
		qt, err := g.qualify(x.Schema, x.Table)
		if err != nil {
			return nil, err
		}
		return g.d.dropForeignKey(qt, x)
	case *CreateSchemaExpr:
		if !g.d.supportsSchemas() {
			return nil, fmt.Errorf("%s does not support schemas", g.d.tag())
		}
		return []string{"CREATE SCHEMA " + g.d.quote(x.Name)}, nil
	case *DeleteSchemaExpr:
		if !g.d.supportsSchemas() {
			return nil, fmt.Errorf("%s does not support schemas", g.d.tag())
		}
		return []string{"DROP SCHEMA " + g.d.quote(x.Name)}, nil
	case *InsertRowExpr:
		return g.insertRows(x)
	case *UpdateRowExpr:
		return g.updateRows(x)
	case *DeleteRowExpr:
		return g.deleteRows(x)
	case *ExecuteRawSqlExpr:
		return []string{x.SQL}, nil
	case *RenameTableExpr:
		qt, err := g.qualify(x.Schema, x.OldName)
		if err != nil {
			return nil, err
		}
		return g.d.renameTable(qt, x), nil
	case *RenameColumnExpr:
		qt, err := g.qualify(x.Schema, x.Table)
		if err != nil {
			return nil, err
		}
		return g.d.renameColumn(qt, x), nil
	}
	return nil, fmt.Errorf("no renderer for expression kind %s", e.Kind())
}

func (g *Generator) qualify(schema, name string) (string, error) {
	if schema != "" && !g.d.supportsSchemas() {
		return "", fmt.Errorf("%s does not support schema-qualified names (%s.%s)", g.d.tag(), schema, name)
	}
	if schema == "" {
		return g.d.quote(name), nil
	}
	return g.d.quote(schema) + "." + g.d.quote(name), nil
}

// columnSQL renders one column definition: name, type, nullability, identity,
// key and default clauses, in that order.
func (g *Generator) columnSQL(table string, c ColumnDefinition) (string, error) {
	ts, ok := g.d.typeSQL(c.Type)
	if !ok {
		return "", &UnsupportedTypeError{Dialect: g.d.tag(), Table: table, Column: c.Name, Type: c.Type}
	}
	var b strings.Builder
	b.WriteString(g.d.quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(ts)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	pkConsumed := false
	if c.Identity {
		frag, consumesPK, err := g.d.identityFragment(c)
		if err != nil {
			return "", err
		}
		b.WriteString(frag)
		pkConsumed = consumesPK
	}
	if c.Default != nil {
		lit, err := g.defaultSQL(c)
		if err != nil {
			return "", err
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}
	if c.PrimaryKey && !pkConsumed {
		b.WriteString(" PRIMARY KEY")
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	return b.String(), nil
}

func (g *Generator) defaultSQL(c ColumnDefinition) (string, error) {
	if c.Default.Token != 0 {
		return g.d.tokenSQL(c.Default.Token)
	}
	return g.literal(c.Default.Literal)
}

// literal renders a typed value as a SQL literal. System tokens are accepted
// here too so data expressions can reference database functions.
func (g *Generator) literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		return g.d.boolLiteral(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return "'" + x.UTC().Format("2006-01-02 15:04:05") + "'", nil
	case uuid.UUID:
		return "'" + x.String() + "'", nil
	case []byte:
		return g.d.binaryLiteral(x), nil
	case SystemToken:
		return g.d.tokenSQL(x)
	}
	return "", fmt.Errorf("cannot render %T as a SQL literal", v)
}

func (g *Generator) createTable(e *CreateTableExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Name)
	if err != nil {
		return nil, err
	}
	pkCols := 0
	for _, c := range e.Columns {
		if c.PrimaryKey {
			pkCols++
		}
	}
	defs := make([]string, 0, len(e.Columns)+1)
	for _, c := range e.Columns {
		col := c
		if pkCols > 1 {
			// Composite keys are emitted as a table constraint below.
			col.PrimaryKey = false
		}
		s, err := g.columnSQL(e.Name, col)
		if err != nil {
			return nil, err
		}
		defs = append(defs, s)
	}
	if pkCols > 1 {
		names := make([]string, 0, pkCols)
		for _, c := range e.Columns {
			if c.PrimaryKey {
				names = append(names, g.d.quote(c.Name))
			}
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(names, ", ")+")")
	}
	return []string{"CREATE TABLE " + qt + " (" + strings.Join(defs, ", ") + ")"}, nil
}

func (g *Generator) addColumn(e *AddColumnExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Table)
	if err != nil {
		return nil, err
	}
	col, err := g.columnSQL(e.Table, e.Column)
	if err != nil {
		return nil, err
	}
	return []string{g.d.addColumnSQL(qt, col)}, nil
}

func (g *Generator) alterColumn(e *AlterColumnExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Table)
	if err != nil {
		return nil, err
	}
	c := e.Column
	ts, ok := g.d.typeSQL(c.Type)
	if !ok {
		return nil, &UnsupportedTypeError{Dialect: g.d.tag(), Table: e.Table, Column: c.Name, Type: c.Type}
	}
	qc := g.d.quote(c.Name)
	var out []string
	switch g.d.alterColumnStyle() {
	case alterTypeClauses:
		out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", qt, qc, ts))
		if c.Nullable {
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", qt, qc))
		} else {
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", qt, qc))
		}
		if c.Default != nil {
			lit, err := g.defaultSQL(c)
			if err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", qt, qc, lit))
		}
	case alterRedefine:
		null := " NOT NULL"
		if c.Nullable {
			null = " NULL"
		}
		out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s%s", qt, qc, ts, null))
		if c.Default != nil {
			lit, err := g.defaultSQL(c)
			if err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprintf("ALTER TABLE %s ADD DEFAULT %s FOR %s", qt, lit, qc))
		}
	case alterModify:
		col, err := g.columnSQL(e.Table, c)
		if err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", qt, col))
	default:
		return nil, fmt.Errorf("%s cannot alter existing columns; recreate the table instead", g.d.tag())
	}
	if c.Unique && g.d.alterColumnStyle() != alterModify {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
			qt, g.d.quote("UQ_"+e.Table+"_"+c.Name), qc))
	}
	return out, nil
}

func (g *Generator) createIndex(e *CreateIndexExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Table)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = g.d.quote(c.Name)
		if c.Descending {
			cols[i] += " DESC"
		}
	}
	kw := "CREATE INDEX "
	if e.Unique {
		kw = "CREATE UNIQUE INDEX "
	}
	return []string{kw + g.d.quote(e.Name) + " ON " + qt + " (" + strings.Join(cols, ", ") + ")"}, nil
}

func (g *Generator) createForeignKey(e *CreateForeignKeyExpr) ([]string, error) {
	from, err := g.qualify(e.FromSchema, e.FromTable)
	if err != nil {
		return nil, err
	}
	to, err := g.qualify(e.ToSchema, e.ToTable)
	if err != nil {
		return nil, err
	}
	fromCols := make([]string, len(e.FromColumns))
	for i, c := range e.FromColumns {
		fromCols[i] = g.d.quote(c)
	}
	toCols := make([]string, len(e.ToColumns))
	for i, c := range e.ToColumns {
		toCols[i] = g.d.quote(c)
	}
	if !g.d.supportsAddForeignKey() {
		return nil, fmt.Errorf("%s cannot add a foreign key to an existing table", g.d.tag())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		from, g.d.quote(e.Name), strings.Join(fromCols, ", "), to, strings.Join(toCols, ", "))
	if e.OnDelete != NoAction {
		b.WriteString(" ON DELETE " + e.OnDelete.sql())
	}
	if e.OnUpdate != NoAction {
		b.WriteString(" ON UPDATE " + e.OnUpdate.sql())
	}
	return []string{b.String()}, nil
}

func (g *Generator) insertRows(e *InsertRowExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Table)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(e.Rows))
	for _, row := range e.Rows {
		cols := make([]string, len(row))
		vals := make([]string, len(row))
		for i, cv := range row {
			cols[i] = g.d.quote(cv.Name)
			lit, err := g.literal(cv.Value)
			if err != nil {
				return nil, err
			}
			vals[i] = lit
		}
		out = append(out, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			qt, strings.Join(cols, ", "), strings.Join(vals, ", ")))
	}
	return out, nil
}

func (g *Generator) assignments(pairs []ColumnValue, sep string) (string, error) {
	parts := make([]string, len(pairs))
	for i, cv := range pairs {
		lit, err := g.literal(cv.Value)
		if err != nil {
			return "", err
		}
		parts[i] = g.d.quote(cv.Name) + " = " + lit
	}
	return strings.Join(parts, sep), nil
}

// conditions renders an AND-joined equality filter; nil values become IS NULL.
func (g *Generator) conditions(pairs []ColumnValue) (string, error) {
	parts := make([]string, len(pairs))
	for i, cv := range pairs {
		if cv.Value == nil {
			parts[i] = g.d.quote(cv.Name) + " IS NULL"
			continue
		}
		lit, err := g.literal(cv.Value)
		if err != nil {
			return "", err
		}
		parts[i] = g.d.quote(cv.Name) + " = " + lit
	}
	return strings.Join(parts, " AND "), nil
}

func (g *Generator) updateRows(e *UpdateRowExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Table)
	if err != nil {
		return nil, err
	}
	set, err := g.assignments(e.Set, ", ")
	if err != nil {
		return nil, err
	}
	stmt := "UPDATE " + qt + " SET " + set
	if len(e.Where) > 0 {
		where, err := g.conditions(e.Where)
		if err != nil {
			return nil, err
		}
		stmt += " WHERE " + where
	}
	return []string{stmt}, nil
}

func (g *Generator) deleteRows(e *DeleteRowExpr) ([]string, error) {
	qt, err := g.qualify(e.Schema, e.Table)
	if err != nil {
		return nil, err
	}
	stmt := "DELETE FROM " + qt
	if len(e.Where) > 0 {
		where, err := g.conditions(e.Where)
		if err != nil {
			return nil, err
		}
		stmt += " WHERE " + where
	}
	return []string{stmt}, nil
}
