package fluentmig

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// sqliteDialect renders for SQLite. SQLite has no schemas, cannot alter or
// drop constraints on existing tables, and only supports AUTOINCREMENT on an
// INTEGER PRIMARY KEY column, so several constructs reject at render time.
type sqliteDialect struct{}

func (sqliteDialect) tag() DialectTag { return SQLite }

func (sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) typeSQL(t ColumnType) (string, bool) {
	switch t.Kind {
	case TypeInt16, TypeInt32, TypeInt64:
		return "INTEGER", true
	case TypeString:
		return "TEXT", true
	case TypeDecimal:
		return "NUMERIC", true
	case TypeBoolean:
		return "INTEGER", true
	case TypeDateTime:
		return "TIMESTAMP", true
	case TypeGuid:
		return "TEXT", true
	case TypeBinary:
		return "BLOB", true
	case TypeCustom:
		return t.Raw, true
	}
	return "", false
}

func (sqliteDialect) identityFragment(c ColumnDefinition) (string, bool, error) {
	if !c.PrimaryKey {
		return "", false, fmt.Errorf("sqlite supports identity only on the primary key column (column %s)", c.Name)
	}
	if c.IdentitySeed != 1 || c.IdentityIncrement != 1 {
		return "", false, fmt.Errorf("sqlite cannot set identity seed or increment (column %s)", c.Name)
	}
	return " PRIMARY KEY AUTOINCREMENT", true, nil
}

func (sqliteDialect) tokenSQL(tok SystemToken) (string, error) {
	switch tok {
	case CurrentTimestamp:
		return "CURRENT_TIMESTAMP", nil
	}
	return "", fmt.Errorf("sqlite has no rendering for %s", tok)
}

func (sqliteDialect) boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (sqliteDialect) binaryLiteral(b []byte) string {
	return "X'" + hex.EncodeToString(b) + "'"
}

func (sqliteDialect) supportsSchemas() bool       { return false }
func (sqliteDialect) supportsAddForeignKey() bool { return false }
func (sqliteDialect) alterColumnStyle() alterStyle {
	return alterUnsupported
}

func (sqliteDialect) addColumnSQL(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnSQL)
}

func (sqliteDialect) dropForeignKey(string, *DeleteForeignKeyExpr) ([]string, error) {
	return nil, fmt.Errorf("sqlite cannot drop a foreign key from an existing table")
}

func (d sqliteDialect) dropIndex(_ string, e *DeleteIndexExpr) []string {
	return []string{"DROP INDEX " + d.quote(e.Name)}
}

func (d sqliteDialect) renameTable(table string, e *RenameTableExpr) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", table, d.quote(e.NewName))}
}

func (d sqliteDialect) renameColumn(table string, e *RenameColumnExpr) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		table, d.quote(e.OldName), d.quote(e.NewName))}
}
