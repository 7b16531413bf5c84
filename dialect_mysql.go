package fluentmig

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// mysqlDialect renders for MySQL/MariaDB. Identifiers are backtick-quoted
// and identity columns use AUTO_INCREMENT; a custom identity increment has
// no per-table equivalent and is rejected.
type mysqlDialect struct{}

func (mysqlDialect) tag() DialectTag { return MySQL }

func (mysqlDialect) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) typeSQL(t ColumnType) (string, bool) {
	switch t.Kind {
	case TypeInt16:
		return "SMALLINT", true
	case TypeInt32:
		return "INT", true
	case TypeInt64:
		return "BIGINT", true
	case TypeString:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length), true
		}
		return "LONGTEXT", true
	case TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale), true
	case TypeBoolean:
		return "TINYINT(1)", true
	case TypeDateTime:
		return "DATETIME", true
	case TypeGuid:
		return "CHAR(36)", true
	case TypeBinary:
		if t.Length > 0 {
			return fmt.Sprintf("VARBINARY(%d)", t.Length), true
		}
		return "LONGBLOB", true
	case TypeCustom:
		return t.Raw, true
	}
	return "", false
}

func (mysqlDialect) identityFragment(c ColumnDefinition) (string, bool, error) {
	if c.IdentityIncrement != 1 {
		return "", false, fmt.Errorf("mysql cannot set a per-column identity increment (column %s)", c.Name)
	}
	return " AUTO_INCREMENT", false, nil
}

func (mysqlDialect) tokenSQL(tok SystemToken) (string, error) {
	switch tok {
	case CurrentTimestamp:
		return "CURRENT_TIMESTAMP", nil
	case NewGuid:
		return "(UUID())", nil
	}
	return "", fmt.Errorf("mysql has no rendering for %s", tok)
}

func (mysqlDialect) boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (mysqlDialect) binaryLiteral(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func (mysqlDialect) supportsSchemas() bool       { return true }
func (mysqlDialect) supportsAddForeignKey() bool { return true }
func (mysqlDialect) alterColumnStyle() alterStyle {
	return alterModify
}

func (mysqlDialect) addColumnSQL(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnSQL)
}

func (d mysqlDialect) dropForeignKey(table string, e *DeleteForeignKeyExpr) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", table, d.quote(e.Name))}, nil
}

func (d mysqlDialect) dropIndex(table string, e *DeleteIndexExpr) []string {
	return []string{fmt.Sprintf("DROP INDEX %s ON %s", d.quote(e.Name), table)}
}

func (d mysqlDialect) renameTable(table string, e *RenameTableExpr) []string {
	newName := d.quote(e.NewName)
	if e.Schema != "" {
		newName = d.quote(e.Schema) + "." + newName
	}
	return []string{fmt.Sprintf("RENAME TABLE %s TO %s", table, newName)}
}

func (d mysqlDialect) renameColumn(table string, e *RenameColumnExpr) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		table, d.quote(e.OldName), d.quote(e.NewName))}
}
