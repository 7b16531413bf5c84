package fluentmig

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// sqlserverDialect renders for SQL Server. Identifiers are bracket-quoted,
// identity columns use IDENTITY(seed,increment), and renames go through
// sp_rename.
type sqlserverDialect struct{}

func (sqlserverDialect) tag() DialectTag { return SQLServer }

func (sqlserverDialect) quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (sqlserverDialect) typeSQL(t ColumnType) (string, bool) {
	switch t.Kind {
	case TypeInt16:
		return "SMALLINT", true
	case TypeInt32:
		return "INT", true
	case TypeInt64:
		return "BIGINT", true
	case TypeString:
		if t.Length > 0 {
			return fmt.Sprintf("NVARCHAR(%d)", t.Length), true
		}
		return "NVARCHAR(MAX)", true
	case TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale), true
	case TypeBoolean:
		return "BIT", true
	case TypeDateTime:
		return "DATETIME2", true
	case TypeGuid:
		return "UNIQUEIDENTIFIER", true
	case TypeBinary:
		if t.Length > 0 {
			return fmt.Sprintf("VARBINARY(%d)", t.Length), true
		}
		return "VARBINARY(MAX)", true
	case TypeCustom:
		return t.Raw, true
	}
	return "", false
}

func (sqlserverDialect) identityFragment(c ColumnDefinition) (string, bool, error) {
	return fmt.Sprintf(" IDENTITY(%d,%d)", c.IdentitySeed, c.IdentityIncrement), false, nil
}

func (sqlserverDialect) tokenSQL(tok SystemToken) (string, error) {
	switch tok {
	case CurrentTimestamp:
		return "GETDATE()", nil
	case NewGuid:
		return "NEWID()", nil
	}
	return "", fmt.Errorf("sqlserver has no rendering for %s", tok)
}

func (sqlserverDialect) boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (sqlserverDialect) binaryLiteral(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func (sqlserverDialect) supportsSchemas() bool       { return true }
func (sqlserverDialect) supportsAddForeignKey() bool { return true }
func (sqlserverDialect) alterColumnStyle() alterStyle {
	return alterRedefine
}

func (sqlserverDialect) addColumnSQL(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", table, columnSQL)
}

func (d sqlserverDialect) dropForeignKey(table string, e *DeleteForeignKeyExpr) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, d.quote(e.Name))}, nil
}

func (d sqlserverDialect) dropIndex(table string, e *DeleteIndexExpr) []string {
	return []string{fmt.Sprintf("DROP INDEX %s ON %s", d.quote(e.Name), table)}
}

func (sqlserverDialect) renameTable(_ string, e *RenameTableExpr) []string {
	old := e.OldName
	if e.Schema != "" {
		old = e.Schema + "." + old
	}
	return []string{fmt.Sprintf("EXEC sp_rename '%s', '%s'", old, e.NewName)}
}

func (sqlserverDialect) renameColumn(_ string, e *RenameColumnExpr) []string {
	old := e.Table + "." + e.OldName
	if e.Schema != "" {
		old = e.Schema + "." + old
	}
	return []string{fmt.Sprintf("EXEC sp_rename '%s', '%s', 'COLUMN'", old, e.NewName)}
}
