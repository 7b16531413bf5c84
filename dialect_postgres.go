package fluentmig

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// postgresDialect renders for PostgreSQL. Identifiers are double-quoted,
// identity columns use standard GENERATED AS IDENTITY, and binary data is
// the bytea hex form.
type postgresDialect struct{}

func (postgresDialect) tag() DialectTag { return Postgres }

func (postgresDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (postgresDialect) typeSQL(t ColumnType) (string, bool) {
	switch t.Kind {
	case TypeInt16:
		return "SMALLINT", true
	case TypeInt32:
		return "INTEGER", true
	case TypeInt64:
		return "BIGINT", true
	case TypeString:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length), true
		}
		return "TEXT", true
	case TypeDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale), true
	case TypeBoolean:
		return "BOOLEAN", true
	case TypeDateTime:
		return "TIMESTAMP", true
	case TypeGuid:
		return "UUID", true
	case TypeBinary:
		return "BYTEA", true
	case TypeCustom:
		return t.Raw, true
	}
	return "", false
}

func (postgresDialect) identityFragment(c ColumnDefinition) (string, bool, error) {
	if c.IdentitySeed != 1 || c.IdentityIncrement != 1 {
		return fmt.Sprintf(" GENERATED BY DEFAULT AS IDENTITY (START WITH %d INCREMENT BY %d)",
			c.IdentitySeed, c.IdentityIncrement), false, nil
	}
	return " GENERATED BY DEFAULT AS IDENTITY", false, nil
}

func (postgresDialect) tokenSQL(tok SystemToken) (string, error) {
	switch tok {
	case CurrentTimestamp:
		return "CURRENT_TIMESTAMP", nil
	case NewGuid:
		return "gen_random_uuid()", nil
	}
	return "", fmt.Errorf("postgres has no rendering for %s", tok)
}

func (postgresDialect) boolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (postgresDialect) binaryLiteral(b []byte) string {
	return `'\x` + hex.EncodeToString(b) + `'`
}

func (postgresDialect) supportsSchemas() bool       { return true }
func (postgresDialect) supportsAddForeignKey() bool { return true }
func (postgresDialect) alterColumnStyle() alterStyle {
	return alterTypeClauses
}

func (postgresDialect) addColumnSQL(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnSQL)
}

func (d postgresDialect) dropForeignKey(table string, e *DeleteForeignKeyExpr) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, d.quote(e.Name))}, nil
}

func (d postgresDialect) dropIndex(_ string, e *DeleteIndexExpr) []string {
	// Indexes live in the table's schema and are dropped by their own name.
	name := d.quote(e.Name)
	if e.Schema != "" {
		name = d.quote(e.Schema) + "." + name
	}
	return []string{"DROP INDEX " + name}
}

func (d postgresDialect) renameTable(table string, e *RenameTableExpr) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s", table, d.quote(e.NewName))}
}

func (d postgresDialect) renameColumn(table string, e *RenameColumnExpr) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		table, d.quote(e.OldName), d.quote(e.NewName))}
}
