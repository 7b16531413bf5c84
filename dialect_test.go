package fluentmig

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// forward builds a unit through fn and returns its forward sequence.
func forward(t *testing.T, fn func(*SequenceBuilder)) []Expression {
	t.Helper()
	u := NewUnit(1, "test")
	fn(u.Up())
	if err := u.Err(); err != nil {
		t.Fatalf("Unexpected construction error: %v", err)
	}
	return u.Forward()
}

// renderOne renders a single expression and expects exactly one statement.
func renderOne(t *testing.T, tag DialectTag, e Expression) string {
	t.Helper()
	gen, err := NewGenerator(tag)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	stmts, err := gen.Render(e)
	if err != nil {
		t.Fatalf("Unexpected render error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("Expected 1 statement, got %d: %v", len(stmts), stmts)
	}
	return stmts[0]
}

// TestSQLServerCreateTableUsers verifies the canonical identity-table shape
// on SQL Server, byte for byte.
func TestSQLServerCreateTableUsers(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("Users").
			WithColumn("Id").AsInt32().NotNullable().Identity().PrimaryKey().
			WithColumn("Name").AsString(100).NotNullable().
			Build()
	})
	got := renderOne(t, SQLServer, exprs[0])
	want := "CREATE TABLE [Users] ([Id] INT NOT NULL IDENTITY(1,1) PRIMARY KEY, [Name] NVARCHAR(100) NOT NULL)"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestCreateTableAcrossDialects verifies the same logical definition renders
// each dialect's native form.
func TestCreateTableAcrossDialects(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("Users").
			WithColumn("Id").AsInt32().NotNullable().Identity().PrimaryKey().
			WithColumn("Name").AsString(100).NotNullable().
			Build()
	})
	cases := []struct {
		tag  DialectTag
		want string
	}{
		{Postgres, `CREATE TABLE "Users" ("Id" INTEGER NOT NULL GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY, "Name" VARCHAR(100) NOT NULL)`},
		{MySQL, "CREATE TABLE `Users` (`Id` INT NOT NULL AUTO_INCREMENT PRIMARY KEY, `Name` VARCHAR(100) NOT NULL)"},
		{SQLite, `CREATE TABLE "Users" ("Id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT, "Name" TEXT NOT NULL)`},
	}
	for _, c := range cases {
		if got := renderOne(t, c.tag, exprs[0]); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.tag, c.want, got)
		}
	}
}

// TestRenderDeterministic verifies that rendering the same expression twice
// yields identical output.
func TestRenderDeterministic(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.Insert("users").Row(map[string]any{
			"name": "ada", "email": "ada@example.com", "active": true,
		}).Build()
	})
	for _, tag := range AllDialects {
		gen, err := NewGenerator(tag)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		first, err := gen.Render(exprs[0])
		if err != nil {
			t.Fatalf("Unexpected render error: %v", err)
		}
		second, err := gen.Render(exprs[0])
		if err != nil {
			t.Fatalf("Unexpected render error: %v", err)
		}
		if strings.Join(first, ";") != strings.Join(second, ";") {
			t.Errorf("%s: renders differ: %v vs %v", tag, first, second)
		}
	}
}

// TestCompositePrimaryKeyBecomesTableConstraint verifies multi-column keys
// move out of the column definitions.
func TestCompositePrimaryKeyBecomesTableConstraint(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("pairs").
			WithColumn("a").AsInt32().PrimaryKey().
			WithColumn("b").AsInt32().PrimaryKey().
			Build()
	})
	got := renderOne(t, Postgres, exprs[0])
	want := `CREATE TABLE "pairs" ("a" INTEGER NOT NULL, "b" INTEGER NOT NULL, PRIMARY KEY ("a", "b"))`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestDefaultsAndLiterals verifies token defaults, string escaping, and
// dialect-specific boolean literals.
func TestDefaultsAndLiterals(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("t").
			WithColumn("created_at").AsDateTime().NotNullable().WithDefault(CurrentTimestamp).
			WithColumn("name").AsString(50).WithDefault("O'Brien").
			WithColumn("active").AsBoolean().NotNullable().WithDefault(true).
			Build()
	})
	got := renderOne(t, Postgres, exprs[0])
	want := `CREATE TABLE "t" ("created_at" TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, "name" VARCHAR(50) DEFAULT 'O''Brien', "active" BOOLEAN NOT NULL DEFAULT TRUE)`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got := renderOne(t, SQLServer, exprs[0]); !strings.Contains(got, "DEFAULT GETDATE()") || !strings.Contains(got, "DEFAULT 1") {
		t.Errorf("Expected GETDATE() and bit default on sqlserver, got %q", got)
	}
}

// TestTimeLiteralRendersUTC verifies time values normalize to UTC.
func TestTimeLiteralRendersUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*3600)
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, loc)
	exprs := forward(t, func(s *SequenceBuilder) {
		s.Insert("events").Row(map[string]any{"at": at}).Build()
	})
	got := renderOne(t, Postgres, exprs[0])
	want := `INSERT INTO "events" ("at") VALUES ('2024-03-01 10:30:00')`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestAlterColumnStyles verifies each dialect's alter-column statement shape.
func TestAlterColumnStyles(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.AlterTable("users").AlterColumn("name").AsString(200).NotNullable().Build()
	})
	pg, err := NewGenerator(Postgres)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	stmts, err := pg.Render(exprs[0])
	if err != nil {
		t.Fatalf("Unexpected render error: %v", err)
	}
	wantPg := []string{
		`ALTER TABLE "users" ALTER COLUMN "name" TYPE VARCHAR(200)`,
		`ALTER TABLE "users" ALTER COLUMN "name" SET NOT NULL`,
	}
	if len(stmts) != len(wantPg) {
		t.Fatalf("Expected %d statements, got %v", len(wantPg), stmts)
	}
	for i := range wantPg {
		if stmts[i] != wantPg[i] {
			t.Errorf("Expected %q, got %q", wantPg[i], stmts[i])
		}
	}

	if got := renderOne(t, SQLServer, exprs[0]); got != "ALTER TABLE [users] ALTER COLUMN [name] NVARCHAR(200) NOT NULL" {
		t.Errorf("Unexpected sqlserver alter: %q", got)
	}
	if got := renderOne(t, MySQL, exprs[0]); got != "ALTER TABLE `users` MODIFY COLUMN `name` VARCHAR(200) NOT NULL" {
		t.Errorf("Unexpected mysql alter: %q", got)
	}
	if _, err := mustGen(t, SQLite).Render(exprs[0]); err == nil {
		t.Errorf("Expected sqlite to reject alter column")
	}
}

func mustGen(t *testing.T, tag DialectTag) *Generator {
	t.Helper()
	gen, err := NewGenerator(tag)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return gen
}

// TestForeignKeyActions verifies referential actions render after the
// constraint body.
func TestForeignKeyActions(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.CreateForeignKey("fk_orders_users").
			From("orders", "user_id").
			To("users", "id").
			OnDelete(Cascade).
			OnUpdate(SetNull).
			Build()
	})
	got := renderOne(t, Postgres, exprs[0])
	want := `ALTER TABLE "orders" ADD CONSTRAINT "fk_orders_users" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE ON UPDATE SET NULL`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if _, err := mustGen(t, SQLite).Render(exprs[0]); err == nil {
		t.Errorf("Expected sqlite to reject adding a foreign key")
	}
}

// TestRenamesPerDialect verifies the rename forms, including sp_rename.
func TestRenamesPerDialect(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.RenameTable("old_users", "users").Build()
		s.RenameColumn("users", "fullname", "name").Build()
	})
	if got := renderOne(t, SQLServer, exprs[0]); got != "EXEC sp_rename 'old_users', 'users'" {
		t.Errorf("Unexpected sqlserver table rename: %q", got)
	}
	if got := renderOne(t, SQLServer, exprs[1]); got != "EXEC sp_rename 'users.fullname', 'name', 'COLUMN'" {
		t.Errorf("Unexpected sqlserver column rename: %q", got)
	}
	if got := renderOne(t, Postgres, exprs[0]); got != `ALTER TABLE "old_users" RENAME TO "users"` {
		t.Errorf("Unexpected postgres table rename: %q", got)
	}
	if got := renderOne(t, MySQL, exprs[0]); got != "RENAME TABLE `old_users` TO `users`" {
		t.Errorf("Unexpected mysql table rename: %q", got)
	}
}

// TestSQLiteRejectsSchemasAndGuidToken verifies sqlite's render-time limits.
func TestSQLiteRejectsSchemasAndGuidToken(t *testing.T) {
	gen := mustGen(t, SQLite)

	schemaTable := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("t").InSchema("app").WithColumn("id").AsInt32().Build()
	})
	if _, err := gen.Render(schemaTable[0]); err == nil {
		t.Errorf("Expected schema-qualified name to fail on sqlite")
	}

	guidDefault := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("t").WithColumn("id").AsGuid().WithDefault(NewGuid).Build()
	})
	if _, err := gen.Render(guidDefault[0]); err == nil {
		t.Errorf("Expected NewGuid default to fail on sqlite")
	}
}

// TestUnsupportedTypeError verifies the error names the dialect, column, and
// type.
func TestUnsupportedTypeError(t *testing.T) {
	e := &AddColumnExpr{
		Table:  "t",
		Column: ColumnDefinition{Name: "c", Type: ColumnType{Kind: TypeKind(99)}, Nullable: true},
	}
	_, err := mustGen(t, Postgres).Render(e)
	var unsupported *UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedTypeError, got %v", err)
	}
	if unsupported.Dialect != Postgres || unsupported.Column != "c" {
		t.Errorf("Error lacks context: %+v", unsupported)
	}
}

// TestConditionalRendersOnlyWhenApplicable verifies gate behavior at the
// generator level.
func TestConditionalRendersOnlyWhenApplicable(t *testing.T) {
	u := NewUnit(1, "gated")
	seq := u.Up()
	if err := seq.IfDatabase(Postgres).ExecuteSql("SELECT 1").Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	gate := u.Forward()[0]

	if stmts, err := mustGen(t, Postgres).Render(gate); err != nil || len(stmts) != 1 {
		t.Errorf("Expected 1 statement on postgres, got %v (%v)", stmts, err)
	}
	if stmts, err := mustGen(t, MySQL).Render(gate); err != nil || len(stmts) != 0 {
		t.Errorf("Expected no statements on mysql, got %v (%v)", stmts, err)
	}
}

// TestNullConditionRendersIsNull verifies nil filter values use IS NULL.
func TestNullConditionRendersIsNull(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.Delete("users").Where(map[string]any{"email": nil}).Build()
	})
	got := renderOne(t, Postgres, exprs[0])
	want := `DELETE FROM "users" WHERE "email" IS NULL`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestMySQLRejectsCustomIdentityIncrement verifies the render-time guard.
func TestMySQLRejectsCustomIdentityIncrement(t *testing.T) {
	exprs := forward(t, func(s *SequenceBuilder) {
		s.CreateTable("t").WithColumn("id").AsInt64().IdentitySeeded(100, 5).PrimaryKey().Build()
	})
	if _, err := mustGen(t, MySQL).Render(exprs[0]); err == nil {
		t.Errorf("Expected mysql to reject identity increment 5")
	}
	got := renderOne(t, SQLServer, exprs[0])
	if !strings.Contains(got, "IDENTITY(100,5)") {
		t.Errorf("Expected IDENTITY(100,5) on sqlserver, got %q", got)
	}
}

// TestParseDialectAliases verifies the accepted provider spellings.
func TestParseDialectAliases(t *testing.T) {
	cases := map[string]DialectTag{
		"pg":         Postgres,
		"postgresql": Postgres,
		"postgres":   Postgres,
		"mssql":      SQLServer,
		"sqlserver":  SQLServer,
		"mariadb":    MySQL,
		"mysql":      MySQL,
		"sqlite3":    SQLite,
		"sqlite":     SQLite,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil {
			t.Errorf("ParseDialect(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDialect(%q): expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Errorf("Expected unknown provider to be rejected")
	}
}
