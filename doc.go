// SPDX-License-Identifier: MIT

// Package fluentmig is a code-first schema migration engine for Go
// applications.  Migrations are authored as versioned units with fluent
// builders, rendered into provider-specific SQL by a dialect layer
// (PostgreSQL, SQL Server, MySQL, SQLite), and applied in strict version
// order with state tracked in a version-ledger table.
//
// # Quick start
//
//	reg := fluentmig.NewRegistry()
//
//	u := fluentmig.NewUnit(1, "create users")
//	u.Up().CreateTable("users").
//	    WithColumn("id").AsInt64().Identity().PrimaryKey().
//	    WithColumn("name").AsString(100).NotNullable().
//	    Build()
//	u.Down().DeleteTable("users").Build()
//	reg.MustRegister(u)
//
//	db, _ := sql.Open("pgx", os.Getenv("DATABASE_URL"))
//	runner, _ := fluentmig.NewRunner(fluentmig.Config{Dialect: fluentmig.Postgres},
//	    reg, fluentmig.NewDBExecutor(db))
//	report, err := runner.Up(context.Background(), 0)
//
// # Model
//
// Builders emit immutable expressions into their unit's forward or backward
// sequence; nothing touches the database until the runner executes a planned
// run. Each unit applies inside its own transaction together with its ledger
// write, so a failure rolls the whole unit back and later units are never
// attempted. Planning reads only the ledger, never the live schema.
//
// Expressions can be restricted to specific databases:
//
//	u.Up().IfDatabase(fluentmig.Postgres).
//	    ExecuteSql("CREATE EXTENSION IF NOT EXISTS pgcrypto").Build()
//
// Under any other dialect the gated group renders no SQL and is reported as
// skipped.
//
// A reference CLI lives under cmd/fluentmig; embedding applications usually
// mount the cli package over their own registry instead.
package fluentmig
