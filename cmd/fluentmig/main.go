// Command fluentmig is a reference harness for the fluentmig library. Real
// applications compile their own binary around the cli package so their
// migrations travel with the code; this one carries a small demo schema and
// is mainly useful for trying the tool against a scratch database.
package main

import (
	"fmt"
	"os"

	"github.com/fluentmig/fluentmig"
	"github.com/fluentmig/fluentmig/cli"
)

func registry() *fluentmig.Registry {
	reg := fluentmig.NewRegistry()

	users := fluentmig.NewUnit(1, "create users")
	users.Up().CreateTable("users").
		WithColumn("id").AsInt32().NotNullable().Identity().PrimaryKey().
		WithColumn("name").AsString(100).NotNullable().
		WithColumn("email").AsString(255).Nullable().
		Build()
	users.Down().DeleteTable("users").Build()
	reg.MustRegister(users)

	idx := fluentmig.NewUnit(2, "index users email")
	idx.Up().CreateIndex("ix_users_email", "users").OnColumn("email").Build()
	idx.Down().DeleteIndex("ix_users_email", "users").Build()
	reg.MustRegister(idx)

	seed := fluentmig.NewUnit(3, "seed admin user")
	seed.Up().Insert("users").Row(map[string]any{
		"name":  "admin",
		"email": "admin@example.com",
	}).Build()
	seed.Down().Delete("users").Where(map[string]any{"name": "admin"}).Build()
	reg.MustRegister(seed)

	return reg
}

func main() {
	if err := cli.New(registry()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fluentmig:", err)
		os.Exit(1)
	}
}
