package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fluentmig/fluentmig"
)

func demoRegistry(t *testing.T) *fluentmig.Registry {
	t.Helper()
	reg := fluentmig.NewRegistry()
	u := fluentmig.NewUnit(1, "create things")
	if err := u.Up().CreateTable("things").
		WithColumn("id").AsInt64().NotNullable().Identity().PrimaryKey().
		WithColumn("label").AsString(80).NotNullable().
		Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := u.Down().DeleteTable("things").Build(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reg.MustRegister(u)
	return reg
}

// TestParseTarget verifies the target flag spellings.
func TestParseTarget(t *testing.T) {
	for _, in := range []string{"", "max"} {
		got, err := parseTarget(in)
		if err != nil || got != 0 {
			t.Errorf("parseTarget(%q): expected 0, got %d (%v)", in, got, err)
		}
	}
	got, err := parseTarget("42")
	if err != nil || got != 42 {
		t.Errorf("parseTarget(42): expected 42, got %d (%v)", got, err)
	}
	if _, err := parseTarget("not-a-number"); err == nil {
		t.Errorf("Expected parse error")
	}
}

// TestValidateOfflineAllDialects verifies validate needs no database when no
// provider is selected.
func TestValidateOfflineAllDialects(t *testing.T) {
	cmd := New(demoRegistry(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "valid under all dialects") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

// TestValidateNoConnectionWithProvider verifies the per-dialect offline path.
func TestValidateNoConnectionWithProvider(t *testing.T) {
	cmd := New(demoRegistry(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate", "--provider", "sqlserver", "--no-connection"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "valid under sqlserver") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

// TestNewCommandWritesStub verifies the scaffolding subcommand.
func TestNewCommandWritesStub(t *testing.T) {
	dir := t.TempDir()
	cmd := New(demoRegistry(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"new", "add labels index", "--dir", dir, "--package", "migrations"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := filepath.Join(dir, "1_add-labels-index.go")
	if !strings.Contains(out.String(), want) {
		t.Errorf("Expected output to name %q, got %q", want, out.String())
	}
}

// TestUpRequiresProvider verifies the flag guard before any connection
// attempt.
func TestUpRequiresProvider(t *testing.T) {
	cmd := New(demoRegistry(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"up"})
	if err := cmd.Execute(); err == nil {
		t.Errorf("Expected an error without --provider")
	}
}
