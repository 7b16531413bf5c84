package fluentmig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestCreateMigrationWritesStub verifies the generated file name, package,
// and unit wiring.
func TestCreateMigrationWritesStub(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateMigration(ScaffoldConfig{Dir: dir, Package: "migrations"}, "Create Users Table")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if filepath.Base(path) != "1_create-users-table.go" {
		t.Errorf("Unexpected file name %q", filepath.Base(path))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{
		"package migrations",
		`fluentmig.NewUnit(1, "Create Users Table")`,
		"Registry.MustRegister(u)",
	} {
		if !strings.Contains(string(src), want) {
			t.Errorf("Expected stub to contain %q", want)
		}
	}
}

// TestCreateMigrationWritesRegistryOnce verifies the first scaffold declares
// the package Registry the stub registers against, and later scaffolds leave
// an edited registry.go alone.
func TestCreateMigrationWritesRegistryOnce(t *testing.T) {
	dir := t.TempDir()
	if _, err := CreateMigration(ScaffoldConfig{Dir: dir, Package: "migrations"}, "first"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	regPath := filepath.Join(dir, "registry.go")
	src, err := os.ReadFile(regPath)
	if err != nil {
		t.Fatalf("Expected registry.go alongside the stub: %v", err)
	}
	for _, want := range []string{
		"package migrations",
		"var Registry = fluentmig.NewRegistry()",
	} {
		if !strings.Contains(string(src), want) {
			t.Errorf("Expected registry.go to contain %q", want)
		}
	}

	edited := []byte("package migrations\n\n// custom\n")
	if err := os.WriteFile(regPath, edited, 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := CreateMigration(ScaffoldConfig{Dir: dir, Package: "migrations"}, "second"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	after, err := os.ReadFile(regPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(after) != string(edited) {
		t.Errorf("Expected an existing registry.go left untouched")
	}
}

// TestCreateMigrationIncrementsVersion verifies the int mode continues from
// the highest existing file.
func TestCreateMigrationIncrementsVersion(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "41_previous-change.go")
	if err := os.WriteFile(seed, []byte("package migrations\n"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	path, err := CreateMigration(ScaffoldConfig{Dir: dir}, "next change")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if filepath.Base(path) != "42_next-change.go" {
		t.Errorf("Expected version 42, got %q", filepath.Base(path))
	}
}

// TestCreateMigrationTimestampMode verifies the 14-digit timestamp scheme.
func TestCreateMigrationTimestampMode(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateMigration(ScaffoldConfig{Dir: dir, Mode: "timestamp"}, "add index")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	base := filepath.Base(path)
	version := strings.SplitN(base, "_", 2)[0]
	if len(version) != 14 {
		t.Errorf("Expected a 14-digit timestamp version, got %q", version)
	}
}

// TestCreateMigrationRejectsBlankDescription verifies the guard.
func TestCreateMigrationRejectsBlankDescription(t *testing.T) {
	if _, err := CreateMigration(ScaffoldConfig{Dir: t.TempDir()}, "   "); err == nil {
		t.Errorf("Expected blank description to be rejected")
	}
}

// TestKebabCase verifies filename normalization.
func TestKebabCase(t *testing.T) {
	cases := map[string]string{
		"Create Users Table": "create-users-table",
		"  spaced  out  ":    "spaced-out",
		"v2: add FK's":       "v2-add-fk-s",
	}
	for in, want := range cases {
		if got := kebabCase(in); got != want {
			t.Errorf("kebabCase(%q): expected %q, got %q", in, want, got)
		}
	}
}
