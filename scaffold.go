package fluentmig

import (
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ScaffoldConfig controls migration stub generation.
type ScaffoldConfig struct {
	// Dir is the directory migration source files live in.
	Dir string

	// Package is the Go package name written into the stub. Defaults to the
	// directory's base name.
	Package string

	// Mode is the version numbering scheme: "int" (default) increments the
	// highest existing number, "timestamp" uses the current UTC time as
	// YYYYMMDDHHMMSS.
	Mode string
}

var migrationFileRe = regexp.MustCompile(`^(\d+)_.+\.go$`)

const scaffoldTemplate = `package %s

import "github.com/fluentmig/fluentmig"

func init() {
	u := fluentmig.NewUnit(%d, %q)

	up := u.Up()
	_ = up // build the forward expressions here

	down := u.Down()
	_ = down // build the backward expressions here

	Registry.MustRegister(u)
}
`

const registryTemplate = `package %s

import "github.com/fluentmig/fluentmig"

// Registry collects this package's migration units. Hand it to a Runner or
// to cli.New from your main package.
var Registry = fluentmig.NewRegistry()
`

// CreateMigration writes a new migration stub into cfg.Dir and returns its
// path. The description is kebab-cased for the filename and kept verbatim as
// the unit name. The first call into a directory also writes registry.go
// declaring the package Registry the stubs register against.
func CreateMigration(cfg ScaffoldConfig, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("migration description is required")
	}
	if cfg.Dir == "" {
		cfg.Dir = "migrations"
	}
	if cfg.Package == "" {
		cfg.Package = filepath.Base(cfg.Dir)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return "", err
	}
	if err := ensureRegistryFile(cfg); err != nil {
		return "", err
	}

	var version int64
	if strings.ToLower(cfg.Mode) == "timestamp" {
		v, err := strconv.ParseInt(time.Now().UTC().Format("20060102150405"), 10, 64)
		if err != nil {
			return "", err
		}
		version = v
	} else {
		max, err := highestVersion(cfg.Dir)
		if err != nil {
			return "", err
		}
		version = max + 1
	}

	name := fmt.Sprintf("%d_%s.go", version, kebabCase(description))
	path := filepath.Join(cfg.Dir, name)
	src := fmt.Sprintf(scaffoldTemplate, cfg.Package, version, description)
	formatted, err := format.Source([]byte(src))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ensureRegistryFile writes registry.go into cfg.Dir unless the file already
// exists. Existing files are never touched so user edits survive.
func ensureRegistryFile(cfg ScaffoldConfig) error {
	path := filepath.Join(cfg.Dir, "registry.go")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	src, err := format.Source([]byte(fmt.Sprintf(registryTemplate, cfg.Package)))
	if err != nil {
		return err
	}
	return os.WriteFile(path, src, 0o644)
}

// highestVersion scans existing migration files for the largest leading
// version number.
func highestVersion(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, entry := range entries {
		m := migrationFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max, nil
}

// kebabCase converts a description to a lowercase hyphenated filename part.
func kebabCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	re := regexp.MustCompile("[^a-z0-9]+")
	s = re.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
