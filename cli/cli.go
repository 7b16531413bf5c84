// Package cli builds the fluentmig command tree over an application's
// migration registry. Discovery is explicit registration, so the binary that
// knows the migrations is the binary that runs them: applications mount this
// package from their own main.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fluentmig/fluentmig"
)

type options struct {
	conn        string
	provider    string
	ledgerTable string
	envFile     string
}

// New returns the root command wired over the given registry.
func New(reg *fluentmig.Registry) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "fluentmig",
		Short:         "Apply code-first schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil {
					return fmt.Errorf("loading env file: %w", err)
				}
			}
			if opts.conn == "" {
				opts.conn = os.Getenv("DATABASE_URL")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.conn, "conn", "", "connection string (defaults to DATABASE_URL)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "database provider: postgres, sqlserver, mysql, sqlite")
	root.PersistentFlags().StringVar(&opts.ledgerTable, "ledger-table", fluentmig.DefaultLedgerTable, "name of the version-ledger table")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "env file to load before connecting")

	root.AddCommand(newUpCmd(reg, opts))
	root.AddCommand(newDownCmd(reg, opts))
	root.AddCommand(newPreviewCmd(reg, opts))
	root.AddCommand(newValidateCmd(reg, opts))
	root.AddCommand(newStatusCmd(reg, opts))
	root.AddCommand(newNewCmd())
	return root
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func dialect(opts *options) (fluentmig.DialectTag, error) {
	if opts.provider == "" {
		return "", fmt.Errorf("--provider is required")
	}
	return fluentmig.ParseDialect(opts.provider)
}

// connect opens the database for the selected provider. SQL Server rendering
// is fully supported, but no SQL Server driver is linked into this binary,
// so live runs against it need an embedding application that registers one.
func connect(tag fluentmig.DialectTag, conn string) (*sql.DB, error) {
	if conn == "" {
		return nil, fmt.Errorf("a connection string is required (--conn or DATABASE_URL)")
	}
	var driver string
	switch tag {
	case fluentmig.Postgres:
		driver = "pgx"
	case fluentmig.MySQL:
		driver = "mysql"
	case fluentmig.SQLite:
		driver = "sqlite3"
	case fluentmig.SQLServer:
		return nil, fmt.Errorf("no SQL Server driver is linked into this binary")
	}
	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot reach database: %w", err)
	}
	return db, nil
}

func newRunner(reg *fluentmig.Registry, opts *options, db *sql.DB) (*fluentmig.Runner, error) {
	var exec fluentmig.Executor
	if db != nil {
		exec = fluentmig.NewDBExecutor(db)
	}
	tag, err := dialect(opts)
	if err != nil {
		return nil, err
	}
	return fluentmig.NewRunner(fluentmig.Config{
		Dialect:     tag,
		LedgerTable: opts.ledgerTable,
		Logger:      logger(),
	}, reg, exec)
}

func parseTarget(s string) (int64, error) {
	if s == "" || s == "max" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func printPreview(cmd *cobra.Command, previews []fluentmig.UnitPreview) {
	for _, p := range previews {
		fmt.Fprintf(cmd.OutOrStdout(), "-- migration %d: %s\n", p.Version, p.Name)
		for _, s := range p.Statements {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", s)
		}
		for _, s := range p.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "-- skipped: %s\n", s)
		}
	}
}

func newUpCmd(reg *fluentmig.Registry, opts *options) *cobra.Command {
	var target string
	var preview bool
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations in ascending version order",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(target)
			if err != nil {
				return fmt.Errorf("invalid target version: %w", err)
			}
			tag, err := dialect(opts)
			if err != nil {
				return err
			}
			db, err := connect(tag, opts.conn)
			if err != nil {
				return err
			}
			defer db.Close()
			runner, err := newRunner(reg, opts, db)
			if err != nil {
				return err
			}
			if preview {
				previews, err := runner.Preview(cmd.Context(), fluentmig.Up, t)
				if err != nil {
					return err
				}
				printPreview(cmd, previews)
				return nil
			}
			report, err := runner.Up(cmd.Context(), t)
			if report != nil {
				for _, a := range report.Applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d: %s\n", a.Version, a.Name)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "highest version to apply (default: all)")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the SQL that would run without executing it")
	return cmd
}

func newDownCmd(reg *fluentmig.Registry, opts *options) *cobra.Command {
	var target string
	var preview bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations in descending version order",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(target)
			if err != nil {
				return fmt.Errorf("invalid target version: %w", err)
			}
			tag, err := dialect(opts)
			if err != nil {
				return err
			}
			db, err := connect(tag, opts.conn)
			if err != nil {
				return err
			}
			defer db.Close()
			runner, err := newRunner(reg, opts, db)
			if err != nil {
				return err
			}
			if preview {
				previews, err := runner.Preview(cmd.Context(), fluentmig.Down, t)
				if err != nil {
					return err
				}
				printPreview(cmd, previews)
				return nil
			}
			report, err := runner.Down(cmd.Context(), t)
			if report != nil {
				for _, a := range report.Applied {
					fmt.Fprintf(cmd.OutOrStdout(), "reverted %d: %s\n", a.Version, a.Name)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "lowest version to keep (default: revert everything)")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the SQL that would run without executing it")
	return cmd
}

func newPreviewCmd(reg *fluentmig.Registry, opts *options) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:       "preview [up|down]",
		Short:     "Print the SQL a run would execute, without executing it",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := fluentmig.Up
			if len(args) == 1 && args[0] == "down" {
				dir = fluentmig.Down
			}
			t, err := parseTarget(target)
			if err != nil {
				return fmt.Errorf("invalid target version: %w", err)
			}
			tag, err := dialect(opts)
			if err != nil {
				return err
			}
			db, err := connect(tag, opts.conn)
			if err != nil {
				return err
			}
			defer db.Close()
			runner, err := newRunner(reg, opts, db)
			if err != nil {
				return err
			}
			previews, err := runner.Preview(cmd.Context(), dir, t)
			if err != nil {
				return err
			}
			printPreview(cmd, previews)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "version bound for the previewed run")
	return cmd
}

func newValidateCmd(reg *fluentmig.Registry, opts *options) *cobra.Command {
	var noConnection bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every migration's definitions and rendered SQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.provider == "" {
				// No provider selected: check every dialect.
				if err := fluentmig.ValidateRegistry(reg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d migrations valid under all dialects\n", reg.Len())
				return nil
			}
			tag, err := dialect(opts)
			if err != nil {
				return err
			}
			if err := fluentmig.ValidateRegistry(reg, tag); err != nil {
				return err
			}
			if !noConnection {
				db, err := connect(tag, opts.conn)
				if err != nil {
					return err
				}
				db.Close()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migrations valid under %s\n", reg.Len(), tag)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noConnection, "no-connection", false, "skip the connectivity check")
	return cmd
}

func newStatusCmd(reg *fluentmig.Registry, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List registered migrations and their applied state",
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := dialect(opts)
			if err != nil {
				return err
			}
			db, err := connect(tag, opts.conn)
			if err != nil {
				return err
			}
			defer db.Close()
			runner, err := newRunner(reg, opts, db)
			if err != nil {
				return err
			}
			statuses, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				if s.Applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied  %d  %s  (%s)\n",
						s.Version, s.Name, s.AppliedAt.Format("2006-01-02 15:04:05"))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "pending  %d  %s\n", s.Version, s.Name)
				}
			}
			return nil
		},
	}
}

func newNewCmd() *cobra.Command {
	var dir, pkg, mode string
	cmd := &cobra.Command{
		Use:   "new <description>",
		Short: "Create a new migration stub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := fluentmig.CreateMigration(fluentmig.ScaffoldConfig{
				Dir:     dir,
				Package: pkg,
				Mode:    mode,
			}, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory for migration source files")
	cmd.Flags().StringVar(&pkg, "package", "", "package name for the stub (default: directory name)")
	cmd.Flags().StringVar(&mode, "mode", "int", `version numbering: "int" or "timestamp"`)
	return cmd
}
