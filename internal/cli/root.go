// Package cli implements the fluxproc command line.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fluxproc/internal/config"
	"fluxproc/internal/driver"
	"fluxproc/internal/logger"
)

var version = "dev"

// SetVersion overrides the version reported by `fluxproc version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// env carries what every subcommand needs. The hooks are replaced in tests.
type env struct {
	loadConfig    func() (*config.Config, error)
	openConnector func(cfg config.DatabaseConfig, log zerolog.Logger) (driver.Connector, error)

	cfg *config.Config
	log zerolog.Logger
}

// runFlags are shared by query, scalar and export.
type runFlags struct {
	params    []string
	types     []string
	tx        bool
	isolation string
	rollback  bool
	format    string
}

// NewRootCmd builds the top-level `fluxproc` command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{
		loadConfig:    config.Load,
		openConnector: openConnector,
	})
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "fluxproc",
		Short: "fluxproc runs stored procedures and exports their results",
		Long: `fluxproc runs stored procedures against MySQL, PostgreSQL or SQL Server.

Configuration is read from FLUXPROC_* environment variables (and .env), e.g.
  FLUXPROC_DATABASE__DIALECT=mysql
  FLUXPROC_DATABASE__DSN="user:pass@tcp(localhost:3306)/app"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
			return nil
		},
	}
	root.AddCommand(newQueryCmd(e))
	root.AddCommand(newScalarCmd(e))
	root.AddCommand(newExportCmd(e))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}

func (f *runFlags) register(cmd *cobra.Command, withFormat bool) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&f.params, "param", "p", nil, `procedure parameter as name=value (repeatable, \N for NULL)`)
	fs.StringArrayVarP(&f.types, "type", "t", nil, "declared parameter type as name=DBType (repeatable)")
	fs.BoolVar(&f.tx, "tx", false, "run inside a transaction")
	fs.StringVar(&f.isolation, "isolation", "", "transaction isolation level (default from config)")
	fs.BoolVar(&f.rollback, "rollback", false, "roll the transaction back instead of committing (implies --tx)")
	if withFormat {
		fs.StringVarP(&f.format, "format", "f", "", "output format: csv, json, excel, pdf")
	}
}

// openConnector opens the configured dialect and applies pool settings.
func openConnector(cfg config.DatabaseConfig, log zerolog.Logger) (driver.Connector, error) {
	c, err := driver.Open(cfg.Dialect, cfg.DSN, nil, log)
	if err != nil {
		return nil, err
	}
	db := c.DB()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return c, nil
}

// withConnector opens a connector for the duration of fn, bounded by the
// configured timeout.
func (e *env) withConnector(ctx context.Context, fn func(context.Context, driver.Connector) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Database.Timeout)
	defer cancel()

	c, err := e.openConnector(e.cfg.Database, e.log)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.cfg.Database.Dialect, err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			e.log.Warn().Err(err).Msg("close connector")
		}
	}()
	return fn(ctx, c)
}

// inTransaction runs fn, wrapped in a transaction when the flags ask for one.
func (e *env) inTransaction(ctx context.Context, c driver.Connector, f *runFlags, fn func() error) error {
	if !f.tx && !f.rollback {
		return fn()
	}

	name := f.isolation
	if name == "" {
		name = e.cfg.Database.Isolation
	}
	level, err := driver.ParseIsolation(name)
	if err != nil {
		return err
	}

	if err := c.BeginTransaction(ctx, level); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := c.RollbackTransaction(); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if f.rollback {
		e.log.Info().Msg("rolling back as requested")
		return c.RollbackTransaction()
	}
	return c.CommitTransaction()
}
