package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fluxproc/internal/driver"
	"fluxproc/internal/export"
	"fluxproc/internal/exporter"
	"fluxproc/internal/procedure"
	"fluxproc/internal/record"
	"fluxproc/internal/storage"
)

func newQueryCmd(e *env) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "query <procedure>",
		Short: "Run a procedure and print its result set",
		Example: `  fluxproc query sales.list_orders -p customer=42 -t customer=Int32
  fluxproc query report -p since=2024-01-01 -t since=Date -f json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(f.params, f.types)
			if err != nil {
				return err
			}
			format, err := exporter.ParseFormat(f.format)
			if err != nil {
				return err
			}

			return e.withConnector(cmd.Context(), func(ctx context.Context, c driver.Connector) error {
				runner := procedure.NewRunner(c, e.log)
				var table *procedure.Table
				err := e.inTransaction(ctx, c, &f, func() error {
					var err error
					table, err = procedure.QueryTable(ctx, runner, args[0], params)
					return err
				})
				if err != nil {
					return err
				}

				enc, err := exporter.New(format, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				_, err = exporter.Encode(ctx, enc, table.Columns, table.Rows)
				return err
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newScalarCmd(e *env) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:     "scalar <procedure>",
		Short:   "Run a procedure and print its return value",
		Example: `  fluxproc scalar add_customer -p name=Ada -p born=1815-12-10 -t born=Date --tx`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(f.params, f.types)
			if err != nil {
				return err
			}

			return e.withConnector(cmd.Context(), func(ctx context.Context, c driver.Connector) error {
				runner := procedure.NewRunner(c, e.log)
				var result string
				err := e.inTransaction(ctx, c, &f, func() error {
					var err error
					result, err = procedure.Exec[string](ctx, runner, args[0], params, record.ToString)
					return err
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
				return err
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var f runFlags
	var compress bool
	cmd := &cobra.Command{
		Use:   "export <procedure>",
		Short: "Run a procedure and store its result set as a document",
		Long: `Run a procedure and store its result set in the configured storage
(FLUXPROC_EXPORT__STORAGE=local|s3). The document location is printed.`,
		Example: `  fluxproc export sales_by_region -p year=2024 -t year=Int32 -f excel --gzip`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(f.params, f.types)
			if err != nil {
				return err
			}
			name := f.format
			if name == "" {
				name = e.cfg.Export.Format
			}
			format, err := exporter.ParseFormat(name)
			if err != nil {
				return err
			}
			store, err := e.storage()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("gzip") {
				compress = e.cfg.Export.Compression
			}

			return e.withConnector(cmd.Context(), func(ctx context.Context, c driver.Connector) error {
				runner := export.NewRunner(procedure.NewRunner(c, e.log), store, compress, e.log)
				job := export.NewJob(args[0], params, format)
				err := e.inTransaction(ctx, c, &f, func() error {
					return runner.Run(ctx, job)
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), job.Location)
				return err
			})
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&compress, "gzip", false, "gzip the document (default from config)")
	return cmd
}

func (e *env) storage() (storage.Provider, error) {
	cfg := e.cfg.Export
	if cfg.Storage == "s3" {
		client := storage.NewS3Client(storage.S3Options{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		return storage.NewS3Provider(client, cfg.S3.Bucket, e.log), nil
	}
	local, err := storage.NewLocalProvider(cfg.LocalPath, e.log)
	if err != nil {
		return nil, err
	}
	return local, nil
}
