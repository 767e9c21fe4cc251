// Package export runs a stored procedure and stores its result set as a
// document (CSV, JSON Lines, Excel or PDF), optionally gzip-compressed.
package export

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"fluxproc/internal/exporter"
	"fluxproc/internal/procedure"
	"fluxproc/internal/storage"
)

// Runner executes export jobs one at a time.
type Runner struct {
	procs    *procedure.Runner
	store    storage.Provider
	compress bool
	log      zerolog.Logger
}

// NewRunner returns a Runner that stores documents in store, gzipped when
// compress is set.
func NewRunner(procs *procedure.Runner, store storage.Provider, compress bool, logger zerolog.Logger) *Runner {
	return &Runner{
		procs:    procs,
		store:    store,
		compress: compress,
		log:      logger.With().Str("component", "export").Logger(),
	}
}

// Run executes job, updating its status, timestamps, stats and storage
// location. The returned error is also recorded in job.Err.
func (r *Runner) Run(ctx context.Context, job *Job) error {
	job.Started = time.Now()
	job.Status = StatusProcessing
	log := r.log.With().Str("job_id", job.ID).Str("procedure", job.Procedure).Logger()
	log.Info().Dur("wait", job.Started.Sub(job.Submitted)).Msg("processing job")

	if err := r.execute(ctx, job); err != nil {
		job.Status = StatusFailed
		job.Err = err
		job.Finished = time.Now()
		log.Error().Err(err).Msg("job failed")
		return err
	}

	job.Status = StatusCompleted
	job.Finished = time.Now()
	job.Location = r.store.Location(job.Key)
	log.Info().
		Int64("rows", job.Stats.Rows).
		Dur("total", job.Finished.Sub(job.Started)).
		Str("location", job.Location).
		Msg("job completed")
	return nil
}

func (r *Runner) execute(ctx context.Context, job *Job) error {
	format, err := exporter.ParseFormat(string(job.Format))
	if err != nil {
		return err
	}
	job.Format = format

	table, err := procedure.QueryTable(ctx, r.procs, job.Procedure, job.Params)
	if err != nil {
		return fmt.Errorf("run procedure: %w", err)
	}

	job.Key = fmt.Sprintf("exports/%s.%s", job.ID, job.Format.Extension())
	if r.compress {
		job.Key += ".gz"
	}

	sink, err := r.store.Create(ctx, job.Key)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	out := io.Writer(sink)
	var gz *gzip.Writer
	if r.compress {
		gz = gzip.NewWriter(sink)
		out = gz
	}

	enc, err := exporter.New(job.Format, out)
	if err != nil {
		storage.Abort(sink, err)
		return err
	}
	stats, err := exporter.Encode(ctx, enc, table.Columns, table.Rows)
	if err != nil {
		storage.Abort(sink, err)
		return fmt.Errorf("encode: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			storage.Abort(sink, err)
			return fmt.Errorf("gzip close: %w", err)
		}
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	job.Stats = stats
	return nil
}
