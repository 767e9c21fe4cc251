// Package procedure executes stored procedures through a driver.Connector.
//
// Query maps every result row through a RowReader, Exec converts the
// procedure's return value through a ResultConverter and QueryTable captures
// an untyped result set. Each call creates one command, executes it exactly
// once and releases the command and any ad-hoc connection before returning.
package procedure

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"fluxproc/internal/driver"
)

// Runner executes procedures against a connector. Like the connector it
// wraps, a Runner is not safe for concurrent use.
type Runner struct {
	connector driver.Connector
	log       zerolog.Logger
}

// NewRunner returns a Runner over connector.
func NewRunner(connector driver.Connector, logger zerolog.Logger) *Runner {
	return &Runner{
		connector: connector,
		log:       logger.With().Str("component", "procedure").Logger(),
	}
}

// Connector returns the wrapped connector.
func (r *Runner) Connector() driver.Connector {
	return r.connector
}

// IsTransactionInProgress reports whether the connector holds an open transaction.
func (r *Runner) IsTransactionInProgress() bool {
	return r.connector.IsTransactionInProgress()
}

// BeginTransaction starts a transaction on the connector.
func (r *Runner) BeginTransaction(ctx context.Context, level sql.IsolationLevel) error {
	return r.connector.BeginTransaction(ctx, level)
}

// CommitTransaction commits the connector's transaction.
func (r *Runner) CommitTransaction() error {
	return r.connector.CommitTransaction()
}

// RollbackTransaction rolls back the connector's transaction.
func (r *Runner) RollbackTransaction() error {
	return r.connector.RollbackTransaction()
}

// InTransaction runs fn inside a transaction, committing when fn succeeds and
// rolling back otherwise.
func (r *Runner) InTransaction(ctx context.Context, level sql.IsolationLevel, fn func(context.Context) error) error {
	if err := r.BeginTransaction(ctx, level); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := r.RollbackTransaction(); rbErr != nil {
			r.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return r.CommitTransaction()
}
