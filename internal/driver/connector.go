package driver

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"fluxproc/internal/errs"
	"fluxproc/internal/resolver"
)

// SQLConnector implements Connector over a database/sql pool.
type SQLConnector struct {
	db        *sql.DB
	dialect   Dialect
	resolvers *resolver.Registry
	log       zerolog.Logger

	state  State
	conn   *sql.Conn
	tx     *sql.Tx
	txConn *txConnection
}

var _ Connector = (*SQLConnector)(nil)

// Open opens a connector for the named dialect. A nil registry selects the
// built-in resolvers.
func Open(dialect, dsn string, resolvers *resolver.Registry, logger zerolog.Logger) (*SQLConnector, error) {
	d, err := LookupDialect(dialect)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, errs.Argument("dsn", "connection string must not be empty")
	}
	db, err := d.Open(dsn, logger)
	if err != nil {
		return nil, err
	}
	return NewSQLConnector(db, d, resolvers, logger), nil
}

// NewSQLConnector wraps an existing pool. A nil registry selects the
// built-in resolvers.
func NewSQLConnector(db *sql.DB, dialect Dialect, resolvers *resolver.Registry, logger zerolog.Logger) *SQLConnector {
	if resolvers == nil {
		resolvers = resolver.Builtin()
	}
	return &SQLConnector{
		db:        db,
		dialect:   dialect,
		resolvers: resolvers,
		log:       logger.With().Str("dialect", dialect.Name()).Logger(),
	}
}

// DB exposes the pool for tuning (SetMaxOpenConns and friends).
func (c *SQLConnector) DB() *sql.DB {
	return c.db
}

// State returns the current transaction state.
func (c *SQLConnector) State() State {
	return c.state
}

// IsTransactionInProgress reports whether State is StateTransactionActive.
func (c *SQLConnector) IsTransactionInProgress() bool {
	return c.state == StateTransactionActive
}

// Connection returns the transaction's connection while one is active, or a
// new caller-owned connection from the pool otherwise.
func (c *SQLConnector) Connection(ctx context.Context) (Connection, error) {
	if c.state == StateTransactionActive {
		return c.txConn, nil
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// BeginTransaction checks out a dedicated connection and starts a
// transaction on it. database/sql rolls the transaction back if ctx is
// cancelled before commit, so ctx should live as long as the transaction.
func (c *SQLConnector) BeginTransaction(ctx context.Context, level sql.IsolationLevel) error {
	if c.state == StateTransactionActive {
		return errs.State("transaction is already in progress")
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return err
	}
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.tx = tx
	c.txConn = &txConnection{tx: tx}
	c.state = StateTransactionActive

	c.log.Debug().Str("isolation", level.String()).Msg("transaction started")
	return nil
}

// CommitTransaction commits the active transaction. The connector returns to
// StateIdle even when the commit fails.
func (c *SQLConnector) CommitTransaction() error {
	if c.state != StateTransactionActive {
		return errs.State("no transaction in progress")
	}
	err := c.tx.Commit()
	if ferr := c.finalizeTransaction(); err == nil {
		err = ferr
	}
	c.log.Debug().Err(err).Msg("transaction committed")
	return err
}

// RollbackTransaction rolls back the active transaction. The connector returns
// to StateIdle even when the rollback fails.
func (c *SQLConnector) RollbackTransaction() error {
	if c.state != StateTransactionActive {
		return errs.State("no transaction in progress")
	}
	err := c.tx.Rollback()
	if ferr := c.finalizeTransaction(); err == nil {
		err = ferr
	}
	c.log.Debug().Err(err).Msg("transaction rolled back")
	return err
}

// finalizeTransaction releases the transaction's connection and returns the
// connector to StateIdle.
func (c *SQLConnector) finalizeTransaction() error {
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.conn = nil
	c.tx = nil
	c.txConn = nil
	c.state = StateIdle
	return err
}

// CreateCommand returns a stored procedure command bound to the connector's dialect.
func (c *SQLConnector) CreateCommand() *Command {
	return &Command{Type: CommandTypeStoredProcedure, dialect: c.dialect}
}

// CreateParameter returns an input parameter.
func (c *SQLConnector) CreateParameter() *Parameter {
	return &Parameter{Direction: DirectionInput}
}

// Resolvers returns the type resolvers applied to untyped parameters.
func (c *SQLConnector) Resolvers() *resolver.Registry {
	return c.resolvers
}

// Dialect returns the SQL dialect commands are rendered for.
func (c *SQLConnector) Dialect() Dialect {
	return c.dialect
}

// Ping checks that the database is reachable.
func (c *SQLConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close rolls back an active transaction and closes the pool.
func (c *SQLConnector) Close() error {
	var rbErr error
	if c.state == StateTransactionActive {
		c.log.Warn().Msg("closing connector with an active transaction, rolling back")
		rbErr = c.RollbackTransaction()
		if errors.Is(rbErr, sql.ErrTxDone) {
			rbErr = nil
		}
	}
	return errors.Join(rbErr, c.db.Close())
}

// txConnection is the transaction seen through the Connection interface.
// Close is a no-op: the connector releases it on commit or rollback.
type txConnection struct {
	tx *sql.Tx
}

func (t *txConnection) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *txConnection) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *txConnection) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *txConnection) Close() error {
	return nil
}
