package driver

import (
	"context"
	"database/sql"
	"fmt"

	"fluxproc/internal/resolver"
)

// Connector abstracts a database and the single ambient transaction a caller
// may run against it. It is the only seam the procedure helpers depend on.
// A Connector is not safe for concurrent use.
type Connector interface {
	// Connection returns the transaction's connection while a transaction is
	// active, otherwise a new connection the caller must Close.
	Connection(ctx context.Context) (Connection, error)

	// BeginTransaction starts the ambient transaction. It fails with a state
	// error when one is already active.
	BeginTransaction(ctx context.Context, level sql.IsolationLevel) error

	// CommitTransaction commits and releases the ambient transaction and its
	// connection. It fails with a state error when none is active.
	CommitTransaction() error

	// RollbackTransaction rolls back and releases the ambient transaction and
	// its connection. It fails with a state error when none is active.
	RollbackTransaction() error

	// IsTransactionInProgress reports whether a transaction is active.
	IsTransactionInProgress() bool

	// State returns the connector's transaction state.
	State() State

	// CreateCommand returns a new, empty command bound to the connector's dialect.
	CreateCommand() *Command

	// CreateParameter returns a new, empty input parameter.
	CreateParameter() *Parameter

	// Resolvers returns the registry used to resolve parameter types.
	Resolvers() *resolver.Registry

	// Dialect returns the dialect used to render commands.
	Dialect() Dialect

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close rolls back any active transaction and closes the database.
	Close() error
}

// Connection is a single database session: a pooled *sql.Conn, or the
// connector-owned transaction.
type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row

	// Close releases a caller-owned connection. It is a no-op for the
	// transaction's connection, which only commit or rollback release.
	Close() error
}

var _ Connection = (*sql.Conn)(nil)

// State is the connector's transaction state.
type State int

const (
	// StateIdle means no transaction; every Connection call opens a new connection.
	StateIdle State = iota
	// StateTransactionActive means Connection returns the transaction's connection.
	StateTransactionActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransactionActive:
		return "transaction-active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
