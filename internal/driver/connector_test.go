package driver

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxproc/internal/errs"
	"fluxproc/internal/resolver"
)

func newMockConnector(t *testing.T) (*SQLConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLConnector(db, MySQL(), nil, zerolog.Nop()), mock
}

func TestConnectionReturnsDistinctConnectionsWhenIdle(t *testing.T) {
	connector, mock := newMockConnector(t)
	ctx := context.Background()

	first, err := connector.Connection(ctx)
	require.NoError(t, err)
	second, err := connector.Connection(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, StateIdle, connector.State())
	assert.NoError(t, first.Close())
	assert.NoError(t, second.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionReturnsTransactionConnection(t *testing.T) {
	connector, mock := newMockConnector(t)
	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, connector.BeginTransaction(ctx, sql.LevelDefault))
	assert.True(t, connector.IsTransactionInProgress())
	assert.Equal(t, StateTransactionActive, connector.State())

	first, err := connector.Connection(ctx)
	require.NoError(t, err)
	second, err := connector.Connection(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Closing the transaction's connection must not end the transaction.
	require.NoError(t, first.Close())
	assert.True(t, connector.IsTransactionInProgress())

	require.NoError(t, connector.CommitTransaction())
	assert.False(t, connector.IsTransactionInProgress())
	assert.Equal(t, StateIdle, connector.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginTransactionTwiceFails(t *testing.T) {
	connector, mock := newMockConnector(t)
	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, connector.BeginTransaction(ctx, sql.LevelDefault))
	err := connector.BeginTransaction(ctx, sql.LevelDefault)

	require.Error(t, err)
	assert.ErrorIs(t, err, &errs.StateError{})
	assert.True(t, connector.IsTransactionInProgress())

	require.NoError(t, connector.RollbackTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitAndRollbackWithoutTransactionFail(t *testing.T) {
	connector, mock := newMockConnector(t)

	var stateErr *errs.StateError
	assert.ErrorAs(t, connector.CommitTransaction(), &stateErr)
	assert.ErrorAs(t, connector.RollbackTransaction(), &stateErr)
	assert.Equal(t, StateIdle, connector.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginTransactionFailureLeavesConnectorIdle(t *testing.T) {
	connector, mock := newMockConnector(t)
	boom := errors.New("begin refused")
	mock.ExpectBegin().WillReturnError(boom)

	err := connector.BeginTransaction(context.Background(), sql.LevelDefault)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateIdle, connector.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFailureStillReleasesTransaction(t *testing.T) {
	connector, mock := newMockConnector(t)
	boom := errors.New("commit failed")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(boom)

	require.NoError(t, connector.BeginTransaction(context.Background(), sql.LevelDefault))
	err := connector.CommitTransaction()

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateIdle, connector.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCanBeStartedAgainAfterRollback(t *testing.T) {
	connector, mock := newMockConnector(t)
	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, connector.BeginTransaction(ctx, sql.LevelDefault))
	first, err := connector.Connection(ctx)
	require.NoError(t, err)
	require.NoError(t, connector.RollbackTransaction())

	require.NoError(t, connector.BeginTransaction(ctx, sql.LevelDefault))
	second, err := connector.Connection(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, connector.CommitTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseRollsBackActiveTransaction(t *testing.T) {
	connector, mock := newMockConnector(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectClose()

	require.NoError(t, connector.BeginTransaction(context.Background(), sql.LevelDefault))
	require.NoError(t, connector.Close())

	assert.Equal(t, StateIdle, connector.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCommandAndParameterReturnNewInstances(t *testing.T) {
	connector, _ := newMockConnector(t)

	assert.NotSame(t, connector.CreateCommand(), connector.CreateCommand())
	assert.NotSame(t, connector.CreateParameter(), connector.CreateParameter())

	cmd := connector.CreateCommand()
	assert.Equal(t, CommandTypeStoredProcedure, cmd.Type)
	assert.Equal(t, 0, cmd.Parameters.Len())
	assert.Equal(t, DirectionInput, connector.CreateParameter().Direction)
}

func TestNewSQLConnectorDefaultsToBuiltinResolvers(t *testing.T) {
	connector, _ := newMockConnector(t)

	require.NotNil(t, connector.Resolvers())
	assert.Len(t, connector.Resolvers().Resolvers(), len(resolver.Builtin().Resolvers()))
	assert.Equal(t, "mysql", connector.Dialect().Name())
}

func TestOpenRejectsUnknownDialectAndEmptyDSN(t *testing.T) {
	_, err := Open("oracle", "dsn", nil, zerolog.Nop())
	assert.ErrorIs(t, err, &errs.ArgumentError{})

	_, err = Open("mysql", "", nil, zerolog.Nop())
	assert.ErrorIs(t, err, &errs.ArgumentError{})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "transaction-active", StateTransactionActive.String())
	assert.Equal(t, "State(7)", State(7).String())
}
