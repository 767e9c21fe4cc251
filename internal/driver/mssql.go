package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/rs/zerolog"

	"fluxproc/internal/resolver"
	"fluxproc/internal/security"
)

// SQLServerDialect sends procedures as native RPC calls: the command text is
// the bracketed procedure name and parameters travel as sql.Named values.
type SQLServerDialect struct{}

// SQLServer returns the go-mssqldb dialect.
func SQLServer() SQLServerDialect {
	return SQLServerDialect{}
}

func (SQLServerDialect) Name() string {
	return "sqlserver"
}

// Open enables XACT_ABORT on every session so a failing statement aborts the
// ambient transaction instead of leaving it half applied.
func (SQLServerDialect) Open(dsn string, _ zerolog.Logger) (*sql.DB, error) {
	connector, err := mssql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse sqlserver dsn: %w", err)
	}
	connector.SessionInitSQL = "SET XACT_ABORT ON"
	return sql.OpenDB(connector), nil
}

// Query runs the procedure as an RPC call with named arguments.
func (d SQLServerDialect) Query(ctx context.Context, cmd *Command) (*sql.Rows, error) {
	if cmd.Type == CommandTypeText {
		return cmd.Connection.QueryContext(ctx, cmd.Text, inputValues(cmd)...)
	}
	name, args, err := renderSQLServerCall(cmd)
	if err != nil {
		return nil, err
	}
	return cmd.Connection.QueryContext(ctx, name, args...)
}

// Exec runs the procedure and stores its return status in the return value
// parameter.
func (d SQLServerDialect) Exec(ctx context.Context, cmd *Command) (int64, error) {
	if cmd.Type == CommandTypeText {
		res, err := cmd.Connection.ExecContext(ctx, cmd.Text, inputValues(cmd)...)
		if err != nil {
			return 0, err
		}
		return rowsAffected(res), nil
	}

	name, args, err := renderSQLServerCall(cmd)
	if err != nil {
		return 0, err
	}
	ret := cmd.Parameters.ReturnValue()
	var status mssql.ReturnStatus
	if ret != nil {
		args = append(args, &status)
	}

	res, err := cmd.Connection.ExecContext(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	if ret != nil {
		ret.setResult(int32(status))
	}
	return rowsAffected(res), nil
}

func renderSQLServerCall(cmd *Command) (string, []any, error) {
	parts, err := security.SplitProcedureName(cmd.Text)
	if err != nil {
		return "", nil, fmt.Errorf("procedure %q: %w", cmd.Text, err)
	}
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}

	inputs := cmd.Parameters.Inputs()
	args := make([]any, 0, len(inputs)+1)
	for _, p := range inputs {
		v := sqlServerValue(p.Type, p.Value)
		if name := bareName(p.Name); name != "" {
			args = append(args, sql.Named(name, v))
		} else {
			args = append(args, v)
		}
	}
	return strings.Join(parts, "."), args, nil
}

// sqlServerValue wraps v in the go-mssqldb type matching a declared DBType.
// Values of an unexpected Go type are passed through unchanged.
func sqlServerValue(t resolver.DBType, v any) any {
	switch t {
	case resolver.AnsiString:
		if s, ok := v.(string); ok {
			return mssql.VarChar(s)
		}
	case resolver.DateTime:
		if tm, ok := v.(time.Time); ok {
			return mssql.DateTime1(tm)
		}
	case resolver.DateTimeOffset:
		if tm, ok := v.(time.Time); ok {
			return mssql.DateTimeOffset(tm)
		}
	}
	return v
}
