package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"fluxproc/internal/resolver"
	"fluxproc/internal/security"
)

// PostgresDialect calls functions and procedures using named notation. Rows
// come from SELECT * FROM fn(...), the return value from SELECT fn(...), and
// plain execution uses CALL. The "postgres" name opens pools with lib/pq,
// "pgx" with the pgx stdlib adapter and query tracing.
type PostgresDialect struct {
	name string
}

// Postgres returns the lib/pq flavour.
func Postgres() PostgresDialect {
	return PostgresDialect{name: "postgres"}
}

// PGX returns the jackc/pgx flavour.
func PGX() PostgresDialect {
	return PostgresDialect{name: "pgx"}
}

// Name returns the registered dialect name, postgres or pgx.
func (d PostgresDialect) Name() string {
	return d.name
}

// Open opens a pool through lib/pq or, for pgx, through pgx's stdlib adapter
// with query tracing routed to logger.
func (d PostgresDialect) Open(dsn string, logger zerolog.Logger) (*sql.DB, error) {
	dsn = withSSLModeDisable(dsn)
	if d.name == "pgx" {
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse pgx dsn: %w", err)
		}
		cfg.Tracer = &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(logger.With().Str("component", "pgx").Logger()),
			LogLevel: pgxTraceLevel(logger.GetLevel()),
		}
		return stdlib.OpenDB(*cfg), nil
	}

	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Query runs a set-returning function with SELECT * FROM, or a text command.
func (d PostgresDialect) Query(ctx context.Context, cmd *Command) (*sql.Rows, error) {
	if cmd.Type == CommandTypeText {
		return cmd.Connection.QueryContext(ctx, cmd.Text, inputValues(cmd)...)
	}
	call, args, err := renderPostgresCall(cmd)
	if err != nil {
		return nil, err
	}
	return cmd.Connection.QueryContext(ctx, "SELECT * FROM "+call, args...)
}

// Exec selects the function result into the return value parameter when one
// is present and uses CALL otherwise.
func (d PostgresDialect) Exec(ctx context.Context, cmd *Command) (int64, error) {
	if cmd.Type == CommandTypeText {
		res, err := cmd.Connection.ExecContext(ctx, cmd.Text, inputValues(cmd)...)
		if err != nil {
			return 0, err
		}
		return rowsAffected(res), nil
	}

	call, args, err := renderPostgresCall(cmd)
	if err != nil {
		return 0, err
	}

	ret := cmd.Parameters.ReturnValue()
	if ret == nil {
		res, err := cmd.Connection.ExecContext(ctx, "CALL "+call, args...)
		if err != nil {
			return 0, err
		}
		return rowsAffected(res), nil
	}

	alias, err := variableName(ret)
	if err != nil {
		return 0, err
	}
	var value any
	err = cmd.Connection.QueryRowContext(ctx, "SELECT "+call+" AS "+pq.QuoteIdentifier(alias), args...).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return -1, nil
	case err != nil:
		return 0, err
	}
	if value != nil {
		ret.setResult(value)
	}
	return -1, nil
}

// renderPostgresCall builds `"schema"."fn"("a" => $1, "b" => $2::date)`.
// Unnamed parameters are passed positionally and must precede named ones.
func renderPostgresCall(cmd *Command) (string, []any, error) {
	parts, err := security.SplitProcedureName(cmd.Text)
	if err != nil {
		return "", nil, fmt.Errorf("procedure %q: %w", cmd.Text, err)
	}
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}

	inputs := cmd.Parameters.Inputs()
	list := make([]string, 0, len(inputs))
	args := make([]any, 0, len(inputs))
	for i, p := range inputs {
		placeholder := fmt.Sprintf("$%d", i+1)
		if cast := postgresCast(p.Type); cast != "" {
			placeholder += "::" + cast
		}
		if name := bareName(p.Name); name != "" {
			placeholder = pq.QuoteIdentifier(name) + " => " + placeholder
		}
		list = append(list, placeholder)
		args = append(args, p.Value)
	}

	return fmt.Sprintf("%s(%s)", strings.Join(parts, "."), strings.Join(list, ", ")), args, nil
}

func postgresCast(t resolver.DBType) string {
	switch t {
	case resolver.AnsiString, resolver.String:
		return "text"
	case resolver.Boolean:
		return "boolean"
	case resolver.Int16:
		return "smallint"
	case resolver.Int32:
		return "integer"
	case resolver.Int64:
		return "bigint"
	case resolver.Decimal:
		return "numeric"
	case resolver.Double:
		return "double precision"
	case resolver.Binary:
		return "bytea"
	case resolver.Date:
		return "date"
	case resolver.Time:
		return "time"
	case resolver.DateTime, resolver.DateTime2:
		return "timestamp"
	case resolver.DateTimeOffset:
		return "timestamptz"
	case resolver.Guid:
		return "uuid"
	}
	return ""
}

// withSSLModeDisable defaults URL-style DSNs to sslmode=disable.
func withSSLModeDisable(dsn string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn
	}
	if strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "sslmode=disable"
}

func pgxTraceLevel(level zerolog.Level) tracelog.LogLevel {
	switch level {
	case zerolog.TraceLevel:
		return tracelog.LogLevelTrace
	case zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case zerolog.InfoLevel:
		return tracelog.LogLevelInfo
	case zerolog.WarnLevel:
		return tracelog.LogLevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return tracelog.LogLevelError
	}
	return tracelog.LogLevelNone
}
