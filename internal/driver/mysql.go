package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"fluxproc/internal/resolver"
	"fluxproc/internal/security"
)

// MySQLDialect calls procedures with CALL. MySQL procedures have no return
// status, so the return-value parameter is bound to a trailing OUT session
// variable and read back on the same connection.
type MySQLDialect struct{}

// MySQL returns the go-sql-driver/mysql dialect.
func MySQL() MySQLDialect {
	return MySQLDialect{}
}

func (MySQLDialect) Name() string {
	return "mysql"
}

// Open parses dsn and forces parseTime so DATETIME columns scan as time.Time.
func (MySQLDialect) Open(dsn string, logger zerolog.Logger) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Logger = mysqlLogger{log: logger.With().Str("component", "mysql").Logger()}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// Query runs the procedure with CALL and returns its first result set.
func (d MySQLDialect) Query(ctx context.Context, cmd *Command) (*sql.Rows, error) {
	if cmd.Type == CommandTypeText {
		return cmd.Connection.QueryContext(ctx, cmd.Text, inputValues(cmd)...)
	}
	query, args, err := d.render(cmd, "")
	if err != nil {
		return nil, err
	}
	return cmd.Connection.QueryContext(ctx, query, args...)
}

// Exec runs the procedure with CALL and reads the return value back from its
// session variable.
func (d MySQLDialect) Exec(ctx context.Context, cmd *Command) (int64, error) {
	if cmd.Type == CommandTypeText {
		res, err := cmd.Connection.ExecContext(ctx, cmd.Text, inputValues(cmd)...)
		if err != nil {
			return 0, err
		}
		return rowsAffected(res), nil
	}

	var variable string
	ret := cmd.Parameters.ReturnValue()
	if ret != nil {
		name, err := variableName(ret)
		if err != nil {
			return 0, err
		}
		variable = "@" + name
	}

	query, args, err := d.render(cmd, variable)
	if err != nil {
		return 0, err
	}
	res, err := cmd.Connection.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if ret == nil {
		return rowsAffected(res), nil
	}

	var value any
	if err := cmd.Connection.QueryRowContext(ctx, "SELECT "+variable).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rowsAffected(res), nil
		}
		return 0, err
	}
	if value != nil {
		ret.setResult(value)
	}
	return rowsAffected(res), nil
}

// render builds "CALL `schema`.`proc`(?, CAST(? AS ...), @out)".
func (MySQLDialect) render(cmd *Command, outVariable string) (string, []any, error) {
	parts, err := security.SplitProcedureName(cmd.Text)
	if err != nil {
		return "", nil, fmt.Errorf("procedure %q: %w", cmd.Text, err)
	}
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}

	inputs := cmd.Parameters.Inputs()
	placeholders := make([]string, 0, len(inputs)+1)
	args := make([]any, 0, len(inputs))
	for _, p := range inputs {
		if cast := mysqlCast(p.Type); cast != "" {
			placeholders = append(placeholders, "CAST(? AS "+cast+")")
		} else {
			placeholders = append(placeholders, "?")
		}
		args = append(args, p.Value)
	}
	if outVariable != "" {
		placeholders = append(placeholders, outVariable)
	}

	query := fmt.Sprintf("CALL %s(%s)", strings.Join(parts, "."), strings.Join(placeholders, ", "))
	return query, args, nil
}

func mysqlCast(t resolver.DBType) string {
	switch t {
	case resolver.AnsiString:
		return "CHAR CHARACTER SET latin1"
	case resolver.String:
		return "CHAR"
	case resolver.Boolean, resolver.Int16, resolver.Int32, resolver.Int64:
		return "SIGNED"
	case resolver.Decimal:
		return "DECIMAL(65,30)"
	case resolver.Double:
		return "DOUBLE"
	case resolver.Binary:
		return "BINARY"
	case resolver.Date:
		return "DATE"
	case resolver.Time:
		return "TIME(6)"
	case resolver.DateTime:
		return "DATETIME"
	case resolver.DateTime2, resolver.DateTimeOffset:
		return "DATETIME(6)"
	case resolver.Guid:
		return "CHAR(36)"
	}
	return ""
}

// mysqlLogger routes driver diagnostics (bad packets, dropped connections)
// into zerolog.
type mysqlLogger struct {
	log zerolog.Logger
}

func (l mysqlLogger) Print(v ...any) {
	l.log.Warn().Msg(strings.TrimSpace(fmt.Sprint(v...)))
}
