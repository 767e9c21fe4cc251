package driver

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"fluxproc/internal/errs"
)

// Dialect renders commands for one database engine and opens its pools.
type Dialect interface {
	// Name returns the dialect name (e.g., "mysql", "postgres").
	Name() string

	// Open creates a pool for dsn. It does not contact the server.
	Open(dsn string, logger zerolog.Logger) (*sql.DB, error)

	// Query runs cmd and returns its result set.
	Query(ctx context.Context, cmd *Command) (*sql.Rows, error)

	// Exec runs cmd without a result set, storing the procedure's return
	// value into the command's return-value parameter when the engine
	// reports one.
	Exec(ctx context.Context, cmd *Command) (int64, error)
}

var dialects = map[string]Dialect{
	"mysql":     MySQL(),
	"postgres":  Postgres(),
	"pgx":       PGX(),
	"sqlserver": SQLServer(),
	"mssql":     SQLServer(),
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errs.Argument("dialect", fmt.Sprintf("unknown dialect %q (known: %s)", name, strings.Join(Dialects(), ", ")))
	}
	return d, nil
}

// Dialects lists the registered dialect names.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func inputValues(cmd *Command) []any {
	inputs := cmd.Parameters.Inputs()
	args := make([]any, len(inputs))
	for i, p := range inputs {
		args[i] = p.Value
	}
	return args
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return n
}

// variableName checks a return-value parameter name before it is rendered
// into SQL as a variable or alias.
func variableName(p *Parameter) (string, error) {
	name := bareName(p.Name)
	if name == "" {
		return "", errs.Argument("parameter", "return value parameter must be named")
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		if !(b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || i > 0 && b >= '0' && b <= '9') {
			return "", errs.Argument("parameter", fmt.Sprintf("invalid return value parameter name %q", p.Name))
		}
	}
	return name, nil
}
