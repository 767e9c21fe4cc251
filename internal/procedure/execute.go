package procedure

import (
	"context"
	"errors"
	"strconv"
	"time"

	"fluxproc/internal/driver"
	"fluxproc/internal/errs"
	"fluxproc/internal/record"
	"fluxproc/internal/resolver"
)

// RowReader maps the current row to a value. The row is reused for the next
// row and closed after the last one, so it must not be retained.
type RowReader[T any] func(row *record.Row) (T, error)

// ResultConverter converts a procedure's raw return value.
type ResultConverter[T any] func(value any) (T, error)

// Option adjusts a call.
type Option func(*options)

type options struct {
	modify  []func(*driver.Command)
	columns func([]string)
}

// WithCommand lets the caller adjust the command after its parameters are
// attached and before it runs, for example to switch it to CommandTypeText.
func WithCommand(fn func(cmd *driver.Command)) Option {
	return func(o *options) {
		if fn != nil {
			o.modify = append(o.modify, fn)
		}
	}
}

// Table is an untyped result set.
type Table struct {
	Columns []string
	Rows    [][]any
}

const returnValueName = "ReturnValue"

// Query runs the procedure and maps every result row through read. All rows
// are read before Query returns.
func Query[T any](ctx context.Context, r *Runner, name string, params []Param, read RowReader[T], opts ...Option) (result []T, err error) {
	if name == "" {
		return nil, errs.Argument("name", "stored procedure name must not be empty")
	}
	if read == nil {
		return nil, errs.Argument("reader", "row reader must not be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cmd, conn, err := r.prepare(ctx, name, params, o)
	if err != nil {
		return nil, err
	}
	defer release(cmd, conn, &err)

	start := time.Now()
	rows, err := cmd.ExecuteReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if o.columns != nil {
		o.columns(columns)
	}
	row := record.NewRow(columns)
	defer row.Close()

	result = []T{}
	for rows.Next() {
		if err := row.Scan(rows); err != nil {
			return nil, err
		}
		v, err := read(row)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("procedure", name).
		Int("rows", len(result)).
		Dur("elapsed", time.Since(start)).
		Msg("procedure query completed")
	return result, nil
}

// Exec runs the procedure without reading a result set and converts its
// return value. When the driver reports no return value, convert is not
// called and the zero value of T is returned.
func Exec[T any](ctx context.Context, r *Runner, name string, params []Param, convert ResultConverter[T], opts ...Option) (result T, err error) {
	if name == "" {
		return result, errs.Argument("name", "stored procedure name must not be empty")
	}
	if convert == nil {
		return result, errs.Argument("converter", "result converter must not be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cmd, conn, err := r.prepare(ctx, name, params, o)
	if err != nil {
		return result, err
	}
	defer release(cmd, conn, &err)

	ret := cmd.Parameters.Add(&driver.Parameter{
		Name:      uniqueReturnName(&cmd.Parameters),
		Direction: driver.DirectionReturnValue,
	})

	start := time.Now()
	affected, err := cmd.ExecuteNonQuery(ctx)
	if err != nil {
		return result, err
	}

	r.log.Debug().
		Str("procedure", name).
		Int64("affected", affected).
		Dur("elapsed", time.Since(start)).
		Msg("procedure exec completed")

	if !ret.Populated() {
		r.log.Warn().
			Str("procedure", name).
			Str("dialect", r.connector.Dialect().Name()).
			Msg("procedure returned no value, using zero value")
		return result, nil
	}
	return convert(ret.Value)
}

// QueryTable runs the procedure and captures its columns and rows as is.
func QueryTable(ctx context.Context, r *Runner, name string, params []Param, opts ...Option) (*Table, error) {
	var columns []string
	capture := func(o *options) {
		o.columns = func(c []string) { columns = c }
	}
	rows, err := Query[[]any](ctx, r, name, params, func(row *record.Row) ([]any, error) {
		return row.Values(), nil
	}, append(opts[:len(opts):len(opts)], capture)...)
	if err != nil {
		return nil, err
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// prepare acquires a connection and builds the command. On error nothing is
// left open.
func (r *Runner) prepare(ctx context.Context, name string, params []Param, o options) (*driver.Command, driver.Connection, error) {
	conn, err := r.connector.Connection(ctx)
	if err != nil {
		return nil, nil, err
	}

	cmd := r.connector.CreateCommand()
	cmd.Text = name
	cmd.Type = driver.CommandTypeStoredProcedure
	cmd.Connection = conn

	resolvers := r.connector.Resolvers()
	for _, p := range params {
		dp := r.connector.CreateParameter()
		dp.Name = p.Name()
		dp.Value = p.Value()
		if t, ok := p.DBType(); ok {
			dp.Type = t
		} else if t, ok := resolvers.Resolve(p.Value()); ok {
			dp.Type = t
		} else {
			dp.Type = resolver.Unspecified
		}
		cmd.Parameters.Add(dp)
	}

	for _, fn := range o.modify {
		fn(cmd)
	}
	return cmd, conn, nil
}

// release closes the command and connection, reporting close failures only
// when the call itself succeeded.
func release(cmd *driver.Command, conn driver.Connection, err *error) {
	cerr := errors.Join(cmd.Close(), conn.Close())
	if *err == nil {
		*err = cerr
	}
}

// uniqueReturnName returns "ReturnValue", or the first "ReturnValueN" that
// no parameter already uses.
func uniqueReturnName(ps *driver.Parameters) string {
	name := returnValueName
	for i := 1; ps.Contains(name); i++ {
		name = returnValueName + strconv.Itoa(i)
	}
	return name
}
