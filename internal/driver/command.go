package driver

import (
	"context"
	"database/sql"
	"strings"

	"fluxproc/internal/errs"
	"fluxproc/internal/resolver"
)

// CommandType selects how the command text is interpreted.
type CommandType int

const (
	// CommandTypeStoredProcedure treats Text as a procedure name.
	CommandTypeStoredProcedure CommandType = iota
	// CommandTypeText sends Text verbatim with the input values as arguments.
	CommandTypeText
)

// Direction tells a dialect how to bind a parameter.
type Direction int

const (
	DirectionInput Direction = iota
	// DirectionReturnValue receives the procedure's return value after execution.
	DirectionReturnValue
)

// Parameter is a command parameter. Type overrides the driver's inference
// when it is not resolver.Unspecified.
type Parameter struct {
	Name      string
	Value     any
	Type      resolver.DBType
	Direction Direction

	populated bool
}

// Populated reports whether execution stored a value into a return-value parameter.
func (p *Parameter) Populated() bool {
	return p.populated
}

func (p *Parameter) setResult(v any) {
	p.Value = v
	p.populated = true
}

// Parameters is the ordered parameter list of a command.
type Parameters struct {
	items []*Parameter
}

// Add appends p and returns it.
func (ps *Parameters) Add(p *Parameter) *Parameter {
	ps.items = append(ps.items, p)
	return p
}

// Get finds a parameter by name, ignoring case and a leading '@'.
func (ps *Parameters) Get(name string) (*Parameter, bool) {
	want := bareName(name)
	for _, p := range ps.items {
		if strings.EqualFold(bareName(p.Name), want) {
			return p, true
		}
	}
	return nil, false
}

// Contains reports whether a parameter with the given name exists.
func (ps *Parameters) Contains(name string) bool {
	_, ok := ps.Get(name)
	return ok
}

// All returns every parameter in insertion order.
func (ps *Parameters) All() []*Parameter {
	return append([]*Parameter(nil), ps.items...)
}

// Inputs returns the input parameters in insertion order.
func (ps *Parameters) Inputs() []*Parameter {
	var out []*Parameter
	for _, p := range ps.items {
		if p.Direction == DirectionInput {
			out = append(out, p)
		}
	}
	return out
}

// ReturnValue returns the first return-value parameter, or nil.
func (ps *Parameters) ReturnValue() *Parameter {
	for _, p := range ps.items {
		if p.Direction == DirectionReturnValue {
			return p
		}
	}
	return nil
}

// Len returns the number of parameters.
func (ps *Parameters) Len() int {
	return len(ps.items)
}

func bareName(name string) string {
	return strings.TrimLeft(name, "@:$")
}

// Command is a single invocation against a Connection. It must be closed
// after use; Close releases any result set the command still holds.
type Command struct {
	Text       string
	Type       CommandType
	Parameters Parameters
	Connection Connection

	dialect Dialect
	rows    *sql.Rows
	closed  bool
}

func (c *Command) ready() error {
	if c.closed {
		return errs.State("command is closed")
	}
	if c.dialect == nil {
		return errs.State("command has no dialect")
	}
	if c.Connection == nil {
		return errs.State("command has no connection")
	}
	if c.Text == "" {
		return errs.Argument("text", "command text must not be empty")
	}
	return nil
}

// ExecuteReader runs the command and returns its result set. The rows are
// closed by Close if the caller has not closed them already.
func (c *Command) ExecuteReader(ctx context.Context) (*sql.Rows, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	rows, err := c.dialect.Query(ctx, c)
	if err != nil {
		return nil, err
	}
	c.rows = rows
	return rows, nil
}

// ExecuteNonQuery runs the command without a result set and fills in the
// return-value parameter when the dialect provides one. It returns the
// affected row count, or -1 when the driver does not report it.
func (c *Command) ExecuteNonQuery(ctx context.Context) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.dialect.Exec(ctx, c)
}

// Close releases the command. It is safe to call more than once.
func (c *Command) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.rows != nil {
		err := c.rows.Close()
		c.rows = nil
		return err
	}
	return nil
}
