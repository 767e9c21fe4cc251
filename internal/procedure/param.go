package procedure

import "fluxproc/internal/resolver"

// Param is an input parameter for a stored procedure call. It is immutable
// once constructed.
type Param struct {
	name     string
	value    any
	dbType   resolver.DBType
	declared bool
}

// NewParam returns a parameter whose database type is resolved from its value.
func NewParam(name string, value any) Param {
	return Param{name: name, value: value}
}

// NewTypedParam returns a parameter with a declared database type that takes
// precedence over any resolver.
func NewTypedParam(name string, value any, t resolver.DBType) Param {
	return Param{name: name, value: value, dbType: t, declared: t != resolver.Unspecified}
}

// Name returns the parameter name as given.
func (p Param) Name() string {
	return p.name
}

// Value returns the value bound to the parameter.
func (p Param) Value() any {
	return p.value
}

// DBType returns the declared type and whether one was given.
func (p Param) DBType() (resolver.DBType, bool) {
	return p.dbType, p.declared
}
