// Package resolver maps parameter values to database storage types.
//
// A Registry holds an ordered, immutable list of resolvers. Resolution picks
// the first resolver whose declared type is exactly the value's dynamic type;
// there is no walk over embedded or convertible types. When nothing matches,
// the driver's own inference applies.
package resolver

import "reflect"

// Resolver resolves the database type for values of one exact Go type.
type Resolver interface {
	// Type is the dynamic type this resolver handles.
	Type() reflect.Type

	// Resolve returns the override for value, or false to keep the default mapping.
	Resolve(value any) (DBType, bool)
}

// Registry is an ordered list of resolvers. It is safe to share between
// connectors because it cannot change after construction.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry creates a registry that consults rs in order.
func NewRegistry(rs ...Resolver) *Registry {
	list := make([]Resolver, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			list = append(list, r)
		}
	}
	return &Registry{resolvers: list}
}

// Builtin returns a new registry holding the built-in resolvers.
func Builtin() *Registry {
	return NewRegistry(DateTimeResolver())
}

// Resolvers returns a copy of the registered resolvers in lookup order.
func (r *Registry) Resolvers() []Resolver {
	if r == nil {
		return nil
	}
	return append([]Resolver(nil), r.resolvers...)
}

// Resolve returns the database type override for value.
// A nil value or a value with no matching resolver yields false.
func (r *Registry) Resolve(value any) (DBType, bool) {
	if r == nil || value == nil {
		return Unspecified, false
	}
	rt := reflect.TypeOf(value)
	for _, res := range r.resolvers {
		if res.Type() == rt {
			return res.Resolve(value)
		}
	}
	return Unspecified, false
}

type typed[T any] struct {
	rt reflect.Type
	fn func(T) (DBType, bool)
}

// Typed adapts fn into a Resolver for values of type T.
// Values of any other type resolve to no override.
func Typed[T any](fn func(T) (DBType, bool)) Resolver {
	return &typed[T]{rt: reflect.TypeOf((*T)(nil)).Elem(), fn: fn}
}

func (t *typed[T]) Type() reflect.Type { return t.rt }

func (t *typed[T]) Resolve(value any) (DBType, bool) {
	v, ok := value.(T)
	if !ok {
		return Unspecified, false
	}
	return t.fn(v)
}
