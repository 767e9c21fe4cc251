package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"fluxproc/internal/procedure"
	"fluxproc/internal/record"
	"fluxproc/internal/resolver"
)

// nullLiteral passes SQL NULL for a parameter: --param note=\N
const nullLiteral = `\N`

// parseParams turns repeated --param name=value flags into procedure
// parameters, converting each value to the type given by a matching
// --type name=DBType flag. Untyped values are passed as strings.
func parseParams(pairs, types []string) ([]procedure.Param, error) {
	declared := make(map[string]resolver.DBType, len(types))
	for _, pair := range types {
		name, typeName, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --type %q, want name=DBType", pair)
		}
		t, err := resolver.ParseDBType(typeName)
		if err != nil {
			return nil, err
		}
		declared[strings.ToLower(name)] = t
	}

	params := make([]procedure.Param, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", pair)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("parameter %q given more than once", name)
		}
		seen[key] = true

		t, typed := declared[key]
		delete(declared, key)
		if raw == nullLiteral {
			params = append(params, procedure.NewTypedParam(name, nil, t))
			continue
		}
		value, err := convertValue(raw, t)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		if typed {
			params = append(params, procedure.NewTypedParam(name, value, t))
		} else {
			params = append(params, procedure.NewParam(name, value))
		}
	}
	if len(declared) > 0 {
		names := slices.Sorted(maps.Keys(declared))
		return nil, fmt.Errorf("--type given for unknown parameter %q", names[0])
	}
	return params, nil
}

func convertValue(raw string, t resolver.DBType) (any, error) {
	switch t {
	case resolver.Boolean:
		return cast.ToBoolE(raw)
	case resolver.Int16:
		return record.ToInt16(raw)
	case resolver.Int32:
		return record.ToInt32(raw)
	case resolver.Int64:
		return record.ToInt64(raw)
	case resolver.Double:
		return cast.ToFloat64E(raw)
	case resolver.Date, resolver.DateTime, resolver.DateTime2, resolver.DateTimeOffset:
		return cast.ToTimeE(raw)
	case resolver.Binary:
		return []byte(raw), nil
	}
	return raw, nil
}
