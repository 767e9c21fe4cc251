package security

import (
	"errors"
	"strings"
)

var (
	ErrEmptyIdentifier  = errors.New("identifier must not be empty")
	ErrUnsafeIdentifier = errors.New("unsafe identifier detected")
)

// maxIdentifierParts covers server.database.schema.object.
const maxIdentifierParts = 4

// SplitProcedureName validates a possibly qualified procedure name and
// returns its parts with any quoting removed.
//
// Accepted part forms are bare words (letters, digits, '_', '$', '#' and '@'
// not in leading position), [bracketed], "double quoted" and `backticked`
// names. Statement separators, comment markers and whitespace outside quotes
// are rejected so the name can be rendered into a CALL statement verbatim.
func SplitProcedureName(name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyIdentifier
	}
	if strings.Contains(name, "--") || strings.Contains(name, "/*") || strings.Contains(name, ";") {
		return nil, ErrUnsafeIdentifier
	}

	var parts []string
	rest := name
	for {
		part, tail, err := nextPart(rest)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		if tail == "" {
			break
		}
		if tail[0] != '.' {
			return nil, ErrUnsafeIdentifier
		}
		rest = tail[1:]
		if rest == "" {
			return nil, ErrUnsafeIdentifier
		}
	}
	if len(parts) > maxIdentifierParts {
		return nil, ErrUnsafeIdentifier
	}
	return parts, nil
}

// ValidateProcedureName reports whether name is a safe procedure identifier.
func ValidateProcedureName(name string) error {
	_, err := SplitProcedureName(name)
	return err
}

func nextPart(s string) (part, tail string, err error) {
	if s == "" {
		return "", "", ErrUnsafeIdentifier
	}
	switch open := s[0]; open {
	case '[', '"', '`':
		closer := open
		if open == '[' {
			closer = ']'
		}
		end := strings.IndexByte(s[1:], closer)
		if end <= 0 {
			return "", "", ErrUnsafeIdentifier
		}
		part = s[1 : end+1]
		if strings.ContainsAny(part, "\x00\r\n") {
			return "", "", ErrUnsafeIdentifier
		}
		return part, s[end+2:], nil
	}

	i := 0
	for i < len(s) && isWordByte(s[i], i == 0) {
		i++
	}
	if i == 0 {
		return "", "", ErrUnsafeIdentifier
	}
	return s[:i], s[i:], nil
}

func isWordByte(b byte, leading bool) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_', b == '#':
		return true
	case b >= '0' && b <= '9', b == '$', b == '@':
		return !leading
	case b >= 0x80:
		return true
	}
	return false
}
