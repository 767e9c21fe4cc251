package resolver

import (
	"fmt"
	"strings"
)

// DBType is a database-agnostic storage type attached to a command parameter.
// Dialects translate it into driver-specific values or casts.
type DBType int

const (
	// Unspecified leaves type inference to the driver.
	Unspecified DBType = iota
	AnsiString
	String
	Boolean
	Int16
	Int32
	Int64
	Decimal
	Double
	Binary
	Date
	Time
	DateTime
	DateTime2
	DateTimeOffset
	Guid
)

var dbTypeNames = [...]string{
	Unspecified:    "Unspecified",
	AnsiString:     "AnsiString",
	String:         "String",
	Boolean:        "Boolean",
	Int16:          "Int16",
	Int32:          "Int32",
	Int64:          "Int64",
	Decimal:        "Decimal",
	Double:         "Double",
	Binary:         "Binary",
	Date:           "Date",
	Time:           "Time",
	DateTime:       "DateTime",
	DateTime2:      "DateTime2",
	DateTimeOffset: "DateTimeOffset",
	Guid:           "Guid",
}

func (t DBType) String() string {
	if t < 0 || int(t) >= len(dbTypeNames) {
		return fmt.Sprintf("DBType(%d)", int(t))
	}
	return dbTypeNames[t]
}

// ParseDBType returns the DBType with the given name, ignoring case.
func ParseDBType(name string) (DBType, error) {
	for i, n := range dbTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return DBType(i), nil
		}
	}
	return Unspecified, fmt.Errorf("unknown database type %q", name)
}
