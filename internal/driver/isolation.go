package driver

import (
	"database/sql"
	"fmt"
	"strings"
)

// ParseIsolation maps names such as "read-committed", "ReadCommitted" or
// "serializable" to a sql.IsolationLevel. An empty name is LevelDefault.
func ParseIsolation(name string) (sql.IsolationLevel, error) {
	want := foldLevel(name)
	if want == "" {
		return sql.LevelDefault, nil
	}
	for l := sql.LevelDefault; l <= sql.LevelLinearizable; l++ {
		if foldLevel(l.String()) == want {
			return l, nil
		}
	}
	return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", name)
}

func foldLevel(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
}
