package tabio

import (
	"fmt"
	"strings"
)

// SchemaError reports a table whose header is missing columns the caller
// requires. The merge and manifest layers refuse to coerce or guess columns,
// so a mismatched file fails loudly instead of silently dropping data.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Path, strings.Join(e.Missing, ", "))
}

// RequireColumns returns a SchemaError if any of the named columns is absent.
func (t *Table) RequireColumns(path string, names ...string) error {
	var missing []string
	for _, n := range names {
		if t.Index(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Path: path, Missing: missing}
	}
	return nil
}
