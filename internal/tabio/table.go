// Package tabio reads and writes the delimited tables the pipeline consumes
// and produces: tab-separated PeptideGroups exports (UTF-8 or UTF-16) and
// comma-separated output tables.
package tabio

// Cell is one named column value. Slices of Cells preserve column order.
type Cell struct {
	Column string
	Value  string
}

// Table is a fully in-memory delimited table. Rows are padded to the header
// width on read, so Rows[i][j] is always addressable for j < len(Columns).
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Get returns the value of the named column in the given row, or "".
func (t *Table) Get(row int, name string) string {
	i := t.Index(name)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][i]
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }
