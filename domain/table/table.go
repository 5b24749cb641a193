// Package table defines the in-memory wide/long table value passed between
// pipeline stages. Column order is significant (it drives multi-response set
// inference and output layout) and row order is the respondent order.
package table

// Row represents one row as column-name → cell value pairs.
// All cells are strings; numeric semantics are applied by the stages that
// need them.
type Row map[string]string

// Table is an ordered set of columns plus data rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: []Row{}}
}

// Clone returns a deep copy. Stages clone their input so that no stage
// observes another stage's mutations.
func (t *Table) Clone() *Table {
	out := New(t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		dup := make(Row, len(row))
		for k, v := range row {
			dup[k] = v
		}
		out.Rows[i] = dup
	}
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Get returns the cell value for a row/column pair; missing cells read as "".
func (t *Table) Get(rowIdx int, column string) string {
	if rowIdx < 0 || rowIdx >= len(t.Rows) {
		return ""
	}
	return t.Rows[rowIdx][column]
}

// Set writes a cell value. The column must already be declared.
func (t *Table) Set(rowIdx int, column, value string) {
	if rowIdx < 0 || rowIdx >= len(t.Rows) {
		return
	}
	if t.Rows[rowIdx] == nil {
		t.Rows[rowIdx] = make(Row)
	}
	t.Rows[rowIdx][column] = value
}

// AppendColumn declares a new column at the end of the column order.
// Existing rows read as empty for it until set.
func (t *Table) AppendColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	t.Columns = append(t.Columns, name)
}

// DropColumn removes a column and its cells, preserving the order of the
// remaining columns.
func (t *Table) DropColumn(name string) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for _, row := range t.Rows {
		delete(row, name)
	}
}

// RenameColumn renames a column in place, keeping its position and moving
// every row's cell to the new key. No-op if the old name is absent or the
// new name already exists.
func (t *Table) RenameColumn(oldName, newName string) {
	if oldName == newName {
		return
	}
	idx := t.ColumnIndex(oldName)
	if idx < 0 || t.HasColumn(newName) {
		return
	}
	t.Columns[idx] = newName
	for _, row := range t.Rows {
		if v, ok := row[oldName]; ok {
			row[newName] = v
			delete(row, oldName)
		}
	}
}

// AppendRow adds a row at the end of the table.
func (t *Table) AppendRow(row Row) {
	t.Rows = append(t.Rows, row)
}

// NumRows returns the respondent count.
func (t *Table) NumRows() int {
	return len(t.Rows)
}
