package table

import (
	"fmt"
	"strings"
)

// Column is a named sequence of values sharing a declared type.
// Individual values may be null.
type Column struct {
	Name   string
	Type   Type
	Values []Value
}

// NewColumn creates a column
func NewColumn(name string, typ Type, values ...Value) *Column {
	return &Column{Name: name, Type: typ, Values: values}
}

// Len returns the number of values
func (c *Column) Len() int { return len(c.Values) }

// NullCount returns the number of null values
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// IsNumeric reports whether the column holds ints or floats
func (c *Column) IsNumeric() bool {
	return c.Type == TypeInt || c.Type == TypeFloat
}

// Clone returns a deep copy
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Type: c.Type, Values: values}
}

// Table is an ordered set of equal-length columns
type Table struct {
	columns []*Column
	rows    int
}

// New creates a table, checking that every column has the same length
// and that names are unique.
func New(columns ...*Column) (*Table, error) {
	t := &Table{}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for literals known to be well formed
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRows builds a table from row-major values. Each column's type is
// taken from its values: all ints stay int, ints mixed with floats widen to
// float, anything else mixed becomes string.
func FromRows(names []string, rows [][]Value) (*Table, error) {
	columns := make([]*Column, len(names))
	for j, name := range names {
		values := make([]Value, len(rows))
		for i, row := range rows {
			if len(row) != len(names) {
				return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(names))
			}
			values[i] = row[j]
		}
		columns[j] = unifyColumn(name, values)
	}
	return New(columns...)
}

func unifyColumn(name string, values []Value) *Column {
	seen := map[Type]bool{}
	for _, v := range values {
		if !v.IsNull() {
			seen[v.Type()] = true
		}
	}
	var typ Type
	switch {
	case len(seen) == 0:
		typ = TypeFloat
	case len(seen) == 1:
		for k := range seen {
			typ = k
		}
	case len(seen) == 2 && seen[TypeInt] && seen[TypeFloat]:
		typ = TypeFloat
	default:
		typ = TypeString
	}
	for i, v := range values {
		values[i], _ = Convert(v, typ)
	}
	return &Column{Name: name, Type: typ, Values: values}
}

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. The slice is shared with the table.
func (t *Table) Columns() []*Column { return t.columns }

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by exact name
func (t *Table) Column(name string) (*Column, bool) {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.columns[i], true
	}
	return nil, false
}

// ColumnIndex returns the position of name, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// FindColumnFold returns the first column whose trimmed name matches name
// case-insensitively
func (t *Table) FindColumnFold(name string) (*Column, bool) {
	for _, c := range t.columns {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			return c, true
		}
	}
	return nil, false
}

// Get returns the value at row i in the named column, null when absent
func (t *Table) Get(i int, name string) Value {
	c, ok := t.Column(name)
	if !ok || i < 0 || i >= c.Len() {
		return Null()
	}
	return c.Values[i]
}

// Row returns the values of row i in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// RowKey returns a canonical key of row i over the given column positions;
// nil positions mean every column.
func (t *Table) RowKey(i int, positions []int) string {
	var b strings.Builder
	if positions == nil {
		for j, c := range t.columns {
			if j > 0 {
				b.WriteByte(0x1f)
			}
			b.WriteString(c.Values[i].Key())
		}
		return b.String()
	}
	for k, j := range positions {
		if k > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(t.columns[j].Values[i].Key())
	}
	return b.String()
}

// AddColumn appends a column of matching length
func (t *Table) AddColumn(c *Column) error {
	if t.ColumnIndex(c.Name) >= 0 {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", c.Name, c.Len(), t.rows)
	}
	if len(t.columns) == 0 {
		t.rows = c.Len()
	}
	t.columns = append(t.columns, c)
	return nil
}

// SetColumn replaces the column with the same name, or appends it
func (t *Table) SetColumn(c *Column) error {
	if i := t.ColumnIndex(c.Name); i >= 0 {
		if c.Len() != t.rows {
			return fmt.Errorf("column %q has %d values, table has %d rows", c.Name, c.Len(), t.rows)
		}
		t.columns[i] = c
		return nil
	}
	return t.AddColumn(c)
}

// DropColumns removes the named columns; unknown names are ignored
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.columns[:0]
	for _, c := range t.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	t.columns = kept
	if len(t.columns) == 0 {
		t.rows = 0
	}
}

// Rename applies fn to every column name. A name that collides with an
// earlier one gets a ".N" suffix, the same way ReadCSV treats a repeated
// header.
func (t *Table) Rename(fn func(string) string) {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = fn(c.Name)
	}
	for i, n := range dedupeNames(names) {
		t.columns[i].Name = n
	}
}

func dedupeNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		candidate := n
		for k := 1; used[candidate]; k++ {
			candidate = fmt.Sprintf("%s.%d", n, k)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// Select returns a new table with the named columns in the given order.
// Columns are copied.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{rows: t.rows}
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("column %q not found", n)
		}
		if err := out.AddColumn(c.Clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Filter returns a new table holding the rows for which keep is true,
// preserving order.
func (t *Table) Filter(keep func(i int) bool) *Table {
	idx := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// Take returns a new table holding the rows at idx, in that order
func (t *Table) Take(idx []int) *Table {
	out := &Table{rows: len(idx), columns: make([]*Column, len(t.columns))}
	for j, c := range t.columns {
		values := make([]Value, len(idx))
		for k, i := range idx {
			values[k] = c.Values[i]
		}
		out.columns[j] = &Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return out
}

// Clone returns a deep copy that shares no state with t
func (t *Table) Clone() *Table {
	out := &Table{rows: t.rows, columns: make([]*Column, len(t.columns))}
	for j, c := range t.columns {
		out.columns[j] = c.Clone()
	}
	return out
}
