// Package table holds the in-memory column store used by every analysis:
// typed columns, a schema-checked row accessor, loaders and the pure
// transformations that produce new tables from old ones.
package table

import (
	"fmt"
	"math"
)

// Kind is the semantic type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
	KindIdentifier
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindIdentifier:
		return "identifier"
	case KindDate:
		return "datetime"
	}
	return "unknown"
}

// Column is an immutable named vector of values.
type Column struct {
	name   string
	kind   Kind
	values []Value
	levels []string
}

// NewColumn copies values into a new column.
func NewColumn(name string, kind Kind, values []Value) *Column {
	cp := make([]Value, len(values))
	copy(cp, values)
	return &Column{name: name, kind: kind, values: cp}
}

// NumColumn builds a numeric column. NaN entries become missing.
func NumColumn(name string, xs []float64) *Column {
	vals := make([]Value, len(xs))
	for i, x := range xs {
		vals[i] = Num(x)
	}
	return &Column{name: name, kind: KindNumeric, values: vals}
}

// TextColumn builds a categorical column.
func TextColumn(name string, xs []string) *Column {
	vals := make([]Value, len(xs))
	for i, x := range xs {
		vals[i] = Text(x)
	}
	return &Column{name: name, kind: KindCategorical, values: vals}
}

// WithLevels returns a copy of c carrying an explicit category order.
func (c *Column) WithLevels(levels []string) *Column {
	out := *c
	out.levels = append([]string(nil), levels...)
	return &out
}

func (c *Column) renamed(name string) *Column {
	out := *c
	out.name = name
	return &out
}

func (c *Column) Name() string      { return c.name }
func (c *Column) Kind() Kind        { return c.kind }
func (c *Column) Len() int          { return len(c.values) }
func (c *Column) Value(i int) Value { return c.values[i] }

// Levels is the declared category order, nil when the column has none.
func (c *Column) Levels() []string { return append([]string(nil), c.levels...) }

// Values returns a copy of the cells.
func (c *Column) Values() []Value {
	cp := make([]Value, len(c.values))
	copy(cp, c.values)
	return cp
}

// Floats returns the numeric payload. Any missing or non-numeric cell fails.
func (c *Column) Floats() ([]float64, error) {
	out := make([]float64, len(c.values))
	for i, v := range c.values {
		if v.IsMissing() {
			return nil, fmt.Errorf("column %q row %d: %w", c.name, i, ErrMissingValue)
		}
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("column %q row %d: %w", c.name, i, ErrNotNumeric)
		}
		out[i] = f
	}
	return out, nil
}

// Present returns the numeric cells, skipping missing ones. Non-numeric cells fail.
func (c *Column) Present() ([]float64, error) {
	out := make([]float64, 0, len(c.values))
	for i, v := range c.values {
		if v.IsMissing() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("column %q row %d: %w", c.name, i, ErrNotNumeric)
		}
		out = append(out, f)
	}
	return out, nil
}

// FloatsOrNaN maps missing and non-numeric cells to NaN.
func (c *Column) FloatsOrNaN() []float64 {
	out := make([]float64, len(c.values))
	for i, v := range c.values {
		if f, ok := v.Float(); ok {
			out[i] = f
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Strings renders every cell with Value.String.
func (c *Column) Strings() []string {
	out := make([]string, len(c.values))
	for i, v := range c.values {
		out[i] = v.String()
	}
	return out
}

// MissingCount counts absent cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Unique lists distinct present values in first-seen order.
func (c *Column) Unique() []Value {
	seen := make(map[string]struct{})
	var out []Value
	for _, v := range c.values {
		if v.IsMissing() {
			continue
		}
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Table is an ordered set of equally long columns with unique names.
type Table struct {
	name  string
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table, checking lengths and name uniqueness.
func New(name string, cols ...*Column) (*Table, error) {
	t := &Table{name: name, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table %q: nil column at %d", name, i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("table %q: %w: %q", name, ErrDuplicateColumn, c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("table %q: column %q has %d rows, want %d: %w", name, c.name, c.Len(), t.rows, ErrShapeMismatch)
		}
		t.index[c.name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

func (t *Table) Name() string { return t.name }
func (t *Table) Len() int     { return t.rows }
func (t *Table) Width() int   { return len(t.cols) }

// Named returns the same columns under another table name.
func (t *Table) Named(name string) *Table {
	out := *t
	out.name = name
	return &out
}

// Columns lists column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &ColumnError{Table: t.name, Column: name}
	}
	return t.cols[i], nil
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Require fails with a ColumnError for the first absent name.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return &ColumnError{Table: t.name, Column: n}
		}
	}
	return nil
}

// Floats is shorthand for Column(name).Floats().
func (t *Table) Floats(name string) ([]float64, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return c.Floats()
}

// Row returns an accessor for row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Each calls fn for every row and stops at the first error.
func (t *Table) Each(fn func(Row) error) error {
	for i := 0; i < t.rows; i++ {
		if err := fn(Row{t: t, i: i}); err != nil {
			return err
		}
	}
	return nil
}

// WithColumn returns a table with c appended, or replacing the column of the same name.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	cols := make([]*Column, 0, len(t.cols)+1)
	replaced := false
	for _, old := range t.cols {
		if old.name == c.name {
			cols = append(cols, c)
			replaced = true
			continue
		}
		cols = append(cols, old)
	}
	if !replaced {
		cols = append(cols, c)
	}
	if len(t.cols) == 0 {
		return New(t.name, cols...)
	}
	if c.Len() != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.name, c.Len(), t.rows, ErrShapeMismatch)
	}
	return New(t.name, cols...)
}

// take builds a table from the given row indices, preserving column metadata.
func (t *Table) take(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for j, c := range t.cols {
		vals := make([]Value, len(idx))
		for k, i := range idx {
			vals[k] = c.values[i]
		}
		cols[j] = &Column{name: c.name, kind: c.kind, values: vals, levels: c.levels}
	}
	out := &Table{name: t.name, cols: cols, index: make(map[string]int, len(cols)), rows: len(idx)}
	for j, c := range cols {
		out.index[c.name] = j
	}
	return out
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

func (r Row) Index() int { return r.i }

// Get returns the cell in column name.
func (r Row) Get(name string) (Value, error) {
	j, ok := r.t.index[name]
	if !ok {
		return Value{}, &ColumnError{Table: r.t.name, Column: name}
	}
	return r.t.cols[j].values[r.i], nil
}

// Float returns a numeric cell, failing on missing or text cells.
func (r Row) Float(name string) (float64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	if v.IsMissing() {
		return 0, fmt.Errorf("%s: %w", name, ErrMissingValue)
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrNotNumeric)
	}
	return f, nil
}

// Text renders a cell as a string; missing cells render as "".
func (r Row) Text(name string) (string, error) {
	v, err := r.Get(name)
	if err != nil {
		return "", err
	}
	if v.IsMissing() {
		return "", nil
	}
	return v.String(), nil
}
