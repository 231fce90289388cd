package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// DeriveFunc computes one cell of a derived column from its row.
type DeriveFunc func(r Row) (Value, error)

// Derive evaluates fn on every row and adds the result as column name,
// replacing an existing column of that name. The first failing row aborts
// the whole derivation with a *ComputationError.
func Derive(t *Table, name string, fn DeriveFunc) (*Table, error) {
	vals := make([]Value, t.rows)
	for i := 0; i < t.rows; i++ {
		v, err := fn(Row{t: t, i: i})
		if err != nil {
			return nil, &ComputationError{Column: name, Row: i, Err: err}
		}
		vals[i] = v
	}
	return t.WithColumn(&Column{name: name, kind: kindOf(vals), values: vals})
}

// Div divides a by b, failing on a zero divisor.
func Div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

// kindOf picks a column kind from the first present value.
func kindOf(vals []Value) Kind {
	for _, v := range vals {
		switch {
		case v.IsNumber():
			return KindNumeric
		case v.IsDate():
			return KindDate
		case v.IsText():
			return KindCategorical
		}
	}
	return KindNumeric
}

// Bin maps column into the half-open intervals [b[i], b[i+1]). Values equal
// to a boundary fall into the interval that boundary opens; values outside
// [b[0], b[n-1]) and missing values map to missing. With nil labels each
// interval is labeled "lo-hi".
func Bin(t *Table, column, name string, boundaries []float64, labels []string) (*Table, error) {
	src, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("bin %q: need at least two boundaries", column)
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, fmt.Errorf("bin %q: boundaries must be strictly increasing", column)
		}
	}
	if labels == nil {
		labels = make([]string, len(boundaries)-1)
		for i := range labels {
			labels[i] = strconv.FormatFloat(boundaries[i], 'g', -1, 64) + "-" + strconv.FormatFloat(boundaries[i+1], 'g', -1, 64)
		}
	}
	if len(labels) != len(boundaries)-1 {
		return nil, fmt.Errorf("bin %q: %d labels for %d intervals", column, len(labels), len(boundaries)-1)
	}
	if name == "" {
		name = column + "_bin"
	}
	vals := make([]Value, t.rows)
	for i, v := range src.values {
		x, ok := v.Float()
		if !ok {
			continue
		}
		// first boundary strictly greater than x
		k := sort.SearchFloat64s(boundaries, x)
		if k < len(boundaries) && boundaries[k] == x {
			k++
		}
		if k == 0 || k == len(boundaries) {
			continue
		}
		vals[i] = Text(labels[k-1])
	}
	col := &Column{name: name, kind: KindCategorical, values: vals, levels: append([]string(nil), labels...)}
	return t.WithColumn(col)
}

// Drop removes the named columns. Every name must exist.
func Drop(t *Table, names ...string) (*Table, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}
	gone := make(map[string]struct{}, len(names))
	for _, n := range names {
		gone[n] = struct{}{}
	}
	var cols []*Column
	for _, c := range t.cols {
		if _, ok := gone[c.name]; !ok {
			cols = append(cols, c)
		}
	}
	return newShaped(t.name, t.rows, cols)
}

// Select keeps the named columns in the given order.
func Select(t *Table, names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return newShaped(t.name, t.rows, cols)
}

// Rename maps old column names to new ones.
func Rename(t *Table, names map[string]string) (*Table, error) {
	for old := range names {
		if !t.Has(old) {
			return nil, &ColumnError{Table: t.name, Column: old}
		}
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		if n, ok := names[c.name]; ok {
			cols[i] = c.renamed(n)
		} else {
			cols[i] = c
		}
	}
	return newShaped(t.name, t.rows, cols)
}

// newShaped is New for column sets that may be empty but still carry a row count.
func newShaped(name string, rows int, cols []*Column) (*Table, error) {
	if len(cols) == 0 {
		return &Table{name: name, index: map[string]int{}, rows: rows}, nil
	}
	return New(name, cols...)
}

// Strategy fills the missing cells of a column.
type Strategy interface {
	filler(t *Table, c *Column) (DeriveFunc, error)
}

// Constant fills with a fixed value.
type Constant struct{ Value Value }

func (s Constant) filler(*Table, *Column) (DeriveFunc, error) {
	return func(Row) (Value, error) { return s.Value, nil }, nil
}

// Mean fills with the mean of the present cells. Round, when set, is applied
// to the mean (math.Trunc reproduces an integer cast).
type Mean struct{ Round func(float64) float64 }

func (s Mean) filler(_ *Table, c *Column) (DeriveFunc, error) {
	xs, err := c.Present()
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("mean of %q: %w", c.name, ErrMissingValue)
	}
	m := stat.Mean(xs, nil)
	if s.Round != nil {
		m = s.Round(m)
	}
	return func(Row) (Value, error) { return Num(m), nil }, nil
}

// Formula fills each missing cell from the other cells of its row.
type Formula struct{ Fn DeriveFunc }

func (s Formula) filler(*Table, *Column) (DeriveFunc, error) {
	if s.Fn == nil {
		return nil, errors.New("formula strategy without function")
	}
	return s.Fn, nil
}

// Impute replaces the missing cells of column using strategy. The result is
// written to into, or over column when into is empty; present cells are kept.
func Impute(t *Table, column, into string, strategy Strategy) (*Table, error) {
	src, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	fill, err := strategy.filler(t, src)
	if err != nil {
		return nil, err
	}
	if into == "" {
		into = column
	}
	vals := make([]Value, t.rows)
	for i, v := range src.values {
		if !v.IsMissing() {
			vals[i] = v
			continue
		}
		nv, err := fill(Row{t: t, i: i})
		if err != nil {
			return nil, &ComputationError{Column: into, Row: i, Err: err}
		}
		vals[i] = nv
	}
	kind := src.kind
	if kind == KindCategorical && kindOf(vals) == KindNumeric {
		kind = KindNumeric
	}
	return t.WithColumn(&Column{name: into, kind: kind, values: vals, levels: src.levels})
}

// DropMissing removes rows with a missing cell in any of columns, or in any
// column at all when none are named.
func DropMissing(t *Table, columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		columns = t.Columns()
	}
	var keep []int
	for i := 0; i < t.rows; i++ {
		ok := true
		for _, n := range columns {
			if t.cols[t.index[n]].values[i].IsMissing() {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return t.take(keep), nil
}

// Head returns the first n rows.
func Head(t *Table, n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	return Slice(t, 0, n)
}

// Slice returns rows [start, end) by position.
func Slice(t *Table, start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end > t.rows {
		end = t.rows
	}
	var idx []int
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return t.take(idx)
}

// SortBy orders rows by column, stable, with missing values last. A column
// with Levels sorts by level position.
func SortBy(t *Table, column string, desc bool) (*Table, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	rank := levelRank(c.levels)
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := c.values[idx[a]], c.values[idx[b]]
		if va.IsMissing() || vb.IsMissing() {
			return !va.IsMissing() && vb.IsMissing()
		}
		cmp, ok := 0, false
		if rank != nil {
			cmp, ok = compareLevels(rank, va.String(), vb.String())
		}
		if !ok {
			cmp, ok = va.Compare(vb)
		}
		if !ok {
			cmp = compareStrings(va.String(), vb.String())
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return t.take(idx), nil
}

func levelRank(levels []string) map[string]int {
	if len(levels) == 0 {
		return nil
	}
	rank := make(map[string]int, len(levels))
	for i, l := range levels {
		rank[l] = i
	}
	return rank
}

// compareLevels orders declared levels by position. Undeclared values sort
// after declared ones; ok is false when neither value is declared.
func compareLevels(rank map[string]int, a, b string) (int, bool) {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra - rb, true
	case okA:
		return -1, true
	case okB:
		return 1, true
	}
	return 0, false
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
