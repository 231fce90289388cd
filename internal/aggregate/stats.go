package aggregate

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// CorrMatrix is a symmetric Pearson correlation matrix. Cells without two
// complete pairs or with zero variance are NaN.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
	Pairs   [][]int
}

// At returns the correlation between columns a and b.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// Table lays the matrix out with a leading "column" label column.
func (m *CorrMatrix) Table() (*table.Table, error) {
	cols := []*table.Column{table.TextColumn("column", m.Columns)}
	for j, name := range m.Columns {
		xs := make([]float64, len(m.Columns))
		for i := range m.Columns {
			xs[i] = m.Values[i][j]
		}
		cols = append(cols, table.NumColumn(name, xs))
	}
	return table.New("correlatii", cols...)
}

// Correlation computes pairwise-complete Pearson correlations. With no
// columns named, every numeric column is used.
func Correlation(t *table.Table, columns ...string) (*CorrMatrix, error) {
	if len(columns) == 0 {
		for _, n := range t.Columns() {
			c, _ := t.Column(n)
			if c.Kind() == table.KindNumeric {
				columns = append(columns, n)
			}
		}
	}
	data := make([][]float64, len(columns))
	for i, n := range columns {
		c, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		data[i] = c.FloatsOrNaN()
	}
	m := &CorrMatrix{Columns: columns, Values: make([][]float64, len(columns)), Pairs: make([][]int, len(columns))}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
		m.Pairs[i] = make([]int, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			var xs, ys []float64
			for k := range data[i] {
				x, y := data[i][k], data[j][k]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				xs = append(xs, x)
				ys = append(ys, y)
			}
			r := math.NaN()
			if len(xs) >= 2 && stat.Variance(xs, nil) > 0 && stat.Variance(ys, nil) > 0 {
				r = stat.Correlation(xs, ys, nil)
			}
			m.Values[i][j], m.Values[j][i] = r, r
			m.Pairs[i][j], m.Pairs[j][i] = len(xs), len(xs)
		}
	}
	return m, nil
}

// ValueCounts counts present values of column, most frequent first; ties
// keep first-seen order.
func ValueCounts(t *table.Table, column string) (*table.Table, error) {
	g, err := GroupBy(t, []string{column}, Agg(column, Size).As("count"))
	if err != nil {
		return nil, err
	}
	return table.SortBy(g, "count", true)
}

// NullCounts lists the number of missing cells per column.
func NullCounts(t *table.Table) (*table.Table, error) {
	names := t.Columns()
	counts := make([]float64, len(names))
	for i, n := range names {
		c, _ := t.Column(n)
		counts[i] = float64(c.MissingCount())
	}
	return table.New("null_counts", table.TextColumn("column", names), table.NumColumn("missing", counts))
}

// Share adds a column with each row's percentage of the value column total.
func Share(t *table.Table, value, name string) (*table.Table, error) {
	c, err := t.Column(value)
	if err != nil {
		return nil, err
	}
	xs, err := c.Present()
	if err != nil {
		return nil, err
	}
	total := floats.Sum(xs)
	return table.Derive(t, name, func(r table.Row) (table.Value, error) {
		v, err := r.Float(value)
		if err != nil {
			return table.Missing(), nil
		}
		p, err := table.Div(v, total)
		if err != nil {
			return table.Missing(), err
		}
		return table.Num(p * 100), nil
	})
}

// TopN sorts by column and keeps the first n rows.
func TopN(t *table.Table, column string, n int, desc bool) (*table.Table, error) {
	s, err := table.SortBy(t, column, desc)
	if err != nil {
		return nil, err
	}
	return table.Head(s, n), nil
}
