// Package aggregate partitions tables by key columns and reduces each
// partition, in the order groups are first seen.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Op names a reduction.
type Op string

const (
	Sum    Op = "sum"
	Mean   Op = "mean"
	Count  Op = "count"
	Size   Op = "size"
	Min    Op = "min"
	Max    Op = "max"
	Std    Op = "std"
	Var    Op = "var"
	Median Op = "median"
	First  Op = "first"
	NUniq  Op = "nunique"
)

// ParseOp accepts the usual spellings ("avg", "average" map to mean).
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return Sum, nil
	case "mean", "avg", "average":
		return Mean, nil
	case "count":
		return Count, nil
	case "size":
		return Size, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "std":
		return Std, nil
	case "var":
		return Var, nil
	case "median":
		return Median, nil
	case "first":
		return First, nil
	case "nunique":
		return NUniq, nil
	}
	return "", fmt.Errorf("unknown aggregation %q", s)
}

func (o Op) numeric() bool {
	switch o {
	case Sum, Mean, Min, Max, Std, Var, Median:
		return true
	}
	return false
}

// Reduction is one output column of a GroupBy.
type Reduction struct {
	Column string
	Op     Op
	Name   string
}

// Agg reduces column with op into "column_op".
func Agg(column string, op Op) Reduction { return Reduction{Column: column, Op: op} }

// As renames the output column.
func (r Reduction) As(name string) Reduction {
	r.Name = name
	return r
}

func (r Reduction) outName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Column + "_" + string(r.Op)
}

// group is one partition: its key cells and member row indices.
type group struct {
	keys []table.Value
	rows []int
}

// partition splits t by keys in first-seen order. Rows with a missing key
// belong to no group. With no keys every row is in a single group.
func partition(t *table.Table, keys []string) ([]*group, error) {
	keyCols := make([]*table.Column, len(keys))
	for i, k := range keys {
		c, err := t.Column(k)
		if err != nil {
			return nil, err
		}
		keyCols[i] = c
	}
	byKey := make(map[string]*group)
	var order []*group
	var sb strings.Builder
rows:
	for i := 0; i < t.Len(); i++ {
		sb.Reset()
		vals := make([]table.Value, len(keyCols))
		for j, c := range keyCols {
			v := c.Value(i)
			if v.IsMissing() {
				continue rows
			}
			vals[j] = v
			sb.WriteString(v.Key())
			sb.WriteByte(0)
		}
		k := sb.String()
		g, ok := byKey[k]
		if !ok {
			g = &group{keys: vals}
			byKey[k] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, i)
	}
	return order, nil
}

// GroupBy partitions t by keys and applies each reduction per partition.
// Key columns come first, then one column per reduction. Missing cells are
// skipped; a partition without a present value reduces to missing, except
// count and size which reduce to 0.
func GroupBy(t *table.Table, keys []string, reds ...Reduction) (*table.Table, error) {
	groups, err := partition(t, keys)
	if err != nil {
		return nil, err
	}
	cols := make([]*table.Column, 0, len(keys)+len(reds))
	for j, k := range keys {
		src, _ := t.Column(k)
		vals := make([]table.Value, len(groups))
		for gi, g := range groups {
			vals[gi] = g.keys[j]
		}
		col := table.NewColumn(k, src.Kind(), vals)
		if lv := src.Levels(); lv != nil {
			col = col.WithLevels(lv)
		}
		cols = append(cols, col)
	}
	for _, r := range reds {
		src, err := t.Column(r.Column)
		if err != nil {
			return nil, err
		}
		vals := make([]table.Value, len(groups))
		for gi, g := range groups {
			v, err := reduce(src, g.rows, r.Op)
			if err != nil {
				return nil, fmt.Errorf("%s(%s): %w", r.Op, r.Column, err)
			}
			vals[gi] = v
		}
		kind := table.KindNumeric
		if r.Op == First {
			kind = src.Kind()
		}
		cols = append(cols, table.NewColumn(r.outName(), kind, vals))
	}
	return table.New(t.Name(), cols...)
}

func reduce(c *table.Column, rows []int, op Op) (table.Value, error) {
	switch op {
	case Size:
		return table.Num(float64(len(rows))), nil
	case Count:
		n := 0
		for _, i := range rows {
			if !c.Value(i).IsMissing() {
				n++
			}
		}
		return table.Num(float64(n)), nil
	case First:
		for _, i := range rows {
			if v := c.Value(i); !v.IsMissing() {
				return v, nil
			}
		}
		return table.Missing(), nil
	case NUniq:
		seen := make(map[string]struct{})
		for _, i := range rows {
			if v := c.Value(i); !v.IsMissing() {
				seen[v.Key()] = struct{}{}
			}
		}
		return table.Num(float64(len(seen))), nil
	}
	if !op.numeric() {
		return table.Missing(), fmt.Errorf("unsupported aggregation %q", op)
	}
	xs := make([]float64, 0, len(rows))
	for _, i := range rows {
		v := c.Value(i)
		if v.IsMissing() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return table.Missing(), table.ErrNotNumeric
		}
		xs = append(xs, f)
	}
	if len(xs) == 0 {
		return table.Missing(), nil
	}
	switch op {
	case Sum:
		return table.Num(floats.Sum(xs)), nil
	case Mean:
		return table.Num(stat.Mean(xs, nil)), nil
	case Min:
		return table.Num(floats.Min(xs)), nil
	case Max:
		return table.Num(floats.Max(xs)), nil
	case Std:
		if len(xs) < 2 {
			return table.Missing(), nil
		}
		return table.Num(stat.StdDev(xs, nil)), nil
	case Var:
		if len(xs) < 2 {
			return table.Missing(), nil
		}
		return table.Num(stat.Variance(xs, nil)), nil
	case Median:
		return table.Num(median(xs)), nil
	}
	return table.Missing(), fmt.Errorf("unsupported aggregation %q", op)
}

func median(xs []float64) float64 {
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	n := len(cp)
	if n%2 == 1 {
		return cp[n/2]
	}
	return (cp[n/2-1] + cp[n/2]) / 2
}
