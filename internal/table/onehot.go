package table

import (
	"fmt"
	"sort"
)

// Encoder remembers the categories seen at fit time so new tables are
// encoded with the same indicator columns in the same order.
type Encoder struct {
	DropFirst  bool
	categories map[string][]Value
	order      []string
}

// FitOneHot collects the sorted distinct values of each column.
func FitOneHot(t *Table, columns []string, dropFirst bool) (*Encoder, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	enc := &Encoder{DropFirst: dropFirst, categories: make(map[string][]Value, len(columns))}
	for _, name := range columns {
		c, _ := t.Column(name)
		cats := c.Unique()
		sort.SliceStable(cats, func(i, j int) bool {
			cmp, ok := cats[i].Compare(cats[j])
			if !ok {
				return cats[i].String() < cats[j].String()
			}
			return cmp < 0
		})
		if dropFirst && len(cats) > 0 {
			cats = cats[1:]
		}
		enc.categories[name] = cats
		enc.order = append(enc.order, name)
	}
	return enc, nil
}

// Columns lists the indicator column names the encoder produces.
func (e *Encoder) Columns() []string {
	var out []string
	for _, name := range e.order {
		for _, v := range e.categories[name] {
			out = append(out, indicatorName(name, v))
		}
	}
	return out
}

// Transform drops each encoded column and appends its 0/1 indicators. A
// missing or unseen category gets all zeros.
func (e *Encoder) Transform(t *Table) (*Table, error) {
	if err := t.Require(e.order...); err != nil {
		return nil, err
	}
	out, err := Drop(t, e.order...)
	if err != nil {
		return nil, err
	}
	for _, name := range e.order {
		src, _ := t.Column(name)
		for _, cat := range e.categories[name] {
			vals := make([]Value, t.rows)
			for i, v := range src.values {
				if v.Equal(cat) {
					vals[i] = Num(1)
				} else {
					vals[i] = Num(0)
				}
			}
			col := &Column{name: indicatorName(name, cat), kind: KindNumeric, values: vals}
			if out.Has(col.name) {
				return nil, fmt.Errorf("one-hot %q: %w: %q", name, ErrDuplicateColumn, col.name)
			}
			out, err = out.WithColumn(col)
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// OneHot fits and applies an encoder in one step.
func OneHot(t *Table, columns []string, dropFirst bool) (*Table, error) {
	enc, err := FitOneHot(t, columns, dropFirst)
	if err != nil {
		return nil, err
	}
	return enc.Transform(t)
}

func indicatorName(column string, v Value) string {
	return column + "_" + v.String()
}
