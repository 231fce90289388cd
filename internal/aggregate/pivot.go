package aggregate

import (
	"fmt"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Pivot spreads an already aggregated table into a cross-tab: one row per
// index value, one column per distinct value of column, cells from value.
// Column order follows the declared levels of column when it has them,
// otherwise first-seen order. A header that clashes with the index name is
// prefixed with "column_". A repeated (index, column) pair is an error.
func Pivot(t *table.Table, index, column, value string) (*table.Table, error) {
	idxCol, err := t.Column(index)
	if err != nil {
		return nil, err
	}
	keyCol, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	valCol, err := t.Column(value)
	if err != nil {
		return nil, err
	}

	var headers []string
	headerPos := make(map[string]int)
	if lv := keyCol.Levels(); lv != nil {
		present := make(map[string]bool)
		for _, v := range keyCol.Unique() {
			present[v.String()] = true
		}
		for _, l := range lv {
			if present[l] {
				headerPos[l] = len(headers)
				headers = append(headers, l)
			}
		}
	}
	for _, v := range keyCol.Unique() {
		s := v.String()
		if _, ok := headerPos[s]; !ok {
			headerPos[s] = len(headers)
			headers = append(headers, s)
		}
	}

	rowPos := make(map[string]int)
	var rowKeys []table.Value
	var cells [][]table.Value
	var filled [][]bool
	for i := 0; i < t.Len(); i++ {
		iv, kv := idxCol.Value(i), keyCol.Value(i)
		if iv.IsMissing() || kv.IsMissing() {
			continue
		}
		r, ok := rowPos[iv.Key()]
		if !ok {
			r = len(rowKeys)
			rowPos[iv.Key()] = r
			rowKeys = append(rowKeys, iv)
			cells = append(cells, make([]table.Value, len(headers)))
			filled = append(filled, make([]bool, len(headers)))
		}
		c := headerPos[kv.String()]
		if filled[r][c] {
			return nil, fmt.Errorf("pivot %s x %s: duplicate entry for (%s, %s)", index, column, iv, kv)
		}
		cells[r][c] = valCol.Value(i)
		filled[r][c] = true
	}

	names, err := headerNames(index, column, headers)
	if err != nil {
		return nil, err
	}
	idxOut := table.NewColumn(index, idxCol.Kind(), rowKeys)
	if lv := idxCol.Levels(); lv != nil {
		idxOut = idxOut.WithLevels(lv)
	}
	cols := []*table.Column{idxOut}
	for c := range headers {
		vals := make([]table.Value, len(rowKeys))
		for r := range rowKeys {
			vals[r] = cells[r][c]
		}
		cols = append(cols, table.NewColumn(names[c], valCol.Kind(), vals))
	}
	return table.New(t.Name(), cols...)
}

func headerNames(index, column string, headers []string) ([]string, error) {
	used := map[string]bool{index: true}
	out := make([]string, len(headers))
	for i, h := range headers {
		name := h
		if used[name] {
			name = column + "_" + h
		}
		if used[name] {
			return nil, fmt.Errorf("pivot %s x %s: value %q clashes with column %q", index, column, h, name)
		}
		used[name] = true
		out[i] = name
	}
	return out, nil
}

// PivotTable groups by (index, column), reduces value with op and pivots.
func PivotTable(t *table.Table, index, column, value string, op Op) (*table.Table, error) {
	g, err := GroupBy(t, []string{index, column}, Agg(value, op).As(value))
	if err != nil {
		return nil, err
	}
	return Pivot(g, index, column, value)
}
