package table

import "fmt"

// JoinKind selects which unmatched rows survive a join.
type JoinKind int

const (
	LeftJoin JoinKind = iota
	InnerJoin
)

func (k JoinKind) String() string {
	if k == InnerJoin {
		return "inner"
	}
	return "left"
}

// JoinOptions configures Join. Zero Suffixes default to "_x" and "_y".
type JoinOptions struct {
	How      JoinKind
	Suffixes [2]string
}

// Join matches left[leftKey] against right[rightKey]. Left joins keep every
// left row in order, with missing right cells when nothing matches; inner
// joins keep matched rows only. A left row matching several right rows is
// repeated once per match. Equal key names are emitted once; any other
// shared column name gets the suffixes.
func Join(left, right *Table, leftKey, rightKey string, opt JoinOptions) (*Table, error) {
	lk, err := left.Column(leftKey)
	if err != nil {
		return nil, err
	}
	rk, err := right.Column(rightKey)
	if err != nil {
		return nil, err
	}
	sx, sy := opt.Suffixes[0], opt.Suffixes[1]
	if sx == "" && sy == "" {
		sx, sy = "_x", "_y"
	}

	lookup := make(map[string][]int)
	for i, v := range rk.values {
		if v.IsMissing() {
			continue
		}
		lookup[v.Key()] = append(lookup[v.Key()], i)
	}

	var li, ri []int
	for i, v := range lk.values {
		var matches []int
		if !v.IsMissing() {
			matches = lookup[v.Key()]
		}
		if len(matches) == 0 {
			if opt.How == LeftJoin {
				li = append(li, i)
				ri = append(ri, -1)
			}
			continue
		}
		for _, j := range matches {
			li = append(li, i)
			ri = append(ri, j)
		}
	}

	sameKey := leftKey == rightKey
	rightNames := make(map[string]struct{})
	for _, c := range right.cols {
		if sameKey && c.name == rightKey {
			continue
		}
		rightNames[c.name] = struct{}{}
	}
	leftNames := make(map[string]struct{})
	for _, c := range left.cols {
		leftNames[c.name] = struct{}{}
	}

	var cols []*Column
	for _, c := range left.cols {
		name := c.name
		if _, clash := rightNames[name]; clash {
			name += sx
		}
		vals := make([]Value, len(li))
		for k, i := range li {
			vals[k] = c.values[i]
		}
		cols = append(cols, &Column{name: name, kind: c.kind, values: vals, levels: c.levels})
	}
	for _, c := range right.cols {
		if sameKey && c.name == rightKey {
			continue
		}
		name := c.name
		if _, clash := leftNames[name]; clash {
			name += sy
		}
		vals := make([]Value, len(ri))
		for k, j := range ri {
			if j >= 0 {
				vals[k] = c.values[j]
			}
		}
		cols = append(cols, &Column{name: name, kind: c.kind, values: vals, levels: c.levels})
	}
	out, err := New(left.name, cols...)
	if err != nil {
		return nil, fmt.Errorf("%s join %s with %s: %w", opt.How, left.name, right.name, err)
	}
	return out, nil
}
