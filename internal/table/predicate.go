package table

import "fmt"

// Predicate selects rows. Columns lists every column the predicate reads so
// Filter can check the schema once up front.
type Predicate interface {
	Columns() []string
	Eval(r Row) bool
	String() string
}

type cmpOp int

const (
	opEq cmpOp = iota
	opLt
	opLe
	opGt
	opGe
)

var opSymbols = map[cmpOp]string{opEq: "==", opLt: "<", opLe: "<=", opGt: ">", opGe: ">="}

type comparison struct {
	column string
	op     cmpOp
	value  Value
}

func (c comparison) Columns() []string { return []string{c.column} }

func (c comparison) Eval(r Row) bool {
	v, err := r.Get(c.column)
	if err != nil || v.IsMissing() {
		return false
	}
	if c.op == opEq {
		return v.Equal(c.value)
	}
	cmp, ok := v.Compare(c.value)
	if !ok {
		return false
	}
	switch c.op {
	case opLt:
		return cmp < 0
	case opLe:
		return cmp <= 0
	case opGt:
		return cmp > 0
	case opGe:
		return cmp >= 0
	}
	return false
}

func (c comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.column, opSymbols[c.op], c.value)
}

// Eq matches rows whose column equals v. v is converted with ValueOf.
func Eq(column string, v any) Predicate { return comparison{column, opEq, ValueOf(v)} }

// Ne is Not(Eq): rows with a missing cell match.
func Ne(column string, v any) Predicate { return Not(Eq(column, v)) }

func Lt(column string, v any) Predicate { return comparison{column, opLt, ValueOf(v)} }
func Le(column string, v any) Predicate { return comparison{column, opLe, ValueOf(v)} }
func Gt(column string, v any) Predicate { return comparison{column, opGt, ValueOf(v)} }
func Ge(column string, v any) Predicate { return comparison{column, opGe, ValueOf(v)} }

// In matches rows whose column equals any of vs.
func In(column string, vs ...any) Predicate {
	ps := make([]Predicate, len(vs))
	for i, v := range vs {
		ps[i] = Eq(column, v)
	}
	return or{column: column, ps: ps}
}

type isMissing struct{ column string }

func (m isMissing) Columns() []string { return []string{m.column} }
func (m isMissing) String() string    { return m.column + " is missing" }
func (m isMissing) Eval(r Row) bool {
	v, err := r.Get(m.column)
	return err == nil && v.IsMissing()
}

// IsMissing matches rows with an absent cell in column.
func IsMissing(column string) Predicate { return isMissing{column} }

type and []Predicate

func (a and) Columns() []string { return collectColumns(a) }
func (a and) String() string    { return joinPredicates(a, " & ") }
func (a and) Eval(r Row) bool {
	for _, p := range a {
		if !p.Eval(r) {
			return false
		}
	}
	return true
}

type or struct {
	column string
	ps     []Predicate
}

func (o or) Columns() []string {
	if o.column != "" {
		return []string{o.column}
	}
	return collectColumns(o.ps)
}
func (o or) String() string { return joinPredicates(o.ps, " | ") }
func (o or) Eval(r Row) bool {
	for _, p := range o.ps {
		if p.Eval(r) {
			return true
		}
	}
	return false
}

type not struct{ p Predicate }

func (n not) Columns() []string { return n.p.Columns() }
func (n not) String() string    { return "~(" + n.p.String() + ")" }
func (n not) Eval(r Row) bool   { return !n.p.Eval(r) }

// And matches rows satisfying every predicate.
func And(ps ...Predicate) Predicate { return and(ps) }

// Or matches rows satisfying at least one predicate.
func Or(ps ...Predicate) Predicate { return or{ps: ps} }

// Not negates p.
func Not(p Predicate) Predicate { return not{p} }

func collectColumns(ps []Predicate) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Columns()...)
	}
	return out
}

func joinPredicates(ps []Predicate, sep string) string {
	s := "("
	for i, p := range ps {
		if i > 0 {
			s += sep
		}
		s += p.String()
	}
	return s + ")"
}

// Filter keeps the rows matching pred, in their original order.
func Filter(t *Table, pred Predicate) (*Table, error) {
	if err := t.Require(pred.Columns()...); err != nil {
		return nil, err
	}
	var keep []int
	for i := 0; i < t.rows; i++ {
		if pred.Eval(Row{t: t, i: i}) {
			keep = append(keep, i)
		}
	}
	return t.take(keep), nil
}
