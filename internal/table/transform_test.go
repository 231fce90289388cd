package table

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesFixture(t *testing.T) *Table {
	t.Helper()
	tab, err := New("vanzari",
		NumColumn("id", []float64{1, 2, 3, 4, 5}),
		TextColumn("luna", []string{"Ianuarie", "Ianuarie", "Februarie", "Martie", "Mai"}),
		TextColumn("categorie", []string{"Electronice", "Accesorii", "Electronice", "Electrocasnice", "Accesorii"}),
		NumColumn("pret_total", []float64{900, 2500, 1500, 700, 300}),
		NumColumn("discount", []float64{0, 15, 5, 10, math.NaN()}),
	)
	require.NoError(t, err)
	return tab
}

func TestDerive_MarginScenario(t *testing.T) {
	tab, err := New("p",
		NumColumn("price", []float64{100, 200, 300}),
		NumColumn("cost", []float64{50, 100, 300}),
	)
	require.NoError(t, err)

	out, err := Derive(tab, "margin", func(r Row) (Value, error) {
		p, err := r.Float("price")
		if err != nil {
			return Missing(), err
		}
		c, err := r.Float("cost")
		if err != nil {
			return Missing(), err
		}
		m, err := Div(p-c, c)
		if err != nil {
			return Missing(), err
		}
		return Num(m * 100), nil
	})
	require.NoError(t, err)
	xs, err := out.Floats("margin")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 100, 0}, xs)
	assert.False(t, tab.Has("margin"), "input table must be untouched")
}

func TestDerive_DivisionByZeroAborts(t *testing.T) {
	tab, err := New("p", NumColumn("a", []float64{1, 2}), NumColumn("b", []float64{1, 0}))
	require.NoError(t, err)
	_, err = Derive(tab, "ratio", func(r Row) (Value, error) {
		a, _ := r.Float("a")
		b, _ := r.Float("b")
		q, err := Div(a, b)
		return Num(q), err
	})
	var ce *ComputationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Row)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestDerive_UnknownColumn(t *testing.T) {
	tab := salesFixture(t)
	_, err := Derive(tab, "x", func(r Row) (Value, error) {
		_, err := r.Float("nope")
		return Missing(), err
	})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestBin_HalfOpenIntervals(t *testing.T) {
	tab, err := New("s", NumColumn("hours", []float64{1, 3, 7, 11, 2, 10, -1, math.NaN()}))
	require.NoError(t, err)
	out, err := Bin(tab, "hours", "hours_bin", []float64{0, 2, 4, 6, 8, 10}, nil)
	require.NoError(t, err)
	bins, err := out.Column("hours_bin")
	require.NoError(t, err)

	want := []string{"0-2", "2-4", "6-8", "", "2-4", "", "", ""}
	for i, w := range want {
		v := bins.Value(i)
		if w == "" {
			assert.True(t, v.IsMissing(), "row %d = %v, want missing", i, v)
			continue
		}
		assert.Equal(t, w, v.String(), "row %d", i)
	}
	assert.Equal(t, []string{"0-2", "2-4", "4-6", "6-8", "8-10"}, bins.Levels())
	assert.Equal(t, KindCategorical, bins.Kind())
}

func TestBin_RejectsBadInput(t *testing.T) {
	tab, _ := New("s", NumColumn("x", []float64{1}))
	_, err := Bin(tab, "x", "", []float64{0, 2, 1}, nil)
	assert.Error(t, err)
	_, err = Bin(tab, "x", "", []float64{0, 1, 2}, []string{"only-one"})
	assert.Error(t, err)
	_, err = Bin(tab, "y", "", []float64{0, 1}, nil)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFilter_CompoundPredicates(t *testing.T) {
	tab := salesFixture(t)

	out, err := Filter(tab, Le("discount", 10))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len(), "missing discount must not pass a comparison")

	out, err = Filter(tab, Not(And(Eq("luna", "Ianuarie"), Lt("pret_total", 1000))))
	require.NoError(t, err)
	ids, _ := out.Floats("id")
	assert.Equal(t, []float64{2, 3, 4, 5}, ids)

	out, err = Filter(tab, Or(Eq("categorie", "Electrocasnice"), Gt("pret_total", 2000)))
	require.NoError(t, err)
	ids, _ = out.Floats("id")
	assert.Equal(t, []float64{2, 4}, ids)

	out, err = Filter(tab, In("luna", "Martie", "Mai"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())

	out, err = Filter(tab, IsMissing("discount"))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())

	out, err = Filter(tab, Ne("discount", 0))
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())

	_, err = Filter(tab, And(Eq("luna", "Mai"), Gt("missing_col", 1)))
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestDropSelectRename(t *testing.T) {
	tab := salesFixture(t)

	out, err := Drop(tab, "id", "discount")
	require.NoError(t, err)
	assert.Equal(t, []string{"luna", "categorie", "pret_total"}, out.Columns())
	assert.Equal(t, 5, out.Len())

	_, err = Drop(tab, "id", "cost_total")
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cost_total", ce.Column)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	sel, err := Select(tab, "pret_total", "luna")
	require.NoError(t, err)
	assert.Equal(t, []string{"pret_total", "luna"}, sel.Columns())

	ren, err := Rename(tab, map[string]string{"luna": "month"})
	require.NoError(t, err)
	assert.True(t, ren.Has("month"))
	assert.False(t, ren.Has("luna"))
}

func TestImpute_Strategies(t *testing.T) {
	tab, err := New("v",
		NewColumn("client_id", KindIdentifier, []Value{Num(101), Missing(), Num(104), Missing()}),
		NumColumn("filiala_id", []float64{1, 2, 3, 4}),
	)
	require.NoError(t, err)

	out, err := Impute(tab, "client_id", "", Constant{Value: Num(0)})
	require.NoError(t, err)
	xs, _ := out.Floats("client_id")
	assert.Equal(t, []float64{101, 0, 104, 0}, xs)

	out, err = Impute(tab, "client_id", "client_mean", Mean{Round: math.Trunc})
	require.NoError(t, err)
	xs, _ = out.Floats("client_mean")
	assert.Equal(t, []float64{101, 102, 104, 102}, xs)
	orig, _ := out.Column("client_id")
	assert.Equal(t, 2, orig.MissingCount(), "source column must keep its gaps")

	out, err = Impute(tab, "client_id", "", Formula{Fn: func(r Row) (Value, error) {
		b, err := r.Float("filiala_id")
		if err != nil {
			return Missing(), err
		}
		return Num(b * 1000), nil
	}})
	require.NoError(t, err)
	xs, _ = out.Floats("client_id")
	assert.Equal(t, []float64{101, 2000, 104, 4000}, xs)

	dropped, err := DropMissing(tab, "client_id")
	require.NoError(t, err)
	assert.Equal(t, 2, dropped.Len())
}

func TestOneHot_SortedDropFirst(t *testing.T) {
	tab := salesFixture(t)
	out, err := OneHot(tab, []string{"categorie"}, true)
	require.NoError(t, err)

	assert.False(t, out.Has("categorie"))
	assert.False(t, out.Has("categorie_Accesorii"))
	cols := out.Columns()
	assert.Equal(t, []string{"categorie_Electrocasnice", "categorie_Electronice"}, cols[len(cols)-2:])

	full, err := OneHot(tab, []string{"categorie"}, false)
	require.NoError(t, err)
	for i := 0; i < full.Len(); i++ {
		sum := 0.0
		for _, name := range []string{"categorie_Accesorii", "categorie_Electrocasnice", "categorie_Electronice"} {
			f, err := full.Row(i).Float(name)
			require.NoError(t, err)
			sum += f
		}
		assert.Equal(t, 1.0, sum, "row %d", i)
	}
}

func TestEncoder_UnseenCategoryIsAllZeros(t *testing.T) {
	train := salesFixture(t)
	enc, err := FitOneHot(train, []string{"categorie"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"categorie_Electrocasnice", "categorie_Electronice"}, enc.Columns())

	next, err := New("new", TextColumn("categorie", []string{"Jucarii"}))
	require.NoError(t, err)
	out, err := enc.Transform(next)
	require.NoError(t, err)
	for _, name := range enc.Columns() {
		f, err := out.Row(0).Float(name)
		require.NoError(t, err)
		assert.Zero(t, f)
	}
}

func TestSortHeadSlice(t *testing.T) {
	tab := salesFixture(t)
	sorted, err := SortBy(tab, "discount", true)
	require.NoError(t, err)
	ids, _ := sorted.Floats("id")
	assert.Equal(t, []float64{2, 4, 3, 1, 5}, ids)

	assert.Equal(t, 2, Head(tab, 2).Len())
	assert.Equal(t, 5, Head(tab, 50).Len())
	mid := Slice(tab, 1, 3)
	ids, _ = mid.Floats("id")
	assert.Equal(t, []float64{2, 3}, ids)
}

func TestSortBy_FollowsBinLevels(t *testing.T) {
	tab, err := New("ore", NumColumn("x", []float64{12, 3, 7, 15, 1, 25}))
	require.NoError(t, err)
	binned, err := Bin(tab, "x", "", []float64{0, 5, 10, 20}, nil)
	require.NoError(t, err)

	sorted, err := SortBy(binned, "x_bin", false)
	require.NoError(t, err)
	c, _ := sorted.Column("x_bin")
	assert.Equal(t, []string{"0-5", "0-5", "5-10", "10-20", "10-20"}, c.Strings()[:5])
	assert.True(t, c.Value(5).IsMissing())

	desc, err := SortBy(binned, "x_bin", true)
	require.NoError(t, err)
	c, _ = desc.Column("x_bin")
	assert.Equal(t, "10-20", c.Value(0).String())
	assert.Equal(t, "0-5", c.Value(4).String())

	// Values outside the declared levels go after them.
	odd, err := New("o", TextColumn("k", []string{"zz", "b", "a"}).WithLevels([]string{"b", "a"}))
	require.NoError(t, err)
	odd, err = SortBy(odd, "k", false)
	require.NoError(t, err)
	c, _ = odd.Column("k")
	assert.Equal(t, []string{"b", "a", "zz"}, c.Strings())
}
