package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

func fixture(t *testing.T) *table.Table {
	t.Helper()
	tab, err := table.New("vanzari",
		table.TextColumn("categorie", []string{"Electronice", "Accesorii", "Electronice", "Electrocasnice", "Accesorii", "Electronice"}),
		table.TextColumn("luna", []string{"Ianuarie", "Ianuarie", "Februarie", "Februarie", "Martie", "Martie"}),
		table.NumColumn("pret_total", []float64{1000, 200, 3000, 800, math.NaN(), 2000}),
		table.NumColumn("profit", []float64{100, 50, 300, 80, 40, 200}),
	)
	require.NoError(t, err)
	return tab
}

func TestGroupBy_FirstSeenOrderAndReductions(t *testing.T) {
	tab := fixture(t)
	g, err := GroupBy(tab, []string{"categorie"},
		Agg("pret_total", Sum).As("vanzari_totale"),
		Agg("pret_total", Mean),
		Agg("profit", Count),
		Agg("pret_total", Count),
		Agg("profit", Min),
		Agg("profit", Max),
		Agg("profit", Std),
		Agg("profit", Median),
	)
	require.NoError(t, err)

	cat, _ := g.Column("categorie")
	assert.Equal(t, []string{"Electronice", "Accesorii", "Electrocasnice"}, cat.Strings())

	sums, _ := g.Column("vanzari_totale")
	assert.Equal(t, []float64{6000, 200, 800}, sums.FloatsOrNaN())

	means, _ := g.Floats("pret_total_mean")
	assert.Equal(t, []float64{2000, 200, 800}, means)

	counts, _ := g.Floats("profit_count")
	assert.Equal(t, []float64{3, 2, 1}, counts)
	priceCounts, _ := g.Floats("pret_total_count")
	assert.Equal(t, []float64{3, 1, 1}, priceCounts)

	mins, _ := g.Floats("profit_min")
	maxs, _ := g.Floats("profit_max")
	assert.Equal(t, []float64{100, 40, 80}, mins)
	assert.Equal(t, []float64{300, 50, 80}, maxs)

	std, _ := g.Column("profit_std")
	assert.InDelta(t, 100.0, std.FloatsOrNaN()[0], 1e-9)
	assert.True(t, std.Value(2).IsMissing(), "std of one value is missing")

	med, _ := g.Floats("profit_median")
	assert.Equal(t, []float64{200, 45, 80}, med)
}

func TestGroupBy_AllMissingPartitionIsMissing(t *testing.T) {
	tab, err := table.New("t",
		table.TextColumn("k", []string{"a", "b", "b"}),
		table.NumColumn("x", []float64{1, math.NaN(), math.NaN()}),
	)
	require.NoError(t, err)
	g, err := GroupBy(tab, []string{"k"}, Agg("x", Sum), Agg("x", Count))
	require.NoError(t, err)
	sum, _ := g.Column("x_sum")
	assert.False(t, sum.Value(0).IsMissing())
	assert.True(t, sum.Value(1).IsMissing(), "sum over nothing must not be 0")
	counts, _ := g.Floats("x_count")
	assert.Equal(t, []float64{1, 0}, counts)
}

func TestGroupBy_PartitionsRows(t *testing.T) {
	tab, err := table.New("t",
		table.NewColumn("k", table.KindCategorical, []table.Value{
			table.Text("a"), table.Missing(), table.Text("b"), table.Text("a"), table.Text("c"),
		}),
		table.NumColumn("x", []float64{1, 2, 3, 4, 5}),
	)
	require.NoError(t, err)
	g, err := GroupBy(tab, []string{"k"}, Agg("x", Size).As("n"))
	require.NoError(t, err)
	ns, _ := g.Floats("n")
	total := 0.0
	for _, n := range ns {
		total += n
	}
	assert.Equal(t, float64(tab.Len()-1), total)
}

func TestGroupBy_ConstantKeySum(t *testing.T) {
	tab, err := table.New("t", table.NumColumn("price", []float64{100, 200, 300}))
	require.NoError(t, err)
	tab, err = table.Derive(tab, "all", func(table.Row) (table.Value, error) { return table.Text("all"), nil })
	require.NoError(t, err)
	g, err := GroupBy(tab, []string{"all"}, Agg("price", Sum))
	require.NoError(t, err)
	require.Equal(t, 1, g.Len())
	sums, _ := g.Floats("price_sum")
	assert.Equal(t, []float64{600}, sums)

	whole, err := GroupBy(tab, nil, Agg("price", Sum))
	require.NoError(t, err)
	sums, _ = whole.Floats("price_sum")
	assert.Equal(t, []float64{600}, sums)
}

func TestGroupBy_Errors(t *testing.T) {
	tab := fixture(t)
	_, err := GroupBy(tab, []string{"oras"}, Agg("profit", Sum))
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
	_, err = GroupBy(tab, []string{"luna"}, Agg("categorie", Mean))
	assert.ErrorIs(t, err, table.ErrNotNumeric)
	_, err = ParseOp("mode")
	assert.Error(t, err)
	op, err := ParseOp("AVG")
	require.NoError(t, err)
	assert.Equal(t, Mean, op)
}

func TestPivotTable_CrossTab(t *testing.T) {
	tab := fixture(t)
	p, err := PivotTable(tab, "luna", "categorie", "profit", Sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"luna", "Electronice", "Accesorii", "Electrocasnice"}, p.Columns())
	luna, _ := p.Column("luna")
	assert.Equal(t, []string{"Ianuarie", "Februarie", "Martie"}, luna.Strings())

	el, _ := p.Floats("Electronice")
	assert.Equal(t, []float64{100, 300, 200}, el)
	ec, _ := p.Column("Electrocasnice")
	assert.True(t, ec.Value(0).IsMissing())
	f, _ := ec.Value(1).Float()
	assert.Equal(t, 80.0, f)
}

func TestPivot_UsesLevelsAndRejectsDuplicates(t *testing.T) {
	tab, err := table.New("t",
		table.TextColumn("diet", []string{"Good", "Poor", "Good"}),
		table.TextColumn("bin", []string{"4-6", "0-2", "0-2"}).WithLevels([]string{"0-2", "2-4", "4-6"}),
		table.NumColumn("score", []float64{80, 50, 70}),
	)
	require.NoError(t, err)
	p, err := Pivot(tab, "diet", "bin", "score")
	require.NoError(t, err)
	assert.Equal(t, []string{"diet", "0-2", "4-6"}, p.Columns())

	dup, _ := table.New("t",
		table.TextColumn("a", []string{"x", "x"}),
		table.TextColumn("b", []string{"y", "y"}),
		table.NumColumn("v", []float64{1, 2}),
	)
	_, err = Pivot(dup, "a", "b", "v")
	assert.Error(t, err)
}

func TestPivot_HeaderClashingWithIndex(t *testing.T) {
	tab, err := table.New("t",
		table.TextColumn("luna", []string{"Ianuarie", "Martie"}),
		table.TextColumn("eticheta", []string{"luna", "an"}),
		table.NumColumn("v", []float64{1, 2}),
	)
	require.NoError(t, err)
	p, err := Pivot(tab, "luna", "eticheta", "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"luna", "eticheta_luna", "an"}, p.Columns())
	got, _ := p.Column("eticheta_luna")
	f, _ := got.Value(0).Float()
	assert.Equal(t, 1.0, f)

	clash, err := table.New("t",
		table.TextColumn("k", []string{"a", "b", "c"}),
		table.TextColumn("c", []string{"c_k", "k", "x"}),
		table.NumColumn("v", []float64{1, 2, 3}),
	)
	require.NoError(t, err)
	_, err = Pivot(clash, "k", "c", "v")
	assert.ErrorContains(t, err, "clashes")
}

func TestCorrelation_PairwiseComplete(t *testing.T) {
	tab, err := table.New("t",
		table.NumColumn("a", []float64{1, 2, 3, 4, math.NaN()}),
		table.NumColumn("b", []float64{2, 4, 6, 8, 100}),
		table.NumColumn("c", []float64{4, 3, 2, 1, 0}),
		table.TextColumn("s", []string{"x", "y", "z", "w", "v"}),
	)
	require.NoError(t, err)
	m, err := Correlation(tab)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, m.Columns)
	ab, ok := m.At("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 1.0, ab, 1e-12)
	ac, _ := m.At("a", "c")
	assert.InDelta(t, -1.0, ac, 1e-12)
	assert.Equal(t, 4, m.Pairs[0][1])
}

func TestValueCountsNullCountsShare(t *testing.T) {
	tab := fixture(t)
	vc, err := ValueCounts(tab, "categorie")
	require.NoError(t, err)
	cats, _ := vc.Column("categorie")
	assert.Equal(t, "Electronice", cats.Value(0).String())
	counts, _ := vc.Floats("count")
	assert.Equal(t, []float64{3, 2, 1}, counts)

	nc, err := NullCounts(tab)
	require.NoError(t, err)
	missing, _ := nc.Floats("missing")
	assert.Equal(t, []float64{0, 0, 1, 0}, missing)

	g, _ := GroupBy(tab, []string{"categorie"}, Agg("profit", Sum).As("profit"))
	sh, err := Share(g, "profit", "procent")
	require.NoError(t, err)
	pct, _ := sh.Floats("procent")
	assert.InDelta(t, 100.0, pct[0]+pct[1]+pct[2], 1e-9)
}
