package retail

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// CategoryPerformance totals sales, profit and transactions per category with
// the profit margin, most profitable first.
func CategoryPerformance(sales *table.Table) (*table.Table, error) {
	g, err := aggregate.GroupBy(sales, []string{"categorie"},
		aggregate.Agg("pret_total", aggregate.Sum).As("vanzari_totale"),
		aggregate.Agg("profit", aggregate.Sum).As("profit_total"),
		aggregate.Agg("id", aggregate.Count).As("numar_tranzactii"),
	)
	if err != nil {
		return nil, err
	}
	g, err = table.Derive(g, "marja_profit", func(r table.Row) (table.Value, error) {
		p, err := r.Float("profit_total")
		if err != nil {
			return table.Missing(), err
		}
		s, err := r.Float("vanzari_totale")
		if err != nil {
			return table.Missing(), err
		}
		m, err := table.Div(p, s)
		if err != nil {
			return table.Missing(), err
		}
		return table.Num(Round2(m * 100)), nil
	})
	if err != nil {
		return nil, err
	}
	return table.SortBy(g.Named("performanta_categorii"), "profit_total", true)
}

// MonthStat is one month of the sales evolution. Growth is NaN for the first
// month and whenever either month has no sales.
type MonthStat struct {
	Month      string
	Sales      float64
	Present    bool
	Growth     float64
	Cumulative float64
}

// MonthlySales totals sales per month in the given order, with
// month-over-month growth and running totals.
func MonthlySales(sales *table.Table, months []string) ([]MonthStat, error) {
	g, err := aggregate.GroupBy(sales, []string{"luna"}, aggregate.Agg("pret_total", aggregate.Sum).As("vanzari"))
	if err != nil {
		return nil, err
	}
	totals := map[string]float64{}
	err = g.Each(func(r table.Row) error {
		m, _ := r.Text("luna")
		v, err := r.Float("vanzari")
		if err == nil {
			totals[m] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]MonthStat, len(months))
	cum := 0.0
	for i, m := range months {
		s := MonthStat{Month: m, Growth: math.NaN()}
		s.Sales, s.Present = totals[m]
		if s.Present {
			cum += s.Sales
		}
		s.Cumulative = cum
		if i > 0 && s.Present && out[i-1].Present {
			if g, err := table.Div(s.Sales-out[i-1].Sales, out[i-1].Sales); err == nil {
				s.Growth = g * 100
			}
		}
		out[i] = s
	}
	return out, nil
}

// MonthlyByYear totals sales per (an, luna) ordered by year and then by the
// position of the month in months; unknown months go last.
func MonthlyByYear(sales *table.Table, months []string) (labels []string, values []float64, err error) {
	g, err := aggregate.GroupBy(sales, []string{"an", "luna"}, aggregate.Agg("pret_total", aggregate.Sum).As("vanzari"))
	if err != nil {
		return nil, nil, err
	}
	pos := map[string]int{}
	for i, m := range months {
		pos[m] = i
	}
	type entry struct {
		year  float64
		month string
		v     float64
	}
	var es []entry
	err = g.Each(func(r table.Row) error {
		y, _ := r.Float("an")
		m, _ := r.Text("luna")
		v, err := r.Float("vanzari")
		if err != nil {
			return nil
		}
		es = append(es, entry{y, m, v})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	rank := func(m string) int {
		if p, ok := pos[m]; ok {
			return p
		}
		return len(months)
	}
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].year != es[j].year {
			return es[i].year < es[j].year
		}
		return rank(es[i].month) < rank(es[j].month)
	})
	for _, e := range es {
		labels = append(labels, fmt.Sprintf("%s %g", e.month, e.year))
		values = append(values, e.v)
	}
	return labels, values, nil
}

// CategoryMargins is the margin (sales - cost) / sales * 100 per category.
func CategoryMargins(sales *table.Table) (*table.Table, error) {
	g, err := aggregate.GroupBy(sales, []string{"categorie"},
		aggregate.Agg("pret_total", aggregate.Sum),
		aggregate.Agg("cost_total", aggregate.Sum),
	)
	if err != nil {
		return nil, err
	}
	return table.Derive(g, "marja_profit_procent", func(r table.Row) (table.Value, error) {
		s, err := r.Float("pret_total_sum")
		if err != nil {
			return table.Missing(), err
		}
		c, err := r.Float("cost_total_sum")
		if err != nil {
			return table.Missing(), err
		}
		m, err := table.Div(s-c, s)
		if err != nil {
			return table.Missing(), err
		}
		return table.Num(Round2(m * 100)), nil
	})
}

// Enrich adds the VAT, the raised unit price with recomputed totals and
// profit, and the value class of every sale.
func Enrich(sales *table.Table, vatRate, priceIncrease float64) (*table.Table, error) {
	steps := []struct {
		name string
		fn   table.DeriveFunc
	}{
		{"tva", func(r table.Row) (table.Value, error) {
			v, err := r.Float("pret_total")
			return table.Num(v * vatRate), err
		}},
		{"pret_unitar_nou", func(r table.Row) (table.Value, error) {
			v, err := r.Float("pret_unitar")
			return table.Num(v * (1 + priceIncrease)), err
		}},
		{"pret_total_nou", func(r table.Row) (table.Value, error) {
			p, err := r.Float("pret_unitar_nou")
			if err != nil {
				return table.Missing(), err
			}
			q, err := r.Float("cantitate")
			return table.Num(p * q), err
		}},
		{"profit_nou", func(r table.Row) (table.Value, error) {
			p, err := r.Float("pret_total_nou")
			if err != nil {
				return table.Missing(), err
			}
			c, err := r.Float("cost_total")
			return table.Num(p - c), err
		}},
		{"categorie_valoare", func(r table.Row) (table.Value, error) {
			v, err := r.Float("pret_total")
			if err != nil {
				return table.Missing(), err
			}
			return table.Text(ValueClass(v)), nil
		}},
	}
	t := sales
	for _, s := range steps {
		var err error
		if t, err = table.Derive(t, s.name, s.fn); err != nil {
			return nil, err
		}
	}
	return t.Named("vanzari_modificate"), nil
}
