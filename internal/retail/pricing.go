package retail

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// UnknownCategory is reported for products missing from the catalog.
const UnknownCategory = "Categorie nedefinită"

// Profit is the profit of selling qty units bought at buy and listed at sell
// after a percentage discount (0-100).
func Profit(buy, sell, qty, discountPct float64) float64 {
	return (sell*(1-discountPct/100) - buy) * qty
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 { return math.Round(x*100) / 100 }

// Catalog is the product list with categories, prices and margins.
type Catalog struct {
	Products   []string
	Categories []string
	category   map[string]string
	Buy        map[string]float64
	Sell       map[string]float64
	Margin     map[string]float64
	Table      *table.Table
}

// BuildCatalog derives the margin (sell - buy) / buy * 100 of every product.
// A zero purchase price aborts with a *table.ComputationError.
func BuildCatalog(products *table.Table) (*Catalog, error) {
	t, err := table.Derive(products, "marja_profit", func(r table.Row) (table.Value, error) {
		buy, err := r.Float("pret_achizitie")
		if err != nil {
			return table.Missing(), err
		}
		sell, err := r.Float("pret_vanzare")
		if err != nil {
			return table.Missing(), err
		}
		m, err := table.Div(sell-buy, buy)
		if err != nil {
			return table.Missing(), err
		}
		return table.Num(Round2(m * 100)), nil
	})
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		category: map[string]string{},
		Buy:      map[string]float64{},
		Sell:     map[string]float64{},
		Margin:   map[string]float64{},
		Table:    t,
	}
	seen := map[string]bool{}
	err = t.Each(func(r table.Row) error {
		name, err := r.Text("nume")
		if err != nil {
			return err
		}
		cat, _ := r.Text("categorie")
		c.Products = append(c.Products, name)
		c.category[name] = cat
		c.Buy[name], _ = r.Float("pret_achizitie")
		c.Sell[name], _ = r.Float("pret_vanzare")
		c.Margin[name], _ = r.Float("marja_profit")
		if cat != "" && !seen[cat] {
			seen[cat] = true
			c.Categories = append(c.Categories, cat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(c.Categories)
	return c, nil
}

// CategoryOf looks a product up, falling back to UnknownCategory.
func (c *Catalog) CategoryOf(product string) string {
	if cat, ok := c.category[product]; ok {
		return cat
	}
	return UnknownCategory
}

// Rating grades sales against a target.
type Rating int

const (
	BelowExpectations Rating = iota
	Satisfactory
	Good
	Excellent
)

func (r Rating) String() string {
	switch r {
	case Excellent:
		return "Performanță excelentă"
	case Good:
		return "Performanță bună"
	case Satisfactory:
		return "Performanță satisfăcătoare"
	}
	return "Performanță sub așteptări"
}

// Rate returns the achievement percentage and its rating: at least 110%
// excellent, 95% good, 80% satisfactory.
func Rate(actual, target float64) (Rating, float64, error) {
	ratio, err := table.Div(actual, target)
	if err != nil {
		return BelowExpectations, 0, err
	}
	pct := ratio * 100
	switch {
	case pct >= 110:
		return Excellent, pct, nil
	case pct >= 95:
		return Good, pct, nil
	case pct >= 80:
		return Satisfactory, pct, nil
	}
	return BelowExpectations, pct, nil
}

// TargetEvaluation is one product graded against its target.
type TargetEvaluation struct {
	Product string
	Sales   float64
	Target  float64
	Percent float64
	Rating  Rating
}

func (e TargetEvaluation) String() string {
	return fmt.Sprintf("%s - %s (%.1f%% din target)", e.Product, e.Rating, e.Percent)
}

// EvaluateTargets totals sales per product (sorted by name) and grades each
// against a target drawn uniformly from [0.9, 1.1] times its sales.
func EvaluateTargets(sales *table.Table, rng *rand.Rand) ([]TargetEvaluation, error) {
	g, err := aggregate.GroupBy(sales, []string{"produs_nume"}, aggregate.Agg("pret_total", aggregate.Sum))
	if err != nil {
		return nil, err
	}
	if g, err = table.SortBy(g, "produs_nume", false); err != nil {
		return nil, err
	}
	out := make([]TargetEvaluation, 0, g.Len())
	err = g.Each(func(r table.Row) error {
		name, _ := r.Text("produs_nume")
		total, err := r.Float("pret_total_sum")
		if err != nil {
			return err
		}
		e := TargetEvaluation{Product: name, Sales: total, Target: total * (0.9 + 0.2*rng.Float64())}
		if e.Rating, e.Percent, err = Rate(e.Sales, e.Target); err != nil {
			return fmt.Errorf("target for %s: %w", name, err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// ValueClass buckets a sale value: under 1000 small, under 5000 medium, else large.
func ValueClass(price float64) string {
	switch {
	case price < 1000:
		return "Mică"
	case price < 5000:
		return "Medie"
	}
	return "Mare"
}
