package retail

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// DummyColumns are one-hot encoded (reference category dropped) for both models.
var DummyColumns = []string{"categorie", "metoda_plata"}

// Scenario is a named what-if input. Features not listed are zero; the
// intercept column is set automatically.
type Scenario struct {
	Name     string
	Features map[string]float64
}

// Vector lays the scenario out in the order of features.
func (s Scenario) Vector(features []string) []float64 {
	x := make([]float64, len(features))
	for j, f := range features {
		if f == model.ConstName {
			x[j] = 1
			continue
		}
		x[j] = s.Features[f]
	}
	return x
}

// Prediction is a scenario with the model output.
type Prediction struct {
	Scenario string
	Value    float64
}

// DiscountScenarios are scored by the discount model.
var DiscountScenarios = []Scenario{
	{Name: "Scenariu 1 (Electrocasnice, 1000 lei, numerar)", Features: map[string]float64{
		"pret_total": 1000, "cantitate": 1, "categorie_Electrocasnice": 1, "metoda_plata_Numerar": 1,
	}},
	{Name: "Scenariu 2 (Electronice, 5000 lei, card)", Features: map[string]float64{
		"pret_total": 5000, "cantitate": 2, "categorie_Electronice": 1,
	}},
	{Name: "Scenariu 3 (Accesorii, 500 lei, transfer bancar)", Features: map[string]float64{
		"pret_total": 500, "cantitate": 1, "metoda_plata_Transfer bancar": 1,
	}},
}

// ProfitScenarios are scored by the profit regression.
var ProfitScenarios = []Scenario{
	{Name: "Scenariu 1 (2 produse electronice, discount 5%, card)", Features: map[string]float64{
		"cantitate": 2, "discount": 5, "categorie_Electronice": 1,
	}},
	{Name: "Scenariu 2 (3 produse electrocasnice, fără discount, numerar)", Features: map[string]float64{
		"cantitate": 3, "categorie_Electrocasnice": 1, "metoda_plata_Numerar": 1,
	}},
	{Name: "Scenariu 3 (1 produs accesoriu, discount 10%, transfer bancar)", Features: map[string]float64{
		"cantitate": 1, "discount": 10, "metoda_plata_Transfer bancar": 1,
	}},
}

// ProductClusters holds per-product totals and their k-means partition.
type ProductClusters struct {
	Table      *table.Table
	Clustering *model.Clustering
}

// ClusterProducts groups products on total sales and profit.
func ClusterProducts(sales *table.Table, km *model.KMeans) (*ProductClusters, error) {
	g, err := aggregate.GroupBy(sales, []string{"produs_nume"},
		aggregate.Agg("pret_total", aggregate.Sum).As("pret_total"),
		aggregate.Agg("profit", aggregate.Sum).As("profit"),
		aggregate.Agg("cantitate", aggregate.Sum).As("cantitate"),
	)
	if err != nil {
		return nil, err
	}
	if g, err = table.SortBy(g, "produs_nume", false); err != nil {
		return nil, err
	}
	if g, err = table.DropMissing(g, "pret_total", "profit"); err != nil {
		return nil, err
	}
	X, _, err := model.Design(g, []string{"pret_total", "profit"}, false)
	if err != nil {
		return nil, err
	}
	c, err := km.Fit(X)
	if err != nil {
		return nil, err
	}
	labels := make([]float64, len(c.Labels))
	for i, l := range c.Labels {
		labels[i] = float64(l)
	}
	if g, err = g.WithColumn(table.NumColumn("cluster", labels)); err != nil {
		return nil, err
	}
	return &ProductClusters{Table: g.Named("clustere_produse"), Clustering: c}, nil
}

// Reassign places each product's totals after the price increase into the
// fitted clusters and pairs them with the original assignment.
func (pc *ProductClusters) Reassign(enriched *table.Table) (*table.Table, error) {
	g, err := aggregate.GroupBy(enriched, []string{"produs_nume"},
		aggregate.Agg("pret_total_nou", aggregate.Sum).As("pret_total_nou"),
		aggregate.Agg("profit_nou", aggregate.Sum).As("profit_nou"),
	)
	if err != nil {
		return nil, err
	}
	if g, err = table.DropMissing(g, "pret_total_nou", "profit_nou"); err != nil {
		return nil, err
	}
	X, _, err := model.Design(g, []string{"pret_total_nou", "profit_nou"}, false)
	if err != nil {
		return nil, err
	}
	labels, err := pc.Clustering.Predict(X)
	if err != nil {
		return nil, err
	}
	after := make([]float64, len(labels))
	for i, l := range labels {
		after[i] = float64(l)
	}
	if g, err = g.WithColumn(table.NumColumn("cluster_nou", after)); err != nil {
		return nil, err
	}
	prev, err := table.Select(pc.Table, "produs_nume", "cluster")
	if err != nil {
		return nil, err
	}
	out, err := table.Join(g, prev, "produs_nume", "produs_nume", table.JoinOptions{How: table.LeftJoin})
	if err != nil {
		return nil, err
	}
	if out, err = table.SortBy(out, "produs_nume", false); err != nil {
		return nil, err
	}
	return out.Named("clustere_dupa_majorare"), nil
}

// Moved counts the products whose cluster changed in a Reassign table.
func Moved(reassigned *table.Table) int {
	n := 0
	for i := 0; i < reassigned.Len(); i++ {
		before, err1 := reassigned.Row(i).Float("cluster")
		after, err2 := reassigned.Row(i).Float("cluster_nou")
		if err1 == nil && err2 == nil && before != after {
			n++
		}
	}
	return n
}

// DiscountModel predicts whether a sale carries a discount.
type DiscountModel struct {
	Model     *model.LogisticModel
	Accuracy  float64
	Scores    model.ClassificationScores
	Rows      int
	Scenarios []Prediction
}

// encodeDummies one-hot encodes DummyColumns and returns the indicator names.
func encodeDummies(t *table.Table) (*table.Table, []string, error) {
	enc, err := table.FitOneHot(t, DummyColumns, true)
	if err != nil {
		return nil, nil, err
	}
	out, err := enc.Transform(t)
	if err != nil {
		return nil, nil, err
	}
	return out, enc.Columns(), nil
}

// FitDiscountModel regresses are_discount (discount > 0) on value, quantity
// and the category and payment dummies.
func FitDiscountModel(sales *table.Table, lr *model.Logistic) (*DiscountModel, error) {
	t, err := table.Derive(sales, "are_discount", func(r table.Row) (table.Value, error) {
		d, err := r.Float("discount")
		if err != nil || d <= 0 {
			return table.Num(0), nil
		}
		return table.Num(1), nil
	})
	if err != nil {
		return nil, err
	}
	t, dummies, err := encodeDummies(t)
	if err != nil {
		return nil, err
	}
	features := append([]string{"pret_total", "cantitate"}, dummies...)
	if t, err = table.DropMissing(t, features...); err != nil {
		return nil, err
	}
	X, _, err := model.Design(t, features, false)
	if err != nil {
		return nil, err
	}
	y, err := model.Target(t, "are_discount")
	if err != nil {
		return nil, err
	}
	m, err := lr.Fit(X, y, features)
	if err != nil {
		return nil, fmt.Errorf("discount model: %w", err)
	}
	scores, err := m.Score(X, y)
	if err != nil {
		return nil, err
	}
	out := &DiscountModel{Model: m, Accuracy: scores.Accuracy, Scores: scores, Rows: t.Len()}
	for _, s := range DiscountScenarios {
		p, err := m.PredictProba(s.Vector(features))
		if err != nil {
			return nil, err
		}
		out.Scenarios = append(out.Scenarios, Prediction{Scenario: s.Name, Value: p})
	}
	return out, nil
}

// ProfitModel explains profit with a linear regression. OLS is used when the
// design is well conditioned, otherwise the least-squares fallback.
type ProfitModel struct {
	Regressor model.Regressor
	Features  []string
	// OLS is nil when the fallback was used.
	OLS       *model.OLSResult
	Fallback  bool
	Cause     error
	R2        float64
	Scores    model.RegressionScores
	Actual    []float64
	Predicted []float64
	Scenarios []Prediction
}

// Significant lists the OLS terms below alpha; nil for the fallback.
func (pm *ProfitModel) Significant(alpha float64) []string {
	if pm.OLS == nil {
		return nil
	}
	return pm.OLS.Significant(alpha)
}

// FitProfitModel regresses profit on quantity, discount and the dummies.
func FitProfitModel(sales *table.Table, log *zap.Logger) (*ProfitModel, error) {
	t, dummies, err := encodeDummies(sales)
	if err != nil {
		return nil, err
	}
	features := append([]string{"cantitate", "discount"}, dummies...)
	if t, err = table.DropMissing(t, append([]string{"profit"}, features...)...); err != nil {
		return nil, err
	}
	y, err := model.Target(t, "profit")
	if err != nil {
		return nil, err
	}
	out := &ProfitModel{Actual: y}

	X, names, err := model.Design(t, features, true)
	if err != nil {
		return nil, err
	}
	var design [][]float64
	ols, err := model.FitOLS(X, y, names)
	var sing *model.SingularMatrixError
	switch {
	case err == nil:
		out.OLS, out.Regressor, out.Features, out.R2 = ols, ols, names, ols.R2
		design = model.Rows(X)
	case errors.As(err, &sing):
		log.Warn("ols singular, using least squares", zap.Int("rank", sing.Rank), zap.Int("cols", sing.Cols), zap.Float64("cond", sing.Cond))
		Xf, _, err := model.Design(t, features, false)
		if err != nil {
			return nil, err
		}
		lm, err := model.LeastSquares{FitIntercept: true}.Fit(Xf, y, features)
		if err != nil {
			return nil, fmt.Errorf("profit model fallback: %w", err)
		}
		out.Regressor, out.Features, out.R2 = lm, features, lm.R2
		out.Fallback, out.Cause = true, sing
		design = model.Rows(Xf)
	default:
		return nil, fmt.Errorf("profit model: %w", err)
	}

	out.Predicted = make([]float64, len(design))
	for i, x := range design {
		if out.Predicted[i], err = out.Regressor.Predict(x); err != nil {
			return nil, err
		}
	}
	out.Scores = model.ScoreRegression(out.Actual, out.Predicted)
	for _, s := range ProfitScenarios {
		v, err := out.Regressor.Predict(s.Vector(out.Features))
		if err != nil {
			return nil, err
		}
		out.Scenarios = append(out.Scenarios, Prediction{Scenario: s.Name, Value: v})
	}
	return out, nil
}
