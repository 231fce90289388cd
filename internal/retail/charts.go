package retail

import (
	"fmt"
	"image/color"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/report"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Chart file names.
const (
	ChartCategorySales   = "vanzari_categorii.png"
	ChartMonthlySales    = "evolutie_vanzari.png"
	ChartTopProducts     = "top_produse_profit.png"
	ChartPaymentMethods  = "distributie_metode_plata.png"
	ChartSalesVsProfit   = "comparatie_vanzari_profit.png"
	ChartProductClusters = "clusterizare_produse.png"
	ChartProfitModel     = "regresie_profit.png"
)

var (
	skyBlue = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	coral   = color.RGBA{R: 255, G: 127, B: 80, A: 255}
)

// labelled reads a label column and a numeric column side by side.
func labelled(t *table.Table, label, value string) ([]string, []float64, error) {
	lc, err := t.Column(label)
	if err != nil {
		return nil, nil, err
	}
	vc, err := t.Column(value)
	if err != nil {
		return nil, nil, err
	}
	return lc.Strings(), vc.FloatsOrNaN(), nil
}

// overviewCharts builds the five descriptive charts.
func overviewCharts(sales *table.Table, months []string) ([]report.NamedChart, error) {
	byCat, err := aggregate.GroupBy(sales, []string{"categorie"},
		aggregate.Agg("pret_total", aggregate.Sum).As("pret_total"),
		aggregate.Agg("profit", aggregate.Sum).As("profit"),
	)
	if err != nil {
		return nil, err
	}
	if byCat, err = table.SortBy(byCat, "categorie", false); err != nil {
		return nil, err
	}
	cats, catSales, err := labelled(byCat, "categorie", "pret_total")
	if err != nil {
		return nil, err
	}
	_, catProfit, err := labelled(byCat, "categorie", "profit")
	if err != nil {
		return nil, err
	}

	monthLabels, monthValues, err := MonthlyByYear(sales, months)
	if err != nil {
		return nil, err
	}

	byProduct, err := aggregate.GroupBy(sales, []string{"produs_nume"}, aggregate.Agg("profit", aggregate.Sum).As("profit"))
	if err != nil {
		return nil, err
	}
	top, err := aggregate.TopN(byProduct, "profit", 5, true)
	if err != nil {
		return nil, err
	}
	topNames, topProfit, err := labelled(top, "produs_nume", "profit")
	if err != nil {
		return nil, err
	}
	// largest bar on top
	for i, j := 0, len(topNames)-1; i < j; i, j = i+1, j-1 {
		topNames[i], topNames[j] = topNames[j], topNames[i]
		topProfit[i], topProfit[j] = topProfit[j], topProfit[i]
	}

	payments, err := aggregate.ValueCounts(sales, "metoda_plata")
	if err != nil {
		return nil, err
	}
	payNames, payCounts, err := labelled(payments, "metoda_plata", "count")
	if err != nil {
		return nil, err
	}

	return []report.NamedChart{
		{File: ChartCategorySales, Chart: report.BarChart{
			Title: "Vânzări totale pe categorii de produse", XLabel: "Categorie", YLabel: "Vânzări totale (lei)",
			Labels: cats, Values: catSales, Color: skyBlue,
		}},
		{File: ChartMonthlySales, Chart: report.LineChart{
			Title: "Evoluția vânzărilor lunare", XLabel: "Luna", YLabel: "Vânzări (lei)",
			Labels: monthLabels, Values: monthValues,
		}},
		{File: ChartTopProducts, Chart: report.BarChart{
			Title: "Top 5 produse după profit total", XLabel: "Profit total (lei)", YLabel: "Produs",
			Labels: topNames, Values: topProfit, Horizontal: true, Color: coral,
		}},
		{File: ChartPaymentMethods, Chart: report.PieChart{
			Title: "Distribuția metodelor de plată", Labels: payNames, Values: payCounts,
		}},
		{File: ChartSalesVsProfit, Chart: report.GroupedBarChart{
			Title: "Comparație între vânzări și profit pe categorii", YLabel: "Valoare (lei)",
			Labels: cats,
			Series: []report.BarSeries{{Name: "Vânzări", Values: catSales}, {Name: "Profit", Values: catProfit}},
		}},
	}, nil
}

func clusterChart(pc *ProductClusters) (report.NamedChart, error) {
	sales, err := pc.Table.Floats("pret_total")
	if err != nil {
		return report.NamedChart{}, err
	}
	profit, err := pc.Table.Floats("profit")
	if err != nil {
		return report.NamedChart{}, err
	}
	series := make([]report.ScatterSeries, len(pc.Clustering.Centroids))
	for k := range series {
		series[k].Name = fmt.Sprintf("Cluster %d", k+1)
	}
	for i, l := range pc.Clustering.Labels {
		series[l].X = append(series[l].X, sales[i])
		series[l].Y = append(series[l].Y, profit[i])
	}
	nonEmpty := series[:0]
	for _, s := range series {
		if len(s.X) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	centroids := &report.ScatterSeries{Name: "Centroide"}
	for _, c := range pc.Clustering.Centroids {
		centroids.X = append(centroids.X, c[0])
		centroids.Y = append(centroids.Y, c[1])
	}
	return report.NamedChart{File: ChartProductClusters, Chart: report.ScatterChart{
		Title:  "Clusterizarea produselor după vânzări și profit",
		XLabel: "Vânzări totale (lei)", YLabel: "Profit total (lei)",
		Series: nonEmpty, Markers: centroids,
	}}, nil
}

func regressionChart(pm *ProfitModel) report.NamedChart {
	return report.NamedChart{File: ChartProfitModel, Chart: report.ScatterChart{
		Title:  "Relația între profitul real și cel prezis de model",
		XLabel: "Profit real (lei)", YLabel: "Profit prezis (lei)",
		Series:        []report.ScatterSeries{{X: pm.Actual, Y: pm.Predicted}},
		ReferenceLine: true,
	}}
}
