package students

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/report"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// Chart file names.
const (
	ChartScoreByStudy = "scor_pe_ore_studiu.png"
	ChartDietPivot    = "scor_dieta_ore.png"
	ChartClusters     = "clusterizare_studenti.png"
	ChartRegression   = "regresie_scor.png"
)

// Result collects what a run produced.
type Result struct {
	RunID    string
	Profile  *analysis.Report
	Binned   *table.Table
	ByStudy  *table.Table
	Pivot    *table.Table
	Score    *ScoreModel
	Pass     *PassModel
	Clusters *Clusters
	Charts   []report.Rendered
}

// Run analyses the habits file at path and writes charts to cfg.OutputDir.
func Run(path string, cfg config.Global, log *zap.Logger, out io.Writer) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	res := &Result{RunID: uuid.NewString()}
	log = log.With(zap.String("run_id", res.RunID))
	if err := utils.EnsureDir(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	t, err := Load(path, cfg.LoadOptions())
	if err != nil {
		return nil, err
	}
	done := func(stage string, t *table.Table) {
		log.Info("stage done", zap.String("stage", stage), zap.Int("rows", t.Len()), zap.Int("cols", t.Width()))
	}
	fmt.Fprintf(out, "=== OBICEIURI ȘI PERFORMANȚĂ ===\nrun: %s\n\n", res.RunID)

	opt := analysis.DefaultOptions()
	opt.Correlations = true
	opt.Outliers = true
	opt.OutlierThreshold = 3.5
	if res.Profile, err = analysis.Profile(t, opt); err != nil {
		return nil, err
	}
	fmt.Fprint(out, res.Profile.Markdown())
	done("profile", t)

	if res.Binned, err = BinStudyHours(t); err != nil {
		return nil, err
	}
	if res.ByStudy, err = ScoreByStudy(res.Binned); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\n%s%s", report.Section("Scor pe ore de studiu"), report.Markdown(res.ByStudy, 0))
	done("study_bins", res.ByStudy)

	if res.Pivot, err = DietPivot(res.Binned); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\n%s%s", report.Section("Scor pe dietă și ore de studiu"), report.Markdown(res.Pivot, 0))
	done("diet_pivot", res.Pivot)

	if res.Score, err = FitScoreModel(t, log); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\n%s", report.Section("Regresie scor"))
	if res.Score.Fallback {
		fmt.Fprintln(out, "Matrice singulară; s-a folosit regresia liniară simplă.")
	}
	fmt.Fprint(out, report.Coefficients(res.Score.Regressor.Coefficients(), cfg.SignificanceLevel))
	fmt.Fprintf(out, "R²: %.4f, RMSE: %.2f, MAE: %.2f\n", res.Score.R2, res.Score.Scores.RMSE, res.Score.Scores.MAE)
	if sig := res.Score.Significant(cfg.SignificanceLevel); len(sig) > 0 {
		fmt.Fprintf(out, "Variabile semnificative (p < %.2f): %s\n", cfg.SignificanceLevel, strings.Join(sig, ", "))
	}
	done("score_regression", t)

	lr := &model.Logistic{Penalty: cfg.LogisticPenalty, MaxIter: cfg.LogisticMaxIter, Tol: 1e-8, Threshold: cfg.DecisionThreshold}
	if res.Pass, err = FitPassModel(t, cfg.PassMark, lr); err != nil {
		return nil, err
	}
	if !res.Pass.Model.Converged {
		log.Warn("logistic regression did not converge", zap.Int("iterations", res.Pass.Model.Iterations))
	}
	fmt.Fprintf(out, "\n%sPrag: %s, promovabilitate %.1f%%, acuratețe %.2f%%\n",
		report.Section("Clasificare promovat/respins"), report.Number(cfg.PassMark), res.Pass.PassRate*100, res.Pass.Accuracy*100)
	fmt.Fprintf(out, "Precizie: %.2f, recall: %.2f, F1: %.2f\n", res.Pass.Scores.Precision, res.Pass.Scores.Recall, res.Pass.Scores.F1)
	done("pass_model", t)

	km := &model.KMeans{K: cfg.Clusters, MaxIter: cfg.KMeansMaxIter, NInit: cfg.KMeansInit, Seed: cfg.Seed, Tol: 1e-4}
	if res.Clusters, err = ClusterStudents(t, km); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\n%s", report.Section("Clusterizare studenți"))
	for k, n := range res.Clusters.Clustering.Sizes() {
		c := res.Clusters.Clustering.Centroids[k]
		fmt.Fprintf(out, "Cluster %d: %d studenți, centru (%.2f ore, %.2f puncte)\n", k+1, n, c[0], c[1])
	}
	done("clustering", t)

	charts, err := buildCharts(res)
	if err != nil {
		return nil, err
	}
	res.Charts = report.NewRenderer(cfg.OutputDir, cfg.ChartWidthIn, cfg.ChartHeightIn, log).RenderAll(charts)
	if n := report.Failed(res.Charts); n > 0 {
		log.Warn("some charts were not written", zap.Int("failed", n), zap.Int("total", len(res.Charts)))
	}
	return res, nil
}

func buildCharts(res *Result) ([]report.NamedChart, error) {
	bins, err := res.ByStudy.Column(StudyBin)
	if err != nil {
		return nil, err
	}
	means, err := res.ByStudy.Column("scor_mediu")
	if err != nil {
		return nil, err
	}

	bands, err := res.Pivot.Column(StudyBin)
	if err != nil {
		return nil, err
	}
	var series []report.BarSeries
	for _, name := range res.Pivot.Columns()[1:] {
		c, _ := res.Pivot.Column(name)
		vals := c.FloatsOrNaN()
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = 0
			}
		}
		series = append(series, report.BarSeries{Name: name, Values: vals})
	}

	cl := res.Clusters
	groups := make([]report.ScatterSeries, len(cl.Clustering.Centroids))
	for k := range groups {
		groups[k].Name = fmt.Sprintf("Cluster %d", k+1)
	}
	for i, l := range cl.Clustering.Labels {
		groups[l].X = append(groups[l].X, cl.Hours[i])
		groups[l].Y = append(groups[l].Y, cl.Scores[i])
	}
	nonEmpty := groups[:0]
	for _, g := range groups {
		if len(g.X) > 0 {
			nonEmpty = append(nonEmpty, g)
		}
	}
	centroids := &report.ScatterSeries{Name: "Centroide"}
	for _, c := range cl.Clustering.Centroids {
		centroids.X = append(centroids.X, c[0])
		centroids.Y = append(centroids.Y, c[1])
	}

	return []report.NamedChart{
		{File: ChartScoreByStudy, Chart: report.BarChart{
			Title: "Scor mediu pe ore de studiu", XLabel: "Ore de studiu pe zi", YLabel: "Scor mediu",
			Labels: bins.Strings(), Values: means.FloatsOrNaN(),
		}},
		{File: ChartDietPivot, Chart: report.GroupedBarChart{
			Title: "Scor mediu pe dietă și ore de studiu", XLabel: "Ore de studiu pe zi", YLabel: "Scor mediu",
			Labels: bands.Strings(), Series: series,
		}},
		{File: ChartClusters, Chart: report.ScatterChart{
			Title: "Clusterizarea studenților", XLabel: "Ore de studiu pe zi", YLabel: "Scor examen",
			Series: nonEmpty, Markers: centroids,
		}},
		{File: ChartRegression, Chart: report.ScatterChart{
			Title: "Scor real vs. scor prezis", XLabel: "Scor real", YLabel: "Scor prezis",
			Series:        []report.ScatterSeries{{X: res.Score.Actual, Y: res.Score.Predicted}},
			ReferenceLine: true,
		}},
	}, nil
}
