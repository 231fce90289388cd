package retail

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/report"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// ExcludedProduct is dropped in the row deletion stage.
const ExcludedProduct = "Căști wireless"

// EnrichedFile is the CSV export of the modified sales table.
const EnrichedFile = "vanzari_modificate.csv"

// Recommendations close the summary.
var Recommendations = []string{
	"Focalizarea pe produsele din clusterul cu profitabilitate ridicată",
	"Extinderea ofertei de produse electronice, care generează marje de profit bune",
	"Optimizarea politicii de discount, concentrarea pe produsele care generează vânzări adiționale",
	"Extinderea în orașe cu performanță ridicată a filialelor existente",
	"Investiția în marketing pentru produsele cu potențial de creștere identificate prin modelele predictive",
	"Dezvoltarea programului de fidelizare a clienților, care aduce vânzări cu valoare mai mare",
	"Optimizarea metodelor de plată și oferirea de facilități pentru metodele preferate de clienți",
}

// Runner executes the retail analysis. Report text goes to Out, logs to Log.
type Runner struct {
	Cfg   config.Global
	Log   *zap.Logger
	Out   io.Writer
	RunID string
}

// NewRunner prepares a run with a fresh run id.
func NewRunner(cfg config.Global, log *zap.Logger, out io.Writer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{Cfg: cfg, Log: log, Out: out, RunID: uuid.NewString()}
}

// Result collects what a run produced.
type Result struct {
	RunID       string
	Data        *Datasets
	Catalog     *Catalog
	Performance *table.Table
	Targets     []TargetEvaluation
	Monthly     []MonthStat
	Enriched    *table.Table
	Imputed     *table.Table
	Joined      *table.Table
	CitySales   *table.Table
	Loyalty     *table.Table
	Margins     *table.Table
	Corr        *aggregate.CorrMatrix
	Clusters    *ProductClusters
	Reassigned  *table.Table
	Discount    *DiscountModel
	Profit      *ProfitModel
	Charts      []report.Rendered
	Exports     []report.Rendered
	EnrichedCSV string
	Workbook    string
}

type stage struct {
	name string
	run  func(*pass) (*table.Table, error)
}

var stages = []stage{
	{"catalog", (*pass).catalog},
	{"profit", (*pass).profit},
	{"category_performance", (*pass).categoryPerformance},
	{"targets", (*pass).targets},
	{"monthly_sales", (*pass).monthly},
	{"shapes", (*pass).shapes},
	{"selection", (*pass).selection},
	{"modifications", (*pass).modifications},
	{"groups", (*pass).groups},
	{"missing_values", (*pass).missing},
	{"deletion", (*pass).deletion},
	{"statistics", (*pass).statistics},
	{"joins", (*pass).joins},
	{"charts", (*pass).charts},
	{"clustering", (*pass).clustering},
	{"profit_regression", (*pass).regression},
	{"summary", (*pass).summary},
}

// pass is the state of one Run.
type pass struct {
	*Runner
	log      *zap.Logger
	res      *Result
	renderer *report.Renderer
}

// Run loads the datasets from Cfg.DataDir and executes every stage in order.
// Charts and exports are written to Cfg.OutputDir. A failing chart or export
// is logged and recorded in the Result; any other error stops the run.
func (r *Runner) Run() (*Result, error) {
	log := r.Log.With(zap.String("run_id", r.RunID))
	if err := utils.EnsureDir(r.Cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	d, err := LoadDatasets(r.Cfg.DataDir, r.Cfg.LoadOptions())
	if err != nil {
		return nil, err
	}
	for _, t := range d.All() {
		log.Info("dataset loaded", zap.String("table", t.Name()), zap.Int("rows", t.Len()), zap.Int("cols", t.Width()))
	}
	p := &pass{
		Runner:   r,
		log:      log,
		res:      &Result{RunID: r.RunID, Data: d},
		renderer: report.NewRenderer(r.Cfg.OutputDir, r.Cfg.ChartWidthIn, r.Cfg.ChartHeightIn, log),
	}
	p.printf("=== ANALIZA VÂNZĂRILOR ===\nrun: %s\n", r.RunID)

	for i, s := range stages {
		t, err := s.run(p)
		if err != nil {
			return p.res, fmt.Errorf("stage %d (%s): %w", i+1, s.name, err)
		}
		fields := []zap.Field{zap.Int("step", i+1), zap.String("stage", s.name)}
		if t != nil {
			fields = append(fields, zap.Int("rows", t.Len()), zap.Int("cols", t.Width()))
		}
		log.Info("stage done", fields...)
	}

	if r.Cfg.Workbook != "" {
		p.workbook()
	}
	if n := report.Failed(p.res.Charts); n > 0 {
		log.Warn("some charts were not written", zap.Int("failed", n), zap.Int("total", len(p.res.Charts)))
	}
	if n := report.Failed(p.res.Exports); n > 0 {
		log.Warn("some exports were not written", zap.Int("failed", n), zap.Int("total", len(p.res.Exports)))
	}
	return p.res, nil
}

// export runs write for path and records the outcome in Result.Exports.
func (p *pass) export(file, path string, write func(string) error) bool {
	if err := write(path); err != nil {
		p.log.Warn("export failed", zap.String("file", file), zap.String("path", path), zap.Error(err))
		p.res.Exports = append(p.res.Exports, report.Rendered{File: file, Err: err})
		p.printf("Nu s-a putut salva %s: %v\n", file, err)
		return false
	}
	p.res.Exports = append(p.res.Exports, report.Rendered{File: file, Path: path})
	return true
}

func (p *pass) printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format, args...)
}

func (p *pass) section(title string) {
	p.printf("\n%s", report.Section(title))
}

func (p *pass) table(caption string, t *table.Table, maxRows int) {
	if caption != "" {
		p.printf("%s\n", caption)
	}
	p.printf("%s", report.Markdown(t, maxRows))
}

func (p *pass) sales() *table.Table { return p.res.Data.Sales }

func (p *pass) catalog() (*table.Table, error) {
	c, err := BuildCatalog(p.res.Data.Products)
	if err != nil {
		return nil, err
	}
	p.res.Catalog = c
	p.section("1. Catalog produse")
	p.printf("Produse: %s\n", strings.Join(c.Products, ", "))
	p.printf("Categorii: %s\n", strings.Join(c.Categories, ", "))
	for _, name := range []string{firstOr(c.Products, ""), "Produs inexistent"} {
		p.printf("Categoria pentru %q: %s\n", name, c.CategoryOf(name))
	}
	view, err := table.Select(c.Table, "nume", "categorie", "marja_profit")
	if err != nil {
		return nil, err
	}
	p.table("Marja de profit (%):", view, 0)
	return c.Table, nil
}

func firstOr(xs []string, def string) string {
	if len(xs) == 0 {
		return def
	}
	return xs[0]
}

func (p *pass) profit() (*table.Table, error) {
	p.section("2. Calcul profit")
	cases := []struct{ buy, sell, qty, disc float64 }{
		{2500, 3500, 1, 0},
		{1800, 2500, 2, 10},
		{1200, 1800, 3, 20},
	}
	for _, c := range cases {
		p.printf("achiziție %s, vânzare %s, cantitate %s, discount %s%%: profit %.2f lei\n",
			report.Number(c.buy), report.Number(c.sell), report.Number(c.qty), report.Number(c.disc),
			Profit(c.buy, c.sell, c.qty, c.disc))
	}
	return nil, nil
}

func (p *pass) categoryPerformance() (*table.Table, error) {
	perf, err := CategoryPerformance(p.sales())
	if err != nil {
		return nil, err
	}
	p.res.Performance = perf
	p.section("3. Performanța categoriilor")
	p.table("", perf, 0)
	return perf, nil
}

func (p *pass) targets() (*table.Table, error) {
	evals, err := EvaluateTargets(p.sales(), rand.New(rand.NewSource(p.Cfg.Seed)))
	if err != nil {
		return nil, err
	}
	p.res.Targets = evals
	p.section("4. Evaluare target-uri")
	for _, e := range evals {
		p.printf("%s\n", e)
	}
	return nil, nil
}

func (p *pass) monthly() (*table.Table, error) {
	stats, err := MonthlySales(p.sales(), p.Cfg.Months)
	if err != nil {
		return nil, err
	}
	p.res.Monthly = stats
	months := make([]string, len(stats))
	sales := make([]float64, len(stats))
	growth := make([]float64, len(stats))
	cum := make([]float64, len(stats))
	for i, s := range stats {
		months[i], growth[i], cum[i] = s.Month, s.Growth, s.Cumulative
		sales[i] = math.NaN()
		if s.Present {
			sales[i] = s.Sales
		}
	}
	t, err := table.New("vanzari_lunare",
		table.TextColumn("luna", months),
		table.NumColumn("vanzari", sales),
		table.NumColumn("crestere_procent", growth),
		table.NumColumn("vanzari_cumulate", cum),
	)
	if err != nil {
		return nil, err
	}
	p.section("5. Vânzări lunare")
	p.table("", t, 0)
	return t, nil
}

func (p *pass) shapes() (*table.Table, error) {
	p.section("6. Structura datelor")
	for _, t := range p.res.Data.All() {
		p.printf("%s: %d rânduri x %d coloane\n  coloane: %s\n", t.Name(), t.Len(), t.Width(), strings.Join(t.Columns(), ", "))
	}
	return nil, nil
}

func (p *pass) selection() (*table.Table, error) {
	s := p.sales()
	p.section("7. Selecție de date")
	p.table("Primele 5 vânzări:", table.Head(s, 5), 0)

	window, err := table.Select(table.Slice(s, 10, 15), "produs_nume", "categorie", "pret_total")
	if err != nil {
		return nil, err
	}
	p.table("Rândurile 10-14, coloane selectate:", window, 0)

	filters := []struct {
		caption string
		pred    table.Predicate
	}{
		{"Vânzări Electronice", table.Eq("categorie", "Electronice")},
		{"Vânzări cu profit > 2000", table.Gt("profit", 2000)},
		{"Electronice vândute în Mai cu discount", table.And(
			table.Eq("categorie", "Electronice"), table.Eq("luna", "Mai"), table.Gt("discount", 0),
		)},
	}
	var last *table.Table
	for _, f := range filters {
		if last, err = table.Filter(s, f.pred); err != nil {
			return nil, err
		}
		p.table(fmt.Sprintf("%s (%d rânduri):", f.caption, last.Len()), last, 5)
	}
	return last, nil
}

func (p *pass) modifications() (*table.Table, error) {
	t, err := Enrich(p.sales(), p.Cfg.VATRate, p.Cfg.PriceIncrease)
	if err != nil {
		return nil, err
	}
	p.res.Enriched = t
	p.section("8. Modificări de date")
	view, err := table.Select(t, "produs_nume", "pret_total", "tva", "pret_unitar_nou", "pret_total_nou", "profit_nou", "categorie_valoare")
	if err != nil {
		return nil, err
	}
	p.table("", view, 5)
	classes, err := aggregate.ValueCounts(t, "categorie_valoare")
	if err != nil {
		return nil, err
	}
	p.table("Distribuția pe categorii de valoare:", classes, 0)

	path := filepath.Join(p.Cfg.OutputDir, EnrichedFile)
	write := func(path string) error { return table.WriteCSV(path, t) }
	if p.export(EnrichedFile, path, write) {
		p.res.EnrichedCSV = path
		p.printf("Date salvate în %s\n", path)
	}
	return t, nil
}

func (p *pass) groups() (*table.Table, error) {
	s := p.sales()
	p.section("9. Grupări")
	specs := []struct {
		caption string
		keys    []string
		reds    []aggregate.Reduction
		sortBy  string
		maxRows int
	}{
		{"Pe categorii:", []string{"categorie"}, []aggregate.Reduction{
			aggregate.Agg("pret_total", aggregate.Sum), aggregate.Agg("pret_total", aggregate.Mean),
			aggregate.Agg("profit", aggregate.Sum), aggregate.Agg("profit", aggregate.Mean),
		}, "", 0},
		{"Pe produse:", []string{"produs_nume"}, []aggregate.Reduction{
			aggregate.Agg("id", aggregate.Count).As("numar_vanzari"),
			aggregate.Agg("pret_total", aggregate.Mean), aggregate.Agg("pret_total", aggregate.Sum),
			aggregate.Agg("profit", aggregate.Mean), aggregate.Agg("profit", aggregate.Sum),
		}, "profit_sum", 0},
		{"Pe an și lună:", []string{"an", "luna"}, []aggregate.Reduction{
			aggregate.Agg("pret_total", aggregate.Sum), aggregate.Agg("profit", aggregate.Sum),
		}, "", 0},
		{"Pe metode de plată:", []string{"metoda_plata"}, []aggregate.Reduction{
			aggregate.Agg("id", aggregate.Count).As("numar_tranzactii"),
			aggregate.Agg("pret_total", aggregate.Sum), aggregate.Agg("discount", aggregate.Mean),
		}, "", 0},
		{"Pe categorie, produs și lună (primele 10):", []string{"categorie", "produs_nume", "luna"}, []aggregate.Reduction{
			aggregate.Agg("pret_total", aggregate.Sum), aggregate.Agg("cantitate", aggregate.Sum),
			aggregate.Agg("id", aggregate.Count),
		}, "", 10},
	}
	var last *table.Table
	for _, sp := range specs {
		g, err := aggregate.GroupBy(s, sp.keys, sp.reds...)
		if err != nil {
			return nil, err
		}
		if sp.sortBy != "" {
			if g, err = table.SortBy(g, sp.sortBy, true); err != nil {
				return nil, err
			}
		}
		p.table(sp.caption, g, sp.maxRows)
		last = g
	}
	return last, nil
}

func (p *pass) missing() (*table.Table, error) {
	s := p.sales()
	p.section("10. Valori lipsă")
	nulls, err := aggregate.NullCounts(s)
	if err != nil {
		return nil, err
	}
	p.table("Valori lipsă pe coloane:", nulls, 0)
	gaps, err := table.Filter(s, table.IsMissing("client_id"))
	if err != nil {
		return nil, err
	}
	p.printf("Vânzări fără client_id: %d\n", gaps.Len())

	factor := p.Cfg.BranchPlaceholderFactor
	steps := []struct {
		into     string
		strategy table.Strategy
	}{
		{"client_id_metoda1", table.Constant{Value: table.Num(0)}},
		{"client_id_metoda2", table.Mean{Round: math.Trunc}},
		{"client_id_metoda4", table.Formula{Fn: func(r table.Row) (table.Value, error) {
			f, err := r.Float("filiala_id")
			if err != nil {
				return table.Missing(), err
			}
			return table.Num(f * factor), nil
		}}},
	}
	t := s
	for _, st := range steps {
		if t, err = table.Impute(t, "client_id", st.into, st.strategy); err != nil {
			return nil, err
		}
	}
	p.res.Imputed = t.Named("vanzari_completate")

	dropped, err := table.DropMissing(s, "client_id")
	if err != nil {
		return nil, err
	}
	p.printf("Rânduri după eliminarea valorilor lipsă: %d din %d\n", dropped.Len(), s.Len())

	if gaps.Len() > 0 {
		filled, err := table.Filter(t, table.IsMissing("client_id"))
		if err != nil {
			return nil, err
		}
		view, err := table.Select(filled, "id", "filiala_id", "client_id_metoda1", "client_id_metoda2", "client_id_metoda4")
		if err != nil {
			return nil, err
		}
		p.table("Valori completate:", view, 5)
	}
	return t, nil
}

func (p *pass) deletion() (*table.Table, error) {
	s := p.sales()
	p.section("11. Ștergere de date")
	slim, err := table.Drop(s, "id", "filiala_id", "cost_total")
	if err != nil {
		return nil, err
	}
	p.printf("Coloane rămase: %s\n", strings.Join(slim.Columns(), ", "))

	filters := []struct {
		caption string
		pred    table.Predicate
	}{
		{"Vânzări cu discount <= 10%", table.Le("discount", 10)},
		{"Fără produsul " + ExcludedProduct, table.Ne("produs_nume", ExcludedProduct)},
		{"Fără vânzările mici din Ianuarie", table.Not(table.And(
			table.Eq("luna", "Ianuarie"), table.Lt("pret_total", 1000),
		))},
	}
	var last *table.Table
	for _, f := range filters {
		if last, err = table.Filter(s, f.pred); err != nil {
			return nil, err
		}
		p.printf("%s: %d -> %d rânduri\n", f.caption, s.Len(), last.Len())
	}
	return last, nil
}

func (p *pass) statistics() (*table.Table, error) {
	s := p.sales()
	p.section("12. Statistici")
	stats, err := aggregate.GroupBy(s, []string{"categorie"},
		aggregate.Agg("pret_total", aggregate.Count), aggregate.Agg("pret_total", aggregate.Min),
		aggregate.Agg("pret_total", aggregate.Max), aggregate.Agg("pret_total", aggregate.Mean),
		aggregate.Agg("pret_total", aggregate.Sum), aggregate.Agg("pret_total", aggregate.Std),
		aggregate.Agg("profit", aggregate.Min), aggregate.Agg("profit", aggregate.Max),
		aggregate.Agg("profit", aggregate.Mean), aggregate.Agg("profit", aggregate.Sum),
		aggregate.Agg("profit", aggregate.Std),
		aggregate.Agg("discount", aggregate.Mean), aggregate.Agg("discount", aggregate.Max),
	)
	if err != nil {
		return nil, err
	}
	p.table("Statistici pe categorii:", stats, 0)

	totals, err := aggregate.GroupBy(s, []string{"categorie"}, aggregate.Agg("pret_total", aggregate.Sum).As("vanzari"))
	if err != nil {
		return nil, err
	}
	share, err := aggregate.Share(totals, "vanzari", "procent")
	if err != nil {
		return nil, err
	}
	if share, err = table.SortBy(share, "procent", true); err != nil {
		return nil, err
	}
	p.table("Ponderea categoriilor în vânzări (%):", share, 0)

	discounted, err := table.Filter(s, table.Gt("discount", 0))
	if err != nil {
		return nil, err
	}
	disc, err := aggregate.GroupBy(discounted, nil,
		aggregate.Agg("discount", aggregate.Count), aggregate.Agg("discount", aggregate.Mean),
		aggregate.Agg("discount", aggregate.Min), aggregate.Agg("discount", aggregate.Max),
	)
	if err != nil {
		return nil, err
	}
	p.table("Statistici discount (vânzări cu discount):", disc, 0)

	corr, err := aggregate.Correlation(s, "cantitate", "pret_unitar", "pret_total", "profit", "discount")
	if err != nil {
		return nil, err
	}
	p.res.Corr = corr
	ct, err := corr.Table()
	if err != nil {
		return nil, err
	}
	p.table("Matricea de corelație:", ct, 0)
	return stats, nil
}

func (p *pass) joins() (*table.Table, error) {
	d := p.res.Data
	p.section("13. Combinarea datelor")
	withBranches, err := table.Join(d.Sales, d.Branches, "filiala_id", "id", table.JoinOptions{})
	if err != nil {
		return nil, err
	}
	if withBranches, err = table.Rename(withBranches, map[string]string{"id_x": "id_vanzare", "id_y": "id_filiala"}); err != nil {
		return nil, err
	}
	p.printf("Vânzări + filiale: %d rânduri x %d coloane\n", withBranches.Len(), withBranches.Width())

	withCustomers, err := table.Join(d.Sales, d.Customers, "client_id", "id", table.JoinOptions{})
	if err != nil {
		return nil, err
	}
	p.printf("Vânzări + clienți: %d rânduri x %d coloane\n", withCustomers.Len(), withCustomers.Width())

	full, err := table.Join(withBranches, d.Customers, "client_id", "id", table.JoinOptions{})
	if err != nil {
		return nil, err
	}
	if full, err = table.Rename(full, map[string]string{"id": "id_client"}); err != nil {
		return nil, err
	}
	p.res.Joined = full.Named("vanzari_complete")
	p.printf("Vânzări + filiale + clienți: %d rânduri x %d coloane\n", full.Len(), full.Width())

	city, err := aggregate.GroupBy(full, []string{"oras_x", "categorie"},
		aggregate.Agg("pret_total", aggregate.Sum).As("vanzari_totale"),
		aggregate.Agg("profit", aggregate.Sum).As("profit_total"),
	)
	if err != nil {
		return nil, err
	}
	if city, err = table.Rename(city, map[string]string{"oras_x": "oras"}); err != nil {
		return nil, err
	}
	p.res.CitySales = city.Named("vanzari_orase")
	p.table("Vânzări pe orașe și categorii:", city, 0)

	loyal, err := aggregate.GroupBy(full, []string{"client_fidel"},
		aggregate.Agg("id_vanzare", aggregate.Count).As("numar_tranzactii"),
		aggregate.Agg("pret_total", aggregate.Mean).As("valoare_medie"),
		aggregate.Agg("pret_total", aggregate.Sum).As("valoare_totala"),
		aggregate.Agg("discount", aggregate.Mean).As("discount_mediu"),
	)
	if err != nil {
		return nil, err
	}
	p.res.Loyalty = loyal.Named("clienti_fideli")
	p.table("Clienți fideli vs. nefideli:", loyal, 0)
	return full, nil
}

func (p *pass) render(charts ...report.NamedChart) {
	rs := p.renderer.RenderAll(charts)
	p.res.Charts = append(p.res.Charts, rs...)
	for _, r := range rs {
		if r.Err != nil {
			p.printf("Grafic nereușit: %s\n", r.File)
			continue
		}
		p.printf("Grafic salvat: %s\n", r.Path)
	}
}

func (p *pass) charts() (*table.Table, error) {
	p.section("14. Vizualizări")
	charts, err := overviewCharts(p.sales(), p.Cfg.Months)
	if err != nil {
		return nil, err
	}
	p.render(charts...)
	return nil, nil
}

func (p *pass) clustering() (*table.Table, error) {
	p.section("15. Clusterizare și clasificare")
	km := &model.KMeans{K: p.Cfg.Clusters, MaxIter: p.Cfg.KMeansMaxIter, NInit: p.Cfg.KMeansInit, Seed: p.Cfg.Seed, Tol: 1e-4}
	pc, err := ClusterProducts(p.sales(), km)
	if err != nil {
		return nil, fmt.Errorf("product clustering: %w", err)
	}
	if !pc.Clustering.Converged {
		p.log.Warn("kmeans did not converge", zap.Int("iterations", pc.Clustering.Iterations))
	}
	p.res.Clusters = pc
	byCluster, err := table.SortBy(pc.Table, "cluster", false)
	if err != nil {
		return nil, err
	}
	p.table("Produse pe clustere:", byCluster, 0)
	p.printf("Inerție: %.2f\n", pc.Clustering.Inertia)
	chart, err := clusterChart(pc)
	if err != nil {
		return nil, err
	}
	p.render(chart)

	moved, err := pc.Reassign(p.res.Enriched)
	if err != nil {
		return nil, fmt.Errorf("cluster reassignment: %w", err)
	}
	p.res.Reassigned = moved
	p.table("Clustere după majorarea prețurilor:", moved, 0)
	p.printf("Produse care își schimbă clusterul: %d\n", Moved(moved))

	lr := &model.Logistic{
		Penalty:   p.Cfg.LogisticPenalty,
		MaxIter:   p.Cfg.LogisticMaxIter,
		Tol:       1e-8,
		Threshold: p.Cfg.DecisionThreshold,
	}
	dm, err := FitDiscountModel(p.sales(), lr)
	if err != nil {
		return nil, err
	}
	if !dm.Model.Converged {
		p.log.Warn("logistic regression did not converge", zap.Int("iterations", dm.Model.Iterations))
	}
	p.res.Discount = dm
	p.printf("Acuratețea modelului de discount: %.2f%% (%d vânzări)\n", dm.Accuracy*100, dm.Rows)
	p.printf("Precizie: %.2f, recall: %.2f, F1: %.2f\n", dm.Scores.Precision, dm.Scores.Recall, dm.Scores.F1)
	for _, s := range dm.Scenarios {
		p.printf("%s: probabilitate discount %.2f%%\n", s.Scenario, s.Value*100)
	}
	return pc.Table, nil
}

func (p *pass) regression() (*table.Table, error) {
	p.section("16. Regresie profit")
	pm, err := FitProfitModel(p.sales(), p.log)
	if err != nil {
		return nil, err
	}
	p.res.Profit = pm
	if pm.Fallback {
		p.printf("Matrice singulară (%v); s-a folosit regresia liniară simplă.\n", pm.Cause)
	}
	p.printf("%s", report.Coefficients(pm.Regressor.Coefficients(), p.Cfg.SignificanceLevel))
	p.printf("R²: %.4f, RMSE: %.2f, MAE: %.2f\n", pm.R2, pm.Scores.RMSE, pm.Scores.MAE)
	if sig := pm.Significant(p.Cfg.SignificanceLevel); len(sig) > 0 {
		p.printf("Variabile semnificative (p < %.2f): %s\n", p.Cfg.SignificanceLevel, strings.Join(sig, ", "))
	} else if !pm.Fallback {
		p.printf("Nicio variabilă semnificativă (p < %.2f)\n", p.Cfg.SignificanceLevel)
	}
	for _, s := range pm.Scenarios {
		p.printf("%s: %.2f lei\n", s.Scenario, s.Value)
	}
	p.render(regressionChart(pm))
	return nil, nil
}

func (p *pass) summary() (*table.Table, error) {
	s := p.sales()
	p.section("17. Sumar și recomandări finale")
	byProduct, err := aggregate.GroupBy(s, []string{"produs_nume"}, aggregate.Agg("profit", aggregate.Sum).As("profit"))
	if err != nil {
		return nil, err
	}
	top, err := aggregate.TopN(byProduct, "profit", 3, true)
	if err != nil {
		return nil, err
	}
	p.table("Top 3 produse după profit total:", top, 0)

	cats, err := aggregate.GroupBy(s, []string{"categorie"}, aggregate.Agg("pret_total", aggregate.Sum).As("vanzari"))
	if err != nil {
		return nil, err
	}
	if cats, err = table.SortBy(cats, "vanzari", true); err != nil {
		return nil, err
	}
	p.table("Categoriile după vânzări totale:", cats, 0)

	margins, err := CategoryMargins(s)
	if err != nil {
		return nil, err
	}
	p.res.Margins = margins.Named("marje_categorii")
	view, err := table.Select(margins, "categorie", "marja_profit_procent")
	if err != nil {
		return nil, err
	}
	p.table("Marje de profit medii pe categorii:", view, 0)

	cities, err := aggregate.GroupBy(p.res.Joined, []string{"oras_x"}, aggregate.Agg("pret_total", aggregate.Sum).As("vanzari"))
	if err != nil {
		return nil, err
	}
	if cities, err = table.Rename(cities, map[string]string{"oras_x": "oras"}); err != nil {
		return nil, err
	}
	if cities, err = table.SortBy(cities, "vanzari", true); err != nil {
		return nil, err
	}
	p.table("Distribuția vânzărilor pe orașe:", cities, 0)

	p.printf("\nRecomandări pentru extinderea afacerii:\n")
	for i, r := range Recommendations {
		p.printf("%d. %s\n", i+1, r)
	}
	return nil, nil
}

func (p *pass) workbook() {
	path := p.Cfg.Workbook
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Cfg.OutputDir, path)
	}
	res := p.res
	sheets := []report.Sheet{
		{Name: "Catalog", Table: res.Catalog.Table},
		{Name: "Performanta", Table: res.Performance},
		{Name: "Vanzari modificate", Table: res.Enriched},
		{Name: "Clustere", Table: res.Clusters.Table},
		{Name: "Vanzari orase", Table: res.CitySales},
		{Name: "Clienti fideli", Table: res.Loyalty},
		{Name: "Marje", Table: res.Margins},
	}
	write := func(path string) error { return report.WriteWorkbook(path, sheets...) }
	if !p.export(filepath.Base(path), path, write) {
		return
	}
	res.Workbook = path
	p.log.Info("workbook written", zap.String("path", path), zap.Int("sheets", len(sheets)))
	p.printf("\nRegistru Excel salvat: %s\n", path)
}
