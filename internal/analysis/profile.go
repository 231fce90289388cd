package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/report"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Options controls analysis behavior for tabular data.
type Options struct {
	// Load is passed to the table loader; its MaxRows is ignored in favour of MaxRows below.
	Load table.LoadOptions
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report (0 disables them).
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlations per group key.
	CorrPerGroup bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// Unit normalization: convert values to target units using simple mappings.
	UnitNormalize bool
	UnitTargets   map[string]string // map[fromUnit]toUnit, e.g., {"g/L":"mg/L", "°F":"°C"}
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		MaxRows:       100000,
		SampleRows:    5,
		UnitNormalize: true,
		UnitTargets: map[string]string{
			"g/L":  "mg/L",
			"ug/L": "mg/L",
			"°F":   "°C",
		},
	}
}

// Report is a markdown-friendly analysis of a tabular dataset.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
	Corr      *aggregate.CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|identifier|text
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key       string
	Size      int
	Metrics   map[string]NumSummary // by column name
	CorrPairs []PairCorr            // top correlation pairs (by |r|)
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Analyze loads a CSV, TSV or XLSX file and profiles it.
func Analyze(path string, opt Options) (*Report, error) {
	lo := opt.Load
	lo.MaxRows = 0
	t, err := table.LoadFile(path, lo)
	if err != nil {
		return nil, err
	}
	rep, err := Profile(t, opt)
	if err != nil {
		return nil, err
	}
	rep.Name = filepath.Base(path)
	return rep, nil
}

// Profile summarizes every column of t, plus optional group and correlation sections.
func Profile(t *table.Table, opt Options) (*Report, error) {
	rep := &Report{Name: t.Name(), Rows: t.Len(), Processed: t.Len()}
	if opt.MaxRows > 0 && t.Len() > opt.MaxRows {
		t = table.Head(t, opt.MaxRows)
		rep.Processed = t.Len()
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 5
	}
	for i := 0; i < min(sampleRows, t.Len()); i++ {
		row := make([]string, t.Width())
		for j := range row {
			v := t.ColumnAt(j).Value(i)
			if !v.IsMissing() {
				row[j] = report.Cell(v)
			}
		}
		rep.Samples = append(rep.Samples, row)
	}

	work, units, err := normalizeUnits(t, opt)
	if err != nil {
		return nil, err
	}
	var numCols []string
	for j, name := range work.Columns() {
		c := work.ColumnAt(j)
		s, err := summarize(work, c, opt)
		if err != nil {
			return nil, err
		}
		s.Unit = units[name]
		if c.Kind() == table.KindNumeric {
			numCols = append(numCols, name)
		}
		rep.Cols = append(rep.Cols, s)
	}

	if len(opt.GroupBy) > 0 {
		groups, err := groupSummaries(work, opt, numCols)
		if err != nil {
			return nil, err
		}
		rep.Groups = groups
	}
	if opt.Correlations && len(numCols) >= 2 {
		m, err := aggregate.Correlation(work, numCols...)
		if err != nil {
			return nil, err
		}
		rep.Corr = m
	}
	return rep, nil
}

// normalizeUnits strips unit suffixes from column names and converts numeric
// columns to the configured target unit. It returns the unit per cleaned name.
func normalizeUnits(t *table.Table, opt Options) (*table.Table, map[string]string, error) {
	units := map[string]string{}
	renames := map[string]string{}
	for _, name := range t.Columns() {
		clean, unit := splitUnits(name)
		if unit == "" || clean == name {
			continue
		}
		if t.Has(clean) {
			continue
		}
		renames[name] = clean
		units[clean] = unit
	}
	if len(renames) == 0 {
		return t, units, nil
	}
	out, err := table.Rename(t, renames)
	if err != nil {
		return nil, nil, err
	}
	if !opt.UnitNormalize {
		return out, units, nil
	}
	for clean, unit := range units {
		c, _ := out.Column(clean)
		if c.Kind() != table.KindNumeric {
			continue
		}
		xs := c.FloatsOrNaN()
		converted := false
		target := unit
		for i, x := range xs {
			if math.IsNaN(x) {
				continue
			}
			xs[i], target, converted = normalizeUnit(x, unit, opt)
		}
		if !converted {
			continue
		}
		if out, err = out.WithColumn(table.NumColumn(clean, xs)); err != nil {
			return nil, nil, err
		}
		units[clean] = target
	}
	return out, units, nil
}

const maxTopValues = 8

func summarize(t *table.Table, c *table.Column, opt Options) (ColumnSummary, error) {
	s := ColumnSummary{Name: c.Name(), Missing: c.MissingCount()}
	s.NonNull = c.Len() - s.Missing
	s.Unique = len(c.Unique())
	switch c.Kind() {
	case table.KindNumeric:
		s.Kind = "numeric"
		xs, err := c.Present()
		if err != nil {
			return s, err
		}
		if len(xs) == 0 {
			return s, nil
		}
		s.Min, s.Max = floats.Min(xs), floats.Max(xs)
		s.Mean = stat.Mean(xs, nil)
		if len(xs) > 1 {
			s.Std = stat.StdDev(xs, nil)
		}
		if opt.Outliers && len(xs) >= 8 {
			thr := opt.OutlierThreshold
			if thr <= 0 {
				thr = 3.5
			}
			s.OutlierThreshold = thr
			s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(xs, thr)
		}
	case table.KindDate:
		s.Kind = "datetime"
	case table.KindIdentifier:
		s.Kind = "identifier"
	default:
		s.Kind = "categorical"
		if s.Unique > 20 && s.Unique*2 > s.NonNull {
			s.Kind = "text"
			for _, v := range c.Unique() {
				if len(s.ExampleTexts) == 3 {
					break
				}
				s.ExampleTexts = append(s.ExampleTexts, v.String())
			}
			return s, nil
		}
		counts, err := aggregate.ValueCounts(t, c.Name())
		if err != nil {
			return s, err
		}
		vals, _ := counts.Column(c.Name())
		ns, _ := counts.Column("count")
		for i := 0; i < counts.Len(); i++ {
			n, _ := ns.Value(i).Float()
			s.TopValues = append(s.TopValues, CategoryCount{Value: vals.Value(i).String(), Count: int(n)})
		}
		sort.SliceStable(s.TopValues, func(i, j int) bool {
			if s.TopValues[i].Count == s.TopValues[j].Count {
				return s.TopValues[i].Value < s.TopValues[j].Value
			}
			return s.TopValues[i].Count > s.TopValues[j].Count
		})
		if len(s.TopValues) > maxTopValues {
			s.TopValues = s.TopValues[:maxTopValues]
		}
	}
	return s, nil
}

// robustOutliers counts values whose modified z-score exceeds thr and reports
// the largest |z| seen.
func robustOutliers(xs []float64, thr float64) (count int, maxAbsZ float64) {
	median, mad := medianMAD(xs)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range xs {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

const (
	maxGroups         = 20
	maxGroupCorrPairs = 10
)

func groupSummaries(t *table.Table, opt Options, numCols []string) ([]GroupResult, error) {
	if err := t.Require(opt.GroupBy...); err != nil {
		return nil, err
	}
	isKey := map[string]bool{}
	for _, k := range opt.GroupBy {
		isKey[k] = true
	}
	var metricCols []string
	reds := []aggregate.Reduction{aggregate.Agg(opt.GroupBy[0], aggregate.Size).As("__size")}
	for _, c := range numCols {
		if isKey[c] {
			continue
		}
		metricCols = append(metricCols, c)
		for _, op := range []aggregate.Op{aggregate.Count, aggregate.Min, aggregate.Max, aggregate.Mean} {
			reds = append(reds, aggregate.Agg(c, op).As("__"+c+"__"+string(op)))
		}
	}
	g, err := aggregate.GroupBy(t, opt.GroupBy, reds...)
	if err != nil {
		return nil, err
	}

	out := make([]GroupResult, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		r := g.Row(i)
		parts := make([]string, len(opt.GroupBy))
		preds := make([]table.Predicate, len(opt.GroupBy))
		for k, name := range opt.GroupBy {
			v, _ := r.Get(name)
			parts[k] = fmt.Sprintf("%s=%s", name, report.Cell(v))
			preds[k] = table.Eq(name, v)
		}
		size, _ := r.Float("__size")
		gr := GroupResult{Key: strings.Join(parts, ", "), Size: int(size), Metrics: map[string]NumSummary{}}
		for _, c := range metricCols {
			n, _ := r.Float("__" + c + "__count")
			if n == 0 {
				continue
			}
			ns := NumSummary{Count: int(n)}
			ns.Min, _ = r.Float("__" + c + "__min")
			ns.Max, _ = r.Float("__" + c + "__max")
			ns.Mean, _ = r.Float("__" + c + "__mean")
			gr.Metrics[c] = ns
		}
		if opt.CorrPerGroup && len(metricCols) >= 2 {
			sub, err := table.Filter(t, table.And(preds...))
			if err != nil {
				return nil, err
			}
			m, err := aggregate.Correlation(sub, metricCols...)
			if err != nil {
				return nil, err
			}
			gr.CorrPairs = topPairs(m, maxGroupCorrPairs)
		}
		out = append(out, gr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > maxGroups {
		out = out[:maxGroups]
	}
	return out, nil
}

// topPairs lists the defined upper-triangle correlations by descending |r|.
func topPairs(m *aggregate.CorrMatrix, limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString(report.Section("dataset summary"))
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			fmt.Fprintf(&b, "Rows: ~%d (processed %d)\n", r.Rows, r.Processed)
		} else {
			fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
		}
	}
	fmt.Fprintf(&b, "Columns: %d\n\n", len(r.Cols))

	b.WriteString(report.Section("schema"))
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case "numeric":
			fmt.Fprintf(&b, ": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.OutlierThreshold > 0 {
				fmt.Fprintf(&b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
				if c.OutliersMaxAbsZ > 0 {
					fmt.Fprintf(&b, " (max |z|≈%.2f)", c.OutliersMaxAbsZ)
				}
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		case "identifier":
			fmt.Fprintf(&b, ": unique=%d", c.Unique)
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString(": e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n")
		b.WriteString(report.Section("group-by summary"))
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", g.Key, g.Size)
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys[:min(6, len(keys))] {
				m := g.Metrics[k]
				fmt.Fprintf(&b, "  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
			}
		}
	}
	hasGCorr := false
	for _, g := range r.Groups {
		if len(g.CorrPairs) > 0 {
			hasGCorr = true
			break
		}
	}
	if hasGCorr {
		b.WriteString("\n")
		b.WriteString(report.Section("per-group correlations"))
		for _, g := range r.Groups {
			if len(g.CorrPairs) == 0 {
				continue
			}
			fmt.Fprintf(&b, "- %s:\n", g.Key)
			for _, p := range g.CorrPairs[:min(8, len(g.CorrPairs))] {
				fmt.Fprintf(&b, "  • %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n")
		b.WriteString(report.Section("correlations"))
		for _, p := range topPairs(r.Corr, 10) {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n")
		b.WriteString(report.Section("head and sample rows"))
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(report.Section("notes"))
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Alpha (%)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

func normalizeUnit(x float64, unit string, opt Options) (float64, string, bool) {
	target, ok := opt.UnitTargets[unit]
	if !ok {
		return x, unit, false
	}
	switch unit + ">" + target {
	case "g/L>mg/L":
		return x * 1000, target, true
	case "ug/L>mg/L":
		return x / 1000, target, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, target, true
	}
	return x, unit, false
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantile(dev, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
