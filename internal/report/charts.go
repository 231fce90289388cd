package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	errNoData     = errors.New("chart has no data")
	barColor      = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	referenceGray = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// Chart builds a plot ready to be saved.
type Chart interface {
	Plot() (*plot.Plot, error)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

func rotateTicks(p *plot.Plot, n int) {
	if n <= 5 {
		return
	}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

// BarChart is a single series of bars, vertical unless Horizontal.
type BarChart struct {
	Title, XLabel, YLabel string
	Labels                []string
	Values                []float64
	Horizontal            bool
	Color                 color.Color
}

func (c BarChart) Plot() (*plot.Plot, error) {
	if len(c.Values) == 0 {
		return nil, errNoData
	}
	if len(c.Labels) != len(c.Values) {
		return nil, fmt.Errorf("bar chart: %d labels for %d values", len(c.Labels), len(c.Values))
	}
	p := newPlot(c.Title, c.XLabel, c.YLabel)
	bars, err := plotter.NewBarChart(plotter.Values(c.Values), vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = barColor
	if c.Color != nil {
		bars.Color = c.Color
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Horizontal = c.Horizontal
	p.Add(plotter.NewGrid(), bars)
	if c.Horizontal {
		p.NominalY(c.Labels...)
	} else {
		p.NominalX(c.Labels...)
		rotateTicks(p, len(c.Labels))
	}
	return p, nil
}

// LineChart plots one series over nominal x positions.
type LineChart struct {
	Title, XLabel, YLabel string
	Labels                []string
	Values                []float64
}

func (c LineChart) Plot() (*plot.Plot, error) {
	if len(c.Values) == 0 {
		return nil, errNoData
	}
	p := newPlot(c.Title, c.XLabel, c.YLabel)
	pts := make(plotter.XYs, len(c.Values))
	for i, v := range c.Values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, marks, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(2)
	line.Color = barColor
	marks.Shape = draw.CircleGlyph{}
	marks.Color = barColor
	p.Add(plotter.NewGrid(), line, marks)
	if len(c.Labels) == len(c.Values) {
		p.NominalX(c.Labels...)
		rotateTicks(p, len(c.Labels))
	}
	return p, nil
}

// ScatterSeries is one named point cloud.
type ScatterSeries struct {
	Name string
	X, Y []float64
}

// ScatterChart overlays point series, optional highlighted markers (for
// example cluster centroids) and an optional y = x reference line.
type ScatterChart struct {
	Title, XLabel, YLabel string
	Series                []ScatterSeries
	Markers               *ScatterSeries
	ReferenceLine         bool
}

func (c ScatterChart) Plot() (*plot.Plot, error) {
	if len(c.Series) == 0 {
		return nil, errNoData
	}
	p := newPlot(c.Title, c.XLabel, c.YLabel)
	p.Add(plotter.NewGrid())
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range c.Series {
		pts, err := xys(s)
		if err != nil {
			return nil, err
		}
		for _, pt := range pts {
			lo = math.Min(lo, math.Min(pt.X, pt.Y))
			hi = math.Max(hi, math.Max(pt.X, pt.Y))
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		if s.Name != "" {
			p.Legend.Add(s.Name, sc)
		}
	}
	if c.Markers != nil {
		pts, err := xys(*c.Markers)
		if err != nil {
			return nil, err
		}
		mk, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		mk.GlyphStyle.Color = color.Black
		mk.GlyphStyle.Shape = draw.CrossGlyph{}
		mk.GlyphStyle.Radius = vg.Points(7)
		p.Add(mk)
		if c.Markers.Name != "" {
			p.Legend.Add(c.Markers.Name, mk)
		}
	}
	if c.ReferenceLine && !math.IsInf(lo, 0) {
		line := plotter.NewFunction(func(x float64) float64 { return x })
		line.Color = referenceGray
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(line)
		pad := (hi - lo) * 0.05
		p.X.Min, p.X.Max = lo-pad, hi+pad
		p.Y.Min, p.Y.Max = lo-pad, hi+pad
	}
	p.Legend.Top = true
	return p, nil
}

func xys(s ScatterSeries) (plotter.XYs, error) {
	if len(s.X) != len(s.Y) {
		return nil, fmt.Errorf("scatter series %q: %d x values for %d y values", s.Name, len(s.X), len(s.Y))
	}
	if len(s.X) == 0 {
		return nil, fmt.Errorf("scatter series %q: %w", s.Name, errNoData)
	}
	pts := make(plotter.XYs, len(s.X))
	for i := range s.X {
		pts[i].X, pts[i].Y = s.X[i], s.Y[i]
	}
	return pts, nil
}

// BarSeries is one named series of a GroupedBarChart.
type BarSeries struct {
	Name   string
	Values []float64
}

// GroupedBarChart draws several series side by side per label.
type GroupedBarChart struct {
	Title, XLabel, YLabel string
	Labels                []string
	Series                []BarSeries
}

func (c GroupedBarChart) Plot() (*plot.Plot, error) {
	if len(c.Series) == 0 || len(c.Labels) == 0 {
		return nil, errNoData
	}
	p := newPlot(c.Title, c.XLabel, c.YLabel)
	p.Add(plotter.NewGrid())
	w := vg.Points(14)
	n := len(c.Series)
	for i, s := range c.Series {
		if len(s.Values) != len(c.Labels) {
			return nil, fmt.Errorf("grouped bar series %q: %d values for %d labels", s.Name, len(s.Values), len(c.Labels))
		}
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), w)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * w
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
	}
	p.Legend.Top = true
	p.NominalX(c.Labels...)
	rotateTicks(p, len(c.Labels))
	return p, nil
}

// Renderer saves charts as images under Dir.
type Renderer struct {
	Dir    string
	Width  vg.Length
	Height vg.Length
	Log    *zap.Logger
}

// NewRenderer sizes charts in inches.
func NewRenderer(dir string, widthIn, heightIn float64, log *zap.Logger) *Renderer {
	if widthIn <= 0 {
		widthIn = 10
	}
	if heightIn <= 0 {
		heightIn = 6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{Dir: dir, Width: vg.Length(widthIn) * vg.Inch, Height: vg.Length(heightIn) * vg.Inch, Log: log}
}

// Render builds c and writes it to Dir/file; the extension picks the format.
func (r *Renderer) Render(file string, c Chart) (string, error) {
	p, err := c.Plot()
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", file, err)
	}
	path := filepath.Join(r.Dir, file)
	if err := p.Save(r.Width, r.Height, path); err != nil {
		return "", fmt.Errorf("save chart %s: %w", file, err)
	}
	return path, nil
}

// NamedChart pairs a chart with its output file name.
type NamedChart struct {
	File  string
	Chart Chart
}

// Rendered is the outcome of one chart in RenderAll.
type Rendered struct {
	File string
	Path string
	Err  error
}

// RenderAll renders every chart independently. A failing chart is logged
// and reported in its Rendered entry; the others are still written.
func (r *Renderer) RenderAll(charts []NamedChart) []Rendered {
	out := make([]Rendered, 0, len(charts))
	for _, nc := range charts {
		path, err := r.Render(nc.File, nc.Chart)
		if err != nil {
			r.Log.Warn("chart failed", zap.String("file", nc.File), zap.Error(err))
		} else {
			r.Log.Debug("chart written", zap.String("path", path))
		}
		out = append(out, Rendered{File: nc.File, Path: path, Err: err})
	}
	return out
}

// Failed counts the charts that could not be written.
func Failed(rs []Rendered) int {
	n := 0
	for _, r := range rs {
		if r.Err != nil {
			n++
		}
	}
	return n
}
