package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PieChart shows each value as a share of the total.
type PieChart struct {
	Title  string
	Labels []string
	Values []float64
}

func (c PieChart) Plot() (*plot.Plot, error) {
	if len(c.Values) == 0 {
		return nil, errNoData
	}
	if len(c.Labels) != len(c.Values) {
		return nil, fmt.Errorf("pie chart: %d labels for %d values", len(c.Labels), len(c.Values))
	}
	total := 0.0
	for _, v := range c.Values {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("pie chart: negative or missing value %v", v)
		}
		total += v
	}
	if total == 0 {
		return nil, errNoData
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.HideAxes()
	w := &wedges{values: c.Values, total: total}
	p.Add(w)
	for i, l := range c.Labels {
		p.Legend.Add(l, swatch{plotutil.Color(i)})
	}
	p.Legend.Top = true
	return p, nil
}

// wedges draws a pie directly in canvas coordinates, starting at twelve
// o'clock and going counter-clockwise.
type wedges struct {
	values []float64
	total  float64
}

func (w *wedges) Plot(c draw.Canvas, plt *plot.Plot) {
	center := c.Center()
	r := min(c.Max.X-c.Min.X, c.Max.Y-c.Min.Y) / 2 * 0.85
	sty := plt.Legend.TextStyle
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YCenter

	start := math.Pi / 2
	for i, v := range w.values {
		sweep := v / w.total * 2 * math.Pi
		var path vg.Path
		path.Move(center)
		path.Arc(center, r, start, sweep)
		path.Close()
		c.SetColor(plotutil.Color(i))
		c.Fill(path)
		c.SetColor(color.White)
		c.SetLineWidth(vg.Points(1))
		c.Stroke(path)

		if sweep > 0.15 {
			mid := start + sweep/2
			pt := vg.Point{
				X: center.X + vg.Length(math.Cos(mid))*r*0.65,
				Y: center.Y + vg.Length(math.Sin(mid))*r*0.65,
			}
			c.FillText(sty, pt, fmt.Sprintf("%.1f%%", v/w.total*100))
		}
		start += sweep
	}
}

type swatch struct{ color color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	var box vg.Path
	box.Move(c.Min)
	box.Line(vg.Point{X: c.Max.X, Y: c.Min.Y})
	box.Line(c.Max)
	box.Line(vg.Point{X: c.Min.X, Y: c.Max.Y})
	box.Close()
	c.SetColor(s.color)
	c.Fill(box)
}
