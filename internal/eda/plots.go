package eda

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NamedSeries is one line of a combined plot.
type NamedSeries struct {
	Name   string
	Values []float64
}

func xys(xs, ys []float64) plotter.XYs {
	px, py := points(xs, ys)
	pts := make(plotter.XYs, len(px))
	for i := range px {
		pts[i].X = px[i]
		pts[i].Y = py[i]
	}
	return pts
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

// TimeSeries draws one indicator over the years. Missing years are skipped.
func TimeSeries(path, name string, years, vals []float64) error {
	p := newPlot("Time Series of "+name, YearColumn, name)
	pts := xys(years, vals)
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(2)
		line.Color = plotutil.Color(0)
		p.Add(line)
	}
	return p.Save(12*vg.Inch, 4*vg.Inch, path)
}

// Combined overlays several indicators on the same axes.
func Combined(path, title string, years []float64, series []NamedSeries) error {
	p := newPlot(title, YearColumn, "Value")
	p.Legend.Top = true
	for i, s := range series {
		pts := xys(years, s.Values)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(2)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

// Scatter draws y against x for the years where both are present.
func Scatter(path, xName, yName string, xs, ys []float64) error {
	p := newPlot(fmt.Sprintf("Scatter Plot: %s vs %s", yName, xName), xName, yName)
	pts := xys(xs, ys)
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = plotutil.Color(1)
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// matrixGrid adapts a square matrix to plotter.GridXYZ. Row r is drawn at
// y = n-1-r so the first indicator sits at the top like a table.
type matrixGrid struct {
	m [][]float64
}

func (g matrixGrid) Dims() (c, r int)   { return len(g.m), len(g.m) }
func (g matrixGrid) Z(c, r int) float64 { return g.m[len(g.m)-1-r][c] }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// Heatmap draws the correlation matrix with a blue-red palette over
// [-1, 1] and annotates every cell with its value.
func Heatmap(path, title string, names []string, m [][]float64) error {
	n := len(names)
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)

	h := plotter.NewHeatMap(matrixGrid{m: m}, cmap.Palette(255))
	h.Min, h.Max = -1, 1
	p.Add(h)

	var cells plotter.XYs
	var labels []string
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cells = append(cells, plotter.XY{X: float64(c), Y: float64(n - 1 - r)})
			labels = append(labels, fmt.Sprintf("%.2f", m[r][c]))
		}
	}
	ann, err := plotter.NewLabels(plotter.XYLabels{XYs: cells, Labels: labels})
	if err != nil {
		return err
	}
	for i := range ann.TextStyle {
		ann.TextStyle[i].XAlign = draw.XCenter
		ann.TextStyle[i].YAlign = draw.YCenter
		ann.TextStyle[i].Color = color.Black
	}
	p.Add(ann)

	rev := make([]string, n)
	for i, name := range names {
		rev[n-1-i] = name
	}
	p.NominalX(names...)
	p.NominalY(rev...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = draw.XRight

	size := vg.Length(2+n) * vg.Inch
	return p.Save(size+2*vg.Inch, size, path)
}
