package profile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// StepTicks is a custom tick marker for plots with fixed step intervals.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	if !(t.Step > 0) {
		return ticks
	}
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

// Series is one curve on a profile plot.
type Series struct {
	Name   string
	Points []Point
	Color  color.Color
	Dashed bool
}

// PlotOptions labels a profile plot. A zero YMax lets the plot choose its
// own vertical range.
type PlotOptions struct {
	Title  string
	XLabel string
	YLabel string
	YMin   float64
	YMax   float64
	XStep  float64 // zero means a twentieth of the x span
	YStep  float64 // zero means 0.2
}

var errNoSeries = errors.New("nothing to plot")

// UseLiberation sets the Liberation Sans typeface on every text element of p.
func UseLiberation(p *plot.Plot) {
	setFont(&p.Title.TextStyle.Font, 12)
	setFont(&p.X.Label.TextStyle.Font, 12)
	setFont(&p.Y.Label.TextStyle.Font, 12)
	setFont(&p.X.Tick.Label.Font, 10)
	setFont(&p.Y.Tick.Label.Font, 10)
	setFont(&p.Legend.TextStyle.Font, 10)
}

func setFont(f *font.Font, points float64) {
	f.Typeface = "Liberation"
	f.Variant = "Sans"
	f.Size = vg.Points(points)
}

// PlotProfiles draws each series as a line and returns the plot as an
// image of wPx × hPx pixels.
func PlotProfiles(series []Series, opts PlotOptions, wPx, hPx float64) (image.Image, error) {
	if len(series) == 0 {
		return nil, errNoSeries
	}
	p := plot.New()
	UseLiberation(p)

	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	if opts.YMax != 0 {
		p.Y.Min = opts.YMin
		p.Y.Max = opts.YMax
	}

	xMin, xMax := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, pt := range s.Points {
			xMin = math.Min(xMin, pt.Distance)
			xMax = math.Max(xMax, pt.Distance)
		}
	}
	xStep := opts.XStep
	if xStep == 0 && xMax > xMin {
		xStep = (xMax - xMin) / 20
	}
	yStep := opts.YStep
	if yStep == 0 {
		yStep = 0.2
	}
	p.X.Tick.Marker = StepTicks{Step: xStep, Format: "%.3g"}
	p.Y.Tick.Marker = StepTicks{Step: yStep, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	for _, s := range series {
		pts := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			pts[i].X = pt.Distance
			pts[i].Y = pt.Value
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = s.Color
		if line.Color == nil {
			line.Color = color.RGBA{B: 255, A: 255}
		}
		if s.Dashed {
			line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		}
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
	}
	p.Legend.Top = true

	// Render to image
	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	dc := vgdraw.New(c)
	p.Draw(dc)

	return c.Image(), nil
}

// SaveProfilePlot creates and saves a profile plot to a PNG file.
func SaveProfilePlot(filename string, series []Series, opts PlotOptions, wPx, hPx float64) (err error) {
	img, err := PlotProfiles(series, opts, wPx, hPx)
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}
