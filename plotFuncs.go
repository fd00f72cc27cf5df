package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/cmplx"

	"github.com/bob-anderson-ok/otfsim/otf"
	"github.com/bob-anderson-ok/otfsim/profile"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// componentColors cycles through distinguishable line colors.
var componentColors = []color.RGBA{
	{R: 230, G: 120, B: 0, A: 255},
	{R: 0, G: 150, B: 60, A: 255},
	{R: 200, G: 0, B: 160, A: 255},
	{R: 0, G: 160, B: 200, A: 255},
	{R: 140, G: 100, B: 40, A: 255},
	{R: 120, G: 120, B: 120, A: 255},
	{R: 220, G: 40, B: 40, A: 255},
}

// makeMTFPlotImage plots the modulus of the system response and of each
// enabled component along angleDegrees, against spatial frequency in
// cycles/mrad.
func makeMTFPlotImage(sys *otf.SystemOTF, g *otf.FrequencyGrid, angleDegrees, wPx, hPx float64) (image.Image, error) {
	angle := angleDegrees * math.Pi / 180.0

	toPoints := func(h [][]complex128) []profile.Point {
		slice := otf.SliceOTF(h, angle)
		freq := Linspace(0, float64(len(slice)-1)*g.Spacing*1e-3, len(slice))
		pts := make([]profile.Point, len(slice))
		for i, v := range slice {
			pts[i] = profile.Point{Distance: freq[i], Value: cmplx.Abs(v)}
		}
		return pts
	}

	var series []profile.Series
	k := 0
	for _, c := range sys.Components {
		if !c.Enabled {
			continue
		}
		series = append(series, profile.Series{
			Name:   c.Name,
			Points: toPoints(c.Response),
			Color:  componentColors[k%len(componentColors)],
			Dashed: true,
		})
		k++
	}
	series = append(series, profile.Series{
		Name:   "system",
		Points: toPoints(sys.System),
		Color:  color.RGBA{B: 255, A: 255},
	})

	return profile.PlotProfiles(series, profile.PlotOptions{
		Title:  fmt.Sprintf("MTF along %.0f degrees", angleDegrees),
		XLabel: "spatial frequency (cycles/mrad)",
		YLabel: "modulation",
		YMin:   0,
		YMax:   1.05,
		YStep:  0.1,
	}, wPx, hPx)
}

// MakeSpectralWeightsPlot plots normalized spectral weights against
// wavelength (nm) and saves the plot to outFile.
func MakeSpectralWeightsPlot(data [][2]float64, source, outFile string) error {
	if len(data) == 0 {
		return fmt.Errorf("no spectral weights to plot")
	}
	p := plot.New()
	profile.UseLiberation(p)

	p.Title.Text = "Spectral weights vs Wavelength from: " + source
	p.X.Label.Text = "Wavelength (nm)"
	p.Y.Label.Text = "Relative weight"

	p.X.Tick.Marker = profile.StepTicks{Step: 25.0, Format: "%.0f"}

	p.Y.Tick.Marker = profile.StepTicks{Step: 0.1, Format: "%.2f"}
	p.Add(plotter.NewGrid()) // grid + ticks

	p.Y.Min = 0.0
	p.Y.Max = 1.1

	// Find the max weight - we will use that to calculate relative response
	var maxWeight = 0.0
	for _, pair := range data {
		if pair[1] > maxWeight {
			maxWeight = pair[1]
		}
	}
	if maxWeight <= 0 {
		return fmt.Errorf("spectral weights are all zero")
	}
	// Data
	n := len(data)
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = data[i][0]
		pts[i].Y = data[i][1] / maxWeight
	}

	linePoints, scatterPoints, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	linePoints.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	linePoints.Width = vg.Points(1)

	scatterPoints.Shape = draw.CircleGlyph{}
	scatterPoints.Radius = vg.Points(2)
	scatterPoints.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	p.Add(linePoints, scatterPoints)

	hpts := plotter.XYs{
		{X: data[0][0], Y: 0.0},
		{X: data[n-1][0], Y: 0.0},
	}

	hline, err := plotter.NewLine(hpts)
	if err != nil {
		return err
	}
	hline.Dashes = []vg.Length{
		vg.Points(6), // dash length
		vg.Points(4), // gap length
	}
	hline.Color = color.RGBA{R: 0, G: 0, B: 0, A: 255} // black
	p.Add(hline)

	return p.Save(8*vg.Inch, 4*vg.Inch, outFile)
}
