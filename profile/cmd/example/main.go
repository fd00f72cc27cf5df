// Example program demonstrating how to use the profile package to:
// 1. Synthesize the blur kernel of a diffraction-limited aperture
// 2. Extract cross-sections of the kernel along a row and a diagonal
// 3. Compare them with the analytic Airy pattern and measure the FWHM
// 4. Draw the sampling path on an 8-bit rendering of the kernel
//
// Usage:
//
//	go run main.go
package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"

	"github.com/bob-anderson-ok/otfsim/otf"
	"github.com/bob-anderson-ok/otfsim/profile"
	"github.com/bob-anderson-ok/otfsim/psf"
)

const (
	diameter   = 0.1    // aperture diameter (m)
	wavelength = 0.6e-6 // m
	gridSize   = 256
)

func main() {
	fmt.Println("Kernel Profile Example")
	fmt.Println("======================")

	// A grid reaching twice the cutoff gives a native kernel spacing of λ/(4D)
	g, err := otf.NewFrequencyGridToCutoff(gridSize, 2*diameter/wavelength)
	if err != nil {
		log.Fatalf("Failed to build grid: %v", err)
	}
	sys, err := otf.NewAssembler(otf.Monochromatic(wavelength), otf.Aperture{Diameter: diameter}).Assemble(g)
	if err != nil {
		log.Fatalf("Failed to assemble system response: %v", err)
	}

	dx := wavelength / (4 * diameter)
	k, err := psf.Synthesize(sys.System, g.Spacing, dx, psf.CropPolicy{Threshold: 0.98, StartSize: 11, Step: 4})
	if err != nil {
		log.Fatalf("Failed to synthesize kernel: %v", err)
	}
	size := len(k.Data)
	fmt.Printf("\nKernel: %dx%d samples at %.3g rad, energy fraction %.4f (converged: %v)\n",
		size, size, k.Spacing, k.EnergyFraction, k.Converged)

	var series []profile.Series
	var path *profile.Path
	for _, angle := range []float64{0, 45} {
		path, err = profile.NewPath(size, size, angle)
		if err != nil {
			log.Fatalf("Failed to compute path: %v", err)
		}
		path.Scale = dx * 1e6 // µrad
		pts := profile.Extract(k.Data, path)
		profile.Normalize(pts)

		w, err := profile.FWHM(pts)
		if err != nil {
			fmt.Printf("  %3.0f degrees: %v\n", angle, err)
		} else {
			fmt.Printf("  %3.0f degrees: %s, %d samples, FWHM %.3f µrad\n", angle, path.Direction, len(pts), w)
		}
		series = append(series, profile.Series{
			Name:   fmt.Sprintf("kernel %.0f°", angle),
			Points: pts,
			Color:  color.RGBA{B: uint8(255 - 2*angle), G: uint8(3 * angle), A: 255},
		})
	}

	// Analytic Airy pattern for comparison
	airyPts := make([]profile.Point, 0, len(series[0].Points))
	for _, p := range series[0].Points {
		airyPts = append(airyPts, profile.Point{Distance: p.Distance, Value: airy(p.Distance * 1e-6)})
	}
	series = append(series, profile.Series{Name: "Airy", Points: airyPts, Color: color.RGBA{R: 255, A: 255}, Dashed: true})
	fmt.Printf("  Airy FWHM: %.3f µrad (1.029 λ/D)\n", 1.029*wavelength/diameter*1e6)

	outputPlot := "kernel_profile.png"
	err = profile.SaveProfilePlot(outputPlot, series, profile.PlotOptions{
		Title:  "Diffraction-limited kernel",
		XLabel: "angle from center (µrad)",
		YLabel: "normalized value",
		YMin:   -0.05,
		YMax:   1.05,
	}, 1200, 500)
	if err != nil {
		log.Printf("Could not save profile plot: %v\n", err)
	} else {
		fmt.Printf("\nSaved profile plot to %s\n", outputPlot)
	}

	// Render the kernel with a square-root stretch and mark the last path
	peak := 0.0
	for _, row := range k.Data {
		for _, v := range row {
			peak = math.Max(peak, v)
		}
	}
	display := image.NewGray(image.Rect(0, 0, size, size))
	for y, row := range k.Data {
		for x, v := range row {
			display.SetGray(x, y, color.Gray{Y: uint8(255 * math.Sqrt(math.Max(v, 0)/peak))})
		}
	}
	annotated, err := profile.DrawPathOnImage(display, path)
	if err != nil {
		log.Printf("Could not draw path: %v\n", err)
	} else {
		outputAnnotated := "annotated_kernel.png"
		if err := profile.SaveImageToFile(outputAnnotated, annotated); err != nil {
			log.Printf("Could not save annotated image: %v\n", err)
		} else {
			fmt.Printf("Saved annotated image to %s\n", outputAnnotated)
		}
	}

	fmt.Println("\nDone!")
}

// airy is the normalized intensity of an unobscured circular aperture at
// field angle theta (rad).
func airy(theta float64) float64 {
	if theta == 0 {
		return 1
	}
	x := math.Pi * diameter * theta / wavelength
	a := 2 * math.J1(x) / x
	return a * a
}
