package profile_test

import (
	"fmt"
	"log"
	"math"

	"github.com/bob-anderson-ok/otfsim/profile"
)

// Example measures the width of a Gaussian spot along a row through its
// center.
func Example() {
	const n = 65
	spot := make([][]float64, n)
	for y := range spot {
		spot[y] = make([]float64, n)
		for x := range spot[y] {
			r2 := float64((x-n/2)*(x-n/2) + (y-n/2)*(y-n/2))
			spot[y][x] = math.Exp(-r2 / 32)
		}
	}

	path, err := profile.NewPath(n, n, 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("path: %s, %d samples\n", path.Direction, len(path.SamplePoints))

	pts := profile.Extract(spot, path)
	profile.Normalize(pts)
	w, err := profile.FWHM(pts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("FWHM: %.2f pixels\n", w)
	// Output:
	// path: left to right, 65 samples
	// FWHM: 9.43 pixels
}
