// Package fft2d holds the 2D FFT and quadrant-shift helpers shared by the
// transfer-function and kernel packages. Transforms run row by row and then
// column by column with gonum's CmplxFFT.
package fft2d

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Forward replaces a with its unnormalized 2D DFT.
func Forward(a [][]complex128) {
	transform(a, true)
}

// Inverse replaces a with its normalized inverse 2D DFT, so that
// Inverse(Forward(a)) == a.
func Inverse(a [][]complex128) {
	transform(a, false)
	h, w := len(a), len(a[0])
	// Gonum transforms are unnormalized: forward then inverse multiplies by N.
	scale := complex(1/float64(h*w), 0)
	for y := range a {
		for x := range a[y] {
			a[y][x] *= scale
		}
	}
}

func transform(a [][]complex128, forward bool) {
	h := len(a)
	if h == 0 {
		return
	}
	w := len(a[0])

	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	// rows
	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(tmp, a[y])
		if forward {
			rowFFT.Coefficients(a[y], tmp)
		} else {
			rowFFT.Sequence(a[y], tmp)
		}
	}

	// cols
	col := make([]complex128, h)
	out := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		if forward {
			colFFT.Coefficients(out, col)
		} else {
			colFFT.Sequence(out, col)
		}
		for y := 0; y < h; y++ {
			a[y][x] = out[y]
		}
	}
}

// Shift moves the zero-frequency element from (0,0) to (h/2, w/2).
func Shift(a [][]complex128) [][]complex128 {
	h, w := len(a), len(a[0])
	return roll(a, h/2, w/2)
}

// IShift is the inverse of Shift: it moves the element at (h/2, w/2) back
// to (0,0). Shift and IShift differ only for odd dimensions.
func IShift(a [][]complex128) [][]complex128 {
	h, w := len(a), len(a[0])
	return roll(a, h-h/2, w-w/2)
}

// roll returns a copy of a with out[(y+dy)%h][(x+dx)%w] = a[y][x].
func roll(a [][]complex128, dy, dx int) [][]complex128 {
	h, w := len(a), len(a[0])
	out := Make(h, w)
	for y := 0; y < h; y++ {
		yy := (y + dy) % h
		for x := 0; x < w; x++ {
			out[yy][(x+dx)%w] = a[y][x]
		}
	}
	return out
}

// Make allocates an h×w complex grid.
func Make(h, w int) [][]complex128 {
	m := make([][]complex128, h)
	for i := range m {
		m[i] = make([]complex128, w)
	}
	return m
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
