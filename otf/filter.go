package otf

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/bob-anderson-ok/otfsim/internal/fft2d"
)

// FilterPadSize is the default zero-padded transform size used to sample
// the response of a filter kernel. Most kernels are a few pixels wide and
// the result is interpolated, so the exact size is not critical.
var FilterPadSize = 100

// Filter is the response of a digital filter (e.g. sharpening) applied to
// the sensor image. Kernel is assumed to sum to one. A 1×1 kernel is the
// identity.
type Filter struct {
	Kernel  [][]float64
	IFOV    float64 // detector instantaneous field of view (rad)
	PadSize int     // transform size; 0 means FilterPadSize
}

func (Filter) Name() string    { return SourceFilter }
func (Filter) Chromatic() bool { return false }

// Enabled is false for an empty or single-tap kernel.
func (f Filter) Enabled() bool {
	return len(f.Kernel) > 1 || (len(f.Kernel) == 1 && len(f.Kernel[0]) > 1)
}

func (f Filter) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	rows, cols := g.Shape()
	if !f.Enabled() {
		return Ones(rows, cols), nil
	}
	if !(f.IFOV > 0) {
		return nil, fmt.Errorf("filter ifov %g must be positive", f.IFOV)
	}
	kh := len(f.Kernel)
	kw := len(f.Kernel[0])
	for i, row := range f.Kernel {
		if len(row) != kw {
			return nil, fmt.Errorf("filter kernel row %d has %d taps, want %d: %w", i, len(row), kw, ErrShapeMismatch)
		}
	}

	n := f.PadSize
	if n <= 0 {
		n = FilterPadSize
	}
	n = max(n, kh, kw)

	ft := fft2d.Make(n, n)
	for y := 0; y < kh; y++ {
		for x := 0; x < kw; x++ {
			ft[y][x] = complex(f.Kernel[y][x], 0)
		}
	}
	fft2d.Forward(ft)
	ft = fft2d.Shift(ft)
	mag := make([][]float64, n)
	for y := range ft {
		mag[y] = make([]float64, n)
		for x := range ft[y] {
			mag[y][x] = cmplx.Abs(ft[y][x])
		}
	}

	nyquist := 0.5 / f.IFOV
	df := 2 * nyquist / float64(n)
	wrap := func(q float64) float64 {
		r := math.Mod(q+nyquist, 2*nyquist)
		if r < 0 {
			r += 2 * nyquist
		}
		return r - nyquist
	}
	c := float64(n / 2)
	return g.MapReal(func(u, v float64) float64 {
		return periodicBilinear(mag, wrap(v)/df+c, wrap(u)/df+c)
	}), nil
}

// periodicBilinear interpolates m at fractional (row, col), wrapping
// indices so that the last sample neighbours the first.
func periodicBilinear(m [][]float64, row, col float64) float64 {
	h, w := len(m), len(m[0])
	r0 := math.Floor(row)
	c0 := math.Floor(col)
	fr := row - r0
	fc := col - c0
	y0 := mod(int(r0), h)
	x0 := mod(int(c0), w)
	y1 := (y0 + 1) % h
	x1 := (x0 + 1) % w

	top := m[y0][x0]*(1-fc) + m[y0][x1]*fc
	bottom := m[y1][x0]*(1-fc) + m[y1][x1]*fc
	return top*(1-fr) + bottom*fr
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
