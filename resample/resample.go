// Package resample changes the sample spacing of 2D arrays by bilinear
// interpolation. It is used for both spatial kernels and images; rows stay
// rows and columns stay columns.
package resample

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidSampling is returned for a non-positive or non-finite
	// sample spacing.
	ErrInvalidSampling = errors.New("sample spacing must be positive and finite")

	// ErrEmptyInput is returned for an empty or ragged array.
	ErrEmptyInput = errors.New("input array is empty or not rectangular")
)

// MaxSamples bounds each axis of a resampled array.
const MaxSamples = 1 << 16

// Size returns round(n·dxin/dxout), never less than 1. Halves round to even.
// A result that is not finite or exceeds MaxSamples is ErrInvalidSampling.
func Size(n int, dxin, dxout float64) (int, error) {
	f := math.RoundToEven(float64(n) * dxin / dxout)
	if math.IsNaN(f) || f > MaxSamples {
		return 0, fmt.Errorf("%d samples at %g -> %g gives %g: %w", n, dxin, dxout, f, ErrInvalidSampling)
	}
	return max(1, int(f)), nil
}

// Resample2D resamples img from sample spacing dxin to dxout. The result
// has Size(rows) × Size(cols) samples covering the same extent. When the
// shape does not change the result is an exact copy.
func Resample2D(img [][]float64, dxin, dxout float64) ([][]float64, error) {
	if err := checkSpacing(dxin); err != nil {
		return nil, err
	}
	if err := checkSpacing(dxout); err != nil {
		return nil, err
	}
	rows, cols, err := Shape(img)
	if err != nil {
		return nil, err
	}
	newRows, err := Size(rows, dxin, dxout)
	if err != nil {
		return nil, err
	}
	newCols, err := Size(cols, dxin, dxout)
	if err != nil {
		return nil, err
	}
	return Resize(img, newRows, newCols)
}

// Resize bilinearly interpolates img onto newRows × newCols samples.
// Sample centers are aligned so that pixel edges coincide: output pixel j
// reads input position (j+0.5)·(n/newN) - 0.5. Positions beyond the first
// and last input samples take the edge value.
func Resize(img [][]float64, newRows, newCols int) ([][]float64, error) {
	rows, cols, err := Shape(img)
	if err != nil {
		return nil, err
	}
	if newRows < 1 || newCols < 1 || newRows > MaxSamples || newCols > MaxSamples {
		return nil, fmt.Errorf("resize to %dx%d: %w", newRows, newCols, ErrInvalidSampling)
	}

	out := make([][]float64, newRows)
	if newRows == rows && newCols == cols {
		for y := range img {
			out[y] = append([]float64(nil), img[y]...)
		}
		return out, nil
	}

	xs := sourcePositions(cols, newCols)
	sy := float64(rows) / float64(newRows)
	for y := 0; y < newRows; y++ {
		out[y] = make([]float64, newCols)
		fy := (float64(y)+0.5)*sy - 0.5
		for x := 0; x < newCols; x++ {
			out[y][x] = bilinear(img, xs[x], fy)
		}
	}
	return out, nil
}

func sourcePositions(n, newN int) []float64 {
	s := float64(n) / float64(newN)
	p := make([]float64, newN)
	for i := range p {
		p[i] = (float64(i)+0.5)*s - 0.5
	}
	return p
}

// bilinear samples m at fractional column x and row y, clamping to the
// array edges.
func bilinear(m [][]float64, x, y float64) float64 {
	rows, cols := len(m), len(m[0])

	x = math.Max(0, math.Min(x, float64(cols-1)))
	y = math.Max(0, math.Min(y, float64(rows-1)))

	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, cols-1)
	y1 := min(y0+1, rows-1)

	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v0 := m[y0][x0]*(1-xFrac) + m[y0][x1]*xFrac
	v1 := m[y1][x0]*(1-xFrac) + m[y1][x1]*xFrac
	return v0*(1-yFrac) + v1*yFrac
}

// Shape returns the dimensions of a non-empty rectangular array.
func Shape(m [][]float64) (rows, cols int, err error) {
	rows = len(m)
	if rows == 0 || len(m[0]) == 0 {
		return 0, 0, ErrEmptyInput
	}
	cols = len(m[0])
	for i, r := range m {
		if len(r) != cols {
			return 0, 0, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(r), cols, ErrEmptyInput)
		}
	}
	return rows, cols, nil
}

func checkSpacing(dx float64) error {
	if !(dx > 0) || math.IsInf(dx, 0) {
		return fmt.Errorf("spacing %g: %w", dx, ErrInvalidSampling)
	}
	return nil
}
