// Package psf turns a system transfer function into a compact, normalized
// spatial blur kernel and convolves images with it.
package psf

import (
	"errors"
	"fmt"
	"math"

	"github.com/bob-anderson-ok/otfsim/internal/fft2d"
	"github.com/bob-anderson-ok/otfsim/resample"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidSampling is returned for a non-positive sample spacing.
	ErrInvalidSampling = resample.ErrInvalidSampling

	// ErrEmptyInput is returned for an empty or ragged array.
	ErrEmptyInput = resample.ErrEmptyInput

	// ErrDegenerateKernel is returned when the kernel has no positive mass
	// to normalize, e.g. a response that is zero everywhere.
	ErrDegenerateKernel = errors.New("kernel sum is not positive")
)

// CropPolicy controls the support search. Candidate square crops of
// StartSize, StartSize+Step, ... samples (below the smaller response-grid
// dimension) are tried in order and the first whose mass exceeds
// Threshold is kept.
type CropPolicy struct {
	Threshold float64
	StartSize int
	Step      int
}

// DefaultCropPolicy keeps 95% of the kernel mass. The values are empirical.
var DefaultCropPolicy = CropPolicy{Threshold: 0.95, StartSize: 10, Step: 5}

func (p CropPolicy) orDefault() CropPolicy {
	if p == (CropPolicy{}) {
		return DefaultCropPolicy
	}
	return p
}

// Validate checks the policy fields.
func (p CropPolicy) Validate() error {
	if !(p.Threshold > 0 && p.Threshold <= 1) {
		return fmt.Errorf("crop threshold %g must be in (0, 1]", p.Threshold)
	}
	if p.StartSize < 1 || p.Step < 1 {
		return fmt.Errorf("crop start size %d and step %d must be at least 1", p.StartSize, p.Step)
	}
	return nil
}

// Kernel is a normalized spatial blur kernel. Its center sample is at
// (rows/2, cols/2).
type Kernel struct {
	Data    [][]float64
	Spacing float64 // angular sample spacing (rad)

	// EnergyFraction is the share of the uncropped kernel mass inside the
	// crop, before the crop was renormalized.
	EnergyFraction float64
	// Converged is false when no candidate crop reached the threshold and
	// the widest candidate was returned instead.
	Converged bool
}

// Synthesize converts the transfer function h, sampled at frequency spacing
// df (rad^-1) with zero frequency at (rows/2, cols/2), into a kernel with
// angular spacing dxout (rad). The zero CropPolicy means DefaultCropPolicy.
func Synthesize(h [][]complex128, df, dxout float64, policy CropPolicy) (*Kernel, error) {
	if !(df > 0) || math.IsInf(df, 0) {
		return nil, fmt.Errorf("frequency spacing %g: %w", df, ErrInvalidSampling)
	}
	if !(dxout > 0) || math.IsInf(dxout, 0) {
		return nil, fmt.Errorf("output spacing %g: %w", dxout, ErrInvalidSampling)
	}
	policy = policy.orDefault()
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	rows, cols, err := complexShape(h)
	if err != nil {
		return nil, err
	}

	raw := Inverse(h)

	// native spacing is 1/(N·df) along each axis
	dy := 1 / (float64(rows) * df)
	dx := 1 / (float64(cols) * df)
	newRows, err := resample.Size(rows, dy, dxout)
	if err != nil {
		return nil, err
	}
	newCols, err := resample.Size(cols, dx, dxout)
	if err != nil {
		return nil, err
	}
	k, err := resample.Resize(raw, newRows, newCols)
	if err != nil {
		return nil, err
	}
	if err := normalize(k); err != nil {
		return nil, err
	}

	limit := min(rows, cols)
	crop, energy, converged := searchCrop(k, policy, limit)
	if err := normalize(crop); err != nil {
		return nil, err
	}
	return &Kernel{
		Data:           crop,
		Spacing:        dxout,
		EnergyFraction: energy,
		Converged:      converged,
	}, nil
}

// Inverse returns the real part of the centered inverse transform of h, a
// spatial kernel with its center at (rows/2, cols/2).
func Inverse(h [][]complex128) [][]float64 {
	a := fft2d.IShift(h)
	fft2d.Inverse(a)
	a = fft2d.Shift(a)
	out := make([][]float64, len(a))
	for y := range a {
		out[y] = make([]float64, len(a[y]))
		for x := range a[y] {
			out[y][x] = real(a[y][x])
		}
	}
	return out
}

// CropStep is one candidate of the support search.
type CropStep struct {
	Size   int
	Energy float64
}

// CropEnergies returns the mass of every candidate crop of k that policy
// would try below limit, in increasing size. k is assumed normalized.
func CropEnergies(k [][]float64, policy CropPolicy, limit int) []CropStep {
	policy = policy.orDefault()
	var steps []CropStep
	for size := policy.StartSize; size < limit; size += policy.Step {
		steps = append(steps, CropStep{Size: size, Energy: sum(CenterCrop(k, size))})
	}
	return steps
}

func searchCrop(k [][]float64, policy CropPolicy, limit int) ([][]float64, float64, bool) {
	var widest [][]float64
	for size := policy.StartSize; size < limit; size += policy.Step {
		c := CenterCrop(k, size)
		e := sum(c)
		if e > policy.Threshold {
			return c, e, true
		}
		widest = c
	}
	if widest == nil {
		// no candidate below limit: keep the whole kernel
		widest = CenterCrop(k, max(len(k), len(k[0])))
	}
	return widest, sum(widest), false
}

// CenterCrop returns the size × size block around (rows/2, cols/2),
// clipped to the array. Crops of increasing size are nested.
func CenterCrop(m [][]float64, size int) [][]float64 {
	r0, r1 := cropRange(len(m), size)
	c0, c1 := cropRange(len(m[0]), size)
	out := make([][]float64, r1-r0)
	for y := range out {
		out[y] = append([]float64(nil), m[r0+y][c0:c1]...)
	}
	return out
}

func cropRange(n, size int) (int, int) {
	start := max(0, n/2-size/2)
	end := min(n, n/2-size/2+size)
	return start, end
}

func normalize(m [][]float64) error {
	s := sum(m)
	if !(s > 0) || math.IsInf(s, 0) {
		return fmt.Errorf("sum %g: %w", s, ErrDegenerateKernel)
	}
	for _, row := range m {
		floats.Scale(1/s, row)
	}
	return nil
}

func sum(m [][]float64) float64 {
	s := 0.0
	for _, row := range m {
		s += floats.Sum(row)
	}
	return s
}

func complexShape(h [][]complex128) (int, int, error) {
	rows := len(h)
	if rows == 0 || len(h[0]) == 0 {
		return 0, 0, ErrEmptyInput
	}
	cols := len(h[0])
	for i, r := range h {
		if len(r) != cols {
			return 0, 0, fmt.Errorf("response row %d has %d columns, want %d: %w", i, len(r), cols, ErrEmptyInput)
		}
	}
	return rows, cols, nil
}
