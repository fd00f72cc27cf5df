package otf

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Spectrum is an ordered list of wavelengths (m) and the relative weight of
// each one. Weights need not sum to 1; they are normalized before use.
type Spectrum struct {
	Wavelengths []float64
	Weights     []float64
}

// Monochromatic returns a one-wavelength spectrum with weight 1.
func Monochromatic(wavelength float64) Spectrum {
	return Spectrum{Wavelengths: []float64{wavelength}, Weights: []float64{1}}
}

// Validate checks the spectrum invariants.
func (s Spectrum) Validate() error {
	if len(s.Wavelengths) == 0 {
		return ErrEmptySpectrum
	}
	if len(s.Weights) != len(s.Wavelengths) {
		return fmt.Errorf("%d weights for %d wavelengths: %w", len(s.Weights), len(s.Wavelengths), ErrInvalidWeights)
	}
	for _, wl := range s.Wavelengths {
		if !(wl > 0) || math.IsInf(wl, 0) {
			return fmt.Errorf("wavelength %g: %w", wl, ErrInvalidWavelength)
		}
	}
	for _, w := range s.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("weight %g: %w", w, ErrInvalidWeights)
		}
	}
	if floats.Sum(s.Weights) <= 0 {
		return fmt.Errorf("weights sum to zero: %w", ErrInvalidWeights)
	}
	return nil
}

// NormalizedWeights returns a copy of the weights scaled to sum to 1.
func (s Spectrum) NormalizedWeights() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	w := make([]float64, len(s.Weights))
	copy(w, s.Weights)
	floats.Scale(1/floats.Sum(w), w)
	return w, nil
}

// Evaluator maps a single wavelength (m) to a response grid.
type Evaluator func(wavelength float64) ([][]complex128, error)

// WeightedByWavelength returns Σ wᵢ·fn(λᵢ) with the weights normalized to
// sum to 1. Wavelengths are evaluated concurrently; the sum is formed in
// list order so results are reproducible. Every evaluation must return a
// grid of the same shape or ErrShapeMismatch is returned.
func WeightedByWavelength(s Spectrum, fn Evaluator) ([][]complex128, error) {
	weights, err := s.NormalizedWeights()
	if err != nil {
		return nil, err
	}

	results := make([][][]complex128, len(s.Wavelengths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, wl := range s.Wavelengths {
		g.Go(func() error {
			h, err := fn(wl)
			if err != nil {
				return fmt.Errorf("wavelength %g m: %w", wl, err)
			}
			results[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows, cols, err := ResponseShape(results[0])
	if err != nil {
		return nil, fmt.Errorf("wavelength %g m: %w", s.Wavelengths[0], err)
	}
	out := NewResponse(rows, cols)
	for i, h := range results {
		if err := checkShape(fmt.Sprintf("wavelength %g m", s.Wavelengths[i]), h, rows, cols); err != nil {
			return nil, err
		}
		w := complex(weights[i], 0)
		for r := range h {
			for c := range h[r] {
				out[r][c] += w * h[r][c]
			}
		}
	}
	return out, nil
}

// WeightedScalar is the scalar form of WeightedByWavelength, used for
// band-averaged quantities such as the coherence diameter.
func WeightedScalar(s Spectrum, fn func(wavelength float64) (float64, error)) (float64, error) {
	weights, err := s.NormalizedWeights()
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i, wl := range s.Wavelengths {
		v, err := fn(wl)
		if err != nil {
			return 0, fmt.Errorf("wavelength %g m: %w", wl, err)
		}
		sum += weights[i] * v
	}
	return sum, nil
}
