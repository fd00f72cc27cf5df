package otf

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when response grids that must be combined
	// have different shapes.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptySpectrum is returned when no wavelengths are supplied.
	ErrEmptySpectrum = errors.New("at least one wavelength is required")

	// ErrInvalidWavelength is returned for non-positive wavelengths.
	ErrInvalidWavelength = errors.New("wavelengths must be strictly positive")

	// ErrInvalidWeights is returned when the weight list does not match the
	// wavelength list or sums to zero.
	ErrInvalidWeights = errors.New("invalid spectral weights")

	// ErrInvalidSpacing is returned for non-positive frequency spacing.
	ErrInvalidSpacing = errors.New("frequency spacing must be positive")
)

// ShapeError reports the source whose response grid did not match.
type ShapeError struct {
	Source string
	Want   [2]int
	Got    [2]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: response is %dx%d, want %dx%d: %v",
		e.Source, e.Got[0], e.Got[1], e.Want[0], e.Want[1], ErrShapeMismatch)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func checkShape(source string, h [][]complex128, rows, cols int) error {
	r, c, err := ResponseShape(h)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if r != rows || c != cols {
		return &ShapeError{Source: source, Want: [2]int{rows, cols}, Got: [2]int{r, c}}
	}
	return nil
}
