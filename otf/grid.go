package otf

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FrequencyGrid holds paired angular spatial frequency coordinates (rad^-1)
// on which every transfer function is evaluated. U varies along columns and
// V along rows. The zero-frequency sample sits at (rows/2, cols/2), which is
// where a centered inverse transform expects it.
type FrequencyGrid struct {
	U       [][]float64
	V       [][]float64
	Spacing float64 // frequency step per grid cell (rad^-1)
}

// NewFrequencyGrid builds an n×n grid with step df. u = (col - n/2)·df and
// v = (row - n/2)·df.
func NewFrequencyGrid(n int, df float64) (*FrequencyGrid, error) {
	if n < 1 {
		return nil, fmt.Errorf("frequency grid size must be at least 1, got %d", n)
	}
	if !(df > 0) || math.IsInf(df, 0) {
		return nil, fmt.Errorf("frequency spacing %g: %w", df, ErrInvalidSpacing)
	}
	g := &FrequencyGrid{
		U:       make([][]float64, n),
		V:       make([][]float64, n),
		Spacing: df,
	}
	c := n / 2
	for row := 0; row < n; row++ {
		g.U[row] = make([]float64, n)
		g.V[row] = make([]float64, n)
		for col := 0; col < n; col++ {
			g.U[row][col] = float64(col-c) * df
			g.V[row][col] = float64(row-c) * df
		}
	}
	return g, nil
}

// NewFrequencyGridToCutoff builds an n×n grid whose extent reaches
// ±span rad^-1 along each axis.
func NewFrequencyGridToCutoff(n int, span float64) (*FrequencyGrid, error) {
	if n < 1 {
		return nil, fmt.Errorf("frequency grid size must be at least 1, got %d", n)
	}
	return NewFrequencyGrid(n, 2*span/float64(n))
}

// Shape returns (rows, cols) of the grid.
func (g *FrequencyGrid) Shape() (int, int) {
	if len(g.U) == 0 {
		return 0, 0
	}
	return len(g.U), len(g.U[0])
}

// Validate checks that U and V are rectangular and mesh-consistent.
func (g *FrequencyGrid) Validate() error {
	rows, cols := g.Shape()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("empty frequency grid: %w", ErrShapeMismatch)
	}
	if len(g.V) != rows {
		return &ShapeError{Source: "frequency grid v", Want: [2]int{rows, cols}, Got: [2]int{len(g.V), 0}}
	}
	for i := 0; i < rows; i++ {
		if len(g.U[i]) != cols {
			return &ShapeError{Source: fmt.Sprintf("frequency grid u row %d", i), Want: [2]int{rows, cols}, Got: [2]int{rows, len(g.U[i])}}
		}
		if len(g.V[i]) != cols {
			return &ShapeError{Source: fmt.Sprintf("frequency grid v row %d", i), Want: [2]int{rows, cols}, Got: [2]int{rows, len(g.V[i])}}
		}
	}
	return nil
}

// Radial returns sqrt(u²+v²) at (row, col).
func (g *FrequencyGrid) Radial(row, col int) float64 {
	return math.Hypot(g.U[row][col], g.V[row][col])
}

// NewResponse allocates a zero response grid of the given shape.
func NewResponse(rows, cols int) [][]complex128 {
	m := make([][]complex128, rows)
	for i := range m {
		m[i] = make([]complex128, cols)
	}
	return m
}

// Ones returns an identity response (all ones) of the given shape.
func Ones(rows, cols int) [][]complex128 {
	m := NewResponse(rows, cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] = 1
		}
	}
	return m
}

// Map evaluates fn at every (u, v) of the grid.
func (g *FrequencyGrid) Map(fn func(u, v float64) complex128) [][]complex128 {
	rows, cols := g.Shape()
	h := NewResponse(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			h[i][j] = fn(g.U[i][j], g.V[i][j])
		}
	}
	return h
}

// MapReal is Map for real-valued responses.
func (g *FrequencyGrid) MapReal(fn func(u, v float64) float64) [][]complex128 {
	return g.Map(func(u, v float64) complex128 {
		return complex(fn(u, v), 0)
	})
}

// ResponseShape returns (rows, cols) of h, or an error if h is ragged.
func ResponseShape(h [][]complex128) (int, int, error) {
	rows := len(h)
	if rows == 0 {
		return 0, 0, nil
	}
	cols := len(h[0])
	for i := 1; i < rows; i++ {
		if len(h[i]) != cols {
			return 0, 0, fmt.Errorf("ragged response row %d has %d columns, want %d: %w", i, len(h[i]), cols, ErrShapeMismatch)
		}
	}
	return rows, cols, nil
}

// MTF returns |h| elementwise.
func MTF(h [][]complex128) [][]float64 {
	out := make([][]float64, len(h))
	for i := range h {
		out[i] = make([]float64, len(h[i]))
		for j, z := range h[i] {
			out[i][j] = cmplx.Abs(z)
		}
	}
	return out
}

// AtZero returns the response value at the zero-frequency sample, assuming
// h was evaluated on a grid built by NewFrequencyGrid.
func AtZero(h [][]complex128) complex128 {
	rows := len(h)
	if rows == 0 {
		return 0
	}
	return h[rows/2][len(h[0])/2]
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// finiteOrZero replaces NaN and ±Inf with 0. It is applied at the aperture
// edge terms, where arccos and sqrt are evaluated outside their domains.
func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
