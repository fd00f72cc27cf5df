package otf

import (
	"bufio"
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"strconv"
	"strings"

	json "github.com/KevinWang15/go-json5"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// RadialTable is a user-supplied, rotationally symmetric response sampled
// at increasing radial frequencies. Values outside the table are held at
// the nearest endpoint.
type RadialTable struct {
	Freq       []float64 // rad^-1, strictly increasing
	Real, Imag []float64

	re, im interp.PiecewiseLinear
}

// NewRadialTable fits the table for evaluation.
func NewRadialTable(freq, re, im []float64) (*RadialTable, error) {
	t := &RadialTable{Freq: freq, Real: re, Imag: im}
	if err := fitPair(&t.re, &t.im, freq, re, im); err != nil {
		return nil, fmt.Errorf("radial table: %w", err)
	}
	return t, nil
}

func (*RadialTable) Name() string    { return SourceRadialTable }
func (*RadialTable) Chromatic() bool { return false }

func (t *RadialTable) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	return g.Map(func(u, v float64) complex128 {
		rho := math.Hypot(u, v)
		return complex(t.re.Predict(rho), t.im.Predict(rho))
	}), nil
}

// XYTable is a user-supplied separable response given as independent u
// and v profiles. The 2-D value is the geometric mean sqrt(Hx·Hy), which
// keeps the off-axis response between the two profiles.
type XYTable struct {
	UFreq, UReal, UImag []float64
	VFreq, VReal, VImag []float64

	ure, uim, vre, vim interp.PiecewiseLinear
}

// NewXYTable fits both profiles for evaluation.
func NewXYTable(uFreq, uRe, uIm, vFreq, vRe, vIm []float64) (*XYTable, error) {
	t := &XYTable{
		UFreq: uFreq, UReal: uRe, UImag: uIm,
		VFreq: vFreq, VReal: vRe, VImag: vIm,
	}
	if err := fitPair(&t.ure, &t.uim, uFreq, uRe, uIm); err != nil {
		return nil, fmt.Errorf("x-and-y table u profile: %w", err)
	}
	if err := fitPair(&t.vre, &t.vim, vFreq, vRe, vIm); err != nil {
		return nil, fmt.Errorf("x-and-y table v profile: %w", err)
	}
	return t, nil
}

func (*XYTable) Name() string    { return SourceXYTable }
func (*XYTable) Chromatic() bool { return false }

func (t *XYTable) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	return g.Map(func(u, v float64) complex128 {
		au, av := math.Abs(u), math.Abs(v)
		hx := complex(t.ure.Predict(au), t.uim.Predict(au))
		hy := complex(t.vre.Predict(av), t.vim.Predict(av))
		return cmplx.Sqrt(hx * hy)
	}), nil
}

func fitPair(re, im *interp.PiecewiseLinear, x, yr, yi []float64) error {
	if len(x) < 2 {
		return fmt.Errorf("need at least 2 samples, got %d", len(x))
	}
	if len(yr) != len(x) || len(yi) != len(x) {
		return fmt.Errorf("%d frequencies with %d real and %d imaginary values: %w", len(x), len(yr), len(yi), ErrShapeMismatch)
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return fmt.Errorf("frequencies must be strictly increasing at sample %d", i)
		}
	}
	if err := re.Fit(x, yr); err != nil {
		return err
	}
	return im.Fit(x, yi)
}

// Table2D is a user-supplied 2-D response sampled on a regular grid
// spanning [-Nyquist, Nyquist] along both axes. Columns run along u and
// rows along v, both from -Nyquist to +Nyquist, matching FrequencyGrid.
// The response is zero outside the table.
type Table2D struct {
	Data    [][]complex128
	Nyquist float64 // rad^-1
}

func (*Table2D) Name() string    { return SourceTable2D }
func (*Table2D) Chromatic() bool { return false }

func (t *Table2D) Evaluate(g *FrequencyGrid, _ float64) ([][]complex128, error) {
	rows, cols, err := ResponseShape(t.Data)
	if err != nil {
		return nil, err
	}
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("2-D table must be at least 2x2, got %dx%d", rows, cols)
	}
	if !(t.Nyquist > 0) {
		return nil, fmt.Errorf("2-D table nyquist %g: %w", t.Nyquist, ErrInvalidSpacing)
	}
	span := 2 * t.Nyquist
	return g.Map(func(u, v float64) complex128 {
		x := (u + t.Nyquist) / span * float64(cols-1)
		y := (v + t.Nyquist) / span * float64(rows-1)
		if x < 0 || y < 0 || x > float64(cols-1) || y > float64(rows-1) {
			return 0
		}
		x0 := min(int(x), cols-2)
		y0 := min(int(y), rows-2)
		fx := complex(x-float64(x0), 0)
		fy := complex(y-float64(y0), 0)
		top := t.Data[y0][x0]*(1-fx) + t.Data[y0][x0+1]*fx
		bottom := t.Data[y0+1][x0]*(1-fx) + t.Data[y0+1][x0+1]*fx
		return top*(1-fy) + bottom*fy
	}), nil
}

// readColumns parses whitespace-delimited numeric text into columns. Blank
// lines and lines starting with '#' are skipped.
func readColumns(path string, want int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open response table %v", path)
	}
	defer f.Close()

	cols := make([][]float64, want)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < want {
			return nil, errors.Errorf("%v line %d: expected %d columns, found %d", path, lineNum, want, len(fields))
		}
		for i := 0; i < want; i++ {
			x, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%v line %d column %d", path, lineNum, i+1)
			}
			cols[i] = append(cols[i], x)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read response table %v", path)
	}
	if len(cols[0]) == 0 {
		return nil, errors.Errorf("response table %v has no data", path)
	}
	return cols, nil
}

// LoadRadialTable reads a radial response from text with one
// "frequency real imaginary" triple per line.
func LoadRadialTable(path string) (*RadialTable, error) {
	c, err := readColumns(path, 3)
	if err != nil {
		return nil, err
	}
	t, err := NewRadialTable(c[0], c[1], c[2])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid radial table %v", path)
	}
	return t, nil
}

// LoadXYTable reads a separable response from text with six columns per
// line: u frequency, u real, u imaginary, v frequency, v real, v imaginary.
func LoadXYTable(path string) (*XYTable, error) {
	c, err := readColumns(path, 6)
	if err != nil {
		return nil, err
	}
	t, err := NewXYTable(c[0], c[1], c[2], c[3], c[4], c[5])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid x-and-y table %v", path)
	}
	return t, nil
}

type table2DFile struct {
	Nyquist float64     `json:"nyquist"`
	Real    [][]float64 `json:"real"`
	Imag    [][]float64 `json:"imag"`
}

// LoadTable2D reads a 2-D response from a JSON5 file of the form
//
//	{ nyquist: 1.0e5, real: [[...], ...], imag: [[...], ...] }
//
// imag may be omitted for a real response. The first row holds
// v = -nyquist, so a table written with +nyquist in the top row (as
// pybsm's userOTF2D expects) must be flipped vertically first.
func LoadTable2D(path string) (*Table2D, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read 2-D response table %v", path)
	}
	var raw table2DFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse 2-D response table %v", path)
	}
	if len(raw.Real) == 0 {
		return nil, errors.Errorf("2-D response table %v has no real values", path)
	}
	if raw.Imag != nil && len(raw.Imag) != len(raw.Real) {
		return nil, errors.Errorf("2-D response table %v: %d imaginary rows for %d real rows", path, len(raw.Imag), len(raw.Real))
	}
	t := &Table2D{Nyquist: raw.Nyquist, Data: make([][]complex128, len(raw.Real))}
	for r, row := range raw.Real {
		if raw.Imag != nil && len(raw.Imag[r]) != len(row) {
			return nil, errors.Errorf("2-D response table %v row %d: %d imaginary values for %d real values", path, r, len(raw.Imag[r]), len(row))
		}
		t.Data[r] = make([]complex128, len(row))
		for c, x := range row {
			y := 0.0
			if raw.Imag != nil {
				y = raw.Imag[r][c]
			}
			t.Data[r][c] = complex(x, y)
		}
	}
	return t, nil
}
