package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
)

// MatrixToGray16Data -------------------- Data PNG (Gray16, fixed physical scaling) --------------------
// Mapping: Y16 = round(v * scale), clamped to [0, 65535]
func MatrixToGray16Data(m [][]float64, scale float64) (*image.Gray16, error) {
	h, w, err := matrixSize(m)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, errors.New("scale must be > 0")
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			i := row + 2*x
			if math.IsNaN(v) || math.IsInf(v, 0) {
				// write 0
				img.Pix[i], img.Pix[i+1] = 0, 0
				continue
			}

			u := math.Round(v * scale)
			if u < 0 {
				u = 0
			} else if u > 65535 {
				u = 65535
			}
			y16 := uint16(u)

			// Gray16 Pix is big-endian per pixel: high then low
			img.Pix[i] = uint8(y16 >> 8)
			img.Pix[i+1] = uint8(y16)
		}
	}
	return img, nil
}

// Gray16Scale returns the scale that maps the largest finite value of the
// bands to full range, or 1 when nothing is positive.
func Gray16Scale(bands ...[][]float64) float64 {
	peak := 0.0
	for _, m := range bands {
		for _, row := range m {
			for _, v := range row {
				if !math.IsInf(v, 0) && v > peak {
					peak = v
				}
			}
		}
	}
	if peak <= 0 {
		return 1
	}
	return 65535 / peak
}

// percentileRange collects the finite values of the bands and returns the
// values at percentiles pLow and pHigh.
func percentileRange(pLow, pHigh float64, bands ...[][]float64) (lo, hi float64, err error) {
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return 0, 0, errors.New("percentiles must satisfy 0 <= p Low < pHigh <= 100")
	}
	var vals []float64
	for _, m := range bands {
		for _, row := range m {
			for _, v := range row {
				if !math.IsNaN(v) && !math.IsInf(v, 0) {
					vals = append(vals, v)
				}
			}
		}
	}
	if len(vals) == 0 {
		return 0, 0, errors.New("matrix has no finite values")
	}

	sort.Float64s(vals)

	// Helper to get percentile value
	percentile := func(p float64) float64 {
		if p <= 0 {
			return vals[0]
		}
		if p >= 100 {
			return vals[len(vals)-1]
		}
		pos := (p / 100.0) * float64(len(vals)-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i >= len(vals)-1 {
			return vals[len(vals)-1]
		}
		return vals[i]*(1-f) + vals[i+1]*f
	}

	lo = percentile(pLow)
	hi = percentile(pHigh)
	if hi == lo {
		hi = lo + 1 // avoid divide-by-zero; image becomes mostly constant
	}
	return lo, hi, nil
}

func stretch(v, lo, hi float64) uint8 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	t := (v - lo) / (hi - lo) // normalize
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return uint8(math.Round(t * 255.0))
}

// MatrixToGrayViewPercentile -------------------- View PNG (Gray8, auto-stretch) --------------------
// Two common auto-stretches:
//
//	A) Min/Max stretch (simple)
//	B) Percentile stretch (robust to outliers) <-- recommended
//
// This implements percentile stretch: map pLow to pHigh to 0..255 and clamp.
func MatrixToGrayViewPercentile(m [][]float64, pLow, pHigh float64) (*image.Gray, error) {
	h, w, err := matrixSize(m)
	if err != nil {
		return nil, err
	}
	lo, hi, err := percentileRange(pLow, pHigh, m)
	if err != nil {
		return nil, err
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			img.Pix[row+x] = stretch(m[y][x], lo, hi)
		}
	}
	return img, nil
}

// BandsToRGBViewPercentile stretches three bands with one shared range so
// that the color balance is kept.
func BandsToRGBViewPercentile(bands [][][]float64, pLow, pHigh float64) (*image.RGBA, error) {
	if len(bands) != 3 {
		return nil, fmt.Errorf("need 3 bands for an RGB view, have %d", len(bands))
	}
	h, w, err := matrixSize(bands[0])
	if err != nil {
		return nil, err
	}
	for _, b := range bands[1:] {
		bh, bw, err := matrixSize(b)
		if err != nil {
			return nil, err
		}
		if bh != h || bw != w {
			return nil, fmt.Errorf("band is %dx%d, want %dx%d", bh, bw, h, w)
		}
	}
	lo, hi, err := percentileRange(pLow, pHigh, bands...)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: stretch(bands[0][y][x], lo, hi),
				G: stretch(bands[1][y][x], lo, hi),
				B: stretch(bands[2][y][x], lo, hi),
				A: 255,
			})
		}
	}
	return img, nil
}

// ImageToBands splits img into float64 bands. Gray images give one band in
// their native units; anything else gives R, G and B bands on a 0..255
// scale.
func ImageToBands(img image.Image) [][][]float64 {
	b := img.Bounds()
	newBand := func() [][]float64 {
		m := make([][]float64, b.Dy())
		for y := range m {
			m[y] = make([]float64, b.Dx())
		}
		return m
	}

	switch g := img.(type) {
	case *image.Gray:
		m := newBand()
		for y := range m {
			for x := range m[y] {
				m[y][x] = float64(g.GrayAt(x+b.Min.X, y+b.Min.Y).Y)
			}
		}
		return [][][]float64{m}
	case *image.Gray16:
		m := newBand()
		for y := range m {
			for x := range m[y] {
				m[y][x] = float64(g.Gray16At(x+b.Min.X, y+b.Min.Y).Y)
			}
		}
		return [][][]float64{m}
	}

	r, gr, bl := newBand(), newBand(), newBand()
	for y := range r {
		for x := range r[y] {
			cr, cg, cb, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			r[y][x] = float64(cr) / 257
			gr[y][x] = float64(cg) / 257
			bl[y][x] = float64(cb) / 257
		}
	}
	return [][][]float64{r, gr, bl}
}

func ColorModelString(m color.Model) string {
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.CMYKModel:
		return "CMYK"
	case color.YCbCrModel:
		return "YCbCr"
	case color.AlphaModel:
		return "Alpha"
	case color.Alpha16Model:
		return "Alpha16"
	default:
		return fmt.Sprintf("Unknown (%T)", m)
	}
}

// Linspace This is provided to match numpy's linspace()
func Linspace(start, end float64, n int) []float64 {
	if n <= 1 {
		return []float64{start}
	}

	step := (end - start) / float64(n-1)

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = start + float64(i)*step
	}
	return x
}

func matrixSize(m [][]float64) (h, w int, err error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return 0, 0, errors.New("empty matrix")
	}
	h = len(m)
	w = len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return 0, 0, errors.New("ragged matrix")
		}
	}
	return h, w, nil
}
