package psf

import (
	"errors"
	"fmt"

	"github.com/bob-anderson-ok/otfsim/internal/fft2d"
)

type ConvMode int

const (
	ConvSame ConvMode = iota
	ConvFull
	ConvValid
)

// PaddingMode selects how the image is extended beyond its borders. The
// zero value replicates edge pixels.
type PaddingMode int

const (
	PadReplicate PaddingMode = iota
	PadZeros
	PadReflect
	PadCircular
)

func (p PaddingMode) String() string {
	switch p {
	case PadZeros:
		return "zeros"
	case PadReflect:
		return "reflect"
	case PadReplicate:
		return "replicate"
	case PadCircular:
		return "circular"
	}
	return fmt.Sprintf("PaddingMode(%d)", int(p))
}

// ParsePaddingMode is the inverse of PaddingMode.String.
func ParsePaddingMode(s string) (PaddingMode, error) {
	for _, p := range []PaddingMode{PadZeros, PadReflect, PadReplicate, PadCircular} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown padding mode %q", s)
}

// Convolve convolves image with kernel using a 2D FFT.
//
// image:  HxW
// kernel: PhxPw, centered at (Ph/2, Pw/2)
// mode:   Same, Full, Valid
// pad:    how image samples outside HxW are filled
//
// With ConvSame the output is HxW and a unit impulse at the kernel center
// reproduces the image.
func Convolve(image, kernel [][]float64, mode ConvMode, pad PaddingMode) ([][]float64, error) {
	H, W, err := rectSize(image)
	if err != nil {
		return nil, err
	}
	Ph, Pw, err := rectSize(kernel)
	if err != nil {
		return nil, err
	}

	// Output dimensions and the offset of output (0,0) in the full result.
	var outH, outW, offY, offX int
	switch mode {
	case ConvSame:
		outH, outW = H, W
		offY, offX = Ph/2, Pw/2
	case ConvFull:
		outH, outW = H+Ph-1, W+Pw-1
	case ConvValid:
		outH, outW = H-Ph+1, W-Pw+1
		if outH <= 0 || outW <= 0 {
			return nil, errors.New("valid convolution requested but kernel larger than image")
		}
		offY, offX = Ph-1, Pw-1
	default:
		return nil, fmt.Errorf("unknown ConvMode %d", mode)
	}

	// The image is embedded shifted by (Ph-1, Pw-1) so that the padded
	// border in front of it is part of the linear convolution and nothing
	// wraps around. Full index i then lands at grid index i+Ph-1.
	sY, sX := Ph-1, Pw-1
	FH := fft2d.NextPow2(H + 2*Ph)
	FW := fft2d.NextPow2(W + 2*Pw)

	A := fft2d.Make(FH, FW)
	B := fft2d.Make(FH, FW)
	for y := 0; y < FH; y++ {
		for x := 0; x < FW; x++ {
			A[y][x] = complex(sample2D(image, y-sY, x-sX, pad), 0)
		}
	}
	for y := 0; y < Ph; y++ {
		for x := 0; x < Pw; x++ {
			B[y][x] = complex(kernel[y][x], 0)
		}
	}

	fft2d.Forward(A)
	fft2d.Forward(B)
	for y := 0; y < FH; y++ {
		for x := 0; x < FW; x++ {
			A[y][x] *= B[y][x]
		}
	}
	fft2d.Inverse(A)

	out := make([][]float64, outH)
	for y := 0; y < outH; y++ {
		out[y] = make([]float64, outW)
		row := A[y+offY+sY]
		for x := 0; x < outW; x++ {
			out[y][x] = cleanZero(real(row[x+offX+sX]))
		}
	}
	return out, nil
}

// -------------------- Padding --------------------

func sample2D(img [][]float64, y, x int, mode PaddingMode) float64 {
	H := len(img)
	W := len(img[0])

	if 0 <= y && y < H && 0 <= x && x < W {
		return img[y][x]
	}

	switch mode {
	case PadZeros:
		return 0

	case PadReplicate:
		yy := clamp(y, 0, H-1)
		xx := clamp(x, 0, W-1)
		return img[yy][xx]

	case PadReflect:
		yy := reflectIndex(y, H)
		xx := reflectIndex(x, W)
		return img[yy][xx]

	case PadCircular:
		yy := mod(y, H)
		xx := mod(x, W)
		return img[yy][xx]
	}

	return 0
}

// -------------------- utility --------------------

func rectSize(m [][]float64) (h, w int, err error) {
	h = len(m)
	if h == 0 || len(m[0]) == 0 {
		return 0, 0, ErrEmptyInput
	}
	w = len(m[0])
	for i := 1; i < h; i++ {
		if len(m[i]) != w {
			return 0, 0, fmt.Errorf("ragged matrix at row %d: %w", i, ErrEmptyInput)
		}
	}
	return h, w, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}

// reflectIndex implements "reflect" padding without repeating edge pixels.
// Example for n=5 indices: ... 2 1 0 1 2 3 4 3 2 1 0 1 ...
func reflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2*n - 2
	i = mod(i, period)
	if i >= n {
		i = period - i
	}
	return i
}

// cleanZero drops FFT round-off around zero.
func cleanZero(x float64) float64 {
	if x < 1e-15 && x > -1e-15 {
		return 0
	}
	return x
}
