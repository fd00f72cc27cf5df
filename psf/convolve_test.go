package psf

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(h, w int) [][]float64 {
	img := make([][]float64, h)
	for y := range img {
		img[y] = make([]float64, w)
		for x := range img[y] {
			img[y][x] = math.Sin(1.3*float64(y)) + math.Cos(0.7*float64(x)) + 0.1*float64(x*y)
		}
	}
	return img
}

// directConvolve is the spatial-domain reference for ConvSame.
func directConvolve(img, k [][]float64, pad PaddingMode) [][]float64 {
	H, W := len(img), len(img[0])
	Ph, Pw := len(k), len(k[0])
	out := make([][]float64, H)
	for y := range out {
		out[y] = make([]float64, W)
		for x := range out[y] {
			s := 0.0
			for ky := 0; ky < Ph; ky++ {
				for kx := 0; kx < Pw; kx++ {
					s += sample2D(img, y+Ph/2-ky, x+Pw/2-kx, pad) * k[ky][kx]
				}
			}
			out[y][x] = s
		}
	}
	return out
}

func TestConvolveMatchesDirect(t *testing.T) {
	img := testImage(13, 17)
	// asymmetric so that a flipped or shifted kernel shows up
	kernel := [][]float64{
		{0.05, 0.10, 0.02, 0.01},
		{0.20, 0.30, 0.05, 0.02},
		{0.10, 0.08, 0.04, 0.03},
	}
	for _, pad := range []PaddingMode{PadZeros, PadReflect, PadReplicate, PadCircular} {
		got, err := Convolve(img, kernel, ConvSame, pad)
		require.NoError(t, err, pad.String())
		want := directConvolve(img, kernel, pad)
		if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%v padding (-direct +fft):\n%s", pad, diff)
		}
	}
}

func TestConvolveImpulseIsIdentity(t *testing.T) {
	img := testImage(9, 12)
	for _, size := range []int{1, 3, 4, 7} {
		k := make([][]float64, size)
		for y := range k {
			k[y] = make([]float64, size)
		}
		k[size/2][size/2] = 1
		got, err := Convolve(img, k, ConvSame, PadReplicate)
		require.NoError(t, err)
		if diff := cmp.Diff(img, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("impulse of size %d (-image +result):\n%s", size, diff)
		}
	}
}

func TestConvolveReplicateKeepsConstant(t *testing.T) {
	img := make([][]float64, 10)
	for y := range img {
		img[y] = make([]float64, 10)
		for x := range img[y] {
			img[y][x] = 3
		}
	}
	k := [][]float64{{0.1, 0.1, 0.1}, {0.1, 0.2, 0.1}, {0.1, 0.1, 0.1}}
	got, err := Convolve(img, k, ConvSame, PadReplicate)
	require.NoError(t, err)
	for _, row := range got {
		for _, v := range row {
			require.InDelta(t, 3.0, v, 1e-12)
		}
	}
}

func TestConvolveModes(t *testing.T) {
	img := testImage(8, 10)
	k := [][]float64{{1, 2, 1}, {2, 4, 2}, {1, 2, 1}}

	full, err := Convolve(img, k, ConvFull, PadZeros)
	require.NoError(t, err)
	assert.Len(t, full, 10)
	assert.Len(t, full[0], 12)

	valid, err := Convolve(img, k, ConvValid, PadZeros)
	require.NoError(t, err)
	assert.Len(t, valid, 6)
	assert.Len(t, valid[0], 8)
	// valid output is the interior of the full output
	assert.InDelta(t, full[2][2], valid[0][0], 1e-9)

	same, err := Convolve(img, k, ConvSame, PadZeros)
	require.NoError(t, err)
	assert.InDelta(t, full[1][1], same[0][0], 1e-9)

	_, err = Convolve(testImage(2, 2), k, ConvValid, PadZeros)
	assert.Error(t, err)

	_, err = Convolve(nil, k, ConvSame, PadZeros)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParsePaddingMode(t *testing.T) {
	for _, p := range []PaddingMode{PadZeros, PadReflect, PadReplicate, PadCircular} {
		got, err := ParsePaddingMode(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePaddingMode("mirror")
	assert.Error(t, err)
}
