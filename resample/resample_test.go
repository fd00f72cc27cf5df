package resample

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussian(rows, cols int, sigma float64) [][]float64 {
	cy, cx := float64(rows-1)/2, float64(cols-1)/2
	m := make([][]float64, rows)
	for y := range m {
		m[y] = make([]float64, cols)
		for x := range m[y] {
			dy, dx := float64(y)-cy, float64(x)-cx
			m[y][x] = math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
		}
	}
	return m
}

func TestResampleRoundTrip(t *testing.T) {
	img := gaussian(64, 64, 8)

	down, err := Resample2D(img, 1, 2)
	require.NoError(t, err)
	require.Len(t, down, 32)
	require.Len(t, down[0], 32)

	back, err := Resample2D(down, 2, 1)
	require.NoError(t, err)
	require.Len(t, back, 64)
	require.Len(t, back[0], 64)

	if diff := cmp.Diff(img, back, cmpopts.EquateApprox(0, 0.02)); diff != "" {
		t.Errorf("round trip differs (-original +round trip):\n%s", diff)
	}
}

func TestResampleSameSpacingIsCopy(t *testing.T) {
	img := gaussian(7, 9, 2)
	out, err := Resample2D(img, 3e-6, 3e-6)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(img, out))

	out[0][0] = -1
	assert.NotEqual(t, -1.0, img[0][0], "input must not be aliased")
}

func TestResamplePreservesOrientation(t *testing.T) {
	// value grows down the rows only
	img := make([][]float64, 10)
	for y := range img {
		img[y] = make([]float64, 20)
		for x := range img[y] {
			img[y][x] = float64(y)
		}
	}
	out, err := Resample2D(img, 1, 2)
	require.NoError(t, err)
	require.Len(t, out, 5)
	require.Len(t, out[0], 10)
	for y := range out {
		for x := 1; x < len(out[y]); x++ {
			assert.Equal(t, out[y][0], out[y][x])
		}
		if y > 0 {
			assert.Greater(t, out[y][0], out[y-1][0])
		}
	}
	// linear data is reproduced exactly away from the clamped edges
	assert.InDelta(t, 2.5, out[1][3], 1e-12)
}

func TestResampleConstantStaysConstant(t *testing.T) {
	img := make([][]float64, 13)
	for y := range img {
		img[y] = make([]float64, 11)
		for x := range img[y] {
			img[y][x] = 0.25
		}
	}
	for _, dxout := range []float64{0.3, 0.77, 1.9, 4} {
		out, err := Resample2D(img, 1, dxout)
		require.NoError(t, err)
		for _, row := range out {
			for _, v := range row {
				require.InDelta(t, 0.25, v, 1e-15)
			}
		}
	}
}

func TestSize(t *testing.T) {
	for _, tc := range []struct {
		name        string
		n           int
		dxin, dxout float64
		want        int
	}{
		{"halve", 100, 1, 2, 50},
		{"triple", 100, 3, 1, 300},
		{"clamped to one sample", 3, 1, 100, 1},
		{"2.5 rounds to even", 5, 1, 2, 2},
		{"3.5 rounds to even", 7, 1, 2, 4},
	} {
		got, err := Size(tc.n, tc.dxin, tc.dxout)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestSizeOutOfRange(t *testing.T) {
	for _, dxout := range []float64{1e-300, 1e-9} {
		_, err := Size(256, 1e-6, dxout)
		assert.ErrorIs(t, err, ErrInvalidSampling, "dxout=%g", dxout)
	}
	_, err := Size(256, math.MaxFloat64, 1e-10)
	assert.ErrorIs(t, err, ErrInvalidSampling)

	n, err := Size(MaxSamples, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, MaxSamples, n)

	out, err := Resample2D(gaussian(4, 4, 1), 1, 1e-300)
	assert.ErrorIs(t, err, ErrInvalidSampling)
	assert.Nil(t, out)

	_, err = Resize(gaussian(4, 4, 1), MaxSamples+1, 4)
	assert.ErrorIs(t, err, ErrInvalidSampling)
}

func TestResampleInvalidSampling(t *testing.T) {
	img := gaussian(4, 4, 1)
	for _, tc := range []struct{ in, out float64 }{
		{1, 0}, {1, -1}, {0, 1}, {-2, 1}, {1, math.NaN()}, {math.Inf(1), 1},
	} {
		out, err := Resample2D(img, tc.in, tc.out)
		assert.ErrorIs(t, err, ErrInvalidSampling)
		assert.Nil(t, out)
	}

	out, err := Resize(img, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidSampling)
	assert.Nil(t, out)
}

func TestResampleEmptyInput(t *testing.T) {
	_, err := Resample2D(nil, 1, 1)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Resample2D([][]float64{{1, 2}, {3}}, 1, 1)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
