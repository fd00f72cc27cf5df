package psf

import (
	"errors"
	"math"
	"testing"

	"github.com/bob-anderson-ok/otfsim/otf"
	"github.com/bob-anderson-ok/otfsim/resample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gridSize = 128
	nativeDx = 1e-6 // rad
)

// gaussianOTF returns the transfer function of a Gaussian kernel whose
// standard deviation is sigmaPx native samples.
func gaussianOTF(t *testing.T, n int, sigmaPx float64) ([][]complex128, float64) {
	t.Helper()
	df := 1 / (float64(n) * nativeDx)
	g, err := otf.NewFrequencyGrid(n, df)
	require.NoError(t, err)
	h, err := otf.Jitter{SX: sigmaPx * nativeDx, SY: sigmaPx * nativeDx}.Evaluate(g, 0)
	require.NoError(t, err)
	return h, df
}

func TestSynthesizeGaussian(t *testing.T) {
	h, df := gaussianOTF(t, gridSize, 4)

	k, err := Synthesize(h, df, nativeDx, DefaultCropPolicy)
	require.NoError(t, err)
	assert.True(t, k.Converged)
	assert.Greater(t, k.EnergyFraction, 0.95)
	assert.Equal(t, nativeDx, k.Spacing)
	require.Len(t, k.Data, 20)
	require.Len(t, k.Data[0], 20)
	assert.InDelta(t, 1.0, sum(k.Data), 1e-12)

	// peak in the middle, symmetric about it
	c := 10
	for y := range k.Data {
		for x := range k.Data[y] {
			assert.LessOrEqual(t, k.Data[y][x], k.Data[c][c])
		}
	}
	for i := 1; i < 10; i++ {
		assert.InDelta(t, k.Data[c+i][c], k.Data[c-i][c], 1e-12)
		assert.InDelta(t, k.Data[c][c+i], k.Data[c][c-i], 1e-12)
	}
}

func TestSynthesizeSumsToOne(t *testing.T) {
	aperture := func(n int) ([][]complex128, float64) {
		g, err := otf.NewFrequencyGridToCutoff(n, 4e5)
		require.NoError(t, err)
		h, err := otf.Aperture{Diameter: 0.1, Obscuration: 0.3}.Evaluate(g, 0.5e-6)
		require.NoError(t, err)
		return h, g.Spacing
	}
	for _, n := range []int{32, 64, 65, 128} {
		h, df := aperture(n)
		for _, dxout := range []float64{0.3e-6, 1.25e-6, 2e-6, 7e-6} {
			k, err := Synthesize(h, df, dxout, CropPolicy{})
			require.NoError(t, err, "n=%d dxout=%g", n, dxout)
			assert.InDelta(t, 1.0, sum(k.Data), 1e-12, "n=%d dxout=%g", n, dxout)
		}
	}
}

func TestCropEnergiesMonotonic(t *testing.T) {
	h, _ := gaussianOTF(t, gridSize, 6)
	k := Inverse(h)
	require.NoError(t, normalize(k))

	steps := CropEnergies(k, CropPolicy{Threshold: 1, StartSize: 1, Step: 1}, gridSize)
	require.Len(t, steps, gridSize-1)
	for i := 1; i < len(steps); i++ {
		assert.GreaterOrEqual(t, steps[i].Energy, steps[i-1].Energy-1e-12, "size %d", steps[i].Size)
	}
	assert.InDelta(t, 1.0, steps[len(steps)-1].Energy, 1e-6)
}

func TestSynthesizeFailSoft(t *testing.T) {
	h, df := gaussianOTF(t, gridSize, 20)
	policy := CropPolicy{Threshold: 0.9999, StartSize: 10, Step: 5}

	k, err := Synthesize(h, df, nativeDx, policy)
	require.NoError(t, err)
	assert.False(t, k.Converged)
	assert.Less(t, k.EnergyFraction, policy.Threshold)
	assert.Len(t, k.Data, 125, "widest candidate below the grid size")
	assert.InDelta(t, 1.0, sum(k.Data), 1e-12)

	// no candidate below the grid size: the whole kernel is kept
	small, df := gaussianOTF(t, 8, 1)
	k, err = Synthesize(small, df, nativeDx, DefaultCropPolicy)
	require.NoError(t, err)
	assert.False(t, k.Converged)
	assert.Len(t, k.Data, 8)
	assert.Len(t, k.Data[0], 8)
	assert.InDelta(t, 1.0, k.EnergyFraction, 1e-12)
}

func TestSynthesizeResamples(t *testing.T) {
	h, df := gaussianOTF(t, gridSize, 8)
	k, err := Synthesize(h, df, 2*nativeDx, DefaultCropPolicy)
	require.NoError(t, err)
	assert.Equal(t, 2*nativeDx, k.Spacing)
	assert.True(t, k.Converged)
	// 8 native samples are 4 output samples: the kernel shrinks to the
	// first candidate holding 95% of a sigma-4 Gaussian
	assert.Len(t, k.Data, 20)
	assert.InDelta(t, 1.0, sum(k.Data), 1e-12)
}

func TestSynthesizeInvalidSampling(t *testing.T) {
	h, df := gaussianOTF(t, 16, 1)
	for _, dx := range []float64{0, -1e-6, math.NaN(), math.Inf(1)} {
		k, err := Synthesize(h, df, dx, DefaultCropPolicy)
		assert.Nil(t, k)
		assert.ErrorIs(t, err, ErrInvalidSampling)
		assert.True(t, errors.Is(err, resample.ErrInvalidSampling))
	}
	k, err := Synthesize(h, 0, nativeDx, DefaultCropPolicy)
	assert.Nil(t, k)
	assert.ErrorIs(t, err, ErrInvalidSampling)

	// an output spacing too fine to resample onto
	k, err = Synthesize(h, df, 1e-300, CropPolicy{})
	assert.Nil(t, k)
	assert.ErrorIs(t, err, ErrInvalidSampling)
}

func TestSynthesizeDegenerate(t *testing.T) {
	zero := otf.NewResponse(16, 16)
	k, err := Synthesize(zero, 1e5, nativeDx, DefaultCropPolicy)
	assert.Nil(t, k)
	assert.ErrorIs(t, err, ErrDegenerateKernel)

	_, err = Synthesize(nil, 1e5, nativeDx, DefaultCropPolicy)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCropPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultCropPolicy.Validate())
	assert.Error(t, CropPolicy{Threshold: 0, StartSize: 10, Step: 5}.Validate())
	assert.Error(t, CropPolicy{Threshold: 1.5, StartSize: 10, Step: 5}.Validate())
	assert.Error(t, CropPolicy{Threshold: 0.9, StartSize: 0, Step: 5}.Validate())
	assert.Error(t, CropPolicy{Threshold: 0.9, StartSize: 10, Step: 0}.Validate())
}

func TestCenterCrop(t *testing.T) {
	m := make([][]float64, 6)
	for y := range m {
		m[y] = make([]float64, 6)
		for x := range m[y] {
			m[y][x] = float64(10*y + x)
		}
	}
	c := CenterCrop(m, 3)
	assert.Equal(t, [][]float64{{22, 23, 24}, {32, 33, 34}, {42, 43, 44}}, c)

	c = CenterCrop(m, 2)
	assert.Equal(t, [][]float64{{22, 23}, {32, 33}}, c)

	assert.Len(t, CenterCrop(m, 20), 6, "clipped to the array")

	c[0][0] = -1
	assert.Equal(t, 22.0, m[2][2], "crop must not alias the input")
}
