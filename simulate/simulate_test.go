package simulate

import (
	"math"
	"testing"

	"github.com/bob-anderson-ok/otfsim/otf"
	"github.com/bob-anderson-ok/otfsim/psf"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	diameter   = 0.1    // m
	wavelength = 0.5e-6 // m
	rangeM     = 1000.0 // m
)

// apertureOTF evaluates a diffraction-limited aperture on an n×n grid
// reaching twice the cutoff, so the native kernel spacing is λ/(4D).
func apertureOTF(t *testing.T, n int) ([][]complex128, float64) {
	t.Helper()
	g, err := otf.NewFrequencyGridToCutoff(n, 2*diameter/wavelength)
	require.NoError(t, err)
	sys, err := otf.NewAssembler(otf.Monochromatic(wavelength), otf.Aperture{Diameter: diameter}).Assemble(g)
	require.NoError(t, err)
	return sys.System, g.Spacing
}

func pointImage(n int) [][]float64 {
	img := make([][]float64, n)
	for y := range img {
		img[y] = make([]float64, n)
	}
	img[n/2][n/2] = 1
	return img
}

func airy(theta float64) float64 {
	if theta == 0 {
		return 1
	}
	x := math.Pi * diameter * theta / wavelength
	a := 2 * math.J1(x) / x
	return a * a
}

func TestAiryDisk(t *testing.T) {
	h, df := apertureOTF(t, 128)
	dx := wavelength / (4 * diameter)
	gsd := 2 * rangeM * math.Tan(dx/2)

	res, err := ApplyOTFToImage(pointImage(65), gsd, rangeM, h, df, dx)
	require.NoError(t, err)
	require.Len(t, res.Image, 65)
	assert.True(t, res.Converged)
	assert.Greater(t, res.EnergyFraction, 0.95)

	peak := res.Image[32][32]
	require.Greater(t, peak, 0.0)
	for r := 0; r <= 8; r++ {
		want := airy(float64(r) * dx)
		assert.InDelta(t, want, res.Image[32][32+r]/peak, 0.01, "column offset %d", r)
		assert.InDelta(t, want, res.Image[32+r][32]/peak, 0.01, "row offset %d", r)
	}
	// first dark ring at 1.22 λ/D, about 4.9 samples out
	assert.Less(t, res.Image[32][37]/peak, 0.01)

	total := 0.0
	for _, row := range res.Image {
		for _, v := range row {
			total += v
		}
	}
	assert.InDelta(t, 1.0, total, 1e-9, "a centered point keeps all of the kernel mass")
}

func TestSameSamplingKeepsShape(t *testing.T) {
	h, df := apertureOTF(t, 64)
	img := make([][]float64, 40)
	for y := range img {
		img[y] = make([]float64, 50)
		for x := range img[y] {
			img[y][x] = float64((x/5+y/5)%2) * 100
		}
	}
	gsd := 1e-3
	ifov := ReferenceIFOV(gsd, rangeM)

	res, err := ApplyOTFToImage(img, gsd, rangeM, h, df, ifov)
	require.NoError(t, err)
	require.Len(t, res.Image, 40)
	require.Len(t, res.Image[0], 50)
	assert.Equal(t, ifov, res.IFOV)
	assert.Equal(t, ifov, res.ReferenceIFOV)
	// input untouched
	assert.Equal(t, 100.0, img[0][5])

	// blurred values stay within the input range with edge replication
	for _, row := range res.Image {
		for _, v := range row {
			require.GreaterOrEqual(t, v, -5.0)
			require.LessOrEqual(t, v, 105.0)
		}
	}
}

func TestCoarserSensor(t *testing.T) {
	h, df := apertureOTF(t, 64)
	gsd := 1e-3
	ifovIn := ReferenceIFOV(gsd, rangeM)

	res, err := ApplyOTFToImage(pointImage(64), gsd, rangeM, h, df, 2*ifovIn)
	require.NoError(t, err)
	assert.Len(t, res.Image, 32)
	assert.Len(t, res.Image[0], 32)
	assert.Equal(t, 2*ifovIn, res.IFOV)
}

func TestInvalidSampling(t *testing.T) {
	h, df := apertureOTF(t, 32)
	img := pointImage(16)
	for _, tc := range []struct {
		name           string
		gsd, rng, ifov float64
	}{
		{"zero ifov", 1e-3, rangeM, 0},
		{"negative ifov", 1e-3, rangeM, -1e-6},
		{"zero gsd", 0, rangeM, 1e-6},
		{"negative range", 1e-3, -rangeM, 1e-6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ApplyOTFToImage(img, tc.gsd, tc.rng, h, df, tc.ifov)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, psf.ErrInvalidSampling)
		})
	}

	res, err := ApplyOTFToImage(img, 1e-3, rangeM, h, 0, 1e-6)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, psf.ErrInvalidSampling)
}

func TestApplyOTFToBands(t *testing.T) {
	h, df := apertureOTF(t, 64)
	a := pointImage(20)
	b := pointImage(20)
	b[3][4] = 2

	sim := New(nil)
	res, err := sim.ApplyOTFToBands([][][]float64{a, b}, 1e-3, rangeM, h, df, 1.5e-6)
	require.NoError(t, err)
	require.Len(t, res, 2)

	single, err := sim.ApplyOTFToImage(b, 1e-3, rangeM, h, df, 1.5e-6)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(single.Image, res[1].Image))
	assert.Empty(t, cmp.Diff(single.Kernel, res[0].Kernel))

	// each band owns its kernel
	assert.Empty(t, cmp.Diff(res[0].Kernel, res[1].Kernel))
	res[0].Kernel[0][0] = -1
	assert.NotEqual(t, -1.0, res[1].Kernel[0][0])

	_, err = sim.ApplyOTFToBands(nil, 1e-3, rangeM, h, df, 1.5e-6)
	assert.ErrorIs(t, err, psf.ErrEmptyInput)
}

func TestShortfallIsLogged(t *testing.T) {
	h, df := apertureOTF(t, 64)
	logger, hook := test.NewNullLogger()
	sim := &Simulator{
		Logger: logger,
		Policy: psf.CropPolicy{Threshold: 0.99999, StartSize: 3, Step: 2},
	}
	res, err := sim.ApplyOTFToImage(pointImage(16), 1e-3, rangeM, h, df, 1e-6)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Less(t, res.EnergyFraction, 0.99999)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
			assert.Equal(t, res.EnergyFraction, e.Data["energy"])
		}
	}
	assert.True(t, warned)
}

func TestGeometry(t *testing.T) {
	assert.InEpsilon(t, 1e-3, ReferenceIFOV(1, 1000), 1e-6)
	assert.InDelta(t, 1.25e-3, SamplingLimit(1000, 2e5), 1e-15)
}
