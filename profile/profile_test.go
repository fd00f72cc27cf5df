package profile

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussian(rows, cols int, sigma float64) [][]float64 {
	m := make([][]float64, rows)
	for y := range m {
		m[y] = make([]float64, cols)
		for x := range m[y] {
			dx := float64(x - cols/2)
			dy := float64(y - rows/2)
			m[y][x] = math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
		}
	}
	return m
}

func TestPathEndpoints(t *testing.T) {
	for _, tc := range []struct {
		name           string
		w, h           int
		angle, offset  float64
		sx, sy, ex, ey float64
		direction      string
		samples        int
	}{
		{"row", 65, 65, 0, 0, 0, 32, 64, 32, "left to right", 65},
		{"column", 65, 65, 90, 0, 32, 0, 32, 64, "top to bottom", 65},
		{"reversed row", 65, 65, 180, 0, 64, 32, 0, 32, "right to left", 65},
		{"diagonal", 65, 65, 45, 0, 0, 0, 64, 64, "left to right", 91},
		{"offset row", 65, 65, 0, 5, 0, 37, 64, 37, "left to right", 65},
		{"rectangle", 40, 20, 0, 0, 0, 10, 39, 10, "left to right", 40},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := &Path{AngleDegrees: tc.angle, OffsetPx: tc.offset, Width: tc.w, Height: tc.h}
			require.NoError(t, p.Compute())
			assert.InDelta(t, tc.sx, p.StartX, 1e-9)
			assert.InDelta(t, tc.sy, p.StartY, 1e-9)
			assert.InDelta(t, tc.ex, p.EndX, 1e-9)
			assert.InDelta(t, tc.ey, p.EndY, 1e-9)
			assert.Equal(t, tc.direction, p.Direction)
			assert.Len(t, p.SamplePoints, tc.samples)
		})
	}
}

func TestPathMissesArray(t *testing.T) {
	p := &Path{AngleDegrees: 0, OffsetPx: 100, Width: 65, Height: 65}
	assert.ErrorIs(t, p.Compute(), ErrNoIntersection)

	_, err := NewPath(0, 10, 0)
	assert.ErrorIs(t, err, ErrNoIntersection)
}

func TestExtractIsCenteredAndSymmetric(t *testing.T) {
	m := gaussian(65, 65, 4)
	for _, angle := range []float64{0, 30, 90, 135} {
		p, err := NewPath(65, 65, angle)
		require.NoError(t, err)
		pts := Extract(m, p)

		peak := 0
		for i := range pts {
			if pts[i].Value > pts[peak].Value {
				peak = i
			}
		}
		assert.InDelta(t, 1.0, pts[peak].Value, 1e-9, "angle %v", angle)
		assert.InDelta(t, 0.0, pts[peak].Distance, 1e-9, "angle %v", angle)
	}
}

func TestFWHM(t *testing.T) {
	const sigma = 4.0
	m := gaussian(65, 65, sigma)
	p, err := NewPath(65, 65, 0)
	require.NoError(t, err)

	w, err := FWHM(Extract(m, p))
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sqrt(2*math.Ln2)*sigma, w, 0.05)

	// scale carries through to the width
	p.Scale = 2.5e-6
	ws, err := FWHM(Extract(m, p))
	require.NoError(t, err)
	assert.InEpsilon(t, w*2.5e-6, ws, 1e-9)

	flat := []Point{{0, 1}, {1, 1}, {2, 1}, {3, 1}}
	_, err = FWHM(flat)
	assert.ErrorIs(t, err, ErrNoHalfMaximum)

	_, err = FWHM(nil)
	assert.ErrorIs(t, err, ErrNoHalfMaximum)
}

func TestNormalize(t *testing.T) {
	pts := []Point{{0, 2}, {1, 4}, {2, 1}}
	Normalize(pts)
	assert.Equal(t, []Point{{0, 0.5}, {1, 1}, {2, 0.25}}, pts)

	zeros := []Point{{0, 0}, {1, 0}}
	Normalize(zeros)
	assert.Equal(t, []Point{{0, 0}, {1, 0}}, zeros)
}

func TestDrawPathOnImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 33, 33))
	p, err := NewPath(33, 33, 0)
	require.NoError(t, err)

	out, err := DrawPathOnImage(src, p)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(10, 16))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, out.RGBAAt(32, 16))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(10, 2))

	_, err = DrawPathOnImage(image.NewGray(image.Rect(0, 0, 10, 10)), p)
	assert.Error(t, err)
}

func TestGray16RoundTrip(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 4, 3))
	img.SetGray16(1, 2, color.Gray16{Y: 4000})
	img.SetGray16(3, 0, color.Gray16{Y: 65535})

	name := filepath.Join(t.TempDir(), "g16.png")
	require.NoError(t, SaveImageToFile(name, img))

	m, err := LoadGray16PNG(name, 4000)
	require.NoError(t, err)
	require.Len(t, m, 3)
	require.Len(t, m[0], 4)
	assert.Equal(t, 1.0, m[2][1])
	assert.InDelta(t, 65535.0/4000, m[0][3], 1e-12)
	assert.Equal(t, 0.0, m[0][0])

	loaded, err := LoadImageFromFile(name)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), loaded.Bounds())

	_, err = LoadImageFromFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestStepTicks(t *testing.T) {
	ticks := StepTicks{Step: 0.5, Format: "%.1f"}.Ticks(-0.7, 1.1)
	require.Len(t, ticks, 4)
	assert.Equal(t, "-0.5", ticks[0].Label)
	assert.Equal(t, "1.0", ticks[3].Label)

	assert.Empty(t, StepTicks{Format: "%.1f"}.Ticks(0, 1))
}

func TestPlotProfiles(t *testing.T) {
	m := gaussian(33, 33, 3)
	p, err := NewPath(33, 33, 0)
	require.NoError(t, err)
	pts := Extract(m, p)

	img, err := PlotProfiles([]Series{
		{Name: "kernel", Points: pts},
		{Name: "reference", Points: pts, Color: color.RGBA{R: 255, A: 255}, Dashed: true},
	}, PlotOptions{Title: "profile", XLabel: "pixels", YLabel: "value", YMin: -0.1, YMax: 1.1}, 400, 300)
	require.NoError(t, err)
	assert.InDelta(t, 400, img.Bounds().Dx(), 1)
	assert.InDelta(t, 300, img.Bounds().Dy(), 1)

	_, err = PlotProfiles(nil, PlotOptions{}, 400, 300)
	assert.Error(t, err)

	require.NoError(t, SaveProfilePlot(filepath.Join(t.TempDir(), "p.png"), []Series{{Points: pts}}, PlotOptions{}, 200, 150))
}
