package main

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixToGray16Data(t *testing.T) {
	m := [][]float64{{0, 0.5, 1}, {2, -1, math.NaN()}}
	img, err := MatrixToGray16Data(m, 4000)
	require.NoError(t, err)
	assert.Equal(t, uint16(2000), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(4000), img.Gray16At(2, 0).Y)
	assert.Equal(t, uint16(8000), img.Gray16At(0, 1).Y)
	assert.Equal(t, uint16(0), img.Gray16At(1, 1).Y, "negative values clamp to 0")
	assert.Equal(t, uint16(0), img.Gray16At(2, 1).Y, "NaN writes 0")

	_, err = MatrixToGray16Data(m, 0)
	assert.Error(t, err)
	_, err = MatrixToGray16Data([][]float64{{1, 2}, {3}}, 1)
	assert.Error(t, err)
}

func TestGray16Scale(t *testing.T) {
	assert.Equal(t, 65535.0/4, Gray16Scale([][]float64{{1, 4}, {math.Inf(1), 2}}))
	assert.Equal(t, 1.0, Gray16Scale([][]float64{{0, -1}}))
}

func TestMatrixToGrayViewPercentile(t *testing.T) {
	m := [][]float64{{0, 1, 2, 3, 4}}
	img, err := MatrixToGrayViewPercentile(m, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 64, 128, 191, 255}, img.Pix[:5])

	// constant input does not divide by zero
	img, err = MatrixToGrayViewPercentile([][]float64{{3, 3}}, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0}, img.Pix[:2])

	_, err = MatrixToGrayViewPercentile(m, 50, 50)
	assert.Error(t, err)
	_, err = MatrixToGrayViewPercentile([][]float64{{math.NaN()}}, 0, 100)
	assert.Error(t, err)
}

func TestBandsRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(2, 1, color.RGBA{G: 128, B: 64, A: 255})

	bands := ImageToBands(src)
	require.Len(t, bands, 3)
	assert.Equal(t, 255.0, bands[0][0][0])
	assert.Equal(t, 128.0, bands[1][1][2])
	assert.Equal(t, 64.0, bands[2][1][2])

	view, err := BandsToRGBViewPercentile(bands, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, view.RGBAAt(0, 0))

	_, err = BandsToRGBViewPercentile(bands[:2], 0, 100)
	assert.Error(t, err)
}

func TestImageToBandsGray(t *testing.T) {
	g := image.NewGray16(image.Rect(0, 0, 2, 2))
	g.SetGray16(1, 0, color.Gray16{Y: 40000})
	bands := ImageToBands(g)
	require.Len(t, bands, 1)
	assert.Equal(t, 40000.0, bands[0][0][1])

	g8 := image.NewGray(image.Rect(0, 0, 2, 1))
	g8.SetGray(0, 0, color.Gray{Y: 7})
	bands = ImageToBands(g8)
	require.Len(t, bands, 1)
	assert.Equal(t, 7.0, bands[0][0][0])
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, Linspace(0, 1, 5))
	assert.Equal(t, []float64{3}, Linspace(3, 9, 1))
}

func TestColorModelString(t *testing.T) {
	assert.Equal(t, "Gray16", ColorModelString(color.Gray16Model))
	assert.Equal(t, "RGBA", ColorModelString(color.RGBAModel))
}
