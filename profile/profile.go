// Package profile extracts 1-D cross-sections from 2-D arrays such as blur
// kernels and simulated images, measures their width, plots them, and
// draws the sampling path on a display image.
package profile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	_ "golang.org/x/image/tiff" // register the TIFF decoder for LoadImageFromFile
)

// PathPoint is a sample location along a Path.
type PathPoint struct {
	X                 float64 // column
	Y                 float64 // row
	DistanceFromStart float64 // pixels
}

// Point is one sample of an extracted profile.
type Point struct {
	Distance float64 // signed distance from the array center, in Scale units
	Value    float64
}

// Path is a straight line across a Width × Height array. It passes the
// array center (Width/2, Height/2) at OffsetPx perpendicular distance and
// runs at AngleDegrees, measured from the +column axis toward the +row
// axis. Angle 0 is a row through the center; angle 90 a column.
type Path struct {
	AngleDegrees float64
	OffsetPx     float64
	Width        int
	Height       int

	// Scale converts pixels to profile units (for example µrad per pixel).
	// Zero means 1.
	Scale float64

	// Computed by Compute
	StartX, StartY float64
	EndX, EndY     float64
	Direction      string
	SamplePoints   []PathPoint

	centerT float64 // distance from start to the point nearest the center
}

// annotatedPoint is used internally for path intersection calculations.
type annotatedPoint struct {
	X, Y     float64
	T        float64 // position along the direction vector
	Position string  // "top", "bottom", "left", or "right"
}

// ErrNoIntersection is returned when the path misses the array.
var ErrNoIntersection = errors.New("path does not cross the array")

// ErrNoHalfMaximum is returned by FWHM when the profile does not fall to
// half its peak on both sides.
var ErrNoHalfMaximum = errors.New("profile does not fall to half maximum on both sides")

// NewPath returns a path through the center of a width × height array at
// the given angle, with start, end and sample points computed.
func NewPath(width, height int, angleDegrees float64) (*Path, error) {
	p := &Path{AngleDegrees: angleDegrees, Width: width, Height: height}
	if err := p.Compute(); err != nil {
		return nil, err
	}
	return p, nil
}

// Compute finds where the path enters and leaves the array and generates
// sample points at 1-pixel intervals.
func (p *Path) Compute() error {
	if p.Width < 1 || p.Height < 1 {
		return fmt.Errorf("array size %dx%d: %w", p.Width, p.Height, ErrNoIntersection)
	}
	theta := p.AngleDegrees * math.Pi / 180.0
	cx := float64(p.Width / 2)
	cy := float64(p.Height / 2)

	p1, p2, err := pathRectIntersections(-cx, float64(p.Width-1)-cx, -cy, float64(p.Height-1)-cy, theta, p.OffsetPx)
	if err != nil {
		return err
	}
	if p2.T < p1.T {
		p1, p2 = p2, p1
	}
	p.StartX, p.StartY = p1.X+cx, p1.Y+cy
	p.EndX, p.EndY = p2.X+cx, p2.Y+cy
	p.Direction = p1.Position + " to " + p2.Position
	p.centerT = -p1.T
	p.ComputeSamplePoints()
	return nil
}

// pathRectIntersections finds where a line crosses the rectangle
// [xmin, xmax] × [ymin, ymax] around the origin. The line runs along
// (cos theta, sin theta) at perpendicular distance d from the origin.
func pathRectIntersections(xmin, xmax, ymin, ymax, theta, d float64) (annotatedPoint, annotatedPoint, error) {
	dx := math.Cos(theta)
	dy := math.Sin(theta)

	// A point on the line, offset from the origin along the normal
	x0 := -d * dy
	y0 := d * dx

	var intersections []annotatedPoint
	if math.Abs(dx) > 1e-12 {
		for _, e := range []struct {
			x   float64
			pos string
		}{{xmax, "right"}, {xmin, "left"}} {
			t := (e.x - x0) / dx
			y := y0 + t*dy
			if y >= ymin-1e-9 && y <= ymax+1e-9 {
				intersections = append(intersections, annotatedPoint{e.x, y, t, e.pos})
			}
		}
	}
	if math.Abs(dy) > 1e-12 {
		for _, e := range []struct {
			y   float64
			pos string
		}{{ymax, "bottom"}, {ymin, "top"}} {
			t := (e.y - y0) / dy
			x := x0 + t*dx
			if x >= xmin-1e-9 && x <= xmax+1e-9 {
				intersections = append(intersections, annotatedPoint{x, e.y, t, e.pos})
			}
		}
	}

	// Remove duplicate corner intersections
	intersections = removeDuplicatePoints(intersections, 1e-9)

	if len(intersections) < 2 {
		if len(intersections) == 1 {
			// single-pixel extent along the path
			return intersections[0], intersections[0], nil
		}
		return annotatedPoint{}, annotatedPoint{}, ErrNoIntersection
	}
	return intersections[0], intersections[1], nil
}

func removeDuplicatePoints(pts []annotatedPoint, tol float64) []annotatedPoint {
	var result []annotatedPoint
	for _, p := range pts {
		duplicate := false
		for _, r := range result {
			if math.Abs(p.X-r.X) < tol && math.Abs(p.Y-r.Y) < tol {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, p)
		}
	}
	return result
}

// ComputeSamplePoints generates sample points between start and end at
// 1-pixel intervals, placed so that one sample falls on the point of the
// path nearest the array center.
func (p *Path) ComputeSamplePoints() {
	xLength := p.EndX - p.StartX
	yLength := p.EndY - p.StartY
	pathLength := math.Hypot(xLength, yLength)

	p.SamplePoints = nil
	if pathLength == 0 {
		p.SamplePoints = append(p.SamplePoints, PathPoint{X: p.StartX, Y: p.StartY})
		return
	}
	dXPerStep := xLength / pathLength
	dYPerStep := yLength / pathLength

	const eps = 1e-9
	kFirst := int(math.Ceil(-p.centerT - eps))
	kLast := int(math.Floor(pathLength - p.centerT + eps))
	for k := kFirst; k <= kLast; k++ {
		d := p.centerT + float64(k)
		p.SamplePoints = append(p.SamplePoints, PathPoint{
			X:                 p.StartX + d*dXPerStep,
			Y:                 p.StartY + d*dYPerStep,
			DistanceFromStart: d,
		})
	}
}

func (p *Path) scale() float64 {
	if p.Scale == 0 {
		return 1
	}
	return p.Scale
}

// interpolate performs bilinear interpolation on a 2D matrix at column x
// and row y, clamping to the matrix edges.
func interpolate(matrix [][]float64, x, y float64) float64 {
	rows := len(matrix)
	if rows == 0 || len(matrix[0]) == 0 {
		return 0
	}
	cols := len(matrix[0])

	// Clamp to valid range
	x = math.Max(0, math.Min(x, float64(cols-1)))
	y = math.Max(0, math.Min(y, float64(rows-1)))

	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, cols-1)
	y1 := min(y0+1, rows-1)

	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v0 := matrix[y0][x0]*(1-xFrac) + matrix[y0][x1]*xFrac
	v1 := matrix[y1][x0]*(1-xFrac) + matrix[y1][x1]*xFrac
	return v0*(1-yFrac) + v1*yFrac
}

// Extract samples m along path. Distances are measured from the point of
// the path nearest the array center and scaled by path.Scale.
func Extract(m [][]float64, path *Path) []Point {
	if len(path.SamplePoints) == 0 {
		path.ComputeSamplePoints()
	}
	s := path.scale()
	out := make([]Point, len(path.SamplePoints))
	for i, pt := range path.SamplePoints {
		out[i] = Point{
			Distance: (pt.DistanceFromStart - path.centerT) * s,
			Value:    interpolate(m, pt.X, pt.Y),
		}
	}
	return out
}

// Normalize scales the values of pts so that the largest is 1. It leaves
// pts unchanged when the peak is not positive.
func Normalize(pts []Point) {
	peak := math.Inf(-1)
	for _, p := range pts {
		peak = math.Max(peak, p.Value)
	}
	if !(peak > 0) {
		return
	}
	for i := range pts {
		pts[i].Value /= peak
	}
}

// FWHM returns the full width at half maximum of a single-peaked profile,
// with the half-maximum crossings located by linear interpolation.
func FWHM(pts []Point) (float64, error) {
	if len(pts) < 3 {
		return 0, ErrNoHalfMaximum
	}
	peakIdx := 0
	for i, p := range pts {
		if p.Value > pts[peakIdx].Value {
			peakIdx = i
		}
	}
	half := pts[peakIdx].Value / 2

	left := math.NaN()
	for i := peakIdx; i > 0; i-- {
		if pts[i-1].Value <= half {
			left = crossing(pts[i-1], pts[i], half)
			break
		}
	}
	right := math.NaN()
	for i := peakIdx; i < len(pts)-1; i++ {
		if pts[i+1].Value <= half {
			right = crossing(pts[i], pts[i+1], half)
			break
		}
	}
	if math.IsNaN(left) || math.IsNaN(right) {
		return 0, ErrNoHalfMaximum
	}
	return right - left, nil
}

func crossing(a, b Point, level float64) float64 {
	if a.Value == b.Value {
		return a.Distance
	}
	f := (level - a.Value) / (b.Value - a.Value)
	return a.Distance + f*(b.Distance-a.Distance)
}

// LoadGray16PNG loads a 16-bit grayscale PNG image and returns it as a 2D float64 matrix.
// The scale parameter is used to convert pixel values back to intensity: intensity = pixelValue / scale.
func LoadGray16PNG(filename string, scale float64) (matrix [][]float64, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	matrix = make([][]float64, bounds.Dy())
	for y := range matrix {
		matrix[y] = make([]float64, bounds.Dx())
		for x := range matrix[y] {
			c := img.At(x+bounds.Min.X, y+bounds.Min.Y)
			gray := color.Gray16Model.Convert(c).(color.Gray16)
			matrix[y][x] = float64(gray.Y) / scale
		}
	}
	return matrix, nil
}

// DrawPathOnImage draws path on a copy of sourceImage as a red line with
// a red dot at the start and a green dot at the end. The image is assumed
// to have the path's Width × Height pixels.
func DrawPathOnImage(sourceImage image.Image, path *Path) (*image.RGBA, error) {
	bounds := sourceImage.Bounds()
	if bounds.Dx() != path.Width || bounds.Dy() != path.Height {
		return nil, fmt.Errorf("image is %dx%d but path is for %dx%d", bounds.Dx(), bounds.Dy(), path.Width, path.Height)
	}

	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), sourceImage, bounds.Min, draw.Src)

	drawLine(result, path.StartX, path.StartY, path.EndX, path.EndY, color.RGBA{R: 255, A: 255})
	drawDot(result, path.StartX, path.StartY, 3, color.RGBA{R: 255, A: 255})
	drawDot(result, path.EndX, path.EndY, 3, color.RGBA{G: 255, A: 255})
	return result, nil
}

// drawLine draws a 1-pixel line by stepping along its longer axis.
func drawLine(img *image.RGBA, x1, y1, x2, y2 float64, col color.Color) {
	steps := int(math.Ceil(math.Max(math.Abs(x2-x1), math.Abs(y2-y1))))
	if steps == 0 {
		img.Set(int(math.Round(x1)), int(math.Round(y1)), col)
		return
	}
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		img.Set(int(math.Round(x1+f*(x2-x1))), int(math.Round(y1+f*(y2-y1))), col)
	}
}

// drawDot draws a filled circle on the image.
func drawDot(img *image.RGBA, cx, cy float64, radius int, col color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				px := int(math.Round(cx)) + x
				py := int(math.Round(cy)) + y
				if image.Pt(px, py).In(img.Bounds()) {
					img.Set(px, py, col)
				}
			}
		}
	}
}

// LoadImageFromFile loads a PNG or TIFF image file.
func LoadImageFromFile(filename string) (img image.Image, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return img, nil
}

// SaveImageToFile saves an image to a PNG file.
func SaveImageToFile(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}
