package otf

import "math"

// SliceOTF returns a 1-D radial slice of h starting at the zero-frequency
// sample and running outward along angle (rad). Angle 0 is along +u and
// angle π/2 is along +v. Samples are one grid cell apart, so the slice has
// the same spacing as the grid h was evaluated on.
func SliceOTF(h [][]complex128, angle float64) []complex128 {
	rows, cols, err := ResponseShape(h)
	if err != nil || rows == 0 || cols == 0 {
		return nil
	}
	n := min(rows-rows/2, cols-cols/2)
	cr, cc := float64(rows/2), float64(cols/2)
	cos, sin := math.Cos(angle), math.Sin(angle)

	out := make([]complex128, n)
	for r := 0; r < n; r++ {
		out[r] = bilinearClamped(h, cr+float64(r)*sin, cc+float64(r)*cos)
	}
	return out
}

func bilinearClamped(h [][]complex128, row, col float64) complex128 {
	rows, cols := len(h), len(h[0])
	row = math.Max(0, math.Min(row, float64(rows-1)))
	col = math.Max(0, math.Min(col, float64(cols-1)))
	y0, x0 := int(row), int(col)
	y1, x1 := min(y0+1, rows-1), min(x0+1, cols-1)
	fy := complex(row-float64(y0), 0)
	fx := complex(col-float64(x0), 0)
	top := h[y0][x0]*(1-fx) + h[y0][x1]*fx
	bottom := h[y1][x0]*(1-fx) + h[y1][x1]*fx
	return top*(1-fy) + bottom*fy
}
