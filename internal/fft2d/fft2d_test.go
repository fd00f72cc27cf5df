package fft2d

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/bob-anderson-ok/otfsim/internal/cmptest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func grid(h, w int) [][]complex128 {
	a := Make(h, w)
	for y := range a {
		for x := range a[y] {
			a[y][x] = complex(math.Sin(float64(3*y+x)), math.Cos(float64(y-2*x)))
		}
	}
	return a
}

func TestRoundTrip(t *testing.T) {
	for _, s := range [][2]int{{8, 8}, {5, 7}, {1, 6}} {
		a := grid(s[0], s[1])
		b := grid(s[0], s[1])
		Forward(b)
		Inverse(b)
		if diff := cmp.Diff(a, b, cmptest.EquateComplexApprox(1e-12)); diff != "" {
			t.Errorf("%v (-want +got):\n%s", s, diff)
		}
	}
}

func TestImpulseIsFlat(t *testing.T) {
	a := Make(4, 6)
	a[0][0] = 1
	Forward(a)
	for _, row := range a {
		for _, v := range row {
			assert.InDelta(t, 1.0, cmplx.Abs(v), 1e-12)
		}
	}
}

func TestShift(t *testing.T) {
	for _, s := range [][2]int{{4, 4}, {5, 3}} {
		a := Make(s[0], s[1])
		a[0][0] = 1
		shifted := Shift(a)
		assert.Equal(t, complex(1, 0), shifted[s[0]/2][s[1]/2], "%v", s)
		assert.Equal(t, a, IShift(shifted), "%v", s)
	}
}

func TestNextPow2(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 17: 32, 64: 64} {
		assert.Equal(t, want, NextPow2(n), "n=%d", n)
	}
}
