package cmptest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestEquateComplexApprox(t *testing.T) {
	a := [][]complex128{{1, complex(0, 1)}, {0.5, -2}}
	b := [][]complex128{{1 + 1e-16, complex(2e-16, 1)}, {0.5, -2 - 3e-16}}

	assert.False(t, cmp.Equal(a, b), "exact comparison sees round-off")
	assert.True(t, cmp.Equal(a, b, EquateComplexApprox(1e-12)))

	b[1][0] += 1e-6
	assert.False(t, cmp.Equal(a, b, EquateComplexApprox(1e-12)))
	assert.NotEmpty(t, cmp.Diff(a, b, EquateComplexApprox(1e-12)))
}
