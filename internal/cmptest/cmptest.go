// Package cmptest holds go-cmp options shared by the package tests.
package cmptest

import (
	"math/cmplx"

	"github.com/google/go-cmp/cmp"
)

// EquateComplexApprox treats two complex128 values as equal when they lie
// within tol of each other. cmpopts.EquateApprox covers only float32 and
// float64.
func EquateComplexApprox(tol float64) cmp.Option {
	return cmp.Comparer(func(a, b complex128) bool {
		return cmplx.Abs(a-b) <= tol
	})
}
