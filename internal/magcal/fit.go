// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package magcal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrTooFewSamples = errors.New("magcal: at least 10 samples are required")
	ErrDegenerateFit = errors.New("magcal: degenerate ellipsoid fit")
)

// MinSamples is the number of unknowns in a general quadric.
const MinSamples = 10

// Ellipsoid is the quadric x'Mx + n'x + d = 0 fitted to the samples.
type Ellipsoid struct {
	M *mat.SymDense
	N *mat.VecDense
	D float64
}

// constraint is the 6x6 matrix encoding 4J - I^2 = 1 on the quadratic terms.
var constraint = mat.NewDense(6, 6, []float64{
	-1, 1, 1, 0, 0, 0,
	1, -1, 1, 0, 0, 0,
	1, 1, -1, 0, 0, 0,
	0, 0, 0, -4, 0, 0,
	0, 0, 0, 0, -4, 0,
	0, 0, 0, 0, 0, -4,
})

// Fit computes the algebraic least-squares ellipsoid through samples
// (Li and Griffiths, 2004).
func Fit(samples []Vec3) (*Ellipsoid, error) {
	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSamples, len(samples))
	}

	// Design matrix, one column per sample.
	n := len(samples)
	design := mat.NewDense(10, n, nil)
	for j, s := range samples {
		x, y, z := s[0], s[1], s[2]
		design.Set(0, j, x*x)
		design.Set(1, j, y*y)
		design.Set(2, j, z*z)
		design.Set(3, j, 2*y*z)
		design.Set(4, j, 2*x*z)
		design.Set(5, j, 2*x*y)
		design.Set(6, j, 2*x)
		design.Set(7, j, 2*y)
		design.Set(8, j, 2*z)
		design.Set(9, j, 1)
	}

	var scatter mat.Dense
	scatter.Mul(design, design.T())
	s11 := scatter.Slice(0, 6, 0, 6)
	s12 := scatter.Slice(0, 6, 6, 10)
	s21 := scatter.Slice(6, 10, 0, 6)
	s22 := scatter.Slice(6, 10, 6, 10)

	var s22inv mat.Dense
	if err := s22inv.Inverse(s22); err != nil {
		return nil, fmt.Errorf("%w: linear block: %v", ErrDegenerateFit, err)
	}

	// lin = S22^-1 S21, reused for v2.
	var lin mat.Dense
	lin.Mul(&s22inv, s21)

	var reduced mat.Dense
	reduced.Mul(s12, &lin)
	reduced.Sub(s11, &reduced)

	var cinv mat.Dense
	if err := cinv.Inverse(constraint); err != nil {
		return nil, fmt.Errorf("%w: constraint: %v", ErrDegenerateFit, err)
	}
	var e mat.Dense
	e.Mul(&cinv, &reduced)

	var eig mat.Eigen
	if ok := eig.Factorize(&e, mat.EigenRight); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition did not converge", ErrDegenerateFit)
	}
	values := eig.Values(nil)
	best := 0
	for i, v := range values {
		if real(v) > real(values[best]) {
			best = i
		}
	}
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	v1 := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		v1.SetVec(i, real(vectors.At(i, best)))
	}
	if v1.AtVec(0) < 0 {
		v1.ScaleVec(-1, v1)
	}

	var v2 mat.VecDense
	v2.MulVec(&lin, v1)
	v2.ScaleVec(-1, &v2)

	a, b, c := v1.AtVec(0), v1.AtVec(1), v1.AtVec(2)
	f, g, h := v1.AtVec(3), v1.AtVec(4), v1.AtVec(5)
	fit := &Ellipsoid{
		M: mat.NewSymDense(3, []float64{
			a, h, g,
			h, b, f,
			g, f, c,
		}),
		N: mat.NewVecDense(3, []float64{v2.AtVec(0), v2.AtVec(1), v2.AtVec(2)}),
		D: v2.AtVec(3),
	}
	if !finite(v1.RawVector().Data) || !finite(v2.RawVector().Data) {
		return nil, fmt.Errorf("%w: non-finite coefficients", ErrDegenerateFit)
	}
	return fit, nil
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
