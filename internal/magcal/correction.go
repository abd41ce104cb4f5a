// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package magcal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Correction maps a raw reading v onto a sphere: Matrix * (v - Offset).
type Correction struct {
	Offset Vec3          `json:"offset"` // hard-iron bias b
	Matrix [3][3]float64 `json:"matrix"` // soft-iron transform A^-1
}

// Derive computes the correction that maps the fitted ellipsoid onto a sphere
// of the given radius:
//
//	b    = -M^-1 n
//	A^-1 = radius / sqrt(n' M^-1 n - d) * sqrtm(M)
func Derive(e *Ellipsoid, radius float64) (Correction, error) {
	var minv mat.Dense
	if err := minv.Inverse(e.M); err != nil {
		return Correction{}, fmt.Errorf("%w: quadratic form: %v", ErrDegenerateFit, err)
	}

	var mn mat.VecDense
	mn.MulVec(&minv, e.N)

	q := mat.Dot(e.N, &mn) - e.D
	if !(q > 0) {
		return Correction{}, fmt.Errorf("%w: scale term %g is not positive", ErrDegenerateFit, q)
	}
	scale := radius / math.Sqrt(q)

	root, err := sqrtm(e.M)
	if err != nil {
		return Correction{}, err
	}

	var c Correction
	for i := 0; i < 3; i++ {
		c.Offset[i] = -mn.AtVec(i)
		for j := 0; j < 3; j++ {
			c.Matrix[i][j] = scale * root.At(i, j)
		}
	}
	if !finite(c.Offset[:]) || !finite(c.Matrix[0][:]) || !finite(c.Matrix[1][:]) || !finite(c.Matrix[2][:]) {
		return Correction{}, fmt.Errorf("%w: non-finite correction", ErrDegenerateFit)
	}
	return c, nil
}

// sqrtm returns the principal square root of a symmetric matrix, V sqrt(L) V'.
// Negative eigenvalues would make the root complex; their real part is zero.
func sqrtm(m *mat.SymDense) (*mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(m, true); !ok {
		return nil, fmt.Errorf("%w: symmetric eigen decomposition did not converge", ErrDegenerateFit)
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	n := len(values)
	roots := make([]float64, n)
	for i, v := range values {
		roots[i] = math.Sqrt(math.Max(v, 0))
	}

	var scaled, out mat.Dense
	scaled.Mul(&vecs, mat.NewDiagDense(n, roots))
	out.Mul(&scaled, vecs.T())
	return &out, nil
}

// Apply corrects one raw reading.
func (c Correction) Apply(v Vec3) Vec3 {
	d := Vec3{v[0] - c.Offset[0], v[1] - c.Offset[1], v[2] - c.Offset[2]}
	var out Vec3
	for i := 0; i < 3; i++ {
		out[i] = c.Matrix[i][0]*d[0] + c.Matrix[i][1]*d[1] + c.Matrix[i][2]*d[2]
	}
	return out
}

// Rounded returns the correction as it is handed to the firmware:
// offset to 2 decimals, matrix to 5.
func (c Correction) Rounded() Correction {
	var r Correction
	for i := 0; i < 3; i++ {
		r.Offset[i] = roundTo(c.Offset[i], 2)
		for j := 0; j < 3; j++ {
			r.Matrix[i][j] = roundTo(c.Matrix[i][j], 5)
		}
	}
	return r
}

func roundTo(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.RoundToEven(x*p) / p
}
