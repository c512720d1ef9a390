package linalg

import "math"

// SelectIndependentColumns implements the Constraint Matrix Analyzer:
// given the m x n constraint matrix (as dense columns,
// length m each) it returns the indices of m linearly independent columns,
// used to reseed a fresh basis after a MalformedBasisError. It runs a
// numerically stabilized Gram-Schmidt sweep over candidate columns, in
// order, accepting a column only if its residual against the already
// selected span has magnitude above Tolerance.
func SelectIndependentColumns(columns [][]float64, m int) ([]int, error) {
	var selected []int
	var basis [][]float64 // orthonormalized accepted columns

	for j, col := range columns {
		if len(selected) == m {
			break
		}
		residual := append([]float64{}, col...)
		for _, u := range basis {
			proj := dot(residual, u)
			for i := range residual {
				residual[i] -= proj * u[i]
			}
		}
		norm := math.Sqrt(dot(residual, residual))
		if norm > Tolerance {
			for i := range residual {
				residual[i] /= norm
			}
			basis = append(basis, residual)
			selected = append(selected, j)
		}
	}

	if len(selected) < m {
		return selected, &MalformedBasisError{Reason: "constraint matrix has rank below m; cannot seed a fresh basis"}
	}
	return selected, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
