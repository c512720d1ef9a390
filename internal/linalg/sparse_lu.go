package linalg

import "math"

// MarkowitzThreshold bounds how much smaller than the column maximum a
// pivot candidate may be while still being eligible for selection by
// sparsity.
const MarkowitzThreshold = 0.1

// SparseLU is option 2: a permuted LU factorization that favors
// the row minimizing fill-in (approximated here by remaining row
// non-zero count) among rows whose pivot magnitude is stable enough,
// rather than always the largest-magnitude row as DenseLU does.
type SparseLU struct {
	dense *DenseLU
}

// NewSparseLU builds a sparse-pivoted LU factorization from an m x m
// basis matrix supplied as dense columns (the Tableau extracts these from
// its sparse column store before calling in).
func NewSparseLU(basisColumns [][]float64) (*SparseLU, error) {
	f := &SparseLU{}
	if err := f.ObtainFreshBasis(basisColumns); err != nil {
		return nil, err
	}
	return f, nil
}

// ObtainFreshBasis implements BasisFactorization using threshold (Markowitz
// style) pivoting: among rows whose magnitude is within MarkowitzThreshold
// of the column's maximum, pick the sparsest remaining row.
func (f *SparseLU) ObtainFreshBasis(basisColumns [][]float64) error {
	m := len(basisColumns)
	b := make([][]float64, m)
	for i := 0; i < m; i++ {
		b[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			b[i][j] = basisColumns[j][i]
		}
	}

	perm := make([]int, m)
	for i := range perm {
		perm[i] = i
	}
	l := make([][]float64, m)
	for i := range l {
		l[i] = make([]float64, m)
		l[i][i] = 1
	}

	rowNNZ := func(row []float64, from int) int {
		c := 0
		for j := from; j < m; j++ {
			if math.Abs(row[j]) > Tolerance {
				c++
			}
		}
		return c
	}

	for k := 0; k < m; k++ {
		maxMag := 0.0
		for i := k; i < m; i++ {
			if v := math.Abs(b[i][k]); v > maxMag {
				maxMag = v
			}
		}
		if maxMag < PivotTolerance {
			return &MalformedBasisError{Reason: "singular basis: empty pivot column"}
		}

		pivotRow := -1
		bestNNZ := m + 1
		for i := k; i < m; i++ {
			if math.Abs(b[i][k]) >= MarkowitzThreshold*maxMag {
				if nnz := rowNNZ(b[i], k); nnz < bestNNZ {
					bestNNZ = nnz
					pivotRow = i
				}
			}
		}
		if pivotRow == -1 {
			return &MalformedBasisError{Reason: "singular basis: no eligible pivot"}
		}

		if pivotRow != k {
			b[k], b[pivotRow] = b[pivotRow], b[k]
			perm[k], perm[pivotRow] = perm[pivotRow], perm[k]
			for j := 0; j < k; j++ {
				l[k][j], l[pivotRow][j] = l[pivotRow][j], l[k][j]
			}
		}
		for i := k + 1; i < m; i++ {
			if math.Abs(b[i][k]) < Tolerance {
				continue
			}
			factor := b[i][k] / b[k][k]
			l[i][k] = factor
			for j := k; j < m; j++ {
				b[i][j] -= factor * b[k][j]
			}
		}
	}

	f.dense = &DenseLU{m: m, l: l, u: b, perm: perm}
	return nil
}

func (f *SparseLU) ForwardTransformation(y []float64) ([]float64, error) {
	return f.dense.ForwardTransformation(y)
}

func (f *SparseLU) BackwardTransformation(y []float64) ([]float64, error) {
	return f.dense.BackwardTransformation(y)
}

func (f *SparseLU) UpdateToAdjacentBasis(leavingIndex int, changeColumn, newColumn []float64) error {
	return &MalformedBasisError{Reason: "SparseLU does not support incremental update; refactorize"}
}

func (f *SparseLU) EtaCount() int { return 0 }
