package linalg

import (
	"fmt"
	"math"
)

// PivotTolerance is the minimum magnitude a pivot element may have during
// factorization before the basis is declared malformed.
const PivotTolerance = 1e-11

// SparseFTDiagonalTolerance is a diagonal-element tolerance for the Sparse
// Forrest-Tomlin factorization. No factorization in this package reads
// it; SparseForrestTomlin checks eta pivots against PivotTolerance.
const SparseFTDiagonalTolerance = 1e-5

// BasisFactorization is a four-method trait: no runtime polymorphism
// beyond the single interface dispatch chosen at Tableau construction
// time.
type BasisFactorization interface {
	// ForwardTransformation solves B*x = y and returns x (FTRAN).
	ForwardTransformation(y []float64) ([]float64, error)
	// BackwardTransformation solves x^T*B = y^T and returns x (BTRAN).
	BackwardTransformation(y []float64) ([]float64, error)
	// UpdateToAdjacentBasis folds a pivot (leaving row index, change
	// column d = B^-1 A_entering, new column in B-space) into the
	// factorization without a full refactorization.
	UpdateToAdjacentBasis(leavingIndex int, changeColumn, newColumn []float64) error
	// ObtainFreshBasis rebuilds the factorization from a dense basis
	// matrix B (m columns, one per basic variable).
	ObtainFreshBasis(basisColumns [][]float64) error
	// EtaCount reports eta updates accumulated since the last full
	// refactorization, compared by the Tableau against
	// RefactorizationThreshold.
	EtaCount() int
}

// RefactorizationThreshold is the eta-update count at which the Tableau
// requests a full ObtainFreshBasis.
const RefactorizationThreshold = 100

// DenseLU is the "textbook" correctness-baseline factorization:
// partial-pivoting LU over a dense m x m basis matrix.
type DenseLU struct {
	m int
	l, u [][]float64
	perm []int // perm[i] = original row that now sits at row i
}

// NewDenseLU builds a dense LU factorization from an m x m basis matrix.
func NewDenseLU(basisColumns [][]float64) (*DenseLU, error) {
	f := &DenseLU{}
	if err := f.ObtainFreshBasis(basisColumns); err != nil {
		return nil, err
	}
	return f, nil
}

// ObtainFreshBasis implements BasisFactorization.
func (f *DenseLU) ObtainFreshBasis(basisColumns [][]float64) error {
	m := len(basisColumns)
	// basisColumns[j] is column j of B; transpose into row-major B.
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

	for k := 0; k < m; k++ {
		// Partial pivot: largest magnitude in column k at/below row k.
		pivotRow := k
		best := math.Abs(b[k][k])
		for i := k + 1; i < m; i++ {
			if v := math.Abs(b[i][k]); v > best {
				best = v
				pivotRow = i
			}
		}
		if best < PivotTolerance {
			return &MalformedBasisError{Reason: fmt.Sprintf("singular basis at column %d (pivot %.3g)", k, best)}
		}
		if pivotRow != k {
			b[k], b[pivotRow] = b[pivotRow], b[k]
			perm[k], perm[pivotRow] = perm[pivotRow], perm[k]
			for j := 0; j < k; j++ {
				l[k][j], l[pivotRow][j] = l[pivotRow][j], l[k][j]
			}
		}
		for i := k + 1; i < m; i++ {
			factor := b[i][k] / b[k][k]
			l[i][k] = factor
			for j := k; j < m; j++ {
				b[i][j] -= factor * b[k][j]
			}
		}
	}

	f.m = m
	f.l = l
	f.u = b
	f.perm = perm
	return nil
}

// ForwardTransformation implements BasisFactorization: solves B*x = y via
// Ly' = Py then Ux = y'.
func (f *DenseLU) ForwardTransformation(y []float64) ([]float64, error) {
	m := f.m
	py := make([]float64, m)
	for i := 0; i < m; i++ {
		py[i] = y[f.perm[i]]
	}
	// Forward substitution L*z = py (L has unit diagonal).
	z := make([]float64, m)
	for i := 0; i < m; i++ {
		sum := py[i]
		for j := 0; j < i; j++ {
			sum -= f.l[i][j] * z[j]
		}
		z[i] = sum
	}
	// Backward substitution U*x = z.
	x := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < m; j++ {
			sum -= f.u[i][j] * x[j]
		}
		if math.Abs(f.u[i][i]) < PivotTolerance {
			return nil, &MalformedBasisError{Reason: "zero pivot during forward transformation"}
		}
		x[i] = sum / f.u[i][i]
	}
	return x, nil
}

// BackwardTransformation implements BasisFactorization: solves x^T*B = y^T,
// i.e. B^T*x = y, via U^T*z = y then L^T*x = z, then undoes the row
// permutation.
func (f *DenseLU) BackwardTransformation(y []float64) ([]float64, error) {
	m := f.m
	z := make([]float64, m)
	for i := 0; i < m; i++ {
		sum := y[i]
		for j := 0; j < i; j++ {
			sum -= f.u[j][i] * z[j]
		}
		if math.Abs(f.u[i][i]) < PivotTolerance {
			return nil, &MalformedBasisError{Reason: "zero pivot during backward transformation"}
		}
		z[i] = sum / f.u[i][i]
	}
	px := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < m; j++ {
			sum -= f.l[j][i] * px[j]
		}
		px[i] = sum
	}
	x := make([]float64, m)
	for i := 0; i < m; i++ {
		x[f.perm[i]] = px[i]
	}
	return x, nil
}

// UpdateToAdjacentBasis for the plain DenseLU baseline always asks for a
// full refactorization: it exists only as a correctness reference, not a
// performance path.
func (f *DenseLU) UpdateToAdjacentBasis(leavingIndex int, changeColumn, newColumn []float64) error {
	return &MalformedBasisError{Reason: "DenseLU does not support incremental update; refactorize"}
}

// EtaCount is always 0: DenseLU never accumulates etas.
func (f *DenseLU) EtaCount() int { return 0 }

// MalformedBasisError is linalg's own error type for a singular or
// ill-conditioned basis; it is a separate type from
// xerror.MalformedBasisError.
type MalformedBasisError struct {
	Reason string
}

func (e *MalformedBasisError) Error() string {
	return "malformed basis: " + e.Reason
}
