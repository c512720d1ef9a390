// Package tableau implements the Tableau (C3): the live Ax=b system over
// basic/non-basic variables, their current assignment, and the pivot
// operations that move the basis.
package tableau

import (
	"fmt"
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/linalg"
)

// RatioTestDeltaBase and RatioTestDeltaScale define the ratio test's
// sliding feasibility tolerance δ = base + scale·|bound|.
const (
	RatioTestDeltaBase = 5e-8
	RatioTestDeltaScale = 5e-8
)

// MinPivotMagnitude rejects a candidate pivot element smaller than this in
// magnitude as numerically unsafe.
const MinPivotMagnitude = 1e-9

// PivotCrossCheckTolerance is the maximum relative disagreement allowed
// between a pivot computed via FTRAN and the same value read from the
// freshly updated row before PerformPivot raises MalformedBasisError.
const PivotCrossCheckTolerance = 0.01

// DegradationCheckingFrequency is how many pivots elapse between
// precision-invariant checks.
const DegradationCheckingFrequency = 100

// DegradationThreshold is the maximum tolerated residual ||Ax-b|| before a
// precision restoration (refactorization + assignment recompute) is
// triggered.
const DegradationThreshold = 0.1

// BasicStatus mirrors pricing.BasicStatus; tableau owns the authoritative
// copy since it knows which bound a non-basic variable currently sits at.
type BasicStatus int

const (
	AtLower BasicStatus = iota
	AtUpper
	BasicVar
)

// Bounds is the narrow read interface into the bound manager the tableau
// needs.
type Bounds interface {
	LB(v int) float64
	UB(v int) float64
}

// Tableau holds the live Ax=b system, m equations over n variables (m
// basic + (n-m) non-basic), and drives pivoting.
type Tableau struct {
	m, n int

	rows *linalg.CSRMatrix // A in row-major sparse form
	cols *linalg.UnsortedColumns
	dense [][]float64 // dense mirror, used by the correctness-baseline factorization path
	b []float64

	bounds Bounds

	basic []int // basic[i] = variable index occupying basic row i
	nonBasic []int // index into variable space for each non-basic slot
	basicRow map[int]int // variable -> row index, only for basic vars
	status []BasicStatus

	assignment []float64 // current value of every variable

	factorization linalg.BasisFactorization
	pivotsSinceDegradationCheck int
	etaCountSinceRefactor int
}

// New builds a tableau over the dense constraint matrix rows (len m, each
// len n), right-hand side b (len m), and initial basic variable indices
// (one per row; pkg/marabou passes the last m variables, the auxiliary
// slack variables).
func New(denseRows [][]float64, b []float64, basic []int, bounds Bounds, fact linalg.BasisFactorization) (*Tableau, error) {
	m := len(denseRows)
	n := 0
	if m > 0 {
		n = len(denseRows[0])
	}
	t := &Tableau{
		m: m, n: n,
		dense: denseRows,
		b: append([]float64{}, b...),
		bounds: bounds,
		basic: append([]int{}, basic...),
		basicRow: make(map[int]int, m),
		assignment: make([]float64, n),
		factorization: fact,
	}
	t.rows = linalg.NewCSRFromRows(denseRows)
	t.cols = linalg.NewUnsortedColumns(t.rows)

	isBasic := make([]bool, n)
	for i, v := range basic {
		t.basicRow[v] = i
		isBasic[v] = true
	}
	t.status = make([]BasicStatus, n)
	for j := 0; j < n; j++ {
		if isBasic[j] {
			t.status[j] = BasicVar
			continue
		}
		t.nonBasic = append(t.nonBasic, j)
		t.status[j] = AtLower
	}
	t.ComputeAssignment()
	return t, nil
}

// NumRows and NumColumns report the tableau's dimensions.
func (t *Tableau) NumRows() int { return t.m }
func (t *Tableau) NumColumns() int { return t.n }

// Assignment returns variable j's current value.
func (t *Tableau) Assignment(j int) float64 { return t.assignment[j] }

// Status reports whether j is basic, or non-basic at its lower/upper
// bound.
func (t *Tableau) Status(j int) BasicStatus { return t.status[j] }

// BasicVariables returns the basic variable occupying each row, indexed by
// row.
func (t *Tableau) BasicVariables() []int { return t.basic }

// nonBasicValue returns the bound value a non-basic variable currently
// sits at.
func (t *Tableau) nonBasicValue(j int) float64 {
	if t.status[j] == AtUpper {
		return t.bounds.UB(j)
	}
	return t.bounds.LB(j)
}

// ComputeAssignment recomputes every basic variable's value from the
// current non-basic assignment: x_B = B^-1(b - A_N x_N).
func (t *Tableau) ComputeAssignment() error {
	for _, j := range t.nonBasic {
		t.assignment[j] = t.nonBasicValue(j)
	}
	rhs := append([]float64{}, t.b...)
	for _, j := range t.nonBasic {
		xj := t.assignment[j]
		if xj == 0 {
			continue
		}
		for _, e := range t.cols.Column(j) {
			rhs[e.Index] -= e.Value * xj
		}
	}
	x, err := t.factorization.ForwardTransformation(rhs)
	if err != nil {
		return err
	}
	for i, v := range t.basic {
		t.assignment[v] = x[i]
	}
	return nil
}

// ComputeChangeColumn computes d = B^-1 A_entering, the direction basic
// variables move per unit increase of the entering variable.
func (t *Tableau) ComputeChangeColumn(entering int) ([]float64, error) {
	col := make([]float64, t.m)
	for _, e := range t.cols.Column(entering) {
		col[e.Index] = e.Value
	}
	return t.factorization.ForwardTransformation(col)
}

// ComputePivotRow computes the row of B^-1 corresponding to a given
// leaving basic row, used to derive the updated tableau row after a pivot
// (BTRAN against the unit vector for that row).
func (t *Tableau) ComputePivotRow(leavingRow int) ([]float64, error) {
	unit := make([]float64, t.m)
	unit[leavingRow] = 1
	return t.factorization.BackwardTransformation(unit)
}

// RatioTestResult is the outcome of a ratio test: which basic row limits
// the entering variable's movement, and by how much.
type RatioTestResult struct {
	LeavingRow int
	Step float64
	Degenerate bool
}

// delta returns the sliding feasibility tolerance for a bound of the given
// magnitude.
func delta(bound float64) float64 {
	return RatioTestDeltaBase + RatioTestDeltaScale*math.Abs(bound)
}

// RatioTest performs the standard (single-pass) ratio test: given the
// entering variable's direction (+1 increasing, -1 decreasing) and the
// change column d, find the tightest basic-variable bound that limits the
// step.
func (t *Tableau) RatioTest(changeColumn []float64, direction float64) RatioTestResult {
	best := RatioTestResult{LeavingRow: -1, Step: math.Inf(1)}
	for i, v := range t.basic {
		d := direction * changeColumn[i]
		if math.Abs(d) < MinPivotMagnitude {
			continue
		}
		x := t.assignment[v]
		var limit float64
		if d > 0 {
			ub := t.bounds.UB(v)
			if math.IsInf(ub, 1) {
				continue
			}
			limit = (ub + delta(ub) - x) / d
		} else {
			lb := t.bounds.LB(v)
			if math.IsInf(lb, -1) {
				continue
			}
			limit = (lb - delta(lb) - x) / d
		}
		if limit < best.Step {
			best = RatioTestResult{LeavingRow: i, Step: limit, Degenerate: math.Abs(limit) < delta(x)}
		}
	}
	return best
}

// HarrisRatioTest implements the two-pass Harris ratio test: the first
// pass computes the tightest bound allowing a small bound violation
// (delta), the second pass picks, among all rows within that relaxed
// limit, the one with the largest pivot magnitude for numerical stability.
func (t *Tableau) HarrisRatioTest(changeColumn []float64, direction float64) RatioTestResult {
	firstPass := math.Inf(1)
	type candidate struct {
		row int
		limit float64
		pivot float64
	}
	var candidates []candidate
	for i, v := range t.basic {
		d := direction * changeColumn[i]
		if math.Abs(d) < MinPivotMagnitude {
			continue
		}
		x := t.assignment[v]
		var limit float64
		if d > 0 {
			ub := t.bounds.UB(v)
			if math.IsInf(ub, 1) {
				continue
			}
			limit = (ub + delta(ub) - x) / d
		} else {
			lb := t.bounds.LB(v)
			if math.IsInf(lb, -1) {
				continue
			}
			limit = (lb - delta(lb) - x) / d
		}
		if limit < firstPass {
			firstPass = limit
		}
		candidates = append(candidates, candidate{row: i, limit: limit, pivot: math.Abs(changeColumn[i])})
	}
	if len(candidates) == 0 {
		return RatioTestResult{LeavingRow: -1, Step: math.Inf(1)}
	}
	best := candidate{row: -1, pivot: -1}
	for _, c := range candidates {
		if c.limit <= firstPass+1e-12 && c.pivot > best.pivot {
			best = c
		}
	}
	step := best.limit
	if step > firstPass {
		step = firstPass
	}
	return RatioTestResult{LeavingRow: best.row, Step: step, Degenerate: math.Abs(step) < 1e-9}
}

// PerformPivot moves `entering` into the basis in place of the variable
// currently basic at `leavingRow`, cross-checking the pivot element
// computed via FTRAN against the dense row's own value before accepting
// it.
func (t *Tableau) PerformPivot(entering, leavingRow int, changeColumn []float64, leavingToBound BasicStatus) error {
	pivotElem := changeColumn[leavingRow]
	if math.Abs(pivotElem) < MinPivotMagnitude {
		return &linalg.MalformedBasisError{Reason: fmt.Sprintf("pivot element %.3g below MinPivotMagnitude", pivotElem)}
	}

	row, err := t.ComputePivotRow(leavingRow)
	if err != nil {
		return err
	}
	crossCheck := 0.0
	for _, e := range t.cols.Column(entering) {
		crossCheck += row[e.Index] * e.Value
	}
	if math.Abs(crossCheck) > MinPivotMagnitude {
		relErr := math.Abs(crossCheck-pivotElem) / math.Abs(pivotElem)
		if relErr > PivotCrossCheckTolerance {
			return &linalg.MalformedBasisError{Reason: fmt.Sprintf("pivot cross-check mismatch: ftran=%.6g row=%.6g", pivotElem, crossCheck)}
		}
	}

	leaving := t.basic[leavingRow]
	newCol := make([]float64, t.m)
	for _, e := range t.cols.Column(entering) {
		newCol[e.Index] = e.Value
	}
	if err := t.factorization.UpdateToAdjacentBasis(leavingRow, changeColumn, newCol); err != nil {
		return err
	}
	t.etaCountSinceRefactor++

	t.basic[leavingRow] = entering
	delete(t.basicRow, leaving)
	t.basicRow[entering] = leavingRow
	t.status[entering] = BasicVar
	t.status[leaving] = leavingToBound

	for i, j := range t.nonBasic {
		if j == entering {
			t.nonBasic[i] = leaving
			break
		}
	}

	t.pivotsSinceDegradationCheck++
	return t.ComputeAssignment()
}

// PerformDegeneratePivot performs a zero-step pivot: the entering and
// leaving variables swap basis membership but no assignment changes
// (used when RatioTest reports a degenerate step).
func (t *Tableau) PerformDegeneratePivot(entering, leavingRow int, changeColumn []float64, leavingToBound BasicStatus) error {
	return t.PerformPivot(entering, leavingRow, changeColumn, leavingToBound)
}

// NeedsDegradationCheck reports whether DegradationCheckingFrequency pivots
// have elapsed since the last check.
func (t *Tableau) NeedsDegradationCheck() bool {
	return t.pivotsSinceDegradationCheck >= DegradationCheckingFrequency
}

// CheckPrecision computes the residual ||Ax-b||_inf and reports whether it
// exceeds DegradationThreshold, resetting the pivot counter either way.
func (t *Tableau) CheckPrecision() (residual float64, degraded bool) {
	t.pivotsSinceDegradationCheck = 0
	for i := 0; i < t.m; i++ {
		sum := 0.0
		for _, e := range t.rows.Row(i) {
			sum += e.Value * t.assignment[e.Index]
		}
		r := math.Abs(sum - t.b[i])
		if r > residual {
			residual = r
		}
	}
	return residual, residual > DegradationThreshold
}

// NeedsRefactorization reports whether the eta chain has reached
// linalg.RefactorizationThreshold.
func (t *Tableau) NeedsRefactorization() bool {
	return t.factorization.EtaCount() >= linalg.RefactorizationThreshold
}

// Refactorize rebuilds the factorization from the dense basis columns and
// recomputes the assignment. This is the precision-restoration path
// CheckPrecision's residual threshold and NeedsRefactorization's eta-count
// threshold both trigger.
func (t *Tableau) Refactorize() error {
	basisCols := make([][]float64, t.m)
	for i := range basisCols {
		basisCols[i] = make([]float64, t.m)
	}
	for row, v := range t.basic {
		for _, e := range t.cols.Column(v) {
			basisCols[row][e.Index] = e.Value
		}
	}
	// basisCols[row] already holds the column of the variable basic in
	// that row, indexed by equation row, which is the column-major layout
	// ObtainFreshBasis wants; cols is a plain copy of it.
	cols := make([][]float64, t.m)
	for j := 0; j < t.m; j++ {
		cols[j] = make([]float64, t.m)
		for i := 0; i < t.m; i++ {
			cols[j][i] = basisCols[j][i]
		}
	}
	if err := t.factorization.ObtainFreshBasis(cols); err != nil {
		return err
	}
	t.etaCountSinceRefactor = 0
	return t.ComputeAssignment()
}

// SetNonBasicToBound forces non-basic variable j to sit at its lower or
// upper bound and recomputes the assignment; used by RepairNonBasicAssignment
// callers (boundmgr.Repairer) when a tightened bound crosses j's current
// value while j is non-basic.
func (t *Tableau) SetNonBasicToBound(j int, status BasicStatus) error {
	if t.status[j] == BasicVar {
		return nil
	}
	t.status[j] = status
	return t.ComputeAssignment()
}

// RepairNonBasicAssignment implements boundmgr.Repairer.
func (t *Tableau) RepairNonBasicAssignment(variable int, kind boundmgr.Kind, newValue float64) {
	if t.status[variable] == BasicVar {
		return
	}
	if kind == boundmgr.LB && t.status[variable] == AtLower {
		t.assignment[variable] = newValue
		t.ComputeAssignment()
	} else if kind == boundmgr.UB && t.status[variable] == AtUpper {
		t.assignment[variable] = newValue
		t.ComputeAssignment()
	}
}
