package marabou

import (
	"context"
	"testing"
	"time"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/gitrdm/marabou-go/pkg/query"
	"github.com/stretchr/testify/require"
)

func caseSplitsForSignDisjunction() []constraint.CaseSplit {
	return []constraint.CaseSplit{
		{Tightenings: []boundmgr.Tightening{{Variable: 0, Value: 1, Kind: boundmgr.LB}}},
		{Tightenings: []boundmgr.Tightening{{Variable: 0, Value: -1, Kind: boundmgr.UB}}},
	}
}

// TestSolveAbsoluteValueUnsat models |b| = f with b in [1,2] but f pinned
// to [0,0.5]: no assignment can satisfy both, so the query is UNSAT.
func TestSolveAbsoluteValueUnsat(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, 1)
	q.SetUpperBound(0, 2)
	q.SetLowerBound(1, 0)
	q.SetUpperBound(1, 0.5)
	q.AddAbsoluteValue(0, 1)

	code, model, _, err := Solve(context.Background(), q, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, UNSAT, code)
	require.Nil(t, model)
}

// TestSolveAbsoluteValueSat gives f room to equal |b|.
func TestSolveAbsoluteValueSat(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, -3)
	q.SetUpperBound(0, 3)
	q.SetLowerBound(1, 0)
	q.SetUpperBound(1, 10)
	q.AddAbsoluteValue(0, 1)

	code, model, _, err := Solve(context.Background(), q, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, SAT, code)
	require.NotNil(t, model)
	require.InDelta(t, abs(model[0]), model[1], 1e-5)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// TestSolveReLUChainSat chains two ReLUs: b0 -> f0 -> (as b1) -> f1.
func TestSolveReLUChainSat(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(4)
	q.SetLowerBound(0, -5)
	q.SetUpperBound(0, 5)
	q.SetLowerBound(1, 0)
	q.SetLowerBound(2, 0)
	q.SetUpperBound(2, 100)
	q.SetLowerBound(3, 0)

	q.AddReLU(0, 1)
	q.AddReLU(2, 3)
	q.AddEquation(query.Equation{
			Op: query.EQ,
			Addends: []query.Addend{{Coeff: 1, Var: 1}, {Coeff: -1, Var: 2}},
			Scalar: 0,
	})

	code, model, _, err := Solve(context.Background(), q, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, SAT, code)
	require.NotNil(t, model)
}

// TestSolveSigmoidRefinementReachesSat exercises the nonlinear refinement
// loop: a single Sigmoid constraint must eventually converge to a
// satisfying linearization.
func TestSolveSigmoidRefinementReachesSat(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, -10)
	q.SetUpperBound(0, 10)
	q.SetLowerBound(1, 0)
	q.SetUpperBound(1, 1)
	q.AddSigmoid(0, 1)

	opts := DefaultOptions()
	opts.MaxRefinementsPerConstraint = 8
	code, _, _, err := Solve(context.Background(), q, opts)
	require.NoError(t, err)
	require.Contains(t, []ExitCode{SAT, UnknownExit}, code)
}

// TestSolveDisjunctionSat models a two-way disjunction over b's sign.
func TestSolveDisjunctionSat(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(1)
	q.SetLowerBound(0, -5)
	q.SetUpperBound(0, 5)

	disjuncts := caseSplitsForSignDisjunction()
	q.AddDisjunction(disjuncts, []int{0})

	code, model, _, err := Solve(context.Background(), q, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, SAT, code)
	require.NotNil(t, model)
}

// TestCalculateBoundsNarrowsThroughReLU checks the bounds-only API.
func TestCalculateBoundsNarrowsThroughReLU(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, -5)
	q.SetUpperBound(0, -1) // b always negative, so f must be exactly 0
	q.AddReLU(0, 1)

	bounds, err := CalculateBounds(q, DefaultOptions())
	require.NoError(t, err)
	lo, hi := bounds[1][0], bounds[1][1]
	require.InDelta(t, 0, lo, 1e-6)
	require.InDelta(t, 0, hi, 1e-6)
}

// TestSolveDnCInputSplitAgreesWithSingleEngine exercises the Divide-and-
// Conquer path on a query simple enough to resolve immediately, checking
// it agrees with the single-engine result.
func TestSolveDnCInputSplitAgreesWithSingleEngine(t *testing.T) {
	q := query.New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, -5)
	q.SetUpperBound(0, 5)
	q.SetLowerBound(1, 0)
	q.AddReLU(0, 1)

	opts := DefaultOptions()
	opts.DnC = true
	opts.NumWorkers = 4
	opts.InitialDivides = 2
	opts.InitialTimeout = 2 * time.Second

	code, model, _, err := Solve(context.Background(), q, opts)
	require.NoError(t, err)
	require.Equal(t, SAT, code)
	require.NotNil(t, model)
}
