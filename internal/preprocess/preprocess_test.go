package preprocess

import (
	"testing"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/stretchr/testify/require"
)

func TestRunTightensThroughReLU(t *testing.T) {
	bm := boundmgr.New(2)
	bm.SetLower(0, -3)
	bm.SetUpper(0, 5)
	bm.SetLower(1, 0)
	// f's upper bound is left at the manager's default +inf.

	relu := constraint.NewReLU(0, 1)
	p := New([]PLConstraint{relu}, nil, nil, nil)
	result := p.Run(bm, 2)

	require.False(t, result.Infeasible)
	require.InDelta(t, 5.0, bm.UB(1), 1e-9)
}

func TestEliminatesDegenerateVariable(t *testing.T) {
	bm := boundmgr.New(1)
	bm.SetLower(0, 2)
	bm.SetUpper(0, 2)

	p := New(nil, nil, nil, nil)
	result := p.Run(bm, 1)
	require.Contains(t, result.EliminatedVars, 0)
}

func TestEliminateEquationSolvesFreeVariable(t *testing.T) {
	coeffs := map[int]float64{0: 1, 1: 2, 2: 1}
	fixed := map[int]float64{0: 1, 2: 3}
	// x0 + 2*x1 + x2 = 10 => 1 + 2*x1 + 3 = 10 => x1 = 3
	v, val, ok := EliminateEquation(coeffs, 10, fixed)
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.InDelta(t, 3.0, val, 1e-9)
}

func TestEliminateEquationFailsWithMultipleFreeVars(t *testing.T) {
	coeffs := map[int]float64{0: 1, 1: 2}
	_, _, ok := EliminateEquation(coeffs, 10, map[int]float64{})
	require.False(t, ok)
}

func TestIntroduceAuxiliary(t *testing.T) {
	coeffs, rhs := IntroduceAuxiliary(0, 1, 2)
	require.Equal(t, 0.0, rhs)
	require.Equal(t, -1.0, coeffs[0])
	require.Equal(t, 1.0, coeffs[1])
	require.Equal(t, -1.0, coeffs[2])
}
