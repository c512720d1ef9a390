package query

import (
	"bytes"
	"testing"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/stretchr/testify/require"
)

func TestBuildReLUAddsAuxiliaryAndEquation(t *testing.T) {
	q := New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, -5)
	q.SetUpperBound(0, 5)
	q.AddReLU(0, 1)

	built, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, 3, built.NumVars) // b, f, plus one aux
	require.Len(t, built.Rows, 1)
	require.Equal(t, []float64{-1, 1, -1}, built.Rows[0])
	require.Equal(t, 0.0, built.RHS[0])
	require.Len(t, built.PL, 1)
}

func TestBuildAbsoluteValueAddsNoEquation(t *testing.T) {
	q := New()
	q.SetNumberOfVariables(2)
	q.AddAbsoluteValue(0, 1)

	built, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, 2, built.NumVars)
	require.Empty(t, built.Rows)
	require.Len(t, built.PL, 1)
}

func TestBuildRejectsInequalityEquation(t *testing.T) {
	q := New()
	q.SetNumberOfVariables(1)
	q.AddEquation(Equation{Op: LE, Addends: []Addend{{Coeff: 1, Var: 0}}, Scalar: 1})

	_, err := q.Build()
	require.Error(t, err)
}

func TestSaveLoadRoundTripsReLUQuery(t *testing.T) {
	q := New()
	q.SetNumberOfVariables(2)
	q.SetLowerBound(0, -5)
	q.SetUpperBound(0, 5)
	q.SetLowerBound(1, 0)
	q.AddReLU(0, 1)
	q.AddEquation(Equation{Op: EQ, Addends: []Addend{{Coeff: 1, Var: 0}, {Coeff: -1, Var: 1}}, Scalar: 0})
	q.MarkInputVariable(0, 0)
	q.MarkOutputVariable(1, 0)

	var buf bytes.Buffer
	require.NoError(t, q.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, q.NumVariables(), loaded.NumVariables())
	require.Equal(t, q.InputVariables(), loaded.InputVariables())
	require.Equal(t, q.OutputVariables(), loaded.OutputVariables())

	origBuilt, err := q.Build()
	require.NoError(t, err)
	loadedBuilt, err := loaded.Build()
	require.NoError(t, err)
	require.Equal(t, origBuilt.NumVars, loadedBuilt.NumVars)
	require.Equal(t, origBuilt.Rows, loadedBuilt.Rows)
	require.Equal(t, origBuilt.RHS, loadedBuilt.RHS)
}

func TestSaveLoadRoundTripsDisjunction(t *testing.T) {
	q := New()
	q.SetNumberOfVariables(2)
	disjuncts := []constraint.CaseSplit{
		{Tightenings: []boundmgr.Tightening{{Variable: 0, Value: 1, Kind: boundmgr.LB}}},
		{Tightenings: []boundmgr.Tightening{{Variable: 0, Value: -1, Kind: boundmgr.UB}}},
	}
	q.AddDisjunction(disjuncts, []int{0, 1})

	var buf bytes.Buffer
	require.NoError(t, q.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, loaded.pl, 1)
	require.Equal(t, plDisjunction, loaded.pl[0].kind)
	require.Len(t, loaded.pl[0].disjuncts, 2)
}
