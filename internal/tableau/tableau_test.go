package tableau

import (
	"math"
	"testing"

	"github.com/gitrdm/marabou-go/internal/linalg"
	"github.com/stretchr/testify/require"
)

type fixedBounds struct {
	lb, ub []float64
}

func (b fixedBounds) LB(v int) float64 { return b.lb[v] }
func (b fixedBounds) UB(v int) float64 { return b.ub[v] }

// x0 + x1 = 5, basic variable is x0 (column 0), non-basic x1 starts at 0.
func simpleTableau(t *testing.T) *Tableau {
	rows := [][]float64{{1, 1}}
	b := []float64{5}
	bounds := fixedBounds{lb: []float64{-1e300, 0}, ub: []float64{1e300, 10}}
	fact, err := linalg.NewDenseLU([][]float64{{1}})
	require.NoError(t, err)
	tab, err := New(rows, b, []int{0}, bounds, fact)
	require.NoError(t, err)
	return tab
}

func TestComputeAssignmentInitial(t *testing.T) {
	tab := simpleTableau(t)
	require.Equal(t, 5.0, tab.Assignment(0))
	require.Equal(t, 0.0, tab.Assignment(1))
}

func TestComputeChangeColumn(t *testing.T) {
	tab := simpleTableau(t)
	d, err := tab.ComputeChangeColumn(1)
	require.NoError(t, err)
	require.Len(t, d, 1)
	require.InDelta(t, 1.0, d[0], 1e-9)
}

func TestRatioTestBasic(t *testing.T) {
	tab := simpleTableau(t)
	d, err := tab.ComputeChangeColumn(1)
	require.NoError(t, err)
	res := tab.RatioTest(d, 1)
	require.Equal(t, 0, res.LeavingRow)
	require.InDelta(t, 5.0, res.Step, 1e-6)
}

func TestPerformPivotMovesAssignment(t *testing.T) {
	tab := simpleTableau(t)
	d, err := tab.ComputeChangeColumn(1)
	require.NoError(t, err)
	res := tab.RatioTest(d, 1)
	require.Equal(t, 0, res.LeavingRow)

	err = tab.PerformPivot(1, res.LeavingRow, d, AtLower)
	require.NoError(t, err)
	require.Equal(t, BasicVar, tab.Status(1))
	require.Equal(t, AtLower, tab.Status(0))
}

func TestCheckPrecisionNoResidual(t *testing.T) {
	tab := simpleTableau(t)
	residual, degraded := tab.CheckPrecision()
	require.False(t, degraded)
	require.True(t, math.Abs(residual) < 1e-9)
}

func TestHarrisRatioTestAgreesWithStandardOnSimpleCase(t *testing.T) {
	tab := simpleTableau(t)
	d, err := tab.ComputeChangeColumn(1)
	require.NoError(t, err)
	std := tab.RatioTest(d, 1)
	harris := tab.HarrisRatioTest(d, 1)
	require.Equal(t, std.LeavingRow, harris.LeavingRow)
	require.InDelta(t, std.Step, harris.Step, 1e-6)
}
