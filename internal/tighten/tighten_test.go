package tighten

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticBounds struct {
	lb, ub map[int]float64
}

func (b staticBounds) LB(v int) float64 {
	if x, ok := b.lb[v]; ok {
		return x
	}
	return math.Inf(-1)
}

func (b staticBounds) UB(v int) float64 {
	if x, ok := b.ub[v]; ok {
		return x
	}
	return math.Inf(1)
}

func TestTightenRowIsolatesTarget(t *testing.T) {
	// x0 + x1 = 5, x1 in [0,2] => x0 in [3,5]
	entries := []RowEntry{{Variable: 0, Coeff: 1}, {Variable: 1, Coeff: 1}}
	bounds := staticBounds{
		lb: map[int]float64{0: math.Inf(-1), 1: 0},
		ub: map[int]float64{0: math.Inf(1), 1: 2},
	}
	result := TightenRow(entries, 5, bounds)
	require.NotEmpty(t, result)
	foundLB, foundUB := false, false
	for _, r := range result {
		if r.Variable == 0 && r.Kind.String() == "LB" {
			require.InDelta(t, 3.0, r.Value, 1e-9)
			foundLB = true
		}
		if r.Variable == 0 && r.Kind.String() == "UB" {
			require.InDelta(t, 5.0, r.Value, 1e-9)
			foundUB = true
		}
	}
	require.True(t, foundLB)
	require.True(t, foundUB)
}

func TestTightenRowSkipsUnbounded(t *testing.T) {
	entries := []RowEntry{{Variable: 0, Coeff: 1}, {Variable: 1, Coeff: 1}}
	bounds := staticBounds{lb: map[int]float64{}, ub: map[int]float64{}}
	result := TightenRow(entries, 5, bounds)
	require.Empty(t, result)
}

func TestNoopMILPTightener(t *testing.T) {
	var mt MILPTightener = NoopMILPTightener{}
	require.Nil(t, mt.Tighten(staticBounds{lb: map[int]float64{}, ub: map[int]float64{}}, 3))
}
