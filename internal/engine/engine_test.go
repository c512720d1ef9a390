package engine

import (
	"context"
	"testing"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/gitrdm/marabou-go/internal/linalg"
	"github.com/gitrdm/marabou-go/internal/pricing"
	"github.com/gitrdm/marabou-go/internal/tableau"
	"github.com/stretchr/testify/require"
)

// buildSimpleReLUEngine models: b in [-5,5], f = ReLU(b), aux = f - b, over
// a single structural row (f - b - aux = 0 with aux basic).
func buildSimpleReLUEngine(t *testing.T) *Engine {
	// Variables: 0=b, 1=f, 2=aux (basic).
	rows := [][]float64{{-1, 1, -1}}
	rhs := []float64{0}

	bm := boundmgr.New(3)
	bm.SetLower(0, -5)
	bm.SetUpper(0, 5)
	bm.SetLower(1, 0)
	bm.SetLower(2, 0)

	fact, err := linalg.NewDenseLU([][]float64{{1}})
	require.NoError(t, err)
	tab, err := tableau.New(rows, rhs, []int{2}, bm, fact)
	require.NoError(t, err)

	pricer := pricing.New(pricing.Dantzig, 3)

	relu := constraint.NewReLU(0, 1)
	relu.SetAux(2)

	e := New(tab, bm, pricer, []constraint.PLConstraint{relu}, nil, nil)
	return e
}

func TestEngineSolvesSimpleReLUQuery(t *testing.T) {
	e := buildSimpleReLUEngine(t)
	code, model := e.Solve(context.Background())
	require.Equal(t, SAT, code)
	require.NotNil(t, model)

	b, f := model[0], model[1]
	want := b
	if b < 0 {
		want = 0
	}
	require.InDelta(t, want, f, 1e-6)
}

func TestEngineDepthZeroInitially(t *testing.T) {
	e := buildSimpleReLUEngine(t)
	require.Equal(t, 0, e.Depth())
}

func TestStrategyRegistryFallsBackToAuto(t *testing.T) {
	reg := NewStrategyRegistry()
	s := reg.Get("does-not-exist")
	require.Equal(t, "auto", s.Name())
}

func TestEarliestReLUStrategySelectsFirstUnfixed(t *testing.T) {
	s := earliestReLUStrategy{}
	snap := Snapshot{Constraints: []ConstraintView{
			{Index: 0, PhaseFixed: true},
			{Index: 1, PhaseFixed: false},
	}}
	require.Equal(t, 1, s.Select(snap))
}
