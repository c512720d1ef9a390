package dnc

import (
	"context"
	"testing"
	"time"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/gitrdm/marabou-go/internal/engine"
	"github.com/gitrdm/marabou-go/internal/linalg"
	"github.com/gitrdm/marabou-go/internal/pricing"
	"github.com/gitrdm/marabou-go/internal/tableau"
	"github.com/stretchr/testify/require"
)

// reluEngine builds: b in [lo,hi], f = ReLU(b), aux = f - b, identical in
// shape to the engine package's own ReLU fixture so DnC's subquery plumbing
// is exercised against a known-good single-engine baseline.
func reluEngine(t *testing.T, lo, hi float64) *engine.Engine {
	rows := [][]float64{{-1, 1, -1}}
	rhs := []float64{0}

	bm := boundmgr.New(3)
	bm.SetLower(0, lo)
	bm.SetUpper(0, hi)
	bm.SetLower(1, 0)
	bm.SetLower(2, 0)

	fact, err := linalg.NewDenseLU([][]float64{{1}})
	require.NoError(t, err)
	tab, err := tableau.New(rows, rhs, []int{2}, bm, fact)
	require.NoError(t, err)

	pricer := pricing.New(pricing.Dantzig, 3)

	relu := constraint.NewReLU(0, 1)
	relu.SetAux(2)

	return engine.New(tab, bm, pricer, []constraint.PLConstraint{relu}, nil, nil)
}

// unsatEngine builds the same shape but pins f above what ReLU(b) can ever
// reach given b's bounds, forcing UNSAT.
func unsatEngine(t *testing.T) *engine.Engine {
	rows := [][]float64{{-1, 1, -1}}
	rhs := []float64{0}

	bm := boundmgr.New(3)
	bm.SetLower(0, -5)
	bm.SetUpper(0, 0) // b <= 0, so ReLU(b) == 0 always
	bm.SetLower(1, 1) // but f >= 1
	bm.SetLower(2, 0)

	fact, err := linalg.NewDenseLU([][]float64{{1}})
	require.NoError(t, err)
	tab, err := tableau.New(rows, rhs, []int{2}, bm, fact)
	require.NoError(t, err)

	pricer := pricing.New(pricing.Dantzig, 3)

	relu := constraint.NewReLU(0, 1)
	relu.SetAux(2)

	return engine.New(tab, bm, pricer, []constraint.PLConstraint{relu}, nil, nil)
}

func TestManagerSingleSATSubquery(t *testing.T) {
	m := New(2)
	defer m.Shutdown()

	sq := NewSubquery(reluEngine(t, -5, 5), 2*time.Second, 0)
	m.Enqueue([]*Subquery{sq})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, model, err := m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, SubquerySAT, outcome)
	require.NotNil(t, model)
}

func TestManagerAllUNSATSubqueries(t *testing.T) {
	m := New(2)
	defer m.Shutdown()

	subqueries := []*Subquery{
		NewSubquery(unsatEngine(t), 2*time.Second, 0),
		NewSubquery(unsatEngine(t), 2*time.Second, 0),
	}
	m.Enqueue(subqueries)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, model, err := m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, SubqueryUNSAT, outcome)
	require.Nil(t, model)
}

func TestManagerSATRacesAheadOfUNSAT(t *testing.T) {
	m := New(4)
	defer m.Shutdown()

	subqueries := []*Subquery{
		NewSubquery(unsatEngine(t), 2*time.Second, 0),
		NewSubquery(unsatEngine(t), 2*time.Second, 0),
		NewSubquery(reluEngine(t, -5, 5), 2*time.Second, 0),
		NewSubquery(unsatEngine(t), 2*time.Second, 0),
	}
	m.Enqueue(subqueries)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, model, err := m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, SubquerySAT, outcome)
	require.NotNil(t, model)
}

func TestManagerStatsTracksSubmittedTasks(t *testing.T) {
	m := New(2)
	defer m.Shutdown()

	m.Enqueue([]*Subquery{NewSubquery(reluEngine(t, -5, 5), 2*time.Second, 0)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := m.Run(ctx)
	require.NoError(t, err)

	require.GreaterOrEqual(t, m.Stats().TasksSubmitted, int64(1))
}
