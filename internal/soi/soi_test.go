package soi

import (
	"math/rand"
	"testing"

	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/stretchr/testify/require"
)

func TestSeedCurrentAssignment(t *testing.T) {
	relu := constraint.NewReLU(0, 1)
	pl := []constraint.PLConstraint{relu}
	assignment := map[int]float64{0: 3, 1: 0}
	pattern := Seed(pl, CurrentAssignment, assignment)
	require.Equal(t, constraint.ReLUActive, pattern[0])
}

func TestCostZeroWhenSatisfied(t *testing.T) {
	relu := constraint.NewReLU(0, 1)
	pl := []constraint.PLConstraint{relu}
	assignment := map[int]float64{0: 3, 1: 3}
	pattern := PhasePattern{0: constraint.ReLUActive}
	require.InDelta(t, 0.0, Cost(pl, pattern, assignment), 1e-9)
}

func TestCostPositiveWhenViolated(t *testing.T) {
	relu := constraint.NewReLU(0, 1)
	pl := []constraint.PLConstraint{relu}
	assignment := map[int]float64{0: 3, 1: 7}
	pattern := PhasePattern{0: constraint.ReLUActive}
	require.InDelta(t, 4.0, Cost(pl, pattern, assignment), 1e-9)
}

func TestMCMCSearchReducesOrMatchesCost(t *testing.T) {
	relu := constraint.NewReLU(0, 1)
	pl := []constraint.PLConstraint{relu}
	assignment := map[int]float64{0: 3, 1: 7}
	pattern := PhasePattern{0: constraint.ReLUActive}
	rng := rand.New(rand.NewSource(1))
	_, cost := MCMCSearch(pl, assignment, pattern, 2.0, 50, rng)
	require.LessOrEqual(t, cost, 4.0)
}

func TestWalksatSearchFindsZeroCost(t *testing.T) {
	relu := constraint.NewReLU(0, 1)
	pl := []constraint.PLConstraint{relu}
	// f=0, b=3: INACTIVE phase wants f=0 (matches), ACTIVE wants f=b (violates by 3).
	assignment := map[int]float64{0: 3, 1: 0}
	pattern := PhasePattern{0: constraint.ReLUActive}
	rng := rand.New(rand.NewSource(2))
	_, cost := WalksatSearch(pl, assignment, pattern, 0.1, 20, rng)
	require.InDelta(t, 0.0, cost, 1e-9)
}
