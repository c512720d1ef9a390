// Package soi implements the Sum-of-Infeasibilities Manager (C9): an
// alternative to classical simplex phase-splitting that picks one phase per
// piecewise-linear constraint, builds a single linear cost summing every
// phase's violation, and searches over phase assignments via MCMC
// (Metropolis) or Walksat rather than re-deriving a basis per case split.
package soi

import (
	"math"
	"math/rand"

	"github.com/gitrdm/marabou-go/internal/constraint"
)

// InitStrategy selects how the initial phase pattern and assignment are
// seeded.
type InitStrategy int

const (
	// CurrentAssignment seeds every constraint's phase from its status
	// under the tableau's current (possibly infeasible w.r.t. PL
	// constraints) assignment.
	CurrentAssignment InitStrategy = iota
	// InputAssignment seeds from a caller-supplied assignment (e.g. a
	// concrete input point to a neural network being verified).
	InputAssignment
)

// PhasePattern maps each PL constraint's index (within the caller's
// ordering) to the phase it is currently assigned.
type PhasePattern map[int]constraint.Phase

// Cost evaluates the total SoI linear cost of a phase pattern at a given
// assignment: the sum of the absolute values of each constraint's
// CostComponent evaluated against assignment (a constraint already
// satisfied in its chosen phase contributes 0, not a negative reward).
func Cost(pl []constraint.PLConstraint, pattern PhasePattern, assignment map[int]float64) float64 {
	total := 0.0
	for i, c := range pl {
		phase, ok := pattern[i]
		if !ok {
			continue
		}
		expr := c.CostComponent(phase)
		if expr == nil {
			continue
		}
		v := expr.Constant
		for variable, coeff := range expr.Coeffs {
			v += coeff * assignment[variable]
		}
		if v < 0 {
			v = -v
		}
		total += v
	}
	return total
}

// Seed builds the initial phase pattern per two strategies.
func Seed(pl []constraint.PLConstraint, strategy InitStrategy, assignment map[int]float64) PhasePattern {
	pattern := make(PhasePattern, len(pl))
	for i, c := range pl {
		switch strategy {
			case InputAssignment, CurrentAssignment:
				pattern[i] = c.PhaseStatusInAssignment(assignment)
		}
	}
	return pattern
}

// MCMCSearch performs Metropolis-Hastings search over phase patterns: at
// each step, flip one constraint's phase to an alternative (drawn from its
// CaseSplits), accept if the cost improves, otherwise accept with
// probability exp(-beta*deltaCost).
func MCMCSearch(pl []constraint.PLConstraint, assignment map[int]float64, pattern PhasePattern, beta float64, iterations int, rng *rand.Rand) (PhasePattern, float64) {
	current := clonePattern(pattern)
	currentCost := Cost(pl, current, assignment)

	for step := 0; step < iterations; step++ {
		if currentCost <= constraint.SatisfactionTolerance {
			break
		}
		idx := rng.Intn(len(pl))
		splits := pl[idx].CaseSplits()
		if len(splits) == 0 {
			continue
		}
		candidatePhase := splits[rng.Intn(len(splits))].Phase
		if candidatePhase == current[idx] {
			continue
		}

		trial := clonePattern(current)
		trial[idx] = candidatePhase
		trialCost := Cost(pl, trial, assignment)

		delta := trialCost - currentCost
		if delta <= 0 || rng.Float64() < math.Exp(-beta*delta) {
			current = trial
			currentCost = trialCost
		}
	}
	return current, currentCost
}

// WalksatSearch implements a Walksat-style local search variant: at
// each step pick among the still-violated constraints uniformly,
// then with probability (1-noise) greedily pick the phase flip that
// reduces cost the most, otherwise flip to a uniformly random alternative
// phase.
func WalksatSearch(pl []constraint.PLConstraint, assignment map[int]float64, pattern PhasePattern, noise float64, iterations int, rng *rand.Rand) (PhasePattern, float64) {
	current := clonePattern(pattern)
	currentCost := Cost(pl, current, assignment)

	for step := 0; step < iterations; step++ {
		if currentCost <= constraint.SatisfactionTolerance {
			break
		}
		violated := violatedIndices(pl, current, assignment)
		if len(violated) == 0 {
			break
		}
		idx := violated[rng.Intn(len(violated))]
		splits := pl[idx].CaseSplits()
		if len(splits) == 0 {
			continue
		}

		var bestPhase constraint.Phase
		bestCost := math.Inf(1)
		if rng.Float64() >= noise {
			for _, s := range splits {
				trial := clonePattern(current)
				trial[idx] = s.Phase
				c := Cost(pl, trial, assignment)
				if c < bestCost {
					bestCost = c
					bestPhase = s.Phase
				}
			}
		} else {
			s := splits[rng.Intn(len(splits))]
			bestPhase = s.Phase
			trial := clonePattern(current)
			trial[idx] = bestPhase
			bestCost = Cost(pl, trial, assignment)
		}

		current[idx] = bestPhase
		currentCost = bestCost
	}
	return current, currentCost
}

func violatedIndices(pl []constraint.PLConstraint, pattern PhasePattern, assignment map[int]float64) []int {
	var out []int
	for i := range pl {
		phase, ok := pattern[i]
		if !ok {
			continue
		}
		expr := pl[i].CostComponent(phase)
		if expr == nil {
			continue
		}
		v := expr.Constant
		for variable, coeff := range expr.Coeffs {
			v += coeff * assignment[variable]
		}
		if math.Abs(v) > constraint.SatisfactionTolerance {
			out = append(out, i)
		}
	}
	return out
}

func clonePattern(p PhasePattern) PhasePattern {
	out := make(PhasePattern, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
