package engine

import "math"

// SplitStrategy chooses which PL constraint to case-split on next: a
// registry-keyed pluggable heuristic, one concrete type per strategy name.
type SplitStrategy interface {
	// Select returns the index into the snapshot's constraints of the one
	// to split on, or -1 if none remain eligible.
	Select(snapshot Snapshot) int
	Name() string
}

// Snapshot is the narrow read-only view of engine state a SplitStrategy
// needs, so strategies never see the Tableau or BoundManager directly.
type Snapshot struct {
	Constraints []ConstraintView
	NumInputs int
}

// ConstraintView exposes what a split strategy needs about one candidate
// PL constraint without requiring the full constraint.PLConstraint
// interface (which also carries tightening/notify methods irrelevant to
// selection).
type ConstraintView struct {
	Index int
	PhaseFixed bool
	Polarity float64 // in [-1,1]: how close current assignment is to one phase vs. the other
	IntervalLen float64 // ub[b]-lb[b] for the constraint's defining variable, if applicable
	Violation float64 // |f - f_expected| at the current (possibly infeasible) assignment
}

// earliestReLUStrategy picks the first (lowest-index) unfixed constraint.
type earliestReLUStrategy struct{}

func (earliestReLUStrategy) Name() string { return "earliest-relu" }
func (earliestReLUStrategy) Select(s Snapshot) int {
	for _, c := range s.Constraints {
		if !c.PhaseFixed {
			return c.Index
		}
	}
	return -1
}

// reluViolationStrategy picks the unfixed constraint with the largest
// current violation of its ReLU-style relation.
type reluViolationStrategy struct{}

func (reluViolationStrategy) Name() string { return "relu-violation" }
func (reluViolationStrategy) Select(s Snapshot) int {
	best, bestViolation := -1, -1.0
	for _, c := range s.Constraints {
		if c.PhaseFixed {
			continue
		}
		if c.Violation > bestViolation {
			bestViolation = c.Violation
			best = c.Index
		}
	}
	return best
}

// polarityStrategy picks the unfixed constraint whose current assignment
// is most "undecided" (polarity nearest 0, i.e. hardest to predict).
type polarityStrategy struct{}

func (polarityStrategy) Name() string { return "polarity" }
func (polarityStrategy) Select(s Snapshot) int {
	best, bestAbs := -1, math.Inf(1)
	for _, c := range s.Constraints {
		if c.PhaseFixed {
			continue
		}
		if a := math.Abs(c.Polarity); a < bestAbs {
			bestAbs = a
			best = c.Index
		}
	}
	return best
}

// largestIntervalStrategy picks the unfixed constraint whose defining
// variable still has the widest bound interval.
type largestIntervalStrategy struct{}

func (largestIntervalStrategy) Name() string { return "largest-interval" }
func (largestIntervalStrategy) Select(s Snapshot) int {
	best, bestLen := -1, -1.0
	for _, c := range s.Constraints {
		if c.PhaseFixed {
			continue
		}
		if c.IntervalLen > bestLen {
			bestLen = c.IntervalLen
			best = c.Index
		}
	}
	return best
}

// babsrStrategy approximates Branch-and-Bound Smart Ranking by combining
// violation magnitude with interval width, a cheap proxy for the impact a
// split is expected to have on the relaxation's objective bound.
type babsrStrategy struct{}

func (babsrStrategy) Name() string { return "babsr" }
func (babsrStrategy) Select(s Snapshot) int {
	best, bestScore := -1, -1.0
	for _, c := range s.Constraints {
		if c.PhaseFixed {
			continue
		}
		score := c.Violation * (1 + c.IntervalLen)
		if score > bestScore {
			bestScore = score
			best = c.Index
		}
	}
	return best
}

// pseudoImpactStrategy tracks, per constraint index, a running estimate of
// how much splitting on it has historically reduced the SoI cost, falling
// back to reluViolation for constraints never yet split on.
type pseudoImpactStrategy struct {
	impact map[int]float64
}

func newPseudoImpactStrategy() *pseudoImpactStrategy {
	return &pseudoImpactStrategy{impact: make(map[int]float64)}
}

func (p *pseudoImpactStrategy) Name() string { return "pseudo-impact" }

func (p *pseudoImpactStrategy) Select(s Snapshot) int {
	best, bestScore := -1, -1.0
	for _, c := range s.Constraints {
		if c.PhaseFixed {
			continue
		}
		score, known := p.impact[c.Index]
		if !known {
			score = c.Violation
		}
		if score > bestScore {
			bestScore = score
			best = c.Index
		}
	}
	return best
}

// RecordImpact updates the running estimate for a constraint index after
// observing the SoI-cost delta a split on it produced.
func (p *pseudoImpactStrategy) RecordImpact(index int, delta float64) {
	const decay = 0.7
	p.impact[index] = decay*p.impact[index] + (1-decay)*delta
}

// autoStrategy implements "Auto": dispatches to Polarity for
// small queries and LargestInterval for large ones, a size-based select
// between two cheaper heuristics.
type autoStrategy struct {
	small SplitStrategy
	large SplitStrategy
}

func newAutoStrategy() *autoStrategy {
	return &autoStrategy{small: polarityStrategy{}, large: largestIntervalStrategy{}}
}

func (a *autoStrategy) Name() string { return "auto" }

func (a *autoStrategy) Select(s Snapshot) int {
	// Below ~4x the input count of PL constraints, favor Polarity (cheap,
	// precise); above it, favor LargestInterval (cheaper to evaluate at
	// scale, and a better proxy once the query is large).
	if len(s.Constraints) <= 4*s.NumInputs || s.NumInputs == 0 {
		return a.small.Select(s)
	}
	return a.large.Select(s)
}

// StrategyRegistry is the name-keyed registry of split
// strategies, grounded on StrategyRegistry.
type StrategyRegistry struct {
	byName map[string]SplitStrategy
}

// NewStrategyRegistry builds a registry pre-populated with every built-in
// strategy.
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{byName: make(map[string]SplitStrategy)}
	r.register(earliestReLUStrategy{})
	r.register(reluViolationStrategy{})
	r.register(polarityStrategy{})
	r.register(largestIntervalStrategy{})
	r.register(babsrStrategy{})
	r.register(newPseudoImpactStrategy())
	r.register(newAutoStrategy())
	return r
}

func (r *StrategyRegistry) register(s SplitStrategy) { r.byName[s.Name()] = s }

// Get returns the strategy registered under name, or the Auto strategy if
// the name is unknown (matching graceful-fallback pattern).
func (r *StrategyRegistry) Get(name string) SplitStrategy {
	if s, ok := r.byName[name]; ok {
		return s
	}
	return r.byName["auto"]
}
