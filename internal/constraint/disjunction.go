package constraint

import "github.com/gitrdm/marabou-go/internal/boundmgr"

// DisjunctionConstraint is a literal list of case splits with no algebraic
// semantics beyond that: each disjunct is a conjunction of
// tightenings and equations, mutually exclusive with the others.
type DisjunctionConstraint struct {
	Disjuncts []CaseSplit
	vars []VarID
	fixed int // index into Disjuncts, or -1
	obsolete bool
}

// NewDisjunction builds a disjunction over the given disjuncts; vars lists
// every variable referenced by any disjunct's tightenings, used for
// ParticipatingVariables.
func NewDisjunction(disjuncts []CaseSplit, vars []VarID) *DisjunctionConstraint {
	for i := range disjuncts {
		disjuncts[i].Phase = DisjunctBase + Phase(i)
	}
	return &DisjunctionConstraint{Disjuncts: disjuncts, vars: vars, fixed: -1}
}

func (c *DisjunctionConstraint) ParticipatingVariables() []VarID { return c.vars }
func (c *DisjunctionConstraint) Obsolete() bool { return c.obsolete }

// ResetPhase un-fixes the constraint without restoring eliminated
// disjuncts (see MaxConstraint.ResetPhase for the same caveat).
func (c *DisjunctionConstraint) ResetPhase() { c.fixed = -1 }

func (c *DisjunctionConstraint) CurrentPhase() Phase {
	if c.fixed < 0 {
		return PhaseUndecided
	}
	return DisjunctBase + Phase(c.fixed)
}

func (c *DisjunctionConstraint) PhaseFixed() bool { return c.fixed >= 0 || len(c.Disjuncts) == 1 }

// NotifyLowerBound/NotifyUpperBound have no generic effect: a disjunction
// only becomes phase-fixed when all-but-one disjunct is ruled out by the
// engine's own bound-consistency checking of each disjunct's tightenings,
// which is driven externally (the constraint itself carries no algebraic
// semantics of its own).
func (c *DisjunctionConstraint) NotifyLowerBound(v VarID, x float64) {}
func (c *DisjunctionConstraint) NotifyUpperBound(v VarID, x float64) {}

func (c *DisjunctionConstraint) CaseSplits() []CaseSplit {
	if c.fixed >= 0 {
		return []CaseSplit{c.Disjuncts[c.fixed]}
	}
	return c.Disjuncts
}

func (c *DisjunctionConstraint) ValidCaseSplit() CaseSplit {
	if c.fixed >= 0 {
		return c.Disjuncts[c.fixed]
	}
	if len(c.Disjuncts) == 1 {
		return c.Disjuncts[0]
	}
	return CaseSplit{}
}

// EliminateDisjunct marks a disjunct as infeasible (e.g. the engine found
// its tightenings inconsistent with current bounds). When exactly one
// remains, the constraint becomes phase-fixed.
func (c *DisjunctionConstraint) EliminateDisjunct(i int) {
	c.Disjuncts = append(c.Disjuncts[:i], c.Disjuncts[i+1:]...)
	if len(c.Disjuncts) == 1 {
		c.fixed = 0
	}
}

// EntailedTightenings has no generic entailment beyond what the fixed
// disjunct already supplies via ValidCaseSplit; the constraint has no
// algebraic semantics of its own.
func (c *DisjunctionConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	if c.fixed >= 0 {
		return c.Disjuncts[c.fixed].Tightenings
	}
	return nil
}

func (c *DisjunctionConstraint) Satisfied(assignment map[VarID]float64) bool {
	for _, d := range c.Disjuncts {
		if disjunctSatisfied(d, assignment) {
			return true
		}
	}
	return false
}

func disjunctSatisfied(d CaseSplit, assignment map[VarID]float64) bool {
	for _, t := range d.Tightenings {
		v := assignment[t.Variable]
		if t.Kind == boundmgr.LB && v < t.Value-SatisfactionTolerance {
			return false
		}
		if t.Kind == boundmgr.UB && v > t.Value+SatisfactionTolerance {
			return false
		}
	}
	return true
}

// CostComponent is nil: a disjunction's disjuncts are arbitrary tightening
// bundles with no single linear expression to minimize against, so
// disjunctions are split-only, not SoI-bearing.
func (c *DisjunctionConstraint) CostComponent(phase Phase) *LinearExpr { return nil }

func (c *DisjunctionConstraint) PhaseStatusInAssignment(assignment map[VarID]float64) Phase {
	for i, d := range c.Disjuncts {
		if disjunctSatisfied(d, assignment) {
			return DisjunctBase + Phase(i)
		}
	}
	return PhaseUndecided
}
