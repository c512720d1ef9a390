// Package tighten implements the Bound Tighteners (C6): row-based interval
// tightening over tableau rows, constraint-driven tightening via each
// constraint's EntailedTightenings, and a narrow external hook for
// symbolic (network-level) and MILP-based tightening.
package tighten

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
)

// RowTightenerSaturationIterations caps how many passes the row tightener
// makes over a single row before giving up on further improvement in one
// call.
const RowTightenerSaturationIterations = 20

// RowBounds is the narrow read interface the row tightener needs.
type RowBounds interface {
	LB(v int) float64
	UB(v int) float64
}

// RowEntry is one non-zero coefficient of a tableau row, (variable,
// coefficient).
type RowEntry struct {
	Variable int
	Coeff float64
}

// TightenRow evaluates the row `sum(coeff*x) = rhs` via interval
// arithmetic and, for each entry with a nonzero coefficient in turn,
// derives tighter bounds for that variable by isolating it from the other
// terms. It iterates up to RowTightenerSaturationIterations times only in
// the sense that callers invoke it again as other rows/constraints tighten
// the inputs; a single call produces the one-shot entailed bounds.
func TightenRow(entries []RowEntry, rhs float64, bounds RowBounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	for _, target := range entries {
		if target.Coeff == 0 {
			continue
		}
		lo, hi := rhs, rhs
		unbounded := false
		for _, e := range entries {
			if e.Variable == target.Variable {
				continue
			}
			lb, ub := bounds.LB(e.Variable), bounds.UB(e.Variable)
			if e.Coeff > 0 {
				if math.IsInf(ub, 1) {
					unbounded = true
				} else {
					lo -= e.Coeff * ub
				}
				if math.IsInf(lb, -1) {
					unbounded = true
				} else {
					hi -= e.Coeff * lb
				}
			} else {
				if math.IsInf(lb, -1) {
					unbounded = true
				} else {
					lo -= e.Coeff * lb
				}
				if math.IsInf(ub, 1) {
					unbounded = true
				} else {
					hi -= e.Coeff * ub
				}
			}
		}
		if unbounded {
			continue
		}
		newLB, newUB := lo/target.Coeff, hi/target.Coeff
		if target.Coeff < 0 {
			newLB, newUB = newUB, newLB
		}
		if newLB > bounds.LB(target.Variable) {
			out = append(out, boundmgr.Tightening{Variable: target.Variable, Value: newLB, Kind: boundmgr.LB})
		}
		if newUB < bounds.UB(target.Variable) {
			out = append(out, boundmgr.Tightening{Variable: target.Variable, Value: newUB, Kind: boundmgr.UB})
		}
	}
	return out
}

// ConstraintBounds is constraint.Bounds under this package's import
// surface: the constraint package only depends on boundmgr, so tighten is
// free to depend on constraint without an import cycle.
type ConstraintBounds = constraint.Bounds

// EntailmentSource is satisfied by both constraint.PLConstraint and
// constraint.NLConstraint: anything exposing EntailedTightenings.
type EntailmentSource interface {
	EntailedTightenings(b ConstraintBounds) []boundmgr.Tightening
}

// TightenFromConstraints polls EntailedTightenings on every supplied
// constraint and returns the union of derived tightenings.
func TightenFromConstraints(constraints []EntailmentSource, bounds ConstraintBounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	for _, c := range constraints {
		out = append(out, c.EntailedTightenings(bounds)...)
	}
	return out
}

// MILPTightener is the narrow hook for an external MILP-based
// tightening pass (e.g. a LP-relaxation bound-tightening MILP solver):
// the core never implements one directly (see DESIGN.md).
type MILPTightener interface {
	Tighten(bounds ConstraintBounds, numVars int) []boundmgr.Tightening
}

// NoopMILPTightener is the default MILPTightener: it performs no
// tightening, matching the `--milp-tightening` flag's disabled state.
type NoopMILPTightener struct{}

func (NoopMILPTightener) Tighten(bounds ConstraintBounds, numVars int) []boundmgr.Tightening {
	return nil
}

// SymbolicTightener is the narrow hook for a network-level reasoner's
// symbolic-interval bound propagation, out of core scope here.
type SymbolicTightener interface {
	Tighten(bounds ConstraintBounds, numVars int) []boundmgr.Tightening
}

// NoopSymbolicTightener is the default SymbolicTightener.
type NoopSymbolicTightener struct{}

func (NoopSymbolicTightener) Tighten(bounds ConstraintBounds, numVars int) []boundmgr.Tightening {
	return nil
}
