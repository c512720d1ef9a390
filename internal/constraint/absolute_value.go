package constraint

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
)

// AbsoluteValueConstraint implements f = |b|, phases POSITIVE
// (b>=0, f=b) and NEGATIVE (b<=0, f=-b).
type AbsoluteValueConstraint struct {
	B, F int
	phase Phase
	obsolete bool
}

func NewAbsoluteValue(b, f int) *AbsoluteValueConstraint {
	return &AbsoluteValueConstraint{B: b, F: f, phase: PhaseUndecided}
}

func (c *AbsoluteValueConstraint) ParticipatingVariables() []VarID { return []VarID{c.B, c.F} }
func (c *AbsoluteValueConstraint) CurrentPhase() Phase { return c.phase }
func (c *AbsoluteValueConstraint) PhaseFixed() bool { return c.phase != PhaseUndecided }
func (c *AbsoluteValueConstraint) Obsolete() bool { return c.obsolete }
func (c *AbsoluteValueConstraint) ResetPhase() { c.phase = PhaseUndecided }

func (c *AbsoluteValueConstraint) NotifyLowerBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if v == c.B && x >= -EqualityTolerance {
		c.phase = AbsPositive
	}
}

func (c *AbsoluteValueConstraint) NotifyUpperBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if v == c.B && x <= EqualityTolerance {
		c.phase = AbsNegative
	}
}

func (c *AbsoluteValueConstraint) CaseSplits() []CaseSplit {
	return []CaseSplit{
		{Phase: AbsPositive, Tightenings: []boundmgr.Tightening{{Variable: c.B, Value: 0, Kind: boundmgr.LB}}},
		{Phase: AbsNegative, Tightenings: []boundmgr.Tightening{{Variable: c.B, Value: 0, Kind: boundmgr.UB}}},
	}
}

func (c *AbsoluteValueConstraint) ValidCaseSplit() CaseSplit {
	for _, s := range c.CaseSplits() {
		if s.Phase == c.phase {
			return s
		}
	}
	return CaseSplit{}
}

// EntailedTightenings implements examples literally:
// ub[f] = max(ub[b], -lb[b]); lb[f] >= 0; if lb[f] > ub[b] the phase must
// be NEGATIVE (captured here as a tightening on b's upper bound to 0,
// which in turn lets NotifyUpperBound fix the phase on the next pass).
func (c *AbsoluteValueConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	lbB, ubB := b.LB(c.B), b.UB(c.B)
	lbF, ubF := b.LB(c.F), b.UB(c.F)

	if lbF < -EqualityTolerance {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: 0, Kind: boundmgr.LB})
	}

	switch c.phase {
		case AbsPositive:
			out = append(out, equalPropagation(c.B, c.F, lbB, ubB, lbF, ubF)...)
		case AbsNegative:
			// f = -b: bounds flip and negate.
			if nl, nu := -ubB, -lbB; nl > lbF || nu < ubF {
				if nl > lbF {
					out = append(out, boundmgr.Tightening{Variable: c.F, Value: nl, Kind: boundmgr.LB})
				}
				if nu < ubF {
					out = append(out, boundmgr.Tightening{Variable: c.F, Value: nu, Kind: boundmgr.UB})
				}
			}
			if -ubF > lbB {
				out = append(out, boundmgr.Tightening{Variable: c.B, Value: -ubF, Kind: boundmgr.LB})
			}
			if -lbF < ubB {
				out = append(out, boundmgr.Tightening{Variable: c.B, Value: -lbF, Kind: boundmgr.UB})
			}
		default:
			cap := math.Max(ubB, -lbB)
			if cap < ubF {
				out = append(out, boundmgr.Tightening{Variable: c.F, Value: cap, Kind: boundmgr.UB})
			}
			if lbF > ubB {
				out = append(out, boundmgr.Tightening{Variable: c.B, Value: 0, Kind: boundmgr.UB})
			}
	}
	return out
}

func equalPropagation(b, f int, lbB, ubB, lbF, ubF float64) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	if lbB > lbF {
		out = append(out, boundmgr.Tightening{Variable: f, Value: lbB, Kind: boundmgr.LB})
	}
	if ubB < ubF {
		out = append(out, boundmgr.Tightening{Variable: f, Value: ubB, Kind: boundmgr.UB})
	}
	if lbF > lbB {
		out = append(out, boundmgr.Tightening{Variable: b, Value: lbF, Kind: boundmgr.LB})
	}
	if ubF < ubB {
		out = append(out, boundmgr.Tightening{Variable: b, Value: ubF, Kind: boundmgr.UB})
	}
	return out
}

func (c *AbsoluteValueConstraint) Satisfied(assignment map[VarID]float64) bool {
	b, f := assignment[c.B], assignment[c.F]
	return math.Abs(f-math.Abs(b)) <= SatisfactionTolerance
}

func (c *AbsoluteValueConstraint) CostComponent(phase Phase) *LinearExpr {
	switch phase {
		case AbsPositive:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1, c.B: -1}}
		case AbsNegative:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1, c.B: 1}}
		default:
			return nil
	}
}

func (c *AbsoluteValueConstraint) PhaseStatusInAssignment(assignment map[VarID]float64) Phase {
	if assignment[c.B] >= -EqualityTolerance {
		return AbsPositive
	}
	return AbsNegative
}
