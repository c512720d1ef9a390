package constraint

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
)

// LeakyReLUConstraint implements f = b for b>=0, f = slope*b otherwise,
// with slope in (0, 1]. The phase structure is identical to
// ReLU; propagation on the inactive side is scaled by slope.
type LeakyReLUConstraint struct {
	B, F int
	Slope float64
	phase Phase
	obsolete bool
}

func NewLeakyReLU(b, f int, slope float64) *LeakyReLUConstraint {
	return &LeakyReLUConstraint{B: b, F: f, Slope: slope, phase: PhaseUndecided}
}

func (c *LeakyReLUConstraint) ParticipatingVariables() []VarID { return []VarID{c.B, c.F} }
func (c *LeakyReLUConstraint) CurrentPhase() Phase { return c.phase }
func (c *LeakyReLUConstraint) PhaseFixed() bool { return c.phase != PhaseUndecided }
func (c *LeakyReLUConstraint) Obsolete() bool { return c.obsolete }
func (c *LeakyReLUConstraint) ResetPhase() { c.phase = PhaseUndecided }

func (c *LeakyReLUConstraint) NotifyLowerBound(v VarID, x float64) {
	if c.phase != PhaseUndecided && v == c.B {
		return
	}
	if v == c.B && x >= -EqualityTolerance {
		c.phase = ReLUActive
	}
}

func (c *LeakyReLUConstraint) NotifyUpperBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if v == c.B && x <= EqualityTolerance {
		c.phase = ReLUInactive
	}
}

func (c *LeakyReLUConstraint) CaseSplits() []CaseSplit {
	return []CaseSplit{
		{Phase: ReLUActive, Tightenings: []boundmgr.Tightening{{Variable: c.B, Value: 0, Kind: boundmgr.LB}}},
		{Phase: ReLUInactive, Tightenings: []boundmgr.Tightening{{Variable: c.B, Value: 0, Kind: boundmgr.UB}}},
	}
}

func (c *LeakyReLUConstraint) ValidCaseSplit() CaseSplit {
	for _, s := range c.CaseSplits() {
		if s.Phase == c.phase {
			return s
		}
	}
	return CaseSplit{}
}

func (c *LeakyReLUConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	lbB, ubB := b.LB(c.B), b.UB(c.B)
	lbF, ubF := b.LB(c.F), b.UB(c.F)

	switch c.phase {
		case ReLUActive:
			if lbB > lbF {
				out = append(out, boundmgr.Tightening{Variable: c.F, Value: lbB, Kind: boundmgr.LB})
			}
			if ubB < ubF {
				out = append(out, boundmgr.Tightening{Variable: c.F, Value: ubB, Kind: boundmgr.UB})
			}
		case ReLUInactive:
			// f = slope*b, slope>0, so bounds scale directly.
			if slb := c.Slope * lbB; slb > lbF {
				out = append(out, boundmgr.Tightening{Variable: c.F, Value: slb, Kind: boundmgr.LB})
			}
			if sub := c.Slope * ubB; sub < ubF {
				out = append(out, boundmgr.Tightening{Variable: c.F, Value: sub, Kind: boundmgr.UB})
			}
		default:
			cap := math.Max(ubB, c.Slope*ubB)
			if cap < ubF {
				out = append(out, boundmgr.Tightening{Variable: c.F, Value: cap, Kind: boundmgr.UB})
			}
	}
	return out
}

func (c *LeakyReLUConstraint) Satisfied(assignment map[VarID]float64) bool {
	b, f := assignment[c.B], assignment[c.F]
	want := b
	if b < 0 {
		want = c.Slope * b
	}
	return math.Abs(f-want) <= SatisfactionTolerance
}

func (c *LeakyReLUConstraint) CostComponent(phase Phase) *LinearExpr {
	switch phase {
		case ReLUActive:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1, c.B: -1}}
		case ReLUInactive:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1, c.B: -c.Slope}}
		default:
			return nil
	}
}

func (c *LeakyReLUConstraint) PhaseStatusInAssignment(assignment map[VarID]float64) Phase {
	if assignment[c.B] >= -EqualityTolerance {
		return ReLUActive
	}
	return ReLUInactive
}
