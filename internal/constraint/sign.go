package constraint

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
)

// SignConstraint implements f = sign(b) in {-1, +1}, phases
// POSITIVE (b>=0, f=1) and NEGATIVE (b<=0, f=-1).
type SignConstraint struct {
	B, F int
	phase Phase
	obsolete bool
}

func NewSign(b, f int) *SignConstraint {
	return &SignConstraint{B: b, F: f, phase: PhaseUndecided}
}

func (c *SignConstraint) ParticipatingVariables() []VarID { return []VarID{c.B, c.F} }
func (c *SignConstraint) CurrentPhase() Phase { return c.phase }
func (c *SignConstraint) PhaseFixed() bool { return c.phase != PhaseUndecided }
func (c *SignConstraint) Obsolete() bool { return c.obsolete }
func (c *SignConstraint) ResetPhase() { c.phase = PhaseUndecided }

func (c *SignConstraint) NotifyLowerBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if v == c.B && x >= -EqualityTolerance {
		c.phase = SignPositive
	}
}

func (c *SignConstraint) NotifyUpperBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if v == c.B && x <= EqualityTolerance {
		c.phase = SignNegative
	}
}

func (c *SignConstraint) CaseSplits() []CaseSplit {
	return []CaseSplit{
		{
			Phase: SignPositive,
			Tightenings: []boundmgr.Tightening{{Variable: c.B, Value: 0, Kind: boundmgr.LB}, {Variable: c.F, Value: 1, Kind: boundmgr.LB}, {Variable: c.F, Value: 1, Kind: boundmgr.UB}},
		},
		{
			Phase: SignNegative,
			Tightenings: []boundmgr.Tightening{{Variable: c.B, Value: 0, Kind: boundmgr.UB}, {Variable: c.F, Value: -1, Kind: boundmgr.LB}, {Variable: c.F, Value: -1, Kind: boundmgr.UB}},
		},
	}
}

func (c *SignConstraint) ValidCaseSplit() CaseSplit {
	for _, s := range c.CaseSplits() {
		if s.Phase == c.phase {
			return s
		}
	}
	return CaseSplit{}
}

func (c *SignConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	switch c.phase {
		case SignPositive:
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: 1, Kind: boundmgr.LB})
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: 1, Kind: boundmgr.UB})
		case SignNegative:
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: -1, Kind: boundmgr.LB})
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: -1, Kind: boundmgr.UB})
	}
	return out
}

func (c *SignConstraint) Satisfied(assignment map[VarID]float64) bool {
	b, f := assignment[c.B], assignment[c.F]
	want := 1.0
	if b < 0 {
		want = -1.0
	}
	return math.Abs(f-want) <= SatisfactionTolerance
}

func (c *SignConstraint) CostComponent(phase Phase) *LinearExpr {
	switch phase {
		case SignPositive:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1}, Constant: -1}
		case SignNegative:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: -1}, Constant: -1}
		default:
			return nil
	}
}

func (c *SignConstraint) PhaseStatusInAssignment(assignment map[VarID]float64) Phase {
	if assignment[c.B] >= -EqualityTolerance {
		return SignPositive
	}
	return SignNegative
}
