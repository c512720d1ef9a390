package constraint

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
)

// ReLUConstraint implements f = max(0, b). Aux is the
// preprocessor-introduced slack (f - b - aux = 0, aux >= 0); Aux == -1
// means the auxiliary variable has not been introduced yet and bound
// propagation falls back to reasoning over B and F alone.
type ReLUConstraint struct {
	B, F, Aux int
	phase Phase
	obsolete bool
}

// NewReLU constructs an unfixed ReLU constraint over pre-activation b and
// post-activation f. Call SetAux after the preprocessor introduces the
// slack variable.
func NewReLU(b, f int) *ReLUConstraint {
	return &ReLUConstraint{B: b, F: f, Aux: -1, phase: PhaseUndecided}
}

// SetAux records the auxiliary slack variable introduced by the
// preprocessor.
func (c *ReLUConstraint) SetAux(aux int) { c.Aux = aux }

func (c *ReLUConstraint) ParticipatingVariables() []VarID {
	if c.Aux >= 0 {
		return []VarID{c.B, c.F, c.Aux}
	}
	return []VarID{c.B, c.F}
}

func (c *ReLUConstraint) CurrentPhase() Phase { return c.phase }
func (c *ReLUConstraint) PhaseFixed() bool { return c.phase != PhaseUndecided }
func (c *ReLUConstraint) Obsolete() bool { return c.obsolete }
func (c *ReLUConstraint) ResetPhase() { c.phase = PhaseUndecided }

// NotifyLowerBound implements phase-fixing on a lower-bound update:
// lb[b]>=0 or lb[f]>0 fixes the phase to ACTIVE, and lb[aux]>0 fixes it
// to INACTIVE.
func (c *ReLUConstraint) NotifyLowerBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if (v == c.B && x >= -EqualityTolerance) || (v == c.F && x > EqualityTolerance) {
		c.phase = ReLUActive
	}
	if v == c.Aux {
		c.notifyAuxLower(x)
	}
}

// NotifyUpperBound fixes INACTIVE when ub[b]<=0 or ub[f]==0, and ACTIVE
// when ub[aux]==0.
func (c *ReLUConstraint) NotifyUpperBound(v VarID, x float64) {
	if c.phase != PhaseUndecided {
		return
	}
	if (v == c.B && x <= EqualityTolerance) || (v == c.F && math.Abs(x) < EqualityTolerance) {
		c.phase = ReLUInactive
	}
	if v == c.Aux && x <= EqualityTolerance {
		c.phase = ReLUActive
	}
}

// notifyAuxLower is invoked by NotifyLowerBound on a new lower bound for
// Aux; a positive one fixes INACTIVE (aux = -b > 0 implies b < 0).
func (c *ReLUConstraint) notifyAuxLower(x float64) {
	if c.phase == PhaseUndecided && c.Aux >= 0 && x > EqualityTolerance {
		c.phase = ReLUInactive
	}
}

func (c *ReLUConstraint) CaseSplits() []CaseSplit {
	active := CaseSplit{
		Phase: ReLUActive,
		Tightenings: []boundmgr.Tightening{
			{Variable: c.B, Value: 0, Kind: boundmgr.LB},
		},
	}
	inactive := CaseSplit{
		Phase: ReLUInactive,
		Tightenings: []boundmgr.Tightening{
			{Variable: c.B, Value: 0, Kind: boundmgr.UB},
			{Variable: c.F, Value: 0, Kind: boundmgr.UB},
		},
	}
	return []CaseSplit{active, inactive}
}

func (c *ReLUConstraint) ValidCaseSplit() CaseSplit {
	for _, s := range c.CaseSplits() {
		if s.Phase == c.phase {
			return s
		}
	}
	return CaseSplit{}
}

// EntailedTightenings implements the bound-sharing rules between a ReLU's
// pre- and post-activation variables: fixed-phase constraints propagate
// lb/ub directly across b and f, and the undecided phase still shares the
// upper bound via f <= max(ub[b], 0).
func (c *ReLUConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	lbB, ubB := b.LB(c.B), b.UB(c.B)
	lbF, ubF := b.LB(c.F), b.UB(c.F)

	// f is always >= 0.
	if lbF < -EqualityTolerance {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: 0, Kind: boundmgr.LB})
	}

	switch c.phase {
	case ReLUActive:
		// f = b exactly.
		if lbB > lbF {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: lbB, Kind: boundmgr.LB})
		}
		if ubB < ubF {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: ubB, Kind: boundmgr.UB})
		}
		if lbF > lbB {
			out = append(out, boundmgr.Tightening{Variable: c.B, Value: lbF, Kind: boundmgr.LB})
		}
		if ubF < ubB {
			out = append(out, boundmgr.Tightening{Variable: c.B, Value: ubF, Kind: boundmgr.UB})
		}
	case ReLUInactive:
		if ubF > 0 {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: 0, Kind: boundmgr.UB})
		}
	default:
		// Unknown phase: f <= max(ub[b], 0) shares the upper bound.
		cap := math.Max(ubB, 0)
		if cap < ubF {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: cap, Kind: boundmgr.UB})
		}
	}
	return out
}

func (c *ReLUConstraint) Satisfied(assignment map[VarID]float64) bool {
	b, f := assignment[c.B], assignment[c.F]
	want := math.Max(0, b)
	return math.Abs(f-want) <= SatisfactionTolerance
}

// CostComponent returns the SoI linear cost for being in the given phase:
// the ACTIVE cost is f-b and the INACTIVE cost is f. Both are 0 when the
// assignment already matches that phase.
func (c *ReLUConstraint) CostComponent(phase Phase) *LinearExpr {
	switch phase {
		case ReLUActive:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1, c.B: -1}}
		case ReLUInactive:
			return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1}}
		default:
			return nil
	}
}

func (c *ReLUConstraint) PhaseStatusInAssignment(assignment map[VarID]float64) Phase {
	if assignment[c.B] >= -EqualityTolerance {
		return ReLUActive
	}
	return ReLUInactive
}
