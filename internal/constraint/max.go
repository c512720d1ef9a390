package constraint

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
)

// MaxConstraint implements f = max(elements). The phase, once
// fixed, names which element attains the max; Phase is MaxElementBase +
// the element's position among the *original* Elements slice so it
// remains stable even as pruning shrinks the active set.
type MaxConstraint struct {
	F int
	Elements []int
	active []bool // active[i] tracks whether Elements[i] can still attain the max
	fixed int // index into Elements once fixed, or -1
	obsolete bool
}

func NewMax(f int, elements []int) *MaxConstraint {
	active := make([]bool, len(elements))
	for i := range active {
		active[i] = true
	}
	return &MaxConstraint{F: f, Elements: elements, active: active, fixed: -1}
}

func (c *MaxConstraint) ParticipatingVariables() []VarID {
	out := append([]VarID{}, c.Elements...)
	return append(out, c.F)
}

func (c *MaxConstraint) CurrentPhase() Phase {
	if c.fixed < 0 {
		return PhaseUndecided
	}
	return MaxElementBase + Phase(c.fixed)
}

func (c *MaxConstraint) PhaseFixed() bool { return c.fixed >= 0 }
func (c *MaxConstraint) Obsolete() bool { return c.obsolete }

// ResetPhase un-fixes the constraint. Elements already pruned inactive by
// EntailedTightenings are not reactivated: that pruning follows from
// bounds which the caller restores separately, and will be re-derived
// identically once bounds are back in their pre-split state.
func (c *MaxConstraint) ResetPhase() { c.fixed = -1 }

func (c *MaxConstraint) NotifyLowerBound(v VarID, x float64) {}
func (c *MaxConstraint) NotifyUpperBound(v VarID, x float64) {}

// CaseSplits offers one split per still-active element: that element's
// lower bound is raised to at least every other active element's upper
// bound, i.e. it is forced to attain the max.
func (c *MaxConstraint) CaseSplits() []CaseSplit {
	var splits []CaseSplit
	for i, el := range c.Elements {
		if !c.active[i] {
			continue
		}
		splits = append(splits, CaseSplit{
				Phase: MaxElementBase + Phase(i),
				Tightenings: []boundmgr.Tightening{{Variable: el, Value: 0, Kind: boundmgr.LB}},
		})
	}
	return splits
}

func (c *MaxConstraint) ValidCaseSplit() CaseSplit {
	if c.fixed < 0 {
		return CaseSplit{}
	}
	return CaseSplit{Phase: MaxElementBase + Phase(c.fixed)}
}

// EntailedTightenings implements rules: ub[f] = max(ub[xi]);
// lb[f] >= max(lb[xi]); an element whose ub is strictly less than the max
// of the others' lbs is pruned (its index becomes inactive and, since it
// cannot attain the max, f's lower bound is raised no further by it).
func (c *MaxConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening

	maxUB, maxLB := math.Inf(-1), math.Inf(-1)
	for i, el := range c.Elements {
		if !c.active[i] {
			continue
		}
		if u := b.UB(el); u > maxUB {
			maxUB = u
		}
		if l := b.LB(el); l > maxLB {
			maxLB = l
		}
	}

	if maxUB > math.Inf(-1) && maxUB < b.UB(c.F) {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: maxUB, Kind: boundmgr.UB})
	}
	if maxLB > math.Inf(-1) && maxLB > b.LB(c.F) {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: maxLB, Kind: boundmgr.LB})
	}

	for i, el := range c.Elements {
		if !c.active[i] {
			continue
		}
		otherMaxLB := math.Inf(-1)
		for j, other := range c.Elements {
			if j == i || !c.active[j] {
				continue
			}
			if l := b.LB(other); l > otherMaxLB {
				otherMaxLB = l
			}
		}
		if otherMaxLB > math.Inf(-1) && b.UB(el) < otherMaxLB-EqualityTolerance {
			c.active[i] = false
			if c.countActive() == 1 {
				c.fixLastActive()
			}
		}
	}
	return out
}

func (c *MaxConstraint) countActive() int {
	n := 0
	for _, a := range c.active {
		if a {
			n++
		}
	}
	return n
}

func (c *MaxConstraint) fixLastActive() {
	for i, a := range c.active {
		if a {
			c.fixed = i
			return
		}
	}
}

func (c *MaxConstraint) Satisfied(assignment map[VarID]float64) bool {
	best := math.Inf(-1)
	for _, el := range c.Elements {
		if v := assignment[el]; v > best {
			best = v
		}
	}
	return math.Abs(assignment[c.F]-best) <= SatisfactionTolerance
}

func (c *MaxConstraint) CostComponent(phase Phase) *LinearExpr {
	idx := int(phase - MaxElementBase)
	if idx < 0 || idx >= len(c.Elements) {
		return nil
	}
	return &LinearExpr{Coeffs: map[VarID]float64{c.F: 1, c.Elements[idx]: -1}}
}

func (c *MaxConstraint) PhaseStatusInAssignment(assignment map[VarID]float64) Phase {
	best, bestIdx := math.Inf(-1), 0
	for i, el := range c.Elements {
		if v := assignment[el]; v > best {
			best = v
			bestIdx = i
		}
	}
	return MaxElementBase + Phase(bestIdx)
}
