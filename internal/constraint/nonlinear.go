package constraint

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
)

// RoundConstraint implements f = round(b): nearest-integer rounding.
type RoundConstraint struct {
	B, F int
}

func NewRound(b, f int) *RoundConstraint { return &RoundConstraint{B: b, F: f} }

func (c *RoundConstraint) ParticipatingVariables() []VarID { return []VarID{c.B, c.F} }

func (c *RoundConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	lbB, ubB := b.LB(c.B), b.UB(c.B)
	if !math.IsInf(lbB, -1) {
		if lo := math.Round(lbB); lo > b.LB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: lo, Kind: boundmgr.LB})
		}
	}
	if !math.IsInf(ubB, 1) {
		if hi := math.Round(ubB); hi < b.UB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: hi, Kind: boundmgr.UB})
		}
	}
	return out
}

func (c *RoundConstraint) Satisfied(assignment map[VarID]float64, tolerance float64) bool {
	return math.Abs(assignment[c.F]-math.Round(assignment[c.B])) <= tolerance
}

// Round is piecewise-constant, not piecewise-linear in the ReLU sense, so
// the core does not attempt an incremental-linearization refinement for
// it; it contributes entailed tightenings only.
func (c *RoundConstraint) Refine(assignment map[VarID]float64) []PLConstraint { return nil }

// ExponentialConstraint implements f = e^b.
type ExponentialConstraint struct {
	B, F int
}

func NewExponential(b, f int) *ExponentialConstraint { return &ExponentialConstraint{B: b, F: f} }

func (c *ExponentialConstraint) ParticipatingVariables() []VarID { return []VarID{c.B, c.F} }

func (c *ExponentialConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	lbB, ubB := b.LB(c.B), b.UB(c.B)
	if !math.IsInf(lbB, -1) {
		if lo := math.Exp(lbB); lo > b.LB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: lo, Kind: boundmgr.LB})
		}
	}
	if !math.IsInf(ubB, 1) {
		if hi := math.Exp(ubB); hi < b.UB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: hi, Kind: boundmgr.UB})
		}
	}
	if b.LB(c.F) < 0 {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: 0, Kind: boundmgr.LB})
	}
	lbF := b.LB(c.F)
	if lbF > 0 {
		if lo := math.Log(lbF); lo > b.LB(c.B) {
			out = append(out, boundmgr.Tightening{Variable: c.B, Value: lo, Kind: boundmgr.LB})
		}
	}
	return out
}

func (c *ExponentialConstraint) Satisfied(assignment map[VarID]float64, tolerance float64) bool {
	return math.Abs(assignment[c.F]-math.Exp(assignment[c.B])) <= tolerance
}

// Refine appends a LeakyReLU-shaped secant anchored at the spurious
// point's slope e^b0, mirroring the Sigmoid refinement's decomposition
// approach.
func (c *ExponentialConstraint) Refine(assignment map[VarID]float64) []PLConstraint {
	b0 := assignment[c.B]
	slope := math.Exp(b0)
	return []PLConstraint{NewLeakyReLU(c.B, c.F, clampSlope(slope))}
}

// ReciprocalConstraint implements f = 1/b over b != 0.
type ReciprocalConstraint struct {
	B, F int
}

func NewReciprocal(b, f int) *ReciprocalConstraint { return &ReciprocalConstraint{B: b, F: f} }

func (c *ReciprocalConstraint) ParticipatingVariables() []VarID { return []VarID{c.B, c.F} }

func (c *ReciprocalConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	lbB, ubB := b.LB(c.B), b.UB(c.B)
	// Only tighten when b's interval does not straddle 0: reciprocal is
	// discontinuous there and interval evaluation would be unsound.
	if lbB > EqualityTolerance {
		hi, lo := 1/lbB, 0.0
		if !math.IsInf(ubB, 1) {
			lo = 1 / ubB
		}
		if lo > b.LB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: lo, Kind: boundmgr.LB})
		}
		if hi < b.UB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: hi, Kind: boundmgr.UB})
		}
	} else if ubB < -EqualityTolerance {
		lo, hi := 1/ubB, 0.0
		if !math.IsInf(lbB, -1) {
			hi = 1 / lbB
		}
		if lo > b.LB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: lo, Kind: boundmgr.LB})
		}
		if hi < b.UB(c.F) {
			out = append(out, boundmgr.Tightening{Variable: c.F, Value: hi, Kind: boundmgr.UB})
		}
	}
	return out
}

func (c *ReciprocalConstraint) Satisfied(assignment map[VarID]float64, tolerance float64) bool {
	b := assignment[c.B]
	if math.Abs(b) <= tolerance {
		return false
	}
	return math.Abs(assignment[c.F]-1/b) <= tolerance
}

func (c *ReciprocalConstraint) Refine(assignment map[VarID]float64) []PLConstraint {
	b0 := assignment[c.B]
	if math.Abs(b0) <= EqualityTolerance {
		return nil
	}
	slope := -1 / (b0 * b0)
	return []PLConstraint{NewLeakyReLU(c.B, c.F, clampSlope(slope))}
}

// BilinearConstraint implements f = b1*b2. Entailment bounds f by the
// interval product of the two factors' bounds (the min and max of the four
// corner products); no McCormick linear cuts are added.
type BilinearConstraint struct {
	B1, B2, F int
}

func NewBilinear(b1, b2, f int) *BilinearConstraint { return &BilinearConstraint{B1: b1, B2: b2, F: f} }

func (c *BilinearConstraint) ParticipatingVariables() []VarID { return []VarID{c.B1, c.B2, c.F} }

func (c *BilinearConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	l1, u1 := b.LB(c.B1), b.UB(c.B1)
	l2, u2 := b.LB(c.B2), b.UB(c.B2)
	if math.IsInf(l1, -1) || math.IsInf(u1, 1) || math.IsInf(l2, -1) || math.IsInf(u2, 1) {
		return nil
	}
	candidates := []float64{l1 * l2, l1 * u2, u1 * l2, u1 * u2}
	lo, hi := candidates[0], candidates[0]
	for _, v := range candidates[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	var out []boundmgr.Tightening
	if lo > b.LB(c.F) {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: lo, Kind: boundmgr.LB})
	}
	if hi < b.UB(c.F) {
		out = append(out, boundmgr.Tightening{Variable: c.F, Value: hi, Kind: boundmgr.UB})
	}
	return out
}

func (c *BilinearConstraint) Satisfied(assignment map[VarID]float64, tolerance float64) bool {
	return math.Abs(assignment[c.F]-assignment[c.B1]*assignment[c.B2]) <= tolerance
}

// Refine adds nothing for Bilinear: it is handled only by the interval
// tightening above, re-applied as the two factors' intervals shrink
// during search.
func (c *BilinearConstraint) Refine(assignment map[VarID]float64) []PLConstraint { return nil }

// SoftmaxConstraint implements outputs[i] = e^inputs[i] / sum_j e^inputs[j]
//. Entailment only clamps each output to [0,1]; it derives no
// sum-to-one or log-sum-exp tightening.
type SoftmaxConstraint struct {
	Inputs, Outputs []int
}

func NewSoftmax(inputs, outputs []int) *SoftmaxConstraint {
	return &SoftmaxConstraint{Inputs: inputs, Outputs: outputs}
}

func (c *SoftmaxConstraint) ParticipatingVariables() []VarID {
	out := append([]VarID{}, c.Inputs...)
	return append(out, c.Outputs...)
}

func (c *SoftmaxConstraint) EntailedTightenings(b Bounds) []boundmgr.Tightening {
	var out []boundmgr.Tightening
	for _, o := range c.Outputs {
		if b.LB(o) < 0 {
			out = append(out, boundmgr.Tightening{Variable: o, Value: 0, Kind: boundmgr.LB})
		}
		if b.UB(o) > 1 {
			out = append(out, boundmgr.Tightening{Variable: o, Value: 1, Kind: boundmgr.UB})
		}
	}
	return out
}

func (c *SoftmaxConstraint) Satisfied(assignment map[VarID]float64, tolerance float64) bool {
	maxIn := math.Inf(-1)
	for _, v := range c.Inputs {
		if x := assignment[v]; x > maxIn {
			maxIn = x
		}
	}
	sum := 0.0
	exps := make([]float64, len(c.Inputs))
	for i, v := range c.Inputs {
		exps[i] = math.Exp(assignment[v] - maxIn)
		sum += exps[i]
	}
	for i, o := range c.Outputs {
		want := exps[i] / sum
		if math.Abs(assignment[o]-want) > tolerance {
			return false
		}
	}
	return true
}

// Refine is not implemented for Softmax beyond interval entailment: a
// faithful log-sum-exp outer linearization needs a cutting-plane loop over
// the whole input vector, which belongs to a network-level reasoner out
// of scope here, not this per-constraint hook.
func (c *SoftmaxConstraint) Refine(assignment map[VarID]float64) []PLConstraint { return nil }
