// Package preprocess implements the Preprocessor (C7): constraint-side
// tightening to a fixpoint, detection of fixed variables, and pruning of
// constraints that became obsolete during tightening. Fixed variables are
// listed, not substituted out of equations or constraints; no Gaussian
// equation elimination is performed, and auxiliary variables for ReLU
// constraints are introduced by pkg/query's Build, not here.
package preprocess

import (
	"math"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/gitrdm/marabou-go/internal/tighten"
)

// PPNumTighteningIterations caps the fixpoint loop over constraint-side
// tightening: in practice two or three rounds suffice once row tightening
// is folded in at the engine level, but the preprocessor runs a generous
// fixed budget up front since it only pays this cost once per query.
const PPNumTighteningIterations = 20

// EliminationEpsilon is the ub-lb gap below which a variable is considered
// fixed and reported in Result.EliminatedVars; it stays in the query.
const EliminationEpsilon = 1e-5

// Bounds is the mutable bound interface the preprocessor tightens against;
// satisfied by *boundmgr.Manager.
type Bounds interface {
	LB(v int) float64
	UB(v int) float64
	TightenLower(v int, x float64) bool
	TightenUpper(v int, x float64) bool
	Inconsistent() bool
}

// PLConstraint and NLConstraint alias the constraint package's contracts
// so callers of this package do not need a second import for the same
// interfaces.
type PLConstraint = constraint.PLConstraint
type NLConstraint = constraint.NLConstraint

// Result summarizes what the preprocessor did, for Statistics/logging.
type Result struct {
	TighteningRounds int
	EliminatedVars []int
	RemovedConstraints int
	Infeasible bool
}

// Preprocessor runs the fixpoint tightening/elimination pipeline over a
// set of PL and NL constraints prior to engine construction.
type Preprocessor struct {
	pl []PLConstraint
	nl []NLConstraint
	milp tighten.MILPTightener
	sym tighten.SymbolicTightener
}

// New builds a Preprocessor over the query's constraint lists. milp/sym
// may be nil, in which case the no-op implementations are used.
func New(pl []PLConstraint, nl []NLConstraint, milp tighten.MILPTightener, sym tighten.SymbolicTightener) *Preprocessor {
	if milp == nil {
		milp = tighten.NoopMILPTightener{}
	}
	if sym == nil {
		sym = tighten.NoopSymbolicTightener{}
	}
	return &Preprocessor{pl: pl, nl: nl, milp: milp, sym: sym}
}

// Run executes the tightening fixpoint (up to PPNumTighteningIterations
// rounds or until a round changes nothing), then lists fixed variables in
// Result.EliminatedVars and drops obsolete constraints from the
// preprocessor's PL list. No equation or constraint is rewritten to
// remove a fixed variable.
func (p *Preprocessor) Run(bounds Bounds, numVars int) Result {
	result := Result{}
	for round := 0; round < PPNumTighteningIterations; round++ {
		result.TighteningRounds++
		changed := p.tightenOnce(bounds, numVars)
		if bounds.Inconsistent() {
			result.Infeasible = true
			return result
		}
		if !changed {
			break
		}
	}

	for v := 0; v < numVars; v++ {
		if bounds.UB(v)-bounds.LB(v) < EliminationEpsilon {
			result.EliminatedVars = append(result.EliminatedVars, v)
		}
	}

	kept := p.pl[:0]
	for _, c := range p.pl {
		if c.Obsolete() {
			result.RemovedConstraints++
			continue
		}
		kept = append(kept, c)
	}
	p.pl = kept

	return result
}

func (p *Preprocessor) tightenOnce(bounds Bounds, numVars int) bool {
	changed := false

	var constraintBoundsFrom boundAdapter = boundAdapter{bounds}
	for _, c := range p.pl {
		for _, t := range c.EntailedTightenings(constraintBoundsFrom) {
			if apply(bounds, t) {
				changed = true
			}
		}
	}
	for _, c := range p.nl {
		for _, t := range c.EntailedTightenings(constraintBoundsFrom) {
			if apply(bounds, t) {
				changed = true
			}
		}
	}
	for _, t := range p.milp.Tighten(constraintBoundsFrom, numVars) {
		if apply(bounds, t) {
			changed = true
		}
	}
	for _, t := range p.sym.Tighten(constraintBoundsFrom, numVars) {
		if apply(bounds, t) {
			changed = true
		}
	}
	return changed
}

func apply(bounds Bounds, t boundmgr.Tightening) bool {
	if t.Kind == boundmgr.LB {
		return bounds.TightenLower(t.Variable, t.Value)
	}
	return bounds.TightenUpper(t.Variable, t.Value)
}

type boundAdapter struct {
	b Bounds
}

func (a boundAdapter) LB(v int) float64 { return a.b.LB(v) }
func (a boundAdapter) UB(v int) float64 { return a.b.UB(v) }

// EliminateEquation implements the optional Gaussian-elimination-based
// equation elimination: given a row that, after substitution of
// already-fixed variables, has exactly one free variable left, solve
// for it directly instead of carrying the row through the tableau.
func EliminateEquation(coeffs map[int]float64, rhs float64, fixed map[int]float64) (freeVar int, value float64, ok bool) {
	freeVar = -1
	remaining := rhs
	for v, c := range coeffs {
		if fv, isFixed := fixed[v]; isFixed {
			remaining -= c * fv
			continue
		}
		if freeVar != -1 {
			return -1, 0, false
		}
		freeVar = v
		value = c
	}
	if freeVar == -1 || math.Abs(value) < 1e-12 {
		return -1, 0, false
	}
	return freeVar, remaining / value, true
}

// IntroduceAuxiliary builds the equation f - b - aux = 0 (aux >= 0) that
// links a ReLU constraint's pre/post-activation pair to its
// preprocessor-introduced auxiliary slack.
func IntroduceAuxiliary(b, f, aux int) (coeffs map[int]float64, rhs float64) {
	return map[int]float64{f: 1, b: -1, aux: -1}, 0
}
