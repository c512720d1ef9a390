// Package constraint implements the polymorphic piecewise-linear and
// nonlinear constraint objects: each variant is its own concrete type
// satisfying a shared PLConstraint or NLConstraint interface, never a
// deep inheritance hierarchy, and never a back-reference to the
// Tableau: constraints only ever see bounds through the Bounds
// interface.
package constraint

import "github.com/gitrdm/marabou-go/internal/boundmgr"

// VarID identifies a variable the same way the rest of the core does: a
// non-negative integer index.
type VarID = int

// Phase is a constraint's current known branch.
type Phase int

const (
	// PhaseUndecided means no case has been fixed yet.
	PhaseUndecided Phase = iota
	ReLUActive
	ReLUInactive
	AbsPositive
	AbsNegative
	SignPositive
	SignNegative
	MaxElementBase // + ElementIndex, see MaxConstraint
	DisjunctBase // + DisjunctIndex, see DisjunctionConstraint
)

// Bounds is the narrow read interface constraints are given into the
// Bound Manager; never the manager itself, so a constraint cannot mutate
// bounds except by returning Tightenings for the caller to apply.
type Bounds interface {
	LB(v VarID) float64
	UB(v VarID) float64
}

// LinearExpr is a sparse linear expression over variables plus a constant,
// used for the optional SoI cost component a constraint may contribute.
type LinearExpr struct {
	Coeffs   map[VarID]float64
	Constant float64
}

// Equation mirrors linear relation, used only by CaseSplit for
// Disjunction (the one PL constraint variant that may introduce new
// equations rather than just tightenings).
type Equation struct {
	Op EquationOp
	Addends []Addend
	Scalar float64
}

type EquationOp int

const (
	EQ EquationOp = iota
	LE
	GE
)

type Addend struct {
	Coeff float64
	Var VarID
}

// CaseSplit is the immutable bundle of tightenings plus zero or
// more new equations. Applying it unions both with the current query.
type CaseSplit struct {
	Tightenings []boundmgr.Tightening
	Equations []Equation
	Phase Phase
}

// PLConstraint is the uniform piecewise-linear contract every
// piecewise-linear constraint variant satisfies.
type PLConstraint interface {
	ParticipatingVariables() []VarID
	NotifyLowerBound(v VarID, x float64)
	NotifyUpperBound(v VarID, x float64)
	PhaseFixed() bool
	CurrentPhase() Phase
	CaseSplits() []CaseSplit
	ValidCaseSplit() CaseSplit
	EntailedTightenings(b Bounds) []boundmgr.Tightening
	Satisfied(assignment map[VarID]float64) bool
	CostComponent(phase Phase) *LinearExpr
	PhaseStatusInAssignment(assignment map[VarID]float64) Phase
	Obsolete() bool
	// ResetPhase undoes a phase fix made by Notify*/CaseSplits, for
	// decision-level backtracking.
	ResetPhase()
}

// NLConstraint is the nonlinear contract: no case splits, but an
// optional incremental-linearization refinement that appends new PL
// constraints excluding a spurious satisfying point.
type NLConstraint interface {
	ParticipatingVariables() []VarID
	EntailedTightenings(b Bounds) []boundmgr.Tightening
	Satisfied(assignment map[VarID]float64, tolerance float64) bool
	// Refine inspects a spurious satisfying assignment and returns new PL
	// constraints that exclude it, or nil if no refinement applies. The
	// caller enforces the per-constraint refinement budget.
	Refine(assignment map[VarID]float64) []PLConstraint
}

// SatisfactionTolerance is the default epsilon used by Satisfied
// implementations across this package.
const SatisfactionTolerance = 1e-6

// EqualityTolerance is used for b==0-style phase boundary checks.
const EqualityTolerance = 1e-9
