// Package query implements the Query construction API: the
// stable surface parsers and embedders call to build up a verification
// problem — variable count, bounds, equations, piecewise-linear and
// nonlinear constraints, and input/output variable marks — independent of
// how it is eventually solved.
package query

import (
	"fmt"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
)

// EquationOp mirrors internal/constraint's relation kinds so callers of
// this package never need to import internal/constraint directly.
type EquationOp = constraint.EquationOp

const (
	EQ = constraint.EQ
	LE = constraint.LE
	GE = constraint.GE
)

// Addend is one (coefficient, variable) term of an Equation.
type Addend = constraint.Addend

// Equation is linear relation: sum(coeff*var) op scalar.
type Equation struct {
	Op EquationOp
	Addends []Addend
	Scalar float64
}

// plKind discriminates the piecewise-linear constraint variants; kept
// unexported since the variant is fully described by the AddXxx
// constructor that built it.
type plKind int

const (
	plReLU plKind = iota
	plLeakyReLU
	plAbsoluteValue
	plSign
	plMax
	plDisjunction
)

type plSpec struct {
	kind plKind
	b, f int
	slope float64
	elements []int
	disjuncts []constraint.CaseSplit
	vars []int
}

type nlKind int

const (
	nlSigmoid nlKind = iota
	nlSoftmax
	nlBilinear
	nlRound
	nlExp
	nlReciprocal
)

type nlSpec struct {
	kind nlKind
	b, f, b1, b2 int
	inputs, outputs []int
}

// Query accumulates a verification problem as the raw construction calls,
// resolved into concrete constraint objects only when Build is called.
type Query struct {
	numVars int
	lb, ub map[int]float64

	equations []Equation
	pl []plSpec
	nl []nlSpec

	inputVars map[int]int
	outputVars map[int]int
}

// New builds an empty query.
func New() *Query {
	return &Query{
		lb: map[int]float64{}, ub: map[int]float64{},
		inputVars: map[int]int{}, outputVars: map[int]int{},
	}
}

// SetNumberOfVariables declares the variable universe [0, n). Must be
// called before any SetLowerBound/SetUpperBound/Add* call referencing a
// variable index. Variables left unbounded default to boundmgr's
// -inf/+inf, same as every other query-less Bound Manager.
func (q *Query) SetNumberOfVariables(n int) { q.numVars = n }

// SetLowerBound/SetUpperBound record a variable's bound.
func (q *Query) SetLowerBound(v int, x float64) { q.lb[v] = x }
func (q *Query) SetUpperBound(v int, x float64) { q.ub[v] = x }

// AddEquation appends a linear equation over the query's variables.
func (q *Query) AddEquation(eq Equation) { q.equations = append(q.equations, eq) }

// AddReLU adds a ReLU(b,f) piecewise-linear constraint; a fresh auxiliary
// slack is allocated for it when the query is built.
func (q *Query) AddReLU(b, f int) {
	q.pl = append(q.pl, plSpec{kind: plReLU, b: b, f: f, vars: []int{b, f}})
}

// AddLeakyReLU adds a LeakyReLU(b,f,slope) constraint.
func (q *Query) AddLeakyReLU(b, f int, slope float64) {
	q.pl = append(q.pl, plSpec{kind: plLeakyReLU, b: b, f: f, slope: slope, vars: []int{b, f}})
}

// AddAbsoluteValue adds an AbsoluteValue(b,f) constraint.
func (q *Query) AddAbsoluteValue(b, f int) {
	q.pl = append(q.pl, plSpec{kind: plAbsoluteValue, b: b, f: f, vars: []int{b, f}})
}

// AddSign adds a Sign(b,f) constraint.
func (q *Query) AddSign(b, f int) {
	q.pl = append(q.pl, plSpec{kind: plSign, b: b, f: f, vars: []int{b, f}})
}

// AddMax adds f = max(elements).
func (q *Query) AddMax(f int, elements []int) {
	vars := append([]int{f}, elements...)
	q.pl = append(q.pl, plSpec{kind: plMax, f: f, elements: append([]int{}, elements...), vars: vars})
}

// AddDisjunction adds a literal disjunction of case splits. Every
// disjunct's Tightenings are required; Equations are not supported by the
// persistence format (see Save) but are fine for a Query that is only
// ever solved in-process.
func (q *Query) AddDisjunction(disjuncts []constraint.CaseSplit, vars []int) {
	q.pl = append(q.pl, plSpec{kind: plDisjunction, disjuncts: disjuncts, vars: append([]int{}, vars...)})
}

// AddSigmoid/AddSoftmax/AddBilinear/AddRound/AddExp/AddReciprocal add the
// nonlinear constraint variants.
func (q *Query) AddSigmoid(b, f int) { q.nl = append(q.nl, nlSpec{kind: nlSigmoid, b: b, f: f}) }
func (q *Query) AddSoftmax(inputs, outputs []int) {
	q.nl = append(q.nl, nlSpec{kind: nlSoftmax, inputs: append([]int{}, inputs...), outputs: append([]int{}, outputs...)})
}
func (q *Query) AddBilinear(b1, b2, f int) {
	q.nl = append(q.nl, nlSpec{kind: nlBilinear, b1: b1, b2: b2, f: f})
}
func (q *Query) AddRound(b, f int) { q.nl = append(q.nl, nlSpec{kind: nlRound, b: b, f: f}) }
func (q *Query) AddExp(b, f int) { q.nl = append(q.nl, nlSpec{kind: nlExp, b: b, f: f}) }
func (q *Query) AddReciprocal(b, f int) {
	q.nl = append(q.nl, nlSpec{kind: nlReciprocal, b: b, f: f})
}

// MarkInputVariable/MarkOutputVariable record a variable's position in the
// network's input/output vector, for downstream reporting.
func (q *Query) MarkInputVariable(v, index int) { q.inputVars[v] = index }
func (q *Query) MarkOutputVariable(v, index int) { q.outputVars[v] = index }

// NumVariables reports the declared variable count.
func (q *Query) NumVariables() int { return q.numVars }

// InputVariables/OutputVariables expose the marked index maps.
func (q *Query) InputVariables() map[int]int { return q.inputVars }
func (q *Query) OutputVariables() map[int]int { return q.outputVars }

// Built is the materialized form of a Query: every variable's bound
// resolved to a concrete boundmgr.Manager, every equation as a dense row,
// and every constraint spec resolved into a concrete constraint.PLConstraint
// or constraint.NLConstraint, ready for preprocess/engine construction.
type Built struct {
	NumVars int
	Bounds *boundmgr.Manager
	Rows [][]float64 // one per equation, dense, over [0,NumVars)
	RHS []float64
	PL []constraint.PLConstraint
	NL []constraint.NLConstraint
}

// Build resolves the query into concrete core objects. Each ReLU
// constraint gets a fresh auxiliary variable and an f-b-aux=0 equation,
// appended past the user-declared variable range; the other constraint
// kinds get no auxiliary variable or equation.
func (q *Query) Build() (*Built, error) {
	// Only ReLU is linked to the tableau via an auxiliary slack and an
	// f-b-aux=0 row; LeakyReLU/AbsoluteValue/Sign are enforced
	// purely through bound propagation and case-split tightenings, with no
	// equation of their own.
	extraVars := 0
	for _, spec := range q.pl {
		if spec.kind == plReLU {
			extraVars++
		}
	}
	total := q.numVars + extraVars

	bm := boundmgr.New(total)
	for v, x := range q.lb {
		bm.SetLower(v, x)
	}
	for v, x := range q.ub {
		bm.SetUpper(v, x)
	}
	for v := q.numVars; v < total; v++ {
		bm.SetLower(v, 0) // auxiliary slacks are always >= 0
	}

	var rows [][]float64
	var rhs []float64
	for _, eq := range q.equations {
		row := make([]float64, total)
		for _, a := range eq.Addends {
			row[a.Var] += a.Coeff
		}
		switch eq.Op {
			case EQ:
				rows = append(rows, row)
				rhs = append(rhs, eq.Scalar)
			default:
				return nil, fmt.Errorf("query: only equality equations are supported by the tableau core, got op %v", eq.Op)
		}
	}

	var pl []constraint.PLConstraint
	aux := q.numVars
	for _, spec := range q.pl {
		switch spec.kind {
			case plReLU:
				c := constraint.NewReLU(spec.b, spec.f)
				c.SetAux(aux)
				rows = append(rows, auxRow(total, spec.f, spec.b, aux))
				rhs = append(rhs, 0)
				aux++
				pl = append(pl, c)
			case plLeakyReLU:
				pl = append(pl, constraint.NewLeakyReLU(spec.b, spec.f, spec.slope))
			case plAbsoluteValue:
				pl = append(pl, constraint.NewAbsoluteValue(spec.b, spec.f))
			case plSign:
				pl = append(pl, constraint.NewSign(spec.b, spec.f))
			case plMax:
				pl = append(pl, constraint.NewMax(spec.f, spec.elements))
			case plDisjunction:
				pl = append(pl, constraint.NewDisjunction(spec.disjuncts, spec.vars))
		}
	}

	var nl []constraint.NLConstraint
	for _, spec := range q.nl {
		switch spec.kind {
			case nlSigmoid:
				nl = append(nl, constraint.NewSigmoid(spec.b, spec.f))
			case nlSoftmax:
				nl = append(nl, constraint.NewSoftmax(spec.inputs, spec.outputs))
			case nlBilinear:
				nl = append(nl, constraint.NewBilinear(spec.b1, spec.b2, spec.f))
			case nlRound:
				nl = append(nl, constraint.NewRound(spec.b, spec.f))
			case nlExp:
				nl = append(nl, constraint.NewExponential(spec.b, spec.f))
			case nlReciprocal:
				nl = append(nl, constraint.NewReciprocal(spec.b, spec.f))
		}
	}

	return &Built{NumVars: total, Bounds: bm, Rows: rows, RHS: rhs, PL: pl, NL: nl}, nil
}

func auxRow(total, f, b, aux int) []float64 {
	row := make([]float64, total)
	row[f] = 1
	row[b] = -1
	row[aux] = -1
	return row
}
