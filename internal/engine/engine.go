// Package engine implements the Engine (C8): the main SMT loop tying
// together the Tableau, Bound Manager, pricing, constraint tightening, and
// case-splitting into a single incremental DPLL(T)-style search.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
	"github.com/gitrdm/marabou-go/internal/pricing"
	"github.com/gitrdm/marabou-go/internal/tableau"
	"github.com/gitrdm/marabou-go/internal/tighten"
)

// ExitCode mirrors pkg/marabou's top-level result, duplicated here so the
// engine package has no dependency on pkg/marabou (kept a leaf package).
type ExitCode int

const (
	Unknown ExitCode = iota
	SAT
	UNSAT
	TimedOut
	QuitRequested
	ErrorExit
)

// Statistics accumulates the counters of Statistics record,
// grounded on ExecutionStats (internal/parallel/pool.go).
type Statistics struct {
	Pivots int
	PrecisionRestorations int
	Splits int
	PhaseFlips int
	Tightenings int
}

// MaxRefinementsPerConstraint bounds how many times a single NLConstraint
// may contribute a Refine()-produced PL constraint before the engine gives
// up refining it further and may report Unknown.
const MaxRefinementsPerConstraint = 5

// decisionLevel groups everything the engine must be able to undo on
// backtrack: the bound-manager trail level plus which constraints had
// their phase fixed since this level opened.
type decisionLevel struct {
	fixedConstraints []int // indices into Engine.pl whose phase was fixed at or above this level
	alternative *constraint.CaseSplit
	splitIndex int
}

// Engine owns one Tableau/BoundManager/pricing.Manager triple plus the
// constraint lists and decision trail for a single (possibly cloned, for
// DnC) solver instance.
type Engine struct {
	tab *tableau.Tableau
	bounds *boundmgr.Manager
	pricer *pricing.Manager

	pl []constraint.PLConstraint
	nl []constraint.NLConstraint

	milp tighten.MILPTightener
	sym tighten.SymbolicTightener

	strategy SplitStrategy
	levels []decisionLevel

	refinementCount map[int]int // index into nl -> refinements used

	Stats Statistics

	ShouldQuit bool // set by an external controller (DnC) to request cooperative cancellation
}

// New builds an Engine from an already-preprocessed tableau/bounds/pricer
// triple and constraint lists.
func New(tab *tableau.Tableau, bounds *boundmgr.Manager, pricer *pricing.Manager, pl []constraint.PLConstraint, nl []constraint.NLConstraint, strategy SplitStrategy) *Engine {
	if strategy == nil {
		strategy = NewStrategyRegistry().Get("auto")
	}
	e := &Engine{
		tab: tab, bounds: bounds, pricer: pricer,
		pl: pl, nl: nl,
		milp: tighten.NoopMILPTightener{}, sym: tighten.NoopSymbolicTightener{},
		strategy: strategy,
		refinementCount: make(map[int]int),
	}
	bounds.SetRepairer(tab)
	return e
}

// SetMILPTightener/SetSymbolicTightener install the optional external
// tightening hooks.
func (e *Engine) SetMILPTightener(m tighten.MILPTightener) { e.milp = m }
func (e *Engine) SetSymbolicTightener(s tighten.SymbolicTightener) { e.sym = s }

// Solve runs the main loop of until SAT, UNSAT, ctx cancellation,
// or ShouldQuit is observed. It returns the satisfying assignment on SAT.
func (e *Engine) Solve(ctx context.Context) (ExitCode, map[int]float64) {
	for {
		if e.ShouldQuit {
			return QuitRequested, nil
		}
		select {
			case <-ctx.Done():
				return TimedOut, nil
			default:
		}

		if e.bounds.Inconsistent() {
			if !e.backtrack() {
				return UNSAT, nil
			}
			continue
		}

		if err := e.tab.ComputeAssignment(); err != nil {
			log.Printf("[engine] assignment recompute failed: %v", err)
			if !e.backtrack() {
				return ErrorExit, nil
			}
			continue
		}

		if e.tab.NeedsDegradationCheck() {
			if _, degraded := e.tab.CheckPrecision(); degraded {
				e.Stats.PrecisionRestorations++
				if err := e.tab.Refactorize(); err != nil {
					log.Printf("[engine] refactorization failed: %v", err)
					return ErrorExit, nil
				}
			}
		}

		progressed, infeasible := e.tightenFixpoint()
		if infeasible {
			if !e.backtrack() {
				return UNSAT, nil
			}
			continue
		}
		if progressed {
			continue
		}

		entering, ok := e.pricer.SelectEntering(e.tableauStatus())
		if ok {
			if err := e.pivotOn(entering); err != nil {
				log.Printf("[engine] pivot failed: %v", err)
				if !e.backtrack() {
					return ErrorExit, nil
				}
			}
			continue
		}

		// Linear relaxation is feasible and optimal: check PL/NL
		// satisfaction against the current assignment.
		assignment := e.currentAssignment()
		if violated := e.firstUnsatisfiedPL(); violated >= 0 {
			if err := e.split(violated); err != nil {
				return ErrorExit, nil
			}
			continue
		}
		if refined := e.refineFirstViolatedNL(assignment); refined {
			continue
		}
		for _, c := range e.nl {
			if !c.Satisfied(assignment, constraint.SatisfactionTolerance) {
				return Unknown, nil
			}
		}
		return SAT, assignment
	}
}

func (e *Engine) tableauStatus() []pricing.BasicStatus {
	n := e.tab.NumColumns()
	out := make([]pricing.BasicStatus, n)
	for j := 0; j < n; j++ {
		switch e.tab.Status(j) {
			case tableau.BasicVar:
				out[j] = pricing.Free
			case tableau.AtUpper:
				out[j] = pricing.AtUpper
			default:
				out[j] = pricing.AtLower
		}
	}
	return out
}

func (e *Engine) pivotOn(entering int) error {
	d, err := e.tab.ComputeChangeColumn(entering)
	if err != nil {
		return err
	}
	status := e.tableauStatus()
	direction := 1.0
	if status[entering] == pricing.AtUpper {
		direction = -1
	}
	result := e.tab.HarrisRatioTest(d, direction)
	if result.LeavingRow < 0 {
		// Unbounded direction is treated as a modeling error at the core
		// boundary (bounded-variable simplex assumes finite bounds
		// somewhere on every cycle); surface as an error exit.
		return fmt.Errorf("unbounded ratio test on entering column %d", entering)
	}
	leavingVar := e.tab.BasicVariables()[result.LeavingRow]
	leavingToBound := tableau.AtLower
	if e.bounds.UB(leavingVar)-e.tab.Assignment(leavingVar) < e.tab.Assignment(leavingVar)-e.bounds.LB(leavingVar) {
		leavingToBound = tableau.AtUpper
	}
	if err := e.tab.PerformPivot(entering, result.LeavingRow, d, leavingToBound); err != nil {
		return err
	}
	e.pricer.NotePivot()
	e.Stats.Pivots++
	if e.tab.NeedsRefactorization() {
		if err := e.tab.Refactorize(); err != nil {
			return err
		}
		e.Stats.PrecisionRestorations++
	}
	return nil
}

func (e *Engine) currentAssignment() map[int]float64 {
	out := make(map[int]float64, e.tab.NumColumns())
	for j := 0; j < e.tab.NumColumns(); j++ {
		out[j] = e.tab.Assignment(j)
	}
	return out
}

func (e *Engine) tightenFixpoint() (progressed bool, infeasible bool) {
	var pending []boundmgr.Tightening
	bv := boundView{e.bounds}
	for _, c := range e.pl {
		pending = append(pending, c.EntailedTightenings(bv)...)
	}
	for _, c := range e.nl {
		pending = append(pending, c.EntailedTightenings(bv)...)
	}
	pending = append(pending, e.milp.Tighten(bv, e.bounds.NumVariables())...)
	pending = append(pending, e.sym.Tighten(bv, e.bounds.NumVariables())...)

	for _, t := range pending {
		var changed bool
		if t.Kind == boundmgr.LB {
			changed = e.bounds.TightenLower(t.Variable, t.Value)
		} else {
			changed = e.bounds.TightenUpper(t.Variable, t.Value)
		}
		if changed {
			progressed = true
			e.Stats.Tightenings++
			e.notifyConstraints(t)
			if e.bounds.Inconsistent() {
				return progressed, true
			}
		}
	}
	return progressed, false
}

func (e *Engine) notifyConstraints(t boundmgr.Tightening) {
	for i, c := range e.pl {
		wasFixed := c.PhaseFixed()
		if t.Kind == boundmgr.LB {
			c.NotifyLowerBound(t.Variable, t.Value)
		} else {
			c.NotifyUpperBound(t.Variable, t.Value)
		}
		if !wasFixed && c.PhaseFixed() {
			e.Stats.PhaseFlips++
			if len(e.levels) > 0 {
				top := &e.levels[len(e.levels)-1]
				top.fixedConstraints = append(top.fixedConstraints, i)
			}
		}
	}
}

type boundView struct {
	b *boundmgr.Manager
}

func (v boundView) LB(x int) float64 { return v.b.LB(x) }
func (v boundView) UB(x int) float64 { return v.b.UB(x) }

func (e *Engine) firstUnsatisfiedPL() int {
	assignment := e.currentAssignment()
	for i, c := range e.pl {
		if !c.Satisfied(assignment) {
			return i
		}
	}
	return -1
}

func (e *Engine) refineFirstViolatedNL(assignment map[int]float64) bool {
	for i, c := range e.nl {
		if c.Satisfied(assignment, constraint.SatisfactionTolerance) {
			continue
		}
		if e.refinementCount[i] >= MaxRefinementsPerConstraint {
			continue
		}
		newConstraints := c.Refine(assignment)
		if len(newConstraints) == 0 {
			continue
		}
		e.refinementCount[i]++
		e.pl = append(e.pl, newConstraints...)
		return true
	}
	return false
}

// split applies the chosen case split of the constraint at index plIndex,
// opening a new decision level so backtrack can undo it later.
func (e *Engine) split(plIndex int) error {
	c := e.pl[plIndex]
	splits := c.CaseSplits()
	if len(splits) == 0 {
		return nil
	}
	chosen := splits[0]
	var alternative *constraint.CaseSplit
	if len(splits) > 1 {
		alt := splits[1]
		alternative = &alt
	}

	e.bounds.StoreLocalBounds()
	e.levels = append(e.levels, decisionLevel{
			fixedConstraints: []int{plIndex},
			alternative: alternative,
			splitIndex: plIndex,
	})
	e.applyCaseSplit(chosen)
	e.Stats.Splits++
	return nil
}

func (e *Engine) applyCaseSplit(split constraint.CaseSplit) {
	for _, t := range split.Tightenings {
		if t.Kind == boundmgr.LB {
			e.bounds.TightenLower(t.Variable, t.Value)
		} else {
			e.bounds.TightenUpper(t.Variable, t.Value)
		}
		e.notifyConstraints(t)
	}
}

// backtrack pops the most recent decision level and, if it still has an
// untried alternative, applies it as a fresh sibling level; otherwise pops
// again up the trail. Returns false when no level remains (UNSAT at the
// root).
func (e *Engine) backtrack() bool {
	for len(e.levels) > 0 {
		level := e.levels[len(e.levels)-1]
		e.levels = e.levels[:len(e.levels)-1]
		e.bounds.RestoreLocalBounds()
		for _, idx := range level.fixedConstraints {
			e.pl[idx].ResetPhase()
		}
		if level.alternative != nil {
			e.bounds.StoreLocalBounds()
			e.levels = append(e.levels, decisionLevel{fixedConstraints: []int{level.splitIndex}})
			e.applyCaseSplit(*level.alternative)
			return true
		}
	}
	return false
}

// Depth reports the current decision-level nesting, for statistics/logging.
func (e *Engine) Depth() int { return len(e.levels) }
