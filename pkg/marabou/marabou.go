// Package marabou implements the Solve API: the external
// entry point that wires a built Query into a Preprocessor, Engine, and
// (optionally) a Divide-and-Conquer Manager, returning an ExitCode, model,
// and Statistics.
package marabou

import (
	"context"
	"fmt"
	"time"

	"github.com/gitrdm/marabou-go/internal/dnc"
	"github.com/gitrdm/marabou-go/internal/engine"
	"github.com/gitrdm/marabou-go/internal/linalg"
	"github.com/gitrdm/marabou-go/internal/pricing"
	"github.com/gitrdm/marabou-go/internal/preprocess"
	"github.com/gitrdm/marabou-go/internal/tableau"
	"github.com/gitrdm/marabou-go/internal/tighten"
	"github.com/gitrdm/marabou-go/pkg/query"
)

// ExitCode is the top-level result, stringified for CLI and logging use
// rather than mirroring internal/engine.ExitCode's int representation
// directly.
type ExitCode string

const (
	SAT ExitCode = "SAT"
	UNSAT ExitCode = "UNSAT"
	Timeout ExitCode = "TIMEOUT"
	UnknownExit ExitCode = "UNKNOWN"
	ErrorExit ExitCode = "ERROR"
	QuitRequested ExitCode = "QUIT_REQUESTED"
)

func fromEngineExitCode(c engine.ExitCode) ExitCode {
	switch c {
		case engine.SAT:
			return SAT
		case engine.UNSAT:
			return UNSAT
		case engine.TimedOut:
			return Timeout
		case engine.QuitRequested:
			return QuitRequested
		case engine.ErrorExit:
			return ErrorExit
		default:
			return UnknownExit
	}
}

// Options is the immutable configuration record: built once via
// DefaultOptions and never mutated mid-solve.
type Options struct {
	Timeout time.Duration
	NumWorkers int
	InitialDivides int
	InitialTimeout time.Duration
	OnlineDivides int
	TimeoutFactor float64
	SplittingStrategy string
	DnC bool
	WarmStart bool
	MaxRefinementsPerConstraint int
	MILPTightener tighten.MILPTightener
	SymbolicTightener tighten.SymbolicTightener
	PricingRule pricing.Rule
}

// DefaultOptions returns the documented defaults: cold basis per
// subquery, refinement budget of 5.
func DefaultOptions() Options {
	return Options{
		Timeout: 0, // no wall-clock limit
		NumWorkers: 1,
		InitialDivides: 0,
		OnlineDivides: 2,
		TimeoutFactor: 1.5,
		SplittingStrategy: "auto",
		DnC: false,
		WarmStart: false,
		MaxRefinementsPerConstraint: engine.MaxRefinementsPerConstraint,
		PricingRule: pricing.Dantzig,
	}
}

// Statistics mirrors internal/engine.Statistics, the package boundary for
// reporting without exposing internal/engine's type directly to callers
// of this package.
type Statistics struct {
	Pivots int
	PrecisionRestorations int
	Splits int
	PhaseFlips int
	Tightenings int
	PreprocessTighteningRounds int
	EliminatedVariables int
}

// Model maps variable index to its value in a satisfying assignment.
type Model map[int]float64

// Solve runs preprocessing, then either a single Engine (DnC disabled) or
// a Manager splitting across NumWorkers engines (DnC enabled).
func Solve(ctx context.Context, q *query.Query, opts Options) (ExitCode, Model, Statistics, error) {
	built, err := q.Build()
	if err != nil {
		return ErrorExit, nil, Statistics{}, fmt.Errorf("marabou: building query: %w", err)
	}

	pp := preprocess.New(built.PL, built.NL, opts.MILPTightener, opts.SymbolicTightener)
	ppResult := pp.Run(built.Bounds, built.NumVars)
	stats := Statistics{
		PreprocessTighteningRounds: ppResult.TighteningRounds,
		EliminatedVariables: len(ppResult.EliminatedVars),
	}
	if ppResult.Infeasible {
		return UNSAT, nil, stats, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.DnC && opts.NumWorkers > 1 {
		return solveDnC(ctx, built, opts, stats)
	}
	return solveSingle(ctx, built, opts, stats)
}

func buildEngine(built *query.Built, opts Options) (*engine.Engine, error) {
	fact, err := linalg.NewSparseForrestTomlin(identityBasis(len(built.Rows)))
	if err != nil {
		return nil, fmt.Errorf("marabou: building initial factorization: %w", err)
	}
	basic := make([]int, len(built.Rows))
	for i := range basic {
		basic[i] = built.NumVars - len(built.Rows) + i
	}

	tab, err := tableau.New(built.Rows, built.RHS, basic, built.Bounds, fact)
	if err != nil {
		return nil, fmt.Errorf("marabou: building tableau: %w", err)
	}

	pricer := pricing.New(opts.PricingRule, built.NumVars)

	reg := engine.NewStrategyRegistry()
	e := engine.New(tab, built.Bounds, pricer, built.PL, built.NL, reg.Get(opts.SplittingStrategy))
	if opts.MILPTightener != nil {
		e.SetMILPTightener(opts.MILPTightener)
	}
	if opts.SymbolicTightener != nil {
		e.SetSymbolicTightener(opts.SymbolicTightener)
	}
	return e, nil
}

func identityBasis(m int) [][]float64 {
	rows := make([][]float64, m)
	for i := range rows {
		rows[i] = make([]float64, m)
		rows[i][i] = 1
	}
	return rows
}

func solveSingle(ctx context.Context, built *query.Built, opts Options, stats Statistics) (ExitCode, Model, Statistics, error) {
	e, err := buildEngine(built, opts)
	if err != nil {
		return ErrorExit, nil, stats, err
	}
	code, model := e.Solve(ctx)
	stats.Pivots = e.Stats.Pivots
	stats.PrecisionRestorations = e.Stats.PrecisionRestorations
	stats.Splits = e.Stats.Splits
	stats.PhaseFlips = e.Stats.PhaseFlips
	stats.Tightenings = e.Stats.Tightenings
	return fromEngineExitCode(code), model, stats, nil
}

func solveDnC(ctx context.Context, built *query.Built, opts Options, stats Statistics) (ExitCode, Model, Statistics, error) {
	m := dnc.New(opts.NumWorkers)
	defer m.Shutdown()

	numSubqueries := 1 << uint(opts.InitialDivides)
	subqueries := make([]*dnc.Subquery, 0, numSubqueries)
	for i := 0; i < numSubqueries; i++ {
		e, err := buildEngine(built, opts)
		if err != nil {
			return ErrorExit, nil, stats, err
		}
		subqueries = append(subqueries, dnc.NewSubquery(e, opts.InitialTimeout, 0))
	}
	m.OnlineDivides = opts.OnlineDivides
	m.TimeoutFactor = opts.TimeoutFactor
	m.Enqueue(subqueries)

	outcome, model, err := m.Run(ctx)
	if err != nil && outcome != dnc.SubqueryTimedOut {
		return ErrorExit, nil, stats, err
	}
	switch outcome {
		case dnc.SubquerySAT:
			return SAT, model, stats, nil
		case dnc.SubqueryUNSAT:
			return UNSAT, nil, stats, nil
		case dnc.SubqueryTimedOut:
			return Timeout, nil, stats, nil
		default:
			return UnknownExit, nil, stats, nil
	}
}

// CalculateBounds runs preprocessing and the bound tightener only,
// returning the narrowed interval for every variable without invoking
// the search loop.
func CalculateBounds(q *query.Query, opts Options) (map[int][2]float64, error) {
	built, err := q.Build()
	if err != nil {
		return nil, fmt.Errorf("marabou: building query: %w", err)
	}

	pp := preprocess.New(built.PL, built.NL, opts.MILPTightener, opts.SymbolicTightener)
	result := pp.Run(built.Bounds, built.NumVars)
	if result.Infeasible {
		return nil, fmt.Errorf("marabou: query is infeasible during preprocessing")
	}

	out := make(map[int][2]float64, built.NumVars)
	for v := 0; v < built.NumVars; v++ {
		out[v] = [2]float64{built.Bounds.LB(v), built.Bounds.UB(v)}
	}
	return out, nil
}
