// Package pricing implements the Cost Function Manager and entry rule of
// C4: the reduced-cost vector and the pricing rules that pick which
// non-basic variable enters the basis on each simplex iteration.
package pricing

import "math"

// EntryTolerance is the minimum |reduced cost| for a non-basic variable to
// be considered a candidate entering variable.
const EntryTolerance = 1e-8

// RecomputeErrorThreshold forces a full reduced-cost recompute (instead of
// the cheap incremental update) once the tracked incremental error exceeds
// this bound.
const RecomputeErrorThreshold = 1e-10

// PSEIterationsBeforeReset forces the Projected Steepest Edge reference
// framework to reset after this many pivots even if its error stays low.
const PSEIterationsBeforeReset = 1000

// PSEGammaErrorThreshold forces an early PSE reset when the tracked gamma
// error exceeds this bound.
const PSEGammaErrorThreshold = 1e-3

// Rule names a pricing strategy.
type Rule int

const (
	Dantzig Rule = iota
	SteepestEdge
	ProjectedSteepestEdge
)

func (r Rule) String() string {
	switch r {
		case Dantzig:
			return "dantzig"
		case SteepestEdge:
			return "steepest-edge"
		case ProjectedSteepestEdge:
			return "pse"
		default:
			return "unknown"
	}
}

// BasicStatus mirrors the tableau's notion of a non-basic variable's
// active bound, needed to know which pricing sign is improving.
type BasicStatus int

const (
	AtLower BasicStatus = iota
	AtUpper
	Free
)

// Candidate is a priced non-basic variable eligible to enter the basis.
type Candidate struct {
	Column int
	Cost float64 // reduced cost c[j]
	Score float64 // rule-specific score used to rank candidates
}

// Manager tracks the reduced-cost vector and per-rule auxiliary state
// (steepest-edge reference weights) across an evolving basis.
type Manager struct {
	rule Rule
	n int // number of non-basic columns tracked
	reduced []float64
	gamma []float64 // steepest-edge / PSE reference weights, len n
	pivots int
	gammaErr float64
}

// New creates a Manager for n non-basic columns using the given rule.
// gamma is initialized to 1 (the identity reference framework), matching
// the standard PSE/steepest-edge cold start.
func New(rule Rule, n int) *Manager {
	gamma := make([]float64, n)
	for i := range gamma {
		gamma[i] = 1
	}
	return &Manager{rule: rule, n: n, reduced: make([]float64, n), gamma: gamma}
}

func (m *Manager) Rule() Rule { return m.rule }

// SetReducedCosts installs a freshly (re)computed reduced-cost vector,
// e.g. after c = c_B·B⁻¹·A_N − c_N is recomputed from scratch.
func (m *Manager) SetReducedCosts(c []float64) {
	copy(m.reduced, c)
}

// UpdateReducedCost applies the cheap incremental update to a single
// column after a pivot; callers track and report the
// resulting error via NoteRecomputeError so a stale vector triggers a
// full recompute.
func (m *Manager) UpdateReducedCost(col int, delta float64) {
	if col < 0 || col >= len(m.reduced) {
		return
	}
	m.reduced[col] += delta
}

// NoteRecomputeError records the error observed between an incrementally
// updated reduced cost and a spot-checked exact recompute. Callers should
// force a full SetReducedCosts recompute whenever NeedsFullRecompute
// reports true afterward.
func (m *Manager) NoteRecomputeError(err float64) {
	m.gammaErr = math.Max(m.gammaErr, math.Abs(err))
}

func (m *Manager) NeedsFullRecompute() bool {
	return m.gammaErr > RecomputeErrorThreshold
}

// NotePivot advances the PSE pivot counter; ShouldResetReference reports
// whether the reference framework should reset.
func (m *Manager) NotePivot() {
	m.pivots++
}

func (m *Manager) ShouldResetReference() bool {
	return m.pivots >= PSEIterationsBeforeReset || m.gammaErr >= PSEGammaErrorThreshold
}

// ResetReference reinitializes the reference framework to the identity
// weights and clears the pivot/error counters, as if cold-started.
func (m *Manager) ResetReference() {
	for i := range m.gamma {
		m.gamma[i] = 1
	}
	m.pivots = 0
	m.gammaErr = 0
}

// UpdateGamma installs the steepest-edge/PSE weight for column col after a
// basis change, per the standard Forrest–Goldfarb update rule; the caller
// (tableau/engine) computes the new weight from the pivot column and
// passes it in, since that computation needs the factorization.
func (m *Manager) UpdateGamma(col int, weight float64) {
	if col < 0 || col >= len(m.gamma) {
		return
	}
	m.gamma[col] = weight
}

// EligibleEntering returns every non-basic column whose reduced cost
// signals an improving direction given its current bound status, in
// column order, each carrying the active pricing rule's score;
// SelectEntering picks the highest-scoring one.
func (m *Manager) EligibleEntering(status []BasicStatus) []Candidate {
	var out []Candidate
	for j := 0; j < m.n && j < len(status); j++ {
		c := m.reduced[j]
		if math.Abs(c) < EntryTolerance {
			continue
		}
		improving := false
		switch status[j] {
			case AtLower:
				improving = c < -EntryTolerance
			case AtUpper:
				improving = c > EntryTolerance
			case Free:
				improving = true
		}
		if !improving {
			continue
		}
		out = append(out, Candidate{Column: j, Cost: c, Score: m.score(j, c)})
	}
	return out
}

func (m *Manager) score(j int, c float64) float64 {
	switch m.rule {
		case Dantzig:
			return math.Abs(c)
		case SteepestEdge, ProjectedSteepestEdge:
			g := 1.0
			if j < len(m.gamma) && m.gamma[j] > 0 {
				g = m.gamma[j]
			}
			return (c * c) / g
		default:
			return math.Abs(c)
	}
}

// SelectEntering applies the active rule to rank candidates and returns
// the single best entering column, or (-1, false) if none are eligible.
func (m *Manager) SelectEntering(status []BasicStatus) (int, bool) {
	candidates := m.EligibleEntering(status)
	if len(candidates) == 0 {
		return -1, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best.Column, true
}
