// Package boundmgr implements the Bound Manager: the single
// owner of every variable's lower/upper bound, with monotone tightening,
// dirty-bit tightening tracking, trail-backed save/restore at case-split
// boundaries, and an optional proof-mode explanation vector per bound.
package boundmgr

import "github.com/gitrdm/marabou-go/internal/trail"

// BoundTolerance is the additive tolerance below which a new bound is not
// considered an improvement.
const BoundTolerance = 1e-7

// Kind discriminates which side of a variable's interval a Tightening
// improves.
type Kind int

const (
	LB Kind = iota
	UB
)

func (k Kind) String() string {
	if k == LB {
		return "LB"
	}
	return "UB"
}

// Tightening is the triple (variable, value, kind) applied to narrow a
// bound.
type Tightening struct {
	Variable int
	Value    float64
	Kind     Kind
}

// Repairer lets the Tableau react when a non-basic variable's bound
// crosses its current value. The bound manager holds only this narrow interface, never
// a back-reference to the Tableau itself.
type Repairer interface {
	RepairNonBasicAssignment(variable int, kind Kind, newValue float64)
}

// Manager owns lb/ub for every variable plus the dirty bits and optional
// proof-mode explanation vectors below.
type Manager struct {
	lb, ub                   []float64
	tightenedLB, tightenedUB []bool
	inconsistent             bool
	firstConflict            *Tightening
	trail                    *trail.Trail
	repairer                 Repairer

	proofMode bool
	// explLB/explUB[v] maps row index -> coefficient, the non-negative
	// combination of original rows that derives bound v.
	explLB, explUB []map[int]float64
}

// New creates a bound manager for n variables, all bounds initialized to
// -inf/+inf.
func New(n int) *Manager {
	lb := make([]float64, n)
	ub := make([]float64, n)
	for i := range lb {
		lb[i] = negInf
		ub[i] = posInf
	}
	return &Manager{
		lb: lb,
		ub: ub,
		tightenedLB: make([]bool, n),
		tightenedUB: make([]bool, n),
		trail: trail.New(),
	}
}

const (
	posInf = 1e300
	negInf = -1e300
)

// SetRepairer installs the Tableau-side repair hook.
func (m *Manager) SetRepairer(r Repairer) { m.repairer = r }

// EnableProofMode allocates per-bound explanation vectors.
func (m *Manager) EnableProofMode() {
	m.proofMode = true
	m.explLB = make([]map[int]float64, len(m.lb))
	m.explUB = make([]map[int]float64, len(m.ub))
}

// NumVariables returns n.
func (m *Manager) NumVariables() int { return len(m.lb) }

// LB returns the current lower bound of v.
func (m *Manager) LB(v int) float64 { return m.lb[v] }

// UB returns the current upper bound of v.
func (m *Manager) UB(v int) float64 { return m.ub[v] }

// Inconsistent reports whether any lb[v] > ub[v] has been observed since
// the manager (or the enclosing decision level) was last known-consistent.
func (m *Manager) Inconsistent() bool { return m.inconsistent }

// FirstConflict returns the tightening that first made the manager
// inconsistent, or nil.
func (m *Manager) FirstConflict() *Tightening { return m.firstConflict }

// SetLower monotonically improves lb[v]; returns true iff it changed.
func (m *Manager) SetLower(v int, x float64) bool {
	return m.setBound(v, x, LB)
}

// SetUpper monotonically improves ub[v]; returns true iff it changed.
func (m *Manager) SetUpper(v int, x float64) bool {
	return m.setBound(v, x, UB)
}

func (m *Manager) setBound(v int, x float64, kind Kind) bool {
	if kind == LB {
		if x <= m.lb[v]+BoundTolerance {
			return false
		}
		old := m.lb[v]
		oldDirty := m.tightenedLB[v]
		m.lb[v] = x
		m.tightenedLB[v] = true
		m.trail.Record(func() {
				m.lb[v] = old
				m.tightenedLB[v] = oldDirty
		})
	} else {
		if x >= m.ub[v]-BoundTolerance {
			return false
		}
		old := m.ub[v]
		oldDirty := m.tightenedUB[v]
		m.ub[v] = x
		m.tightenedUB[v] = true
		m.trail.Record(func() {
				m.ub[v] = old
				m.tightenedUB[v] = oldDirty
		})
	}
	m.checkConsistency(v, kind, x)
	return true
}

func (m *Manager) checkConsistency(v int, kind Kind, x float64) {
	if m.ub[v] < m.lb[v]-BoundTolerance && m.firstConflict == nil {
		wasInconsistent := m.inconsistent
		t := Tightening{Variable: v, Value: x, Kind: kind}
		m.inconsistent = true
		m.firstConflict = &t
		m.trail.Record(func() {
				m.inconsistent = wasInconsistent
				m.firstConflict = nil
		})
	}
}

// TightenLower improves lb[v] and, if v is currently non-basic with a
// value now below the new bound, asks the repairer to fix the assignment
//.
func (m *Manager) TightenLower(v int, x float64) bool {
	changed := m.SetLower(v, x)
	if changed && m.repairer != nil {
		m.repairer.RepairNonBasicAssignment(v, LB, x)
	}
	return changed
}

// TightenUpper is the upper-bound analogue of TightenLower.
func (m *Manager) TightenUpper(v int, x float64) bool {
	changed := m.SetUpper(v, x)
	if changed && m.repairer != nil {
		m.repairer.RepairNonBasicAssignment(v, UB, x)
	}
	return changed
}

// StoreLocalBounds opens a new trail level; a subsequent RestoreLocalBounds
// rewinds every bound change recorded since.
func (m *Manager) StoreLocalBounds() { m.trail.Push() }

// RestoreLocalBounds rewinds to the matching StoreLocalBounds.
func (m *Manager) RestoreLocalBounds() { m.trail.Pop() }

// GetTightenings drains and clears dirty bits, returning every tightening
// produced since the last drain.
func (m *Manager) GetTightenings(out *[]Tightening) {
	for v := range m.lb {
		if m.tightenedLB[v] {
			*out = append(*out, Tightening{Variable: v, Value: m.lb[v], Kind: LB})
			m.tightenedLB[v] = false
		}
		if m.tightenedUB[v] {
			*out = append(*out, Tightening{Variable: v, Value: m.ub[v], Kind: UB})
			m.tightenedUB[v] = false
		}
	}
}

// RecordExplanation stores the sparse row combination that derives the
// given bound, when proof mode is enabled. No-op otherwise.
func (m *Manager) RecordExplanation(v int, kind Kind, combination map[int]float64) {
	if !m.proofMode {
		return
	}
	if kind == LB {
		m.explLB[v] = combination
	} else {
		m.explUB[v] = combination
	}
}

// Explanation returns the recorded combination for a bound, or nil if
// proof mode is off or none was recorded (e.g. invalidated by a
// refactorization per open question, resolved as "invalidate
// and regenerate lazily").
func (m *Manager) Explanation(v int, kind Kind) map[int]float64 {
	if !m.proofMode {
		return nil
	}
	if kind == LB {
		return m.explLB[v]
	}
	return m.explUB[v]
}

// InvalidateExplanations discards every recorded explanation, called after
// a full refactorization per resolved open question.
func (m *Manager) InvalidateExplanations() {
	if !m.proofMode {
		return
	}
	for i := range m.explLB {
		m.explLB[i] = nil
		m.explUB[i] = nil
	}
}
