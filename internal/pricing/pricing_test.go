package pricing

import "testing"

func TestEligibleEnteringDantzig(t *testing.T) {
	m := New(Dantzig, 3)
	m.SetReducedCosts([]float64{-5, 0.2, 3})
	status := []BasicStatus{AtLower, AtLower, AtUpper}
	col, ok := m.SelectEntering(status)
	if !ok || col != 0 {
		t.Fatalf("expected column 0 (largest |c|), got %d ok=%v", col, ok)
	}
}

func TestEligibleEnteringRespectsBoundStatus(t *testing.T) {
	m := New(Dantzig, 2)
	// column 0 is at its upper bound with a negative reduced cost: not
	// improving (it would need to increase, already at max).
	m.SetReducedCosts([]float64{-5, -0.5})
	status := []BasicStatus{AtUpper, AtLower}
	candidates := m.EligibleEntering(status)
	if len(candidates) != 1 || candidates[0].Column != 1 {
		t.Fatalf("expected only column 1 eligible, got %+v", candidates)
	}
}

func TestSteepestEdgeScoring(t *testing.T) {
	m := New(SteepestEdge, 2)
	m.SetReducedCosts([]float64{-3, -3})
	m.UpdateGamma(0, 9)
	m.UpdateGamma(1, 1)
	status := []BasicStatus{AtLower, AtLower}
	col, ok := m.SelectEntering(status)
	if !ok || col != 1 {
		t.Fatalf("expected column 1 to win (lower gamma), got %d", col)
	}
}

func TestNoCandidatesBelowTolerance(t *testing.T) {
	m := New(Dantzig, 2)
	m.SetReducedCosts([]float64{1e-9, -1e-9})
	status := []BasicStatus{AtLower, AtLower}
	if _, ok := m.SelectEntering(status); ok {
		t.Fatalf("expected no eligible candidates below EntryTolerance")
	}
}

func TestPSEResetThresholds(t *testing.T) {
	m := New(ProjectedSteepestEdge, 1)
	for i := 0; i < PSEIterationsBeforeReset; i++ {
		m.NotePivot()
	}
	if !m.ShouldResetReference() {
		t.Fatalf("expected reset after PSEIterationsBeforeReset pivots")
	}
	m.ResetReference()
	if m.ShouldResetReference() {
		t.Fatalf("expected reset to clear the counter")
	}
}

func TestNeedsFullRecompute(t *testing.T) {
	m := New(Dantzig, 1)
	m.NoteRecomputeError(1e-11)
	if m.NeedsFullRecompute() {
		t.Fatalf("small error should not force recompute")
	}
	m.NoteRecomputeError(1e-9)
	if !m.NeedsFullRecompute() {
		t.Fatalf("error above threshold should force recompute")
	}
}
