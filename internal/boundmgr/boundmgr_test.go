package boundmgr

import "testing"

func TestMonotoneTightening(t *testing.T) {
	m := New(2)
	if !m.SetLower(0, 1) {
		t.Fatal("expected first lower-bound set to count as improvement")
	}
	if m.SetLower(0, 0.5) {
		t.Fatal("looser lower bound must not be applied")
	}
	if !m.SetLower(0, 2) {
		t.Fatal("strictly tighter lower bound must be applied")
	}
	if m.LB(0) != 2 {
		t.Fatalf("lb = %v, want 2", m.LB(0))
	}
}

func TestInconsistentBoundDetected(t *testing.T) {
	m := New(1)
	m.SetUpper(0, 1)
	m.SetLower(0, 2)
	if !m.Inconsistent() {
		t.Fatal("expected inconsistent state after lb > ub")
	}
	if m.FirstConflict() == nil {
		t.Fatal("expected a recorded first conflict")
	}
}

func TestStoreRestoreLocalBounds(t *testing.T) {
	m := New(1)
	m.SetLower(0, 1)
	m.StoreLocalBounds()
	m.SetLower(0, 5)
	if m.LB(0) != 5 {
		t.Fatalf("lb = %v, want 5", m.LB(0))
	}
	m.RestoreLocalBounds()
	if m.LB(0) != 1 {
		t.Fatalf("after restore lb = %v, want 1", m.LB(0))
	}
}

func TestNestedStoreRestore(t *testing.T) {
	m := New(1)
	m.SetLower(0, 0)
	m.StoreLocalBounds()
	m.SetLower(0, 1)
	m.StoreLocalBounds()
	m.SetLower(0, 2)
	m.RestoreLocalBounds()
	if m.LB(0) != 1 {
		t.Fatalf("after inner restore lb = %v, want 1", m.LB(0))
	}
	m.RestoreLocalBounds()
	if m.LB(0) != 0 {
		t.Fatalf("after outer restore lb = %v, want 0", m.LB(0))
	}
}

func TestGetTighteningsDrainsDirtyBits(t *testing.T) {
	m := New(2)
	m.SetLower(0, 1)
	m.SetUpper(1, 5)

	var out []Tightening
	m.GetTightenings(&out)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}

	out = nil
	m.GetTightenings(&out)
	if len(out) != 0 {
		t.Fatalf("second drain should be empty, got %d", len(out))
	}
}

type fakeRepairer struct {
	calls int
}

func (f *fakeRepairer) RepairNonBasicAssignment(variable int, kind Kind, newValue float64) {
	f.calls++
}

func TestTightenLowerInvokesRepairer(t *testing.T) {
	m := New(1)
	r := &fakeRepairer{}
	m.SetRepairer(r)
	m.TightenLower(0, 3)
	if r.calls != 1 {
		t.Fatalf("repairer calls = %d, want 1", r.calls)
	}
	m.TightenLower(0, 1) // not an improvement
	if r.calls != 1 {
		t.Fatalf("repairer should not be called on non-improving tighten, calls = %d", r.calls)
	}
}

func TestProofModeExplanations(t *testing.T) {
	m := New(1)
	m.EnableProofMode()
	m.SetLower(0, 2)
	m.RecordExplanation(0, LB, map[int]float64{3: 1.0})
	if got := m.Explanation(0, LB); got == nil || got[3] != 1.0 {
		t.Fatalf("explanation = %v, want {3:1.0}", got)
	}
	m.InvalidateExplanations()
	if m.Explanation(0, LB) != nil {
		t.Fatal("expected explanation cleared after invalidation")
	}
}
