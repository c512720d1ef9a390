package trail

import "testing"

func TestPushRecordPop(t *testing.T) {
	tr := New()
	x := 1

	tr.Push()
	old := x
	x = 2
	tr.Record(func() { x = old })

	old2 := x
	x = 3
	tr.Record(func() { x = old2 })

	if x != 3 {
		t.Fatalf("x = %d, want 3", x)
	}

	tr.Pop()
	if x != 1 {
		t.Fatalf("after pop x = %d, want 1", x)
	}
	if tr.Depth() != 0 {
		t.Fatalf("depth = %d, want 0", tr.Depth())
	}
}

func TestNestedLevels(t *testing.T) {
	tr := New()
	x := 0

	tr.Push()
	x = 1
	tr.Record(func() { x = 0 })

	tr.Push()
	x = 2
	tr.Record(func() { x = 1 })

	tr.Pop()
	if x != 1 {
		t.Fatalf("after inner pop x = %d, want 1", x)
	}

	tr.Pop()
	if x != 0 {
		t.Fatalf("after outer pop x = %d, want 0", x)
	}
}

func TestDiscardTopLevel(t *testing.T) {
	tr := New()
	x := 0

	tr.Push()
	x = 5
	tr.Record(func() { x = 0 })

	tr.Push()
	x = 9
	tr.Record(func() { x = 5 })

	tr.DiscardTopLevel()
	tr.Pop()

	if x != 0 {
		t.Fatalf("x = %d, want 0 (inner undo folded into outer level)", x)
	}
}

func TestPopEmpty(t *testing.T) {
	tr := New()
	tr.Pop() // must not panic
	if tr.Depth() != 0 {
		t.Fatalf("depth = %d, want 0", tr.Depth())
	}
}
