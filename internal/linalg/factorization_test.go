package linalg

import "testing"

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func testBasisColumns() [][]float64 {
	// B = [[2,1],[1,3]] as columns.
	return [][]float64{{2, 1}, {1, 3}}
}

func TestDenseLUForwardBackward(t *testing.T) {
	f, err := NewDenseLU(testBasisColumns())
	if err != nil {
		t.Fatalf("NewDenseLU: %v", err)
	}

	x, err := f.ForwardTransformation([]float64{5, 10})
	if err != nil {
		t.Fatalf("ForwardTransformation: %v", err)
	}
	// B x = y => 2x0+x1=5, x0+3x1=10 => x0=1, x1=3
	if !approxEqual(x[0], 1, 1e-9) || !approxEqual(x[1], 3, 1e-9) {
		t.Fatalf("x = %v, want [1,3]", x)
	}

	y, err := f.BackwardTransformation([]float64{1, 1})
	if err != nil {
		t.Fatalf("BackwardTransformation: %v", err)
	}
	// x^T B = y^T => B^T x = y => [[2,1],[1,3]] x = [1,1] => 2x0+x1=1, x0+3x1=1
	if !approxEqual(y[0], 0.4, 1e-9) || !approxEqual(y[1], 0.2, 1e-9) {
		t.Fatalf("y = %v, want [0.4,0.2]", y)
	}
}

func TestDenseLUSingular(t *testing.T) {
	_, err := NewDenseLU([][]float64{{1, 2}, {2, 4}})
	if err == nil {
		t.Fatal("expected malformed basis error for singular matrix")
	}
	if _, ok := err.(*MalformedBasisError); !ok {
		t.Fatalf("expected *MalformedBasisError, got %T", err)
	}
}

func TestSparseLUMatchesDense(t *testing.T) {
	cols := testBasisColumns()
	dense, _ := NewDenseLU(cols)
	sparse, err := NewSparseLU(cols)
	if err != nil {
		t.Fatalf("NewSparseLU: %v", err)
	}
	y := []float64{5, 10}
	xd, _ := dense.ForwardTransformation(y)
	xs, _ := sparse.ForwardTransformation(y)
	for i := range xd {
		if !approxEqual(xd[i], xs[i], 1e-9) {
			t.Fatalf("sparse/dense mismatch at %d: %v vs %v", i, xs, xd)
		}
	}
}

func TestForrestTomlinEtaUpdateThenTransform(t *testing.T) {
	ft, err := NewForrestTomlin(testBasisColumns())
	if err != nil {
		t.Fatalf("NewForrestTomlin: %v", err)
	}
	if ft.EtaCount() != 0 {
		t.Fatalf("fresh factorization should have 0 etas, got %d", ft.EtaCount())
	}

	// Pivot on row 0 with the unit change column e0: the resulting eta is
	// the identity, so B' = B and the transforms still succeed.
	changeColumn := []float64{1, 0}
	if err := ft.UpdateToAdjacentBasis(0, changeColumn, nil); err != nil {
		t.Fatalf("UpdateToAdjacentBasis: %v", err)
	}
	if ft.EtaCount() != 1 {
		t.Fatalf("expected 1 eta, got %d", ft.EtaCount())
	}

	x, err := ft.ForwardTransformation([]float64{5, 10})
	if err != nil {
		t.Fatalf("ForwardTransformation after update: %v", err)
	}
	if len(x) != 2 {
		t.Fatalf("unexpected result length %d", len(x))
	}
}

func TestSelectIndependentColumns(t *testing.T) {
	columns := [][]float64{
		{1, 0},
		{2, 0}, // dependent on column 0
		{0, 1},
	}
	selected, err := SelectIndependentColumns(columns, 2)
	if err != nil {
		t.Fatalf("SelectIndependentColumns: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("selected = %v, want 2 columns", selected)
	}
	if selected[0] != 0 || selected[1] != 2 {
		t.Fatalf("selected = %v, want [0 2]", selected)
	}
}

func TestSelectIndependentColumnsRankDeficient(t *testing.T) {
	columns := [][]float64{{1, 0}, {2, 0}}
	_, err := SelectIndependentColumns(columns, 2)
	if err == nil {
		t.Fatal("expected rank-deficiency error")
	}
}
