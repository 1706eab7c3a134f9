package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestProjectPCALine(t *testing.T) {
	// Points on the line t*(1, 2, 0): everything lies on the first component.
	x := mat.NewDense(4, 3, []float64{
		1, 2, 0,
		2, 4, 0,
		3, 6, 0,
		-1, -2, 0,
	})

	points, err := ProjectPCA(x, 2)
	if err != nil {
		t.Fatalf("ProjectPCA: %v", err)
	}
	if r, c := points.Dims(); r != 4 || c != 2 {
		t.Fatalf("expected (4,2), got (%d,%d)", r, c)
	}
	for i := 0; i < 4; i++ {
		if v := points.At(i, 1); math.Abs(v) > 1e-9 {
			t.Errorf("row %d: second component should vanish, got %g", i, v)
		}
	}
	// Distances along the line are preserved: |p1 - p0| = sqrt(5).
	if d := math.Abs(points.At(1, 0) - points.At(0, 0)); math.Abs(d-math.Sqrt(5)) > 1e-9 {
		t.Errorf("expected spacing sqrt(5), got %g", d)
	}
}

func TestProjectPCATooFew(t *testing.T) {
	if _, err := ProjectPCA(nil, 2); !errors.Is(err, ErrTooFewVectors) {
		t.Errorf("expected ErrTooFewVectors, got %v", err)
	}
	if _, err := ProjectPCA(mat.NewDense(1, 3, []float64{1, 2, 3}), 2); !errors.Is(err, ErrTooFewVectors) {
		t.Errorf("expected ErrTooFewVectors, got %v", err)
	}
	if _, err := ProjectPCA(mat.NewDense(3, 2, nil), 3); err == nil {
		t.Error("expected an error when asking for more components than dimensions")
	}
}

func TestThoughtCollector(t *testing.T) {
	var c ThoughtCollector
	if c.Matrix() != nil {
		t.Error("empty collector should have no matrix")
	}
	v := []float64{1, 2}
	c.Add(v)
	v[0] = 99
	c.Add([]float64{3, 4})

	m := c.Matrix()
	if c.Len() != 2 || m.At(0, 0) != 1 || m.At(1, 1) != 4 {
		t.Errorf("unexpected collected matrix %v", mat.Formatted(m))
	}
}

func TestSaveThoughtPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thoughts.png")
	points := mat.NewDense(3, 2, []float64{0, 0, 1, 1, -1, 0.5})
	if err := SaveThoughtPlot(points, path); err != nil {
		t.Fatalf("SaveThoughtPlot: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
	if err := SaveThoughtPlot(mat.NewDense(2, 3, nil), path); err == nil {
		t.Error("expected an error for 3 columns")
	}
}
