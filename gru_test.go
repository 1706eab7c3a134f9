package main

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestGRUFrozenRowKeepsState(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewGRU("test", 3, 2, rng)

	x := NewParamGlorot("x", 2, 3, rng).Value
	hPrev := NewParamGlorot("h", 2, 2, rng).Value

	h, _ := g.Step(x, hPrev, []bool{true, false})
	if mat.Equal(h.RowView(0), hPrev.RowView(0)) {
		t.Error("active row should change")
	}
	if !mat.Equal(h.RowView(1), hPrev.RowView(1)) {
		t.Errorf("frozen row should keep its state: got %v, want %v", h.RawRowView(1), hPrev.RawRowView(1))
	}
}

func TestGRUGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := NewGRU("test", 3, 2, rng)

	x := NewParamGlorot("x", 2, 3, rng)
	hPrev := NewParamGlorot("h", 2, 2, rng)
	weights := NewParamGlorot("weights", 2, 2, rng).Value
	active := []bool{true, false}

	// loss = Σ h ⊙ weights, so dL/dh = weights.
	loss := func() float64 {
		h, _ := g.Step(x.Value, hPrev.Value, active)
		var prod mat.Dense
		prod.MulElem(h, weights)
		return mat.Sum(&prod)
	}

	_, step := g.Step(x.Value, hPrev.Value, active)
	dx, dhPrev := g.Backward(step, weights)
	x.Grad.Copy(dx)
	hPrev.Grad.Copy(dhPrev)

	params := append(g.Params(), x, hPrev)
	assertGradients(t, params, loss)
}
