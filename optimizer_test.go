package main

import (
	"math"
	"testing"
)

func gradParams(grads ...float64) []*Param {
	params := make([]*Param, len(grads))
	for i, g := range grads {
		p := NewParam("p", 1, 1)
		p.Grad.Set(0, 0, g)
		params[i] = p
	}
	return params
}

func TestClipByGlobalNormAbove(t *testing.T) {
	params := gradParams(3, 4)

	norm := ClipByGlobalNorm(params, 1)
	if norm != 5 {
		t.Errorf("expected pre-clip norm 5, got %f", norm)
	}
	if got := GlobalNorm(params); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected clipped norm 1, got %f", got)
	}
	if g := params[0].Grad.At(0, 0); math.Abs(g-0.6) > 1e-12 {
		t.Errorf("direction not preserved: expected 0.6, got %f", g)
	}
}

func TestClipByGlobalNormBelow(t *testing.T) {
	params := gradParams(3, 4)

	ClipByGlobalNorm(params, 10)
	if params[0].Grad.At(0, 0) != 3 || params[1].Grad.At(0, 0) != 4 {
		t.Errorf("gradients within bounds must be unchanged, got %f %f",
			params[0].Grad.At(0, 0), params[1].Grad.At(0, 0))
	}
}

func TestAdamFirstStep(t *testing.T) {
	p := NewParamConst("p", 1, 1, 1.0)
	p.Grad.Set(0, 0, 2.0)

	opt := NewDefaultAdam([]*Param{p})
	opt.Step([]*Param{p}, 0.1)

	// Bias-corrected first step moves by lr * sign(grad).
	if got := p.Value.At(0, 0); math.Abs(got-0.9) > 1e-6 {
		t.Errorf("expected 0.9 after one step, got %f", got)
	}
}

func TestAdamMinimizesQuadratic(t *testing.T) {
	p := NewParamConst("p", 1, 2, 5.0)
	opt := NewDefaultAdam([]*Param{p})

	for i := 0; i < 500; i++ {
		// d/dp of p² is 2p.
		p.ZeroGrad()
		for j, v := range raw(p.Value) {
			raw(p.Grad)[j] = 2 * v
		}
		opt.Step([]*Param{p}, 0.1)
	}

	for j, v := range raw(p.Value) {
		if math.Abs(v) > 0.5 {
			t.Errorf("p[%d] = %f, expected near 0", j, v)
		}
	}
}

func TestAdamUnknownParam(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an unregistered parameter")
		}
	}()
	opt := NewDefaultAdam(nil)
	opt.Step([]*Param{NewParam("stray", 1, 1)}, 0.1)
}
