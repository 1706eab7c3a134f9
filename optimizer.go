package main

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Optimizer updates parameters from their gradients.
type Optimizer interface {
	// Step performs a single optimization step.
	Step(params []*Param, lr float64)
}

// AdamOptimizer implements Adam optimization algorithm.
//
// Adam combines:
//   - Momentum (moving average of gradients)
//   - RMSProp (moving average of squared gradients)
//   - Bias correction (accounts for initialization at zero)
//
// Update rule:
//   m_t = beta1 * m_{t-1} + (1 - beta1) * grad
//   v_t = beta2 * v_{t-1} + (1 - beta2) * grad²
//   m_hat = m_t / (1 - beta1^t)  // Bias correction
//   v_hat = v_t / (1 - beta2^t)
//   param -= lr * m_hat / (sqrt(v_hat) + epsilon)
//
// Moments are keyed by parameter, so Step may be called with any subset of
// the parameters the optimizer was created for.
type AdamOptimizer struct {
	beta1   float64
	beta2   float64
	epsilon float64

	// State (one per parameter)
	m map[*Param]*mat.Dense // First moment (momentum)
	v map[*Param]*mat.Dense // Second moment (variance)
	t int                   // Time step (for bias correction)
}

// NewAdamOptimizer creates an Adam optimizer.
func NewAdamOptimizer(params []*Param, beta1, beta2, epsilon float64) *AdamOptimizer {
	m := make(map[*Param]*mat.Dense, len(params))
	v := make(map[*Param]*mat.Dense, len(params))
	for _, p := range params {
		r, c := p.Dims()
		m[p] = mat.NewDense(r, c, nil)
		v[p] = mat.NewDense(r, c, nil)
	}
	return &AdamOptimizer{
		beta1:   beta1,
		beta2:   beta2,
		epsilon: epsilon,
		m:       m,
		v:       v,
	}
}

// NewDefaultAdam creates an Adam optimizer with beta1 0.9, beta2 0.999 and
// epsilon 1e-8.
func NewDefaultAdam(params []*Param) *AdamOptimizer {
	return NewAdamOptimizer(params, 0.9, 0.999, 1e-8)
}

// Step performs Adam update.
// Panics if a parameter was not registered with the optimizer.
func (opt *AdamOptimizer) Step(params []*Param, lr float64) {
	opt.t++

	// Bias correction factors
	bias1 := 1.0 - math.Pow(opt.beta1, float64(opt.t))
	bias2 := 1.0 - math.Pow(opt.beta2, float64(opt.t))

	for _, p := range params {
		mm, ok := opt.m[p]
		if !ok {
			panic("adam: unknown parameter " + p.Name)
		}
		md, vd := raw(mm), raw(opt.v[p])
		data, grad := raw(p.Value), raw(p.Grad)
		for j, g := range grad {
			md[j] = opt.beta1*md[j] + (1.0-opt.beta1)*g
			vd[j] = opt.beta2*vd[j] + (1.0-opt.beta2)*g*g

			mHat := md[j] / bias1
			vHat := vd[j] / bias2

			data[j] -= lr * mHat / (math.Sqrt(vHat) + opt.epsilon)
		}
	}
}

// GlobalNorm returns the L2 norm of all gradients taken together.
func GlobalNorm(params []*Param) float64 {
	sum := 0.0
	for _, p := range params {
		g := raw(p.Grad)
		sum += floats.Dot(g, g)
	}
	return math.Sqrt(sum)
}

// ClipByGlobalNorm rescales all gradients by maxNorm / max(norm, maxNorm)
// and returns the norm before clipping. The rescale is applied every call;
// it is the identity when the norm is already within bounds.
func ClipByGlobalNorm(params []*Param, maxNorm float64) float64 {
	norm := GlobalNorm(params)
	scale := maxNorm / math.Max(norm, maxNorm)
	for _, p := range params {
		floats.Scale(scale, raw(p.Grad))
	}
	return norm
}
