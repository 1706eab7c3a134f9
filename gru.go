package main

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// GRU CELL
// ===========================================================================
//
// One step of a gated recurrent unit over a batch:
//
//   r  = σ(x Wr + h Ur + br)          reset gate
//   z  = σ(x Wz + h Uz + bz)          update gate
//   c  = tanh(x Wc + (r ⊙ h) Uc + bc) candidate
//   h' = z ⊙ h + (1 - z) ⊙ c
//
// Each row carries an activity flag. An inactive row keeps its previous
// state unchanged and receives no gradient through the cell, which is how
// sequences shorter than max_length stop contributing: the state reached at
// the true length is carried through to the end of the unroll.
//
// Gate biases start at 1.0 so the cell initially leans towards keeping its
// state; the candidate bias starts at 0.
//
// ===========================================================================

// GRU holds the weights of one recurrent cell.
type GRU struct {
	InputSize  int
	HiddenSize int

	Wr, Wz, Wc *Param // (input x hidden)
	Ur, Uz, Uc *Param // (hidden x hidden)
	Br, Bz, Bc *Param // (1 x hidden)
}

// NewGRU creates a cell whose parameters are prefixed with name.
func NewGRU(name string, inputSize, hiddenSize int, rng *rand.Rand) *GRU {
	return &GRU{
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		Wr:         NewParamGlorot(name+"/Wr", inputSize, hiddenSize, rng),
		Wz:         NewParamGlorot(name+"/Wz", inputSize, hiddenSize, rng),
		Wc:         NewParamGlorot(name+"/Wc", inputSize, hiddenSize, rng),
		Ur:         NewParamGlorot(name+"/Ur", hiddenSize, hiddenSize, rng),
		Uz:         NewParamGlorot(name+"/Uz", hiddenSize, hiddenSize, rng),
		Uc:         NewParamGlorot(name+"/Uc", hiddenSize, hiddenSize, rng),
		Br:         NewParamConst(name+"/br", 1, hiddenSize, 1.0),
		Bz:         NewParamConst(name+"/bz", 1, hiddenSize, 1.0),
		Bc:         NewParamConst(name+"/bc", 1, hiddenSize, 0.0),
	}
}

// Params returns the cell's parameters in a fixed order.
func (g *GRU) Params() []*Param {
	return []*Param{g.Wr, g.Wz, g.Wc, g.Ur, g.Uz, g.Uc, g.Br, g.Bz, g.Bc}
}

// gruStep caches what the backward pass needs from one forward step.
type gruStep struct {
	x, hPrev *mat.Dense
	r, z, c  *mat.Dense
	rh       *mat.Dense // r ⊙ hPrev
	active   []bool
}

// Step advances the cell by one step. x is (batch x input), hPrev is
// (batch x hidden); active[i] == false freezes row i.
func (g *GRU) Step(x, hPrev *mat.Dense, active []bool) (*mat.Dense, *gruStep) {
	r := affine(x, g.Wr.Value, g.Br.Value)
	r.Add(r, mulPlain(hPrev, g.Ur.Value))
	z := affine(x, g.Wz.Value, g.Bz.Value)
	z.Add(z, mulPlain(hPrev, g.Uz.Value))

	rd, zd := raw(r), raw(z)
	for i := range rd {
		rd[i] = sigmoid(rd[i])
		zd[i] = sigmoid(zd[i])
	}

	rh := mat.NewDense(len(active), g.HiddenSize, nil)
	rh.MulElem(r, hPrev)

	c := affine(x, g.Wc.Value, g.Bc.Value)
	c.Add(c, mulPlain(rh, g.Uc.Value))
	cd := raw(c)
	for i := range cd {
		cd[i] = math.Tanh(cd[i])
	}

	h := mat.NewDense(len(active), g.HiddenSize, nil)
	hd, hp := raw(h), raw(hPrev)
	for i := range hd {
		hd[i] = zd[i]*hp[i] + (1-zd[i])*cd[i]
	}
	for row, on := range active {
		if !on {
			copy(h.RawRowView(row), hPrev.RawRowView(row))
		}
	}

	return h, &gruStep{x: x, hPrev: hPrev, r: r, z: z, c: c, rh: rh, active: active}
}

// Backward propagates dh (the gradient w.r.t. the step's output state)
// through the step. It accumulates parameter gradients and returns the
// gradients w.r.t. the step input and the previous state.
func (g *GRU) Backward(s *gruStep, dh *mat.Dense) (dx, dhPrev *mat.Dense) {
	rows := len(s.active)
	H := g.HiddenSize

	dzPre := mat.NewDense(rows, H, nil)
	dcPre := mat.NewDense(rows, H, nil)
	dhPrev = mat.NewDense(rows, H, nil)

	for row, on := range s.active {
		dhr := dh.RawRowView(row)
		if !on {
			// Frozen rows pass their gradient straight through.
			copy(dhPrev.RawRowView(row), dhr)
			continue
		}
		hp := s.hPrev.RawRowView(row)
		z := s.z.RawRowView(row)
		c := s.c.RawRowView(row)
		dzr := dzPre.RawRowView(row)
		dcr := dcPre.RawRowView(row)
		dhp := dhPrev.RawRowView(row)
		for j := 0; j < H; j++ {
			dhp[j] = dhr[j] * z[j]
			dz := dhr[j] * (hp[j] - c[j])
			dc := dhr[j] * (1 - z[j])
			dzr[j] = dz * z[j] * (1 - z[j])
			dcr[j] = dc * (1 - c[j]*c[j])
		}
	}

	// Candidate branch.
	accumulateAffine(s.x, g.Wc, g.Bc, dcPre)
	accumulateAffine(s.rh, g.Uc, nil, dcPre)
	drh := mulT(dcPre, g.Uc.Value)

	drPre := mat.NewDense(rows, H, nil)
	for row, on := range s.active {
		if !on {
			continue
		}
		hp := s.hPrev.RawRowView(row)
		r := s.r.RawRowView(row)
		d := drh.RawRowView(row)
		drr := drPre.RawRowView(row)
		dhp := dhPrev.RawRowView(row)
		for j := 0; j < H; j++ {
			dhp[j] += d[j] * r[j]
			drr[j] = d[j] * hp[j] * r[j] * (1 - r[j])
		}
	}

	// Gates.
	accumulateAffine(s.x, g.Wz, g.Bz, dzPre)
	accumulateAffine(s.hPrev, g.Uz, nil, dzPre)
	accumulateAffine(s.x, g.Wr, g.Br, drPre)
	accumulateAffine(s.hPrev, g.Ur, nil, drPre)

	dx = mulT(dcPre, g.Wc.Value)
	dx.Add(dx, mulT(dzPre, g.Wz.Value))
	dx.Add(dx, mulT(drPre, g.Wr.Value))

	dhPrev.Add(dhPrev, mulT(dzPre, g.Uz.Value))
	dhPrev.Add(dhPrev, mulT(drPre, g.Ur.Value))

	return dx, dhPrev
}

// mulPlain returns a*b in a fresh contiguous matrix.
func mulPlain(a, b *mat.Dense) *mat.Dense {
	r, _ := a.Dims()
	_, c := b.Dims()
	out := mat.NewDense(r, c, nil)
	out.Mul(a, b)
	return out
}
