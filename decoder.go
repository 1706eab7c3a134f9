package main

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// DECODER WITH SCHEDULED SAMPLING
// ===========================================================================
//
// A decoder rebuilds a neighbouring sentence from the thought vector, which
// is its initial GRU state. Its input sequence is the label shifted right:
//
//   label   [ y0  y1  y2  EOS  0 ]
//   input   [ SOS y0  y1  y2  EOS ]      (teacher forcing)
//
// Scheduled sampling replaces, independently per row and per step, the
// teacher token with a token drawn from the decoder's own previous-step
// distribution. The probability is fixed for the run.
//
// The loop always runs max_length steps. A row is finished once the step
// index reaches its label's true length: its state is frozen and its logits
// are zero, and the loss masks those steps anyway.
//
// ===========================================================================

// ScheduledSampler decides, step by step, whether a decoder feeds itself its
// own prediction. A nil sampler, or one with Prob 0, is pure teacher forcing.
type ScheduledSampler struct {
	Rand *rand.Rand
	Prob float64
}

// NewScheduledSampler creates a sampler drawing from rng.
func NewScheduledSampler(rng *rand.Rand, prob float64) *ScheduledSampler {
	return &ScheduledSampler{Rand: rng, Prob: prob}
}

// UseSample reports whether the next input should be sampled.
func (s *ScheduledSampler) UseSample() bool {
	if s == nil || s.Prob <= 0 {
		return false
	}
	return s.Rand.Float64() < s.Prob
}

// NextInput returns the id that feeds the next step: the teacher token, or
// a token drawn from softmax(logits) when the sampler fires. scratch must be
// as long as logits.
func (s *ScheduledSampler) NextInput(teacher int, logits, scratch []float64) int {
	if !s.UseSample() {
		return teacher
	}
	softmaxRow(scratch, logits)
	return sampleFromDistribution(s.Rand, scratch)
}

// sampleFromDistribution draws an index from a categorical distribution.
func sampleFromDistribution(rng *rand.Rand, probs []float64) int {
	u := rng.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(probs) - 1
}

// Projection maps decoder states to vocabulary logits.
type Projection struct {
	W *Param // (hidden x vocab)
	B *Param // (1 x vocab)
}

// NewProjection creates an output layer.
func NewProjection(name string, hiddenSize, vocabSize int, rng *rand.Rand) *Projection {
	return &Projection{
		W: NewParamGlorot(name+"/W", hiddenSize, vocabSize, rng),
		B: NewParam(name+"/b", 1, vocabSize),
	}
}

// Params returns the projection parameters.
func (p *Projection) Params() []*Param {
	return []*Param{p.W, p.B}
}

// Decoder is one GRU plus an output projection. The forward and backward
// decoders of a model may point at the same GRU and/or projection.
type Decoder struct {
	Name string
	Cell *GRU
	Proj *Projection
}

// Params returns the decoder parameters.
func (d *Decoder) Params() []*Param {
	return append(d.Cell.Params(), d.Proj.Params()...)
}

// DecoderTrace keeps the per-step caches of a forward pass.
type DecoderTrace struct {
	inputs [][]int // inputs[t][row]: id fed at step t
	steps  []*gruStep
	states []*mat.Dense // state after step t
	active [][]bool
}

// Inputs returns the ids fed at every step.
func (tr *DecoderTrace) Inputs() [][]int {
	return tr.inputs
}

// Forward unrolls the decoder from thought over labels. It returns the
// logits of every step, each (batch x vocab).
func (d *Decoder) Forward(embedding, thought *mat.Dense, labels Batch, sampler *ScheduledSampler) ([]*mat.Dense, *DecoderTrace) {
	target := columns(labels)
	lengths := labels.Lengths()
	steps := len(target)
	rows := len(labels.Rows)
	_, vocab := d.Proj.W.Dims()

	tr := &DecoderTrace{
		inputs: make([][]int, steps),
		steps:  make([]*gruStep, steps),
		states: make([]*mat.Dense, steps),
		active: make([][]bool, steps),
	}
	logits := make([]*mat.Dense, steps)

	next := make([]int, rows)
	for i := range next {
		next[i] = SOSID
	}

	scratch := make([]float64, vocab)
	h := thought
	for t := 0; t < steps; t++ {
		tr.inputs[t] = next
		tr.active[t] = activeAt(t, lengths)

		x := lookup(embedding, next)
		h, tr.steps[t] = d.Cell.Step(x, h, tr.active[t])
		tr.states[t] = h

		out := affine(h, d.Proj.W.Value, d.Proj.B.Value)
		next = make([]int, rows)
		for row, on := range tr.active[t] {
			l := out.RawRowView(row)
			if !on {
				for j := range l {
					l[j] = 0
				}
				continue
			}
			next[row] = sampler.NextInput(target[t][row], l, scratch)
		}
		logits[t] = out
	}
	return logits, tr
}

// Backward propagates the logit gradients through the unroll. It
// accumulates parameter gradients and returns the gradient w.r.t. the
// thought vector and, per step, w.r.t. the embedded input.
func (d *Decoder) Backward(tr *DecoderTrace, dLogits []*mat.Dense) (dThought *mat.Dense, dx []*mat.Dense) {
	steps := len(tr.steps)
	rows := len(tr.active[0])
	dx = make([]*mat.Dense, steps)

	dh := mat.NewDense(rows, d.Cell.HiddenSize, nil)
	for t := steps - 1; t >= 0; t-- {
		accumulateAffine(tr.states[t], d.Proj.W, d.Proj.B, dLogits[t])
		dh.Add(dh, mulT(dLogits[t], d.Proj.W.Value))
		dx[t], dh = d.Cell.Backward(tr.steps[t], dh)
	}
	return dh, dx
}
