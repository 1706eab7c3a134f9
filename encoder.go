package main

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// ENCODER
// ===========================================================================
//
// Two GRUs read the embedded sentence, one left to right and one right to
// left. Each row only updates while the scan position is inside its true
// length, so padding never reaches either final state: the forward GRU stops
// after the last word, and the backward GRU effectively starts on it.
//
//   thought = [ h_fw(final) | h_bw(final) ]      (batch x 2*hidden)
//
// ===========================================================================

// Encoder maps a batch of sentences to thought vectors.
type Encoder struct {
	Fw, Bw *GRU
}

// NewEncoder creates a bidirectional encoder over embedDim inputs.
func NewEncoder(embedDim, hiddenSize int, rng *rand.Rand) *Encoder {
	return &Encoder{
		Fw: NewGRU("encoder/fw", embedDim, hiddenSize, rng),
		Bw: NewGRU("encoder/bw", embedDim, hiddenSize, rng),
	}
}

// Params returns the encoder parameters.
func (e *Encoder) Params() []*Param {
	return append(e.Fw.Params(), e.Bw.Params()...)
}

// ThoughtSize is the width of a thought vector.
func (e *Encoder) ThoughtSize() int {
	return e.Fw.HiddenSize + e.Bw.HiddenSize
}

// EncoderTrace keeps the per-step caches of a forward pass.
type EncoderTrace struct {
	ids    [][]int // ids[t][row]
	fw, bw []*gruStep
	// fwStates[t] / bwStates[t] are the states after reading position t.
	fwStates, bwStates []*mat.Dense
}

// Outputs returns the per-position hidden states [fw_t | bw_t], one
// (batch x 2*hidden) matrix per position.
func (tr *EncoderTrace) Outputs() []*mat.Dense {
	out := make([]*mat.Dense, len(tr.fwStates))
	for t := range out {
		out[t] = concatCols(tr.fwStates[t], tr.bwStates[t])
	}
	return out
}

// columns returns the token ids at every position, column-major.
func columns(b Batch) [][]int {
	if len(b.Rows) == 0 {
		return nil
	}
	steps := len(b.Rows[0])
	cols := make([][]int, steps)
	for t := range cols {
		cols[t] = make([]int, len(b.Rows))
		for row, s := range b.Rows {
			cols[t][row] = s[t]
		}
	}
	return cols
}

// activeAt reports, per row, whether position t is inside the row's length.
func activeAt(t int, lengths []int) []bool {
	active := make([]bool, len(lengths))
	for i, n := range lengths {
		active[i] = t < n
	}
	return active
}

// Forward encodes batch using the embedding table.
func (e *Encoder) Forward(embedding *mat.Dense, batch Batch) (*mat.Dense, *EncoderTrace) {
	ids := columns(batch)
	lengths := batch.Lengths()
	steps := len(ids)
	rows := len(batch.Rows)

	tr := &EncoderTrace{
		ids:      ids,
		fw:       make([]*gruStep, steps),
		bw:       make([]*gruStep, steps),
		fwStates: make([]*mat.Dense, steps),
		bwStates: make([]*mat.Dense, steps),
	}

	xs := make([]*mat.Dense, steps)
	for t := range ids {
		xs[t] = lookup(embedding, ids[t])
	}

	h := mat.NewDense(rows, e.Fw.HiddenSize, nil)
	for t := 0; t < steps; t++ {
		h, tr.fw[t] = e.Fw.Step(xs[t], h, activeAt(t, lengths))
		tr.fwStates[t] = h
	}
	hFw := h

	h = mat.NewDense(rows, e.Bw.HiddenSize, nil)
	for t := steps - 1; t >= 0; t-- {
		h, tr.bw[t] = e.Bw.Step(xs[t], h, activeAt(t, lengths))
		tr.bwStates[t] = h
	}
	hBw := h

	return concatCols(hFw, hBw), tr
}

// Backward propagates dThought through both directions. It accumulates the
// GRU gradients and returns the gradient w.r.t. the embedded input at every
// position (dx[t] is batch x embedDim).
func (e *Encoder) Backward(tr *EncoderTrace, dThought *mat.Dense) []*mat.Dense {
	steps := len(tr.ids)
	dx := make([]*mat.Dense, steps)

	dFw, dBw := splitCols(dThought, e.Fw.HiddenSize)

	dh := dFw
	for t := steps - 1; t >= 0; t-- {
		dx[t], dh = e.Fw.Backward(tr.fw[t], dh)
	}

	dh = dBw
	for t := 0; t < steps; t++ {
		var dxt *mat.Dense
		dxt, dh = e.Bw.Backward(tr.bw[t], dh)
		dx[t].Add(dx[t], dxt)
	}
	return dx
}

// Encode returns the thought vectors of a batch without keeping a trace.
func (e *Encoder) Encode(embedding *mat.Dense, batch Batch) *mat.Dense {
	thought, _ := e.Forward(embedding, batch)
	return thought
}
