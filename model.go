package main

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// SKIP-THOUGHT MODEL
// ===========================================================================
//
//                    ┌──────────── forward decoder ──► next sentence logits
//   sentence ─► encoder ─► thought
//                    └──────────── backward decoder ─► previous sentence logits
//
// The embedding matrix is shared by the encoder input and both decoders'
// inputs. The decoders run on 2*hidden units so the thought vector is their
// initial state as is. Which decoder weights are shared is a configuration
// choice (WeightSharing).
//
// ===========================================================================

// ModelConfig fixes the shapes of a model.
type ModelConfig struct {
	VocabSize       int
	EmbedDim        int
	HiddenSize      int
	MaxLength       int
	Sharing         WeightSharing
	TrainEmbeddings bool
}

// ModelConfigFrom derives the model shapes from a run config and the width
// of the loaded embeddings.
func ModelConfigFrom(cfg Config, embedDim int) ModelConfig {
	return ModelConfig{
		VocabSize:       cfg.VocabSize,
		EmbedDim:        embedDim,
		HiddenSize:      cfg.HiddenSize,
		MaxLength:       cfg.MaxLength,
		Sharing:         cfg.Sharing,
		TrainEmbeddings: cfg.TrainEmbeddings,
	}
}

// Model holds every parameter of the skip-thought network.
type Model struct {
	config    ModelConfig
	Embedding *Param
	Encoder   *Encoder
	Forward   *Decoder // reconstructs the next sentence
	Backward  *Decoder // reconstructs the previous sentence
}

// NewModel creates a freshly initialised model around an embedding matrix
// of shape (VocabSize x EmbedDim). The matrix is copied.
func NewModel(cfg ModelConfig, embedding *mat.Dense, rng *rand.Rand) *Model {
	r, c := embedding.Dims()
	if r != cfg.VocabSize || c != cfg.EmbedDim {
		panic(fmt.Sprintf("model: embedding is (%d,%d), want (%d,%d)", r, c, cfg.VocabSize, cfg.EmbedDim))
	}

	enc := NewEncoder(cfg.EmbedDim, cfg.HiddenSize, rng)
	thought := enc.ThoughtSize()

	fwCell := NewGRU("decoder_fw/gru", cfg.EmbedDim, thought, rng)
	fwProj := NewProjection("decoder_fw/output", thought, cfg.VocabSize, rng)

	bwCell, bwProj := fwCell, fwProj
	switch cfg.Sharing {
	case ShareNone:
		bwCell = NewGRU("decoder_bw/gru", cfg.EmbedDim, thought, rng)
		bwProj = NewProjection("decoder_bw/output", thought, cfg.VocabSize, rng)
	case ShareProjection:
		bwCell = NewGRU("decoder_bw/gru", cfg.EmbedDim, thought, rng)
	case ShareFull:
	default:
		panic(fmt.Sprintf("model: unknown weight sharing %q", cfg.Sharing))
	}

	return &Model{
		config:    cfg,
		Embedding: NewParamFrom("embedding", embedding, cfg.TrainEmbeddings),
		Encoder:   enc,
		Forward:   &Decoder{Name: "forward", Cell: fwCell, Proj: fwProj},
		Backward:  &Decoder{Name: "backward", Cell: bwCell, Proj: bwProj},
	}
}

// Config returns the model shapes.
func (m *Model) Config() ModelConfig {
	return m.config
}

// Params returns every distinct parameter, trainable or not, in a stable
// order. Shared parameters appear once.
func (m *Model) Params() []*Param {
	all := []*Param{m.Embedding}
	all = append(all, m.Encoder.Params()...)
	all = append(all, m.Forward.Params()...)
	all = append(all, m.Backward.Params()...)

	seen := make(map[*Param]bool, len(all))
	out := all[:0]
	for _, p := range all {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// TrainableParams returns the parameters the optimizer updates.
func (m *Model) TrainableParams() []*Param {
	var out []*Param
	for _, p := range m.Params() {
		if p.Trainable {
			out = append(out, p)
		}
	}
	return out
}

// ZeroGrad clears every gradient buffer.
func (m *Model) ZeroGrad() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

// Encode returns the (batch x 2*hidden) thought vectors of a batch. It
// reads parameters only.
func (m *Model) Encode(batch Batch) *mat.Dense {
	return m.Encoder.Encode(m.Embedding.Value, batch)
}

// Losses is the outcome of one forward/backward pass.
type Losses struct {
	Forward  float64
	Backward float64
}

// Total is the training objective.
func (l Losses) Total() float64 {
	return l.Forward + l.Backward
}

// ForwardBackward runs the skip-thought objective on one aligned triple of
// batches and accumulates the gradients of the total loss into the
// parameters. Gradients are not cleared first.
func (m *Model) ForwardBackward(in, fwLabels, bwLabels Batch, sampler *ScheduledSampler) Losses {
	emb := m.Embedding.Value

	thought, encTrace := m.Encoder.Forward(emb, in)

	fwLogits, fwTrace := m.Forward.Forward(emb, thought, fwLabels, sampler)
	bwLogits, bwTrace := m.Backward.Forward(emb, thought, bwLabels, sampler)

	fwLoss, dFw := MaskedCrossEntropy(fwLogits, fwLabels)
	bwLoss, dBw := MaskedCrossEntropy(bwLogits, bwLabels)

	dThought, dxFw := m.Forward.Backward(fwTrace, dFw)
	dThoughtBw, dxBw := m.Backward.Backward(bwTrace, dBw)
	dThought.Add(dThought, dThoughtBw)

	dxEnc := m.Encoder.Backward(encTrace, dThought)

	if m.Embedding.Trainable {
		g := m.Embedding.Grad
		for t := range dxEnc {
			scatterAdd(g, encTrace.ids[t], dxEnc[t])
			scatterAdd(g, fwTrace.inputs[t], dxFw[t])
			scatterAdd(g, bwTrace.inputs[t], dxBw[t])
		}
	}

	return Losses{Forward: fwLoss, Backward: bwLoss}
}

// Loss evaluates the objective without touching gradients or sampling.
func (m *Model) Loss(in, fwLabels, bwLabels Batch) Losses {
	emb := m.Embedding.Value
	thought := m.Encoder.Encode(emb, in)
	fwLogits, _ := m.Forward.Forward(emb, thought, fwLabels, nil)
	bwLogits, _ := m.Backward.Forward(emb, thought, bwLabels, nil)
	fwLoss, _ := MaskedCrossEntropy(fwLogits, fwLabels)
	bwLoss, _ := MaskedCrossEntropy(bwLogits, bwLabels)
	return Losses{Forward: fwLoss, Backward: bwLoss}
}
