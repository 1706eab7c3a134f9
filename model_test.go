package main

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// triple returns an aligned (in, fw, bw) batch of two rows whose second row
// is padding.
func triple() (in, fw, bw Batch) {
	pad := sentence(6)
	in = Batch{Rows: []Sentence{sentence(6, 8, 5, 6, 10, EOSID), pad}, Size: 1}
	fw = Batch{Rows: []Sentence{sentence(6, 4, 9, 10, EOSID), pad}, Size: 1}
	bw = Batch{Rows: []Sentence{sentence(6, 7, 11, 4, 5, 10, EOSID), pad}, Size: 1}
	return in, fw, bw
}

func TestModelGradients(t *testing.T) {
	for _, sharing := range []WeightSharing{ShareNone, ShareProjection, ShareFull} {
		t.Run(string(sharing), func(t *testing.T) {
			m := newTestModel(t, sharing, true, 2)
			in, fw, bw := triple()

			m.ZeroGrad()
			m.ForwardBackward(in, fw, bw, nil)

			assertGradients(t, m.TrainableParams(), func() float64 {
				return m.Loss(in, fw, bw).Total()
			})
		})
	}
}

func TestModelForwardBackwardMatchesLoss(t *testing.T) {
	m := newTestModel(t, ShareNone, false, 2)
	in, fw, bw := triple()

	want := m.Loss(in, fw, bw)
	m.ZeroGrad()
	got := m.ForwardBackward(in, fw, bw, nil)
	if math.Abs(got.Total()-want.Total()) > 1e-12 {
		t.Errorf("expected loss %f, got %f", want.Total(), got.Total())
	}
	if got.Forward <= 0 || got.Backward <= 0 {
		t.Errorf("expected positive losses, got %+v", got)
	}
}

func TestModelAllPaddingLabels(t *testing.T) {
	m := newTestModel(t, ShareNone, true, 2)
	in, _, _ := triple()
	pad := batchOf(sentence(6), sentence(6))
	pad.Size = 0

	m.ZeroGrad()
	losses := m.ForwardBackward(in, pad, pad, NewScheduledSampler(rand.New(rand.NewSource(1)), 0.5))
	if losses.Total() != 0 {
		t.Errorf("expected zero loss, got %+v", losses)
	}
	if norm := GlobalNorm(m.TrainableParams()); norm != 0 {
		t.Errorf("expected zero gradients, got norm %g", norm)
	}
}

func TestModelFrozenEmbeddings(t *testing.T) {
	m := newTestModel(t, ShareNone, false, 2)
	for _, p := range m.TrainableParams() {
		if p == m.Embedding {
			t.Fatal("frozen embedding should not be trainable")
		}
	}

	in, fw, bw := triple()
	m.ZeroGrad()
	m.ForwardBackward(in, fw, bw, nil)
	if mat.Norm(m.Embedding.Grad, 1) != 0 {
		t.Error("frozen embedding should receive no gradient")
	}

	trainable := newTestModel(t, ShareNone, true, 2)
	trainable.ZeroGrad()
	trainable.ForwardBackward(in, fw, bw, nil)
	if mat.Norm(trainable.Embedding.Grad, 1) == 0 {
		t.Error("trainable embedding should receive a gradient")
	}
	for j, v := range trainable.Embedding.Grad.RawRowView(PadID) {
		if v != 0 {
			t.Errorf("padding embedding got gradient %g at %d", v, j)
		}
	}
}

func TestModelWeightSharing(t *testing.T) {
	cases := []struct {
		sharing    WeightSharing
		params     int
		sameCell   bool
		sameOutput bool
	}{
		{ShareNone, 1 + 18 + 11 + 11, false, false},
		{ShareProjection, 1 + 18 + 11 + 9, false, true},
		{ShareFull, 1 + 18 + 11, true, true},
	}
	for _, tc := range cases {
		m := newTestModel(t, tc.sharing, true, 1)
		if n := len(m.Params()); n != tc.params {
			t.Errorf("%s: expected %d parameters, got %d", tc.sharing, tc.params, n)
		}
		if (m.Forward.Cell == m.Backward.Cell) != tc.sameCell {
			t.Errorf("%s: unexpected GRU sharing", tc.sharing)
		}
		if (m.Forward.Proj == m.Backward.Proj) != tc.sameOutput {
			t.Errorf("%s: unexpected projection sharing", tc.sharing)
		}
	}
}

func TestModelDecoderWidth(t *testing.T) {
	m := newTestModel(t, ShareNone, false, 1)
	if got, want := m.Forward.Cell.HiddenSize, 2*m.Config().HiddenSize; got != want {
		t.Errorf("decoder width: expected %d, got %d", want, got)
	}
	if _, c := m.Forward.Proj.W.Dims(); c != testVocabSize {
		t.Errorf("projection should cover the vocabulary, got %d columns", c)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	m := newTestModel(t, ShareNone, false, 4)
	s := sentence(6, 4, 5, 6, 10)
	other := sentence(6, 9, 8, 7, 10)

	a := m.Encode(batchOf(s, sentence(6)))
	b := m.Encode(batchOf(s, other))

	if r, c := a.Dims(); r != 2 || c != 4 {
		t.Fatalf("expected (2,4) thoughts, got (%d,%d)", r, c)
	}
	if !mat.Equal(a.RowView(0), b.RowView(0)) {
		t.Error("a row's thought must not depend on the other rows")
	}
	if mat.Norm(a.RowView(1), 2) != 0 {
		t.Error("a padding row should encode to the zero vector")
	}
	if mat.Equal(b.RowView(0), b.RowView(1)) {
		t.Error("different sentences should encode differently")
	}
}

func TestNewModelShapeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a mismatched embedding matrix")
		}
	}()
	NewModel(testModelConfig(ShareNone, false), mat.NewDense(3, 3, nil), rand.New(rand.NewSource(1)))
}
