package main

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaskedCrossEntropy computes the mean cross-entropy of a decoder's logits
// against labels, counting only steps inside each label row's true length.
//
// Given:
//   - logits: one (batch x vocab) matrix per step
//   - labels: the unshifted targets, label[row][t] at step t
//
// Computes:
//   loss = Σ_{row, t < len(row)} -log softmax(logits[t][row])[label[row][t]]
//          / Σ_row len(row)
//
// and the gradient w.r.t. every logit, (softmax - one_hot) / count on
// unmasked positions and 0 elsewhere. When every position is masked (all
// rows are padding) both the loss and the gradient are exactly zero.
func MaskedCrossEntropy(logits []*mat.Dense, labels Batch) (float64, []*mat.Dense) {
	lengths := labels.Lengths()
	count := 0
	for _, n := range lengths {
		count += n
	}

	dLogits := make([]*mat.Dense, len(logits))
	for t, l := range logits {
		r, c := l.Dims()
		dLogits[t] = mat.NewDense(r, c, nil)
	}
	if count == 0 {
		return 0, dLogits
	}

	norm := float64(count)
	total := 0.0
	for t, l := range logits {
		for row, n := range lengths {
			if t >= n {
				continue
			}
			target := labels.Rows[row][t]
			logitRow := l.RawRowView(row)
			grad := dLogits[t].RawRowView(row)

			total += logSumExp(logitRow) - logitRow[target]

			softmaxRow(grad, logitRow)

			for v := range grad {
				grad[v] /= norm
			}
			grad[target] -= 1 / norm
		}
	}
	return total / norm, dLogits
}

// logSumExp computes log Σ exp(x) without overflow.
func logSumExp(x []float64) float64 {
	maxX := x[0]
	for _, v := range x[1:] {
		if v > maxX {
			maxX = v
		}
	}
	sum := 0.0
	for _, v := range x {
		sum += math.Exp(v - maxX)
	}
	return maxX + math.Log(sum)
}
