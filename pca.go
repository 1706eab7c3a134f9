package main

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ===========================================================================
// THOUGHT VECTOR PROJECTION (PCA)
// ===========================================================================
//
// Thought vectors live in 2*hidden dimensions. To eyeball whether similar
// sentences land close together, the encoder can project them onto their
// first two principal components and scatter-plot the result.
//
// ALGORITHM:
// 1. Center the data (subtract the column means)
// 2. Find the principal directions (SVD of the centered data, via gonum/stat)
// 3. Project the centered data onto the top k directions
//
// ===========================================================================

// ErrTooFewVectors indicates a projection over fewer than two vectors.
var ErrTooFewVectors = errors.New("pca: need at least two vectors")

// ProjectPCA projects the rows of x onto their first k principal
// components and returns an (n x k) matrix.
func ProjectPCA(x *mat.Dense, k int) (*mat.Dense, error) {
	if x == nil {
		return nil, ErrTooFewVectors
	}
	n, d := x.Dims()
	if n < 2 {
		return nil, ErrTooFewVectors
	}
	if k <= 0 || k > d || k > n {
		return nil, fmt.Errorf("pca: cannot keep %d components of %d vectors in %d dimensions", k, n, d)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("pca: decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	centered := mat.DenseCopyOf(x)
	for j := 0; j < d; j++ {
		mean := stat.Mean(mat.Col(nil, j, x), nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, centered.At(i, j)-mean)
		}
	}

	out := mat.NewDense(n, k, nil)
	out.Mul(centered, vecs.Slice(0, d, 0, k))
	return out, nil
}

// ThoughtCollector accumulates thought vectors, e.g. from EncodeStream.
type ThoughtCollector struct {
	rows [][]float64
}

// Add records a copy of v.
func (c *ThoughtCollector) Add(v []float64) {
	c.rows = append(c.rows, append([]float64(nil), v...))
}

// Len returns the number of vectors collected.
func (c *ThoughtCollector) Len() int {
	return len(c.rows)
}

// Matrix stacks the collected vectors into an (n x d) matrix.
func (c *ThoughtCollector) Matrix() *mat.Dense {
	if len(c.rows) == 0 {
		return nil
	}
	d := len(c.rows[0])
	m := mat.NewDense(len(c.rows), d, nil)
	for i, row := range c.rows {
		m.SetRow(i, row)
	}
	return m
}
