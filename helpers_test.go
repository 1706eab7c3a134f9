package main

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testVectors is a tiny word2vec text file: header, then 7 words of dim 3.
// Ids: the=4 cat=5 sat=6 on=7 a=8 mat=9 .=10
const testVectors = `7 3
the 0.1 0.2 0.3
cat -0.2 0.4 0.1
sat 0.3 -0.1 0.2
on 0.05 0.05 -0.3
a -0.1 -0.2 0.4
mat 0.2 0.2 0.2
. 0.0 0.1 -0.1
`

const testVocabSize = 12

func newTestEmbeddings(t *testing.T) *Embeddings {
	t.Helper()
	emb, err := ReadEmbeddings(strings.NewReader(testVectors), testVocabSize, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("ReadEmbeddings: %v", err)
	}
	return emb
}

func testModelConfig(sharing WeightSharing, trainEmbeddings bool) ModelConfig {
	return ModelConfig{
		VocabSize:       testVocabSize,
		EmbedDim:        3,
		HiddenSize:      2,
		MaxLength:       6,
		Sharing:         sharing,
		TrainEmbeddings: trainEmbeddings,
	}
}

func newTestModel(t *testing.T, sharing WeightSharing, trainEmbeddings bool, seed int64) *Model {
	t.Helper()
	emb := newTestEmbeddings(t)
	return NewModel(testModelConfig(sharing, trainEmbeddings), emb.Matrix, rand.New(rand.NewSource(seed)))
}

// testConfig returns a config sized for the test model, writing under dir.
func testConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.VocabSize = testVocabSize
	cfg.HiddenSize = 2
	cfg.MaxLength = 6
	cfg.BatchSize = 1
	cfg.Epochs = 1
	cfg.SampleProb = 0.3
	cfg.OutputRoot = filepath.Join(dir, "output")
	cfg.ModelName = "test"
	cfg.DatasetPath = filepath.Join(dir, "books")
	cfg.EmbeddingsPath = filepath.Join(dir, "vectors.txt")
	cfg.PlotLoss = false
	cfg.Seed = 1
	return cfg
}

// writeFile creates path (and its parent) with content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// sentence pads ids to length n.
func sentence(n int, ids ...int) Sentence {
	s := make(Sentence, n)
	copy(s, ids)
	return s
}

func batchOf(rows ...Sentence) Batch {
	return Batch{Rows: rows, Size: len(rows)}
}

// assertGradients compares every accumulated gradient of params against a
// central-difference estimate of loss.
func assertGradients(t *testing.T, params []*Param, loss func() float64) {
	t.Helper()
	const eps = 1e-6
	for _, p := range params {
		val, grad := raw(p.Value), raw(p.Grad)
		for i := range val {
			orig := val[i]
			val[i] = orig + eps
			up := loss()
			val[i] = orig - eps
			down := loss()
			val[i] = orig

			num := (up - down) / (2 * eps)
			if diff := math.Abs(num - grad[i]); diff > 1e-6+1e-4*math.Abs(num) {
				t.Errorf("%s[%d]: analytic %.8g, numeric %.8g", p.Name, i, grad[i], num)
			}
		}
	}
}
