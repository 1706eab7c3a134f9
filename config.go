package main

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

// ===========================================================================
// CONFIGURATION
// ===========================================================================
//
// Every knob of a run lives in Config. The defaults are the hyperparameters
// skip-thought vectors are usually trained with on BookCorpus-sized data;
// the tests shrink them to a handful of units so a full training step runs
// in milliseconds.
//
// Subcommands bind the fields to their own flag.FlagSet (see Bind), so the
// same struct backs `train`, `encode` and the tests.
//
// ===========================================================================

var (
	// ErrInvalidVocabSize indicates a vocabulary too small to hold the
	// reserved ids plus at least one word.
	ErrInvalidVocabSize = errors.New("config: vocabulary_size must be greater than 4")

	// ErrMissingEmbeddings indicates an empty embeddings path.
	ErrMissingEmbeddings = errors.New("config: embeddings path is required")

	// ErrMissingDataset indicates an empty dataset path in training mode.
	ErrMissingDataset = errors.New("config: dataset path is required")

	// ErrInvalidHyperparameter indicates a non-positive size or an
	// out-of-range probability.
	ErrInvalidHyperparameter = errors.New("config: invalid hyperparameter")
)

// WeightSharing selects which weights the forward and backward decoders share.
type WeightSharing string

const (
	// ShareNone gives each decoder its own GRU and output projection.
	ShareNone WeightSharing = "none"
	// ShareProjection shares only the vocabulary projection.
	ShareProjection WeightSharing = "projection"
	// ShareFull shares the GRU and the projection.
	ShareFull WeightSharing = "full"
)

// ParseWeightSharing maps a flag value to a WeightSharing.
func ParseWeightSharing(s string) (WeightSharing, error) {
	switch WeightSharing(strings.ToLower(s)) {
	case ShareNone:
		return ShareNone, nil
	case ShareProjection:
		return ShareProjection, nil
	case ShareFull:
		return ShareFull, nil
	}
	return "", fmt.Errorf("%w: weight sharing %q (want none, projection or full)", ErrInvalidHyperparameter, s)
}

// Config holds the hyperparameters and paths of a run.
type Config struct {
	// Optimization
	InitialLR   float64
	MaxGradNorm float64
	SampleProb  float64 // scheduled sampling probability, fixed for the run

	// Model
	VocabSize       int
	HiddenSize      int // units per encoder direction; decoders use 2x
	MaxLength       int
	BatchSize       int
	TrainEmbeddings bool
	Sharing         WeightSharing

	// Data
	EOSToken      bool // append EOS in inference mode
	FlushTrailing bool // flush an unterminated trailing sentence at EOF
	Epochs        int

	// Paths
	DatasetPath    string
	EmbeddingsPath string
	ModelName      string
	OutputRoot     string
	EncodePath     string // non-empty switches the process to inference

	// Ops
	LogLevel    string
	MetricsAddr string
	PlotLoss    bool
	ThoughtPlot string // PCA scatter of encoded vectors, inference only
	Seed        int64  // 0 seeds from the clock
}

// DefaultConfig returns the defaults of the original training setup.
func DefaultConfig() Config {
	return Config{
		InitialLR:   1e-3,
		MaxGradNorm: 5.0,
		SampleProb:  0.3,

		VocabSize:  20000,
		HiddenSize: 512,
		MaxLength:  40,
		BatchSize:  16,
		Sharing:    ShareNone,

		Epochs: 10,

		DatasetPath:    "./books",
		EmbeddingsPath: "./word2vecModel",
		ModelName:      "default",
		OutputRoot:     "output",

		LogLevel: "info",
		PlotLoss: true,
	}
}

// Bind registers the config fields on fs. Values already in c become the
// flag defaults.
func (c *Config) Bind(fs *flag.FlagSet) {
	// Hyperparameters
	fs.Float64Var(&c.InitialLR, "initial_lr", c.InitialLR, "Initial learning rate")
	fs.IntVar(&c.VocabSize, "vocabulary_size", c.VocabSize, "Keep only the n most common words of the embeddings")
	fs.IntVar(&c.BatchSize, "batch_size", c.BatchSize, "Minibatch size")
	fs.IntVar(&c.HiddenSize, "hidden_size", c.HiddenSize, "Hidden units per encoder GRU direction")
	fs.IntVar(&c.MaxLength, "max_length", c.MaxLength, "Truncate sentences to n tokens")
	fs.Float64Var(&c.SampleProb, "sample_prob", c.SampleProb, "Decoder probability to feed its own prediction during training")
	fs.Float64Var(&c.MaxGradNorm, "max_grad_norm", c.MaxGradNorm, "Clip gradients to this global norm")
	fs.BoolVar(&c.TrainEmbeddings, "train_embeddings", c.TrainEmbeddings, "Backpropagate into the word embedding matrix")
	fs.BoolVar(&c.EOSToken, "eos_token", c.EOSToken, "Append the end-of-sentence token during inference")
	fs.BoolVar(&c.FlushTrailing, "flush_trailing", c.FlushTrailing, "Keep an unterminated sentence at end of file")
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "Number of training epochs")
	fs.Func("share", "Decoder weight sharing: none, projection or full (default \"none\")", func(s string) error {
		ws, err := ParseWeightSharing(s)
		if err != nil {
			return err
		}
		c.Sharing = ws
		return nil
	})

	// Paths
	fs.StringVar(&c.EncodePath, "encode", c.EncodePath, "Encode the lines of this file instead of training")
	fs.StringVar(&c.EmbeddingsPath, "embeddings_path", c.EmbeddingsPath, "Word vectors in text format")
	fs.StringVar(&c.DatasetPath, "dataset_path", c.DatasetPath, "Directory of training documents")
	fs.StringVar(&c.ModelName, "model_name", c.ModelName, "Save/restore the model in <output>/<model_name>")
	fs.StringVar(&c.OutputRoot, "output", c.OutputRoot, "Root directory for model outputs")

	// Ops
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve prometheus metrics on this address (empty disables)")
	fs.BoolVar(&c.PlotLoss, "plot", c.PlotLoss, "Write a loss curve to <output>/<model_name>/loss.png")
	fs.StringVar(&c.ThoughtPlot, "plot_thoughts", c.ThoughtPlot, "Write a 2D PCA scatter of the encoded vectors to this image file")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Random seed (0 seeds from the clock)")
}

// Inference reports whether the config selects the encoding path.
func (c Config) Inference() bool {
	return c.EncodePath != ""
}

// OutputDir is where checkpoints and plots of this model live.
func (c Config) OutputDir() string {
	return filepath.Join(c.OutputRoot, c.ModelName)
}

// Validate checks the config before any work starts. Every error here is
// fatal for the process.
func (c Config) Validate() error {
	if c.VocabSize <= NumReservedIDs {
		return fmt.Errorf("%w: got %d", ErrInvalidVocabSize, c.VocabSize)
	}
	if c.EmbeddingsPath == "" {
		return ErrMissingEmbeddings
	}
	if !c.Inference() && c.DatasetPath == "" {
		return ErrMissingDataset
	}
	// The windower needs room for SOS, EOS and at least one word.
	if c.MaxLength < 3 {
		return fmt.Errorf("%w: max_length must be at least 3, got %d", ErrInvalidHyperparameter, c.MaxLength)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidHyperparameter, c.BatchSize)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("%w: hidden_size must be positive, got %d", ErrInvalidHyperparameter, c.HiddenSize)
	}
	if c.SampleProb < 0 || c.SampleProb > 1 {
		return fmt.Errorf("%w: sample_prob must be in [0,1], got %g", ErrInvalidHyperparameter, c.SampleProb)
	}
	if c.MaxGradNorm <= 0 {
		return fmt.Errorf("%w: max_grad_norm must be positive, got %g", ErrInvalidHyperparameter, c.MaxGradNorm)
	}
	if c.InitialLR <= 0 {
		return fmt.Errorf("%w: initial_lr must be positive, got %g", ErrInvalidHyperparameter, c.InitialLR)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("%w: epochs must be non-negative, got %d", ErrInvalidHyperparameter, c.Epochs)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name is required", ErrInvalidHyperparameter)
	}
	if _, err := ParseWeightSharing(string(c.Sharing)); err != nil {
		return err
	}
	return nil
}
