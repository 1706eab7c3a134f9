package main

import (
	"errors"
	"flag"
	"io"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Inference() {
		t.Error("default config should train")
	}
	if got := cfg.OutputDir(); got != filepath.Join("output", "default") {
		t.Errorf("unexpected output dir %q", got)
	}
}

func TestConfigBind(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := DefaultConfig()
	cfg.Bind(fs)

	err := fs.Parse([]string{
		"-hidden_size=8",
		"-share=full",
		"-encode=input.txt",
		"-model_name=books",
		"-train_embeddings",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HiddenSize != 8 || cfg.Sharing != ShareFull || !cfg.TrainEmbeddings {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if !cfg.Inference() {
		t.Error("-encode should select inference")
	}
	if cfg.BatchSize != 16 {
		t.Errorf("unset flags should keep defaults, batch size is %d", cfg.BatchSize)
	}
}

func TestConfigBindRejectsUnknownSharing(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg := DefaultConfig()
	cfg.Bind(fs)
	if err := fs.Parse([]string{"-share=half"}); err == nil {
		t.Error("expected an error for an unknown sharing mode")
	}
}

func TestParseWeightSharing(t *testing.T) {
	for _, s := range []string{"none", "projection", "FULL"} {
		if _, err := ParseWeightSharing(s); err != nil {
			t.Errorf("%q: %v", s, err)
		}
	}
	if _, err := ParseWeightSharing("both"); !errors.Is(err, ErrInvalidHyperparameter) {
		t.Errorf("expected ErrInvalidHyperparameter, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"small vocabulary", func(c *Config) { c.VocabSize = NumReservedIDs }, ErrInvalidVocabSize},
		{"no embeddings", func(c *Config) { c.EmbeddingsPath = "" }, ErrMissingEmbeddings},
		{"no dataset", func(c *Config) { c.DatasetPath = "" }, ErrMissingDataset},
		{"short max length", func(c *Config) { c.MaxLength = 2 }, ErrInvalidHyperparameter},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, ErrInvalidHyperparameter},
		{"sample prob", func(c *Config) { c.SampleProb = 1.5 }, ErrInvalidHyperparameter},
		{"grad norm", func(c *Config) { c.MaxGradNorm = 0 }, ErrInvalidHyperparameter},
		{"sharing", func(c *Config) { c.Sharing = "some" }, ErrInvalidHyperparameter},
		{"no model name", func(c *Config) { c.ModelName = "" }, ErrInvalidHyperparameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestConfigValidateInferenceNeedsNoDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = ""
	cfg.EncodePath = "input.txt"
	if err := cfg.Validate(); err != nil {
		t.Errorf("inference should not need a dataset: %v", err)
	}
}
