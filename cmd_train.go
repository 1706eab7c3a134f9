package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// ===========================================================================
// TRAINING CLI
// ===========================================================================
//
//   go run . train -dataset_path=./books -embeddings_path=./vectors.txt \
//                  -model_name=books -epochs=10
//
// Startup order matters: configuration is validated, embeddings are loaded
// and the checkpoint is restored before the first document is read. Any
// failure up to that point ends the process without training.
//
// Passing -encode=<file> switches the same command to the encoding path.
//
// ===========================================================================

// RunTrainCommand implements the training CLI.
func RunTrainCommand(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfg := DefaultConfig()
	cfg.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := mustLogger(cfg.LogLevel).WithField("run", uuid.NewV4().String())

	if cfg.Inference() {
		return runEncode(cfg, log, os.Stdout, false)
	}
	return runTrain(cfg, log)
}

// workspace is everything both modes load before doing any work.
type workspace struct {
	cfg   Config
	rng   *rand.Rand
	emb   *Embeddings
	state *TrainingState
	store *BoltStore
}

// openWorkspace validates cfg, loads the embeddings, builds the model and
// restores or initialises its state.
func openWorkspace(cfg Config, log *logrus.Entry) (*workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Inference() {
		if info, err := os.Stat(cfg.DatasetPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingDataset, err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrMissingDataset, cfg.DatasetPath)
		}
	}

	rng := newRand(cfg.Seed)

	log.WithField("path", cfg.EmbeddingsPath).Info("loading embeddings")
	emb, err := LoadEmbeddings(cfg.EmbeddingsPath, cfg.VocabSize, rng)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrMissingEmbeddings, err)
		}
		return nil, err
	}

	log.Info("building model")
	model := NewModel(ModelConfigFrom(cfg, emb.Dim()), emb.Matrix, rng)
	log.WithFields(logrus.Fields{
		"vocabulary": cfg.VocabSize,
		"embed_dim":  emb.Dim(),
		"hidden":     cfg.HiddenSize,
		"sharing":    cfg.Sharing,
		"parameters": countParameters(model.TrainableParams()),
	}).Info("model ready")

	state := &TrainingState{Model: model, LearningRate: cfg.InitialLR}
	store := NewBoltStore(cfg.OutputDir())
	if _, err := RestoreOrInit(state, store, cfg.OutputDir(), log); err != nil {
		return nil, err
	}

	return &workspace{cfg: cfg, rng: rng, emb: emb, state: state, store: store}, nil
}

func runTrain(cfg Config, log *logrus.Entry) error {
	ws, err := openWorkspace(cfg, log)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trainer := NewTrainer(cfg, ws.state, ws.store, NewCorpus(cfg.DatasetPath), ws.emb.Vocab, ws.rng, log)
	if err := trainer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.WithField("step", ws.state.Step).Warn("interrupted; resume restarts the current epoch")
		}
		return err
	}
	log.WithField("step", ws.state.Step).Info("training complete")
	return nil
}

// newRand seeds from the clock when seed is 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
