package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// ===========================================================================
// ENCODING CLI
// ===========================================================================
//
//   go run . encode -model_name=books -embeddings_path=./vectors.txt sentences.txt
//   go run . encode -model_name=books -embeddings_path=./vectors.txt -interactive
//   go run . encode -model_name=books -plot_thoughts=thoughts.png sentences.txt
//
// Each sentence of the input becomes one line
//
//   VEC 0.0132 -0.2210 ...
//
// on stdout; logs go to stderr so the output can be piped. Use "-" as the
// file name to read stdin.
//
// ===========================================================================

// RunEncodeCommand implements the encoding CLI.
func RunEncodeCommand(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	cfg := DefaultConfig()
	cfg.PlotLoss = false
	cfg.Bind(fs)
	interactive := fs.Bool("interactive", false, "Read sentences from the terminal (REPL)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.EncodePath == "" && fs.NArg() > 0 {
		cfg.EncodePath = fs.Arg(0)
	}
	if cfg.EncodePath == "" {
		if !*interactive {
			return fmt.Errorf("encode: an input file (or -interactive) is required")
		}
		cfg.EncodePath = "-"
	}

	log := mustLogger(cfg.LogLevel).WithField("run", uuid.NewV4().String())
	return runEncode(cfg, log, os.Stdout, *interactive)
}

func runEncode(cfg Config, log *logrus.Entry, w io.Writer, interactive bool) error {
	ws, err := openWorkspace(cfg, log)
	if err != nil {
		return err
	}
	opts := InferenceWindow(cfg)

	if interactive {
		fmt.Fprintln(os.Stderr, "Type a sentence to encode it, 'exit' to quit.")
		RunInteractive(w, ws.state.Model, ws.emb.Vocab, opts, cfg.BatchSize)
		return nil
	}

	var in io.Reader = os.Stdin
	if cfg.EncodePath != "-" {
		f, err := os.Open(cfg.EncodePath)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		defer f.Close()
		in = f
	}

	var collected ThoughtCollector
	var observers []func([]float64)
	if cfg.ThoughtPlot != "" {
		observers = append(observers, collected.Add)
	}

	n, err := EncodeStream(in, w, ws.state.Model, ws.emb.Vocab, opts, cfg.BatchSize, observers...)
	if err != nil {
		return err
	}
	log.WithField("sentences", n).Info("encoding complete")

	if cfg.ThoughtPlot != "" {
		return plotThoughts(&collected, cfg.ThoughtPlot, log)
	}
	return nil
}

func plotThoughts(c *ThoughtCollector, path string, log *logrus.Entry) error {
	points, err := ProjectPCA(c.Matrix(), 2)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := SaveThoughtPlot(points, path); err != nil {
		return err
	}
	log.WithField("path", path).Info("thought plot written")
	return nil
}
