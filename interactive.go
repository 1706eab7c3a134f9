package main

import (
	"fmt"
	"io"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"gonum.org/v1/gonum/floats"
)

// encodeSession is the state of the interactive encoder: the model and the
// vector of the previous input, for similarity reports.
type encodeSession struct {
	model     *Model
	tok       Tokenizer
	opts      WindowOptions
	batchSize int
	prev      []float64
}

func newEncodeSession(model *Model, tok Tokenizer, opts WindowOptions, batchSize int) *encodeSession {
	// A typed line rarely ends in a terminal word; keep it anyway.
	opts.FlushTrailing = true
	return &encodeSession{model: model, tok: tok, opts: opts, batchSize: batchSize}
}

// handle encodes one input line and returns the text to print. quit is
// true for "exit".
func (s *encodeSession) handle(line string) (out string, quit bool) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return "", false
	case "exit", "quit":
		return "", true
	}

	sentences, err := ReadSentences(strings.NewReader(line), s.tok, s.opts)
	if err != nil {
		return fmt.Sprintf("error: %v", err), false
	}

	var b strings.Builder
	batcher := NewBatcher(NewSliceSource(sentences), s.batchSize, s.opts.MaxLength)
	for {
		batch, ok := batcher.Next()
		if !ok {
			break
		}
		thoughts := s.model.Encode(batch)
		for row := 0; row < batch.Size; row++ {
			v := append([]float64(nil), thoughts.RawRowView(row)...)
			b.WriteString(FormatVector(v))
			b.WriteByte('\n')
			if s.prev != nil {
				fmt.Fprintf(&b, "similarity to previous: %.4f\n", CosineSimilarity(s.prev, v))
			}
			s.prev = v
		}
	}
	return strings.TrimRight(b.String(), "\n"), false
}

// RunInteractive reads sentences from the terminal until "exit" and prints
// their thought vectors to w.
func RunInteractive(w io.Writer, model *Model, tok Tokenizer, opts WindowOptions, batchSize int) {
	session := newEncodeSession(model, tok, opts, batchSize)

	completer := func(d prompt.Document) []prompt.Suggest {
		suggest := []prompt.Suggest{
			{Text: "exit", Description: "Leave the encoder"},
		}
		return prompt.FilterHasPrefix(suggest, d.GetWordBeforeCursor(), true)
	}

	for {
		line := prompt.Input("> ", completer)
		out, quit := session.handle(line)
		if quit {
			return
		}
		if out != "" {
			fmt.Fprintln(w, out)
		}
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 if
// either is the zero vector.
// Panics if the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("vectors must have the same length")
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
