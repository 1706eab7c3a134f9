package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// VectorTag prefixes every emitted vector line so the vectors can be
// grepped out of mixed output.
const VectorTag = "VEC"

// EncodeStream encodes every sentence of r and writes one "VEC v1 ... vD"
// line per sentence to w, in input order. The padding rows of the final
// partial batch are not written. It returns the number of vectors written.
//
// Only the encoder runs: no decoder, no loss, no randomness, no parameter
// change. Every written vector is also passed to the observers; they must
// copy it to keep it.
func EncodeStream(r io.Reader, w io.Writer, model *Model, tok Tokenizer, opts WindowOptions, batchSize int, observers ...func(v []float64)) (int, error) {
	win := NewWindower(r, tok, opts)
	batcher := NewBatcher(win, batchSize, opts.MaxLength)
	out := bufio.NewWriter(w)

	written := 0
	for {
		batch, ok := batcher.Next()
		if !ok {
			break
		}
		thoughts := model.Encode(batch)
		for row := 0; row < batch.Size; row++ {
			v := thoughts.RawRowView(row)
			for _, observe := range observers {
				observe(v)
			}
			if _, err := out.WriteString(FormatVector(v)); err != nil {
				return written, fmt.Errorf("encode: %w", err)
			}
			if err := out.WriteByte('\n'); err != nil {
				return written, fmt.Errorf("encode: %w", err)
			}
			written++
		}
		sentencesEncodedTotal.Add(float64(batch.Size))
	}
	if err := win.Err(); err != nil {
		return written, fmt.Errorf("encode: %w", err)
	}
	if err := out.Flush(); err != nil {
		return written, fmt.Errorf("encode: %w", err)
	}
	return written, nil
}

// FormatVector renders v as "VEC v1 v2 ... vD".
func FormatVector(v []float64) string {
	buf := make([]byte, 0, len(VectorTag)+len(v)*12)
	buf = append(buf, VectorTag...)
	for _, x := range v {
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, x, 'g', -1, 64)
	}
	return string(buf)
}
