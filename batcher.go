package main

// ===========================================================================
// BATCHING AND TRIPLE ALIGNMENT
// ===========================================================================
//
// A batch always has exactly batch_size rows. The last group of a stream is
// topped up with all-zero rows; those rows have true length 0, so the encoder
// never updates on them and the loss masks them out entirely.
//
// For training, a document S[0..n-1] becomes three streams batched with the
// same size:
//
//   backward labels  S[0]   S[1]   ...  S[n-3]
//   inputs           S[1]   S[2]   ...  S[n-2]
//   forward labels   S[2]   S[3]   ...  S[n-1]
//
// Row i of batch k lines up across all three, which is exactly one
// (prev, cur, next) triple.
//
// ===========================================================================

// SentenceSource yields sentences one at a time. *Windower implements it.
type SentenceSource interface {
	Next() (Sentence, bool)
}

// SliceSource yields the sentences of a slice in order.
type SliceSource struct {
	sentences []Sentence
	pos       int
}

// NewSliceSource wraps s. The slice is not copied.
func NewSliceSource(s []Sentence) *SliceSource {
	return &SliceSource{sentences: s}
}

// Next implements SentenceSource.
func (s *SliceSource) Next() (Sentence, bool) {
	if s.pos >= len(s.sentences) {
		return nil, false
	}
	out := s.sentences[s.pos]
	s.pos++
	return out, true
}

// Batch is a fixed-size group of sentences.
type Batch struct {
	Rows []Sentence
	// Size counts the rows that came from the source; rows past it are
	// padding.
	Size int
}

// Lengths returns the true length of every row.
func (b Batch) Lengths() []int {
	lengths := make([]int, len(b.Rows))
	for i, row := range b.Rows {
		lengths[i] = row.TrueLength()
	}
	return lengths
}

// Batcher groups a sentence stream into batches.
//
// Batcher is not safe for concurrent use.
type Batcher struct {
	src       SentenceSource
	batchSize int
	maxLength int
	done      bool
}

// NewBatcher creates a batcher. maxLength sizes the padding rows.
// Panics if batchSize or maxLength is not positive.
func NewBatcher(src SentenceSource, batchSize, maxLength int) *Batcher {
	if batchSize <= 0 || maxLength <= 0 {
		panic("batcher: batch size and max length must be positive")
	}
	return &Batcher{src: src, batchSize: batchSize, maxLength: maxLength}
}

// Next returns the next batch, or false once the source is exhausted.
func (b *Batcher) Next() (Batch, bool) {
	if b.done {
		return Batch{}, false
	}
	rows := make([]Sentence, 0, b.batchSize)
	for len(rows) < b.batchSize {
		s, ok := b.src.Next()
		if !ok {
			b.done = true
			break
		}
		rows = append(rows, s)
	}
	if len(rows) == 0 {
		return Batch{}, false
	}
	size := len(rows)
	for len(rows) < b.batchSize {
		rows = append(rows, make(Sentence, b.maxLength))
	}
	return Batch{Rows: rows, Size: size}, true
}

// TripleCount is the number of (prev, cur, next) triples in a document of n
// sentences.
func TripleCount(n int) int {
	if n < 3 {
		return 0
	}
	return n - 2
}

// AlignedBatches walks the input, forward-label and backward-label streams
// of one document in lock-step.
type AlignedBatches struct {
	in, fw, bw *Batcher
}

// Align builds the three aligned streams of a document. It returns false
// for documents with fewer than three sentences, which hold no triple.
func Align(sentences []Sentence, batchSize, maxLength int) (*AlignedBatches, bool) {
	n := len(sentences)
	if TripleCount(n) == 0 {
		return nil, false
	}
	return &AlignedBatches{
		in: NewBatcher(NewSliceSource(sentences[1:n-1]), batchSize, maxLength),
		fw: NewBatcher(NewSliceSource(sentences[2:]), batchSize, maxLength),
		bw: NewBatcher(NewSliceSource(sentences[:n-2]), batchSize, maxLength),
	}, true
}

// Next returns the next aligned triple of batches.
func (a *AlignedBatches) Next() (in, fw, bw Batch, ok bool) {
	in, okIn := a.in.Next()
	fw, okFw := a.fw.Next()
	bw, okBw := a.bw.Next()
	if !okIn || !okFw || !okBw {
		return Batch{}, Batch{}, Batch{}, false
	}
	return in, fw, bw, true
}
