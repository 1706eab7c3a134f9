package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// Corpus is a directory of training documents, one document per file.
type Corpus struct {
	dir string
}

// NewCorpus creates a corpus over dir.
func NewCorpus(dir string) *Corpus {
	return &Corpus{dir: dir}
}

// Documents lists the regular files of the corpus in name order.
func (c *Corpus) Documents() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: failed to list %s: %w", c.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(c.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Shuffled lists the documents in a fresh random order.
func (c *Corpus) Shuffled(rng *rand.Rand) ([]string, error) {
	paths, err := c.Documents()
	if err != nil {
		return nil, err
	}
	rng.Shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
	return paths, nil
}

// Read loads every sentence of one document.
func (c *Corpus) Read(path string, tok Tokenizer, opts WindowOptions) ([]Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	defer f.Close()

	sentences, err := ReadSentences(f, tok, opts)
	if err != nil {
		return nil, fmt.Errorf("corpus: %s: %w", path, err)
	}
	return sentences, nil
}
