// Package toy implements engine.Engine with a tiny bigram language model read
// from a JSON file (conventionally *.tlm). The next-token distribution depends
// only on the previous token, which keeps the model small enough to write by
// hand while still exercising tokenization, prefix caching, batched prefill and
// the full sampling chain.
package toy

import (
	"fmt"
	"math"
	"os"

	json "github.com/goccy/go-json"
)

// Format is the value of File.Format accepted by this package.
const Format = "toylm"

// Version is the only supported file version.
const Version = 1

// File is the on-disk model description.
type File struct {
	Format  string   `json:"format"`
	Version int      `json:"version"`
	Vocab   []string `json:"vocab"`
	// EOS is the end-of-sequence token id.
	EOS int32 `json:"eos"`
	// BOS is prepended by Tokenize when >= 0.
	BOS int32 `json:"bos"`
	// Start holds the logits used when nothing has been evaluated yet.
	Start []float32 `json:"start"`
	// Transitions[prev][next] is the logit of next following prev.
	Transitions [][]float32 `json:"transitions"`
}

// Validate checks the shape of the model.
func (f *File) Validate() error {
	if f.Format != Format {
		return fmt.Errorf("toy: unsupported format %q", f.Format)
	}
	if f.Version != Version {
		return fmt.Errorf("toy: unsupported version %d", f.Version)
	}
	n := len(f.Vocab)
	if n == 0 {
		return fmt.Errorf("toy: empty vocabulary")
	}
	if f.EOS < 0 || int(f.EOS) >= n {
		return fmt.Errorf("toy: eos id %d out of range", f.EOS)
	}
	if f.BOS < -1 || int(f.BOS) >= n {
		return fmt.Errorf("toy: bos id %d out of range", f.BOS)
	}
	if len(f.Start) != n {
		return fmt.Errorf("toy: start has %d logits, want %d", len(f.Start), n)
	}
	if len(f.Transitions) != n {
		return fmt.Errorf("toy: transitions has %d rows, want %d", len(f.Transitions), n)
	}
	for i, row := range f.Transitions {
		if len(row) != n {
			return fmt.Errorf("toy: transitions row %d has %d logits, want %d", i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(float64(v)) {
				return fmt.Errorf("toy: transitions row %d contains NaN", i)
			}
		}
	}
	for i, piece := range f.Vocab {
		if piece == "" && int32(i) != f.EOS && int32(i) != f.BOS {
			return fmt.Errorf("toy: vocabulary entry %d is empty", i)
		}
	}
	return nil
}

func (f *File) special(id int32) bool { return id == f.EOS || id == f.BOS }

// Read loads and validates a model file.
func Read(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("toy: decode %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Write stores a model file at path.
func Write(path string, f File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Chain builds a model that, under greedy decoding, emits pieces in order
// after any prompt and then the end-of-sequence token. Token 0 is "<eos>".
// It is mainly useful for tests and demos.
func Chain(pieces ...string) File { return chain(false, pieces) }

// Loop is like Chain but wraps from the last piece back to the first, so
// greedy decoding never produces end-of-sequence.
func Loop(pieces ...string) File { return chain(true, pieces) }

func chain(loop bool, pieces []string) File {
	vocab := append([]string{"<eos>"}, pieces...)
	n := len(vocab)
	f := File{
		Format:      Format,
		Version:     Version,
		Vocab:       vocab,
		EOS:         0,
		BOS:         -1,
		Start:       make([]float32, n),
		Transitions: make([][]float32, n),
	}
	next := func(id int) int {
		if id+1 < n {
			return id + 1
		}
		if loop && n > 1 {
			return 1
		}
		return 0
	}
	if n > 1 {
		f.Start[1] = 4
	}
	for i := range f.Transitions {
		row := make([]float32, n)
		row[next(i)] = 4
		f.Transitions[i] = row
	}
	return f
}
