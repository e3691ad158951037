package manager

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lmsession/internal/engine"
	"lmsession/internal/engine/toy"
)

// createModelFile writes a placeholder model file so preflight stat passes.
func createModelFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// createToyModel writes the "Hello" bigram model and returns its path.
func createToyModel(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "hello.tlm")
	if err := toy.Write(p, toy.Chain("Hello", ",", " world", "!")); err != nil {
		t.Fatalf("write toy model: %v", err)
	}
	return p
}

// fakeEngine hands out fakeHandles and records them.
type fakeEngine struct {
	mu      sync.Mutex
	openErr error
	piece   string
	delay   time.Duration
	handles []*fakeHandle
}

func (e *fakeEngine) Open(p engine.ModelParams) (engine.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	piece := e.piece
	if piece == "" {
		piece = "x"
	}
	h := &fakeHandle{params: p, piece: piece, delay: e.delay}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) last() *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.handles) == 0 {
		return nil
	}
	return e.handles[len(e.handles)-1]
}

// fakeHandle streams its piece forever (never EOS).
type fakeHandle struct {
	mu       sync.Mutex
	params   engine.ModelParams
	piece    string
	delay    time.Duration
	closes   int
	clears   int
	clearErr error
	useAfter bool
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes > 0
}

func (h *fakeHandle) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

func (h *fakeHandle) touch() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closes > 0 {
		h.useAfter = true
		return engine.ErrClosed
	}
	return nil
}

func (h *fakeHandle) Tokenize(text string) ([]engine.Token, error) {
	if err := h.touch(); err != nil {
		return nil, err
	}
	var out []engine.Token
	for i := range strings.Fields(text) {
		out = append(out, engine.Token{ID: int32(i)})
	}
	return out, nil
}

func (h *fakeHandle) Detokenize(tok engine.Token) (string, error) {
	if err := h.touch(); err != nil {
		return "", err
	}
	return tok.Text, nil
}

func (h *fakeHandle) ContextLength() int { return h.params.ContextLength }

func (h *fakeHandle) Start(prompt string, tokens []engine.Token, sp engine.Sampling) (engine.Stream, error) {
	if err := h.touch(); err != nil {
		return nil, err
	}
	return &fakeStream{h: h}, nil
}

func (h *fakeHandle) ClearCache() error {
	if err := h.touch(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clearErr != nil {
		return h.clearErr
	}
	h.clears++
	return nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	h.closes++
	h.mu.Unlock()
	return nil
}

type fakeStream struct{ h *fakeHandle }

func (s *fakeStream) Next() (engine.Token, bool, error) {
	if err := s.h.touch(); err != nil {
		return engine.Token{}, false, err
	}
	if s.h.delay > 0 {
		time.Sleep(s.h.delay)
	}
	return engine.Token{ID: 1, Text: s.h.piece}, false, nil
}

func (s *fakeStream) Close() error { return nil }

var errBoom = errors.New("boom")
