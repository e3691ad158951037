package toy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lmsession/internal/engine"
)

func writeModel(t *testing.T, f File) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "m.tlm")
	if err := Write(p, f); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

func open(t *testing.T, f File, ctxLen int) *handle {
	t.Helper()
	h, err := New().Open(engine.ModelParams{Path: writeModel(t, f), Threads: 1, ContextLength: ctxLen})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h.(*handle)
}

// drain runs a stream to EOS or limit and returns the concatenated text.
func drain(t *testing.T, h *handle, prompt string, sp engine.Sampling, limit int) (string, bool) {
	t.Helper()
	toks, err := h.Tokenize(prompt)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	st, err := h.Start(prompt, toks, sp)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer st.Close()
	var b strings.Builder
	for i := 0; i < limit; i++ {
		tok, eos, err := st.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if eos {
			return b.String(), true
		}
		s, err := h.Detokenize(tok)
		if err != nil {
			t.Fatalf("detokenize: %v", err)
		}
		b.WriteString(s)
	}
	return b.String(), false
}

func TestOpen_Errors(t *testing.T) {
	if _, err := New().Open(engine.ModelParams{Path: "", ContextLength: 8}); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := New().Open(engine.ModelParams{Path: "/does/not/exist.tlm", ContextLength: 8}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	p := filepath.Join(t.TempDir(), "bad.tlm")
	if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New().Open(engine.ModelParams{Path: p, ContextLength: 8}); err == nil {
		t.Fatalf("expected decode error")
	}
	good := writeModel(t, Chain("a"))
	if _, err := New().Open(engine.ModelParams{Path: good, ContextLength: 0}); err == nil {
		t.Fatalf("expected context length error")
	}
}

func TestValidate_Shape(t *testing.T) {
	f := Chain("a", "b")
	f.Transitions = f.Transitions[:2]
	if err := f.Validate(); err == nil {
		t.Fatalf("expected row count error")
	}
	f = Chain("a")
	f.Format = "gguf"
	if err := f.Validate(); err == nil {
		t.Fatalf("expected format error")
	}
	f = Chain("a")
	f.EOS = 9
	if err := f.Validate(); err == nil {
		t.Fatalf("expected eos range error")
	}
}

func TestTokenize_LongestMatch(t *testing.T) {
	h := open(t, Chain("He", "Hello", "l", "o"), 64)
	toks, err := h.Tokenize("Hellol")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(toks) != 2 || toks[0].ID != 2 || toks[1].ID != 3 {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
	if _, err := h.Tokenize("Hex"); err == nil {
		t.Fatalf("expected error for unmatched text")
	}
}

func TestTokenize_PrependsBOS(t *testing.T) {
	f := Chain("<s>", "a")
	f.BOS = 1
	h := open(t, f, 64)
	toks, err := h.Tokenize("a")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(toks) != 2 || toks[0].ID != 1 || toks[1].ID != 2 {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
	// "<s>" is special and must not be matched from text
	if _, err := h.Tokenize("<s>"); err == nil {
		t.Fatalf("expected special token text to be rejected")
	}
}

func TestGreedy_FollowsChainToEOS(t *testing.T) {
	h := open(t, Chain("Hello", ",", " world", "!"), 64)
	got, eos := drain(t, h, "Hello", engine.Sampling{Temperature: 0}, 10)
	if !eos {
		t.Fatalf("expected eos")
	}
	if got != ", world!" {
		t.Fatalf("got %q", got)
	}
}

func TestGreedy_Deterministic(t *testing.T) {
	h := open(t, Loop("a", "b", "c"), 256)
	sp := engine.Sampling{Temperature: 0, TopP: 0.9, TopK: 20}
	first, _ := drain(t, h, "a", sp, 20)
	second, _ := drain(t, h, "a", sp, 20)
	if first != second {
		t.Fatalf("greedy output differs: %q vs %q", first, second)
	}
}

func TestSampling_SeededReproducible(t *testing.T) {
	f := Loop("x", "y", "z")
	// flatten transitions so sampling has real choices
	for i := range f.Transitions {
		for j := 1; j < len(f.Transitions[i]); j++ {
			f.Transitions[i][j] = 1
		}
		f.Transitions[i][0] = -10
	}
	h := open(t, f, 256)
	sp := engine.Sampling{Temperature: 1, TopP: 1, Seed: 42}
	a, _ := drain(t, h, "x", sp, 30)
	b, _ := drain(t, h, "x", sp, 30)
	if a != b {
		t.Fatalf("same seed produced different output: %q vs %q", a, b)
	}
}

func TestSampling_TopKOneIsGreedy(t *testing.T) {
	h := open(t, Chain("a", "b", "c"), 64)
	got, eos := drain(t, h, "a", engine.Sampling{Temperature: 5, TopK: 1, TopP: 1, Seed: 7}, 10)
	if !eos || got != "bc" {
		t.Fatalf("got %q eos=%v", got, eos)
	}
}

func TestSampling_TopPZeroKeepsBest(t *testing.T) {
	h := open(t, Chain("a", "b", "c"), 64)
	got, _ := drain(t, h, "a", engine.Sampling{Temperature: 2, TopP: 0, Seed: 3}, 10)
	if got != "bc" {
		t.Fatalf("got %q", got)
	}
}

func TestStart_ReusesCommonPrefix(t *testing.T) {
	h := open(t, Chain("a", "b", "c", "d"), 64)
	sp := engine.Sampling{}
	toks, _ := h.Tokenize("abc")
	st, err := h.Start("abc", toks, sp)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = st.Close()
	if h.evaluated != 3 {
		t.Fatalf("evaluated=%d want 3", h.evaluated)
	}
	toks2, _ := h.Tokenize("abd")
	st, err = h.Start("abd", toks2, sp)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = st.Close()
	// only the divergent "d" is evaluated again
	if h.evaluated != 4 {
		t.Fatalf("evaluated=%d want 4", h.evaluated)
	}
	if len(h.cache) != 3 || h.cache[2] != 4 {
		t.Fatalf("unexpected cache: %v", h.cache)
	}
}

func TestStart_BatchedPrefill(t *testing.T) {
	p := writeModel(t, Loop("a"))
	hh, err := New().Open(engine.ModelParams{Path: p, ContextLength: 64, BatchSize: 4})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer hh.Close()
	h := hh.(*handle)
	toks, _ := h.Tokenize(strings.Repeat("a", 10))
	st, err := h.Start("", toks, engine.Sampling{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = st.Close()
	if h.prefillSteps != 3 {
		t.Fatalf("prefillSteps=%d want 3", h.prefillSteps)
	}
}

func TestStart_RejectsSecondStreamAndOverlongPrompt(t *testing.T) {
	h := open(t, Loop("a"), 4)
	toks, _ := h.Tokenize("aaaaa")
	if _, err := h.Start("aaaaa", toks, engine.Sampling{}); !errors.Is(err, engine.ErrContextFull) {
		t.Fatalf("expected ErrContextFull, got %v", err)
	}
	st, err := h.Start("", nil, engine.Sampling{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := h.Start("", nil, engine.Sampling{}); !errors.Is(err, engine.ErrStreamActive) {
		t.Fatalf("expected ErrStreamActive, got %v", err)
	}
	if err := h.ClearCache(); !errors.Is(err, engine.ErrStreamActive) {
		t.Fatalf("expected ErrStreamActive from ClearCache, got %v", err)
	}
	_ = st.Close()
}

func TestNext_ContextFull(t *testing.T) {
	h := open(t, Loop("a"), 3)
	toks, _ := h.Tokenize("a")
	st, err := h.Start("a", toks, engine.Sampling{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer st.Close()
	for i := 0; i < 2; i++ {
		if _, _, err := st.Next(); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	if _, _, err := st.Next(); !errors.Is(err, engine.ErrContextFull) {
		t.Fatalf("expected ErrContextFull, got %v", err)
	}
}

func TestClearCacheAndClose(t *testing.T) {
	h := open(t, Chain("a", "b"), 16)
	_, _ = drain(t, h, "a", engine.Sampling{}, 5)
	if len(h.cache) == 0 {
		t.Fatalf("expected cached tokens")
	}
	if err := h.ClearCache(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(h.cache) != 0 {
		t.Fatalf("cache not cleared")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := h.Tokenize("a"); !errors.Is(err, engine.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
