//go:build llama

package llama

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"lmsession/internal/engine"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// Engine opens GGUF models through go-llama.cpp.
type Engine struct{}

// New returns the llama.cpp engine.
func New() Engine { return Engine{} }

// handle owns the loaded model. go-llama.cpp evaluates prompts as text, so the
// prefix cache is kept by llama.cpp itself in a per-handle prompt cache file.
type handle struct {
	model    *llama.LLama
	params   engine.ModelParams
	cacheDir string
	active   *stream
}

func (Engine) Open(params engine.ModelParams) (engine.Handle, error) {
	if strings.TrimSpace(params.Path) == "" {
		return nil, errors.New("llama: model path is empty")
	}
	// Configure model options
	mo := []llama.ModelOption{
		llama.SetContext(params.ContextLength),
	}
	if params.BatchSize > 0 {
		mo = append(mo, llama.SetNBatch(params.BatchSize))
	}
	m, err := llama.New(params.Path, mo...)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "lmsession-cache-*")
	if err != nil {
		m.Free()
		return nil, fmt.Errorf("llama: prompt cache dir: %w", err)
	}
	return &handle{model: m, params: params, cacheDir: dir}, nil
}

func (h *handle) promptCache() string { return filepath.Join(h.cacheDir, "prompt.cache") }

func (h *handle) Tokenize(text string) ([]engine.Token, error) {
	if h.model == nil {
		return nil, engine.ErrClosed
	}
	_, ids, err := h.model.TokenizeString(text, llama.SetThreads(max(1, h.params.Threads)))
	if err != nil {
		return nil, err
	}
	out := make([]engine.Token, len(ids))
	for i, id := range ids {
		out[i] = engine.Token{ID: id}
	}
	return out, nil
}

// Detokenize returns the piece carried by streamed tokens. Prompt tokens have
// no text attached because go-llama.cpp exposes no per-id detokenizer.
func (h *handle) Detokenize(tok engine.Token) (string, error) {
	if h.model == nil {
		return "", engine.ErrClosed
	}
	if tok.ID != engine.NoID {
		return "", fmt.Errorf("llama: cannot detokenize id %d", tok.ID)
	}
	return tok.Text, nil
}

func (h *handle) ContextLength() int { return h.params.ContextLength }

// Start launches Predict on a dedicated goroutine. Each produced piece is
// handed over an unbuffered channel and the token callback blocks until the
// consumer asks for the next one, so the engine never runs ahead of the sink.
func (h *handle) Start(prompt string, tokens []engine.Token, sp engine.Sampling) (engine.Stream, error) {
	if h.model == nil {
		return nil, engine.ErrClosed
	}
	if h.active != nil {
		return nil, engine.ErrStreamActive
	}
	if len(tokens) > h.params.ContextLength {
		return nil, engine.ErrContextFull
	}
	st := &stream{
		h:      h,
		pieces: make(chan string),
		next:   make(chan struct{}),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	// Bridge token streaming to the stream and respect Close
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case st.pieces <- tok:
		case <-st.quit:
			return false
		}
		select {
		case <-st.next:
			return true
		case <-st.quit:
			return false
		}
	})
	po := mapSamplingToPredictOptions(sp, h.params.Threads, h.promptCache())
	go func() {
		defer close(st.done)
		_, st.err = h.model.Predict(prompt, po...)
	}()
	h.active = st
	return st, nil
}

func (h *handle) ClearCache() error {
	if h.model == nil {
		return engine.ErrClosed
	}
	if h.active != nil {
		return engine.ErrStreamActive
	}
	if err := os.Remove(h.promptCache()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (h *handle) Close() error {
	if h.active != nil {
		_ = h.active.Close()
	}
	if h.model != nil {
		h.model.SetTokenCallback(nil)
		h.model.Free()
		h.model = nil
	}
	if h.cacheDir != "" {
		_ = os.RemoveAll(h.cacheDir)
		h.cacheDir = ""
	}
	return nil
}

type stream struct {
	h       *handle
	pieces  chan string
	next    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	err     error
	started bool
	once    sync.Once
}

func (st *stream) Next() (engine.Token, bool, error) {
	select {
	case <-st.quit:
		return engine.Token{}, false, engine.ErrClosed
	default:
	}
	if st.started {
		// Release the callback parked on the previous piece.
		select {
		case st.next <- struct{}{}:
		case <-st.done:
		}
	}
	st.started = true
	select {
	case p := <-st.pieces:
		return engine.Token{ID: engine.NoID, Text: p}, false, nil
	case <-st.done:
		if st.err != nil {
			return engine.Token{}, false, st.err
		}
		return engine.Token{}, true, nil
	}
}

// Close stops Predict and waits for it to return so the model can be freed.
func (st *stream) Close() error {
	st.once.Do(func() {
		close(st.quit)
		<-st.done
		if st.h.active == st {
			st.h.active = nil
		}
	})
	return nil
}

// mapSamplingToPredictOptions converts sampling params into go-llama.cpp
// options. Temperature 0 is passed through (llama.cpp samples greedily) and
// top-k is pinned to 1 so no randomness source is consulted.
func mapSamplingToPredictOptions(sp engine.Sampling, threads int, promptCache string) []llama.PredictOption {
	topK := sp.TopK
	if sp.Greedy() {
		topK = 1
	}
	po := []llama.PredictOption{
		llama.SetTokens(max(1, sp.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(sp.TopP),
		llama.SetTopK(topK),
		llama.SetTemperature(sp.Temperature),
		llama.SetPenalty(llama.DefaultOptions.Penalty),
		llama.SetPathPromptCache(promptCache),
		llama.EnablePromptCacheAll,
	}
	if sp.Seed != 0 {
		po = append(po, llama.SetSeed(sp.Seed))
	}
	return po
}
